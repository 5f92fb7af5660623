package capture

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/xerrors"
)

type PlaywrightConfig struct {
	ViewportWidth  int
	ViewportHeight int

	FullPage bool
	// Format is "png" or "jpeg". Quality applies to jpeg only.
	Format  string
	Quality int

	Timeout time.Duration
	Delay   time.Duration

	Headless                  bool
	ChromeDevtoolsProtocolURL string
	UserAgent                 string
}

func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		FullPage:       true,
		Format:         "png",
		Quality:        85,
		Timeout:        30 * time.Second,
		Delay:          3 * time.Second,
		Headless:       true,
	}
}

type playwrightCapturer struct {
	config PlaywrightConfig
}

func NewPlaywrightCapturer(ctx context.Context, p PlaywrightConfig) (Capturer, error) {
	if p.Format != "png" && p.Format != "jpeg" {
		return nil, xerrors.Errorf("unsupported screenshot format: %s", p.Format)
	}
	return &playwrightCapturer{
		config: p,
	}, nil
}

func (c *playwrightCapturer) Capture(ctx context.Context, url string, captureOptions CaptureOptions) (*CaptureResult, error) {
	p, err := playwright.Run()
	if err != nil {
		return nil, xerrors.Errorf("failed to start playwright: %w", err)
	}
	defer p.Stop()

	browser, err := c.browser(p)
	if err != nil {
		return nil, err
	}
	if c.config.ChromeDevtoolsProtocolURL == "" {
		defer browser.Close()
	}

	pageOptions := playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{
			Width:  c.config.ViewportWidth,
			Height: c.config.ViewportHeight,
		},
	}
	if c.config.UserAgent != "" {
		pageOptions.UserAgent = playwright.String(c.config.UserAgent)
	}
	if len(captureOptions.Headers) > 0 {
		pageOptions.ExtraHttpHeaders = captureOptions.Headers
	}
	page, err := browser.NewPage(pageOptions)
	if err != nil {
		return nil, xerrors.Errorf("failed to create new page: %w", err)
	}
	defer page.Close()

	// Closing the page aborts whatever playwright call is in flight.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			page.Close()
		case <-done:
		}
	}()
	defer close(done)

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(c.config.Timeout.Milliseconds())),
	}); err != nil {
		return nil, xerrors.Errorf("failed to navigate to %s: %w", url, err)
	}

	if c.config.Delay > 0 {
		select {
		case <-time.After(c.config.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(captureOptions.MaskSelectors) > 0 {
		if err := mask(page, captureOptions.MaskSelectors); err != nil {
			return nil, err
		}
	}

	screenshot, err := c.screenshot(page, captureOptions.Selector)
	if err != nil {
		return nil, err
	}

	return &CaptureResult{
		Screenshot: screenshot,
		Format:     c.config.Format,
	}, nil
}

func (c *playwrightCapturer) browser(p *playwright.Playwright) (playwright.Browser, error) {
	if c.config.ChromeDevtoolsProtocolURL != "" {
		browser, err := p.Chromium.ConnectOverCDP(c.config.ChromeDevtoolsProtocolURL)
		if err != nil {
			return nil, xerrors.Errorf("failed to connect to browser via CDP at %s: %w", c.config.ChromeDevtoolsProtocolURL, err)
		}
		return browser, nil
	}

	browser, err := p.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(c.config.Headless),
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to launch browser: %w", err)
	}
	return browser, nil
}

func (c *playwrightCapturer) screenshot(page playwright.Page, selector string) ([]byte, error) {
	screenshotType := playwright.ScreenshotTypePng
	var quality *int
	if c.config.Format == "jpeg" {
		screenshotType = playwright.ScreenshotTypeJpeg
		if c.config.Quality > 0 {
			quality = playwright.Int(c.config.Quality)
		}
	}

	if selector != "" {
		screenshot, err := page.Locator(selector).First().Screenshot(playwright.LocatorScreenshotOptions{
			Type:    screenshotType,
			Quality: quality,
		})
		if err != nil {
			return nil, xerrors.Errorf("failed to take screenshot of %s: %w", selector, err)
		}
		return screenshot, nil
	}

	screenshot, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(c.config.FullPage),
		Type:     screenshotType,
		Quality:  quality,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to take screenshot: %w", err)
	}
	return screenshot, nil
}

// mask paints an opaque black overlay over every element matching selectors
// so that volatile content does not show up as a difference.
func mask(page playwright.Page, selectors []string) error {
	unique := make([]byte, 8)
	if _, err := rand.Read(unique); err != nil {
		return xerrors.Errorf("failed to generate unique identifier: %w", err)
	}

	if _, err := page.Evaluate(maskScript(fmt.Sprintf("mask-%s", hex.EncodeToString(unique))), selectors); err != nil {
		return xerrors.Errorf("failed to mask selectors: %w", err)
	}
	return nil
}

func maskScript(className string) string {
	css := fmt.Sprintf(`
.%s {
  position: relative !important;
}
.%s::after {
  content: "" !important;
  position: absolute !important;
  inset: 0 !important;
  background-color: black !important;
  z-index: 2147483646 !important;
  pointer-events: none !important;
}
`, className, className)

	return fmt.Sprintf(`(selectors) => {
		const style = document.createElement('style');
		style.textContent = %q;
		document.head.appendChild(style);

		for (const selector of selectors) {
			for (const element of document.querySelectorAll(selector)) {
				if (window.getComputedStyle(element).position === 'static') {
					element.style.position = 'relative';
				}
				element.classList.add(%q);
			}
		}
	}`, css, className)
}
