package image

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// Policy is the per-pixel test used when the match score is above
// Config.HighConfidenceThreshold.
type Policy int

const (
	// PolicyExact marks any RGB difference.
	PolicyExact Policy = iota
	// PolicyStructural marks pixels whose light/dark classification differs.
	PolicyStructural
)

func (p Policy) String() string {
	switch p {
	case PolicyExact:
		return "exact"
	case PolicyStructural:
		return "structural"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return PolicyExact, nil
	case "structural":
		return PolicyStructural, nil
	default:
		return 0, xerrors.Errorf("unknown high confidence policy: %q", s)
	}
}

// Metric is the colour distance used below the high confidence threshold.
type Metric int

const (
	// MetricEuclidean is the RGB Euclidean distance on the 0-255 scale.
	MetricEuclidean Metric = iota
	// MetricCIEDE2000 is the CIEDE2000 colour difference on the 0-100 scale.
	MetricCIEDE2000
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "euclidean"
	case MetricCIEDE2000:
		return "ciede2000"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euclidean":
		return MetricEuclidean, nil
	case "ciede2000":
		return MetricCIEDE2000, nil
	default:
		return 0, xerrors.Errorf("unknown color metric: %q", s)
	}
}

const (
	DefaultHighConfidenceThreshold = 0.95
	DefaultColorThreshold          = 30
)

type Config struct {
	HighConfidenceThreshold float64
	ColorThreshold          float64
	HighConfidencePolicy    Policy
	ColorMetric             Metric
}

func DefaultConfig() Config {
	return Config{
		HighConfidenceThreshold: DefaultHighConfidenceThreshold,
		ColorThreshold:          DefaultColorThreshold,
		HighConfidencePolicy:    PolicyExact,
		ColorMetric:             MetricEuclidean,
	}
}

var ErrInvalidConfig = errors.New("invalid comparison config")

func (c Config) Validate() error {
	if c.HighConfidenceThreshold < -1 || c.HighConfidenceThreshold > 1 {
		return fmt.Errorf("%w: high confidence threshold %v is outside [-1, 1]", ErrInvalidConfig, c.HighConfidenceThreshold)
	}
	if c.ColorThreshold < 0 {
		return fmt.Errorf("%w: color threshold %v is negative", ErrInvalidConfig, c.ColorThreshold)
	}
	if c.HighConfidencePolicy != PolicyExact && c.HighConfidencePolicy != PolicyStructural {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.HighConfidencePolicy)
	}
	if c.ColorMetric != MetricEuclidean && c.ColorMetric != MetricCIEDE2000 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.ColorMetric)
	}
	return nil
}
