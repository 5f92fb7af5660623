package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"overlap-diff/internal/comparison"
	diffimage "overlap-diff/internal/diff/image"
	"overlap-diff/internal/loader"
	"overlap-diff/internal/myhttp"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const maxUploadMemory = 32 << 20

type diffHandler struct {
	tracer                         trace.Tracer
	comparisonsTotal               metric.Int64Counter
	comparisonDurationMicroSeconds metric.Int64Histogram
	defaults                       comparison.Options
}

func newDiffHandler(meter metric.Meter, tracer trace.Tracer, defaults comparison.Options) (*diffHandler, error) {
	comparisonsTotal, err := meter.Int64Counter("comparisons_total")
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	comparisonDurationMicroSeconds, err := meter.Int64Histogram("comparison_duration_micro_seconds")
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}

	return &diffHandler{
		tracer:                         tracer,
		comparisonsTotal:               comparisonsTotal,
		comparisonDurationMicroSeconds: comparisonDurationMicroSeconds,
		defaults:                       defaults,
	}, nil
}

func (h *diffHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := myhttp.Logger(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		myhttp.WriteError(w, http.StatusBadRequest, "request must be multipart/form-data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	options, err := comparison.ParseOptions(r.FormValue, h.defaults)
	if err != nil {
		myhttp.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := loader.NewSession(logr.FromSlogHandler(logger.Handler()))
	defer session.Close()

	var buffers [2]*diffimage.PixelBuffer
	for i, slot := range []string{"first", "second"} {
		file, _, err := r.FormFile(slot)
		if err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, fmt.Sprintf("missing %s image", slot))
			return
		}
		buffers[i], err = session.Load(r.Context(), slot, &loader.ReaderSource{Label: slot, Reader: file})
		if err != nil {
			logger.Info("failed to load image", "slot", slot, "error", err)
			myhttp.WriteError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode %s image", slot))
			return
		}
	}

	ctx, span := h.tracer.Start(r.Context(), "compare")
	defer span.End()

	now := time.Now()
	outcome, err := comparison.Run(buffers[0], buffers[1], options, logr.FromSlogHandler(logger.Handler()))
	h.comparisonDurationMicroSeconds.Record(ctx, time.Since(now).Microseconds(), metric.WithAttributes(
		attribute.Key("format").String(options.Format),
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var overlapErr *diffimage.OverlapError
		if errors.As(err, &overlapErr) {
			h.count(ctx, "incompatible")
			myhttp.WriteError(w, http.StatusUnprocessableEntity, overlapErr.Error())
			return
		}
		h.count(ctx, "error")
		logger.Error("failed to compare images", "error", err)
		myhttp.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	output := outcome.Output
	span.SetAttributes(
		attribute.Float64("overlap.score", output.Score),
		attribute.Int("overlap.offset.x", output.Offset.X),
		attribute.Int("overlap.offset.y", output.Offset.Y),
		attribute.Float64("overlap.percent", output.Percent),
		attribute.Bool("overlap.large_is_a", output.LargeIsA),
	)
	if output.DifferingPixels == 0 {
		h.count(ctx, "identical")
	} else {
		h.count(ctx, "different")
	}

	data, err := comparison.EncodePNG(outcome.Image)
	if err != nil {
		logger.Error("failed to encode diff image", "error", err)
		myhttp.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	output.DiffData = base64.StdEncoding.EncodeToString(data)

	myhttp.WriteJSON(w, http.StatusOK, output)
}

func (h *diffHandler) count(ctx context.Context, outcome string) {
	h.comparisonsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Key("outcome").String(outcome),
	))
}
