// Package thumbnail decides which offsets to sample for the overview strip and
// the range preview, and turns sampled frames into thumbnail sets.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"math"
	"time"

	"github.com/user/rangeclip/media"
	"github.com/user/rangeclip/sampler"
	"github.com/user/rangeclip/selection"
)

const (
	DefaultOverviewCount   = 5
	DefaultPreviewInterval = 10.0
	DefaultDebounce        = 300 * time.Millisecond
)

// ErrNoThumbnail is returned by Still for an index without a usable frame.
var ErrNoThumbnail = errors.New("no thumbnail at index")

// Kind is the sampling policy that produced a Request.
type Kind int

const (
	KindOverview Kind = iota
	KindPreview
)

func (k Kind) String() string {
	if k == KindPreview {
		return "preview"
	}
	return "overview"
}

// OverviewOffsets spaces n offsets evenly inside the open interval
// (0, duration): i*duration/(n+1) for i = 1..n.
func OverviewOffsets(duration float64, n int) []float64 {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil
	}
	if n <= 0 {
		n = DefaultOverviewCount
	}
	out := make([]float64, n)
	for i := range n {
		out[i] = float64(i+1) * duration / float64(n+1)
	}
	return out
}

// RangeOffsets centres one offset in each of count equal slices of r, where
// count = max(1, floor(span/interval)).
func RangeOffsets(r selection.Range, interval float64) []float64 {
	if !(interval > 0) {
		interval = DefaultPreviewInterval
	}
	span := r.Span()
	count := max(1, int(math.Floor(span/interval)))
	out := make([]float64, count)
	for i := range count {
		out[i] = r.Start + (float64(i)+0.5)*span/float64(count)
	}
	return out
}

// Request is a batch of offsets and the policy that produced them.
type Request struct {
	Kind       Kind
	Generation uint64
	Offsets    []float64
	// Range is the selection a preview was computed for; zero for overviews.
	Range selection.Range
	// Spacing is the distance between consecutive offsets.
	Spacing float64
}

// Thumbnail is one sampled frame. Err is a *sampler.SampleError when the
// frame could not be taken; the UI renders a placeholder for it.
type Thumbnail struct {
	Offset float64
	Data   []byte
	Width  int
	Height int
	Err    error

	frame sampler.Frame
}

// Set is a complete batch. Sets are replaced, never merged.
type Set struct {
	Kind       Kind
	Generation uint64
	Thumbnails []Thumbnail
}

// Len returns the number of thumbnails.
func (s Set) Len() int { return len(s.Thumbnails) }

// Failed counts placeholder thumbnails.
func (s Set) Failed() int {
	n := 0
	for _, t := range s.Thumbnails {
		if t.Err != nil {
			n++
		}
	}
	return n
}

// Still is a single downloadable image.
type Still struct {
	Offset   float64
	MIMEType string
	Data     []byte
}

// Still re-encodes thumbnail i as PNG.
func (s Set) Still(i int) (Still, error) {
	if i < 0 || i >= len(s.Thumbnails) {
		return Still{}, fmt.Errorf("%w %d", ErrNoThumbnail, i)
	}
	t := s.Thumbnails[i]
	if t.Err != nil || t.frame.Image == nil {
		return Still{}, fmt.Errorf("%w %d", ErrNoThumbnail, i)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, t.frame.Image); err != nil {
		return Still{}, fmt.Errorf("encode png: %w", err)
	}
	return Still{Offset: t.Offset, MIMEType: "image/png", Data: buf.Bytes()}, nil
}

// Service builds requests and runs them through a sampler.
type Service struct {
	Sampler         *sampler.Sampler
	OverviewCount   int
	PreviewInterval float64
	Logger          *slog.Logger
}

// NewService returns a Service with default policies.
func NewService(s *sampler.Sampler, logger *slog.Logger) *Service {
	return &Service{
		Sampler:         s,
		OverviewCount:   DefaultOverviewCount,
		PreviewInterval: DefaultPreviewInterval,
		Logger:          logger,
	}
}

// Overview builds the whole-source request.
func (s *Service) Overview(duration float64, gen uint64) Request {
	n := s.OverviewCount
	if n <= 0 {
		n = DefaultOverviewCount
	}
	return Request{
		Kind:       KindOverview,
		Generation: gen,
		Offsets:    OverviewOffsets(duration, n),
		Spacing:    duration / float64(n+1),
	}
}

// Preview builds the request for the selected range.
func (s *Service) Preview(r selection.Range, gen uint64) Request {
	offsets := RangeOffsets(r, s.PreviewInterval)
	return Request{
		Kind:       KindPreview,
		Generation: gen,
		Offsets:    offsets,
		Range:      r,
		Spacing:    r.Span() / float64(len(offsets)),
	}
}

// Generate samples every offset of req. Per-offset failures become
// placeholders; only cancellation returns an error, and the partial set is
// then dropped.
func (s *Service) Generate(ctx context.Context, src media.Source, req Request) (Set, error) {
	set := Set{Kind: req.Kind, Generation: req.Generation, Thumbnails: make([]Thumbnail, 0, len(req.Offsets))}
	start := time.Now()
	for f := range s.Sampler.Sample(ctx, src, req.Offsets) {
		set.Thumbnails = append(set.Thumbnails, Thumbnail{
			Offset: f.Offset,
			Data:   f.Data,
			Width:  f.Width,
			Height: f.Height,
			Err:    f.Err,
			frame:  f,
		})
	}
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}
	s.logger().Debug("thumbnails generated",
		"kind", req.Kind.String(),
		"generation", req.Generation,
		"count", set.Len(),
		"failed", set.Failed(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return set, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
