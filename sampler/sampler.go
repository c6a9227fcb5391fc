// Package sampler grabs still frames from a media source at given offsets.
package sampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"iter"
	"log/slog"
	"math"
	"time"

	"golang.org/x/image/draw"

	"github.com/user/rangeclip/media"
)

const (
	DefaultSeekTimeout = 3 * time.Second
	DefaultMaxWidth    = 320
	DefaultQuality     = 80
)

var (
	// ErrOutOfRange is reported for offsets outside [0, duration].
	ErrOutOfRange = errors.New("offset outside source")
	// ErrSeekTimeout is reported when a seek does not settle in time.
	ErrSeekTimeout = errors.New("seek did not settle")
)

// SampleError is the per-offset failure carried by a Frame.
type SampleError struct {
	Offset float64
	Err    error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample at %.3fs: %v", e.Offset, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// Frame is one sampled offset. Either Err is set or Data holds the JPEG
// encoding of Image.
type Frame struct {
	Offset float64
	// Image is the scaled frame, kept for re-encoding.
	Image  image.Image
	Data   []byte
	Width  int
	Height int
	Err    error
}

// Sampler seeks a source offset by offset and encodes what it finds.
type Sampler struct {
	SeekTimeout time.Duration
	// MaxWidth scales wider frames down keeping the aspect ratio; 0 keeps
	// the natural size.
	MaxWidth int
	Quality  int
	Logger   *slog.Logger
}

// New returns a Sampler with default settings.
func New(logger *slog.Logger) *Sampler {
	return &Sampler{
		SeekTimeout: DefaultSeekTimeout,
		MaxWidth:    DefaultMaxWidth,
		Quality:     DefaultQuality,
		Logger:      logger,
	}
}

// Sample visits offsets in order on the calling goroutine, yielding one Frame
// each. A failing offset yields a Frame with Err set and sampling goes on;
// cancelling ctx ends the sequence. Each iteration seeks afresh.
func (s *Sampler) Sample(ctx context.Context, src media.Source, offsets []float64) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for _, off := range offsets {
			if ctx.Err() != nil {
				return
			}
			f := s.sampleOne(ctx, src, off)
			if f.Err != nil && ctx.Err() != nil {
				return
			}
			if f.Err != nil {
				s.logger().Debug("sample failed", "offset", off, "error", f.Err)
			}
			if !yield(f) {
				return
			}
		}
	}
}

func (s *Sampler) sampleOne(ctx context.Context, src media.Source, off float64) Frame {
	fail := func(err error) Frame {
		return Frame{Offset: off, Err: &SampleError{Offset: off, Err: err}}
	}

	// Duration is read per offset: metadata may have shrunk since the
	// offsets were computed.
	d := src.Info().Duration
	if math.IsNaN(off) || off < 0 || (d > 0 && off > d) {
		return fail(ErrOutOfRange)
	}

	seekCtx, cancel := context.WithTimeout(ctx, s.seekTimeout())
	err := src.Seek(seekCtx, off)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fail(ErrSeekTimeout)
		}
		return fail(err)
	}

	img, err := src.Frame(ctx)
	if err != nil {
		return fail(err)
	}
	if img == nil {
		return fail(media.ErrNoFrame)
	}

	scaled := Scale(img, s.MaxWidth)
	data, err := EncodeJPEG(scaled, s.quality())
	if err != nil {
		return fail(err)
	}
	b := scaled.Bounds()
	return Frame{Offset: off, Image: scaled, Data: data, Width: b.Dx(), Height: b.Dy()}
}

// Scale shrinks img to maxWidth preserving aspect ratio. Smaller images and
// maxWidth <= 0 return img unchanged.
func Scale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := int(float64(b.Dy()) * float64(maxWidth) / float64(b.Dx()))
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Sampler) seekTimeout() time.Duration {
	if s.SeekTimeout > 0 {
		return s.SeekTimeout
	}
	return DefaultSeekTimeout
}

func (s *Sampler) quality() int {
	if s.Quality > 0 && s.Quality <= 100 {
		return s.Quality
	}
	return DefaultQuality
}

func (s *Sampler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
