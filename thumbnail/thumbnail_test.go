package thumbnail

import (
	"bytes"
	"context"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/rangeclip/media"
	"github.com/user/rangeclip/media/mediatest"
	"github.com/user/rangeclip/sampler"
	"github.com/user/rangeclip/selection"
)

func TestOverviewOffsets(t *testing.T) {
	got := OverviewOffsets(100, 5)
	want := []float64{16.67, 33.33, 50, 66.67, 83.33}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 0.005)
	}
	assert.Greater(t, got[0], 0.0)
	assert.Less(t, got[len(got)-1], 100.0)
}

func TestOverviewOffsetsEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		n        int
		wantLen  int
	}{
		{"unknown duration", 0, 5, 0},
		{"negative duration", -3, 5, 0},
		{"default count", 60, 0, DefaultOverviewCount},
		{"single", 10, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, OverviewOffsets(tt.duration, tt.n), tt.wantLen)
		})
	}
	assert.Equal(t, []float64{5}, OverviewOffsets(10, 1))
}

func TestRangeOffsets(t *testing.T) {
	rng := selection.NewRange(100, selection.DefaultMaxSpan, selection.DefaultMinSpan).WithBounds(10, 40)

	assert.Equal(t, []float64{15, 25, 35}, RangeOffsets(rng, 10))
}

func TestRangeOffsetsShortSpan(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		want       []float64
	}{
		{"shorter than interval", 20, 26, []float64{23}},
		{"exactly one interval", 0, 10, []float64{5}},
		{"partial second slice", 0, 19, []float64{9.5}},
		{"two slices", 0, 20, []float64{5, 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := selection.NewRange(100, selection.DefaultMaxSpan, selection.DefaultMinSpan).WithBounds(tt.start, tt.end)
			assert.Equal(t, tt.want, RangeOffsets(rng, 10))
		})
	}
}

func TestServiceRequests(t *testing.T) {
	svc := NewService(sampler.New(nil), nil)

	ov := svc.Overview(60, 1)
	assert.Equal(t, KindOverview, ov.Kind)
	assert.Equal(t, uint64(1), ov.Generation)
	assert.Len(t, ov.Offsets, 5)
	assert.InDelta(t, 10.0, ov.Spacing, 1e-9)

	rng := selection.NewRange(100, selection.DefaultMaxSpan, selection.DefaultMinSpan).WithBounds(10, 40)
	pv := svc.Preview(rng, 7)
	assert.Equal(t, KindPreview, pv.Kind)
	assert.Equal(t, uint64(7), pv.Generation)
	assert.Equal(t, rng, pv.Range)
	assert.Equal(t, 10.0, pv.Spacing)
}

func TestGenerate(t *testing.T) {
	src := mediatest.New(100)
	src.FrameErr[25] = media.ErrNoFrame
	svc := NewService(sampler.New(nil), nil)

	rng := selection.NewRange(100, selection.DefaultMaxSpan, selection.DefaultMinSpan).WithBounds(10, 40)
	set, err := svc.Generate(context.Background(), src, svc.Preview(rng, 3))
	require.NoError(t, err)

	assert.Equal(t, KindPreview, set.Kind)
	assert.Equal(t, uint64(3), set.Generation)
	require.Equal(t, 3, set.Len())
	assert.Equal(t, 1, set.Failed())
	assert.Equal(t, 15.0, set.Thumbnails[0].Offset)
	assert.NotEmpty(t, set.Thumbnails[0].Data)
	assert.ErrorIs(t, set.Thumbnails[1].Err, media.ErrNoFrame)
	assert.Equal(t, []float64{15, 25, 35}, src.Seeks())
}

func TestGenerateCancelledDropsSet(t *testing.T) {
	src := mediatest.New(100)
	src.HangAt[50] = true
	svc := NewService(sampler.New(nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	set, err := svc.Generate(ctx, src, svc.Overview(100, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, set.Len())
}

func TestStill(t *testing.T) {
	src := mediatest.New(100)
	src.FrameErr[50] = media.ErrNoFrame
	svc := NewService(sampler.New(nil), nil)
	set, err := svc.Generate(context.Background(), src, Request{Offsets: []float64{20, 50}})
	require.NoError(t, err)

	still, err := set.Still(0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", still.MIMEType)
	assert.Equal(t, 20.0, still.Offset)
	img, err := png.Decode(bytes.NewReader(still.Data))
	require.NoError(t, err)
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(20)*0x101, r)

	_, err = set.Still(1)
	assert.ErrorIs(t, err, ErrNoThumbnail)
	_, err = set.Still(5)
	assert.ErrorIs(t, err, ErrNoThumbnail)
	_, err = set.Still(-1)
	assert.ErrorIs(t, err, ErrNoThumbnail)
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(0)
	assert.Equal(t, DefaultDebounce, d.Delay())

	g1 := d.Touch()
	g2 := d.Touch()
	assert.False(t, d.Settled(g1))
	assert.True(t, d.Settled(g2))
	assert.Equal(t, g2, d.Current())
}

func TestDebouncerScheduleFiresLatestOnly(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32
	var last atomic.Uint64
	fire := func(gen uint64) {
		if d.Settled(gen) {
			fired.Add(1)
			last.Store(gen)
		}
	}

	d.Schedule(fire)
	d.Schedule(fire)
	g := d.Schedule(fire)

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, g, last.Load())
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var fired atomic.Bool
	d.Schedule(func(uint64) { fired.Store(true) })
	d.Stop()
	time.Sleep(30 * time.Millisecond)
	assert.False(t, fired.Load())
}
