package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loaded returns a controller over a 100s source drawn 100px wide, so one
// pixel is one second.
func loaded(t *testing.T) *Controller {
	t.Helper()
	c := NewController(DefaultMaxSpan, DefaultMinSpan)
	c.Load(100, 0)
	c.SetWidth(100)
	require.Equal(t, 0.0, c.Range().Start)
	require.Equal(t, 90.0, c.Range().End)
	return c
}

func TestPixelsToSeconds(t *testing.T) {
	tests := []struct {
		name     string
		delta    float64
		width    float64
		duration float64
		want     float64
	}{
		{"one to one", 10, 100, 100, 10},
		{"scaled", 10, 200, 100, 5},
		{"negative", -20, 100, 50, -10},
		{"zero width", 10, 0, 100, 0},
		{"unknown duration", 10, 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PixelsToSeconds(tt.delta, tt.width, tt.duration))
		})
	}

	assert.Equal(t, 25.0, SecondsToPixels(50, 50, 100))
}

func TestDragStartPastEndClampsExactly(t *testing.T) {
	c := loaded(t)
	c.Select(10, 40)

	require.True(t, c.Begin(HandleStart, 10))
	c.Update(95)

	assert.Equal(t, 40-DefaultMinSpan, c.Range().Start)
	assert.Equal(t, 40.0, c.Range().End)
	assert.True(t, c.Range().Valid())
}

func TestDragEndRespectsMaxSpan(t *testing.T) {
	c := loaded(t)
	c.Select(5, 20)

	c.Begin(HandleEnd, 20)
	c.Update(100)

	assert.Equal(t, 5.0, c.Range().Start)
	assert.Equal(t, 95.0, c.Range().End)
}

func TestDragFramePreservesSpan(t *testing.T) {
	c := loaded(t)
	c.Select(10, 40)

	c.Begin(HandleFrame, 20)
	assert.True(t, c.Update(35))
	assert.InDelta(t, 25.0, c.Range().Start, 1e-9)
	assert.InDelta(t, 55.0, c.Range().End, 1e-9)

	c.Update(500)
	assert.InDelta(t, 70.0, c.Range().Start, 1e-9)
	assert.InDelta(t, 100.0, c.Range().End, 1e-9)

	c.Update(-500)
	assert.InDelta(t, 0.0, c.Range().Start, 1e-9)
	assert.InDelta(t, 30.0, c.Range().End, 1e-9)
}

func TestDragIsRelativeToAnchor(t *testing.T) {
	c := loaded(t)
	c.Select(10, 40)

	c.Begin(HandleStart, 12)
	c.Update(17)
	assert.Equal(t, 15.0, c.Range().Start)
	c.Update(14)
	assert.Equal(t, 12.0, c.Range().Start)
}

func TestLeaveEndsDrag(t *testing.T) {
	c := loaded(t)
	c.Begin(HandleStart, 0)
	require.True(t, c.Dragging())

	c.Leave()

	assert.False(t, c.Dragging())
	assert.False(t, c.Update(50), "updates after leave are ignored")
	assert.Equal(t, HandleNone, c.Drag().Handle)
}

func TestBeginIgnoredWhileDragging(t *testing.T) {
	c := loaded(t)
	require.True(t, c.Begin(HandleStart, 0))
	assert.False(t, c.Begin(HandleEnd, 90))
	assert.Equal(t, HandleStart, c.Drag().Handle)
}

func TestInputIgnoredBeforeLoad(t *testing.T) {
	c := NewController(DefaultMaxSpan, DefaultMinSpan)
	assert.False(t, c.Begin(HandleStart, 0))
	assert.False(t, c.Nudge(StepCoarse, 1, false))
	assert.False(t, c.TogglePlay())
	assert.False(t, c.Select(1, 2))
}

func TestNudge(t *testing.T) {
	c := loaded(t)
	c.Select(10, 40)

	assert.True(t, c.Nudge(StepCoarse, 1, false))
	assert.Equal(t, 11.0, c.Range().Start)

	c.Nudge(StepCoarse, -1, true)
	assert.Equal(t, 39.0, c.Range().End)

	c.Nudge(StepFine, 1, false)
	assert.InDelta(t, 11+1.0/30, c.Range().Start, 1e-9, "unknown fps falls back to 30")

	assert.False(t, c.Nudge(StepCoarse, 0, false))
}

func TestNudgeUsesSourceFrameRate(t *testing.T) {
	c := NewController(DefaultMaxSpan, DefaultMinSpan)
	c.Load(100, 25)
	c.Select(10, 20)
	c.Nudge(StepFine, -1, true)
	assert.InDelta(t, 20-0.04, c.Range().End, 1e-9)
}

func TestNudgeRepeatsClamp(t *testing.T) {
	c := loaded(t)
	c.Select(0, 5)
	for i := 0; i < 20; i++ {
		c.Nudge(StepCoarse, 1, false)
	}
	assert.Equal(t, 5-DefaultMinSpan, c.Range().Start)
	assert.Equal(t, 5.0, c.Range().End)
}

func TestHitTest(t *testing.T) {
	c := loaded(t)
	c.Select(20, 60)

	assert.Equal(t, HandleStart, c.HitTest(20))
	assert.Equal(t, HandleStart, c.HitTest(21))
	assert.Equal(t, HandleEnd, c.HitTest(60))
	assert.Equal(t, HandleFrame, c.HitTest(40))
	assert.Equal(t, HandleNone, c.HitTest(80))
	assert.Equal(t, HandleNone, c.HitTest(5))
}

func TestSetDuration(t *testing.T) {
	c := NewController(DefaultMaxSpan, DefaultMinSpan)
	c.Load(0, 0)
	require.Equal(t, 0.0, c.Range().End)

	assert.True(t, c.SetDuration(120), "late metadata initialises the range")
	assert.Equal(t, 90.0, c.Range().End)

	c.Select(50, 100)
	assert.True(t, c.SetDuration(80))
	assert.Equal(t, 50.0, c.Range().Start)
	assert.Equal(t, 80.0, c.Range().End)

	assert.False(t, c.SetDuration(80))
}

func TestHandleEvents(t *testing.T) {
	c := loaded(t)
	c.Select(20, 60)

	c.Handle(Event{Kind: PointerDown, X: 20})
	require.Equal(t, HandleStart, c.Drag().Handle)
	res := c.Handle(Event{Kind: PointerMove, X: 30})
	assert.True(t, res.RangeChanged)
	res = c.Handle(Event{Kind: PointerUp, X: 35})
	assert.True(t, res.RangeChanged)
	assert.False(t, c.Dragging())
	assert.Equal(t, 35.0, c.Range().Start)

	res = c.Handle(Event{Kind: KeyPress, Key: KeyRight, Shift: true})
	assert.True(t, res.RangeChanged)
	assert.Equal(t, 61.0, c.Range().End)

	res = c.Handle(Event{Kind: KeyPress, Key: KeyPlayPause})
	assert.True(t, res.PlayToggled)
	assert.True(t, res.Playing)
	res = c.Handle(Event{Kind: KeyPress, Key: KeyPlayPause})
	assert.False(t, res.Playing)

	res = c.Handle(Event{Kind: KeyPress, Key: "x"})
	assert.Equal(t, Result{}, res)
}

func TestMalformedSequencesStayValid(t *testing.T) {
	c := loaded(t)
	events := []Event{
		{Kind: PointerMove, X: 50},
		{Kind: PointerUp, X: 70},
		{Kind: PointerDown, X: 0},
		{Kind: PointerDown, X: 90},
		{Kind: PointerMove, X: -1000},
		{Kind: PointerMove, X: 1e6},
		{Kind: PointerLeave},
		{Kind: PointerMove, X: 3},
		{Kind: PointerDown, X: 45},
		{Kind: PointerMove, X: 1e6},
		{Kind: KeyPress, Key: KeyFineBack, Shift: true},
		{Kind: PointerUp, X: -1e6},
	}
	for i, ev := range events {
		c.Handle(ev)
		require.True(t, c.Range().Valid(), "event %d: %+v", i, c.Range())
	}
	assert.False(t, c.Dragging())
}
