package selection

import "math"

// Handle identifies what a pointer drag is moving.
type Handle int

const (
	HandleNone Handle = iota
	HandleStart
	HandleEnd
	HandleFrame
)

func (h Handle) String() string {
	switch h {
	case HandleStart:
		return "start"
	case HandleEnd:
		return "end"
	case HandleFrame:
		return "frame"
	default:
		return "none"
	}
}

// Step is a keyboard nudge granularity.
type Step int

const (
	// StepCoarse nudges by one second.
	StepCoarse Step = iota
	// StepFine nudges by one frame.
	StepFine
)

// CoarseStep is the size of a coarse nudge in seconds.
const CoarseStep = 1.0

// DefaultHitTolerance is how many pixels from a handle still grab it.
const DefaultHitTolerance = 1.0

// DragSession is the transient state between a pointer-down and its release.
type DragSession struct {
	Handle      Handle
	AnchorX     float64
	AnchorRange Range
}

// Controller translates pointer and keyboard input into Range mutations.
// It is not safe for concurrent use; feed it from one control flow.
type Controller struct {
	rng     Range
	drag    DragSession
	width   float64
	fps     float64
	loaded  bool
	playing bool
}

// NewController returns a controller with no source loaded.
func NewController(maxSpan, minSpan float64) *Controller {
	return &Controller{
		rng: NewRange(0, maxSpan, minSpan),
		fps: DefaultFrameRate,
	}
}

// Load resets the selection for a freshly loaded source.
// fps <= 0 means unknown.
func (c *Controller) Load(duration, fps float64) {
	c.rng = NewRange(duration, c.rng.MaxSpan, c.rng.MinSpan)
	c.fps = fps
	if !finite(fps) || fps <= 0 {
		c.fps = DefaultFrameRate
	}
	c.drag = DragSession{}
	c.loaded = true
	c.playing = false
}

// Unload forgets the source. Input is ignored until the next Load.
func (c *Controller) Unload() {
	c.rng = NewRange(0, c.rng.MaxSpan, c.rng.MinSpan)
	c.drag = DragSession{}
	c.loaded = false
	c.playing = false
}

// Loaded reports whether a source is loaded.
func (c *Controller) Loaded() bool {
	return c.loaded
}

// SetDuration applies a metadata update. A source whose duration was unknown
// gets a fresh initial selection once the duration arrives.
func (c *Controller) SetDuration(d float64) bool {
	if !finite(d) || d == c.rng.Duration {
		return false
	}
	before := c.rng
	if c.rng.Duration <= 0 {
		c.rng = NewRange(d, c.rng.MaxSpan, c.rng.MinSpan)
	} else {
		c.rng = c.rng.WithDuration(d)
	}
	if c.drag.Handle != HandleNone {
		c.drag.AnchorRange = c.drag.AnchorRange.WithDuration(c.rng.Duration)
	}
	return c.rng != before
}

// SetWidth sets the timeline width in pixels (terminal cells for the TUI).
func (c *Controller) SetWidth(px float64) {
	if finite(px) && px > 0 {
		c.width = px
	}
}

// Width returns the timeline width in pixels.
func (c *Controller) Width() float64 {
	return c.width
}

// FrameRate returns the frame rate used for fine nudges.
func (c *Controller) FrameRate() float64 {
	return c.fps
}

// Range returns the current selection.
func (c *Controller) Range() Range {
	return c.rng
}

// Drag returns the current drag session; Handle is HandleNone when idle.
func (c *Controller) Drag() DragSession {
	return c.drag
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool {
	return c.drag.Handle != HandleNone
}

// Playing reports the play/pause toggle.
func (c *Controller) Playing() bool {
	return c.playing
}

// SetPlaying overrides the toggle, used when the source reports its own state.
func (c *Controller) SetPlaying(playing bool) {
	c.playing = playing
}

// Select replaces both bounds through the clamp path.
func (c *Controller) Select(start, end float64) bool {
	if !c.loaded {
		return false
	}
	before := c.rng
	c.rng = c.rng.WithBounds(start, end)
	return c.rng != before
}

// HitTest returns the handle at pointer x. Handles win over the frame
// within DefaultHitTolerance pixels; the nearer handle wins when both are in reach.
func (c *Controller) HitTest(x float64) Handle {
	if !c.loaded || c.width <= 0 || c.rng.Duration <= 0 {
		return HandleNone
	}
	sx := SecondsToPixels(c.rng.Start, c.width, c.rng.Duration)
	ex := SecondsToPixels(c.rng.End, c.width, c.rng.Duration)
	ds := math.Abs(x - sx)
	de := math.Abs(x - ex)
	switch {
	case ds <= DefaultHitTolerance && ds <= de:
		return HandleStart
	case de <= DefaultHitTolerance:
		return HandleEnd
	case x > sx && x < ex:
		return HandleFrame
	}
	return HandleNone
}

// Begin starts a drag of handle h at pointer x. It is ignored while another
// drag is active or when h is HandleNone.
func (c *Controller) Begin(h Handle, x float64) bool {
	if !c.loaded || h == HandleNone || c.drag.Handle != HandleNone || !finite(x) {
		return false
	}
	c.drag = DragSession{Handle: h, AnchorX: x, AnchorRange: c.rng}
	return true
}

// Update moves the dragged handle to pointer x. It reports whether the range changed.
func (c *Controller) Update(x float64) bool {
	if c.drag.Handle == HandleNone || !finite(x) {
		return false
	}
	delta := PixelsToSeconds(x-c.drag.AnchorX, c.width, c.rng.Duration)
	anchor := c.drag.AnchorRange
	before := c.rng
	switch c.drag.Handle {
	case HandleStart:
		c.rng = c.rng.WithStart(anchor.Start + delta)
	case HandleEnd:
		c.rng = c.rng.WithEnd(anchor.End + delta)
	case HandleFrame:
		c.rng = anchor.WithDuration(c.rng.Duration).Move(delta)
	}
	return c.rng != before
}

// End finishes the drag.
func (c *Controller) End() {
	c.drag = DragSession{}
}

// Leave handles the pointer leaving the tracking surface; the drag ends
// where it was.
func (c *Controller) Leave() {
	c.End()
}

// Nudge moves Start (or End with modifier) by one step in direction dir (sign only).
func (c *Controller) Nudge(step Step, dir int, modifier bool) bool {
	if !c.loaded || dir == 0 {
		return false
	}
	size := CoarseStep
	if step == StepFine {
		size = 1 / c.fps
	}
	if dir < 0 {
		size = -size
	}
	before := c.rng
	if modifier {
		c.rng = c.rng.WithEnd(c.rng.End + size)
	} else {
		c.rng = c.rng.WithStart(c.rng.Start + size)
	}
	return c.rng != before
}

// TogglePlay flips the play/pause flag and returns the new value.
func (c *Controller) TogglePlay() bool {
	if !c.loaded {
		return c.playing
	}
	c.playing = !c.playing
	return c.playing
}

// PixelsToSeconds maps a pointer delta on a timeline widthPx wide onto a
// source of duration seconds.
func PixelsToSeconds(pixelDelta, widthPx, duration float64) float64 {
	if widthPx <= 0 || !finite(pixelDelta) || !finite(widthPx) || !finite(duration) {
		return 0
	}
	return pixelDelta * duration / widthPx
}

// SecondsToPixels is the inverse of PixelsToSeconds.
func SecondsToPixels(seconds, widthPx, duration float64) float64 {
	if duration <= 0 || !finite(seconds) || !finite(widthPx) {
		return 0
	}
	return seconds * widthPx / duration
}
