package selection

// EventKind classifies UI input.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	PointerLeave
	KeyPress
)

// Key names understood by Handle.
const (
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyFineBack  = ","
	KeyFineFwd   = "."
	KeyPlayPause = " "
)

// Event is one input event from the UI. X is the pointer position in timeline
// pixels; Shift is the nudge modifier that retargets keys from Start to End.
type Event struct {
	Kind  EventKind
	X     float64
	Key   string
	Shift bool
}

// Result reports what an event changed.
type Result struct {
	RangeChanged bool
	PlayToggled  bool
	Playing      bool
}

// Handle dispatches ev. A pointer-down picks its handle with HitTest.
func (c *Controller) Handle(ev Event) Result {
	var res Result
	switch ev.Kind {
	case PointerDown:
		c.Begin(c.HitTest(ev.X), ev.X)
	case PointerMove:
		res.RangeChanged = c.Update(ev.X)
	case PointerUp:
		res.RangeChanged = c.Update(ev.X)
		c.End()
	case PointerLeave:
		c.Leave()
	case KeyPress:
		switch ev.Key {
		case KeyLeft:
			res.RangeChanged = c.Nudge(StepCoarse, -1, ev.Shift)
		case KeyRight:
			res.RangeChanged = c.Nudge(StepCoarse, 1, ev.Shift)
		case KeyFineBack:
			res.RangeChanged = c.Nudge(StepFine, -1, ev.Shift)
		case KeyFineFwd:
			res.RangeChanged = c.Nudge(StepFine, 1, ev.Shift)
		case KeyPlayPause:
			if c.loaded {
				c.TogglePlay()
				res.PlayToggled = true
			}
		}
	}
	res.Playing = c.playing
	return res
}
