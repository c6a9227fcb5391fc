package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/user/rangeclip/tui/components"
)

type keyMap struct {
	StartBack  key.Binding
	StartFwd   key.Binding
	EndBack    key.Binding
	EndFwd     key.Binding
	FineBack   key.Binding
	FineFwd    key.Binding
	FineEndBk  key.Binding
	FineEndFwd key.Binding
	Play       key.Binding
	Export     key.Binding
	SaveStill  key.Binding
	PrevThumb  key.Binding
	NextThumb  key.Binding
	Open       key.Binding
	Reset      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		StartBack:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "start -1s")),
		StartFwd:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "start +1s")),
		EndBack:    key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("⇧←/H", "end -1s")),
		EndFwd:     key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("⇧→/L", "end +1s")),
		FineBack:   key.NewBinding(key.WithKeys(","), key.WithHelp(",", "start -1 frame")),
		FineFwd:    key.NewBinding(key.WithKeys("."), key.WithHelp(".", "start +1 frame")),
		FineEndBk:  key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "end -1 frame")),
		FineEndFwd: key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "end +1 frame")),
		Play:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Export:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export range")),
		SaveStill:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save thumbnail")),
		PrevThumb:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous thumbnail")),
		NextThumb:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next thumbnail")),
		Open:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open source")),
		Reset:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset session")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp is the footer line.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.StartFwd, k.EndFwd, k.Play, k.Export, k.SaveStill, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	groups := k.groups()
	out := make([][]key.Binding, len(groups))
	for i, g := range groups {
		out[i] = g.Bindings
	}
	return out
}

func (k keyMap) groups() []components.HelpGroup {
	return []components.HelpGroup{
		{Title: "Selection", Bindings: []key.Binding{
			k.StartBack, k.StartFwd, k.EndBack, k.EndFwd,
			k.FineBack, k.FineFwd, k.FineEndBk, k.FineEndFwd,
		}},
		{Title: "Playback", Bindings: []key.Binding{k.Play}},
		{Title: "Output", Bindings: []key.Binding{k.Export, k.PrevThumb, k.NextThumb, k.SaveStill}},
		{Title: "Session", Bindings: []key.Binding{k.Open, k.Reset, k.Help, k.Quit}},
	}
}
