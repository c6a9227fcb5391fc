// Package tui is the interactive range picker built on bubbletea.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/pkg/export"
	"github.com/user/rangeclip/selection"
	"github.com/user/rangeclip/session"
	"github.com/user/rangeclip/tui/components"
	"github.com/user/rangeclip/tui/forms"
	"github.com/user/rangeclip/tui/layout"
	"github.com/user/rangeclip/tui/styles"
)

const (
	// tickInterval is how often the playhead and duration are polled.
	tickInterval = 100 * time.Millisecond
	// statusDisplayDuration is how long a status message stays up.
	statusDisplayDuration = 4 * time.Second
	minTerminalWidth      = 60
	// timelineTop is the screen row of the timeline box (below the status bar).
	timelineTop = 1
	loadTimeout = 30 * time.Second
)

// Saver records where an export was written. db.Journal implements it.
type Saver interface {
	Saved(jobID, clipPath, stillPath string) error
}

// Options configures the TUI.
type Options struct {
	// OutputDir receives clips and stills; next to the source when empty.
	OutputDir string
	Saver     Saver
	Logger    *slog.Logger
}

type formKind int

const (
	formNone formKind = iota
	formOpen
	formReset
)

// Model is the bubbletea model. It is the single control flow that drives
// the session.
type Model struct {
	sess *session.Session
	opts Options
	log  *slog.Logger

	keys     keyMap
	help     help.Model
	progress progress.Model

	width    int
	height   int
	position float64
	selected int
	showHelp bool

	form      *huh.Form
	formKind  formKind
	locator   string
	resetOK   bool
	savedPath string

	status    string
	statusErr bool
	statusID  int
	quitting  bool
}

// NewModel returns a model driving sess. Without a loaded source it opens
// with the source prompt.
func NewModel(sess *session.Session, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Model{
		sess:     sess,
		opts:     opts,
		log:      opts.Logger.With("component", "tui"),
		keys:     defaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	if !sess.Loaded() {
		m.openForm(formOpen)
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), waitForEvent(m.sess.Events())}
	if m.form != nil {
		cmds = append(cmds, m.form.Init())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.sess.SetWidth(float64(components.TimelineBarWidth(msg.Width)))
		return m, nil

	case tickMsg:
		m.poll()
		return m, tickCmd()

	case sessionEventMsg:
		m.applyEvent(msg.ev)
		return m, tea.Batch(waitForEvent(m.sess.Events()), m.statusCmd())

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = true
	case key.Matches(msg, k.StartBack):
		m.input(selection.KeyLeft, false)
	case key.Matches(msg, k.StartFwd):
		m.input(selection.KeyRight, false)
	case key.Matches(msg, k.EndBack):
		m.input(selection.KeyLeft, true)
	case key.Matches(msg, k.EndFwd):
		m.input(selection.KeyRight, true)
	case key.Matches(msg, k.FineBack):
		m.input(selection.KeyFineBack, false)
	case key.Matches(msg, k.FineFwd):
		m.input(selection.KeyFineFwd, false)
	case key.Matches(msg, k.FineEndBk):
		m.input(selection.KeyFineBack, true)
	case key.Matches(msg, k.FineEndFwd):
		m.input(selection.KeyFineFwd, true)
	case key.Matches(msg, k.Play):
		m.input(selection.KeyPlayPause, false)
	case key.Matches(msg, k.PrevThumb):
		m.moveSelected(-1)
	case key.Matches(msg, k.NextThumb):
		m.moveSelected(1)
	case key.Matches(msg, k.Export):
		m.startExport()
		return m, m.statusCmd()
	case key.Matches(msg, k.SaveStill):
		m.saveStill()
		return m, m.statusCmd()
	case key.Matches(msg, k.Open):
		return m, m.openForm(formOpen)
	case key.Matches(msg, k.Reset):
		if m.sess.Loaded() {
			return m, m.openForm(formReset)
		}
	}
	return m, nil
}

func (m *Model) input(name string, shift bool) {
	m.sess.Input(selection.Event{Kind: selection.KeyPress, Key: name, Shift: shift})
}

// handleMouse maps terminal cells on the timeline bar to pointer events.
// Leaving the timeline box while dragging ends the drag.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	barWidth := components.TimelineBarWidth(m.width)
	x := float64(msg.X-components.TimelineBarX) + 0.5
	onBar := msg.Y == timelineTop+components.TimelineBarRow &&
		msg.X >= components.TimelineBarX && msg.X < components.TimelineBarX+barWidth
	inBox := msg.Y >= timelineTop && msg.Y < timelineTop+components.TimelineHeight &&
		msg.X >= 0 && msg.X < m.width
	dragging := m.sess.Drag().Handle != selection.HandleNone

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && onBar {
			m.sess.Input(selection.Event{Kind: selection.PointerDown, X: x})
		}
	case tea.MouseActionMotion:
		if !dragging {
			return
		}
		if !inBox {
			m.sess.Input(selection.Event{Kind: selection.PointerLeave})
			return
		}
		m.sess.Input(selection.Event{Kind: selection.PointerMove, X: x})
	case tea.MouseActionRelease:
		if dragging {
			m.sess.Input(selection.Event{Kind: selection.PointerUp, X: x})
		}
	}
}

func (m *Model) poll() {
	m.sess.Poll()
	src := m.sess.Source()
	if src == nil {
		m.position = 0
		return
	}
	if pos, err := src.Position(); err == nil {
		m.position = pos
	}
}

// applyEvent folds a session event in and saves a finished clip.
func (m *Model) applyEvent(ev session.Event) {
	if !m.sess.Apply(ev) {
		return
	}
	switch ev.Kind {
	case session.EventThumbnails:
		m.selected = min(m.selected, max(0, m.sess.Thumbnails().Len()-1))
	case session.EventCapture:
		snap := ev.Capture
		switch snap.State {
		case capture.StateDone:
			m.saveArtifact(snap)
		case capture.StateFailed:
			if snap.Err != nil && snap.Err.Retryable() {
				m.setStatus("Export failed: "+snap.Err.Error(), true)
			}
		}
	}
}

func (m *Model) startExport() {
	id, err := m.sess.Export()
	if err != nil {
		m.setStatus("Export: "+err.Error(), true)
		return
	}
	m.savedPath = ""
	m.log.Info("export requested", "job_id", id)
	m.setStatus("Exporting selection...", false)
}

func (m *Model) saveArtifact(snap capture.Snapshot) {
	art := snap.Artifact
	src := m.sess.Source()
	if art == nil || src == nil {
		return
	}
	locator := src.Info().Locator
	ext := filepath.Ext(art.Name)
	if ext == "" {
		ext = ".mp4"
	}
	clipPath := export.BuildClipPath(m.opts.OutputDir, locator, art.Range, ext)
	if err := export.Save(clipPath, art.Data); err != nil {
		m.log.Error("save clip", "error", err)
		m.setStatus("Save failed: "+err.Error(), true)
		return
	}

	stillPath := ""
	if still, err := m.sess.Still(m.selected); err == nil {
		stillPath = export.StillPath(clipPath)
		if err := export.Save(stillPath, still.Data); err != nil {
			m.log.Warn("save still", "error", err)
			stillPath = ""
		}
	}
	if m.opts.Saver != nil {
		if err := m.opts.Saver.Saved(snap.JobID, clipPath, stillPath); err != nil {
			m.log.Warn("journal save", "job_id", snap.JobID, "error", err)
		}
	}
	m.savedPath = clipPath
	m.setStatus("Saved "+clipPath, false)
}

func (m *Model) saveStill() {
	still, err := m.sess.Still(m.selected)
	if err != nil {
		m.setStatus("No thumbnail to save", true)
		return
	}
	path := export.BuildStillPath(m.opts.OutputDir, m.sess.Source().Info().Locator, still.Offset)
	if err := export.Save(path, still.Data); err != nil {
		m.setStatus("Save failed: "+err.Error(), true)
		return
	}
	m.setStatus("Saved "+path, false)
}

func (m *Model) moveSelected(delta int) {
	n := m.sess.Thumbnails().Len()
	if n == 0 {
		return
	}
	m.selected = (m.selected + delta + n) % n
}

func (m *Model) openForm(kind formKind) tea.Cmd {
	m.formKind = kind
	switch kind {
	case formOpen:
		m.locator = ""
		m.form = forms.NewOpenForm(&m.locator)
	case formReset:
		m.resetOK = false
		m.form = forms.NewConfirmResetForm(&m.resetOK)
	}
	return m.form.Init()
}

func (m *Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc":
			m.form = nil
			if !m.sess.Loaded() {
				m.setStatus("Press o to open a source", false)
			}
			return m, nil
		}
	}

	f, cmd := m.form.Update(msg)
	if form, ok := f.(*huh.Form); ok {
		m.form = form
	}
	switch m.form.State {
	case huh.StateCompleted:
		kind := m.formKind
		m.form = nil
		m.finishForm(kind)
		return m, m.statusCmd()
	case huh.StateAborted:
		m.form = nil
	}
	return m, cmd
}

func (m *Model) finishForm(kind formKind) {
	switch kind {
	case formOpen:
		locator := expandHome(strings.TrimSpace(m.locator))
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if err := m.sess.Load(ctx, locator); err != nil {
			m.log.Error("load failed", "error", err)
			m.setStatus("Load failed: "+err.Error(), true)
			return
		}
		m.selected = 0
		m.savedPath = ""
		m.setStatus("Loaded "+m.sess.Source().Info().Title, false)
	case formReset:
		if m.resetOK {
			m.sess.Reset()
			m.selected = 0
			m.savedPath = ""
			m.setStatus("Session reset", false)
		}
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
	m.statusID++
}

// statusCmd schedules clearing the current status message.
func (m *Model) statusCmd() tea.Cmd {
	if m.status == "" {
		return nil
	}
	return clearStatusAfter(m.statusID)
}

func (m *Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.showHelp {
		return components.HelpOverlay(m.keys.groups(), m.width, m.height)
	}
	if m.width > 0 && m.width < minTerminalWidth {
		return styles.Warning.Render(fmt.Sprintf("Terminal too narrow (%d cols)", m.width)) + "\n" +
			styles.SecondaryText.Render(fmt.Sprintf("Minimum width: %d columns", minTerminalWidth))
	}

	r := m.sess.Range()
	title := ""
	if src := m.sess.Source(); src != nil {
		title = src.Info().Title
	}

	sections := []string{
		components.StatusBar(components.StatusBarState{
			Title:     title,
			Playing:   m.sess.Playing(),
			Capturing: m.sess.Capturing(),
			Position:  m.position,
			Duration:  r.Duration,
			Start:     r.Start,
			End:       r.End,
		}, m.width),
		components.Timeline(components.TimelineState{
			Range:    r,
			Position: m.position,
			Dragging: m.sess.Drag().Handle,
		}, m.width),
	}

	if m.form != nil {
		sections = append(sections, "", m.form.View())
		return m.fit(lipgloss.JoinVertical(lipgloss.Left, sections...))
	}

	if m.sess.Loaded() {
		sections = append(sections, components.ThumbStrip(m.sess.Thumbnails(), m.selected, m.width))
	}
	if job, ok := m.sess.Job(); ok {
		sections = append(sections, components.ExportProgress(components.ExportProgressState{
			Job:       job,
			SavedPath: m.savedPath,
		}, m.progress, m.width))
	}

	statusLine := ""
	if m.status != "" {
		if m.statusErr {
			statusLine = styles.Warning.Render(" " + m.status)
		} else {
			statusLine = styles.Success.Render(" " + m.status)
		}
	}
	sections = append(sections, statusLine, m.help.View(m.keys))
	return m.fit(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// fit clips the screen to the terminal once its size is known.
func (m *Model) fit(screen string) string {
	if m.width <= 0 || m.height <= 0 {
		return screen
	}
	return layout.Container{Width: m.width, Height: m.height}.Render(screen)
}

// Run starts the TUI on sess and closes the session when it exits.
func Run(sess *session.Session, opts Options) error {
	defer sess.Close()
	p := tea.NewProgram(NewModel(sess, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
