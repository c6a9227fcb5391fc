package mpv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/rangeclip/media"
)

const (
	// settlePoll is how often a pending seek is checked.
	settlePoll = 20 * time.Millisecond
	// settleTolerance is how far time-pos may sit from the target once mpv
	// reports the seek finished. Exact seeks land on the frame containing the
	// target, so this only absorbs frame quantisation.
	settleTolerance = 0.25
)

// Player is an mpv instance exposed as a media.Source.
type Player struct {
	client  *Client
	process *process
	tmpDir  string
	frames  atomic.Uint64

	mu     sync.Mutex
	info   media.Info
	closed bool
}

var _ media.Source = (*Player)(nil)

// NewPlayer wraps an already connected client. proc may be nil when the
// mpv process is owned elsewhere.
func NewPlayer(client *Client, proc *process, info media.Info) (*Player, error) {
	dir, err := os.MkdirTemp("", "rangeclip-frames-*")
	if err != nil {
		return nil, fmt.Errorf("mpv: frame dir: %w", err)
	}
	return &Player{client: client, process: proc, tmpDir: dir, info: info}, nil
}

// Info returns the source metadata, refreshing the duration which may keep
// changing for streams.
func (p *Player) Info() media.Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		if d, err := p.client.Float("duration"); err == nil && d > 0 {
			p.info.Duration = d
		}
	}
	return p.info
}

// Seek performs an exact absolute seek and waits until mpv reports it settled.
func (p *Player) Seek(ctx context.Context, t float64) error {
	if err := p.alive(); err != nil {
		return err
	}
	if _, err := p.client.Command("seek", t, "absolute+exact"); err != nil {
		return fmt.Errorf("mpv: seek to %.3f: %w", t, err)
	}

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		seeking, err := p.client.Bool("seeking")
		if err != nil && !errors.Is(err, ErrPropertyUnavailable) {
			return fmt.Errorf("mpv: seek state: %w", err)
		}
		if seeking {
			continue
		}
		pos, err := p.client.Float("time-pos")
		if err != nil {
			continue
		}
		if math.Abs(pos-t) <= settleTolerance {
			return nil
		}
	}
}

// Position returns time-pos.
func (p *Player) Position() (float64, error) {
	if err := p.alive(); err != nil {
		return 0, err
	}
	return p.client.Float("time-pos")
}

func (p *Player) Play() error {
	if err := p.alive(); err != nil {
		return err
	}
	return p.client.SetProperty("pause", false)
}

func (p *Player) Pause() error {
	if err := p.alive(); err != nil {
		return err
	}
	return p.client.SetProperty("pause", true)
}

func (p *Player) Muted() (bool, error) {
	if err := p.alive(); err != nil {
		return false, err
	}
	return p.client.Bool("mute")
}

func (p *Player) SetMuted(muted bool) error {
	if err := p.alive(); err != nil {
		return err
	}
	return p.client.SetProperty("mute", muted)
}

// Paused reports mpv's pause flag, used by the TUI status bar.
func (p *Player) Paused() (bool, error) {
	if err := p.alive(); err != nil {
		return false, err
	}
	return p.client.Bool("pause")
}

// Frame grabs the decoded frame at the current position. mpv writes the
// screenshot in video resolution without OSD or subtitles.
func (p *Player) Frame(ctx context.Context) (image.Image, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.tmpDir, fmt.Sprintf("frame-%06d.png", p.frames.Add(1)))
	defer os.Remove(path)

	if _, err := p.client.Command("screenshot-to-file", path, "video"); err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrNoFrame, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrNoFrame, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("mpv: decode screenshot: %w", err)
	}
	return img, nil
}

// Close quits mpv and removes temporary files. It is safe to call twice.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	_, _ = p.client.Command("quit")
	err := p.client.Close()
	if p.process != nil {
		p.process.stop()
	}
	os.RemoveAll(p.tmpDir)
	return err
}

func (p *Player) alive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return media.ErrClosed
	}
	return nil
}
