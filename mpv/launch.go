package mpv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/user/rangeclip/deps"
	"github.com/user/rangeclip/media"
)

const (
	defaultStartTimeout    = 5 * time.Second
	defaultMetadataTimeout = 10 * time.Second
	stopTimeout            = 3 * time.Second
)

// ErrExited is returned when mpv quits before the source finished loading.
var ErrExited = errors.New("mpv exited")

// process is a running mpv.
type process struct {
	cmd    *exec.Cmd
	socket string
	exited chan struct{}
	err    error
}

func startProcess(binary, socket string, args []string) (*process, error) {
	_ = os.Remove(socket)
	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &process{cmd: cmd, socket: socket, exited: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

// stop waits for mpv to exit after a quit command, killing it if it lingers.
func (p *process) stop() {
	select {
	case <-p.exited:
	case <-time.After(stopTimeout):
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		<-p.exited
	}
	_ = os.Remove(p.socket)
}

// Loader launches one mpv per source. It implements media.Loader.
type Loader struct {
	// Binary overrides the mpv executable.
	Binary string
	// Socket is the IPC socket path; DefaultSocketPath when empty.
	Socket string
	// Args are extra mpv flags, e.g. --vo=null for headless use.
	Args []string
	// StartTimeout bounds waiting for the IPC socket.
	StartTimeout time.Duration
	// MetadataTimeout bounds waiting for the duration to become known.
	MetadataTimeout time.Duration
	Logger          *slog.Logger
}

var _ media.Loader = (*Loader)(nil)

// Load starts mpv paused on locator and waits for its metadata.
// Every failure is a *media.LoadError.
func (l *Loader) Load(ctx context.Context, locator string) (media.Source, error) {
	fail := func(err error) (media.Source, error) {
		return nil, &media.LoadError{Locator: locator, Err: err}
	}

	binary, err := deps.Mpv.Resolve(l.Binary)
	if err != nil {
		return fail(err)
	}
	if !isURL(locator) {
		abs, err := filepath.Abs(locator)
		if err != nil {
			return fail(fmt.Errorf("resolve path: %w", err))
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fail(err)
		}
		if info.IsDir() {
			return fail(fmt.Errorf("path is a directory, not a video file"))
		}
		locator = abs
	}

	socket := l.Socket
	if socket == "" {
		socket = DefaultSocketPath
	}
	args := append([]string{
		"--input-ipc-server=" + socket,
		"--pause",
		"--keep-open=always",
		"--hr-seek=yes",
		"--really-quiet",
	}, l.Args...)
	args = append(args, locator)

	proc, err := startProcess(binary, socket, args)
	if err != nil {
		return fail(fmt.Errorf("start mpv: %w", err))
	}
	logger := l.logger()
	logger.Debug("mpv started", "pid", proc.cmd.Process.Pid, "socket", socket)

	client := NewClient(socket)
	dialCtx, cancel := context.WithTimeout(ctx, orDefault(l.StartTimeout, defaultStartTimeout))
	err = client.Dial(dialCtx)
	cancel()
	if err != nil {
		_ = proc.cmd.Process.Kill()
		proc.stop()
		return fail(err)
	}

	info, err := l.waitMetadata(ctx, client, proc, locator)
	if err != nil {
		client.Close()
		_ = proc.cmd.Process.Kill()
		proc.stop()
		return fail(err)
	}

	player, err := NewPlayer(client, proc, info)
	if err != nil {
		client.Close()
		proc.stop()
		return fail(err)
	}
	logger.Info("source loaded", "title", info.Title, "duration", info.Duration,
		"width", info.Width, "height", info.Height, "fps", info.FrameRate)
	return player, nil
}

// waitMetadata polls until mpv knows the duration. A source that is still
// without one at the timeout is returned with Duration 0; the session picks
// the duration up once it arrives.
func (l *Loader) waitMetadata(ctx context.Context, c *Client, proc *process, locator string) (media.Info, error) {
	info := media.Info{Locator: locator, Title: filepath.Base(locator)}

	ctx, cancel := context.WithTimeout(ctx, orDefault(l.MetadataTimeout, defaultMetadataTimeout))
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if d, err := c.Float("duration"); err == nil && d > 0 {
			info.Duration = d
			break
		}
		select {
		case <-proc.exited:
			return info, ErrExited
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return info, ctx.Err()
			}
			l.logger().Warn("duration unknown after timeout", "locator", locator)
			return info, nil
		case <-ticker.C:
		}
	}

	if w, err := c.Float("width"); err == nil {
		info.Width = int(w)
	}
	if h, err := c.Float("height"); err == nil {
		info.Height = int(h)
	}
	if fps, err := c.Float("container-fps"); err == nil {
		info.FrameRate = fps
	}
	if title, err := c.String("media-title"); err == nil && title != "" {
		info.Title = title
	}
	return info, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func isURL(locator string) bool {
	u, err := url.Parse(locator)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
