// Package recorder encodes a playing range with ffmpeg.
//
// ffmpeg reads the same locator the player has open, starting at the range
// start and paced at native frame rate (-re), so its output advances in step
// with playback. Output is fragmented MP4 written to stdout and delivered in
// chunks as it is produced.
package recorder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/deps"
	"github.com/user/rangeclip/media"
	"github.com/user/rangeclip/selection"
)

const (
	DefaultPreset    = "veryfast"
	DefaultCRF       = 23
	DefaultChunkSize = 64 * 1024
	// DefaultKillAfter is how long ffmpeg gets to flush after being asked
	// to quit.
	DefaultKillAfter = 5 * time.Second

	encoder   = "libx264"
	stderrMax = 4096
)

// FFmpeg is a capture.Recorder backed by an ffmpeg subprocess.
type FFmpeg struct {
	Binary    string
	Preset    string
	CRF       int
	ChunkSize int
	KillAfter time.Duration
	Logger    *slog.Logger

	checkOnce sync.Once
	checkErr  error
	path      string
}

var _ capture.Recorder = (*FFmpeg)(nil)

// New returns an FFmpeg recorder using binary (ffmpeg from PATH when empty).
func New(binary string, logger *slog.Logger) *FFmpeg {
	return &FFmpeg{
		Binary:    binary,
		Preset:    DefaultPreset,
		CRF:       DefaultCRF,
		ChunkSize: DefaultChunkSize,
		KillAfter: DefaultKillAfter,
		Logger:    logger,
	}
}

func (f *FFmpeg) Container() capture.Container {
	return capture.FragmentedMP4
}

// Check resolves the binary and verifies it has libx264. The result is cached.
// Failures wrap capture.ErrUnsupported.
func (f *FFmpeg) Check(ctx context.Context) error {
	f.checkOnce.Do(func() {
		path, err := deps.Ffmpeg.Resolve(f.Binary)
		if err != nil {
			f.checkErr = fmt.Errorf("%w: %v", capture.ErrUnsupported, err)
			return
		}
		ok, err := deps.HasEncoder(ctx, path, encoder)
		if err != nil {
			f.checkErr = fmt.Errorf("%w: %v", capture.ErrUnsupported, err)
			return
		}
		if !ok {
			f.checkErr = fmt.Errorf("%w: ffmpeg has no %s encoder", capture.ErrUnsupported, encoder)
			return
		}
		f.path = path
	})
	return f.checkErr
}

// Args builds the ffmpeg command line for capturing r from locator.
func (f *FFmpeg) Args(locator string, r selection.Range) []string {
	preset := f.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	crf := f.CRF
	if crf <= 0 {
		crf = DefaultCRF
	}
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-re",
		"-ss", fmt.Sprintf("%.3f", r.Start),
		"-i", locator,
		"-t", fmt.Sprintf("%.3f", r.Span()),
		"-an",
		"-c:v", encoder,
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
		"-pix_fmt", "yuv420p",
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"-f", "mp4",
		"pipe:1",
	}
}

// Start launches ffmpeg for r. It returns once the process is running.
func (f *FFmpeg) Start(ctx context.Context, src media.Source, r selection.Range) (capture.Recording, error) {
	if err := f.Check(ctx); err != nil {
		return nil, err
	}
	locator := src.Info().Locator
	if locator == "" {
		return nil, fmt.Errorf("recorder: source has no locator")
	}

	cmd := exec.Command(f.path, f.Args(locator, r)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("recorder: stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recorder: stdout: %w", err)
	}
	stderr := &tailBuffer{max: stderrMax}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("recorder: start ffmpeg: %w", err)
	}

	rec := &recording{
		cmd:       cmd,
		stdin:     stdin,
		stderr:    stderr,
		chunks:    make(chan []byte, 16),
		errs:      make(chan error, 1),
		exited:    make(chan struct{}),
		killAfter: f.KillAfter,
		log:       f.logger(),
	}
	if rec.killAfter <= 0 {
		rec.killAfter = DefaultKillAfter
	}
	size := f.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	go rec.read(stdout, size)
	go func() {
		select {
		case <-ctx.Done():
			_ = rec.Stop()
		case <-rec.exited:
		}
	}()

	rec.log.Debug("ffmpeg started", "pid", cmd.Process.Pid, "start", r.Start, "span", r.Span())
	return rec, nil
}

func (f *FFmpeg) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

type recording struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stderr    *tailBuffer
	chunks    chan []byte
	errs      chan error
	exited    chan struct{}
	killAfter time.Duration
	log       *slog.Logger

	mu      sync.Mutex
	stopped bool
}

func (r *recording) Chunks() <-chan []byte { return r.chunks }
func (r *recording) Errors() <-chan error  { return r.errs }

// Stop sends ffmpeg's interactive quit key so it writes its trailing
// fragment, and kills the process if it has not exited after killAfter.
func (r *recording) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	_, err := r.stdin.Write([]byte("q"))
	_ = r.stdin.Close()

	go func() {
		select {
		case <-r.exited:
		case <-time.After(r.killAfter):
			r.log.Warn("ffmpeg did not exit, killing", "pid", r.cmd.Process.Pid)
			_ = r.cmd.Process.Kill()
		}
	}()

	select {
	case <-r.exited:
		// Already gone; the pipe error is expected.
		return nil
	default:
	}
	if err != nil {
		return fmt.Errorf("recorder: send quit: %w", err)
	}
	return nil
}

// read forwards stdout in chunks until EOF, then reaps the process.
func (r *recording) read(stdout io.Reader, size int) {
	defer close(r.chunks)
	for {
		buf := make([]byte, size)
		n, err := stdout.Read(buf)
		if n > 0 {
			r.chunks <- buf[:n]
		}
		if err != nil {
			break
		}
	}

	waitErr := r.cmd.Wait()
	close(r.exited)

	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if waitErr != nil && !stopped {
		r.errs <- fmt.Errorf("ffmpeg: %w: %s", waitErr, bytes.TrimSpace(r.stderr.Bytes()))
		return
	}
	if waitErr != nil {
		r.log.Debug("ffmpeg exited after stop", "error", waitErr)
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf...)
}
