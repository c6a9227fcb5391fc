package recorder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/media/mediatest"
	"github.com/user/rangeclip/selection"
)

const encodersStanza = `for a in "$@"; do
  if [ "$a" = "-encoders" ]; then echo ' V....D libx264 H.264'; exit 0; fi
done
`

func fakeFfmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func testRange() selection.Range {
	return selection.NewRange(100, selection.DefaultMaxSpan, selection.DefaultMinSpan).WithBounds(10, 40)
}

func drain(t *testing.T, rec capture.Recording) []byte {
	t.Helper()
	var out bytes.Buffer
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-rec.Chunks():
			if !ok {
				return out.Bytes()
			}
			out.Write(c)
		case <-timeout:
			t.Fatal("recording never closed its output")
		}
	}
}

func TestArgs(t *testing.T) {
	f := New("", nil)
	args := f.Args("/videos/match.mp4", testRange())

	assert.Equal(t, "-re", args[3])
	assert.Subset(t, args, []string{"-ss", "10.000", "-i", "/videos/match.mp4", "-t", "30.000", "-an", "libx264", "pipe:1"})
	assert.Contains(t, args, "frag_keyframe+empty_moov+default_base_moof")
	assert.Equal(t, "pipe:1", args[len(args)-1])
	assert.Equal(t, capture.FragmentedMP4, f.Container())
}

func TestStartStreamsUntilStop(t *testing.T) {
	bin := fakeFfmpeg(t, encodersStanza+"printf 'head'\nread -r _\nprintf 'tail'\n")
	f := New(bin, nil)

	rec, err := f.Start(context.Background(), mediatest.New(100), testRange())
	require.NoError(t, err)

	first := <-rec.Chunks()
	assert.Equal(t, "head", string(first))

	require.NoError(t, rec.Stop())
	require.NoError(t, rec.Stop())
	assert.Equal(t, "tail", string(drain(t, rec)))

	select {
	case err := <-rec.Errors():
		t.Fatalf("unexpected encoder error: %v", err)
	default:
	}
}

func TestStartReportsEncoderFailure(t *testing.T) {
	bin := fakeFfmpeg(t, encodersStanza+"echo 'test://source: invalid data' >&2\nexit 1\n")
	f := New(bin, nil)

	rec, err := f.Start(context.Background(), mediatest.New(100), testRange())
	require.NoError(t, err)
	assert.Empty(t, drain(t, rec))

	select {
	case err := <-rec.Errors():
		assert.Contains(t, err.Error(), "invalid data")
	case <-time.After(5 * time.Second):
		t.Fatal("no encoder error")
	}
}

func TestStartCancelledContextStops(t *testing.T) {
	bin := fakeFfmpeg(t, encodersStanza+"read -r _\nprintf 'flushed'\n")
	f := New(bin, nil)
	ctx, cancel := context.WithCancel(context.Background())

	rec, err := f.Start(ctx, mediatest.New(100), testRange())
	require.NoError(t, err)
	cancel()
	assert.Equal(t, "flushed", string(drain(t, rec)))
}

func TestCheckUnsupported(t *testing.T) {
	tests := []struct {
		name   string
		binary func(t *testing.T) string
	}{
		{"missing binary", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") }},
		{"no libx264", func(t *testing.T) string {
			return fakeFfmpeg(t, "echo ' A....D aac AAC'\n")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.binary(t), nil)
			_, err := f.Start(context.Background(), mediatest.New(100), testRange())
			assert.True(t, errors.Is(err, capture.ErrUnsupported), "got %v", err)
		})
	}
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{max: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	assert.Equal(t, "defg", string(b.Bytes()))
}
