package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/rangeclip/selection"
)

func TestBaseName(t *testing.T) {
	tests := []struct {
		locator, want string
	}{
		{"/videos/match day.mp4", "match_day"},
		{"clip.mkv", "clip"},
		{"https://cdn.example.com/media/final.webm?x=1", "final"},
		{"https://example.com/", "example.com"},
		{"", "clip"},
	}
	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseName(tt.locator))
		})
	}
}

func TestArtifactName(t *testing.T) {
	r := selection.NewRange(100, selection.DefaultMaxSpan, selection.DefaultMinSpan).WithBounds(10, 40)
	assert.Equal(t, "clip-000010-000040.mp4", ArtifactName(r, ".mp4"))
}

func TestBuildStillPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/out", "game-still-000205.png"), BuildStillPath("/out", "/videos/game.mp4", 125.9))
	assert.Equal(t, filepath.Join("/videos", "game-still-000000.png"), BuildStillPath("", "/videos/game.mp4", 0))
}

func TestBuildClipPath(t *testing.T) {
	r := selection.NewRange(7200, selection.DefaultMaxSpan, selection.DefaultMinSpan).WithBounds(3723.4, 3753.9)

	assert.Equal(t, filepath.Join("/out", "game-010203-010233.mp4"),
		BuildClipPath("/out", "/videos/game.mp4", r, ".mp4"))
	assert.Equal(t, filepath.Join("/videos", "game-010203-010233.mp4"),
		BuildClipPath("", "/videos/game.mp4", r, ".mp4"), "defaults to the source directory")
	assert.Equal(t, filepath.Join(".", "stream-010203-010233.mp4"),
		BuildClipPath("", "https://example.com/stream.m3u8", r, ".mp4"))
}

func TestStillPath(t *testing.T) {
	assert.Equal(t, "/out/a-000010-000040.png", StillPath("/out/a-000010-000040.mp4"))
}

func TestThumbPath(t *testing.T) {
	assert.Equal(t, filepath.Join("thumbs", "game-overview-03.jpg"), ThumbPath("thumbs", "/v/game.mp4", "overview", 3))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "clip.mp4")

	require.NoError(t, Save(path, []byte("data")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	require.NoError(t, Save(path, []byte("again")))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "again", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
