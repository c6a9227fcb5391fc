package deps

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMissing(t *testing.T) {
	d := Dependency{Name: "rangeclip-no-such-binary", InstallURL: "https://example.com"}
	_, err := d.Resolve("")

	var de *DependencyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "rangeclip-no-such-binary", de.Name)
	assert.Contains(t, err.Error(), "https://example.com")
}

func TestResolveOverride(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	path, err := Mpv.Resolve("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)
}

func TestHasEncoder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	script := filepath.Join(t.TempDir(), "ffmpeg")
	body := "#!/bin/sh\n" +
		"echo 'Encoders:'\n" +
		"echo ' V..... = Video'\n" +
		"echo ' V....D libx264              libx264 H.264 / AVC'\n" +
		"echo ' A....D aac                  AAC'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0755))

	ok, err := HasEncoder(context.Background(), script, "libx264")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasEncoder(context.Background(), script, "libx265")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = HasEncoder(context.Background(), filepath.Join(t.TempDir(), "missing"), "libx264")
	assert.Error(t, err)
}

func TestAllListsMpvFirst(t *testing.T) {
	all := All()
	require.Len(t, all, 2)
	assert.Equal(t, "mpv", all[0].Name)
	assert.Equal(t, "ffmpeg", all[1].Name)
}
