// Package export names and writes finished artifacts.
package export

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/user/rangeclip/pkg/timeutil"
	"github.com/user/rangeclip/selection"
)

// unsafeChars matches characters not safe for filenames: / \ : * ? < > | " and spaces
var unsafeChars = regexp.MustCompile(`[/\\:*?<>|"\s]`)

// sanitize replaces unsafe filename characters with underscores.
func sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

// BaseName derives a file stem from a source locator: the file name without
// extension for paths, the last URL path segment (or the host) for URLs.
func BaseName(locator string) string {
	var name string
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" && u.Host != "" {
		name = path.Base(u.Path)
		if name == "/" || name == "." {
			name = u.Host
		} else {
			name = strings.TrimSuffix(name, path.Ext(name))
		}
	} else if locator != "" {
		name = filepath.Base(locator)
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	name = sanitize(name)
	if name == "" || name == "." {
		return "clip"
	}
	return name
}

// BuildClipPath returns the output path for a clip of r.
// Format: {dir}/{source}-{HHMMSS}-{HHMMSS}{ext}. An empty outputDir puts local
// sources' clips next to the source and URL sources' in the working directory.
func BuildClipPath(outputDir, locator string, r selection.Range, ext string) string {
	dir := outputDir
	if dir == "" {
		dir = "."
		if u, err := url.Parse(locator); err != nil || u.Scheme == "" || u.Host == "" {
			dir = filepath.Dir(locator)
		}
	}
	filename := fmt.Sprintf("%s-%s-%s%s", BaseName(locator), timeutil.Compact(r.Start), timeutil.Compact(r.End), ext)
	return filepath.Join(dir, filename)
}

// ArtifactName is the download name of a clip of r: clip-{HHMMSS}-{HHMMSS}{ext}.
func ArtifactName(r selection.Range, ext string) string {
	return fmt.Sprintf("clip-%s-%s%s", timeutil.Compact(r.Start), timeutil.Compact(r.End), ext)
}

// StillPath returns the PNG path paired with a clip path.
func StillPath(clipPath string) string {
	return strings.TrimSuffix(clipPath, filepath.Ext(clipPath)) + ".png"
}

// BuildStillPath returns the path for a single frame saved at offset.
// Format: {dir}/{source}-still-{HHMMSS}.png, placed like BuildClipPath.
func BuildStillPath(outputDir, locator string, offset float64) string {
	dir := filepath.Dir(BuildClipPath(outputDir, locator, selection.Range{}, ""))
	return filepath.Join(dir, fmt.Sprintf("%s-still-%s.png", BaseName(locator), timeutil.Compact(offset)))
}

// ThumbPath returns the path of the i-th (1-based) JPEG thumbnail for a source.
func ThumbPath(outputDir, locator, kind string, i int) string {
	dir := outputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s-%02d.jpg", BaseName(locator), kind, i))
}

// Save writes data to path, creating parent directories. The file appears
// complete or not at all.
func Save(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".rangeclip-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
