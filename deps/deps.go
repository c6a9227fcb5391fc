// Package deps locates the external programs rangeclip drives.
package deps

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const (
	MpvInstallURL    = "https://mpv.io/installation/"
	FfmpegInstallURL = "https://ffmpeg.org/download.html"
)

// Dependency is an external binary.
type Dependency struct {
	Name       string
	InstallURL string
	// Purpose is shown by the doctor command.
	Purpose string
}

var (
	Mpv    = Dependency{Name: "mpv", InstallURL: MpvInstallURL, Purpose: "playback, seeking and frame grabs"}
	Ffmpeg = Dependency{Name: "ffmpeg", InstallURL: FfmpegInstallURL, Purpose: "clip encoding"}
)

// DependencyError contains information about a missing dependency
type DependencyError struct {
	Name       string
	InstallURL string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s not found. Install from: %s", e.Name, e.InstallURL)
}

// Resolve finds binary (or d.Name when binary is empty) in PATH and returns its path.
func (d Dependency) Resolve(binary string) (string, error) {
	if binary == "" {
		binary = d.Name
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", &DependencyError{Name: binary, InstallURL: d.InstallURL}
	}
	return path, nil
}

// All lists every dependency in doctor order.
func All() []Dependency {
	return []Dependency{Mpv, Ffmpeg}
}

// HasEncoder reports whether the ffmpeg at binary lists encoder name in
// `ffmpeg -encoders`.
func HasEncoder(ctx context.Context, binary, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, binary, "-hide_banner", "-encoders")
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("list encoders: %w", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == name {
			return true, nil
		}
	}
	return false, nil
}
