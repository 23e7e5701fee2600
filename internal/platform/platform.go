// Package platform reads the focused application and the input idle time
// from the desktop session. Each OS has its own Detector.
package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupported is returned when no detection method works on this system.
var ErrUnsupported = errors.New("platform detection unsupported")

// commandTimeout bounds helper processes so a hung tool cannot stall the
// sampler's cadence.
const commandTimeout = 2 * time.Second

// output runs name with args and returns its trimmed stdout.
func output(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// parsePID accepts a bare or quoted decimal pid, as printed by xdotool or
// returned by the GNOME window extension. Empty input means no window.
func parsePID(s string) (int, error) {
	s = strings.Trim(strings.TrimSpace(s), `'"`)
	if s == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return pid, nil
}

// parseMillis parses a millisecond count such as xprintidle prints.
func parseMillis(s string) (time.Duration, error) {
	ms, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid idle time %q: %w", s, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// exeName turns an executable path into an application name: the base name
// without extension.
func exeName(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
