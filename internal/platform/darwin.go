//go:build darwin

package platform

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const frontmostScript = `tell application "System Events" to get name of first application process whose frontmost is true`

var hidIdleRE = regexp.MustCompile(`"HIDIdleTime"\s*=\s*(\d+)`)

// Detector uses osascript for the frontmost application and the IOKit HID
// registry for idle time.
type Detector struct{}

func New() *Detector {
	return &Detector{}
}

func (d *Detector) ActiveApplication(ctx context.Context) (string, error) {
	name, err := output(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return name, nil
}

func (d *Detector) IdleTime(ctx context.Context) (time.Duration, error) {
	out, err := output(ctx, "ioreg", "-c", "IOHIDSystem", "-d", "4")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return parseHIDIdle(out)
}

// parseHIDIdle extracts HIDIdleTime, reported in nanoseconds.
func parseHIDIdle(out string) (time.Duration, error) {
	m := hidIdleRE.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("HIDIdleTime not found in ioreg output")
	}
	ns, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing HIDIdleTime: %w", err)
	}
	return time.Duration(ns), nil
}

func (d *Detector) Close() error { return nil }
