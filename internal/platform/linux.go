//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	shellDest      = "org.gnome.Shell"
	windowsExtPath = "/org/gnome/Shell/Extensions/WindowsExt"
	focusPIDMethod = "org.gnome.Shell.Extensions.WindowsExt.FocusPID"

	idleDest   = "org.gnome.Mutter.IdleMonitor"
	idlePath   = "/org/gnome/Mutter/IdleMonitor/Core"
	idleMethod = "org.gnome.Mutter.IdleMonitor.GetIdletime"
)

// Detector asks GNOME Shell over the session bus first (required under
// Wayland) and falls back to xdotool and xprintidle on X11.
type Detector struct {
	procRoot string

	mu      sync.Mutex
	conn    *dbus.Conn
	connErr error
}

func New() *Detector {
	return &Detector{procRoot: "/proc"}
}

func (d *Detector) bus() (*dbus.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil && d.connErr == nil {
		d.conn, d.connErr = dbus.ConnectSessionBus()
	}
	return d.conn, d.connErr
}

func (d *Detector) ActiveApplication(ctx context.Context) (string, error) {
	pid, busErr := d.gnomeFocusPID(ctx)
	if busErr != nil {
		var xErr error
		pid, xErr = d.xdotoolPID(ctx)
		if xErr != nil {
			return "", fmt.Errorf("%w: %w", ErrUnsupported, errors.Join(busErr, xErr))
		}
	}
	if pid == 0 {
		return "", nil
	}
	return d.processName(pid)
}

func (d *Detector) gnomeFocusPID(ctx context.Context) (int, error) {
	conn, err := d.bus()
	if err != nil {
		return 0, fmt.Errorf("session bus: %w", err)
	}
	var reply string
	call := conn.Object(shellDest, windowsExtPath).CallWithContext(ctx, focusPIDMethod, 0)
	if err := call.Store(&reply); err != nil {
		return 0, fmt.Errorf("gnome focus pid: %w", err)
	}
	return parsePID(reply)
}

func (d *Detector) xdotoolPID(ctx context.Context) (int, error) {
	out, err := output(ctx, "xdotool", "getactivewindow", "getwindowpid")
	if err != nil {
		return 0, err
	}
	return parsePID(out)
}

// processName reads the kernel's command name for pid.
func (d *Detector) processName(pid int) (string, error) {
	data, err := os.ReadFile(d.procRoot + "/" + strconv.Itoa(pid) + "/comm")
	if errors.Is(err, os.ErrNotExist) {
		// The window's process exited between the two lookups.
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading process name: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (d *Detector) IdleTime(ctx context.Context) (time.Duration, error) {
	idle, busErr := d.mutterIdle(ctx)
	if busErr == nil {
		return idle, nil
	}
	out, err := output(ctx, "xprintidle")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnsupported, errors.Join(busErr, err))
	}
	return parseMillis(out)
}

func (d *Detector) mutterIdle(ctx context.Context) (time.Duration, error) {
	conn, err := d.bus()
	if err != nil {
		return 0, fmt.Errorf("session bus: %w", err)
	}
	var ms uint64
	call := conn.Object(idleDest, idlePath).CallWithContext(ctx, idleMethod, 0)
	if err := call.Store(&ms); err != nil {
		return 0, fmt.Errorf("mutter idle monitor: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Close releases the session bus connection.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
