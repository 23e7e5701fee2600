//go:build !linux && !darwin && !windows

package platform

import (
	"context"
	"time"
)

type Detector struct{}

func New() *Detector {
	return &Detector{}
}

func (d *Detector) ActiveApplication(context.Context) (string, error) {
	return "", ErrUnsupported
}

func (d *Detector) IdleTime(context.Context) (time.Duration, error) {
	return 0, ErrUnsupported
}

func (d *Detector) Close() error { return nil }
