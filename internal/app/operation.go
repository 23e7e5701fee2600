package app

import (
	"strings"
	"time"
)

// Operation is the CLI command a TrackerApp was opened for. It is logged
// when the app opens and again, with its outcome, on Close.
type Operation struct {
	Name       string
	Parameters string
	Started    time.Time
	Status     string // "success" or "error"
	Err        error
}

// NewOperation starts an operation at now.
func NewOperation(name string, now time.Time, params ...string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: strings.Join(params, " "),
		Started:    now,
		Status:     "success",
	}
}

// Fail records err as the operation's outcome. Only the first error sticks.
func (op *Operation) Fail(err error) {
	if err == nil || op.Err != nil {
		return
	}
	op.Status = "error"
	op.Err = err
}

// Failed returns true if any step of the operation reported an error.
func (op *Operation) Failed() bool {
	return op.Err != nil
}
