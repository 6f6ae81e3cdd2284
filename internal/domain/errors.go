package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
)

// DurabilityWarning reports that a local mutation was applied but the store did not
// confirm it. It is handed back next to a successful result, never as the call's error.
type DurabilityWarning struct {
	Op       string
	OrderIDs []string
	Err      error
}

func (w *DurabilityWarning) Error() string {
	return fmt.Sprintf("%s may not have been saved (orders %s): %v", w.Op, strings.Join(w.OrderIDs, ","), w.Err)
}

func (w *DurabilityWarning) Unwrap() error { return w.Err }

// Add records one more failed write under the same warning.
func (w *DurabilityWarning) Add(id string, err error) {
	w.OrderIDs = append(w.OrderIDs, id)
	w.Err = errors.Join(w.Err, err)
}
