package suggest

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned when picking while the suggestion list is closed
	ErrNotOpen = errors.New("suggestion list is not open")
	// ErrNotSelected is returned when removing an item that is not selected
	ErrNotSelected = errors.New("item is not selected")
)

// PanicError wraps a panic raised by a suggestion source
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("suggestion source panicked: %v", e.Value)
}
