// Package item implements the populator's per-helper unit of work: the item
// state machine, the ordered item vector, the preload window, and the
// authorization watermark. Nothing in this package performs I/O or
// synchronization on its own — it is the plain-data model that
// internal/helperserver drives under its single mutex and three condition
// variables.
package item

import (
	"fmt"

	"github.com/gitkit/parafs/internal/convert"
)

// State is a position in the item state machine. Transitions are monotonic:
// a later state's numeric value is always greater than an earlier one,
// though Writing may be skipped on a load error.
type State int

const (
	New State = iota
	Queued
	Loading
	Loaded
	Writing
	Done
)

func (s State) String() string {
	switch s {
	case New:
		return "New"
	case Queued:
		return "Queued"
	case Loading:
		return "Loading"
	case Loaded:
		return "Loaded"
	case Writing:
		return "Writing"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrorClass classifies why an item did not complete successfully.
type ErrorClass int

const (
	Ok ErrorClass = iota
	NoResult
	InvalidItem
	Load
	Open
	Write
	Lstat
)

func (c ErrorClass) String() string {
	switch c {
	case Ok:
		return "Ok"
	case NoResult:
		return "NoResult"
	case InvalidItem:
		return "InvalidItem"
	case Load:
		return "Load"
	case Open:
		return "Open"
	case Write:
		return "Write"
	case Lstat:
		return "Lstat"
	default:
		return fmt.Sprintf("ErrorClass(%d)", int(c))
	}
}

// StatResult is the subset of stat(2) fields the foreground needs back.
type StatResult struct {
	Size int64
	Mode uint32
}

// Item is the populator's unit of work. Fields are written only by
// the thread that currently "owns" the item's phase (server thread for
// append, preload thread for Loading/Loaded, writer thread for
// Writing/Done), always under the owning server's mutex.
type Item struct {
	PCNr     int
	HelperNr int
	OID      string
	Mode     uint32
	Path     string
	Attrs    convert.Attrs

	ErrClass ErrorClass
	state    State

	Errno   int
	Content []byte // owned only while Loaded; freed once written
	Stat    StatResult

	// LoadFailed and LoadErrno carry a preload-phase error from the preload
	// thread to the writer thread that claims this item; the writer skips
	// the write step and finishes the item with ErrClass Load directly.
	LoadFailed bool
	LoadErrno  int
}

// CurrentState returns the item's place in the state machine.
func (it *Item) CurrentState() State { return it.state }

// Transition moves the item to next, rejecting any move that would not
// strictly advance the state machine.
func (it *Item) Transition(next State) error {
	if next <= it.state {
		return fmt.Errorf("item %d: non-monotonic transition %s -> %s", it.HelperNr, it.state, next)
	}
	it.state = next
	return nil
}

// Finish marks the item Done, recording its final error class/errno and,
// for successful writes, the observed stat result. Finish may be called
// directly from Loaded (load error, write skipped) or from Writing
// (write attempted), both of which strictly precede Done.
func (it *Item) Finish(class ErrorClass, errno int, stat StatResult) error {
	if err := it.Transition(Done); err != nil {
		return err
	}
	it.ErrClass = class
	it.Errno = errno
	it.Stat = stat
	it.Content = nil
	return nil
}

// IsDone reports whether the item has reached the terminal state.
func (it *Item) IsDone() bool { return it.state == Done }
