package session

import (
	"errors"
	"fmt"
)

// Mode is the delivery mode of a tutoring session. It is a closed set:
// pricing and slot-consumption rules switch exhaustively on it, so adding
// a mode is a compile-visible change everywhere it matters.
type Mode string

const (
	ModeOnline   Mode = "online"
	ModeInPerson Mode = "in-person"
)

var ErrUnknownMode = errors.New("unknown session mode")

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOnline:
		return ModeOnline, nil
	case ModeInPerson:
		return ModeInPerson, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) Valid() bool {
	return m == ModeOnline || m == ModeInPerson
}

func (m Mode) String() string {
	return string(m)
}
