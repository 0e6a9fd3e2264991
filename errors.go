package impostor

import (
	"errors"
	"fmt"
)

// Kind classifies a build failure.
type Kind int

const (
	KindInput Kind = iota + 1
	KindGeometry
	KindLayout
	KindRender
	KindResource
)

var (
	ErrInput    = errors.New("input error")
	ErrGeometry = errors.New("geometry error")
	ErrLayout   = errors.New("layout error")
	ErrRender   = errors.New("render error")
	ErrResource = errors.New("resource error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInput:
		return ErrInput
	case KindGeometry:
		return ErrGeometry
	case KindLayout:
		return ErrLayout
	case KindRender:
		return ErrRender
	case KindResource:
		return ErrResource
	}
	return nil
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned by the build engine. Face is -1
// when the failure is not tied to one face.
type Error struct {
	Kind  Kind
	Stage Stage
	Face  int
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Msg
	if e.Face >= 0 {
		msg = fmt.Sprintf("%s: face %d: %s", e.Kind, e.Face, e.Msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newError(kind Kind, face int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Face: face, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, face int, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Face: face, Msg: fmt.Sprintf(format, args...), Err: err}
}

func inputErrorf(format string, args ...interface{}) *Error {
	return newError(KindInput, -1, format, args...)
}

func geometryErrorf(face int, format string, args ...interface{}) *Error {
	return newError(KindGeometry, face, format, args...)
}

func layoutErrorf(format string, args ...interface{}) *Error {
	return newError(KindLayout, -1, format, args...)
}

func renderErrorf(face int, format string, args ...interface{}) *Error {
	return newError(KindRender, face, format, args...)
}

// asError returns err as *Error, classifying foreign errors with kind.
func asError(err error, kind Kind, face int) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return wrapError(kind, face, err, "unexpected failure")
}
