package diagnosis

import (
	"errors"
	"fmt"
)

var (
	ErrUnreadable     = errors.New("unreadable image")
	ErrDomainRejected = errors.New("not a valid domain image")
)

// ErrorKind separates "fix your input" outcomes from "try again later" ones.
type ErrorKind string

const (
	KindDecode         ErrorKind = "decode_error"
	KindDomainRejected ErrorKind = "domain_rejected"
	KindShapeMismatch  ErrorKind = "shape_mismatch"
	KindInference      ErrorKind = "model_inference_error"
	KindInvalidRequest ErrorKind = "invalid_request"
)

// Error is the single terminal failure of a pipeline run.
type Error struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserFacing reports whether the failure is caused by the uploaded image.
func (e *Error) UserFacing() bool {
	return e.Kind == KindDecode || e.Kind == KindDomainRejected
}

func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

func fail(stage Stage, kind ErrorKind, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}
