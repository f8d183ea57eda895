// File: internal/failures/failures.go
// Description: The single failure type surfaced to callers of the analysis task,
// plus the sentinel kinds used to classify it.

package failures

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Every failure carries exactly one of these so callers can
// branch with errors.Is without parsing messages.
var (
	ErrClasspathIncompatibility = errors.New("classpath incompatibility")
	ErrResourceResolution       = errors.New("resource resolution failed")
	ErrWorkerInfrastructure     = errors.New("worker infrastructure failure")
	ErrFindingsPresent          = errors.New("findings present")
	ErrInterrupted              = errors.New("interrupted")
	ErrInvalidConfiguration     = errors.New("invalid configuration")
	ErrNoClasses                = errors.New("no classes configured for analysis")
)

// Failure is what a failed run looks like from the outside: a message meant for
// direct display, the kind it belongs to, and an optional underlying cause.
type Failure struct {
	Kind  error
	Msg   string
	Cause error
}

// New builds a failure of the given kind.
func New(kind error, msg string, cause error) *Failure {
	return &Failure{Kind: kind, Msg: msg, Cause: cause}
}

// Newf builds a failure of the given kind without a cause.
func Newf(kind error, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	msg := f.Msg
	if msg == "" && f.Kind != nil {
		msg = f.Kind.Error()
	}
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, f.Cause)
	}
	return msg
}

// Unwrap exposes both the kind and the cause, so errors.Is matches either.
func (f *Failure) Unwrap() []error {
	if f == nil {
		return nil
	}
	var errs []error
	if f.Kind != nil {
		errs = append(errs, f.Kind)
	}
	if f.Cause != nil {
		errs = append(errs, f.Cause)
	}
	return errs
}

// As converts any error into a *Failure. Errors that are not already failures
// are classified by the first sentinel they match; anything unknown is treated
// as an infrastructure failure.
func As(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	for _, kind := range []error{
		ErrClasspathIncompatibility,
		ErrResourceResolution,
		ErrInterrupted,
		ErrInvalidConfiguration,
		ErrNoClasses,
		ErrFindingsPresent,
		ErrWorkerInfrastructure,
	} {
		if errors.Is(err, kind) {
			return &Failure{Kind: kind, Msg: err.Error()}
		}
	}
	return &Failure{Kind: ErrWorkerInfrastructure, Msg: err.Error()}
}
