package captcha

import (
	"github.com/pkg/errors"
)

var (
	// ErrRendering covers canvas, font and JPEG encoding failures.
	ErrRendering = errors.New("captcha: rendering failure")

	// ErrSessionStore wraps any error returned by the Store.
	ErrSessionStore = errors.New("captcha: session store failure")

	// ErrEmptyScene is returned by Create when no scene is given.
	ErrEmptyScene = errors.New("captcha: empty scene")

	// ErrChallengeExhausted means every attempt produced a zero result.
	ErrChallengeExhausted = errors.New("captcha: no non-zero challenge generated")
)

// failure ties a cause to one of the error kinds above so callers can
// match with errors.Is while still seeing the underlying message.
type failure struct {
	kind  error
	cause error
}

func (f *failure) Error() string { return f.kind.Error() + ": " + f.cause.Error() }

func (f *failure) Is(target error) bool { return target == f.kind }

func (f *failure) Unwrap() error { return f.cause }

func renderingFailure(err error, msg string) error {
	return &failure{kind: ErrRendering, cause: errors.Wrap(err, msg)}
}

func storeFailure(err error, msg string) error {
	return &failure{kind: ErrSessionStore, cause: errors.Wrap(err, msg)}
}
