package pile

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the errors returned by a Client.
type Kind int

const (
	// KindAlreadySet means PutData found the key already written.
	KindAlreadySet Kind = iota + 1

	// KindNotFound means the requested key or reference name does not exist.
	KindNotFound

	// KindRedacted means the requested data was deleted by RedactData.
	// Error.Reason holds the logged reason.
	KindRedacted

	// KindBackend means the Store itself failed.
	// Error.Err holds the Store's error,
	// possibly wrapped with the phase of the operation that failed.
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindAlreadySet:
		return "already set"
	case KindNotFound:
		return "not found"
	case KindRedacted:
		return "redacted"
	case KindBackend:
		return "backend"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the type of every error a Client returns.
// Callers switch on Kind
// (or use KindOf).
type Error struct {
	Kind Kind

	// Key is the data key or reference name the operation was about.
	// It is empty for operations on the redaction log.
	Key string

	// Reason is set for KindRedacted.
	Reason string

	// Err is set for KindBackend.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAlreadySet:
		return e.Key + " was already set"
	case KindNotFound:
		return e.Key + " was not set"
	case KindRedacted:
		return e.Key + " was redacted: " + e.Reason
	}
	if e.Err == nil {
		return "backend error"
	}
	return e.Err.Error()
}

// Unwrap returns the Store error for KindBackend, nil otherwise.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain,
// or zero if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func alreadySet(key string) error {
	return &Error{Kind: KindAlreadySet, Key: key}
}

func notFound(key string) error {
	return &Error{Kind: KindNotFound, Key: key}
}

func redacted(r Redaction) error {
	return &Error{Kind: KindRedacted, Key: r.Key, Reason: r.Reason}
}

// backend wraps a Store error.
// If msg is non-empty it is prepended to the Store error's message.
func backend(key string, err error, msg string) error {
	if msg != "" {
		err = errors.Wrap(err, msg)
	}
	return &Error{Kind: KindBackend, Key: key, Err: err}
}
