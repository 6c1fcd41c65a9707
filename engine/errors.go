package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can branch on failure class
// without string matching.
type Kind int

const (
	KindOther Kind = iota
	KindNetwork
	KindSource
	KindRateLimited
	KindParse
	KindJSON
	KindNotFound
	KindIO
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindSource:
		return "source"
	case KindRateLimited:
		return "rate_limited"
	case KindParse:
		return "parse"
	case KindJSON:
		return "json"
	case KindNotFound:
		return "not_found"
	case KindIO:
		return "io"
	case KindImage:
		return "image"
	default:
		return "other"
	}
}

// Error is the single error type produced by the engine and sources.
// Source names the originating source when known. Status carries the
// HTTP status for source errors and RetryAfter the server supplied
// backoff in seconds for rate limits, zero when the server sent none.
type Error struct {
	Kind       Kind
	Source     string
	Status     int
	RetryAfter int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNetwork:
		return fmt.Sprintf("network error: %v", e.Err)
	case KindSource:
		if e.Status != 0 {
			return fmt.Sprintf("source error [%s]: HTTP %d", e.Source, e.Status)
		}
		return fmt.Sprintf("source error [%s]: %s", e.Source, e.Message)
	case KindRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("rate limited [%s]: retry after %ds", e.Source, e.RetryAfter)
		}
		return fmt.Sprintf("rate limited [%s]", e.Source)
	case KindParse:
		return "parse error: " + e.Message
	case KindJSON:
		return fmt.Sprintf("json error: %v", e.Err)
	case KindNotFound:
		return "not found: " + e.Message
	case KindIO:
		return fmt.Sprintf("io error: %v", e.Err)
	case KindImage:
		return "image error: " + e.Message
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind, so sentinel style checks like
// errors.Is(err, &Error{Kind: KindNotFound}) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf reports the Kind of err, or KindOther for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }

func WrapNetwork(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

func Sourcef(source, format string, args ...any) *Error {
	return &Error{Kind: KindSource, Source: source, Message: fmt.Sprintf(format, args...)}
}

func SourceStatus(source string, status int) *Error {
	return &Error{Kind: KindSource, Source: source, Status: status}
}

func RateLimitedError(source string, retryAfter int) *Error {
	return &Error{Kind: KindRateLimited, Source: source, RetryAfter: retryAfter}
}

func Parsef(format string, args ...any) *Error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf(format, args...)}
}

func WrapJSON(err error) *Error {
	return &Error{Kind: KindJSON, Err: err}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func WrapIO(err error) *Error {
	return &Error{Kind: KindIO, Err: err}
}

func Imagef(format string, args ...any) *Error {
	return &Error{Kind: KindImage, Message: fmt.Sprintf(format, args...)}
}

func Otherf(format string, args ...any) *Error {
	return &Error{Kind: KindOther, Message: fmt.Sprintf(format, args...)}
}
