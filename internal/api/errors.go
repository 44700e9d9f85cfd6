package api

import "fmt"

// ErrorKind classifies why a fetch cycle failed.
type ErrorKind string

const (
	// KindTransport covers DNS, connect and TLS handshake failures.
	KindTransport ErrorKind = "transport"
	// KindTimeout means the hub did not answer within the request timeout.
	KindTimeout ErrorKind = "timeout"
	// KindStatus means the hub answered with a non-2xx status code.
	KindStatus ErrorKind = "status"
	// KindDecode means the response body was not a JSON object.
	KindDecode ErrorKind = "decode"
)

// FetchError is the single error type crossing the fetcher boundary. Every
// transport, timeout, HTTP-status and decode failure is wrapped into one so
// callers match on the category, not on net/http internals.
type FetchError struct {
	Kind   ErrorKind
	Status int // HTTP status code, only set for KindStatus
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("thermohub8 API error: status %d", e.Status)
	case KindTimeout:
		return fmt.Sprintf("thermohub8 API timeout: %v", e.Err)
	default:
		return fmt.Sprintf("thermohub8 API %s error: %v", e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
