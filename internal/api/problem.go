package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// Kind classifies a failed remote call.
type Kind string

const (
	KindCannotConnect Kind = "cannot-connect"
	KindTimeout       Kind = "timeout"
	KindServer        Kind = "server"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not-found"
	KindRejected      Kind = "rejected"
	KindBadData       Kind = "bad-data"
	KindUnknown       Kind = "unknown"
)

// Temporary reports whether a retry of a call failing with this kind may succeed.
func (k Kind) Temporary() bool {
	switch k {
	case KindCannotConnect, KindTimeout, KindServer, KindUnknown:
		return true
	default:
		return false
	}
}

// Problem is the classified form of a failed call. It satisfies error so it
// can travel through ordinary error plumbing and be recovered with errors.As.
type Problem struct {
	Kind      Kind
	Temporary bool
	// Status is the HTTP status code, zero when no response was received.
	Status int
	// Err is the underlying cause, if any.
	Err error
}

// NewProblem builds a Problem with the temporary flag derived from kind.
func NewProblem(kind Kind, status int, err error) *Problem {
	return &Problem{Kind: kind, Temporary: kind.Temporary(), Status: status, Err: err}
}

func (p *Problem) Error() string {
	msg := string(p.Kind)
	if p.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, p.Status)
	}
	if p.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, p.Err)
	}
	return msg
}

func (p *Problem) Unwrap() error { return p.Err }

// Message returns a short human readable description for status lines.
func (p *Problem) Message() string {
	switch p.Kind {
	case KindCannotConnect:
		return "Cannot reach the server"
	case KindTimeout:
		return "The request timed out"
	case KindServer:
		return "The server had a problem"
	case KindForbidden:
		return "Access denied"
	case KindNotFound:
		return "Not found"
	case KindRejected:
		return "The request was rejected"
	case KindBadData:
		return "Received an unreadable response"
	default:
		return "Something went wrong"
	}
}

// ProblemFromStatus classifies an HTTP status code. It returns nil for 2xx.
func ProblemFromStatus(status int) *Problem {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return NewProblem(KindForbidden, status, nil)
	case status == http.StatusNotFound:
		return NewProblem(KindNotFound, status, nil)
	case status >= 500 && status < 600:
		return NewProblem(KindServer, status, nil)
	case status >= 400 && status < 500:
		return NewProblem(KindRejected, status, nil)
	default:
		return NewProblem(KindUnknown, status, nil)
	}
}

// ProblemFromError classifies a transport failure (no HTTP response).
func ProblemFromError(err error) *Problem {
	if err == nil {
		return nil
	}

	var p *Problem
	if errors.As(err, &p) {
		return p
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewProblem(KindTimeout, 0, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewProblem(KindTimeout, 0, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewProblem(KindCannotConnect, 0, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return NewProblem(KindCannotConnect, 0, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return NewProblem(KindCannotConnect, 0, err)
	}

	return NewProblem(KindUnknown, 0, err)
}
