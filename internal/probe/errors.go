package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"os"
	"strings"
)

var (
	// ErrTooManyRedirects is returned when a fetch exceeds the redirect limit
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrUnexpectedStatus is returned when robots.txt answers with a server error
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrNoCertificate is returned when the TLS handshake yields no certificate
	ErrNoCertificate = errors.New("no certificate presented")
	// ErrHandshake wraps TLS handshake failures reported by the inspector
	ErrHandshake = errors.New("tls handshake failed")
	// ErrNXDomain is returned when the resolver reports the name does not exist
	ErrNXDomain = errors.New("domain does not exist")
	// ErrRecordNotFound is returned when no registration record exists for a domain
	ErrRecordNotFound = errors.New("registration record not found")
	// ErrMalformedResponse is returned when a response body cannot be parsed
	ErrMalformedResponse = errors.New("malformed response")
	// ErrMalformedRecord is returned when a registration record cannot be parsed
	ErrMalformedRecord = errors.New("malformed registration record")
	// ErrNoCreationDate is returned when a registration record lacks a creation date
	ErrNoCreationDate = errors.New("registration record has no creation date")
	// ErrAbandoned is recorded for sub-probes still running when the scan deadline passes
	ErrAbandoned = errors.New("abandoned at scan deadline")
)

// Kind classifies why a sub-probe failed
type Kind string

const (
	// KindTimeout means the operation ran out of time
	KindTimeout Kind = "timeout"
	// KindConnection means the remote could not be reached or answered unusably
	KindConnection Kind = "connection"
	// KindTLS means the TLS handshake or certificate verification failed
	KindTLS Kind = "tls"
	// KindMalformed means the remote answered with data that could not be parsed
	KindMalformed Kind = "malformed"
	// KindNotFound means the queried record does not exist
	KindNotFound Kind = "not_found"
)

// Stage names the sub-probe that produced a section of the Result
type Stage string

const (
	StageRobots Stage = "robots"
	StageHTTP   Stage = "http"
	StageTLS    Stage = "tls"
	StageDNS    Stage = "dns"
	StageWhois  Stage = "whois"
)

// stages lists every sub-probe in reporting order
var stages = []Stage{StageRobots, StageHTTP, StageTLS, StageDNS, StageWhois}

// ProbeError records one failed sub-probe
type ProbeError struct {
	Stage   Stage  `json:"stage"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e ProbeError) Error() string {
	return string(e.Stage) + ": " + string(e.Kind) + ": " + e.Message
}

// newProbeError classifies err for the given stage
func newProbeError(stage Stage, err error) ProbeError {
	return ProbeError{Stage: stage, Kind: Classify(err), Message: err.Error()}
}

// Classify maps an error from any network layer onto a Kind
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAbandoned),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNXDomain), errors.Is(err, ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrMalformedRecord), errors.Is(err, ErrNoCreationDate):
		return KindMalformed
	case errors.Is(err, ErrHandshake), errors.Is(err, ErrNoCertificate), isTLSError(err):
		return KindTLS
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}

		if dnsErr.IsNotFound {
			return KindNotFound
		}

		return KindConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	// tlsx prints only the outermost message of a wrapped error and whois
	// flattens its errors to text, so every message in the chain is searched
	msgs := chainMessages(err)

	switch {
	case mentions(msgs, "timeout", "deadline exceeded"):
		return KindTimeout
	case mentions(msgs, "handshake", "tls:", "x509:", "no certificates"):
		return KindTLS
	}

	return KindConnection
}

// maxChainDepth bounds the walk over wrapped errors
const maxChainDepth = 32

// chainMessages returns the lower-cased message of err and of every error it
// wraps, following both single and joined wrapping
func chainMessages(err error) []string {
	var msgs []string

	var walk func(error, int)
	walk = func(e error, depth int) {
		if e == nil || depth > maxChainDepth {
			return
		}

		msgs = append(msgs, strings.ToLower(e.Error()))

		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner, depth+1)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap(), depth+1)
		}
	}

	walk(err, 0)

	return msgs
}

func mentions(msgs []string, needles ...string) bool {
	for _, m := range msgs {
		for _, n := range needles {
			if strings.Contains(m, n) {
				return true
			}
		}
	}

	return false
}

func isTLSError(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidErr  x509.CertificateInvalidError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
	)

	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr)
}
