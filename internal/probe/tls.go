package probe

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/projectdiscovery/tlsx/pkg/tlsx"
	"github.com/projectdiscovery/tlsx/pkg/tlsx/clients"
)

// TLSXInspector inspects certificates with tlsx. It reports bad certificates
// (expired, self-signed, mismatched, untrusted) instead of failing on them.
type TLSXInspector struct {
	timeout time.Duration
}

// NewTLSXInspector creates an inspector whose handshakes give up after timeout
func NewTLSXInspector(timeout time.Duration) *TLSXInspector {
	if timeout <= 0 {
		timeout = defaultTLSTimeout
	}

	return &TLSXInspector{timeout: timeout}
}

// Inspect connects to host:port and describes the served certificate
func (i *TLSXInspector) Inspect(ctx context.Context, host, port string) (*CertInfo, error) {
	service, err := tlsx.New(&clients.Options{
		Timeout:    int(math.Ceil(i.timeout.Seconds())),
		Expired:    true,
		SelfSigned: true,
		MisMatched: true,
		Revoked:    true,
		Untrusted:  true,
		MinVersion: "tls10",
		MaxVersion: "tls13",
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tlsx: %w", err)
	}

	type outcome struct {
		resp *clients.Response
		err  error
	}

	done := make(chan outcome, 1)

	go func() {
		resp, err := service.Connect(host, "", port)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, connectError(host, port, out.err)
		}

		return certInfoFromResponse(host, out.resp)
	}
}

// connectError marks failures of the TLS exchange itself with ErrHandshake.
// Dial failures such as a refused connection keep their own kind.
func connectError(host, port string, err error) error {
	if Classify(err) == KindTLS {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	return fmt.Errorf("connecting to %s:%s: %w", host, port, err)
}

func certInfoFromResponse(host string, resp *clients.Response) (*CertInfo, error) {
	if resp == nil || resp.CertificateResponse == nil {
		return nil, ErrNoCertificate
	}

	cert := resp.CertificateResponse

	return &CertInfo{
		Host:             host,
		SubjectCN:        cert.SubjectCN,
		SANs:             cert.SubjectAN,
		Issuer:           cert.IssuerDN,
		NotBefore:        cert.NotBefore,
		NotAfter:         cert.NotAfter,
		Expired:          cert.Expired,
		SelfSigned:       cert.SelfSigned,
		HostnameMismatch: cert.MisMatched,
		Untrusted:        cert.Untrusted,
		Revoked:          cert.Revoked,
		Version:          resp.Version,
		Cipher:           resp.Cipher,
	}, nil
}
