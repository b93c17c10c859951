package osint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// SSLSource inspects the leaf certificate a host presents on port 443: its
// issuer, validity window, and subject alternative names. Always
// registered.
type SSLSource struct {
	dialTimeout time.Duration
}

// NewSSLSource returns an SSL inspection source with the default timeout.
func NewSSLSource() *SSLSource {
	return &SSLSource{dialTimeout: 8 * time.Second}
}

func (s *SSLSource) Name() string                      { return "ssl" }
func (s *SSLSource) Category() auditstate.OSINTCategory { return auditstate.CategorySSL }
func (s *SSLSource) RequiresAPIKey() bool               { return false }
func (s *SSLSource) RateLimitRPM() int                  { return 0 }
func (s *SSLSource) RateLimitRPH() int                  { return 0 }
func (s *SSLSource) Priority() int                      { return 1 }

func (s *SSLSource) Query(ctx context.Context, queryType, queryValue string) (*auditstate.OSINTResult, error) {
	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := tls.DialWithDialer(&dialer, "tcp", net.JoinHostPort(queryValue, "443"), &tls.Config{
		ServerName: queryValue,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return &auditstate.OSINTResult{
			Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
			Status: auditstate.OSINTError, ErrorMessage: err.Error(),
		}, nil
	}
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return &auditstate.OSINTResult{
			Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
			Status: auditstate.OSINTError, ErrorMessage: "osint: no peer certificates presented",
		}, nil
	}
	leaf := state.PeerCertificates[0]
	ageDays := int(time.Since(leaf.NotBefore).Hours() / 24)

	data := map[string]interface{}{
		"issuer":          leaf.Issuer.CommonName,
		"subject":         leaf.Subject.CommonName,
		"not_before":      leaf.NotBefore,
		"not_after":       leaf.NotAfter,
		"dns_names":       leaf.DNSNames,
		"age_days":        float64(ageDays),
		"is_expired":      time.Now().After(leaf.NotAfter),
		"tls_version":     fmt.Sprintf("%x", state.Version),
		"cipher_suite":    tls.CipherSuiteName(state.CipherSuite),
	}

	return &auditstate.OSINTResult{
		Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
		Status: auditstate.OSINTSuccess, Data: data, ConfidenceScore: 0.95,
	}, nil
}
