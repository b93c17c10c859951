package osint

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// WHOISSource queries the IANA root WHOIS server directly over TCP port 43
// and follows the registrar-specific "refer:" redirect it returns, the
// classic WHOIS protocol dance. Always registered.
type WHOISSource struct {
	dialTimeout time.Duration
}

// NewWHOISSource returns a WHOIS source with the default per-dial timeout.
func NewWHOISSource() *WHOISSource {
	return &WHOISSource{dialTimeout: 8 * time.Second}
}

func (s *WHOISSource) Name() string                      { return "whois" }
func (s *WHOISSource) Category() auditstate.OSINTCategory { return auditstate.CategoryWHOIS }
func (s *WHOISSource) RequiresAPIKey() bool               { return false }
func (s *WHOISSource) RateLimitRPM() int                  { return 10 }
func (s *WHOISSource) RateLimitRPH() int                  { return 200 }
func (s *WHOISSource) Priority() int                      { return 1 }

const ianaWHOIS = "whois.iana.org:43"

func (s *WHOISSource) Query(ctx context.Context, queryType, queryValue string) (*auditstate.OSINTResult, error) {
	raw, err := s.lookup(ctx, ianaWHOIS, queryValue)
	if err != nil {
		return &auditstate.OSINTResult{
			Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
			Status: auditstate.OSINTError, ErrorMessage: err.Error(),
		}, nil
	}

	if referrer := extractField(raw, "refer"); referrer != "" {
		if referred, err := s.lookup(ctx, referrer+":43", queryValue); err == nil {
			raw = referred
		}
	}

	data := map[string]interface{}{
		"raw":           raw,
		"registrar":     extractField(raw, "registrar"),
		"creation_date": extractField(raw, "creation date"),
		"expiry_date":   extractField(raw, "registry expiry date"),
		"name_servers":  extractFieldAll(raw, "name server"),
	}

	return &auditstate.OSINTResult{
		Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
		Status: auditstate.OSINTSuccess, Data: data, ConfidenceScore: 0.8,
	}, nil
}

func (s *WHOISSource) lookup(ctx context.Context, server, query string) (string, error) {
	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return "", fmt.Errorf("osint: dial whois server %s: %w", server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := fmt.Fprintf(conn, "%s\r\n", query); err != nil {
		return "", fmt.Errorf("osint: send whois query: %w", err)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// extractField returns the value after the first "field:" (case-insensitive)
// line in raw WHOIS text.
func extractField(raw, field string) string {
	lowerField := strings.ToLower(field) + ":"
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), lowerField) {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	return ""
}

// extractFieldAll returns every value for a repeated field (e.g. multiple
// name server lines).
func extractFieldAll(raw, field string) []string {
	lowerField := strings.ToLower(field) + ":"
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), lowerField) {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				out = append(out, strings.TrimSpace(parts[1]))
			}
		}
	}
	return out
}
