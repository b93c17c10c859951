package osint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// AbuseIPDBSource queries the AbuseIPDB reputation API. Conditionally
// registered when ABUSEIPDB_API_KEY is present.
type AbuseIPDBSource struct {
	apiKey string
	client *http.Client
}

// NewAbuseIPDBSource returns a threat-intel source authenticated with
// apiKey.
func NewAbuseIPDBSource(apiKey string) *AbuseIPDBSource {
	return &AbuseIPDBSource{apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *AbuseIPDBSource) Name() string                      { return "abuseipdb" }
func (s *AbuseIPDBSource) Category() auditstate.OSINTCategory { return auditstate.CategoryThreatIntel }
func (s *AbuseIPDBSource) RequiresAPIKey() bool               { return true }
func (s *AbuseIPDBSource) RateLimitRPM() int                  { return 2 }
func (s *AbuseIPDBSource) RateLimitRPH() int                  { return 1000 }
func (s *AbuseIPDBSource) Priority() int                      { return 1 }

func (s *AbuseIPDBSource) Query(ctx context.Context, queryType, queryValue string) (*auditstate.OSINTResult, error) {
	endpoint := "https://api.abuseipdb.com/api/v2/check?" + url.Values{
		"ipAddress":    {queryValue},
		"maxAgeInDays": {"90"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("osint: build abuseipdb request: %w", err)
	}
	req.Header.Set("Key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &auditstate.OSINTResult{
			Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
			Status: auditstate.OSINTTimeout, ErrorMessage: err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &auditstate.OSINTResult{
			Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
			Status: auditstate.OSINTRateLimited,
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return &auditstate.OSINTResult{
			Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
			Status: auditstate.OSINTError, ErrorMessage: fmt.Sprintf("abuseipdb: status %d", resp.StatusCode),
		}, nil
	}

	var body struct {
		Data struct {
			AbuseConfidenceScore int `json:"abuseConfidenceScore"`
			TotalReports         int `json:"totalReports"`
			IsWhitelisted        bool `json:"isWhitelisted"`
			CountryCode          string `json:"countryCode"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("osint: decode abuseipdb response: %w", err)
	}

	data := map[string]interface{}{
		"abuse_confidence": float64(body.Data.AbuseConfidenceScore),
		"reports":          float64(body.Data.TotalReports),
		"is_whitelisted":         body.Data.IsWhitelisted,
		"country_code":           body.Data.CountryCode,
	}
	return &auditstate.OSINTResult{
		Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
		Status: auditstate.OSINTSuccess, Data: data, ConfidenceScore: 0.85,
	}, nil
}
