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

// URLVoidSource queries the URLVoid reputation API for domain blacklist
// detections. Conditionally registered when URLVOID_API_KEY is present.
type URLVoidSource struct {
	apiKey string
	client *http.Client
}

// NewURLVoidSource returns a reputation source authenticated with apiKey.
func NewURLVoidSource(apiKey string) *URLVoidSource {
	return &URLVoidSource{apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *URLVoidSource) Name() string                      { return "urlvoid" }
func (s *URLVoidSource) Category() auditstate.OSINTCategory { return auditstate.CategoryReputation }
func (s *URLVoidSource) RequiresAPIKey() bool               { return true }
func (s *URLVoidSource) RateLimitRPM() int                  { return 5 }
func (s *URLVoidSource) RateLimitRPH() int                  { return 50 }
func (s *URLVoidSource) Priority() int                      { return 2 }

func (s *URLVoidSource) Query(ctx context.Context, queryType, queryValue string) (*auditstate.OSINTResult, error) {
	endpoint := "https://api.urlvoid.com/v1/pay-as-you-go/?" + url.Values{
		"key":    {s.apiKey},
		"host":   {queryValue},
		"format": {"json"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("osint: build urlvoid request: %w", err)
	}

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
			Status: auditstate.OSINTError, ErrorMessage: fmt.Sprintf("urlvoid: status %d", resp.StatusCode),
		}, nil
	}

	var body struct {
		Query struct {
			Data struct {
				Detections struct {
					Count   int `json:"count"`
					Engines [][]string `json:"engines"`
				} `json:"detections"`
				RiskScore struct {
					Result int `json:"result"`
				} `json:"risk_score"`
			} `json:"data"`
		} `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("osint: decode urlvoid response: %w", err)
	}

	data := map[string]interface{}{
		"detections": float64(body.Query.Data.Detections.Count),
		"risk_score": body.Query.Data.RiskScore.Result,
	}
	return &auditstate.OSINTResult{
		Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
		Status: auditstate.OSINTSuccess, Data: data, ConfidenceScore: 0.75,
	}, nil
}
