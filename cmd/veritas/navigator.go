package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/evidence"
)

// httpNavigator is the bounded default implementation of
// orchestrator.Navigator wired by this binary when no headless-browser
// collaborator is supplied. Full navigation — JS execution, screenshot
// capture, form/IDOR probing, lazy-load scrolling — is out of scope: this
// type only fetches the page once over plain HTTP to populate network
// headers, a best-effort DOM metadata count, and an evidence-store
// snapshot of the raw response body.
type httpNavigator struct {
	client   *http.Client
	evidence *evidence.Store
	auditID  string
}

func newHTTPNavigator(store *evidence.Store, auditID string) *httpNavigator {
	return &httpNavigator{
		client:   &http.Client{Timeout: 15 * time.Second},
		evidence: store,
		auditID:  auditID,
	}
}

func (n *httpNavigator) Navigate(ctx context.Context, url string) (auditstate.ScoutResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return auditstate.ScoutResult{PageURL: url, ExitReason: auditstate.ExitNavigationError}, err
	}
	req.Header.Set("User-Agent", "veritas-audit/1.0 (+forensic scan)")

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return auditstate.ScoutResult{PageURL: url, ExitReason: auditstate.ExitTimeout}, err
		}
		return auditstate.ScoutResult{PageURL: url, ExitReason: auditstate.ExitNavigationError}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return auditstate.ScoutResult{PageURL: url, ExitReason: auditstate.ExitNavigationError}, err
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	result := auditstate.ScoutResult{
		PageURL:        url,
		NetworkHeaders: headers,
		DOMMetadata:    sniffDOM(string(body)),
		ExitReason:     auditstate.ExitSuccess,
	}

	if n.evidence != nil {
		if _, _, err := n.evidence.SaveScreenshot(n.auditID, "page_snapshot", body); err != nil {
			log.Warn().Err(err).Str("audit_id", n.auditID).Msg("navigator: failed to persist page snapshot to evidence store")
		}
	}

	return result, nil
}

// sniffDOM does a crude substring count over the raw HTML as a stand-in
// for real DOM extraction (out of scope): enough to give the security
// modules and trust signals non-zero structural input.
func sniffDOM(html string) auditstate.DOMMetadata {
	lower := strings.ToLower(html)
	return auditstate.DOMMetadata{
		Forms:         strings.Count(lower, "<form"),
		Scripts:       strings.Count(lower, "<script"),
		Links:         strings.Count(lower, "<a "),
		HasAdminPanel: strings.Contains(lower, "admin") && strings.Contains(lower, "login"),
	}
}

// noopVisionClient is the default orchestrator.VisionClient wired when no
// vision-language-model collaborator is supplied (out of scope): it
// degrades to an empty finding list rather than failing the node.
type noopVisionClient struct{}

func (noopVisionClient) Analyze(ctx context.Context, screenshots, labels []string) ([]auditstate.Finding, error) {
	return nil, nil
}
