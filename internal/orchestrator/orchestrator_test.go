package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/progress"
	"github.com/veritas-audit/veritas/internal/security"
	"github.com/veritas-audit/veritas/internal/strategy"
)

type fakeNavigator struct {
	calls int
}

func (f *fakeNavigator) Navigate(ctx context.Context, url string) (auditstate.ScoutResult, error) {
	f.calls++
	return auditstate.ScoutResult{
		PageURL:        url,
		DOMMetadata:    auditstate.DOMMetadata{Forms: 1, Scripts: 5},
		NetworkHeaders: map[string]string{"content-type": "text/html"},
		ExitReason:     auditstate.ExitSuccess,
	}, nil
}

type fakeVisionClient struct{}

func (fakeVisionClient) Analyze(ctx context.Context, screenshots, labels []string) ([]auditstate.Finding, error) {
	return nil, nil
}

func TestOrchestrator_FullRun_QuickScan(t *testing.T) {
	nav := &fakeNavigator{}
	bus := progress.NewInProcessBus(100)
	defer bus.Close()

	scout := NewScoutNode(nav, bus)
	secNode := NewSecurityNode(security.NewRunner(security.NewDefaultRegistry()), bus)
	visionNode := NewVisionNode(fakeVisionClient{}, bus)
	graphNode := NewGraphNode(nil, bus)
	judgeNode := NewJudgeNode(strategy.NewDefaultRegistry(), DefaultSiteClassifier{}, bus)

	orch := New(scout, secNode, visionNode, graphNode, judgeNode, bus)

	state := auditstate.New("https://example.com", auditstate.TierQuickScan, auditstate.VerdictModeSimple, nil)
	err := orch.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, auditstate.StatusCompleted, state.GetStatus())
	assert.Equal(t, 1, nav.calls, "quick_scan budget allows exactly one scout iteration")
	require.NotNil(t, state.JudgeDecision)
	assert.GreaterOrEqual(t, state.JudgeDecision.TrustScoreResult.FinalScore, 0)
}

func TestOrchestrator_Cancellation(t *testing.T) {
	nav := &fakeNavigator{}
	bus := progress.NewInProcessBus(100)
	defer bus.Close()

	scout := NewScoutNode(nav, bus)
	secNode := NewSecurityNode(security.NewRunner(security.NewDefaultRegistry()), bus)
	visionNode := NewVisionNode(fakeVisionClient{}, bus)
	graphNode := NewGraphNode(nil, bus)
	judgeNode := NewJudgeNode(strategy.NewDefaultRegistry(), DefaultSiteClassifier{}, bus)

	orch := New(scout, secNode, visionNode, graphNode, judgeNode, bus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := auditstate.New("https://example.com", auditstate.TierStandardAudit, auditstate.VerdictModeSimple, nil)
	_ = orch.Run(ctx, state)
	assert.Equal(t, auditstate.StatusError, state.GetStatus())
}

func TestOrchestrator_DarknetSiteScoresLow(t *testing.T) {
	nav := &fakeNavigator{}
	bus := progress.NewInProcessBus(100)
	defer bus.Close()

	scout := NewScoutNode(nav, bus)
	secNode := NewSecurityNode(security.NewRunner(security.NewDefaultRegistry()), bus)
	visionNode := NewVisionNode(fakeVisionClient{}, bus)
	graphNode := NewGraphNode(nil, bus)
	judgeNode := NewJudgeNode(strategy.NewDefaultRegistry(), DefaultSiteClassifier{}, bus)

	orch := New(scout, secNode, visionNode, graphNode, judgeNode, bus)

	state := auditstate.New("http://exampleonionaddress.onion", auditstate.TierQuickScan, auditstate.VerdictModeSimple, nil)
	err := orch.Run(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, state.JudgeDecision)
	assert.Equal(t, auditstate.SiteDarknetSuspicious, state.SiteType)
	assert.Less(t, state.JudgeDecision.TrustScoreResult.FinalScore, 60)
}
