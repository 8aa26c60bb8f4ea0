package advisor

import (
	"strings"
	"testing"

	"github.com/false-systems/kulta/api/v1beta1"
)

func TestRenderPrompt_IncludesKeyFields(t *testing.T) {
	step := int32(2)
	weight := int32(40)
	reqCtx := RequestContext{
		RolloutName:    "checkout",
		Namespace:      "prod",
		Strategy:       v1beta1.StrategyCanary,
		CurrentStep:    &step,
		CurrentWeight:  &weight,
		MetricsHealthy: true,
		Phase:          v1beta1.PhaseProgressing,
	}
	out, err := renderPrompt(reqCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"checkout", "prod", "Progressing", "2", "40", "true"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected prompt to contain %q, got:\n%s", want, out)
		}
	}
}

func TestParseRecommendation_DetectsAction(t *testing.T) {
	cases := map[string]Action{
		"Action: Rollback. Confidence: 0.9. Reason: error rate spiked":       ActionRollback,
		"Action: Pause, the canary looks borderline":                        ActionPause,
		"Action: Continue, everything looks healthy":                        ActionContinue,
		"no clear keyword here":                                             ActionContinue,
	}
	for text, want := range cases {
		got := parseRecommendation(text).Action
		if got != want {
			t.Errorf("parseRecommendation(%q).Action = %v, want %v", text, got, want)
		}
	}
}
