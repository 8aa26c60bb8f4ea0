package advisor

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// promptTemplate renders RequestContext into the compact textual prompt
// sent to either AI backend. Both the anthropic and bedrock clients share
// this rendering so a human operator sees the same reasoning context
// regardless of provider.
var promptTemplate = prompts.NewPromptTemplate(
	"You are assisting a progressive-delivery controller. Given the rollout "+
		"state below, recommend one of Continue, Pause, or Rollback with a "+
		"confidence between 0 and 1 and a one-sentence reason.\n\n"+
		"rollout: {{.rollout}}\n"+
		"namespace: {{.namespace}}\n"+
		"strategy: {{.strategy}}\n"+
		"phase: {{.phase}}\n"+
		"step: {{.step}}\n"+
		"weight: {{.weight}}\n"+
		"metricsHealthy: {{.metricsHealthy}}\n"+
		"recentHistory: {{.history}}\n",
	[]string{"rollout", "namespace", "strategy", "phase", "step", "weight", "metricsHealthy", "history"},
)

func renderPrompt(reqCtx RequestContext) (string, error) {
	step := "none"
	if reqCtx.CurrentStep != nil {
		step = fmt.Sprintf("%d", *reqCtx.CurrentStep)
	}
	weight := "none"
	if reqCtx.CurrentWeight != nil {
		weight = fmt.Sprintf("%d", *reqCtx.CurrentWeight)
	}

	var history []string
	for _, d := range reqCtx.History {
		history = append(history, fmt.Sprintf("%s:%s", d.Phase, d.Reason))
	}

	return promptTemplate.Format(map[string]any{
		"rollout":        reqCtx.RolloutName,
		"namespace":      reqCtx.Namespace,
		"strategy":       string(reqCtx.Strategy),
		"phase":          string(reqCtx.Phase),
		"step":           step,
		"weight":         weight,
		"metricsHealthy": reqCtx.MetricsHealthy,
		"history":        strings.Join(history, "; "),
	})
}

// parseRecommendation builds a Recommendation from a free-form model
// response by keyword search: the first of "rollback", "pause", "continue"
// found (case-insensitive, in that priority) sets the Action, and anything
// else degrades to Continue rather than failing the reconcile. Reasoning is
// the whole trimmed response. Confidence is always 0.5; no confidence value
// is read from the text.
func parseRecommendation(text string) Recommendation {
	rec := Recommendation{Action: ActionContinue, Confidence: 0.5, Reasoning: strings.TrimSpace(text)}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "rollback"):
		rec.Action = ActionRollback
	case strings.Contains(lower, "pause"):
		rec.Action = ActionPause
	case strings.Contains(lower, "continue"):
		rec.Action = ActionContinue
	}

	return rec
}
