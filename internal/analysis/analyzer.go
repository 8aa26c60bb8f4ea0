package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/clock"
	"github.com/false-systems/kulta/internal/observability/logging"
)

// revisionCanary is the label under which canary pods are identified in
// metric queries (spec.md §4.7, GLOSSARY "Revision").
const revisionCanary = "canary"

// Analyzer runs the Metric Analyzer contract of spec.md §4.7.
type Analyzer struct {
	Querier MetricsQuerier
	Clock   clock.Clock
	Log     *logrus.Entry
}

// NewAnalyzer builds an Analyzer. log may be nil, in which case a
// discarding logger is used.
func NewAnalyzer(q MetricsQuerier, c clock.Clock, log *logrus.Entry) *Analyzer {
	if log == nil {
		l := logrus.New()
		log = l.WithField("component", "metric-analyzer")
	}
	return &Analyzer{Querier: q, Clock: c, Log: log}
}

// Evaluate returns healthy=true unless a configured metric is unhealthy.
// It implements spec.md §4.7's short-circuit-on-first-unhealthy-metric
// logic and its warmup gate.
func (a *Analyzer) Evaluate(ctx context.Context, r *v1beta1.Rollout, analysis *v1beta1.AnalysisConfig) (bool, error) {
	if analysis == nil {
		return true, nil
	}

	if analysis.WarmupDuration != "" {
		warm, err := a.withinWarmup(r, analysis.WarmupDuration)
		if err != nil {
			a.Log.WithFields(logging.NewFields().Component("metric-analyzer").Operation("warmup").Error(err).ToLogrus()).
				Warn("could not determine step start time; treating as healthy")
			return true, nil
		}
		if warm {
			return true, nil
		}
	}

	for _, m := range analysis.Metrics {
		value, err := a.Querier.Evaluate(ctx, m.Name, r.Name, revisionCanary)
		if err != nil {
			return false, fmt.Errorf("evaluate metric %q: %w", m.Name, err)
		}
		// Strict inequality: a value exactly at threshold is unhealthy
		// (spec.md §4.7, §8 boundary behaviours).
		if !(value < m.Threshold) {
			a.Log.WithFields(logging.NewFields().
				Component("metric-analyzer").
				Resource("rollout", r.Name).
				ToLogrus()).
				WithField("metric", m.Name).
				WithField("value", value).
				WithField("threshold", m.Threshold).
				Warn("metric unhealthy")
			return false, nil
		}
	}

	return true, nil
}

// withinWarmup reports whether now is within warmupDuration of the step's
// start, per spec.md §4.7 step 2: status.stepStartTime if set, else the
// rollout's creation timestamp.
func (a *Analyzer) withinWarmup(r *v1beta1.Rollout, warmupDuration string) (bool, error) {
	dur, err := parseGrammarDuration(warmupDuration)
	if err != nil {
		return false, err
	}

	var start time.Time
	if r.Status.StepStartTime != nil {
		start = r.Status.StepStartTime.Time
	} else if !r.CreationTimestamp.IsZero() {
		start = r.CreationTimestamp.Time
	} else {
		return false, fmt.Errorf("neither stepStartTime nor creationTimestamp is set")
	}

	return a.Clock.Now().Sub(start) < dur, nil
}

// parseGrammarDuration parses the spec.md §4.1 duration grammar
// ([1-9][0-9]*[smh]) into a time.Duration. Callers are expected to have
// already validated the string at admission; this is a defensive re-parse.
func parseGrammarDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	unit := s[len(s)-1]
	var n int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid duration unit in %q", s)
	}
}
