package advisor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/false-systems/kulta/api/v1beta1"
)

// Resolver implements spec.md §4.9's per-reconcile resolution rule.
type Resolver struct {
	cache       *Cache
	log         *logrus.Entry
	tokenSource oauth2.TokenSource // optional bearer-token source for HTTP advisors
}

func NewResolver(log *logrus.Entry, tokenSource oauth2.TokenSource) *Resolver {
	return &Resolver{cache: NewCache(log), log: log, tokenSource: tokenSource}
}

// Resolve returns the Advisor to consult for this reconcile. testAdvisor is
// whatever advisor a test harness injected; a non-nil, non-no-op value
// always wins regardless of configured level.
func (r *Resolver) Resolve(ctx context.Context, cfg *v1beta1.AdvisorConfig, testAdvisor Advisor) Advisor {
	if testAdvisor != nil && !testAdvisor.IsNoop() {
		return testAdvisor
	}

	if cfg == nil || cfg.Level == v1beta1.AdvisorLevelOff || cfg.Level == v1beta1.AdvisorLevelContext {
		return NoopAdvisor{}
	}

	// Planned and Driven behave identically to Advised in this version
	// (spec.md §4.9: "reserve semantics for future work").
	switch cfg.Level {
	case v1beta1.AdvisorLevelAdvised, v1beta1.AdvisorLevelPlanned, v1beta1.AdvisorLevelDriven:
		if cfg.Endpoint == "" {
			r.log.WithField("level", cfg.Level).Warn("advisor level demands an endpoint but none is configured; using no-op")
			return NoopAdvisor{}
		}
		timeout := timeoutFor(cfg)
		return r.cache.GetOrBuild(cfg.Endpoint, timeout, func() Advisor {
			return r.build(ctx, cfg, timeout)
		})
	default:
		return NoopAdvisor{}
	}
}

func (r *Resolver) build(ctx context.Context, cfg *v1beta1.AdvisorConfig, timeout time.Duration) Advisor {
	if cfg.Provider == "bedrock" {
		a, err := NewBedrockAdvisor(ctx, cfg.Endpoint, timeout, r.log)
		if err != nil {
			r.log.WithError(err).Warn("failed to construct bedrock advisor; falling back to no-op")
			return NoopAdvisor{}
		}
		return a
	}
	return NewAnthropicAdvisor(cfg.Endpoint, r.tokenSource, timeout, r.log)
}
