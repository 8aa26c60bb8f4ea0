package advisor

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/false-systems/kulta/api/v1beta1"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestResolver_NilConfig_Noop(t *testing.T) {
	r := NewResolver(discardLog(), nil)
	a := r.Resolve(context.Background(), nil, nil)
	if !a.IsNoop() {
		t.Error("expected no-op advisor for nil config")
	}
}

func TestResolver_LevelOff_Noop(t *testing.T) {
	r := NewResolver(discardLog(), nil)
	a := r.Resolve(context.Background(), &v1beta1.AdvisorConfig{Level: v1beta1.AdvisorLevelOff}, nil)
	if !a.IsNoop() {
		t.Error("expected no-op advisor at level Off")
	}
}

func TestResolver_LevelContext_Noop(t *testing.T) {
	r := NewResolver(discardLog(), nil)
	a := r.Resolve(context.Background(), &v1beta1.AdvisorConfig{Level: v1beta1.AdvisorLevelContext}, nil)
	if !a.IsNoop() {
		t.Error("expected no-op advisor at level Context")
	}
}

func TestResolver_AdvisedWithoutEndpoint_FallsBackToNoop(t *testing.T) {
	r := NewResolver(discardLog(), nil)
	a := r.Resolve(context.Background(), &v1beta1.AdvisorConfig{Level: v1beta1.AdvisorLevelAdvised}, nil)
	if !a.IsNoop() {
		t.Error("expected no-op fallback when endpoint is unset at level Advised")
	}
}

func TestResolver_AdvisedWithEndpoint_BuildsAnthropicByDefault(t *testing.T) {
	r := NewResolver(discardLog(), nil)
	a := r.Resolve(context.Background(), &v1beta1.AdvisorConfig{
		Level:    v1beta1.AdvisorLevelAdvised,
		Endpoint: "https://api.anthropic.com",
	}, nil)
	if a.IsNoop() {
		t.Fatal("expected a concrete advisor, got no-op")
	}
	if _, ok := a.(*AnthropicAdvisor); !ok {
		t.Errorf("expected *AnthropicAdvisor, got %T", a)
	}
}

func TestResolver_CachesByEndpointAndTimeout(t *testing.T) {
	r := NewResolver(discardLog(), nil)
	cfg := &v1beta1.AdvisorConfig{Level: v1beta1.AdvisorLevelAdvised, Endpoint: "https://api.anthropic.com"}
	a1 := r.Resolve(context.Background(), cfg, nil)
	a2 := r.Resolve(context.Background(), cfg, nil)
	if a1 != a2 {
		t.Error("expected the same cached advisor instance for identical (endpoint, timeout)")
	}
}

func TestResolver_TestAdvisorOverride(t *testing.T) {
	r := NewResolver(discardLog(), nil)
	injected := &fakeAdvisor{}
	a := r.Resolve(context.Background(), &v1beta1.AdvisorConfig{Level: v1beta1.AdvisorLevelOff}, injected)
	if a != injected {
		t.Error("expected the injected test advisor to override level Off")
	}
}

type fakeAdvisor struct{}

func (*fakeAdvisor) Consult(context.Context, RequestContext) (Recommendation, error) {
	return Recommendation{Action: ActionContinue, Confidence: 1}, nil
}
func (*fakeAdvisor) IsNoop() bool { return false }

func TestPlannedAndDrivenLevels_BehaveAsAdvised(t *testing.T) {
	for _, level := range []v1beta1.AdvisorLevel{v1beta1.AdvisorLevelPlanned, v1beta1.AdvisorLevelDriven} {
		r := NewResolver(discardLog(), nil)
		a := r.Resolve(context.Background(), &v1beta1.AdvisorConfig{
			Level:    level,
			Endpoint: "https://api.anthropic.com",
		}, nil)
		if a.IsNoop() {
			t.Errorf("level %s: expected concrete advisor identical to Advised behavior", level)
		}
	}
}
