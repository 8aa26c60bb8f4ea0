package status

import (
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/false-systems/kulta/api/v1beta1"
)

func weightPtr(v int32) *int32 { return &v }
func boolPtr(v bool) *bool     { return &v }
func i32Ptr(v int32) *int32    { return &v }

func TestSimpleComputer_Constant(t *testing.T) {
	r := &v1beta1.Rollout{Spec: v1beta1.RolloutSpec{Replicas: 3}}
	got := SimpleComputer{}.Next(r, time.Now())
	if got.Phase != v1beta1.PhaseCompleted {
		t.Errorf("expected Completed, got %v", got.Phase)
	}
	if got.Message != "Simple rollout completed: 3 replicas updated" {
		t.Errorf("unexpected message: %q", got.Message)
	}
}

func canaryStrategy() *v1beta1.CanaryStrategy {
	return &v1beta1.CanaryStrategy{
		StableService: "stable",
		CanaryService: "canary",
		Steps: []v1beta1.CanaryStep{
			{SetWeight: weightPtr(20)},
			{Pause: &v1beta1.StepPause{}},
			{SetWeight: weightPtr(100)},
		},
	}
}

func TestCanaryComputer_Initializes(t *testing.T) {
	r := &v1beta1.Rollout{Spec: v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{Canary: canaryStrategy()}}}
	now := time.Now()
	got := CanaryComputer{}.Next(r, now)
	if got.Phase != v1beta1.PhaseProgressing {
		t.Fatalf("expected Progressing, got %v", got.Phase)
	}
	if got.CurrentStepIndex == nil || *got.CurrentStepIndex != 0 {
		t.Errorf("expected step index 0, got %v", got.CurrentStepIndex)
	}
	if got.CurrentWeight == nil || *got.CurrentWeight != 20 {
		t.Errorf("expected weight 20, got %v", got.CurrentWeight)
	}
}

func TestCanaryComputer_AdvancesPastUnboundedStepOnPromote(t *testing.T) {
	now := time.Now()
	start := metav1.NewTime(now.Add(-time.Minute))
	r := &v1beta1.Rollout{
		ObjectMeta: metav1.ObjectMeta{Annotations: map[string]string{v1beta1.PromoteAnnotation: "true"}},
		Spec:       v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{Canary: canaryStrategy()}},
		Status: v1beta1.RolloutStatus{
			Phase:            v1beta1.PhaseProgressing,
			CurrentStepIndex: i32Ptr(1),
			CurrentWeight:    weightPtr(20),
			PauseStartTime:   &start,
		},
	}
	got := CanaryComputer{}.Next(r, now)
	if got.CurrentStepIndex == nil || *got.CurrentStepIndex != 2 {
		t.Fatalf("expected step index 2, got %v", got.CurrentStepIndex)
	}
	if got.Phase != v1beta1.PhaseCompleted {
		t.Errorf("expected Completed when new weight is 100, got %v", got.Phase)
	}
}

func TestCanaryComputer_PausedPhaseNeverProgresses(t *testing.T) {
	now := time.Now()
	r := &v1beta1.Rollout{
		Spec: v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{Canary: canaryStrategy()}},
		Status: v1beta1.RolloutStatus{
			Phase:            v1beta1.PhasePaused,
			CurrentStepIndex: i32Ptr(1),
			CurrentWeight:    weightPtr(20),
		},
	}
	got := CanaryComputer{}.Next(r, now)
	if got.Phase != v1beta1.PhasePaused {
		t.Errorf("expected status unchanged while Paused, got phase %v", got.Phase)
	}
}

func TestCanaryComputer_TimedPauseElapses(t *testing.T) {
	now := time.Now()
	start := metav1.NewTime(now.Add(-time.Hour))
	strategy := canaryStrategy()
	strategy.Steps[1].Pause.Duration = "30s"
	r := &v1beta1.Rollout{
		Spec: v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{Canary: strategy}},
		Status: v1beta1.RolloutStatus{
			Phase:            v1beta1.PhaseProgressing,
			CurrentStepIndex: i32Ptr(1),
			CurrentWeight:    weightPtr(20),
			PauseStartTime:   &start,
		},
	}
	got := CanaryComputer{}.Next(r, now)
	if got.CurrentStepIndex == nil || *got.CurrentStepIndex != 2 {
		t.Fatalf("expected progression after elapsed pause duration, got index %v", got.CurrentStepIndex)
	}
}

func TestBlueGreenComputer_InitializesToPreview(t *testing.T) {
	r := &v1beta1.Rollout{Spec: v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{BlueGreen: &v1beta1.BlueGreenStrategy{}}}}
	got := BlueGreenComputer{}.Next(r, time.Now())
	if got.Phase != v1beta1.PhasePreview {
		t.Errorf("expected Preview, got %v", got.Phase)
	}
}

func TestBlueGreenComputer_PromoteAnnotationCompletesFromPreview(t *testing.T) {
	now := time.Now()
	start := metav1.NewTime(now)
	r := &v1beta1.Rollout{
		ObjectMeta: metav1.ObjectMeta{Annotations: map[string]string{v1beta1.PromoteAnnotation: "true"}},
		Spec:       v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{BlueGreen: &v1beta1.BlueGreenStrategy{}}},
		Status:     v1beta1.RolloutStatus{Phase: v1beta1.PhasePreview, PauseStartTime: &start},
	}
	got := BlueGreenComputer{}.Next(r, now)
	if got.Phase != v1beta1.PhaseCompleted {
		t.Errorf("expected Completed on promote annotation, got %v", got.Phase)
	}
}

func TestBlueGreenComputer_AutoPromotionElapses(t *testing.T) {
	now := time.Now()
	start := metav1.NewTime(now.Add(-2 * time.Minute))
	bg := &v1beta1.BlueGreenStrategy{AutoPromotionEnabled: boolPtr(true), AutoPromotionSeconds: i32Ptr(60)}
	r := &v1beta1.Rollout{
		Spec:   v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{BlueGreen: bg}},
		Status: v1beta1.RolloutStatus{Phase: v1beta1.PhasePreview, PauseStartTime: &start},
	}
	got := BlueGreenComputer{}.Next(r, now)
	if got.Phase != v1beta1.PhaseCompleted {
		t.Errorf("expected Completed after auto-promotion window elapses, got %v", got.Phase)
	}
}

func TestBlueGreenComputer_TerminalPhasesUnchanged(t *testing.T) {
	for _, phase := range []v1beta1.RolloutPhase{v1beta1.PhaseCompleted, v1beta1.PhaseFailed} {
		r := &v1beta1.Rollout{
			Spec:   v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{BlueGreen: &v1beta1.BlueGreenStrategy{}}},
			Status: v1beta1.RolloutStatus{Phase: phase},
		}
		got := BlueGreenComputer{}.Next(r, time.Now())
		if got.Phase != phase {
			t.Errorf("expected %v to stay unchanged, got %v", phase, got.Phase)
		}
	}
}

func TestABComputer_InitializesToExperimenting(t *testing.T) {
	r := &v1beta1.Rollout{Spec: v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{ABTesting: &v1beta1.ABStrategy{}}}}
	got := ABComputer{}.Next(r, time.Now())
	if got.Phase != v1beta1.PhaseExperimenting {
		t.Errorf("expected Experimenting, got %v", got.Phase)
	}
	if got.ABExperiment == nil || got.ABExperiment.StartedAt == nil {
		t.Error("expected abExperiment.startedAt to be set")
	}
}

func TestABComputer_ConcludesWhenReasonSet(t *testing.T) {
	r := &v1beta1.Rollout{
		Spec: v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{ABTesting: &v1beta1.ABStrategy{}}},
		Status: v1beta1.RolloutStatus{
			Phase:        v1beta1.PhaseExperimenting,
			ABExperiment: &v1beta1.ABExperimentStatus{ConclusionReason: v1beta1.ReasonSignificanceReached},
		},
	}
	got := ABComputer{}.Next(r, time.Now())
	if got.Phase != v1beta1.PhaseConcluded {
		t.Errorf("expected Concluded, got %v", got.Phase)
	}
}

func TestABComputer_ConcludedPromotesOnAnnotation(t *testing.T) {
	r := &v1beta1.Rollout{
		ObjectMeta: metav1.ObjectMeta{Annotations: map[string]string{v1beta1.PromoteAnnotation: "true"}},
		Spec:       v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{ABTesting: &v1beta1.ABStrategy{}}},
		Status:     v1beta1.RolloutStatus{Phase: v1beta1.PhaseConcluded},
	}
	got := ABComputer{}.Next(r, time.Now())
	if got.Phase != v1beta1.PhaseCompleted {
		t.Errorf("expected Completed, got %v", got.Phase)
	}
}

func TestForStrategy_DispatchesByKind(t *testing.T) {
	if _, ok := ForStrategy(v1beta1.StrategySimple).(SimpleComputer); !ok {
		t.Error("expected SimpleComputer for StrategySimple")
	}
	if _, ok := ForStrategy(v1beta1.StrategyCanary).(CanaryComputer); !ok {
		t.Error("expected CanaryComputer for StrategyCanary")
	}
	if _, ok := ForStrategy(v1beta1.StrategyBlueGreen).(BlueGreenComputer); !ok {
		t.Error("expected BlueGreenComputer for StrategyBlueGreen")
	}
	if _, ok := ForStrategy(v1beta1.StrategyAB).(ABComputer); !ok {
		t.Error("expected ABComputer for StrategyAB")
	}
}
