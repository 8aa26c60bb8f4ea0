package controller

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/false-systems/kulta/api/v1beta1"
)

func discardEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func testRollout(name string, replicas int32) *v1beta1.Rollout {
	return &v1beta1.Rollout{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec: v1beta1.RolloutSpec{
			Replicas: replicas,
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": name}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": name}},
				Spec:       corev1.PodSpec{Containers: []corev1.Container{{Name: "app", Image: "example/app:v1"}}},
			},
		},
	}
}

// stubQuerier is a fixed-response analysis.MetricsQuerier for reconciler
// tests; healthy by default, but every field can be overridden per test.
type stubQuerier struct {
	evaluateValue float64
	evaluateErr   error
	sampleCount   int
	sampleErr     error
	errorRate     float64
	errorRateErr  error
}

func (s stubQuerier) Evaluate(context.Context, string, string, string) (float64, error) {
	return s.evaluateValue, s.evaluateErr
}

func (s stubQuerier) SampleCount(context.Context, string) (int, error) {
	return s.sampleCount, s.sampleErr
}

func (s stubQuerier) ErrorRate(context.Context, string) (float64, error) {
	return s.errorRate, s.errorRateErr
}
