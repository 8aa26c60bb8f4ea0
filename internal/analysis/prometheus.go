package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	goerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// PrometheusQuerier is the production MetricsQuerier, evaluating
// PromQL-style instant queries against a Prometheus-compatible backend.
// Requests are wrapped in a circuit breaker so a failing backend fails
// fast instead of piling up in-flight requests (spec.md §4.7's failure
// policy still decides what a failure *means*; the breaker only bounds how
// long KULTA keeps asking).
type PrometheusQuerier struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry
}

// NewPrometheusQuerier builds a querier against baseURL (KULTA_PROMETHEUS_ADDRESS).
func NewPrometheusQuerier(baseURL string, timeout time.Duration, log *logrus.Entry) *PrometheusQuerier {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "metrics-querier",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures > 5
		},
	})
	return &PrometheusQuerier{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: cb,
		log:     log,
	}
}

type promResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Value [2]any `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

func (q *PrometheusQuerier) query(ctx context.Context, promql string) (float64, error) {
	v, err := q.breaker.Execute(func() (any, error) {
		u := q.baseURL + "/api/v1/query?" + url.Values{"query": {promql}}.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := q.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, goerrors.Newf("prometheus query failed with status %d", resp.StatusCode)
		}
		var parsed promResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, goerrors.Wrap(err, "decode prometheus response")
		}
		if parsed.Status != "success" || len(parsed.Data.Result) == 0 {
			return nil, goerrors.Newf("prometheus query %q returned no samples", promql)
		}
		str, ok := parsed.Data.Result[0].Value[1].(string)
		if !ok {
			return nil, goerrors.New("unexpected prometheus value shape")
		}
		var f float64
		if _, err := fmt.Sscanf(str, "%g", &f); err != nil {
			return nil, goerrors.Wrapf(err, "parse prometheus value %q", str)
		}
		return f, nil
	})
	if err != nil {
		q.log.WithField("query", promql).WithError(err).Warn("metrics query failed")
		return 0, err
	}
	f := v.(float64)
	if verr := ValidateObservedValue(f); verr != nil {
		return 0, verr
	}
	return f, nil
}

// Evaluate satisfies MetricsQuerier.
func (q *PrometheusQuerier) Evaluate(ctx context.Context, metric, rolloutName, revision string) (float64, error) {
	promql := fmt.Sprintf(`%s{rollout="%s",revision="%s"}`, metric, rolloutName, revision)
	return q.query(ctx, promql)
}

// SampleCount satisfies MetricsQuerier.
func (q *PrometheusQuerier) SampleCount(ctx context.Context, service string) (int, error) {
	promql := fmt.Sprintf(`sum(increase(http_requests_total{service="%s"}[5m]))`, service)
	f, err := q.query(ctx, promql)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// ErrorRate satisfies MetricsQuerier.
func (q *PrometheusQuerier) ErrorRate(ctx context.Context, service string) (float64, error) {
	promql := fmt.Sprintf(
		`sum(rate(http_requests_total{service="%s",status=~"5.."}[5m])) / sum(rate(http_requests_total{service="%s"}[5m]))`,
		service, service,
	)
	return q.query(ctx, promql)
}
