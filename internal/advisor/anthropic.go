package advisor

import (
	"context"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	goerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"

	"github.com/false-systems/kulta/internal/observability/logging"
)

// AnthropicAdvisor consults Claude via the messages API. The endpoint and
// timeout come from AdvisorConfig; the optional bearer token source is the
// one the Resolver was constructed with. The model name is fixed, since
// spec.md leaves model selection out of scope.
type AnthropicAdvisor struct {
	client  anthropic.Client
	model   anthropic.Model
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry
}

const anthropicModel = anthropic.ModelClaude3_5HaikuLatest

func NewAnthropicAdvisor(endpoint string, tokenSource oauth2.TokenSource, timeout time.Duration, log *logrus.Entry) *AnthropicAdvisor {
	httpClient := &http.Client{Timeout: timeout}
	if tokenSource != nil {
		httpClient = oauth2.NewClient(context.Background(), tokenSource)
		httpClient.Timeout = timeout
	}

	client := anthropic.NewClient(
		option.WithBaseURL(endpoint),
		option.WithHTTPClient(httpClient),
	)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "advisor-anthropic",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures > 3 },
	})

	return &AnthropicAdvisor{client: client, model: anthropicModel, breaker: cb, log: log}
}

func (a *AnthropicAdvisor) IsNoop() bool { return false }

func (a *AnthropicAdvisor) Consult(ctx context.Context, reqCtx RequestContext) (Recommendation, error) {
	prompt, err := renderPrompt(reqCtx)
	if err != nil {
		return Recommendation{}, goerrors.Wrap(err, "render advisor prompt")
	}

	v, err := a.breaker.Execute(func() (any, error) {
		msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: 256,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return nil, err
		}
		if len(msg.Content) == 0 {
			return "", goerrors.New("empty anthropic response")
		}
		return msg.Content[0].Text, nil
	})
	if err != nil {
		a.log.WithFields(logging.AIFields("consult", string(a.model)).Error(err).ToLogrus()).Warn("advisor consultation failed")
		return Recommendation{}, err
	}

	return parseRecommendation(v.(string)), nil
}
