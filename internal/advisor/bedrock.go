package advisor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	goerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/false-systems/kulta/internal/observability/logging"
)

// BedrockAdvisor is the "bedrock" provider alternative to AnthropicAdvisor,
// invoking a Claude model through AWS Bedrock instead of the Anthropic API
// directly (spec.md §4.9 leaves provider selection to AdvisorConfig.Provider,
// supplemented from original_source/'s multi-provider advisor design).
type BedrockAdvisor struct {
	client  *bedrockruntime.Client
	modelID string
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry
}

const bedrockModelID = "anthropic.claude-3-5-haiku-20241022-v1:0"

// NewBedrockAdvisor builds a Bedrock-backed advisor. region comes from the
// advisor endpoint field when provider=bedrock (interpreted as an AWS
// region rather than a URL); credentials are resolved through the default
// AWS SDK chain.
func NewBedrockAdvisor(ctx context.Context, region string, timeout time.Duration, log *logrus.Entry) (*BedrockAdvisor, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, goerrors.Wrap(err, "load aws config")
	}

	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		o.HTTPClient = aws.NewBuildableHTTPClient().WithTimeout(timeout)
	})

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "advisor-bedrock",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures > 3 },
	})

	return &BedrockAdvisor{client: client, modelID: bedrockModelID, breaker: cb, log: log}, nil
}

func (b *BedrockAdvisor) IsNoop() bool { return false }

type bedrockInvokeBody struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []bedrockMessage   `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockInvokeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (b *BedrockAdvisor) Consult(ctx context.Context, reqCtx RequestContext) (Recommendation, error) {
	prompt, err := renderPrompt(reqCtx)
	if err != nil {
		return Recommendation{}, goerrors.Wrap(err, "render advisor prompt")
	}

	body, err := json.Marshal(bedrockInvokeBody{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        256,
		Messages:         []bedrockMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return Recommendation{}, goerrors.Wrap(err, "marshal bedrock request")
	}

	v, err := b.breaker.Execute(func() (any, error) {
		out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(b.modelID),
			ContentType: aws.String("application/json"),
			Body:        body,
		})
		if err != nil {
			return nil, err
		}
		var parsed bedrockInvokeResponse
		if err := json.Unmarshal(out.Body, &parsed); err != nil {
			return nil, goerrors.Wrap(err, "decode bedrock response")
		}
		if len(parsed.Content) == 0 {
			return "", goerrors.New("empty bedrock response")
		}
		return parsed.Content[0].Text, nil
	})
	if err != nil {
		b.log.WithFields(logging.AIFields("consult", b.modelID).Error(err).ToLogrus()).Warn("advisor consultation failed")
		return Recommendation{}, err
	}

	return parseRecommendation(v.(string)), nil
}
