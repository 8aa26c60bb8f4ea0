package events

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CDEventType names the CD event vocabulary of spec.md §3.
type CDEventType string

const (
	EventDeployed   CDEventType = "service.deployed"
	EventUpgraded   CDEventType = "service.upgraded"
	EventRolledback CDEventType = "service.rolledback"
	EventPublished  CDEventType = "service.published"
)

// CDSubject identifies the artifact and environment a CD event is about.
type CDSubject struct {
	ArtifactID  string `json:"artifactId"`
	Environment struct {
		ID     string `json:"id"`
		Source string `json:"source"`
	} `json:"environment"`
}

// CDEvent is the CDEvents-flavoured record KULTA sends to a configured CD
// sink (spec.md §4.13).
type CDEvent struct {
	Type      CDEventType    `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Subject   CDSubject      `json:"subject"`
	Data      map[string]any `json:"customData"`
}

// CDSink is the outbound transport for CD events. A disabled sink is a
// no-op that always reports success (spec.md §4.13).
type CDSink interface {
	Send(ctx context.Context, ev CDEvent) error
}

// NoopCDSink discards every event, used when KULTA_CDEVENTS_ENABLED is
// false or unset.
type NoopCDSink struct{}

func (NoopCDSink) Send(context.Context, CDEvent) error { return nil }

// HTTPCDSink POSTs the event as JSON to a configured endpoint.
type HTTPCDSink struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPCDSink(endpoint string, timeout time.Duration) *HTTPCDSink {
	return &HTTPCDSink{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPCDSink) Send(ctx context.Context, ev CDEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// logCDFailure is a narrow logging seam so cdevent.go and emitter.go share
// one warn-on-failure convention without importing the full Emitter type.
func logCDFailure(log *logrus.Entry, err error) {
	if log != nil {
		log.WithError(err).Warn("failed to send CD event (non-fatal)")
	}
}
