// Package config loads KULTA's process configuration from the closed set
// of environment variables in spec.md §6. There is no config file: every
// setting that matters to the controller, the webhook server, or leader
// election arrives through the pod's environment, the same way the
// teacher's internal/config loads YAML into a typed Config and validates
// it before the caller ever sees it.
package config

import (
	"net/url"
	"os"

	"github.com/false-systems/kulta/internal/observability/xerrors"
)

const defaultOccurrenceDir = "/tmp/kulta"

// Config is the fully-resolved process configuration. Every field is
// derived from exactly one environment variable, except PodName, which
// falls back through POD_NAME, HOSTNAME, and finally os.Hostname().
type Config struct {
	// LeaderElection enables lease-based leader election when true.
	// Source: KULTA_LEADER_ELECTION.
	LeaderElection bool

	// WebhookTLS serves the webhook endpoints over HTTPS when true.
	// Source: KULTA_WEBHOOK_TLS.
	WebhookTLS bool

	// ServiceName and Namespace identify this deployment in the webhook
	// certificate's SANs. Source: KULTA_SERVICE_NAME, KULTA_NAMESPACE.
	ServiceName string
	Namespace   string

	// CDEventsEnabled turns on the CD-event HTTP sink; CDEventsSinkURL is
	// its destination. Source: KULTA_CDEVENTS_ENABLED, KULTA_CDEVENTS_SINK_URL.
	CDEventsEnabled bool
	CDEventsSinkURL string

	// PrometheusAddress is the base URL of the metrics backend consulted
	// by the analysis engine. Source: KULTA_PROMETHEUS_ADDRESS.
	PrometheusAddress string

	// OccurrenceDir is the directory holding occurrence.json. Defaults to
	// /tmp/kulta. Source: KULTA_OCCURRENCE_DIR.
	OccurrenceDir string

	// ClusterName is stamped into every occurrence's context. Source:
	// KULTA_CLUSTER_NAME.
	ClusterName string

	// PodName and PodNamespace feed the leader-election identity lease.
	// Source: POD_NAME (falling back to HOSTNAME, then os.Hostname()) and
	// POD_NAMESPACE (defaulting to "default").
	PodName      string
	PodNamespace string
}

// Load reads the environment and returns a validated Config. Boolean
// fields treat exactly "true" as enabled; anything else, including an
// unset variable, is disabled.
func Load() (Config, error) {
	cfg := Config{
		LeaderElection:    os.Getenv("KULTA_LEADER_ELECTION") == "true",
		WebhookTLS:        os.Getenv("KULTA_WEBHOOK_TLS") == "true",
		ServiceName:       os.Getenv("KULTA_SERVICE_NAME"),
		Namespace:         os.Getenv("KULTA_NAMESPACE"),
		CDEventsEnabled:   os.Getenv("KULTA_CDEVENTS_ENABLED") == "true",
		CDEventsSinkURL:   os.Getenv("KULTA_CDEVENTS_SINK_URL"),
		PrometheusAddress: os.Getenv("KULTA_PROMETHEUS_ADDRESS"),
		OccurrenceDir:     os.Getenv("KULTA_OCCURRENCE_DIR"),
		ClusterName:       os.Getenv("KULTA_CLUSTER_NAME"),
		PodNamespace:      os.Getenv("POD_NAMESPACE"),
	}

	if cfg.OccurrenceDir == "" {
		cfg.OccurrenceDir = defaultOccurrenceDir
	}
	if cfg.PodNamespace == "" {
		cfg.PodNamespace = "default"
	}

	cfg.PodName = podName()

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// podName resolves POD_NAME, then HOSTNAME, then os.Hostname(), in that
// order — the same fallback chain the leader-election identity needs
// when the downward API hasn't injected POD_NAME.
func podName() string {
	if v := os.Getenv("POD_NAME"); v != "" {
		return v
	}
	if v := os.Getenv("HOSTNAME"); v != "" {
		return v
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return ""
}

func validate(cfg Config) error {
	if cfg.WebhookTLS {
		if cfg.ServiceName == "" {
			return xerrors.ConfigurationError("KULTA_SERVICE_NAME", "required when KULTA_WEBHOOK_TLS=true")
		}
		if cfg.Namespace == "" {
			return xerrors.ConfigurationError("KULTA_NAMESPACE", "required when KULTA_WEBHOOK_TLS=true")
		}
	}

	if cfg.CDEventsEnabled {
		if cfg.CDEventsSinkURL == "" {
			return xerrors.ConfigurationError("KULTA_CDEVENTS_SINK_URL", "required when KULTA_CDEVENTS_ENABLED=true")
		}
		if _, err := url.ParseRequestURI(cfg.CDEventsSinkURL); err != nil {
			return xerrors.ConfigurationError("KULTA_CDEVENTS_SINK_URL", "must be a valid URL")
		}
	}

	if cfg.LeaderElection && cfg.PodName == "" {
		return xerrors.ConfigurationError("POD_NAME", "required when KULTA_LEADER_ELECTION=true and HOSTNAME is also unset")
	}

	return nil
}
