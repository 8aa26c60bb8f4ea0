package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"KULTA_LEADER_ELECTION", "KULTA_WEBHOOK_TLS", "KULTA_SERVICE_NAME",
		"KULTA_NAMESPACE", "KULTA_CDEVENTS_ENABLED", "KULTA_CDEVENTS_SINK_URL",
		"KULTA_PROMETHEUS_ADDRESS", "KULTA_OCCURRENCE_DIR", "KULTA_CLUSTER_NAME",
		"POD_NAME", "HOSTNAME", "POD_NAMESPACE",
	}
	for _, v := range vars {
		t.Setenv(v, "")
	}
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.OccurrenceDir != defaultOccurrenceDir {
		t.Errorf("expected default occurrence dir %q, got %q", defaultOccurrenceDir, cfg.OccurrenceDir)
	}
	if cfg.PodNamespace != "default" {
		t.Errorf("expected default pod namespace, got %q", cfg.PodNamespace)
	}
	if cfg.LeaderElection {
		t.Error("expected leader election disabled by default")
	}
	if cfg.WebhookTLS {
		t.Error("expected webhook TLS disabled by default")
	}
}

func TestLoad_PodNameFallsBackToHostname(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOSTNAME", "kulta-controller-abc123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.PodName != "kulta-controller-abc123" {
		t.Errorf("expected pod name to fall back to HOSTNAME, got %q", cfg.PodName)
	}
}

func TestLoad_PodNamePreferredOverHostname(t *testing.T) {
	clearEnv(t)
	t.Setenv("POD_NAME", "kulta-controller-xyz")
	t.Setenv("HOSTNAME", "kulta-controller-abc123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.PodName != "kulta-controller-xyz" {
		t.Errorf("expected POD_NAME to take priority, got %q", cfg.PodName)
	}
}

func TestLoad_WebhookTLSRequiresServiceNameAndNamespace(t *testing.T) {
	clearEnv(t)
	t.Setenv("KULTA_WEBHOOK_TLS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when webhook TLS is enabled without a service name or namespace")
	}

	t.Setenv("KULTA_SERVICE_NAME", "kulta-webhook")
	t.Setenv("KULTA_NAMESPACE", "kulta-system")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if !cfg.WebhookTLS || cfg.ServiceName != "kulta-webhook" || cfg.Namespace != "kulta-system" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_CDEventsRequiresValidSinkURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("KULTA_CDEVENTS_ENABLED", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when CD events are enabled without a sink URL")
	}

	t.Setenv("KULTA_CDEVENTS_SINK_URL", "not a url")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a malformed sink URL")
	}

	t.Setenv("KULTA_CDEVENTS_SINK_URL", "https://cdevents.example.com/ingest")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.CDEventsSinkURL != "https://cdevents.example.com/ingest" {
		t.Errorf("unexpected sink URL: %q", cfg.CDEventsSinkURL)
	}
}

func TestLoad_LeaderElectionRequiresPodIdentity(t *testing.T) {
	clearEnv(t)
	t.Setenv("KULTA_LEADER_ELECTION", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when leader election is enabled without any pod identity")
	}

	t.Setenv("POD_NAME", "kulta-controller-0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if !cfg.LeaderElection {
		t.Error("expected leader election enabled")
	}
}
