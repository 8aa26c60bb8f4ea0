package main

import "testing"

func TestCacheNamespaces_EmptyMeansAllNamespaces(t *testing.T) {
	if got := cacheNamespaces(""); got != nil {
		t.Errorf("expected a nil (all-namespaces) cache config, got %v", got)
	}
}

func TestCacheNamespaces_RestrictsToOneNamespace(t *testing.T) {
	got := cacheNamespaces("kulta-system")
	if len(got) != 1 {
		t.Fatalf("expected exactly one namespace entry, got %d", len(got))
	}
	if _, ok := got["kulta-system"]; !ok {
		t.Errorf("expected the configured namespace to be present, got %v", got)
	}
}
