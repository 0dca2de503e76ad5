package dkimpolicy

import "testing"

func TestConfigPrepareDefaults(t *testing.T) {
	cfg := &Config{UseHTTPHeaders: true}
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if cfg.HTTPSignHeader != defaultHTTPSignHeader {
		t.Errorf("HTTPSignHeader = %q, want %q", cfg.HTTPSignHeader, defaultHTTPSignHeader)
	}
	if cfg.HTTPSignOnRejectHeader != defaultHTTPSignOnRejectHeader {
		t.Errorf("HTTPSignOnRejectHeader = %q, want %q", cfg.HTTPSignOnRejectHeader, defaultHTTPSignOnRejectHeader)
	}
	if cfg.HTTPDomainHeader != defaultHTTPDomainHeader {
		t.Errorf("HTTPDomainHeader = %q, want %q", cfg.HTTPDomainHeader, defaultHTTPDomainHeader)
	}
	if cfg.HTTPSelectorHeader != defaultHTTPSelectorHeader {
		t.Errorf("HTTPSelectorHeader = %q, want %q", cfg.HTTPSelectorHeader, defaultHTTPSelectorHeader)
	}
	if cfg.HTTPKeyHeader != defaultHTTPKeyHeader {
		t.Errorf("HTTPKeyHeader = %q, want %q", cfg.HTTPKeyHeader, defaultHTTPKeyHeader)
	}
	if cfg.UseDomain != SourceHeader {
		t.Errorf("UseDomain = %q, want %q", cfg.UseDomain, SourceHeader)
	}
}

func TestConfigPrepareBadSignNetworks(t *testing.T) {
	cfg := &Config{SignNetworks: map[string]string{"bad": "not-a-cidr"}}
	if err := cfg.Prepare(); err == nil {
		t.Fatalf("expected error for invalid sign_networks entry")
	}
}

func TestConfigPrepareIncompleteDomainEntry(t *testing.T) {
	cfg := &Config{Domain: map[string]KeySource{"example.com": {Path: "/k"}}}
	if err := cfg.Prepare(); err == nil {
		t.Fatalf("expected error for domain entry missing selector")
	}
}
