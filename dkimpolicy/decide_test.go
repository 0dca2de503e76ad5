package dkimpolicy

import (
	"context"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecideHTTPHeaders(t *testing.T) {
	cfg := &Config{UseHTTPHeaders: true}
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	// Scenario E from spec §8: all headers present, no reject symbol.
	task := &Task{
		Headers: map[string]string{
			"PerformDkimSign": "1",
			"DkimDomain":      "example.com",
			"DkimSelector":    "s1",
			"DkimPrivateKey":  "<pem>",
		},
	}
	dec, err := Decide(context.Background(), task, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	exp := &Decision{Sign: true, Domain: "example.com", Selector: "s1", Key: "<pem>"}
	if diff := cmp.Diff(exp, dec); diff != "" {
		t.Fatalf("decision mismatch (-want +got):\n%s", diff)
	}

	// sign_header absent: skip.
	task2 := &Task{Headers: map[string]string{"DkimDomain": "example.com"}}
	dec2, err := Decide(context.Background(), task2, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec2.Sign {
		t.Fatalf("expected skip, got %+v", dec2)
	}

	// sign_header present but selector missing: skip.
	task3 := &Task{Headers: map[string]string{
		"PerformDkimSign": "1",
		"DkimDomain":      "example.com",
		"DkimPrivateKey":  "<pem>",
	}}
	dec3, err := Decide(context.Background(), task3, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec3.Sign {
		t.Fatalf("expected skip, got %+v", dec3)
	}

	// reject symbol set and sign_on_reject header absent: skip.
	task4 := &Task{
		Headers: map[string]string{
			"PerformDkimSign": "1",
			"DkimDomain":      "example.com",
			"DkimSelector":    "s1",
			"DkimPrivateKey":  "<pem>",
		},
		Symbols: map[string]bool{"R_DKIM_REJECT": true},
	}
	dec4, err := Decide(context.Background(), task4, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec4.Sign {
		t.Fatalf("expected skip when R_DKIM_REJECT set without override header, got %+v", dec4)
	}

	// reject symbol set but sign_on_reject header present: still signs.
	task5 := &Task{
		Headers: map[string]string{
			"PerformDkimSign":  "1",
			"DkimDomain":       "example.com",
			"DkimSelector":     "s1",
			"DkimPrivateKey":   "<pem>",
			"SignOnAuthFailed": "1",
		},
		Symbols: map[string]bool{"R_DKIM_REJECT": true},
	}
	dec5, err := Decide(context.Background(), task5, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !dec5.Sign {
		t.Fatalf("expected sign with override header present, got %+v", dec5)
	}
}

func TestDecideNativeAuthOnly(t *testing.T) {
	cfg := &Config{
		AuthOnly: true,
		Domain:   map[string]KeySource{"example.com": {Selector: "s1", Path: "/k"}},
	}
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	// Scenario F from spec §8.
	task := &Task{
		AuthUser:     "alice@example.com",
		EnvelopeFrom: []string{"alice@example.com"},
		HeaderFrom:   []string{"alice@example.com"},
		Recipients:   []string{"bob@other.example"},
	}
	dec, err := Decide(context.Background(), task, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !dec.Sign || dec.Domain != "example.com" || dec.Selector != "s1" || dec.Key != "/k" {
		t.Fatalf("got %+v, expected sign with example.com/s1//k", dec)
	}

	// Property test 8 from spec §8: auth_only=true and no authenticated
	// user skips regardless of other flags, even with SignLocal/SignInbound
	// both also true.
	cfg2 := &Config{AuthOnly: true, SignLocal: true, SignInbound: true}
	if err := cfg2.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	task2 := &Task{
		EnvelopeFrom: []string{"alice@example.com"},
		HeaderFrom:   []string{"alice@example.com"},
		RemoteIP:     net.ParseIP("203.0.113.5"),
	}
	dec2, err := Decide(context.Background(), task2, cfg2)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec2.Sign {
		t.Fatalf("expected skip with auth_only and no authenticated user, got %+v", dec2)
	}
}

func TestDecideNativeSignNetworks(t *testing.T) {
	cfg := &Config{
		SignNetworks: map[string]string{"internal": "10.0.0.0/8"},
		Selector:     "default",
		Path:         "/default.key",
		TryFallback:  true,
	}
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	task := &Task{
		RemoteIP:     net.ParseIP("10.1.2.3"),
		EnvelopeFrom: []string{"a@example.com"},
		HeaderFrom:   []string{"a@example.com"},
	}
	dec, err := Decide(context.Background(), task, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !dec.Sign || dec.Domain != "example.com" || dec.Selector != "default" || dec.Key != "/default.key" {
		t.Fatalf("got %+v", dec)
	}

	// Not in sign_networks, no other gate matches: skip.
	task2 := &Task{
		RemoteIP:     net.ParseIP("203.0.113.9"),
		EnvelopeFrom: []string{"a@example.com"},
		HeaderFrom:   []string{"a@example.com"},
	}
	dec2, err := Decide(context.Background(), task2, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec2.Sign {
		t.Fatalf("expected skip, got %+v", dec2)
	}
}

func TestDecideNativeEnvelopeChecks(t *testing.T) {
	cfg := &Config{SignLocal: true, Selector: "s", Path: "/k", TryFallback: true}
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	// Empty envelope-from, not allowed: skip.
	task := &Task{
		RemoteIP:   net.ParseIP("127.0.0.1"),
		HeaderFrom: []string{"a@example.com"},
	}
	dec, err := Decide(context.Background(), task, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Sign {
		t.Fatalf("expected skip with empty envelope-from, got %+v", dec)
	}

	// allow_envfrom_empty relaxes the check.
	cfg.AllowEnvFromEmpty = true
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	dec2, err := Decide(context.Background(), task, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !dec2.Sign || dec2.Domain != "example.com" {
		t.Fatalf("got %+v, expected sign on example.com", dec2)
	}

	// Multiple MIME From addresses, not allowed: skip.
	task2 := &Task{
		RemoteIP:     net.ParseIP("127.0.0.1"),
		EnvelopeFrom: []string{"a@example.com"},
		HeaderFrom:   []string{"a@example.com", "b@example.com"},
	}
	dec3, err := Decide(context.Background(), task2, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec3.Sign {
		t.Fatalf("expected skip with multiple From addresses, got %+v", dec3)
	}
}

func TestDecideNativeHdrFromMismatch(t *testing.T) {
	cfg := &Config{SignLocal: true, Selector: "s", Path: "/k", TryFallback: true}
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	task := &Task{
		RemoteIP:     net.ParseIP("127.0.0.1"),
		EnvelopeFrom: []string{"a@envelope.example"},
		HeaderFrom:   []string{"a@header.example"},
	}
	dec, err := Decide(context.Background(), task, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Sign {
		t.Fatalf("expected skip on hdrfrom/envfrom mismatch, got %+v", dec)
	}

	cfg.AllowHdrFromMismatchLocal = true
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	dec2, err := Decide(context.Background(), task, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !dec2.Sign || dec2.Domain != "header.example" {
		t.Fatalf("got %+v, expected sign on header.example", dec2)
	}
}

func TestDecideNativeESLD(t *testing.T) {
	cfg := &Config{
		SignLocal: true,
		UseESLD:   true,
		Domain:    map[string]KeySource{"example.com": {Selector: "s1", Path: "/k"}},
	}
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	task := &Task{
		RemoteIP:     net.ParseIP("127.0.0.1"),
		EnvelopeFrom: []string{"a@mail.example.com"},
		HeaderFrom:   []string{"a@mail.example.com"},
	}
	dec, err := Decide(context.Background(), task, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !dec.Sign || dec.Domain != "example.com" {
		t.Fatalf("got %+v, expected ESLD-collapsed example.com", dec)
	}
}

func TestDecideNativeARCFlavor(t *testing.T) {
	cfg := &Config{SignLocal: true, ARCFlavor: true}
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	task := &Task{
		RemoteIP:     net.ParseIP("127.0.0.1"),
		EnvelopeFrom: []string{"a@example.com"},
		HeaderFrom:   []string{"a@example.com"},
		Vars: map[string]string{
			"dkim_key":      "should-not-be-used",
			"dkim_selector": "should-not-be-used",
			"arc_key":       "/arc.key",
			"arc_selector":  "arc-s1",
		},
	}
	dec, err := Decide(context.Background(), task, cfg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !dec.Sign || dec.Selector != "arc-s1" || dec.Key != "/arc.key" {
		t.Fatalf("got %+v, expected arc_key/arc_selector to be used", dec)
	}
}

func TestDecideNativeMisconfiguredDomain(t *testing.T) {
	cfg := &Config{SignLocal: true, Domain: map[string]KeySource{"example.com": {Selector: "s1"}}}
	if err := cfg.Prepare(); err == nil {
		t.Fatalf("expected Prepare to reject domain entry missing path")
	}
}
