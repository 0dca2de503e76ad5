package dkimpolicy

import (
	"context"
	"fmt"
	"strings"

	"github.com/aj-gh/dkimguard/dns"
	"github.com/aj-gh/dkimguard/publicsuffix"
)

// Decision is the outcome of Decide: either a skip (Sign is false and the
// remaining fields are zero), or a sign decision naming the domain,
// selector and key material (or key path, when UseRedis is set) to use.
type Decision struct {
	Sign     bool
	Domain   string
	Selector string
	Key      string
}

// Decide decides, for a single message, whether it should be DKIM-signed
// and with which domain, selector and key. It never returns an error for a
// normal skip decision; error is reserved for misconfiguration the caller
// should log, such as a Domain entry missing its selector or its path.
func Decide(ctx context.Context, task *Task, cfg *Config) (*Decision, error) {
	if cfg.UseHTTPHeaders {
		return decideHTTPHeaders(task, cfg), nil
	}
	return decideNative(ctx, task, cfg)
}

func skip() *Decision {
	return &Decision{Sign: false}
}

// decideHTTPHeaders implements spec §4.I's HTTP-header mode: the decision
// is read directly off configured request headers rather than computed.
func decideHTTPHeaders(task *Task, cfg *Config) *Decision {
	if task.Header(cfg.HTTPSignHeader) == "" {
		return skip()
	}
	domain := task.Header(cfg.HTTPDomainHeader)
	selector := task.Header(cfg.HTTPSelectorHeader)
	key := task.Header(cfg.HTTPKeyHeader)
	if domain == "" || selector == "" || key == "" {
		return skip()
	}
	if task.Header(cfg.HTTPSignOnRejectHeader) == "" && task.HasSymbol("R_DKIM_REJECT") {
		return skip()
	}
	return &Decision{Sign: true, Domain: domain, Selector: selector, Key: key}
}

// decideNative implements spec §4.I's native mode, steps 1-8.
func decideNative(ctx context.Context, task *Task, cfg *Config) (*Decision, error) {
	authenticated := task.AuthUser != ""
	isLocal := IsLocal(task.RemoteIP)
	isSignNetworks := cfg.networks.Contains(task.RemoteIP)

	// Step 2: gate. AuthOnly without an authenticated user skips, whatever
	// the other gates would allow.
	if cfg.AuthOnly && !authenticated {
		return skip(), nil
	}
	switch {
	case cfg.AuthOnly && authenticated:
	case isSignNetworks:
	case cfg.SignLocal && isLocal:
	case cfg.SignInbound && !isLocal && !authenticated:
	default:
		return skip(), nil
	}

	// Step 3: envelope/header checks.
	if !cfg.AllowEnvFromEmpty && len(task.EnvelopeFrom) == 0 {
		return skip(), nil
	}
	if !cfg.AllowHdrFromMultiple && len(task.HeaderFrom) != 1 {
		return skip(), nil
	}

	// Step 4: candidate domain collection.
	hdom := addrDomain(firstOrEmpty(task.HeaderFrom))
	edom := addrDomain(firstOrEmpty(task.EnvelopeFrom))
	udom := addrDomain(task.AuthUser)
	tdom := addrDomain(firstOrEmpty(task.Recipients))

	source := cfg.UseDomain
	switch {
	case isSignNetworks && cfg.UseDomainSignNetworks != "":
		source = cfg.UseDomainSignNetworks
	case isLocal && cfg.SignLocal && cfg.UseDomainSignLocal != "":
		source = cfg.UseDomainSignLocal
	case !isLocal && cfg.SignInbound && cfg.UseDomainSignInbound != "":
		source = cfg.UseDomainSignInbound
	}

	var dkimDomain string
	switch source {
	case SourceHeader:
		dkimDomain = hdom
	case SourceEnvelope:
		dkimDomain = edom
	case SourceAuth:
		dkimDomain = udom
	case SourceRecipient:
		dkimDomain = tdom
	}
	if dkimDomain == "" {
		return skip(), nil
	}

	// Step 5: ESLD collapse.
	if cfg.UseESLD {
		dkimDomain = esld(ctx, dkimDomain)
		hdom = esld(ctx, hdom)
		edom = esld(ctx, edom)
		udom = esld(ctx, udom)
	}

	// Step 6: mismatch checks.
	if hdom != "" && edom != "" && hdom != edom && !cfg.AllowHdrFromMismatch {
		allowed := (cfg.AllowHdrFromMismatchLocal && isLocal) || (cfg.AllowHdrFromMismatchSignNetworks && isSignNetworks)
		if !allowed {
			return skip(), nil
		}
	}
	if authenticated && !cfg.AllowUsernameMismatch && udom != "" && udom != dkimDomain {
		return skip(), nil
	}

	// Step 7: selector and key resolution.
	selector, key, err := resolveKey(task, cfg, dkimDomain)
	if err != nil {
		return nil, err
	}
	if selector == "" || key == "" {
		return skip(), nil
	}

	return &Decision{Sign: true, Domain: dkimDomain, Selector: selector, Key: key}, nil
}

// resolveKey implements spec §4.I step 7, in the order given there.
func resolveKey(task *Task, cfg *Config, domain string) (selector, key string, err error) {
	// 7a: per-domain config map.
	if ks, ok := cfg.Domain[domain]; ok {
		selector, key = ks.Selector, ks.Path
		if selector == "" || key == "" {
			return "", "", fmt.Errorf("dkimpolicy: domain %q configured with missing selector or path", domain)
		}
		return selector, key, nil
	}

	// 7b: task variables, dkim_ or arc_ prefixed depending on flavor.
	keyVar, selVar := "dkim_key", "dkim_selector"
	if cfg.ARCFlavor {
		keyVar, selVar = "arc_key", "arc_selector"
	}
	if v, s := task.Vars[keyVar], task.Vars[selVar]; v != "" && s != "" {
		return s, v, nil
	}

	// 7c: selector_map.
	if s, ok := cfg.SelectorMap[domain]; ok {
		selector = s
	}
	// 7d: path_map.
	if p, ok := cfg.PathMap[domain]; ok {
		key = p
	}
	if selector != "" && key != "" {
		return selector, key, nil
	}

	// 7e: global fallback to settings.selector/settings.path, gated by
	// try_fallback, unless Redis is handling key resolution outside this
	// module.
	if cfg.TryFallback && !cfg.UseRedis {
		if selector == "" {
			selector = cfg.Selector
		}
		if key == "" {
			key = cfg.Path
		}
	}

	return selector, key, nil
}

func firstOrEmpty(l []string) string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// addrDomain returns the lowercased domain part of an email address, or ""
// if addr has no '@'.
func addrDomain(addr string) string {
	i := strings.LastIndexByte(addr, '@')
	if i < 0 {
		return ""
	}
	return strings.ToLower(addr[i+1:])
}

// esld collapses a domain string to its effective second-level domain using
// the public suffix list. Unparseable domains are returned unchanged.
func esld(ctx context.Context, domain string) string {
	if domain == "" {
		return ""
	}
	d, err := dns.ParseDomain(domain)
	if err != nil {
		return domain
	}
	return publicsuffix.Lookup(ctx, d).Name()
}
