package dkimpolicy

import "fmt"

// DomainSource names where the signing domain is picked up from.
type DomainSource string

const (
	SourceHeader    DomainSource = "header"    // MIME From.
	SourceEnvelope  DomainSource = "envelope"  // SMTP envelope-from.
	SourceAuth      DomainSource = "auth"      // Authenticated user's domain.
	SourceRecipient DomainSource = "recipient" // First SMTP recipient.
)

// KeySource is a resolved (selector, key-or-path) pair for a signing domain,
// the value side of Config.Domain.
type KeySource struct {
	Selector string `sconf-doc:"Selector to publish the key under, e.g. the s= value used in the DKIM-Signature header."`
	Path     string `sconf-doc:"Path to the private key material (PEM), or the raw key itself if UseRedis is not set."`
}

// Config is the signer-policy configuration schema, field-for-field with
// spec §6's key table.
type Config struct {
	UseHTTPHeaders bool `sconf:"optional" sconf-doc:"Switch to HTTP-header mode: the decision is read off configured request headers instead of computed from message metadata."`

	HTTPSignHeader          string `sconf:"optional" sconf-doc:"Header whose presence triggers signing in HTTP-header mode. Default PerformDkimSign."`
	HTTPSignOnRejectHeader  string `sconf:"optional" sconf-doc:"Header that, if present, allows signing even when R_DKIM_REJECT was already set. Default SignOnAuthFailed."`
	HTTPDomainHeader        string `sconf:"optional" sconf-doc:"Header carrying the signing domain in HTTP-header mode. Default DkimDomain."`
	HTTPSelectorHeader      string `sconf:"optional" sconf-doc:"Header carrying the selector in HTTP-header mode. Default DkimSelector."`
	HTTPKeyHeader           string `sconf:"optional" sconf-doc:"Header carrying the raw key material in HTTP-header mode. Default DkimPrivateKey."`

	AuthOnly bool `sconf:"optional" sconf-doc:"Sign only messages from an authenticated SMTP user."`

	SignNetworks map[string]string `sconf:"optional" sconf-doc:"Named CIDR networks whose mail is always signed, e.g. {internal: 10.0.0.0/8}."`
	SignLocal    bool              `sconf:"optional" sconf-doc:"Sign mail originating from a loopback or private-use address."`
	SignInbound  bool              `sconf:"optional" sconf-doc:"Sign mail arriving from a non-local, unauthenticated source."`

	AllowEnvFromEmpty     bool `sconf:"optional" sconf-doc:"Allow signing when the SMTP envelope-from is empty."`
	AllowHdrFromMultiple  bool `sconf:"optional" sconf-doc:"Allow signing when the message has more than one MIME From address."`

	AllowHdrFromMismatch             bool `sconf:"optional" sconf-doc:"Allow signing when the MIME From domain and envelope-from domain differ."`
	AllowHdrFromMismatchLocal        bool `sconf:"optional" sconf-doc:"Like AllowHdrFromMismatch, but only for local senders."`
	AllowHdrFromMismatchSignNetworks bool `sconf:"optional" sconf-doc:"Like AllowHdrFromMismatch, but only for senders in SignNetworks."`
	AllowUsernameMismatch            bool `sconf:"optional" sconf-doc:"Allow signing when the authenticated user's domain differs from the selected signing domain."`

	UseDomain             DomainSource `sconf:"optional" sconf-doc:"Default source for the signing domain: header, envelope, auth or recipient."`
	UseDomainSignNetworks DomainSource `sconf:"optional" sconf-doc:"Domain source override used when the sign_networks gate matched."`
	UseDomainSignLocal    DomainSource `sconf:"optional" sconf-doc:"Domain source override used when the sign_local gate matched."`
	UseDomainSignInbound  DomainSource `sconf:"optional" sconf-doc:"Domain source override used when the sign_inbound gate matched."`

	UseESLD bool `sconf:"optional" sconf-doc:"Collapse the selected domain (and hdom/edom, for the mismatch checks) to its effective second-level domain before further processing."`

	Domain      map[string]KeySource `sconf:"optional" sconf-doc:"Per-domain selector and key/path, keyed by signing domain."`
	SelectorMap map[string]string    `sconf:"optional" sconf-doc:"Fallback selector per domain, consulted when Domain has no entry."`
	PathMap     map[string]string    `sconf:"optional" sconf-doc:"Fallback key path per domain, consulted when Domain has no entry."`

	Selector string `sconf:"optional" sconf-doc:"Global default selector, used when nothing more specific matched."`
	Path     string `sconf:"optional" sconf-doc:"Global default key path, used when nothing more specific matched."`

	TryFallback bool `sconf:"optional" sconf-doc:"Allow falling through to Selector/Path after a per-domain lookup came up empty."`
	UseRedis    bool `sconf:"optional" sconf-doc:"When set, Decide does not fall back to the global Selector/Path; selectors and keys from Domain, task variables and SelectorMap/PathMap are still used and returned unchanged. No Redis client is included."`

	// ARCFlavor switches step 7b of the native-mode resolution from reading
	// dkim_key/dkim_selector task variables to arc_key/arc_selector, for
	// callers using this engine to decide ARC seals rather than DKIM
	// signatures.
	ARCFlavor bool `sconf:"optional" sconf-doc:"Consult arc_key/arc_selector task variables instead of dkim_key/dkim_selector."`

	networks NetworkSet
}

// defaulted http header names, applied by prepare when the config leaves
// them empty.
const (
	defaultHTTPSignHeader         = "PerformDkimSign"
	defaultHTTPSignOnRejectHeader = "SignOnAuthFailed"
	defaultHTTPDomainHeader       = "DkimDomain"
	defaultHTTPSelectorHeader     = "DkimSelector"
	defaultHTTPKeyHeader          = "DkimPrivateKey"
)

// Prepare validates the config and compiles SignNetworks into a NetworkSet.
// It must be called once after loading the config and before the first call
// to Decide; Decide itself does not call it, so repeated calls to Decide
// against the same config don't repeatedly reparse the CIDR list.
func (c *Config) Prepare() error {
	if c.HTTPSignHeader == "" {
		c.HTTPSignHeader = defaultHTTPSignHeader
	}
	if c.HTTPSignOnRejectHeader == "" {
		c.HTTPSignOnRejectHeader = defaultHTTPSignOnRejectHeader
	}
	if c.HTTPDomainHeader == "" {
		c.HTTPDomainHeader = defaultHTTPDomainHeader
	}
	if c.HTTPSelectorHeader == "" {
		c.HTTPSelectorHeader = defaultHTTPSelectorHeader
	}
	if c.HTTPKeyHeader == "" {
		c.HTTPKeyHeader = defaultHTTPKeyHeader
	}
	if c.UseDomain == "" {
		c.UseDomain = SourceHeader
	}

	ns, err := ParseNetworkSet(c.SignNetworks)
	if err != nil {
		return fmt.Errorf("parsing sign_networks: %w", err)
	}
	c.networks = ns

	for name, ks := range c.Domain {
		if ks.Selector == "" || ks.Path == "" {
			return fmt.Errorf("domain %q is missing selector or path", name)
		}
	}
	return nil
}
