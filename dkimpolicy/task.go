// Package dkimpolicy decides, for a single outgoing message, whether it
// should be DKIM-signed and with which domain, selector and key.
//
// It implements only the decision: it never signs a message and never
// touches DNS. The two are kept apart because the decision depends on
// message metadata and local configuration only, while signing needs a
// private key and hashing. Package dkim only verifies; no package in this
// module signs.
package dkimpolicy

import (
	"net"
	"strings"
)

// Task bundles everything the policy engine may need to know about a
// single outgoing message. All fields are optional; callers fill in whatever their pipeline stage has available and leave
// the rest at the zero value.
type Task struct {
	// AuthUser is the SMTP AUTH identity, if the message was submitted by an
	// authenticated user. Empty if unauthenticated.
	AuthUser string

	// RemoteIP is the source IP of the submitting/relaying peer.
	RemoteIP net.IP

	// EnvelopeFrom is the SMTP MAIL FROM addresses seen for this message.
	// Normally has zero or one entries; more than one is unusual but not
	// rejected here.
	EnvelopeFrom []string

	// HeaderFrom is the address(es) found in the message's MIME From header.
	HeaderFrom []string

	// Recipients is the list of SMTP RCPT TO addresses.
	Recipients []string

	// Vars is a free-form string-keyed variable store, standing in for a
	// per-message memory pool. Used for dkim_key/dkim_selector (or their arc_
	// equivalents), set by an earlier pipeline stage.
	Vars map[string]string

	// Headers holds request/message headers consulted in HTTP-header mode.
	// Lookup is case-insensitive.
	Headers map[string]string

	// Symbols records boolean facts already established about the message by
	// earlier checks, e.g. "R_DKIM_REJECT".
	Symbols map[string]bool
}

// Header returns the value of the named header, or "" if absent. Lookup is
// case-insensitive, matching how mail headers are actually addressed.
func (t *Task) Header(name string) string {
	for k, v := range t.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// HasSymbol reports whether the named symbol was set on the task.
func (t *Task) HasSymbol(name string) bool {
	return t.Symbols[name]
}
