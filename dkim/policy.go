package dkim

import (
	"fmt"
	"strings"
)

// defaultPolicyRules are the checks DefaultPolicy runs, in order. Splitting
// them out lets a caller assembling a custom policy (see Verify) reuse
// individual rules instead of all-or-nothing.
var defaultPolicyRules = []struct {
	name  string
	check func(sig *Sig) error
}{
	{"length", rejectPartialBody},
	{"subject", requireSignedSubject},
}

// rejectPartialBody rejects signatures with a body limit (l=): there's no
// good rule for how much of a body must be covered, and an unsigned tail can
// carry attacker content past a signed prefix. ../rfc/6376:1558
func rejectPartialBody(sig *Sig) error {
	if sig.Length >= 0 {
		return fmt.Errorf("l= for length not acceptable")
	}
	return nil
}

// requireSignedSubject rejects signatures that don't cover Subject in h=.
// From is always required by the verifier itself and isn't checked again
// here. To, Cc and Message-ID are common omissions from h= in the wild
// (various large mail providers and newsletter senders), so they aren't
// required either. ../rfc/6376:2139
func requireSignedSubject(sig *Sig) error {
	for _, h := range sig.SignedHeaders {
		if strings.EqualFold(h, "subject") {
			return nil
		}
	}
	return fmt.Errorf("required header fields missing from signature: subject")
}

// DefaultPolicy is the baseline signature policy applied when a caller of
// Verify doesn't supply its own. ../rfc/6376:2088 ../rfc/6376:2307 ../rfc/6376:2706
func DefaultPolicy(sig *Sig) error {
	for _, rule := range defaultPolicyRules {
		if err := rule.check(sig); err != nil {
			return err
		}
	}
	return nil
}
