// Package dkim (DomainKeys Identified Mail signatures, RFC 6376) verifies
// DKIM signatures on email messages.
//
// Signatures are carried in DKIM-Signature headers. By signing a message, a
// domain takes responsibility for it. A message can carry signatures for
// multiple domains, and a signing domain does not necessarily match a domain
// in the From header; callers (e.g. DMARC) are responsible for that check.
//
// Signing messages is out of scope for this package; only verification is
// implemented.
package dkim

import (
	"bufio"
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aj-gh/dkimguard/dns"
	"github.com/aj-gh/dkimguard/message"
	"github.com/aj-gh/dkimguard/mlog"
	"github.com/aj-gh/dkimguard/publicsuffix"
)

var xlog = mlog.New("dkim")

var metricDKIMVerify = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "dkimguard_dkim_verify_duration_seconds",
		Help:    "DKIM verify, including lookup, duration and result.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.100, 0.5, 1, 5, 10, 20},
	},
	[]string{
		"algorithm",
		"status",
	},
)

var timeNow = time.Now // Replaced during tests.

// Status is the result of verifying a DKIM-Signature as described by RFC
// 8601, "Message Header Field for Indicating Message Authentication Status".
// See Verdict for the smaller vocabulary callers deciding message
// disposition should use instead.
type Status string

// ../rfc/8601:959 ../rfc/6376:1770 ../rfc/6376:2459

const (
	StatusNone      Status = "none"      // Message was not signed.
	StatusPass      Status = "pass"      // Message was signed and signature was verified.
	StatusFail      Status = "fail"      // Message was signed, but signature was invalid.
	StatusPolicy    Status = "policy"    // Message was signed, but signature is not accepted by policy.
	StatusNeutral   Status = "neutral"   // Message was signed, but the signature contains an error or could not be processed.
	StatusTemperror Status = "temperror" // Message could not be verified, e.g. a DNS resolve error. A later attempt may succeed.
	StatusPermerror Status = "permerror" // Message cannot be verified, e.g. a required header field is absent.
)

// Lookup errors.
var (
	ErrMultipleRecords = errors.New("dkim: multiple dkim dns records for selector and domain")
	ErrDNS             = errors.New("dkim: lookup of dkim dns record")
	ErrSyntax          = errors.New("dkim: syntax error in dkim dns record")
)

// Signature verification errors.
var (
	ErrHashAlgNotAllowed       = errors.New("dkim: hash algorithm not allowed by dns record")
	ErrKeyNotForEmail          = errors.New("dkim: dns record not allowed for use with email")
	ErrDomainIdentityMismatch  = errors.New("dkim: dns record disallows mismatch of domain (d=) and identity (i=)")
	ErrSigAlgMismatch          = errors.New("dkim: signature algorithm mismatch with dns record")
	ErrHeaderMalformed         = errors.New("dkim: mail message header is malformed")
	ErrFrom                    = errors.New("dkim: required from header not signed")
	ErrQueryMethod             = errors.New("dkim: no recognized query method")
	ErrTLD                     = errors.New("dkim: signed domain is top-level domain, above organizational domain")
	ErrPolicy                  = errors.New("dkim: signature rejected by policy")
	ErrWeakKey                 = errors.New("dkim: key is too weak, need at least 1024 bits for rsa")
	ErrLengthNotImplemented    = errors.New("dkim: l= (length) parameter in signatures not implemented")
	ErrCanonicalizationUnknown = errors.New("dkim: unknown canonicalization")
)

// Result is the conclusion of verifying one DKIM-Signature header. A message
// can have multiple signatures, each with different parameters.
//
// To decide what to do with a message, both the signature parameters and the
// DNS TXT record should be consulted.
type Result struct {
	Status Status
	Sig    *Sig    // Parsed form of DKIM-Signature header. Nil for an unparseable header.
	Record *Record // Parsed form of the DKIM DNS record for the selector and domain in Sig. Optional.
	Err    error   // If Status is not StatusPass, holds the details; check with errors.Is.
}

// Lookup looks up the DKIM TXT record and parses it.
//
// The requested record is <selector>._domainkey.<domain>. Exactly one valid
// DKIM record should be present.
func Lookup(ctx context.Context, resolver dns.Resolver, selector, domain dns.Domain) (rstatus Status, rrecord *Record, rtxt string, rerr error) {
	log := xlog.WithContext(ctx)
	start := timeNow()
	defer func() {
		log.Debugx("dkim lookup result", rerr, mlog.Field("selector", selector), mlog.Field("domain", domain), mlog.Field("status", rstatus), mlog.Field("duration", time.Since(start)))
	}()

	name := selector.ASCII + "._domainkey." + domain.ASCII + "."
	records, err := resolver.LookupTXT(ctx, name)
	if dns.IsNotFound(err) {
		// ../rfc/6376:2608
		// We return StatusPermerror per RFC; in practice a sender may start using a
		// new key before DNS changes have propagated, which argues for Temperror, but
		// we keep the RFC's prescribed behavior.
		return StatusPermerror, nil, "", fmt.Errorf("%w: dns name %q", ErrNoKey, name)
	} else if err != nil {
		return StatusTemperror, nil, "", fmt.Errorf("%w: dns name %q: %s", ErrDNS, name, err)
	}

	// ../rfc/6376:2612
	var status = StatusTemperror
	var record *Record
	var txt string
	err = nil
	for _, s := range records {
		// A record claiming v=DKIM1 but otherwise invalid is a Permerror; a record
		// that doesn't even claim to be DKIM1 is ignored (misconfigured DNS, e.g.
		// wildcard records, must not break verification of other records).
		var r *Record
		var isdkim bool
		r, isdkim, err = ParseRecord(s)
		if err != nil && isdkim {
			return StatusPermerror, nil, txt, fmt.Errorf("%w: %s", ErrSyntax, err)
		} else if err != nil {
			status = StatusTemperror
			err = fmt.Errorf("%w: not a dkim record: %s", ErrSyntax, err)
			continue
		}
		// ../rfc/6376:1609 ../rfc/6376:2584
		if record != nil {
			return StatusTemperror, nil, "", fmt.Errorf("%w: dns name %q", ErrMultipleRecords, name)
		}
		record = r
		txt = s
		err = nil
	}

	if record == nil {
		return status, nil, "", err
	}
	if len(record.Pubkey) == 0 {
		return StatusPermerror, record, txt, ErrKeyRevoked
	}
	return StatusNeutral, record, txt, nil
}

// Verify parses the DKIM-Signature headers in a message and verifies each of
// them.
//
// If the message headers cannot be found at all, an error is returned.
// Otherwise each DKIM-Signature header produces one Result.
//
// Verify does not check whether the signing domain (d=) matches the sender;
// the caller, e.g. through DMARC, is responsible for that.
//
// If ignoreTestMode is false and the DKIM record is in test mode (t=y), a
// verification failure is reported as StatusNone rather than StatusFail.
func Verify(ctx context.Context, resolver dns.Resolver, smtputf8 bool, policy func(*Sig) error, r io.ReaderAt, ignoreTestMode bool) (results []Result, rerr error) {
	log := xlog.WithContext(ctx)
	start := timeNow()
	defer func() {
		duration := float64(time.Since(start)) / float64(time.Second)
		for _, res := range results {
			var alg string
			if res.Sig != nil {
				alg = res.Sig.Algorithm()
			}
			metricDKIMVerify.WithLabelValues(alg, string(res.Status)).Observe(duration)
		}
		for _, res := range results {
			log.Debugx("dkim verify result", res.Err, mlog.Field("smtputf8", smtputf8), mlog.Field("status", res.Status), mlog.Field("duration", time.Since(start)))
		}
	}()

	if policy == nil {
		policy = DefaultPolicy
	}

	hdrs, bodyOffset, err := parseHeaders(bufio.NewReader(&message.AtReader{R: r}))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrHeaderMalformed, err)
	}

	for _, h := range hdrs {
		if h.lkey != "dkim-signature" {
			continue
		}

		sig, verifySig, err := parseSignature(h.raw, smtputf8)
		if err != nil {
			// ../rfc/6376:2503
			err := fmt.Errorf("parsing DKIM-Signature header: %w", err)
			results = append(results, Result{StatusPermerror, nil, nil, err})
			continue
		}

		hashAlg, canonHeaderSimple, canonBodySimple, err := checkSignatureParams(ctx, sig)
		if err != nil {
			results = append(results, Result{StatusPermerror, sig, nil, err})
			continue
		}

		// ../rfc/6376:2560
		if err := policy(sig); err != nil {
			err := fmt.Errorf("%w: %s", ErrPolicy, err)
			results = append(results, Result{StatusPolicy, sig, nil, err})
			continue
		}

		br := bufio.NewReader(&message.AtReader{R: r, Offset: int64(bodyOffset)})
		status, record, err := verifySignature(ctx, resolver, sig, hashAlg, canonHeaderSimple, canonBodySimple, hdrs, verifySig, br, ignoreTestMode)
		results = append(results, Result{status, sig, record, err})
	}
	return results, nil
}

// checkSignatureParams checks whether a signature is acceptable, looking only
// at the signature itself, not at the DNS record.
func checkSignatureParams(ctx context.Context, sig *Sig) (hash crypto.Hash, canonHeaderSimple, canonBodySimple bool, rerr error) {
	// "From" header required. ../rfc/6376:2122 ../rfc/6376:2546
	var from bool
	for _, h := range sig.SignedHeaders {
		if strings.EqualFold(h, "from") {
			from = true
			break
		}
	}
	if !from {
		return 0, false, false, fmt.Errorf(`%w: required "from" header not signed`, ErrFrom)
	}

	// ../rfc/6376:2550
	if sig.ExpireTime >= 0 && sig.ExpireTime < timeNow().Unix() {
		return 0, false, false, fmt.Errorf("%w: expiration time %q", ErrExpired, time.Unix(sig.ExpireTime, 0).Format(time.RFC3339))
	}

	// ../rfc/6376:2554 ../rfc/6376:3284
	// Refuse signatures that reach beyond their declared scope: look up the
	// organizational domain of a fake subdomain of the signing domain. If that
	// subdomain turns out to be the organizational domain itself, the signing
	// domain is at or above the public suffix boundary and must not be allowed
	// to sign for it.
	subdom := sig.Domain
	subdom.ASCII = "x." + subdom.ASCII
	if subdom.Unicode != "" {
		subdom.Unicode = "x." + subdom.Unicode
	}
	if orgDom := publicsuffix.Lookup(ctx, subdom); subdom.ASCII == orgDom.ASCII {
		return 0, false, false, fmt.Errorf("%w: %s", ErrTLD, sig.Domain)
	}

	h, hok := algHash(sig.AlgorithmHash)
	if !hok {
		return 0, false, false, fmt.Errorf("%w: %q", ErrInvalidA, sig.AlgorithmHash)
	}

	t := strings.SplitN(sig.Canonicalization, "/", 2)
	switch strings.ToLower(t[0]) {
	case "simple":
		canonHeaderSimple = true
	case "relaxed":
	default:
		return 0, false, false, fmt.Errorf("%w: header canonicalization %q", ErrCanonicalizationUnknown, sig.Canonicalization)
	}

	canon := "simple"
	if len(t) == 2 {
		canon = t[1]
	}
	switch strings.ToLower(canon) {
	case "simple":
		canonBodySimple = true
	case "relaxed":
	default:
		return 0, false, false, fmt.Errorf("%w: body canonicalization %q", ErrCanonicalizationUnknown, sig.Canonicalization)
	}

	// Only query method dns/txt is recognized, the default. ../rfc/6376:1268
	if len(sig.QueryMethods) > 0 {
		var dnstxt bool
		for _, m := range sig.QueryMethods {
			if strings.EqualFold(m, "dns/txt") {
				dnstxt = true
				break
			}
		}
		if !dnstxt {
			return 0, false, false, fmt.Errorf("%w: need dns/txt", ErrQueryMethod)
		}
	}

	return h, canonHeaderSimple, canonBodySimple, nil
}

// verifySignature looks up the public key in DNS and verifies the signature.
func verifySignature(ctx context.Context, resolver dns.Resolver, sig *Sig, hash crypto.Hash, canonHeaderSimple, canonBodySimple bool, hdrs []header, verifySig []byte, body *bufio.Reader, ignoreTestMode bool) (Status, *Record, error) {
	// ../rfc/6376:2604
	status, record, _, err := Lookup(ctx, resolver, sig.Selector, sig.Domain)
	if err != nil {
		return status, record, err
	}
	status, err = verifySignatureRecord(record, sig, hash, canonHeaderSimple, canonBodySimple, hdrs, verifySig, body, ignoreTestMode)
	return status, record, err
}

// verifySignatureRecord verifies a DKIM signature given the DNS record and the
// signature from the email message.
func verifySignatureRecord(r *Record, sig *Sig, hash crypto.Hash, canonHeaderSimple, canonBodySimple bool, hdrs []header, verifySig []byte, body *bufio.Reader, ignoreTestMode bool) (rstatus Status, rerr error) {
	if !ignoreTestMode {
		// ../rfc/6376:1558
		y := false
		for _, f := range r.Flags {
			if strings.EqualFold(f, "y") {
				y = true
				break
			}
		}
		if y {
			defer func() {
				if rstatus != StatusPass {
					rstatus = StatusNone
				}
			}()
		}
	}

	// ../rfc/6376:2639
	if len(r.Hashes) > 0 {
		ok := false
		for _, h := range r.Hashes {
			if strings.EqualFold(h, sig.AlgorithmHash) {
				ok = true
				break
			}
		}
		if !ok {
			return StatusPermerror, fmt.Errorf("%w: dkim dns record expects one of %q, message uses %q", ErrHashAlgNotAllowed, strings.Join(r.Hashes, ","), sig.AlgorithmHash)
		}
	}

	// ../rfc/6376:2651
	if !strings.EqualFold(r.Key, sig.AlgorithmSign) {
		return StatusPermerror, fmt.Errorf("%w: dkim dns record requires algorithm %q, message has %q", ErrSigAlgMismatch, r.Key, sig.AlgorithmSign)
	}

	// ../rfc/6376:2645
	if r.PublicKey == nil {
		return StatusPermerror, ErrKeyRevoked
	} else if rsaKey, ok := r.PublicKey.(*rsa.PublicKey); ok && rsaKey.N.BitLen() < 1024 {
		return StatusPermerror, ErrWeakKey
	}

	// ../rfc/6376:1541
	if !r.ServiceAllowed("email") {
		return StatusPermerror, ErrKeyNotForEmail
	}
	for _, t := range r.Flags {
		// ../rfc/6376:1575 ../rfc/6376:1805
		if strings.EqualFold(t, "s") && sig.Identity != nil {
			if sig.Identity.Domain.ASCII != sig.Domain.ASCII {
				return StatusPermerror, fmt.Errorf("%w: i= identity domain %q must match d= domain %q", ErrDomainIdentityMismatch, sig.Domain.ASCII, sig.Identity.Domain.ASCII)
			}
		}
	}

	if sig.Length >= 0 {
		return StatusPermerror, ErrLengthNotImplemented
	}

	// Verify the signature over the headers hash before reading (and hashing)
	// the potentially large body, so a bad signature doesn't cost a full body
	// read.
	// ../rfc/6376:1700 ../rfc/6376:2656
	dh, err := dataHash(hash.New(), canonHeaderSimple, sig, hdrs, verifySig)
	if err != nil {
		// Any error here is an invalid header field in the message, hence permanent.
		return StatusPermerror, fmt.Errorf("calculating data hash: %w", err)
	}

	rsaKey, ok := r.PublicKey.(*rsa.PublicKey)
	if !ok {
		return StatusPermerror, fmt.Errorf("%w: unrecognized signature algorithm %q", ErrKeyFail, r.Key)
	}
	if err := rsa.VerifyPKCS1v15(rsaKey, hash, dh, sig.Signature); err != nil {
		return StatusFail, fmt.Errorf("%w: rsa verification: %s", ErrBadSig, err)
	}

	bh, err := bodyHash(hash.New(), canonBodySimple, body)
	if err != nil {
		// Any error here is likely an internal read error, hence temporary.
		return StatusTemperror, fmt.Errorf("calculating body hash: %w", err)
	}
	if !bytes.Equal(sig.BodyHash, bh) {
		return StatusFail, fmt.Errorf("%w: signature bodyhash %x != calculated bodyhash %x", ErrBodyhashMismatch, sig.BodyHash, bh)
	}

	return StatusPass, nil
}

func algHash(s string) (crypto.Hash, bool) {
	if strings.EqualFold(s, "sha1") {
		return crypto.SHA1, true
	} else if strings.EqualFold(s, "sha256") {
		return crypto.SHA256, true
	}
	return 0, false
}

// bodyHash calculates the hash over the body, per the canonicalization
// algorithm named by canonSimple.
func bodyHash(h hash.Hash, canonSimple bool, body *bufio.Reader) ([]byte, error) {
	var crlf = []byte("\r\n")

	if canonSimple {
		// ../rfc/6376:864, ensure body ends with exactly one trailing crlf, even if
		// the body is empty.
		ncrlf := 0
		for {
			buf, err := body.ReadBytes('\n')
			if len(buf) == 0 && err == io.EOF {
				break
			}
			if err != nil && err != io.EOF {
				return nil, err
			}
			hascrlf := bytes.HasSuffix(buf, crlf)
			if hascrlf {
				buf = buf[:len(buf)-2]
			}
			if len(buf) > 0 {
				for ; ncrlf > 0; ncrlf-- {
					h.Write(crlf)
				}
				h.Write(buf)
			}
			if hascrlf {
				ncrlf++
			}
		}
		h.Write(crlf)
	} else {
		hb := bufio.NewWriter(h)

		// Walk the body line by line, collapsing WSP runs to a single space and
		// dropping trailing whitespace on each line. Empty (whitespace-only) lines
		// are stashed; if they turn out to be trailing, they're dropped instead of
		// hashed.
		stash := &bytes.Buffer{}
		var line bool
		var prev byte
		linesEmpty := true
		var bodynonempty bool
		var hascrlf bool
		for {
			buf, err := body.ReadBytes('\n')
			if len(buf) == 0 && err == io.EOF {
				break
			}
			if err != nil && err != io.EOF {
				return nil, err
			}
			bodynonempty = true

			hascrlf = bytes.HasSuffix(buf, crlf)
			if hascrlf {
				buf = buf[:len(buf)-2]
				// ../rfc/6376:893, ignore all whitespace at the end of lines.
				buf = bytes.TrimRight(buf, " \t")
			}

			for i, c := range buf {
				wsp := c == ' ' || c == '\t'
				if (i >= 0 || line) && wsp {
					if prev == ' ' {
						continue
					}
					prev = ' '
					c = ' '
				} else {
					prev = c
				}
				if !wsp {
					linesEmpty = false
				}
				stash.WriteByte(c)
			}
			if hascrlf {
				stash.Write(crlf)
			}
			line = !hascrlf
			if !linesEmpty {
				hb.Write(stash.Bytes())
				stash.Reset()
				linesEmpty = true
			}
		}
		// ../rfc/6376:886. Only for non-empty bodies without trailing crlf do we add
		// the missing crlf.
		if bodynonempty && !hascrlf {
			hb.Write(crlf)
		}

		hb.Flush()
	}
	return h.Sum(nil), nil
}

func dataHash(h hash.Hash, canonSimple bool, sig *Sig, hdrs []header, verifySig []byte) ([]byte, error) {
	headers := ""
	revHdrs := map[string][]header{}
	for _, h := range hdrs {
		revHdrs[h.lkey] = append([]header{h}, revHdrs[h.lkey]...)
	}

	for _, key := range sig.SignedHeaders {
		lkey := strings.ToLower(key)
		h := revHdrs[lkey]
		if len(h) == 0 {
			// Headers in h= but absent from the message are treated as empty: emit
			// nothing for them and continue. ../rfc/6376:823
			continue
		}
		revHdrs[lkey] = h[1:]
		s := string(h[0].raw)
		if canonSimple {
			// ../rfc/6376:823, add unmodified.
			headers += s
		} else {
			ch, err := relaxedCanonicalHeaderWithoutCRLF(s)
			if err != nil {
				return nil, fmt.Errorf("canonicalizing header: %w", err)
			}
			headers += ch + "\r\n"
		}
	}
	// ../rfc/6376:2377, canonicalization applies to the DKIM-Signature header too,
	// except that its own b= value was never part of verifySig to begin with.
	h.Write([]byte(headers))
	dkimSig := verifySig
	if !canonSimple {
		ch, err := relaxedCanonicalHeaderWithoutCRLF(string(verifySig))
		if err != nil {
			return nil, fmt.Errorf("canonicalizing DKIM-Signature header: %w", err)
		}
		dkimSig = []byte(ch)
	}
	h.Write(dkimSig)
	return h.Sum(nil), nil
}

// relaxedCanonicalHeaderWithoutCRLF canonicalizes a single header, which may
// be multiline, per the RELAXED algorithm, without the trailing CRLF.
func relaxedCanonicalHeaderWithoutCRLF(s string) (string, error) {
	// ../rfc/6376:831
	t := strings.SplitN(s, ":", 2)
	if len(t) != 2 {
		return "", fmt.Errorf("%w: invalid header %q", ErrHeaderMalformed, s)
	}

	// Unfold; leading WSP on continuation lines is kept and fixed up below.
	v := strings.ReplaceAll(t[1], "\r\n", "")

	// Replace one or more WSP with a single SP.
	var nv []byte
	var prev byte
	for i, c := range []byte(v) {
		if i >= 0 && c == ' ' || c == '\t' {
			if prev == ' ' {
				continue
			}
			prev = ' '
			c = ' '
		} else {
			prev = c
		}
		nv = append(nv, c)
	}

	ch := strings.ToLower(strings.TrimRight(t[0], " \t")) + ":" + strings.Trim(string(nv), " \t")
	return ch, nil
}

// header is a single header, possibly multiline.
type header struct {
	key   string // Key in original case.
	lkey  string // Key in lower-case, for canonical comparisons.
	value []byte // Literal header value, unmodified, excluding leading key and colon.
	raw   []byte // Like value, but including the original leading key and colon.
}

// parseHeaders splits a message into its header fields and returns the byte
// offset where the body starts. Headers must use standard CRLF line endings
// and folding, matching RFC 5322; the blank CRLF CRLF separator ends the
// header section. Messages using the looser separators tolerated by
// message.FindBoundary (bare LF LF, CR CR, ...) are rejected here: this scan
// stays strict so that folded multi-line headers parse unambiguously, and
// no package in this module converts such messages to CRLF.
func parseHeaders(br *bufio.Reader) ([]header, int, error) {
	var o int
	var l []header
	var key, lkey string
	var value []byte
	var raw []byte
	for {
		line, err := readline(br)
		if err != nil {
			return nil, 0, err
		}
		o += len(line)
		if bytes.Equal(line, []byte("\r\n")) {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(l) == 0 && key == "" {
				return nil, 0, fmt.Errorf("malformed message, starts with space/tab")
			}
			value = append(value, line...)
			raw = append(raw, line...)
			continue
		}
		if key != "" {
			l = append(l, header{key, lkey, value, raw})
		}
		t := bytes.SplitN(line, []byte(":"), 2)
		if len(t) != 2 {
			return nil, 0, fmt.Errorf("malformed message, header without colon")
		}

		key = strings.TrimRight(string(t[0]), " \t")
		// ../rfc/5322:1689 ../rfc/6532:193
		for _, c := range key {
			if c <= ' ' || c >= 0x7f {
				return nil, 0, fmt.Errorf("invalid header field name")
			}
		}
		if key == "" {
			return nil, 0, fmt.Errorf("empty header key")
		}
		lkey = strings.ToLower(key)
		value = append([]byte{}, t[1]...)
		raw = append([]byte{}, line...)
	}
	if key != "" {
		l = append(l, header{key, lkey, value, raw})
	}
	return l, o, nil
}

// readline reads one line ending in CRLF. Bare LF bytes before that CRLF stay
// part of the line; folded continuation lines are returned one by one and
// joined by parseHeaders.
func readline(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		if bytes.HasSuffix(line, []byte("\r\n")) {
			if len(buf) == 0 {
				return line, nil
			}
			return append(buf, line...), nil
		}
		buf = append(buf, line...)
	}
}
