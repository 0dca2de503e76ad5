package dkim

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/aj-gh/dkimguard/dns"
)

// Sig is a parsed DKIM-Signature header.
//
// String values must be compared case insensitively.
type Sig struct {
	// Required fields.
	Version       int        // Version, 1. Field "v". Accepted at any position in the tag list.
	AlgorithmSign string     // "rsa" (ed25519 signatures are out of scope here). Field "a".
	AlgorithmHash string     // "sha256" or the deprecated "sha1". Field "a".
	Signature     []byte     // Field "b".
	BodyHash      []byte     // Field "bh".
	Domain        dns.Domain // Field "d".
	SignedHeaders []string   // Duplicates are meaningful. Field "h".
	Selector      dns.Domain // Selector, for looking up the DNS TXT record at <s>._domainkey.<domain>. Field "s".

	// Optional fields.
	// Canonicalization is the transformation of header and/or body before hashing.
	// Normally two slash-separated values: header canonicalization and body
	// canonicalization. "simple" alone means "simple/simple", "relaxed" alone
	// means "relaxed/simple". Field "c".
	Canonicalization string
	Length           int64     // Body length to verify, -1 for whole body. Field "l".
	Identity         *Identity // AUID (agent/user id). Field "i".
	QueryMethods     []string  // Known value is "dns/txt". If empty, dns/txt is assumed. Field "q".
	SignTime         int64     // Unix epoch, -1 if unset. Field "t".
	ExpireTime       int64     // Unix epoch, -1 if unset. Field "x".
	CopiedHeaders    []string  // Copied header fields. Field "z".
}

// Identity is used for the optional i= field in a DKIM-Signature header. It
// has the syntax of an email address but does not necessarily represent one.
type Identity struct {
	Localpart *Localpart // Optional.
	Domain    dns.Domain
}

// String returns a value as it would appear in the i= field.
func (i Identity) String() string {
	s := "@" + i.Domain.ASCII
	if i.Localpart != nil {
		s = i.Localpart.String() + s
	}
	return s
}

func newSigWithDefaults() *Sig {
	return &Sig{
		Canonicalization: "simple/simple",
		Length:           -1,
		SignTime:         -1,
		ExpireTime:       -1,
	}
}

// Algorithm returns an algorithm string for use in the "a" field. E.g. "rsa-sha256".
func (s Sig) Algorithm() string {
	return s.AlgorithmSign + "-" + s.AlgorithmHash
}

var (
	errSigHeader         = errors.New("not a DKIM-Signature header")
	errSigDuplicateTag   = errors.New("duplicate tag")
	errSigMissingCRLF    = errors.New("missing crlf at end")
	errSigIdentityDomain = errors.New("identity domain (i=) not under domain (d=)")
	errSigExpired        = errors.New("expire time before or equal to sign time")
)

// parseSignature returns the parsed form of a DKIM-Signature header.
//
// buf must end in crlf, as it occurs in the mail message.
//
// verifySig is the DKIM-Signature header with the b= value left empty and
// without a trailing crlf, for use in header canonicalization during
// verification (the b= value must not itself be covered by the signature).
func parseSignature(buf []byte, smtputf8 bool) (sig *Sig, verifySig []byte, err error) {
	defer func() {
		if x := recover(); x == nil {
			return
		} else if xerr, ok := x.(error); ok {
			sig = nil
			verifySig = nil
			err = xerr
		} else {
			panic(x)
		}
	}()

	xerrorf := func(format string, args ...any) {
		panic(fmt.Errorf(format, args...))
	}

	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		xerrorf("%w", errSigMissingCRLF)
	}
	buf = buf[:len(buf)-2]

	ds := newSigWithDefaults()
	seen := map[string]struct{}{}
	p := tagScanner{src: string(buf), allowUTF8: smtputf8}
	name := p.scanHeaderName()
	if !strings.EqualFold(name, "DKIM-Signature") {
		xerrorf("%w", errSigHeader)
	}
	p.skipWSP()
	p.expect(":")
	p.skipWSP()

	// State TAG: read a tag name, "=", a value, optionally a trailing ";" and
	// loop. State VALUE dispatch happens in the switch below; SKIP_WS is folded
	// into skipFWS(); AFTER_TAG is the return to the top of the loop after a
	// value has been consumed. ERROR is any fail/panic, unwound by the recover
	// above.
	for {
		p.skipFWS() // SKIP_WS before TAG
		k := p.scanTagName()
		p.skipFWS() // SKIP_WS before "="
		p.expect("=")
		if k != "b" {
			p.skipFWS() // SKIP_WS before VALUE, except "b" (see below)
		}
		if _, ok := seen[k]; ok {
			xerrorf("%w: %q", errSigDuplicateTag, k)
		}
		seen[k] = struct{}{}

		switch k {
		case "v":
			ds.Version = int(p.scanDigits(10))
			if ds.Version != 1 {
				xerrorf("%w: version %d", ErrVersionInvalid, ds.Version)
			}
		case "a":
			alg, hashalg := p.scanAlgorithm()
			if !strings.EqualFold(alg, "rsa") || !(strings.EqualFold(hashalg, "sha1") || strings.EqualFold(hashalg, "sha256")) {
				xerrorf("%w: %s-%s", ErrInvalidA, alg, hashalg)
			}
			ds.AlgorithmSign, ds.AlgorithmHash = alg, hashalg
		case "b":
			// To calculate the hash, the DKIM-Signature header is fed to the hash
			// function with the value of "b=" (the signature) left out. The
			// scanner tracks all data it reads, except while skipTracking is set.
			p.skipTracking = true
			p.skipFWS()
			ds.Signature = p.scanBase64()
			p.skipFWS()
			p.skipTracking = false
		case "bh":
			ds.BodyHash = p.scanBase64()
		case "c":
			ds.Canonicalization = p.scanCanonicalization()
		case "d":
			ds.Domain = p.scanDomain()
		case "h":
			ds.SignedHeaders = p.scanHeaderList()
		case "i":
			id := p.scanIdentity()
			ds.Identity = &id
		case "l":
			ds.Length = p.scanBodyLength()
		case "q":
			ds.QueryMethods = p.scanQueryMethods()
		case "s":
			ds.Selector = p.scanSelector()
		case "t":
			ds.SignTime = p.scanTimestamp()
		case "x":
			ds.ExpireTime = p.scanTimestamp()
		case "z":
			ds.CopiedHeaders = p.scanCopiedHeaders()
		default:
			xerrorf("%w: %q", ErrUnknownTag, k)
		}
		p.skipFWS()

		if p.atEnd() {
			break
		}
		p.expect(";")
		if p.atEnd() {
			break
		}
	}

	// Cross-field checks, spec-ordered: each missing required tag gets its own
	// distinct error instead of one generic "missing tag" error.
	if _, ok := seen["b"]; !ok {
		xerrorf("%w", ErrEmptyB)
	}
	if _, ok := seen["bh"]; !ok {
		xerrorf("%w", ErrEmptyBH)
	}
	if _, ok := seen["d"]; !ok {
		xerrorf("%w", ErrEmptyD)
	}
	if _, ok := seen["s"]; !ok {
		xerrorf("%w", ErrEmptyS)
	}
	if _, ok := seen["v"]; !ok {
		xerrorf("%w", ErrEmptyV)
	}
	var haveFrom bool
	for _, h := range ds.SignedHeaders {
		if strings.EqualFold(h, "from") {
			haveFrom = true
			break
		}
	}
	if len(ds.SignedHeaders) == 0 {
		xerrorf("%w", ErrEmptyH)
	} else if !haveFrom {
		xerrorf("%w", ErrInvalidH)
	}
	if _, ok := seen["a"]; !ok {
		xerrorf("%w", ErrEmptyA)
	}

	if strings.EqualFold(ds.AlgorithmHash, "sha1") && len(ds.BodyHash) != 20 {
		xerrorf("%w: got %d bytes, must be 20 for sha1", ErrBadSig, len(ds.BodyHash))
	} else if strings.EqualFold(ds.AlgorithmHash, "sha256") && len(ds.BodyHash) != 32 {
		xerrorf("%w: got %d bytes, must be 32 for sha256", ErrBadSig, len(ds.BodyHash))
	}

	if ds.SignTime >= 0 && ds.SignTime > timeNow().Unix() {
		xerrorf("%w", ErrFuture)
	}
	// Sanity check only: expiration must be after signing time. Whether the
	// signature has actually expired by wall-clock time is decided later, in
	// checkSignatureParams, which has access to the current time at the point
	// verification actually happens rather than at parse time.
	if ds.ExpireTime >= 0 && ds.SignTime >= 0 && ds.ExpireTime <= ds.SignTime {
		xerrorf("%w", errSigExpired)
	}

	// Default identity is "@" plus domain; we leave Identity nil rather than set
	// that default, to keep the distinction between absent and explicit.
	if ds.Identity != nil && ds.Identity.Domain.ASCII != ds.Domain.ASCII && !strings.HasSuffix(ds.Identity.Domain.ASCII, "."+ds.Domain.ASCII) {
		xerrorf("%w: identity domain %q not under domain %q", errSigIdentityDomain, ds.Identity.Domain.ASCII, ds.Domain.ASCII)
	}

	return ds, []byte(p.tracked.String()), nil
}
