package dkim

import (
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Record is a DKIM DNS record, served on <selector>._domainkey.<domain> for a
// given selector and domain (s= and d= in the DKIM-Signature).
//
// The record is a semicolon-separated list of "="-separated field value pairs.
// Strings should be compared case-insensitively, e.g. k=ed25519 is equivalent to k=ED25519.
//
// Example:
//
//	v=DKIM1;h=sha256;k=ed25519;p=ln5zd/JEX4Jy60WAhUOv33IYm2YZMyTQAdr9stML504=
type Record struct {
	Version  string   // Version, fixed "DKIM1" (case sensitive). Field "v".
	Hashes   []string // Acceptable hash algorithms, e.g. "sha1", "sha256". Optional, defaults to all algorithms. Field "h".
	Key      string   // Key type, "rsa" or "ed25519". Optional, default "rsa". Field "k".
	Notes    string   // Debug notes. Field "n".
	Pubkey   []byte   // Public key, as base64 in record. If empty, the key has been revoked. Field "p".
	Services []string // Service types. Optional, default "*" for all services. Other values: "email". Field "s".
	Flags    []string // Flags, colon-separated. Optional, default is no flags. Other values: "y" for testing DKIM, "s" for "i=" must have same domain as "d" in signatures. Field "t".

	PublicKey any `json:"-"` // Parsed form of public key, an *rsa.PublicKey or ed25519.PublicKey.
}

// ../rfc/6376:1438

// ServiceAllowed returns whether service s is allowed by this key.
//
// The optional field "s" can specify purposes for which the key can be used. If
// value was specified, both "*" and "email" are enough for use with DKIM.
func (r *Record) ServiceAllowed(s string) bool {
	if len(r.Services) == 0 {
		return true
	}
	for _, ss := range r.Services {
		if ss == "*" || strings.EqualFold(s, ss) {
			return true
		}
	}
	return false
}

// Record returns a DNS TXT record that should be served at
// <selector>._domainkey.<domain>.
//
// Only values that are not the default values are included.
func (r *Record) Record() (string, error) {
	if r.Version != "DKIM1" {
		return "", fmt.Errorf("bad version, must be \"DKIM1\"")
	}

	fields := []string{"v=DKIM1"}
	if len(r.Hashes) > 0 {
		fields = append(fields, "h="+strings.Join(r.Hashes, ":"))
	}
	if r.Key != "" && !strings.EqualFold(r.Key, "rsa") {
		fields = append(fields, "k="+r.Key)
	}
	if r.Notes != "" {
		fields = append(fields, "n="+encodeQPSection(r.Notes))
	}
	if len(r.Services) > 0 && (len(r.Services) != 1 || r.Services[0] != "*") {
		fields = append(fields, "s="+strings.Join(r.Services, ":"))
	}
	if len(r.Flags) > 0 {
		fields = append(fields, "t="+strings.Join(r.Flags, ":"))
	}

	pub, err := r.encodedPublicKey()
	if err != nil {
		return "", err
	}
	fields = append(fields, "p="+base64.StdEncoding.EncodeToString(pub))

	return strings.Join(fields, ";"), nil
}

// encodedPublicKey returns the raw bytes to put in p=: the stored Pubkey if
// present, otherwise a freshly marshaled PublicKey. A missing public key is
// valid and means the key has been revoked. ../rfc/6376:1501
func (r *Record) encodedPublicKey() ([]byte, error) {
	if len(r.Pubkey) > 0 || r.PublicKey == nil {
		return r.Pubkey, nil
	}
	switch k := r.PublicKey.(type) {
	case *rsa.PublicKey:
		pk, err := x509.MarshalPKIXPublicKey(k)
		if err != nil {
			return nil, fmt.Errorf("marshal rsa public key: %v", err)
		}
		return pk, nil
	case ed25519.PublicKey:
		return []byte(k), nil
	default:
		return nil, fmt.Errorf("unknown public key type %T", r.PublicKey)
	}
}

// encodeQPSection encodes a string as a record's qp-section (n= notes),
// the inverse of tagScanner.scanQPSection. ../rfc/2045:1260
func encodeQPSection(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i, c := range []byte(s) {
		if i > 0 && (c == ' ' || c == '\t') || c > ' ' && c < 0x7f && c != '=' {
			b.WriteByte(c)
		} else {
			b.WriteByte('=')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xf])
		}
	}
	return b.String()
}

var (
	errRecordDuplicateTag     = errors.New("duplicate tag")
	errRecordMissingField     = errors.New("missing field")
	errRecordBadPublicKey     = errors.New("bad public key")
	errRecordUnknownAlgorithm = errors.New("unknown algorithm")
	errRecordVersionFirst     = errors.New("first field must be version")
)

// recordFieldScanners dispatches list-valued and scalar record fields by tag
// name, once "v" (handled separately below, since it gates isdkim and must
// come first) and unrecognized tags (skipped, see default case in
// ParseRecord) are out of the way.
var recordFieldScanners = map[string]func(rec *Record, p *tagScanner){
	"h": func(rec *Record, p *tagScanner) { rec.Hashes = scanColonList(p) },
	"k": func(rec *Record, p *tagScanner) { rec.Key = p.scanHyphenatedWord() },
	"n": func(rec *Record, p *tagScanner) { rec.Notes = p.scanQPSection() },
	"p": func(rec *Record, p *tagScanner) { rec.Pubkey = p.scanBase64() },
	"s": func(rec *Record, p *tagScanner) { rec.Services = scanColonList(p) },
	"t": func(rec *Record, p *tagScanner) { rec.Flags = scanColonList(p) },
}

// scanColonList scans one or more colon-separated hyphenated-words, used by
// the h=, s= and t= fields. ../rfc/6376:1463 ../rfc/6376:1533 ../rfc/6376:1554
func scanColonList(p *tagScanner) []string {
	l := []string{p.scanHyphenatedWord()}
	for p.peekAfterFWS(":") {
		p.skipFWS()
		p.expect(":")
		p.skipFWS()
		l = append(l, p.scanHyphenatedWord())
	}
	return l
}

// ParseRecord parses a DKIM DNS TXT record.
//
// If the record is a dkim record, but an error occurred, isdkim will be true and
// err will be the error (KEYFAIL). Such errors must be treated differently from
// parse errors where the record does not appear to be DKIM, which can happen
// with misconfigured DNS (e.g. wildcard records).
func ParseRecord(s string) (record *Record, isdkim bool, err error) {
	defer func() {
		x := recover()
		if x == nil {
			return
		}
		if xerr, ok := x.(error); ok {
			record = nil
			err = xerr
			return
		}
		panic(x)
	}()

	xerrorf := func(format string, args ...any) {
		panic(fmt.Errorf(format, args...))
	}

	record = &Record{
		Version:  "DKIM1",
		Key:      "rsa",
		Services: []string{"*"},
	}

	p := tagScanner{src: s, skipTracking: true}
	seen := map[string]struct{}{}
	// ../rfc/6376:655 ../rfc/6376:656 ../rfc/6376-eid5070 ../rfc/6376:658 ../rfc/6376-eid5070 ../rfc/6376:1438
	for {
		p.skipFWS()
		k := p.scanTagName()
		p.skipFWS()
		p.expect("=")
		p.skipFWS()
		// Tags are case-sensitive and may not repeat. ../rfc/6376:679 ../rfc/6376:683
		if _, ok := seen[k]; ok {
			xerrorf("%w: %q", errRecordDuplicateTag, k)
		}
		seen[k] = struct{}{}

		if k == "v" {
			// ../rfc/6376:1443
			v := p.expect("DKIM1")
			// Setting Version is a signal this appears to be a valid record. We
			// must not treat e.g. DKIM1.1 as valid, so explicitly check there is
			// no more data before deciding this record is DKIM.
			p.skipFWS()
			if !p.atEnd() {
				p.expect(";")
			}
			record.Version = v
			if len(seen) != 1 {
				xerrorf("%w", errRecordVersionFirst)
			}
			isdkim = true
			if p.atEnd() {
				break
			}
			continue
		}

		if scan, ok := recordFieldScanners[k]; ok {
			scan(record, &p)
		} else {
			// Unknown fields must be ignored. ../rfc/6376:692 ../rfc/6376:1439
			for !p.atEnd() && !p.at(";") {
				p.nextRune()
			}
		}

		isdkim = true
		p.skipFWS()
		if p.atEnd() {
			break
		}
		p.expect(";")
		if p.atEnd() {
			break
		}
	}

	if _, ok := seen["p"]; !ok {
		xerrorf("%w: public key", errRecordMissingField)
	}

	if err := record.resolvePublicKey(); err != nil {
		xerrorf("%w", err)
	}

	return record, true, nil
}

// resolvePublicKey validates and decodes Pubkey per the key algorithm
// (Key), setting PublicKey on success. An empty Pubkey (KEYREVOKED) is left
// alone: the caller decides how to treat a revoked key.
func (r *Record) resolvePublicKey() error {
	switch strings.ToLower(r.Key) {
	case "", "rsa":
		if len(r.Pubkey) == 0 {
			return nil
		}
		pk, err := x509.ParsePKIXPublicKey(r.Pubkey)
		if err != nil {
			return fmt.Errorf("%w: %s", errRecordBadPublicKey, err)
		}
		rsaKey, ok := pk.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: got %T, need an RSA key", errRecordBadPublicKey, pk)
		}
		r.PublicKey = rsaKey
		return nil
	case "ed25519":
		if len(r.Pubkey) == 0 {
			return nil
		}
		if len(r.Pubkey) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: got %d bytes, need %d", errRecordBadPublicKey, len(r.Pubkey), ed25519.PublicKeySize)
		}
		r.PublicKey = ed25519.PublicKey(r.Pubkey)
		return nil
	default:
		return fmt.Errorf("%w: %q", errRecordUnknownAlgorithm, r.Key)
	}
}
