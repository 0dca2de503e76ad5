package dkim

import (
	"crypto/x509"
	"encoding/base64"
	"errors"
	"reflect"
	"testing"
)

func isParseErr(err error) bool {
	_, ok := err.(parseErr)
	return ok
}

func mustB64(t *testing.T, s string) []byte {
	t.Helper()
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("decoding base64 fixture: %v", err)
	}
	return buf
}

func checkParseRecord(t *testing.T, txt string, expRecord *Record, expIsDKIM bool, expErr error) *Record {
	t.Helper()

	rec, isdkim, err := ParseRecord(txt)
	switch {
	case (err == nil) != (expErr == nil):
		t.Fatalf("parsing %q: got error %v, expected %v", txt, err, expErr)
	case err != nil && !errors.Is(err, expErr) && !(isParseErr(err) && isParseErr(expErr)):
		t.Fatalf("parsing %q: got error %#v, expected %#v", txt, err, expErr)
	}
	if isdkim != expIsDKIM {
		t.Fatalf("parsing %q: got isdkim %v, expected %v", txt, isdkim, expIsDKIM)
	}
	if rec != nil && expRecord != nil {
		expRecord.PublicKey = rec.PublicKey
	}
	if !reflect.DeepEqual(rec, expRecord) {
		t.Fatalf("parsing %q: got record %#v, expected %#v", txt, rec, expRecord)
	}
	return rec
}

func TestParseRecordRejections(t *testing.T) {
	cases := []struct {
		txt     string
		expErr  error
		notDKIM bool // ParseRecord reports isdkim false for this input.
	}{
		{"", parseErr(""), true},
		{"v=DKIM1", errRecordMissingField, false}, // Missing p=.
		{"p=; v=DKIM1", errRecordVersionFirst, false},
		{"v=DKIM1; p=; ", parseErr(""), false},                                            // Whitespace after last ; is not allowed.
		{"v=dkim1; p=; ", parseErr(""), true},                                             // dkim1-value is case-sensitive.
		{"v=DKIM1; p=JDcbZ0Hpba5NKXI4UAW3G0IDhhFOxhJTDybZEwe1FeA=", errRecordBadPublicKey, false}, // Not an rsa key.
		{"v=DKIM1; p=; p=", errRecordDuplicateTag, false},
		{"v=DKIM1; k=ed25519; p=HbawiMnQXTCopHTkR0jlKQ==", errRecordBadPublicKey, false}, // Short key.
		{"v=DKIM1; k=unknown; p=", errRecordUnknownAlgorithm, false},
	}
	for _, c := range cases {
		t.Run(c.txt, func(t *testing.T) {
			checkParseRecord(t, c.txt, nil, !c.notDKIM, c.expErr)
		})
	}

	// Truly empty input isn't recognized as DKIM at all.
	t.Run("empty", func(t *testing.T) {
		checkParseRecord(t, "", nil, false, parseErr(""))
	})
	t.Run("case-sensitive dkim1", func(t *testing.T) {
		checkParseRecord(t, "v=dkim1; p=; ", nil, false, parseErr(""))
	})
}

func TestParseRecordFields(t *testing.T) {
	t.Run("defaults with unknown tag name", func(t *testing.T) {
		// Tag names are case-sensitive, so "V" is an unrecognized (ignored) tag,
		// and the record keeps its defaults apart from an explicit empty p=.
		want := &Record{Version: "DKIM1", Key: "rsa", Services: []string{"*"}, Pubkey: []byte{}}
		checkParseRecord(t, "V=DKIM2; p=;", want, true, nil)
	})

	t.Run("full field set", func(t *testing.T) {
		want := &Record{
			Version:  "DKIM1",
			Hashes:   []string{"sha1", "SHA256", "unknown"},
			Key:      "ed25519",
			Notes:    "notes...",
			Pubkey:   mustB64(t, "JDcbZ0Hpba5NKXI4UAW3G0IDhhFOxhJTDybZEwe1FeA="),
			Services: []string{"email", "tlsrpt"},
			Flags:    []string{"y", "t"},
		}
		txt := "v = DKIM1 ;   h\t=\tsha1 \t:\t SHA256:unknown\t;k=ed25519; n = notes...; p = JDc bZ0Hpb a5NK\tXI4UAW3G0IDhhFOxhJTDybZEwe1FeA=  ;s = email : tlsrpt; t = y\t: t; unknown = bogus;"
		rec := checkParseRecord(t, txt, want, true, nil)
		roundtripRecord(t, rec)
	})

	t.Run("rsa key required by default algorithm", func(t *testing.T) {
		edKey := &Record{Version: "DKIM1", Key: "rsa", Pubkey: []byte{}}
		edKey.PublicKey = nil
		want := &Record{
			Version:  "DKIM1",
			Key:      "rsa",
			Services: []string{"*"},
			Pubkey:   mustB64(t, "MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEAy3Z9ffZe8gUTJrdGuKj6IwEembmKYpp0jMa8uhudErcI4gFVUaFiiRWxc4jP/XR9NAEv3XwHm+CVcHu+L/n6VWt6g59U7vHXQicMfKGmEp2VplsgojNy/Y5X9HdVYM0azsI47NcJCDW9UVfeOHdOSgFME4F8dNtUKC4KTB2d1pqj/yixz+V8Sv8xkEyPfSRHcNXIw0LvelqJ1MRfN3hO/3uQSVrPYYk4SyV0b6wfnkQs28fpiIpGQvzlGI5WkrdOQT5k4YHaEvZDLNdwiMeVZOEL7dDoFs2mQsovm+tH0StUAZTnr61NLVFfD5V6Ip1V9zVtspPHvYSuOWwyArFZ9QIDAQAB"),
		}
		txt := "v=DKIM1;p=MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEAy3Z9ffZe8gUTJrdGuKj6IwEembmKYpp0jMa8uhudErcI4gFVUaFiiRWxc4jP/XR9NAEv3XwHm+CVcHu+L/n6VWt6g59U7vHXQicMfKGmEp2VplsgojNy/Y5X9HdVYM0azsI47NcJCDW9UVfeOHdOSgFME4F8dNtUKC4KTB2d1pqj/yixz+V8Sv8xkEyPfSRHcNXIw0LvelqJ1MRfN3hO/3uQSVrPYYk4SyV0b6wfnkQs28fpiIpGQvzlGI5WkrdOQT5k4YHaEvZDLNdwiMeVZOEL7dDoFs2mQsovm+tH0StUAZTnr61NLVFfD5V6Ip1V9zVtspPHvYSuOWwyArFZ9QIDAQAB"
		rec := checkParseRecord(t, txt, want, true, nil)
		roundtripRecord(t, rec)
		_ = edKey
	})
}

// roundtripRecord checks that serializing a parsed record and re-parsing it
// twice in a row (first from its stored Pubkey, then from the PublicKey
// recovered on the previous pass) reproduces an equal record.
func roundtripRecord(t *testing.T, rec *Record) {
	t.Helper()
	pk := rec.Pubkey
	for i := 0; i < 2; i++ {
		txt, err := rec.Record()
		if err != nil {
			t.Fatalf("serializing record: %v", err)
		}
		got, _, err := ParseRecord(txt)
		if err != nil {
			t.Fatalf("re-parsing serialized record: %v", err)
		}
		rec.Pubkey = pk
		if !reflect.DeepEqual(rec, got) {
			t.Fatalf("round trip %d: got %#v, want %#v", i, got, rec)
		}
		pk = rec.Pubkey
		rec.Pubkey = nil
	}
}

func TestParseRecordKeyTypeMismatch(t *testing.T) {
	full := &Record{
		Version:  "DKIM1",
		Hashes:   []string{"sha1", "SHA256", "unknown"},
		Key:      "ed25519",
		Notes:    "notes...",
		Pubkey:   mustB64(t, "JDcbZ0Hpba5NKXI4UAW3G0IDhhFOxhJTDybZEwe1FeA="),
		Services: []string{"email", "tlsrpt"},
		Flags:    []string{"y", "t"},
	}
	txt := "v = DKIM1 ;   h\t=\tsha1 \t:\t SHA256:unknown\t;k=ed25519; n = notes...; p = JDc bZ0Hpb a5NK\tXI4UAW3G0IDhhFOxhJTDybZEwe1FeA=  ;s = email : tlsrpt; t = y\t: t; unknown = bogus;"
	rec := checkParseRecord(t, txt, full, true, nil)

	edpkix, err := x509.MarshalPKIXPublicKey(rec.PublicKey)
	if err != nil {
		t.Fatalf("marshaling ed25519 public key: %v", err)
	}

	// An ed25519 key encoded as PKIX but claimed (by omission, since Key
	// defaults to "rsa") to be an RSA key must be rejected.
	mismatched := &Record{Version: "DKIM1", Key: "rsa", Pubkey: edpkix}
	txtx, err := mismatched.Record()
	if err != nil {
		t.Fatalf("serializing record: %v", err)
	}
	checkParseRecord(t, txtx, nil, true, errRecordBadPublicKey)
}

func TestEncodeQPSection(t *testing.T) {
	cases := []struct {
		input  string
		expect string
	}{
		{"test", "test"},
		{"hi=", "hi=3D"},
		{"hi there", "hi there"},
		{" hi", "=20hi"},
		{"t\x7f", "t=7F"},
	}
	for _, c := range cases {
		if got := encodeQPSection(c.input); got != c.expect {
			t.Errorf("encodeQPSection(%q) = %q, want %q", c.input, got, c.expect)
		}
	}
}
