package dkimpolicy

import (
	"net"
	"testing"
)

func TestNetworkSetLookup(t *testing.T) {
	ns, err := ParseNetworkSet(map[string]string{
		"office": "10.0.0.0/8",
		"single": "192.168.1.5",
	})
	if err != nil {
		t.Fatalf("ParseNetworkSet: %v", err)
	}

	name, ok := ns.Lookup(net.ParseIP("10.1.2.3"))
	if !ok || name != "office" {
		t.Fatalf("got %q, %v, expected office, true", name, ok)
	}

	name, ok = ns.Lookup(net.ParseIP("192.168.1.5"))
	if !ok || name != "single" {
		t.Fatalf("got %q, %v, expected single, true", name, ok)
	}

	if ns.Contains(net.ParseIP("203.0.113.1")) {
		t.Fatalf("expected no match for unrelated ip")
	}
}

func TestIsLocal(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.5.5.5", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"203.0.113.5", false},
	}
	for _, c := range cases {
		got := IsLocal(net.ParseIP(c.ip))
		if got != c.want {
			t.Errorf("IsLocal(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}
