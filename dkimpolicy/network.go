package dkimpolicy

import "net"

// NetworkSet is a named set of CIDR networks, used for sign_networks: an IP
// falling inside one of the networks carries the name it was configured
// under, e.g. so it can be logged or used as a lookup key elsewhere.
//
// Zero value is an empty set.
type NetworkSet struct {
	entries []networkEntry
}

type networkEntry struct {
	name string
	net  *net.IPNet
}

// ParseNetworkSet builds a NetworkSet from a name-to-CIDR map, e.g.
// {"office": "10.0.0.0/8", "vpn": "192.168.10.0/24"}. A bare IP without a
// mask is treated as a /32 (or /128 for IPv6).
func ParseNetworkSet(m map[string]string) (NetworkSet, error) {
	var ns NetworkSet
	for name, s := range m {
		_, ipnet, err := net.ParseCIDR(s)
		if err != nil {
			ip := net.ParseIP(s)
			if ip == nil {
				return NetworkSet{}, &net.ParseError{Type: "CIDR address", Text: s}
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			ipnet = &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
		}
		ns.entries = append(ns.entries, networkEntry{name, ipnet})
	}
	return ns, nil
}

// Lookup returns the name of the first configured network containing ip,
// and whether one was found. ParseNetworkSet reads the networks from a map,
// so which of several overlapping networks is found first is not defined.
func (ns NetworkSet) Lookup(ip net.IP) (string, bool) {
	for _, e := range ns.entries {
		if e.net.Contains(ip) {
			return e.name, true
		}
	}
	return "", false
}

// Contains reports whether ip falls inside any network in the set.
func (ns NetworkSet) Contains(ip net.IP) bool {
	_, ok := ns.Lookup(ip)
	return ok
}

// privateBlocks are the RFC 1918, RFC 4193 and loopback/link-local ranges
// used by IsLocal.
var privateBlocks = mustParseCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, len(cidrs))
	for i, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("dkimpolicy: bad built-in cidr: " + err.Error())
		}
		nets[i] = n
	}
	return nets
}

// IsLocal reports whether ip is a loopback or private-use address, per
// RFC 1918/RFC 4193 plus link-local ranges.
func IsLocal(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range privateBlocks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
