package dns

import (
	"context"
	"fmt"
	stdnet "net"
	"time"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func newNotFoundError(name string) error {
	return &stdnet.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

// Resolver looks up DNS TXT records. DKIM only needs TXT lookups; we keep the
// interface narrow so callers (and tests) can supply a mock without pulling in
// a full resolver implementation.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

var metricLookup = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "dkimguard_dns_lookup_duration_seconds",
		Help:    "DNS lookups, duration and result.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.100, 0.5, 1, 5, 10, 20},
	},
	[]string{
		"type",
		"result",
	},
)

// StrictResolver issues TXT queries against a configured list of nameservers
// using github.com/miekg/dns, and records lookup metrics.
type StrictResolver struct {
	// Servers are "host:port" addresses of recursive nameservers to query, tried
	// in order until one answers.
	Servers []string
	Client  *dns.Client
}

// NewStrictResolver returns a resolver querying the given nameservers. If no
// servers are given, /etc/resolv.conf is consulted.
func NewStrictResolver(servers ...string) *StrictResolver {
	if len(servers) == 0 {
		if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
			for _, s := range conf.Servers {
				servers = append(servers, s+":"+conf.Port)
			}
		}
	}
	return &StrictResolver{Servers: servers, Client: &dns.Client{Timeout: 5 * time.Second}}
}

func (r *StrictResolver) LookupTXT(ctx context.Context, name string) (txts []string, rerr error) {
	t0 := time.Now()
	defer func() {
		result := "ok"
		if rerr != nil {
			if IsNotFound(rerr) {
				result = "notfound"
			} else {
				result = "error"
			}
		}
		metricLookup.WithLabelValues("txt", result).Observe(time.Since(t0).Seconds())
	}()

	if len(r.Servers) == 0 {
		return nil, fmt.Errorf("dns: no nameservers configured")
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.Servers {
		resp, _, err := r.Client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
			for _, rr := range resp.Answer {
				if txt, ok := rr.(*dns.TXT); ok {
					txts = append(txts, joinTXT(txt.Txt))
				}
			}
			if len(txts) == 0 {
				return nil, newNotFoundError(name)
			}
			return txts, nil
		case dns.RcodeNameError:
			return nil, newNotFoundError(name)
		default:
			lastErr = fmt.Errorf("dns: server %s returned rcode %s", server, dns.RcodeToString[resp.Rcode])
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("dns: lookup of %q failed, no usable nameserver", name)
	}
	return nil, lastErr
}

// joinTXT concatenates the strings of a multi-string TXT record, as RFC 6376
// requires before tag-list parsing.
func joinTXT(strs []string) string {
	s := ""
	for _, x := range strs {
		s += x
	}
	return s
}

// MockResolver is a Resolver backed by an in-memory map, for tests.
type MockResolver struct {
	TXT map[string][]string // Keyed by fully-qualified query name, e.g. "sel._domainkey.example.com.".
	Err map[string]error
}

func (m *MockResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	if err, ok := m.Err[name]; ok {
		return nil, err
	}
	if txts, ok := m.TXT[name]; ok {
		return txts, nil
	}
	return nil, newNotFoundError(name)
}
