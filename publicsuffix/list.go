// Package publicsuffix implements a public suffix list to look up the
// organizational (effective second-level) domain for a given host name.
// Organizational domains can be registered, one level below a public suffix.
//
// example.com has public suffix "com", and example.co.uk has public suffix
// "co.uk". The organizational domain of sub.example.com is example.com, and
// of sub.example.co.uk is example.co.uk.
package publicsuffix

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/idna"

	"github.com/aj-gh/dkimguard/dns"
)

// labels map from utf8 labels to labels for subdomains. The end is marked with
// an empty string as label.
type labels map[string]labels

// List is a public suffix list.
type List struct {
	includes, excludes labels
}

var defaultList List

func init() {
	l, err := ParseList(strings.NewReader(curatedSuffixList))
	if err != nil {
		panic("publicsuffix: parsing built-in list: " + err.Error())
	}
	defaultList = l
}

// ParseList parses a public suffix list in the format published at
// https://publicsuffix.org/list/. Only the "ICANN DOMAINS" section is used.
func ParseList(r io.Reader) (List, error) {
	list := List{labels{}, labels{}}
	br := bufio.NewReader(r)

	var icannDomains bool
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "// ===BEGIN ICANN DOMAINS==="):
				icannDomains = true
				continue
			case strings.HasPrefix(line, "// ===END ICANN DOMAINS==="):
				icannDomains = false
				continue
			case line == "" || strings.HasPrefix(line, "//") || !icannDomains:
				continue
			}
			l := list.includes
			var t []string
			if strings.HasPrefix(line, "!") {
				line = line[1:]
				l = list.excludes
				t = strings.Split(line, ".")
				if len(t) == 1 {
					continue
				}
			} else {
				t = strings.Split(line, ".")
			}
			for i := len(t) - 1; i >= 0; i-- {
				w := t[i]
				if w == "" {
					break
				}
				if w != "*" {
					if u, err := idna.Lookup.ToUnicode(w); err == nil {
						w = u
					}
				}
				m, ok := l[w]
				if !ok {
					m = labels{}
					l[w] = m
				}
				l = m
			}
			l[""] = nil
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return List{}, fmt.Errorf("reading public suffix list: %w", err)
		}
	}
	return list, nil
}

// Lookup returns the organizational domain for domain, using the built-in
// list. If domain is already at or above the organizational boundary, it is
// returned unchanged.
func Lookup(ctx context.Context, domain dns.Domain) dns.Domain {
	return defaultList.Lookup(ctx, domain)
}

// Lookup returns the organizational domain for domain according to l.
func (l List) Lookup(ctx context.Context, domain dns.Domain) dns.Domain {
	t := strings.Split(domain.Name(), ".")

	var n int
	if nexcl, ok := match(l.excludes, t); ok {
		n = nexcl
	} else if nincl, ok := match(l.includes, t); ok {
		n = nincl + 1
	} else {
		n = 2
	}
	if len(t) < n {
		return domain
	}
	name := strings.Join(t[len(t)-n:], ".")
	if isASCII(name) {
		return dns.Domain{ASCII: name}
	}
	ta := strings.Split(domain.ASCII, ".")
	ascii := strings.Join(ta[len(ta)-n:], ".")
	return dns.Domain{ASCII: ascii, Unicode: name}
}

func isASCII(s string) bool {
	for _, c := range s {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

func match(l labels, t []string) (int, bool) {
	if len(t) == 0 {
		_, ok := l[""]
		return 0, ok
	}
	s := t[len(t)-1]
	t = t[:len(t)-1]
	n := 0
	if m, mok := l[s]; mok {
		if nn, sok := match(m, t); sok {
			n = 1 + nn
		}
	}
	if m, mok := l["*"]; mok {
		if nn, sok := match(m, t); sok && nn >= n {
			n = 1 + nn
		}
	}
	_, mok := l[""]
	return n, n > 0 || mok
}
