// Package config loads and describes the static configuration for the
// dkimctl command, in sconf format (indented key/value, see
// github.com/mjl-/sconf).
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/mjl-/sconf"

	"github.com/aj-gh/dkimguard/dkimpolicy"
)

// Static is the top-level configuration file read by dkimctl.
type Static struct {
	LogLevel string `sconf:"optional" sconf-doc:"Log level, one of: error, info, debug, trace. Parsed but not applied: dkimctl logs at the default level, error."`

	Resolver struct {
		Nameservers []string `sconf:"optional" sconf-doc:"Nameservers for DKIM TXT records. Not read by any dkimctl command: dkimctl verify takes nameservers from its -nameservers flag, or else uses the system resolver configuration."`
	} `sconf:"optional" sconf-doc:"DNS resolver configuration for signature verification."`

	Policy dkimpolicy.Config `sconf:"optional" sconf-doc:"Signer-policy configuration, see dkimpolicy.Config for all recognized keys."`
}

// ParseFile reads and parses the configuration file at path, and prepares
// its embedded signer-policy config.
func ParseFile(path string) (*Static, error) {
	var c Static
	if err := sconf.ParseFile(path, &c); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := c.Policy.Prepare(); err != nil {
		return nil, fmt.Errorf("preparing policy config: %w", err)
	}
	return &c, nil
}

// Describe writes an annotated example configuration file to w, documenting
// every recognized key. Used by "dkimctl config describe".
func Describe(w io.Writer) error {
	var c Static
	return sconf.Describe(w, &c)
}

// WriteExample writes an example configuration file to stdout.
func WriteExample() error {
	return Describe(os.Stdout)
}
