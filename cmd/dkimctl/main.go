// Command dkimctl verifies DKIM signatures on a message and evaluates the
// signer-policy engine against a task description, for manual testing and
// operational debugging.
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aj-gh/dkimguard/config"
	"github.com/aj-gh/dkimguard/dkim"
	"github.com/aj-gh/dkimguard/dkimpolicy"
	"github.com/aj-gh/dkimguard/dns"
	"github.com/aj-gh/dkimguard/mlog"
)

var log0 = mlog.New("dkimctl")

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "verify":
		cmdVerify(os.Args[2:])
	case "policy":
		cmdPolicy(os.Args[2:])
	case "config":
		cmdConfig(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: dkimctl verify message
       dkimctl policy config.conf task.json
       dkimctl config describe`)
	os.Exit(2)
}

func newRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

func xcheckf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	log.Fatalf("%s: %s", fmt.Sprintf(format, args...), err)
}

func cmdVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var nameservers string
	fs.StringVar(&nameservers, "nameservers", "", "comma-separated nameservers to query, defaults to system resolver configuration")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}

	runID := newRunID()

	msgf, err := os.Open(fs.Arg(0))
	xcheckf(err, "open message")
	defer msgf.Close()

	var servers []string
	if nameservers != "" {
		servers = strings.Split(nameservers, ",")
	}
	resolver := dns.NewStrictResolver(servers...)

	log0.Info("verify start", mlog.Field("run", runID), mlog.Field("message", fs.Arg(0)))

	results, err := dkim.Verify(context.Background(), resolver, false, dkim.DefaultPolicy, msgf, true)
	xcheckf(err, "dkim verify")

	for i, result := range results {
		var recordTxt string
		if result.Record != nil {
			recordTxt, err = result.Record.Record()
			if err != nil {
				log.Printf("warning: packing record: %s", err)
			}
		}
		fmt.Printf("Authentication-Results: dkimctl; dkim=%s (run=%s, sig=%d)\n", result.Status, runID, i)
		if result.Err != nil {
			fmt.Printf("  error: %s\n", result.Err)
		}
		if result.Sig != nil {
			fmt.Printf("  domain: %s, selector: %s, algorithm: %s\n", result.Sig.Domain.Name(), result.Sig.Selector.Name(), result.Sig.Algorithm())
		}
		if recordTxt != "" {
			fmt.Printf("  record: %s\n", recordTxt)
		}
	}
}

// policyTask is the JSON-decodable form of dkimpolicy.Task accepted on the
// command line.
type policyTask struct {
	AuthUser     string            `json:"auth_user"`
	RemoteIP     string            `json:"remote_ip"`
	EnvelopeFrom []string          `json:"envelope_from"`
	HeaderFrom   []string          `json:"header_from"`
	Recipients   []string          `json:"recipients"`
	Vars         map[string]string `json:"vars"`
	Headers      map[string]string `json:"headers"`
	Symbols      map[string]bool   `json:"symbols"`
}

func (t policyTask) toTask() *dkimpolicy.Task {
	return &dkimpolicy.Task{
		AuthUser:     t.AuthUser,
		RemoteIP:     net.ParseIP(t.RemoteIP),
		EnvelopeFrom: t.EnvelopeFrom,
		HeaderFrom:   t.HeaderFrom,
		Recipients:   t.Recipients,
		Vars:         t.Vars,
		Headers:      t.Headers,
		Symbols:      t.Symbols,
	}
}

func cmdPolicy(args []string) {
	fs := flag.NewFlagSet("policy", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		usage()
	}

	runID := newRunID()

	cfg, err := config.ParseFile(fs.Arg(0))
	xcheckf(err, "loading config")

	taskf, err := os.Open(fs.Arg(1))
	xcheckf(err, "open task")
	defer taskf.Close()

	var pt policyTask
	err = json.NewDecoder(taskf).Decode(&pt)
	xcheckf(err, "parsing task")

	log0.Info("policy start", mlog.Field("run", runID), mlog.Field("task", fs.Arg(1)))

	dec, err := dkimpolicy.Decide(context.Background(), pt.toTask(), &cfg.Policy)
	xcheckf(err, "deciding signer policy")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	xcheckf(enc.Encode(dec), "encoding decision")
}

func cmdConfig(args []string) {
	if len(args) != 1 || args[0] != "describe" {
		usage()
	}
	xcheckf(config.WriteExample(), "describing config")
}
