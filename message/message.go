// Package message implements the thin parsed-message handle DKIM verification
// consumes: the raw header block, a case-insensitive multimap from header name
// to its raw (possibly folded) values, and the byte offset where the body
// starts.
package message

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

var ErrHeaderSeparator = errors.New("no header/body separator found")

// separators lists the header/body boundary markers this package tolerates,
// longest first so the scan doesn't stop on a prefix of a longer marker.
var separators = [][]byte{
	[]byte("\r\n\r\n"),
	[]byte("\r\n\n"),
	[]byte("\n\r\n"),
	[]byte("\n\n"),
	[]byte("\r\r"),
}

// FindBoundary scans data for the first header/body separator, tolerating
// CRLF CRLF, LF LF, CR CR, and CRLF LF / LF CRLF as produced by lossy
// transports. It returns the offset of the first byte of the body (i.e. right
// after the separator). ErrHeaderSeparator is returned if none is found.
func FindBoundary(data []byte) (int, error) {
	best := -1
	bestLen := 0
	for _, sep := range separators {
		if i := bytes.Index(data, sep); i >= 0 && (best == -1 || i < best) {
			best = i
			bestLen = len(sep)
		}
	}
	if best == -1 {
		return 0, ErrHeaderSeparator
	}
	return best + bestLen, nil
}

// Message is a parsed-message handle: header block plus body extent.
type Message struct {
	raw     []byte // Full message.
	headers []byte // Header block, including the separator that ends it.
	body    []byte

	byName map[string][]string // lower-cased header name -> raw "Name: value" lines, in message order.
}

// Parse splits data into headers and body using FindBoundary and indexes
// headers by (lower-cased) name.
func Parse(data []byte) (*Message, error) {
	bodyStart, err := FindBoundary(data)
	if err != nil {
		return nil, err
	}
	m := &Message{
		raw:     data,
		headers: data[:bodyStart],
		body:    data[bodyStart:],
		byName:  map[string][]string{},
	}
	for _, line := range splitFoldedHeaders(m.headers) {
		t := strings.SplitN(line, ":", 2)
		if len(t) != 2 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(t[0]))
		m.byName[name] = append(m.byName[name], line)
	}
	return m, nil
}

// ReadAll reads r fully and parses it. Use Parse directly when the message is
// already in memory.
func ReadAll(r io.Reader) (*Message, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// RawHeaders returns the header block exactly as it appeared in the message,
// including line folding and the separator that ends the header block.
func (m *Message) RawHeaders() string { return string(m.headers) }

// Body returns the message body, starting right after the header separator.
func (m *Message) Body() []byte { return m.body }

// HeaderValues returns the raw "Name: value" lines for a header name,
// case-insensitive, top-to-bottom message order. Folded continuation lines
// remain attached to their header.
func (m *Message) HeaderValues(name string) []string {
	return m.byName[strings.ToLower(name)]
}

// splitFoldedHeaders splits a header block into one entry per header field,
// keeping folded continuation lines attached to the field they continue.
func splitFoldedHeaders(headers []byte) []string {
	var out []string
	for _, raw := range bytes.SplitAfter(headers, []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		if (raw[0] == ' ' || raw[0] == '\t') && len(out) > 0 {
			out[len(out)-1] += string(raw)
			continue
		}
		out = append(out, string(raw))
	}
	return out
}
