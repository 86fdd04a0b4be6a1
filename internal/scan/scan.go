// Package scan extracts a sanitized table id from QR codes and deep links.
//
// Inbound text arrives in three shapes: a full URL with a tableId query
// parameter, a bare "tableId=..." fragment, or a raw token straight off a
// printed code. The extractor tries each in turn and always reduces the
// result to alphanumerics, so scanner artifacts and punctuation never leak
// into a table id.
package scan

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNoTableID is returned when no table id can be recovered from the input.
var ErrNoTableID = errors.New("scan: no table id in input")

const param = "tableId"

// TableID extracts a table id from scanned or deep-linked text.
//
// Input is NFC-normalized first so visually identical codes from different
// QR generators compare equal downstream.
func TableID(input string) (string, error) {
	s := strings.TrimSpace(norm.NFC.String(input))
	if s == "" {
		return "", ErrNoTableID
	}

	// Shape 1: a parseable URL with ?tableId=...
	if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		if v := u.Query().Get(param); v != "" {
			if id := alnum(v); id != "" {
				return id, nil
			}
		}
	}

	// Shape 2: an embedded tableId= fragment.
	if i := strings.Index(s, param+"="); i >= 0 {
		v := s[i+len(param)+1:]
		if j := strings.IndexAny(v, "&#?"); j >= 0 {
			v = v[:j]
		}
		if id := alnum(v); id != "" {
			return id, nil
		}
	}

	// Shape 3: raw token, catch-all alphanumeric filter.
	if id := alnum(s); id != "" {
		return id, nil
	}
	return "", ErrNoTableID
}

// alnum strips everything but ASCII letters and digits.
func alnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}
