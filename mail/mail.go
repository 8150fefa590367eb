// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CrawX/go-pop-harvest/contentkey"
)

const (
	returnPath  = "Return-Path"
	from        = "From"
	to          = "To"
	deliveredTo = "Delivered-To"
	subject     = "Subject"
	date        = "Date"
)

// DefaultHeadersToFilter are the header fields kept by TrimHeader unless
// configured otherwise.
var DefaultHeadersToFilter = []string{from, returnPath, to, date, subject, deliveredTo}

// headerDigest is the canonical serialization the message hash is computed
// over. Field order is fixed by the struct.
type headerDigest struct {
	Raw  string `json:"raw"`
	Size int    `json:"size"`
}

// HeaderHash is the message level dedup key of a header block as listed by
// the server.
func HeaderHash(raw string, size int) (string, error) {
	serialized, err := json.Marshal(headerDigest{Raw: raw, Size: size})
	if err != nil {
		return "", fmt.Errorf("could not serialize header: %w", err)
	}

	return contentkey.Of(serialized).String(), nil
}

// TrimHeader reduces a header block to the named fields. Return-Path is only
// kept when it holds a valid address, regardless of keep.
func TrimHeader(raw string, keep []string) string {
	kept := []string{}
	for _, f := range parseFields(raw) {
		if strings.EqualFold(f.name, returnPath) {
			if _, ok := ParseAddress(f.value); ok {
				kept = append(kept, f.raw)
			}
			continue
		}

		for _, name := range keep {
			if strings.EqualFold(f.name, name) {
				kept = append(kept, f.raw)
				break
			}
		}
	}

	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "\r\n") + "\r\n"
}

func ShortSubject(subject string) string {
	if (len(subject)) > 30 {
		subject = subject[:30] + "..."
	}
	return subject
}
