// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"mime"
	stdmail "net/mail"

	"github.com/CrawX/go-pop-harvest/domain"

	"github.com/emersion/go-message/charset"
)

// Info derives the ledger summary of a header block: senders from
// Return-Path, receivers from Delivered-To and To.
func Info(header string) domain.EmailInfo {
	fields := parseFields(header)
	info := domain.EmailInfo{
		From: []string{},
		To:   []string{},
	}

	seen := map[string]struct{}{}
	for _, value := range values(fields, returnPath) {
		if address, ok := ParseAddress(value); ok {
			info.From = appendUnique(info.From, seen, address)
		}
	}

	seen = map[string]struct{}{}
	for _, value := range values(fields, deliveredTo) {
		info.To = appendUnique(info.To, seen, splitAddresses(value)...)
	}
	for _, value := range values(fields, to) {
		info.To = appendUnique(info.To, seen, splitAddresses(value)...)
	}

	if subjects := values(fields, subject); len(subjects) > 0 {
		decoded := DecodeSubject(subjects[0])
		info.Subject = &decoded
	}

	if dates := values(fields, date); len(dates) > 0 {
		if parsed, err := stdmail.ParseDate(dates[0]); err == nil {
			info.Date = &parsed
		}
	}

	return info
}

// DecodeSubject decodes RFC 2047 encoded words and falls back to the raw
// value if that fails.
func DecodeSubject(raw string) string {
	dec := &mime.WordDecoder{
		CharsetReader: charset.Reader,
	}
	decoded, err := dec.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return decoded
}
