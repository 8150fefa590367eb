// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailtest builds raw multipart messages for tests.
package mailtest

import (
	"encoding/base64"
	"strings"
)

const Boundary = "=_harvest_boundary"

// Header is a minimal header block accepted by a whitelist of a@x.com and
// b@y.com.
func Header(subject string) string {
	return "Return-Path: <a@x.com>\r\n" +
		"From: a@x.com\r\n" +
		"To: b@y.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: Tue, 05 Mar 2024 10:00:00 +0000\r\n"
}

// Message joins a header block with multipart parts.
func Message(header string, parts ...string) []byte {
	b := strings.Builder{}
	b.WriteString(header)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"" + Boundary + "\"\r\n\r\n")
	b.WriteString("--" + Boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString("Please find the report attached.\r\n")
	for _, part := range parts {
		b.WriteString("--" + Boundary + "\r\n")
		b.WriteString(part)
	}
	b.WriteString("--" + Boundary + "--\r\n")
	return []byte(b.String())
}

// Attachment is a base64 encoded part with its body wrapped at 76 columns.
func Attachment(contentType string, filename string, content []byte) string {
	return AttachmentPayload(contentType, filename, Encode(content))
}

func AttachmentPayload(contentType string, filename string, payload string) string {
	return "Content-Type: " + contentType + "; name=\"" + filename + "\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"Content-Disposition: attachment; filename=\"" + filename + "\"\r\n\r\n" +
		payload + "\r\n"
}

// Encode returns the wrapped base64 text as it appears in the message body.
func Encode(content []byte) string {
	encoded := base64.StdEncoding.EncodeToString(content)
	lines := []string{}
	for len(encoded) > 76 {
		lines = append(lines, encoded[:76])
		encoded = encoded[76:]
	}
	lines = append(lines, encoded)
	return strings.Join(lines, "\r\n")
}
