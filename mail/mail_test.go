// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportHeader = "From: a@x.com\r\nTo: b@y.com\r\nSubject: Report\r\n"

func readHeader(t *testing.T, name string) string {
	t.Helper()
	raw, err := os.ReadFile(path.Join("testdata", name))
	require.NoError(t, err)
	return string(raw)
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"bare", "a@x.com", "a@x.com", true},
		{"brackets", "<bounce@reports.example.com>", "bounce@reports.example.com", true},
		{"displayname", "\"Reports\" <reports@example.com>", "reports@example.com", true},
		{"padded", "  b@y.com ", "b@y.com", true},
		{"empty", "", "", false},
		{"noat", "not-an-address", "", false},
		{"nodomain", "a@", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			address, ok := ParseAddress(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, address)
		})
	}
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected []field
	}{
		{
			"folded",
			"To: a@x.com,\r\n\tb@y.com\r\nSubject: Report\r\n",
			[]field{
				{name: "To", value: "a@x.com, b@y.com", raw: "To: a@x.com,\r\n\tb@y.com"},
				{name: "Subject", value: "Report", raw: "Subject: Report"},
			},
		},
		{
			"stopsatbody",
			"Subject: Report\r\n\r\nTo: not@header.com\r\n",
			[]field{{name: "Subject", value: "Report", raw: "Subject: Report"}},
		},
		{
			"malformed",
			"From: a@x.com\r\nthis is no header\r\nTo: b@y.com\r\n",
			[]field{{name: "From", value: "a@x.com", raw: "From: a@x.com"}},
		},
		{
			"leadingcontinuation",
			" folded\r\nFrom: a@x.com\r\n",
			[]field{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseFields(tc.header))
		})
	}
}

func TestSenderAndReceivers(t *testing.T) {
	header := readHeader(t, "report.hdr")

	sender, ok := Sender(header)
	assert.True(t, ok)
	assert.Equal(t, "bounce@reports.example.com", sender)

	assert.Equal(t, []string{"inbox@example.com", "accounting@example.com"}, Receivers(header))

	_, ok = Sender("Subject: nothing\r\n")
	assert.False(t, ok)
}

func TestSenderSkipsInvalidCandidates(t *testing.T) {
	header := "From: undisclosed\r\nReturn-Path: <a@x.com>\r\nTo: b@y.com\r\n"
	sender, ok := Sender(header)
	assert.True(t, ok)
	assert.Equal(t, "a@x.com", sender)
}

func TestWhitelist(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		senders   []string
		receivers []string
		expected  bool
	}{
		{"both", reportHeader, []string{"a@x.com"}, []string{"b@y.com"}, true},
		{"caseinsensitive", "From: A@X.com\r\nTo: B@y.COM\r\n", []string{"a@X.COM"}, []string{"b@y.com"}, true},
		{"senderonly", reportHeader, []string{"a@x.com"}, []string{"c@z.com"}, false},
		{"receiveronly", reportHeader, []string{"c@z.com"}, []string{"b@y.com"}, false},
		{"noreceiver", "From: a@x.com\r\nSubject: Report\r\n", []string{"a@x.com"}, []string{"b@y.com"}, false},
		{"oneofmany", "From: a@x.com\r\nTo: c@z.com, b@y.com\r\n", []string{"a@x.com"}, []string{"b@y.com"}, true},
		{"multipletolines", "From: a@x.com\r\nTo: c@z.com\r\nTo: b@y.com\r\n", []string{"a@x.com"}, []string{"b@y.com"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			whitelist := NewWhitelist(tc.senders, tc.receivers)
			assert.Equal(t, tc.expected, whitelist.Allows(tc.header))
		})
	}
}

func TestHeaderHash(t *testing.T) {
	hash, err := HeaderHash(reportHeader, 120)
	require.NoError(t, err)
	assert.Equal(t, "a7a08ac03c82ab90d3eea2d6b745a5cc", hash)

	again, err := HeaderHash(reportHeader, 120)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	otherSize, err := HeaderHash(reportHeader, 121)
	require.NoError(t, err)
	assert.NotEqual(t, hash, otherSize)
}

func TestTrimHeader(t *testing.T) {
	header := readHeader(t, "report.hdr")

	trimmed := TrimHeader(header, []string{"From", "To", "Date", "Subject", "Delivered-To"})
	assert.Equal(t,
		"Return-Path: <bounce@reports.example.com>\r\n"+
			"Delivered-To: inbox@example.com\r\n"+
			"From: \"Reports\" <reports@example.com>\r\n"+
			"To: inbox@example.com,\r\n Accounting <accounting@example.com>, not-an-address\r\n"+
			"Subject: =?windows-1252?Q?Preis=FCbersicht_=80?=\r\n"+
			"Date: Tue, 05 Mar 2024 10:00:00 +0100\r\n",
		trimmed,
	)

	assert.Equal(t, "Subject: x\r\n", TrimHeader("Return-Path: <>\r\nSubject: x\r\n", []string{"Subject", "Return-Path"}))
	assert.Equal(t, "", TrimHeader("X-Mailer: y\r\n", []string{"Subject"}))
}

func TestInfo(t *testing.T) {
	info := Info(readHeader(t, "report.hdr"))

	assert.Equal(t, []string{"bounce@reports.example.com"}, info.From)
	assert.Equal(t, []string{"inbox@example.com", "accounting@example.com"}, info.To)
	require.NotNil(t, info.Subject)
	assert.Equal(t, "Preisübersicht €", *info.Subject)
	require.NotNil(t, info.Date)
	assert.True(t, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC).Equal(*info.Date))
}

func TestInfoMissingFields(t *testing.T) {
	info := Info("From: a@x.com\r\nDate: yesterday\r\n")

	assert.Empty(t, info.From)
	assert.Empty(t, info.To)
	assert.Nil(t, info.Subject)
	assert.Nil(t, info.Date)
}

func TestShortSubject(t *testing.T) {
	assert.Equal(t, "Report", ShortSubject("Report"))
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyzabcd...", ShortSubject("abcdefghijklmnopqrstuvwxyzabcdefgh"))
}
