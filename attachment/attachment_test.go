// SPDX-License-Identifier: GPL-3.0-or-later
package attachment

import (
	"bytes"
	"testing"

	"github.com/CrawX/go-pop-harvest/contentkey"
	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/mailtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	csvContent  = []byte("date;amount\r\n2024-03-01;12.50\r\n2024-03-02;7.25\r\n")
	xlsxContent = bytes.Repeat([]byte{0x50, 0x4b, 0x03, 0x04, 0x14, 0x00}, 40)
	pdfContent  = []byte("%PDF-1.4 fake")
)

func keyOf(content []byte) string {
	return contentkey.OfString(mailtest.Encode(content)).String()
}

func TestHasSpreadsheet(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		expected bool
	}{
		{"csv", mailtest.Message(mailtest.Header("r"), mailtest.Attachment("text/csv", "report.csv", csvContent)), true},
		{"uppercase", []byte("content-disposition: ATTACHMENT; filename=\"REPORT.XLSX\""), true},
		{"pdfonly", mailtest.Message(mailtest.Header("r"), mailtest.Attachment("application/pdf", "report.pdf", pdfContent)), false},
		{"inline", []byte("Content-Disposition: inline; filename=\"report.csv\""), false},
		{"none", []byte("Subject: hello\r\n\r\nbody\r\n"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HasSpreadsheet(tc.body))
		})
	}
}

func TestExtract(t *testing.T) {
	extractor := NewRegexExtractor()

	tests := []struct {
		name     string
		body     []byte
		expected []*domain.Attachment
	}{
		{
			name: "csv",
			body: mailtest.Message(mailtest.Header("r"), mailtest.Attachment("text/csv", "report.csv", csvContent)),
			expected: []*domain.Attachment{{
				ContentHash:      keyOf(csvContent),
				OriginalFilename: "report.csv",
				Extension:        "csv",
				MimeType:         "application/octet-stream",
				Content:          csvContent,
				SizeBytes:        len(csvContent),
			}},
		},
		{
			name: "uppercasexlsx",
			body: mailtest.Message(mailtest.Header("r"), mailtest.Attachment("application/octet-stream", "REPORT.XLSX", xlsxContent)),
			expected: []*domain.Attachment{{
				ContentHash:      keyOf(xlsxContent),
				OriginalFilename: "REPORT.XLSX",
				Extension:        "xlsx",
				MimeType:         "application/vnd.ms-excel",
				Content:          xlsxContent,
				SizeBytes:        len(xlsxContent),
			}},
		},
		{
			name:     "pdfonly",
			body:     mailtest.Message(mailtest.Header("r"), mailtest.Attachment("application/pdf", "report.pdf", pdfContent)),
			expected: []*domain.Attachment{},
		},
		{
			name:     "undecodable",
			body:     mailtest.Message(mailtest.Header("r"), mailtest.AttachmentPayload("text/csv", "broken.csv", "@@@@ not base64 ####")),
			expected: []*domain.Attachment{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractor.Extract(tc.body))
		})
	}
}

func TestExtractKeepsOnlyAllowedAttachments(t *testing.T) {
	body := mailtest.Message(mailtest.Header("r"),
		mailtest.Attachment("application/pdf", "summary.pdf", pdfContent),
		mailtest.Attachment("text/csv", "report.csv", csvContent),
	)

	attachments := NewRegexExtractor().Extract(body)
	require.Len(t, attachments, 1)
	assert.Equal(t, "report.csv", attachments[0].OriginalFilename)
	assert.Equal(t, keyOf(csvContent)+".csv", attachments[0].Filename())
}

func TestExtractSamePayloadTwice(t *testing.T) {
	body := mailtest.Message(mailtest.Header("r"),
		mailtest.Attachment("text/csv", "report.csv", csvContent),
		mailtest.Attachment("text/csv", "copy.csv", csvContent),
	)

	attachments := NewRegexExtractor().Extract(body)
	require.Len(t, attachments, 1)
	assert.Equal(t, "report.csv", attachments[0].OriginalFilename)
}

func TestExtractContentTypeFallback(t *testing.T) {
	forwarded := "Content-Type: text/plain\r\n\r\n" +
		"Original headers:\r\n" +
		"Content-Disposition: attachment; filename=\"data.csv\"\r\n"
	part := "Content-Type: application/octet-stream; name=\"data.csv\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"Content-Disposition: inline\r\n\r\n" +
		mailtest.Encode(csvContent) + "\r\n"
	body := mailtest.Message(mailtest.Header("r"), forwarded, part)

	attachments := NewRegexExtractor().Extract(body)
	require.Len(t, attachments, 1)
	assert.Equal(t, "data.csv", attachments[0].OriginalFilename)
	assert.Equal(t, csvContent, attachments[0].Content)
}

func TestLocate(t *testing.T) {
	body := mailtest.Message(mailtest.Header("r"),
		mailtest.Attachment("text/csv", "report.csv", csvContent),
		mailtest.Attachment("application/vnd.ms-excel", "sheet.xls", xlsxContent),
	)

	assert.Equal(t, []string{mailtest.Encode(xlsxContent)}, Locate(body, "sheet.xls"))
	assert.Empty(t, Locate(body, "missing.xls"))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		encoded  string
		expected []byte
		err      bool
	}{
		{"plain", "aGVsbG8=", []byte("hello"), false},
		{"wrapped", "aGVs\r\nbG8=", []byte("hello"), false},
		{"unpadded", "aGVsbG8", []byte("hello"), false},
		{"garbage", "!!!", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			content, err := Decode(tc.encoded)
			if tc.err {
				assert.ErrorIs(t, err, domain.ErrDecode)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, content)
		})
	}
}

func TestEncodingVariants(t *testing.T) {
	assert.Equal(t, []string{"aGVsbG8="}, EncodingVariants([]byte("hello")))

	variants := EncodingVariants(xlsxContent)
	require.Len(t, variants, 2)
	assert.Equal(t, mailtest.Encode(xlsxContent), variants[1])
}

func TestMarkDuplicates(t *testing.T) {
	hashes := map[string]struct{}{"known": {}}
	attachments := []*domain.Attachment{{ContentHash: "known"}, {ContentHash: "new"}, {ContentHash: "new"}}

	MarkDuplicates(hashes, attachments)

	assert.True(t, attachments[0].IsDuplicate)
	assert.False(t, attachments[1].IsDuplicate)
	assert.True(t, attachments[2].IsDuplicate)
	assert.Contains(t, hashes, "new")
}

func TestMimeTypeAndExtension(t *testing.T) {
	assert.Equal(t, "xls", Extension("Report.XLS"))
	assert.Equal(t, "", Extension("noextension"))
	assert.True(t, Allowed("CSV"))
	assert.False(t, Allowed("pdf"))
	assert.Equal(t, "application/vnd.ms-excel", MimeType("xls"))
	assert.Equal(t, "application/octet-stream", MimeType("csv"))
}
