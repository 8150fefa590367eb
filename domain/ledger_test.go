// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateFlag_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected DuplicateFlag
	}{
		{"true", `true`, true},
		{"false", `false`, false},
		{"jsonnull", `null`, false},
		{"legacynull", `"null"`, false},
		{"legacyhash", `"900150983cd24fb0d6963f7d28e17f72"`, true},
		{"stringfalse", `"false"`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var flag DuplicateFlag
			assert.NoError(t, json.Unmarshal([]byte(tc.input), &flag))
			assert.Equal(t, tc.expected, flag)
		})
	}
}

func TestAddressList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected AddressList
	}{
		{"list", `["a@x.com","b@y.com"]`, AddressList{"a@x.com", "b@y.com"}},
		{"indexed", `{"0":"a@x.com","2":"c@z.com","10":"d@z.com"}`, AddressList{"a@x.com", "c@z.com", "d@z.com"}},
		{"null", `null`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var list AddressList
			assert.NoError(t, json.Unmarshal([]byte(tc.input), &list))
			assert.Equal(t, tc.expected, list)
		})
	}
}

func TestLedgerRecordLegacyDocument(t *testing.T) {
	doc := `{
		"from": ["bounce@x.com"],
		"to": {"0": "b@y.com"},
		"subject": "Report",
		"date": "05.03.2024 10:00:00",
		"read_date": "06.03.2024 08:00:00",
		"attachments": {
			"900150983cd24fb0d6963f7d28e17f72": {
				"filename": "900150983cd24fb0d6963f7d28e17f72.csv",
				"original_file_name": "report.csv",
				"extension": "csv",
				"status": {"duplicate": false},
				"size": 3,
				"mime": "application/octet-stream",
				"is_duplicate": "null"
			}
		}
	}`

	record := &LedgerRecord{}
	assert.NoError(t, json.Unmarshal([]byte(doc), record))
	assert.Equal(t, AddressList{"b@y.com"}, record.To)
	assert.Equal(t, "Report", *record.Subject)
	assert.Len(t, record.Attachments, 1)
	assert.False(t, bool(record.Attachments["900150983cd24fb0d6963f7d28e17f72"].IsDuplicate))
}

func TestAttachmentFilename(t *testing.T) {
	a := &Attachment{ContentHash: "abc", Extension: "xls"}
	assert.Equal(t, "abc.xls", a.Filename())
}
