// SPDX-License-Identifier: GPL-3.0-or-later
package contentkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Key
	}{
		{"empty", "", "d41d8cd98f00b204e9800998ecf8427e"},
		{"abc", "abc", "900150983cd24fb0d6963f7d28e17f72"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Of([]byte(tc.input)))
			assert.Equal(t, tc.expected, OfString(tc.input))
		})
	}
}

func TestOfIsDeterministic(t *testing.T) {
	payload := []byte("aWQ7bmFtZQ0KMTtmb28NCg==")
	assert.Equal(t, Of(payload), Of(append([]byte{}, payload...)))
	assert.NotEqual(t, Of(payload), Of([]byte("aWQ7bmFtZQ0KMTtmb28NCg==\r\n")))
}

func TestFilename(t *testing.T) {
	k := Key("900150983cd24fb0d6963f7d28e17f72")
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72.xlsx", k.Filename("XLSX"))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", k.Filename(""))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("900150983cd24fb0d6963f7d28e17f72"))
	assert.False(t, Valid("900150983cd24fb0"))
	assert.False(t, Valid("zz0150983cd24fb0d6963f7d28e17f72"))
}
