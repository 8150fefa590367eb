// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"bufio"
	"strings"

	"github.com/emersion/go-message/textproto"
)

type field struct {
	name  string
	value string
	// raw keeps the original lines including folding, without the final
	// line break.
	raw string
}

// parseFields reads the unfolded fields of a header block in order. Reading
// stops at the first empty line so full messages can be passed as well. A
// malformed line ends the header, the fields before it are kept.
func parseFields(header string) []field {
	h, _ := textproto.ReadHeader(bufio.NewReader(strings.NewReader(header)))

	fields := []field{}
	for f := h.Fields(); f.Next(); {
		raw, err := f.Raw()
		if err != nil {
			continue
		}

		fields = append(fields, field{
			name:  f.Key(),
			value: f.Value(),
			raw:   strings.TrimRight(string(raw), "\r\n"),
		})
	}

	return fields
}

func values(fields []field, name string) []string {
	result := []string{}
	for _, f := range fields {
		if strings.EqualFold(f.name, name) {
			result = append(result, f.value)
		}
	}
	return result
}
