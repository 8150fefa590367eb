// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

//go:generate mockgen -destination=mocks/ledger.go -package=mocks . LedgerStore

// LedgerTimeLayout is the layout of the date and read_date ledger fields.
const LedgerTimeLayout = "02.01.2006 15:04:05"

type LedgerRecord struct {
	From        AddressList                  `json:"from"`
	To          AddressList                  `json:"to"`
	Subject     *string                      `json:"subject"`
	Date        *string                      `json:"date"`
	ReadDate    string                       `json:"read_date"`
	Attachments map[string]*LedgerAttachment `json:"attachments,omitempty"`
}

type LedgerAttachment struct {
	Filename         string                 `json:"filename"`
	OriginalFileName string                 `json:"original_file_name"`
	Extension        string                 `json:"extension"`
	Status           map[string]interface{} `json:"status"`
	Size             int                    `json:"size"`
	Mime             string                 `json:"mime"`
	IsDuplicate      DuplicateFlag          `json:"is_duplicate"`
	// Checksum is the content key of the decoded bytes.
	Checksum string `json:"checksum,omitempty"`
}

// LedgerStore persists the complete ledger. Merging happens in the caller.
type LedgerStore interface {
	Load() (map[string]*LedgerRecord, error)
	Write(records map[string]*LedgerRecord) error
	Close() error
}

// DuplicateFlag also accepts the legacy encoding where the field held either
// the string "null" or the hash of the duplicated attachment.
type DuplicateFlag bool

func (d *DuplicateFlag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*d = DuplicateFlag(b)
		return nil
	}

	if string(data) == "null" {
		*d = false
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("could not decode is_duplicate %s: %w", string(data), err)
	}

	switch s {
	case "", "null", "false":
		*d = false
	default:
		parsed, err := strconv.ParseBool(s)
		*d = DuplicateFlag(err != nil || parsed)
	}
	return nil
}

// AddressList also accepts JSON objects with numeric keys, which older
// ledgers contain after duplicate addresses were removed.
type AddressList []string

func (a *AddressList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}

	var indexed map[string]string
	if err := json.Unmarshal(data, &indexed); err != nil {
		return fmt.Errorf("could not decode address list %s: %w", string(data), err)
	}

	keys := make([]string, 0, len(indexed))
	for k := range indexed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ii, erri := strconv.Atoi(keys[i])
		jj, errj := strconv.Atoi(keys[j])
		if erri != nil || errj != nil {
			return keys[i] < keys[j]
		}
		return ii < jj
	})

	result := make(AddressList, 0, len(keys))
	for _, k := range keys {
		result = append(result, indexed[k])
	}
	*a = result
	return nil
}
