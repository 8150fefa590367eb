// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

// Message is the transient working state of one mailbox entry during a
// harvest run. It is enriched stage by stage and folded into the ledger.
type Message struct {
	Number int
	Size   int
	ReadAt time.Time

	HeaderRaw  string
	HeaderHash string

	BodyRaw  []byte
	BodyHash string

	Info        EmailInfo
	Attachments map[string]*Attachment
}

type EmailInfo struct {
	From    []string
	To      []string
	Subject *string
	Date    *time.Time
}

type Attachment struct {
	// ContentHash is the key of the trimmed base64 payload, not of the
	// decoded bytes.
	ContentHash      string
	OriginalFilename string
	Extension        string
	MimeType         string

	Content []byte

	SizeBytes   int
	IsDuplicate bool
}

// Filename is the name the attachment is stored under.
func (a *Attachment) Filename() string {
	return a.ContentHash + "." + a.Extension
}
