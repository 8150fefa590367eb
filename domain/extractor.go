// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/extractor.go -package=mocks . AttachmentExtractor

// AttachmentExtractor finds the accepted attachments of one raw message.
// Returned attachments are not yet checked against other messages.
type AttachmentExtractor interface {
	Extract(raw []byte) []*Attachment
}
