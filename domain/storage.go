// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/storage.go -package=mocks . AttachmentSink,Archive

// AttachmentSink stores decoded attachment bytes under their content
// addressed filename. Store reports whether the file was written.
type AttachmentSink interface {
	Store(filename string, content []byte, overwrite bool) (bool, error)
	Load(filename string) ([]byte, error)
}

// Archive keeps the raw message per message hash and never overwrites.
type Archive interface {
	Archive(messageHash string, raw []byte) (bool, error)
	Load(messageHash string) ([]byte, error)
}
