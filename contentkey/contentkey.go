// SPDX-License-Identifier: GPL-3.0-or-later

// Package contentkey derives the content-addressed keys used both as
// deduplication keys and as on-disk filename stems.
package contentkey

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Key is the hex digest of a byte sequence.
type Key string

// Of returns the key of data. The digest is md5 so keys stay compatible with
// ledgers written by earlier harvester versions.
func Of(data []byte) Key {
	sum := md5.Sum(data)
	return Key(hex.EncodeToString(sum[:]))
}

// OfString is Of for string input.
func OfString(s string) Key {
	return Of([]byte(s))
}

func (k Key) String() string {
	return string(k)
}

// Filename is the on-disk name for content with this key and extension.
func (k Key) Filename(extension string) string {
	if extension == "" {
		return string(k)
	}
	return string(k) + "." + strings.ToLower(extension)
}

// Valid reports whether s looks like a key produced by Of.
func Valid(s string) bool {
	if len(s) != hex.EncodedLen(md5.Size) {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
