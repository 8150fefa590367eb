// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "errors"

var (
	ErrTransport         = errors.New("transport failure")
	ErrNotConnected      = errors.New("not connected")
	ErrProtocol          = errors.New("unexpected server response")
	ErrDecode            = errors.New("could not decode attachment")
	ErrLedgerKeyMismatch = errors.New("attachment extension does not match ledger")
	ErrMissingArchive    = errors.New("raw message archive not found")
)
