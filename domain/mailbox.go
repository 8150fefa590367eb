// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

//go:generate mockgen -destination=mocks/mailbox.go -package=mocks . MailboxConnector

// ListEntry is one line of a mailbox listing. Number is only valid for the
// session that produced it.
type ListEntry struct {
	Number int
	Size   int
}

type HeaderBlock struct {
	Number int
	Size   int
	Raw    string
	ReadAt time.Time
}

type MailboxConnector interface {
	List() ([]ListEntry, error)
	FetchHeaders(entries []ListEntry) ([]HeaderBlock, error)
	FetchBody(number int) ([]byte, error)
	Close() error
}
