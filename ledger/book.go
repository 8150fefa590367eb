// SPDX-License-Identifier: GPL-3.0-or-later
package ledger

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/log"

	"github.com/sirupsen/logrus"
)

// Book is the in-memory view of the ledger. It is reloaded from its store at
// the start of each run and never cached across runs.
type Book struct {
	store   domain.LedgerStore
	records map[string]*domain.LedgerRecord

	l *logrus.Logger
}

// Listing is one ledgered message together with its attachments.
type Listing struct {
	LedgerKey   string                              `json:"key"`
	Subject     *string                             `json:"subject"`
	Date        *string                             `json:"date"`
	ReadDate    string                              `json:"read_date"`
	Attachments map[string]*domain.LedgerAttachment `json:"attachments"`
}

func NewBook(store domain.LedgerStore) *Book {
	return &Book{
		store:   store,
		records: map[string]*domain.LedgerRecord{},
		l:       log.Logger(log.LOG_LEDGER),
	}
}

func (b *Book) Load() error {
	records, err := b.store.Load()
	if err != nil {
		return fmt.Errorf("could not load ledger: %w", err)
	}
	if records == nil {
		records = map[string]*domain.LedgerRecord{}
	}

	b.records = records
	b.l.WithFields(logrus.Fields{"records": len(records)}).Debug("Ledger loaded")
	return nil
}

func (b *Book) Has(messageHash string) bool {
	_, ok := b.records[messageHash]
	return ok
}

func (b *Book) Len() int {
	return len(b.records)
}

func (b *Book) Record(messageHash string) (*domain.LedgerRecord, bool) {
	record, ok := b.records[messageHash]
	return record, ok
}

// Keys returns the message hashes in sorted order.
func (b *Book) Keys() []string {
	keys := make([]string, 0, len(b.records))
	for key := range b.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// AttachmentHashes is the union of all attachment hashes of all records.
func (b *Book) AttachmentHashes() map[string]struct{} {
	hashes := map[string]struct{}{}
	for _, record := range b.records {
		for hash := range record.Attachments {
			hashes[hash] = struct{}{}
		}
	}
	return hashes
}

// Save merges records into the ledger as currently stored, new records
// replacing existing ones with the same key, and writes the result.
func (b *Book) Save(records map[string]*domain.LedgerRecord) error {
	current, err := b.store.Load()
	if err != nil {
		return fmt.Errorf("could not load ledger for merge: %w", err)
	}
	if current == nil {
		current = map[string]*domain.LedgerRecord{}
	}

	for key, record := range records {
		current[key] = record
	}

	if err := b.store.Write(current); err != nil {
		return fmt.Errorf("could not write ledger: %w", err)
	}

	b.records = current
	b.l.WithFields(logrus.Fields{
		"new":   len(records),
		"total": len(current),
	}).Info("Ledger saved")
	return nil
}

func (b *Book) AllAttachments() []Listing {
	listings := []Listing{}
	for _, key := range b.Keys() {
		record := b.records[key]
		if len(record.Attachments) == 0 {
			continue
		}
		listings = append(listings, listing(key, record))
	}
	return listings
}

// AttachmentsByYearMonth lists messages with attachments whose date falls in
// the given month. Records without a parseable date are skipped.
func (b *Book) AttachmentsByYearMonth(year int, month int) ([]Listing, error) {
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("invalid year %d", year)
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d, must be between 1 and 12", month)
	}

	listings := []Listing{}
	for _, key := range b.Keys() {
		record := b.records[key]
		if len(record.Attachments) == 0 || record.Date == nil {
			continue
		}

		date, err := time.ParseInLocation(domain.LedgerTimeLayout, *record.Date, time.Local)
		if err != nil {
			b.l.WithFields(logrus.Fields{"key": key, "date": *record.Date}).Debug("Skipping record with unparseable date")
			continue
		}

		if date.Year() == year && int(date.Month()) == month {
			listings = append(listings, listing(key, record))
		}
	}

	return listings, nil
}

// UpdateAttachmentStatus merges status into the status object of every
// attachment named by filenames, given as <hash>.<extension> with an optional
// path. Entries whose extension differs are logged and left untouched.
func (b *Book) UpdateAttachmentStatus(filenames []string, status map[string]interface{}) (int, error) {
	if err := b.Load(); err != nil {
		return 0, err
	}

	updated := 0
	for _, filename := range filenames {
		base := filepath.Base(filename)
		extension := strings.TrimPrefix(filepath.Ext(base), ".")
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		logger := b.l.WithFields(logrus.Fields{"filename": filename})

		found := false
		for _, key := range b.Keys() {
			attachment, ok := b.records[key].Attachments[stem]
			if !ok {
				continue
			}
			found = true

			if !strings.EqualFold(attachment.Extension, extension) {
				logger.WithFields(logrus.Fields{
					"key":       key,
					"extension": attachment.Extension,
					"error":     domain.ErrLedgerKeyMismatch,
				}).Warn("Wrong attachment extension, status not updated")
				continue
			}

			if attachment.Status == nil {
				attachment.Status = map[string]interface{}{}
			}
			for field, value := range status {
				attachment.Status[field] = value
			}
			updated++
		}

		if !found {
			logger.Warn("Attachment not found in ledger")
		}
	}

	if updated == 0 {
		return 0, nil
	}

	if err := b.store.Write(b.records); err != nil {
		return 0, fmt.Errorf("could not write ledger: %w", err)
	}

	return updated, nil
}

func listing(key string, record *domain.LedgerRecord) Listing {
	return Listing{
		LedgerKey:   key,
		Subject:     record.Subject,
		Date:        record.Date,
		ReadDate:    record.ReadDate,
		Attachments: record.Attachments,
	}
}
