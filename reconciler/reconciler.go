// SPDX-License-Identifier: GPL-3.0-or-later
package reconciler

import (
	"errors"
	"fmt"

	"github.com/CrawX/go-pop-harvest/attachment"
	"github.com/CrawX/go-pop-harvest/contentkey"
	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/ledger"
	"github.com/CrawX/go-pop-harvest/log"

	"github.com/sirupsen/logrus"
)

// Mismatch is a ledgered attachment whose file is absent or differs from the
// recorded content.
type Mismatch struct {
	LedgerKey        string `json:"key"`
	OriginalFilename string `json:"original_file_name"`
	Filename         string `json:"filename"`
	Hash             string `json:"hash"`
	Checksum         string `json:"checksum,omitempty"`
	Missing          bool   `json:"missing"`

	duplicate bool
}

type Reconciler struct {
	book    *ledger.Book
	sink    domain.AttachmentSink
	archive domain.Archive

	l *logrus.Logger
}

func NewReconciler(book *ledger.Book, sink domain.AttachmentSink, archive domain.Archive) *Reconciler {
	return &Reconciler{
		book:    book,
		sink:    sink,
		archive: archive,
		l:       log.Logger(log.LOG_RECONCILER),
	}
}

// FindMismatches checks the file of every ledgered attachment. Attachments
// shared by several records are reported once, preferring the record that
// stored the file.
func (r *Reconciler) FindMismatches() ([]Mismatch, error) {
	if err := r.book.Load(); err != nil {
		return nil, err
	}

	mismatches := []Mismatch{}
	index := map[string]int{}
	checked := map[string]bool{}

	for _, key := range r.book.Keys() {
		record, _ := r.book.Record(key)
		for hash, a := range record.Attachments {
			filename := a.Filename
			if filename == "" {
				filename = contentkey.Key(hash).Filename(a.Extension)
			}

			ok, seen := checked[filename]
			if !seen {
				content, err := r.sink.Load(filename)
				ok = err == nil && matches(content, hash, a.Checksum)
				checked[filename] = ok
				if !ok {
					index[filename] = len(mismatches)
					mismatches = append(mismatches, Mismatch{
						LedgerKey:        key,
						OriginalFilename: a.OriginalFileName,
						Filename:         filename,
						Hash:             hash,
						Checksum:         a.Checksum,
						Missing:          err != nil,
						duplicate:        bool(a.IsDuplicate),
					})
				}
				continue
			}

			if !ok && mismatches[index[filename]].duplicate && !bool(a.IsDuplicate) {
				m := &mismatches[index[filename]]
				m.LedgerKey, m.OriginalFilename, m.duplicate = key, a.OriginalFileName, false
			}
		}
	}

	for _, m := range mismatches {
		r.l.WithFields(logrus.Fields{
			"key":      m.LedgerKey,
			"filename": m.Filename,
			"missing":  m.Missing,
		}).Info("Attachment does not match ledger")
	}

	return mismatches, nil
}

// Repair rewrites every mismatched file from its archived message and
// returns the number of files written. Entries that cannot be repaired are
// logged and skipped.
func (r *Reconciler) Repair(mismatches []Mismatch) (int, error) {
	repaired := 0
	for _, m := range mismatches {
		logger := r.l.WithFields(logrus.Fields{"key": m.LedgerKey, "filename": m.Filename})

		raw, err := r.archive.Load(m.LedgerKey)
		if errors.Is(err, domain.ErrMissingArchive) {
			logger.WithFields(logrus.Fields{"error": err}).Warn("No archived message to repair from")
			continue
		}
		if err != nil {
			return repaired, fmt.Errorf("could not load archived message %s: %w", m.LedgerKey, err)
		}

		content, ok := r.restore(logger, raw, m)
		if !ok {
			continue
		}

		if _, err := r.sink.Store(m.Filename, content, true); err != nil {
			return repaired, fmt.Errorf("could not repair %s: %w", m.Filename, err)
		}
		logger.Info("Repaired attachment")
		repaired++
	}
	return repaired, nil
}

// FindAndRepair returns the mismatches found and how many were repaired.
func (r *Reconciler) FindAndRepair() ([]Mismatch, int, error) {
	mismatches, err := r.FindMismatches()
	if err != nil {
		return nil, 0, err
	}
	if len(mismatches) == 0 {
		r.l.Info("All attachments match the ledger")
		return mismatches, 0, nil
	}

	repaired, err := r.Repair(mismatches)
	return mismatches, repaired, err
}

// restore picks the payload whose encoded form carries the recorded hash or
// whose decoded bytes carry the recorded checksum.
func (r *Reconciler) restore(logger *logrus.Entry, raw []byte, m Mismatch) ([]byte, bool) {
	candidates := attachment.Locate(raw, m.OriginalFilename)
	if len(candidates) == 0 {
		logger.WithFields(logrus.Fields{"original": m.OriginalFilename}).Warn("Attachment not found in archived message")
		return nil, false
	}

	for _, encoded := range candidates {
		content, err := attachment.Decode(encoded)
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Debug("Skipping undecodable candidate")
			continue
		}
		if contentkey.OfString(encoded).String() == m.Hash {
			return content, true
		}
		if m.Checksum != "" && contentkey.Of(content).String() == m.Checksum {
			return content, true
		}
	}

	logger.WithFields(logrus.Fields{"candidates": len(candidates)}).Warn("No payload in archived message matches the ledger")
	return nil, false
}

// matches compares against the decoded checksum when recorded and otherwise
// against the hash of the re-encoded content.
func matches(content []byte, hash string, checksum string) bool {
	if checksum != "" {
		return contentkey.Of(content).String() == checksum
	}
	for _, encoded := range attachment.EncodingVariants(content) {
		if contentkey.OfString(encoded).String() == hash {
			return true
		}
	}
	return false
}
