// SPDX-License-Identifier: GPL-3.0-or-later
package harvester

import (
	"fmt"
	"time"

	"github.com/CrawX/go-pop-harvest/attachment"
	"github.com/CrawX/go-pop-harvest/contentkey"
	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/ledger"
	"github.com/CrawX/go-pop-harvest/log"
	"github.com/CrawX/go-pop-harvest/mail"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultConcurrency = 4

type Harvester struct {
	book    *ledger.Book
	sink    domain.AttachmentSink
	archive domain.Archive

	configuration *configuration

	l *logrus.Logger
}

// Report summarizes one run.
type Report struct {
	RunID string

	Listed      int
	Accepted    int
	Duplicates  int
	Fetched     int
	Harvested   int
	Attachments int
	// DuplicateAttachments were already known and not stored again.
	DuplicateAttachments int
}

func NewHarvester(book *ledger.Book, sink domain.AttachmentSink, archive domain.Archive, configFunc ...ConfigFunc) (*Harvester, error) {
	config := &configuration{
		HeadersToFilter: mail.DefaultHeadersToFilter,
		Concurrency:     DefaultConcurrency,
	}
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	if config.Whitelist == nil {
		return nil, fmt.Errorf("error applying configuration: a whitelist is required")
	}
	if config.Extractor == nil {
		config.Extractor = attachment.NewRegexExtractor()
	}

	return &Harvester{
		book:          book,
		sink:          sink,
		archive:       archive,
		configuration: config,
		l:             log.Logger(log.LOG_HARVESTER),
	}, nil
}

// Run executes one harvest against an established session. The session is
// closed once all bodies are fetched, or on failure.
func (h *Harvester) Run(conn domain.MailboxConnector) (*Report, error) {
	report := &Report{RunID: uuid.New().String()}
	logger := h.l.WithFields(logrus.Fields{"run": report.RunID})
	start := time.Now()

	closed := false
	closeConn := func() {
		if closed {
			return
		}
		closed = true
		if err := conn.Close(); err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Warn("Could not close mailbox session")
		}
	}
	defer closeConn()

	if err := h.book.Load(); err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"ledgered": h.book.Len()}).Debug("Ledger loaded")

	entries, err := conn.List()
	if err != nil {
		return nil, fmt.Errorf("could not list mailbox: %w", err)
	}
	report.Listed = len(entries)

	headers, err := conn.FetchHeaders(entries)
	if err != nil {
		return nil, fmt.Errorf("could not fetch headers: %w", err)
	}

	headers = h.filterWhitelisted(headers)
	report.Accepted = len(headers)

	messages, err := h.dropDuplicates(headers)
	if err != nil {
		return nil, err
	}
	report.Duplicates = report.Accepted - len(messages)

	h.trimHeaders(messages)

	messages = h.fetchBodies(logger, conn, messages)
	report.Fetched = len(messages)
	closeConn()

	messages = h.extractAttachments(logger, messages)
	report.Harvested = len(messages)
	for _, m := range messages {
		for _, a := range m.Attachments {
			report.Attachments++
			if a.IsDuplicate {
				report.DuplicateAttachments++
			}
		}
	}

	for _, m := range messages {
		m.Info = mail.Info(m.HeaderRaw)

		subject := ""
		if m.Info.Subject != nil {
			subject = mail.ShortSubject(*m.Info.Subject)
		}
		logger.WithFields(logrus.Fields{
			"hash":        m.HeaderHash,
			"subject":     subject,
			"attachments": len(m.Attachments),
		}).Info("Harvesting message")
	}

	if h.configuration.DryRun {
		logger.WithFields(reportFields(report)).Info("Not storing anything due to dry-run")
		return report, nil
	}

	if err := h.store(messages); err != nil {
		return nil, err
	}

	if len(messages) > 0 {
		if err := h.book.Save(records(messages)); err != nil {
			return nil, fmt.Errorf("could not save ledger: %w", err)
		}
	}

	logger.WithFields(reportFields(report)).WithField("duration", time.Since(start)).Info("Harvest finished")
	return report, nil
}

func (h *Harvester) filterWhitelisted(headers []domain.HeaderBlock) []domain.HeaderBlock {
	accepted := []domain.HeaderBlock{}
	for _, header := range headers {
		if h.configuration.Whitelist.Allows(header.Raw) {
			accepted = append(accepted, header)
			continue
		}
		h.l.WithFields(logrus.Fields{"number": header.Number}).Debug("Message not whitelisted")
	}
	return accepted
}

// dropDuplicates hashes every header before trimming and keeps only messages
// neither ledgered nor seen earlier in this run.
func (h *Harvester) dropDuplicates(headers []domain.HeaderBlock) ([]*domain.Message, error) {
	messages := []*domain.Message{}
	seen := map[string]struct{}{}
	for _, header := range headers {
		hash, err := mail.HeaderHash(header.Raw, header.Size)
		if err != nil {
			return nil, fmt.Errorf("could not hash header of message %d: %w", header.Number, err)
		}

		if _, ok := seen[hash]; ok || h.book.Has(hash) {
			h.l.WithFields(logrus.Fields{"number": header.Number, "hash": hash}).Debug("Skipping known message")
			continue
		}
		seen[hash] = struct{}{}

		messages = append(messages, &domain.Message{
			Number:     header.Number,
			Size:       header.Size,
			ReadAt:     header.ReadAt,
			HeaderRaw:  header.Raw,
			HeaderHash: hash,
		})
	}
	return messages, nil
}

func (h *Harvester) trimHeaders(messages []*domain.Message) {
	for _, m := range messages {
		m.HeaderRaw = mail.TrimHeader(m.HeaderRaw, h.configuration.HeadersToFilter)
	}
}

func (h *Harvester) fetchBodies(logger *logrus.Entry, conn domain.MailboxConnector, messages []*domain.Message) []*domain.Message {
	fetched := []*domain.Message{}
	for _, m := range messages {
		body, err := conn.FetchBody(m.Number)
		if err != nil {
			logger.WithFields(logrus.Fields{"number": m.Number, "error": err}).Warn("Could not fetch message, skipping")
			continue
		}

		if !attachment.HasSpreadsheet(body) {
			logger.WithFields(logrus.Fields{"hash": m.HeaderHash}).Debug("Message has no spreadsheet attachment")
			continue
		}

		m.BodyRaw = body
		m.BodyHash = contentkey.Of(body).String()
		fetched = append(fetched, m)
	}
	return fetched
}

// extractAttachments decodes concurrently and then marks duplicates in
// message order, so the first message carrying an attachment owns it.
func (h *Harvester) extractAttachments(logger *logrus.Entry, messages []*domain.Message) []*domain.Message {
	bodies := make([][]byte, len(messages))
	for i, m := range messages {
		bodies[i] = m.BodyRaw
	}

	extractor := &attachment.GoRoutineExtractor{AttachmentExtractor: h.configuration.Extractor}
	extracted := extractor.ExtractAll(bodies, h.configuration.Concurrency)

	hashes := h.book.AttachmentHashes()
	kept := []*domain.Message{}
	for i, m := range messages {
		if len(extracted[i]) == 0 {
			logger.WithFields(logrus.Fields{"hash": m.HeaderHash}).Info("Dropping message without valid attachments")
			continue
		}

		attachment.MarkDuplicates(hashes, extracted[i])
		m.Attachments = map[string]*domain.Attachment{}
		for _, a := range extracted[i] {
			m.Attachments[a.ContentHash] = a
		}
		kept = append(kept, m)
	}
	return kept
}

func (h *Harvester) store(messages []*domain.Message) error {
	for _, m := range messages {
		for _, a := range m.Attachments {
			if a.IsDuplicate {
				continue
			}
			if _, err := h.sink.Store(a.Filename(), a.Content, false); err != nil {
				return fmt.Errorf("could not store %s of message %s: %w", a.OriginalFilename, m.HeaderHash, err)
			}
		}

		if _, err := h.archive.Archive(m.HeaderHash, m.BodyRaw); err != nil {
			return fmt.Errorf("could not archive message %s: %w", m.HeaderHash, err)
		}
	}
	return nil
}

func records(messages []*domain.Message) map[string]*domain.LedgerRecord {
	result := map[string]*domain.LedgerRecord{}
	for _, m := range messages {
		result[m.HeaderHash] = record(m)
	}
	return result
}

func record(m *domain.Message) *domain.LedgerRecord {
	r := &domain.LedgerRecord{
		From:        domain.AddressList(m.Info.From),
		To:          domain.AddressList(m.Info.To),
		Subject:     m.Info.Subject,
		ReadDate:    m.ReadAt.Local().Format(domain.LedgerTimeLayout),
		Attachments: map[string]*domain.LedgerAttachment{},
	}

	if m.Info.Date != nil {
		date := m.Info.Date.Local().Format(domain.LedgerTimeLayout)
		r.Date = &date
	}

	for hash, a := range m.Attachments {
		r.Attachments[hash] = &domain.LedgerAttachment{
			Filename:         a.Filename(),
			OriginalFileName: a.OriginalFilename,
			Extension:        a.Extension,
			Status:           map[string]interface{}{"duplicate": a.IsDuplicate},
			Size:             a.SizeBytes,
			Mime:             a.MimeType,
			IsDuplicate:      domain.DuplicateFlag(a.IsDuplicate),
			Checksum:         contentkey.Of(a.Content).String(),
		}
	}

	return r
}

func reportFields(r *Report) logrus.Fields {
	return logrus.Fields{
		"listed":      r.Listed,
		"accepted":    r.Accepted,
		"duplicates":  r.Duplicates,
		"fetched":     r.Fetched,
		"harvested":   r.Harvested,
		"attachments": r.Attachments,
		"known":       r.DuplicateAttachments,
	}
}
