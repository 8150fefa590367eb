// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

// SQLiteStore is a ledger store backed by a sqlite database. It holds the
// same content as the JSON ledger file.
type SQLiteStore struct {
	db *sqlx.DB
	l  *logrus.Logger
}

func NewSQLiteStore(datasource string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := log.Logger(log.LOG_PERSISTENCE)
	l.WithField("file", datasource).Info("Connected")

	_, err = db.Exec(`PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("could not set journal mode: %w", err)
	}
	_, err = db.Exec(`PRAGMA synchronous=normal`)
	if err != nil {
		return nil, fmt.Errorf("could not set synchronous mode: %w", err)
	}

	appliedMigrations, err := migrate.Exec(db.DB, "sqlite3", migrations, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	return &SQLiteStore{
		db: db,
		l:  l,
	}, nil
}

func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	s.l.Info("Disconnected")
	return nil
}

type dbMessage struct {
	Hash      string         `db:"hash"`
	Sender    string         `db:"sender"`
	Receivers string         `db:"receivers"`
	Subject   sql.NullString `db:"subject"`
	Date      sql.NullString `db:"date"`
	ReadDate  string         `db:"read_date"`
}

type dbAttachment struct {
	MessageHash      string `db:"message_hash"`
	Hash             string `db:"hash"`
	Filename         string `db:"filename"`
	OriginalFileName string `db:"original_file_name"`
	Extension        string `db:"extension"`
	Status           string `db:"status"`
	Size             int    `db:"size"`
	Mime             string `db:"mime"`
	IsDuplicate      bool   `db:"is_duplicate"`
	Checksum         string `db:"checksum"`
}

func (s *SQLiteStore) Load() (map[string]*domain.LedgerRecord, error) {
	dbMessages := []dbMessage{}
	err := s.db.Select(
		&dbMessages,
		`SELECT hash, sender, receivers, subject, date, read_date FROM messages`,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	records := map[string]*domain.LedgerRecord{}
	for _, m := range dbMessages {
		record := &domain.LedgerRecord{ReadDate: m.ReadDate}
		if err := json.Unmarshal([]byte(m.Sender), &record.From); err != nil {
			return nil, fmt.Errorf("could not decode senders of %s: %w", m.Hash, err)
		}
		if err := json.Unmarshal([]byte(m.Receivers), &record.To); err != nil {
			return nil, fmt.Errorf("could not decode receivers of %s: %w", m.Hash, err)
		}
		if m.Subject.Valid {
			subject := m.Subject.String
			record.Subject = &subject
		}
		if m.Date.Valid {
			date := m.Date.String
			record.Date = &date
		}
		records[m.Hash] = record
	}

	dbAttachments := []dbAttachment{}
	err = s.db.Select(
		&dbAttachments,
		`SELECT message_hash, hash, filename, original_file_name, extension, status, size, mime, is_duplicate, checksum FROM attachments`,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	for _, a := range dbAttachments {
		record, ok := records[a.MessageHash]
		if !ok {
			s.l.WithFields(logrus.Fields{"message": a.MessageHash, "hash": a.Hash}).Warn("Attachment without message")
			continue
		}

		status := map[string]interface{}{}
		if err := json.Unmarshal([]byte(a.Status), &status); err != nil {
			return nil, fmt.Errorf("could not decode status of %s: %w", a.Hash, err)
		}

		if record.Attachments == nil {
			record.Attachments = map[string]*domain.LedgerAttachment{}
		}
		record.Attachments[a.Hash] = &domain.LedgerAttachment{
			Filename:         a.Filename,
			OriginalFileName: a.OriginalFileName,
			Extension:        a.Extension,
			Status:           status,
			Size:             a.Size,
			Mime:             a.Mime,
			IsDuplicate:      domain.DuplicateFlag(a.IsDuplicate),
			Checksum:         a.Checksum,
		}
	}

	s.l.WithField("count", len(records)).Debug("Loaded ledger")
	return records, nil
}

// Write replaces the stored ledger with records in a single transaction.
func (s *SQLiteStore) Write(records map[string]*domain.LedgerRecord) error {
	tx, err := s.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM attachments`); err != nil {
		return txEnd(tx, fmt.Errorf("could not clear attachments: %w", err))
	}
	if _, err := tx.Exec(`DELETE FROM messages`); err != nil {
		return txEnd(tx, fmt.Errorf("could not clear messages: %w", err))
	}

	messageStmt, err := tx.Preparex(
		"INSERT INTO messages(hash, sender, receivers, subject, date, read_date) VALUES(?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not prepare statement: %w", err))
	}
	attachmentStmt, err := tx.Preparex(
		"INSERT INTO attachments(message_hash, hash, filename, original_file_name, extension, status, size, mime, is_duplicate, checksum) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not prepare statement: %w", err))
	}

	for hash, record := range records {
		sender, err := json.Marshal(addresses(record.From))
		if err != nil {
			return txEnd(tx, fmt.Errorf("could not encode senders: %w", err))
		}
		receivers, err := json.Marshal(addresses(record.To))
		if err != nil {
			return txEnd(tx, fmt.Errorf("could not encode receivers: %w", err))
		}

		_, err = messageStmt.Exec(hash, string(sender), string(receivers), nullString(record.Subject), nullString(record.Date), record.ReadDate)
		if err != nil {
			return txEnd(tx, fmt.Errorf("could not save message %s: %w", hash, err))
		}

		for attachmentHash, a := range record.Attachments {
			status, err := json.Marshal(a.Status)
			if err != nil {
				return txEnd(tx, fmt.Errorf("could not encode status: %w", err))
			}

			_, err = attachmentStmt.Exec(
				hash, attachmentHash, a.Filename, a.OriginalFileName, a.Extension, string(status), a.Size, a.Mime, bool(a.IsDuplicate), a.Checksum,
			)
			if err != nil {
				return txEnd(tx, fmt.Errorf("could not save attachment %s: %w", attachmentHash, err))
			}
		}
	}

	err = txEnd(tx, nil)
	if err != nil {
		return err
	}

	s.l.WithFields(logrus.Fields{"count": len(records)}).Debug("Persisted ledger")
	return nil
}

func addresses(list domain.AddressList) domain.AddressList {
	if list == nil {
		return domain.AddressList{}
	}
	return list
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
	} else {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			errStr := err.Error()
			return fmt.Errorf("%s, could not rollback tx: %w", errStr, rollbackErr)
		} else {
			return err
		}
	}

	return nil
}
