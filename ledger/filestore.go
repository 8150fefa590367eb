// SPDX-License-Identifier: GPL-3.0-or-later
package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/log"

	"github.com/sirupsen/logrus"
)

// FileStore keeps the ledger as a single JSON document. Writes go to a
// temporary file in the same directory which is renamed over the target.
type FileStore struct {
	path string
	l    *logrus.Logger
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		l:    log.Logger(log.LOG_LEDGER),
	}
}

func (f *FileStore) Load() (map[string]*domain.LedgerRecord, error) {
	records := map[string]*domain.LedgerRecord{}

	content, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.l.WithFields(logrus.Fields{"path": f.path}).Debug("No ledger yet, starting empty")
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read ledger: %w", err)
	}

	content = bytes.TrimSpace(content)
	// An empty ledger may have been written as an empty list
	if len(content) == 0 || bytes.Equal(content, []byte("[]")) {
		return records, nil
	}

	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("could not decode ledger %s: %w", f.path, err)
	}

	return records, nil
}

func (f *FileStore) Write(records map[string]*domain.LedgerRecord) (err error) {
	content, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("could not encode ledger: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".processed_emails-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary ledger: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write temporary ledger: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("could not sync temporary ledger: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("could not close temporary ledger: %w", err)
	}

	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("could not replace ledger: %w", err)
	}

	f.l.WithFields(logrus.Fields{"path": f.path, "records": len(records)}).Debug("Ledger written")
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
