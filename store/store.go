// SPDX-License-Identifier: GPL-3.0-or-later
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/log"

	"github.com/sirupsen/logrus"
)

// FileSink writes decoded attachments to a flat directory.
type FileSink struct {
	dir string
	l   *logrus.Logger
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{
		dir: dir,
		l:   log.Logger(log.LOG_STORE),
	}
}

// Store is a no-op if the file exists and overwrite is false.
func (s *FileSink) Store(filename string, content []byte, overwrite bool) (bool, error) {
	path := filepath.Join(s.dir, filepath.Base(filename))
	logger := s.l.WithFields(logrus.Fields{"file": path})

	if !overwrite && exists(path) {
		logger.Debug("Attachment already stored")
		return false, nil
	}

	if err := writeFile(path, content, overwrite); err != nil {
		return false, fmt.Errorf("could not store attachment: %w", err)
	}

	logger.WithFields(logrus.Fields{"size": len(content), "overwrite": overwrite}).Info("Stored attachment")
	return true, nil
}

func (s *FileSink) Load(filename string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("could not read attachment: %w", err)
	}
	return content, nil
}

// EmlArchive keeps one <message hash>.eml file per ledgered message and never
// overwrites it.
type EmlArchive struct {
	dir string
	l   *logrus.Logger
}

func NewEmlArchive(dir string) *EmlArchive {
	return &EmlArchive{
		dir: dir,
		l:   log.Logger(log.LOG_STORE),
	}
}

func (a *EmlArchive) Archive(messageHash string, raw []byte) (bool, error) {
	path := a.path(messageHash)
	if exists(path) {
		return false, nil
	}

	if err := writeFile(path, raw, false); err != nil {
		return false, fmt.Errorf("could not archive message: %w", err)
	}

	a.l.WithFields(logrus.Fields{"file": path}).Debug("Archived message")
	return true, nil
}

func (a *EmlArchive) Load(messageHash string) ([]byte, error) {
	raw, err := os.ReadFile(a.path(messageHash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingArchive, messageHash)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read archived message: %w", err)
	}
	return raw, nil
}

func (a *EmlArchive) path(messageHash string) string {
	return filepath.Join(a.dir, filepath.Base(messageHash)+".eml")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFile creates missing directories. Without overwrite an existing file
// is an error.
func writeFile(path string, content []byte, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
