// SPDX-License-Identifier: GPL-3.0-or-later
package pop3

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/log"

	"github.com/sirupsen/logrus"
)

const (
	DialTimeout = 60 * time.Second

	crlf       = "\r\n"
	terminator = "."
)

// Session is a single exclusive POP3 connection. Commands are strictly
// request/response and a Session must not be shared between goroutines.
type Session struct {
	conn   io.ReadWriteCloser
	reader *bufio.Reader
	closed bool

	now func() time.Time
	l   *logrus.Logger
}

func Dial(addr string, tlsConfig *tls.Config) (*Session, error) {
	dialer := &net.Dialer{Timeout: DialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: could not dial to %s: %v", domain.ErrTransport, addr, err)
	}

	session, err := NewSession(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	session.l.WithFields(logrus.Fields{"server": addr}).Debug("Connected to server")
	return session, nil
}

// NewSession wraps an established transport and consumes the server greeting.
func NewSession(conn io.ReadWriteCloser) (*Session, error) {
	s := &Session{
		conn:   conn,
		reader: bufio.NewReader(conn),
		now:    time.Now,
		l:      log.Logger(log.LOG_POP3),
	}

	greeting, err := s.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("%w: could not read greeting: %v", domain.ErrTransport, err)
	}
	if !isOK(greeting) {
		return nil, fmt.Errorf("%w: unexpected greeting %q", domain.ErrTransport, greeting)
	}

	return s, nil
}

func (s *Session) Login(user string, password string) error {
	if _, err := s.command("USER " + user); err != nil {
		return fmt.Errorf("%w: could not send user: %v", domain.ErrTransport, err)
	}

	if _, err := s.command("PASS " + password); err != nil {
		return fmt.Errorf("%w: could not log in as %s: %v", domain.ErrTransport, user, err)
	}

	s.l.WithFields(logrus.Fields{"user": user}).Debug("Logged in")
	return nil
}

func (s *Session) SendCommand(text string) error {
	if s.closed {
		return domain.ErrNotConnected
	}

	if _, err := io.WriteString(s.conn, text+crlf); err != nil {
		return fmt.Errorf("%w: could not write command: %v", domain.ErrTransport, err)
	}

	return nil
}

// ReadLine returns the next line without its line terminator. io.EOF marks
// the end of the stream.
func (s *Session) ReadLine() (string, error) {
	if s.reader == nil {
		return "", domain.ErrNotConnected
	}

	line, err := s.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimRight(line, crlf), nil
		}
		return "", err
	}

	return strings.TrimRight(line, crlf), nil
}

func (s *Session) List() ([]domain.ListEntry, error) {
	lines, err := s.multiline("LIST")
	if err != nil {
		return nil, fmt.Errorf("could not list mailbox: %w", err)
	}

	entries := []domain.ListEntry{}
	for _, line := range lines {
		entry, ok := parseListLine(line)
		if !ok {
			s.l.WithFields(logrus.Fields{"line": line}).Debug("Skipping malformed listing line")
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *Session) FetchHeaders(entries []domain.ListEntry) ([]domain.HeaderBlock, error) {
	headers := make([]domain.HeaderBlock, 0, len(entries))
	for _, entry := range entries {
		lines, err := s.multiline(fmt.Sprintf("TOP %d 0", entry.Number))
		if errors.Is(err, domain.ErrProtocol) {
			s.l.WithFields(logrus.Fields{
				"number": entry.Number,
				"error":  err,
			}).Warn("Skipping message without header")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not fetch header of message %d: %w", entry.Number, err)
		}

		headers = append(headers, domain.HeaderBlock{
			Number: entry.Number,
			Size:   entry.Size,
			Raw:    joinLines(lines),
			ReadAt: s.now(),
		})
	}

	return headers, nil
}

func (s *Session) FetchBody(number int) ([]byte, error) {
	lines, err := s.multiline(fmt.Sprintf("RETR %d", number))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve message %d: %w", number, err)
	}

	return []byte(joinLines(lines)), nil
}

// Close sends QUIT and releases the transport. It is safe to call more than
// once and on a session that never connected.
func (s *Session) Close() error {
	if s == nil || s.conn == nil || s.closed {
		return nil
	}

	_, quitErr := s.command("QUIT")
	s.closed = true

	err := s.conn.Close()
	if quitErr != nil {
		s.l.WithFields(logrus.Fields{"error": quitErr}).Debug("Server did not acknowledge QUIT")
	}
	if err != nil {
		return fmt.Errorf("could not close connection: %w", err)
	}

	return nil
}

// command sends a single line command and reads the status line.
func (s *Session) command(text string) (string, error) {
	if err := s.SendCommand(text); err != nil {
		return "", err
	}

	status, err := s.ReadLine()
	if err != nil {
		return "", fmt.Errorf("%w: could not read response: %v", domain.ErrTransport, err)
	}

	if !isOK(status) {
		return status, fmt.Errorf("%w: %s", domain.ErrProtocol, status)
	}

	return status, nil
}

// multiline issues a command whose response is terminated by a sole ".".
// Acknowledgment lines within the block are discarded and dot stuffing is
// reversed.
func (s *Session) multiline(text string) ([]string, error) {
	if _, err := s.command(text); err != nil {
		return nil, err
	}

	lines := []string{}
	for {
		line, err := s.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("%w: connection ended before end of response: %v", domain.ErrTransport, err)
		}

		if line == terminator {
			return lines, nil
		}

		if isAcknowledgment(line) {
			continue
		}

		if strings.HasPrefix(line, "..") {
			line = line[1:]
		}
		lines = append(lines, line)
	}
}

func isOK(line string) bool {
	return strings.HasPrefix(line, "+OK")
}

func isAcknowledgment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "+OK" || trimmed == "-ERR unimplemented"
}

func joinLines(lines []string) string {
	b := strings.Builder{}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString(crlf)
	}
	return b.String()
}
