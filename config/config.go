// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CrawX/go-pop-harvest/mail"

	"github.com/BurntSushi/toml"
)

const (
	LedgerJSON   = "json"
	LedgerSQLite = "sqlite"

	defaultHostname = "yourhost.name.com"
	defaultUsername = "test@test.com"
	defaultPassword = "yourPasswordToEmailServer"
)

var ErrPlaceholderLogin = errors.New("login still contains the generated placeholder values, edit the config before running")

type Config struct {
	Loglevel *string

	DataDir       string
	EmlDir        string
	AttachmentDir string

	Ledger string
	// Schedule is a cron spec used by the watch command.
	Schedule string

	DryRun      bool
	Concurrency int

	HeadersToFilter []string

	Login     Login
	Whitelist Whitelist
}

type Login struct {
	Hostname           string
	Port               int
	Username           string
	Password           string
	InsecureSkipVerify bool
}

type Whitelist struct {
	Senders   []string
	Receivers []string
}

func (l Login) Address() string {
	return net.JoinHostPort(l.Hostname, strconv.Itoa(l.Port))
}

func (c *Config) LedgerPath() string {
	if c.Ledger == LedgerSQLite {
		return filepath.Join(c.DataDir, "processed_emails.db")
	}
	return filepath.Join(c.DataDir, "processed_emails.json")
}

func defaults() *Config {
	return &Config{
		DataDir:         "data",
		EmlDir:          filepath.Join("data", "eml"),
		AttachmentDir:   filepath.Join("data", "attachments"),
		Ledger:          LedgerJSON,
		Schedule:        "@every 15m",
		DryRun:          false,
		Concurrency:     4,
		HeadersToFilter: append([]string{}, mail.DefaultHeadersToFilter...),
		Login: Login{
			Hostname: defaultHostname,
			Port:     995,
			Username: defaultUsername,
			Password: defaultPassword,
		},
		Whitelist: Whitelist{
			Senders:   []string{defaultUsername},
			Receivers: []string{defaultUsername},
		},
	}
}

func ReadConfig(filename string) (*Config, error) {
	config := defaults()

	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

// WriteDefault generates a config with placeholder values. An existing
// non-empty file is left untouched.
func WriteDefault(filename string) (bool, error) {
	if info, err := os.Stat(filename); err == nil && info.Size() > 0 {
		return false, nil
	}

	buf := &bytes.Buffer{}
	loglevel := "info"
	config := defaults()
	config.Loglevel = &loglevel
	if err := toml.NewEncoder(buf).Encode(config); err != nil {
		return false, fmt.Errorf("could not encode default config: %w", err)
	}

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("could not create config directory: %w", err)
		}
	}

	if err := os.WriteFile(filename, buf.Bytes(), 0o600); err != nil {
		return false, fmt.Errorf("could not write default config: %w", err)
	}

	return true, nil
}

func (c *Config) validate() error {
	if err := validateNonEmptyStringField(c.DataDir, "DataDir must not be empty, set to the directory holding the ledger"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.EmlDir, "EmlDir must not be empty, set to the directory raw messages are archived to"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.AttachmentDir, "AttachmentDir must not be empty, set to the directory attachments are stored in"); err != nil {
		return err
	}

	if c.Ledger != LedgerJSON && c.Ledger != LedgerSQLite {
		return fmt.Errorf("Ledger must be either %q or %q, got %q", LedgerJSON, LedgerSQLite, c.Ledger)
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("Concurrency must be at least 1, got %d", c.Concurrency)
	}

	if err := validateNonEmptyStringField(c.Login.Hostname, "Login.Hostname must not be empty, set to the hostname of the pop3 server"); err != nil {
		return err
	}

	if c.Login.Port < 1 || c.Login.Port > 65535 {
		return fmt.Errorf("Login.Port must be between 1 and 65535, got %d", c.Login.Port)
	}

	if err := validateNonEmptyStringField(c.Login.Username, "Login.Username must not be empty, set to the username on the pop3 server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.Login.Password, "Login.Password must not be empty, set to the password of Username on the pop3 server"); err != nil {
		return err
	}

	return nil
}

// ValidateMailbox checks what is only needed to talk to the mailbox. Commands
// working on the ledger alone run with a freshly generated config.
func (c *Config) ValidateMailbox() error {
	if c.Login.Hostname == defaultHostname || c.Login.Password == defaultPassword {
		return ErrPlaceholderLogin
	}

	if len(c.Whitelist.Senders) == 0 || len(c.Whitelist.Receivers) == 0 {
		return fmt.Errorf("Whitelist.Senders and Whitelist.Receivers must each contain at least one address")
	}

	return nil
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}
