// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/CrawX/go-pop-harvest/config"
	"github.com/CrawX/go-pop-harvest/contentkey"
	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/harvester"
	"github.com/CrawX/go-pop-harvest/ledger"
	"github.com/CrawX/go-pop-harvest/log"
	"github.com/CrawX/go-pop-harvest/persistence"
	"github.com/CrawX/go-pop-harvest/pop3"
	"github.com/CrawX/go-pop-harvest/reconciler"
	"github.com/CrawX/go-pop-harvest/store"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dryRun     bool

	year  int
	month int

	statusFields []string
)

func main() {
	log.InitLogging("info")
	logger := log.Logger(log.LOG_MAIN)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Harvest spreadsheet attachments from the mailbox once",
		Args:  cobra.NoArgs,
		RunE:  runHarvest,
	}

	rootCmd := &cobra.Command{
		Use:           "go-pop-harvest",
		Short:         "Harvest spreadsheet attachments from a POP3 mailbox",
		Args:          cobra.NoArgs,
		RunE:          runHarvest,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.toml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "run the pipeline without writing files or the ledger")

	attachmentsCmd := &cobra.Command{
		Use:   "attachments",
		Short: "List ledgered attachments as JSON, optionally restricted to one month",
		Args:  cobra.NoArgs,
		RunE:  listAttachments,
	}
	attachmentsCmd.Flags().IntVar(&year, "year", 0, "year of the message date")
	attachmentsCmd.Flags().IntVar(&month, "month", 0, "month of the message date (1-12)")

	statusCmd := &cobra.Command{
		Use:   "status [flags] <hash>.<extension>...",
		Short: "Merge status fields into ledgered attachments",
		Args:  cobra.MinimumNArgs(1),
		RunE:  updateStatus,
	}
	statusCmd.Flags().StringArrayVar(&statusFields, "set", nil, "status field as key=value, repeatable")
	_ = statusCmd.MarkFlagRequired("set")

	rootCmd.AddCommand(
		runCmd,
		&cobra.Command{
			Use:   "watch",
			Short: "Harvest on the configured schedule until interrupted",
			Args:  cobra.NoArgs,
			RunE:  watch,
		},
		attachmentsCmd,
		statusCmd,
		&cobra.Command{
			Use:   "repair",
			Short: "Restore attachment files that no longer match the ledger",
			Args:  cobra.NoArgs,
			RunE:  repair,
		},
		&cobra.Command{
			Use:   "init-config",
			Short: "Write a configuration file with placeholder values",
			Args:  cobra.NoArgs,
			RunE:  initConfig,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		logger.WithField("error", err).Fatal(failureMessage(err))
	}
}

// failureMessage is logged when a command fails. Fatal is only called after
// the command returned so deferred cleanup such as closing the ledger runs.
func failureMessage(err error) string {
	if errors.Is(err, domain.ErrTransport) {
		return "Could not connect to mail server"
	}
	return "Command failed"
}

func loadConfig() (*config.Config, error) {
	conf, err := config.ReadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}
	if dryRun {
		conf.DryRun = true
	}
	return conf, nil
}

var openLedger = func(conf *config.Config) (domain.LedgerStore, error) {
	if err := os.MkdirAll(conf.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}

	switch conf.Ledger {
	case config.LedgerSQLite:
		store, err := persistence.NewSQLiteStore(conf.LedgerPath())
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return ledger.NewFileStore(conf.LedgerPath()), nil
	}
}

// withBook loads configuration and the ledger and hands both to f.
func withBook(f func(conf *config.Config, book *ledger.Book) error) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}

	ledgerStore, err := openLedger(conf)
	if err != nil {
		return err
	}
	defer ledgerStore.Close()

	return f(conf, ledger.NewBook(ledgerStore))
}

func newHarvester(conf *config.Config, book *ledger.Book) (*harvester.Harvester, error) {
	configs := []harvester.ConfigFunc{
		harvester.Whitelist(conf.Whitelist.Senders, conf.Whitelist.Receivers),
		harvester.HeadersToFilter(conf.HeadersToFilter),
		harvester.Concurrency(conf.Concurrency),
	}
	if conf.DryRun {
		configs = append(configs, harvester.DryRun())
	}

	return harvester.NewHarvester(book,
		store.NewFileSink(conf.AttachmentDir),
		store.NewEmlArchive(conf.EmlDir),
		configs...,
	)
}

// harvest connects, logs in and runs one harvest. The harvester closes the
// session.
func harvest(conf *config.Config, h *harvester.Harvester) (*harvester.Report, error) {
	session, err := pop3.Dial(conf.Login.Address(), &tls.Config{
		ServerName:         conf.Login.Hostname,
		InsecureSkipVerify: conf.Login.InsecureSkipVerify,
	})
	if err != nil {
		return nil, err
	}

	if err := session.Login(conf.Login.Username, conf.Login.Password); err != nil {
		session.Close()
		return nil, err
	}

	return h.Run(session)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	logger := log.Logger(log.LOG_MAIN)

	return withBook(func(conf *config.Config, book *ledger.Book) error {
		if err := conf.ValidateMailbox(); err != nil {
			return err
		}

		h, err := newHarvester(conf, book)
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{"host": conf.Login.Hostname, "dryrun": conf.DryRun}).Info("Harvesting mailbox")
		if conf.DryRun {
			logger.Warn("Skipping attachment, archive and ledger writes due to dry-run")
		}

		_, err = harvest(conf, h)
		return err
	})
}

func watch(cmd *cobra.Command, args []string) error {
	logger := log.Logger(log.LOG_MAIN)

	return withBook(func(conf *config.Config, book *ledger.Book) error {
		if err := conf.ValidateMailbox(); err != nil {
			return err
		}

		h, err := newHarvester(conf, book)
		if err != nil {
			return err
		}

		c, run, err := schedule(conf.Schedule, func() error {
			_, err := harvest(conf, h)
			return err
		})
		if err != nil {
			return err
		}

		logger.WithField("schedule", conf.Schedule).Info("Watching mailbox")
		run()
		c.Start()

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		<-signals

		logger.Info("Stopping, waiting for a running harvest")
		<-c.Stop().Done()
		return nil
	})
}

// schedule registers job on spec. The returned run executes job once the same
// way the schedule does: a failure is logged and the next tick runs again.
func schedule(spec string, job func() error) (*cron.Cron, func(), error) {
	logger := log.Logger(log.LOG_MAIN)

	run := func() {
		if err := job(); err != nil {
			logger.WithField("error", err).Error("Harvest failed, retrying on next schedule")
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger), cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, run); err != nil {
		return nil, nil, fmt.Errorf("could not schedule harvest %q: %w", spec, err)
	}

	return c, run, nil
}

func listAttachments(cmd *cobra.Command, args []string) error {
	return withBook(func(conf *config.Config, book *ledger.Book) error {
		if err := book.Load(); err != nil {
			return err
		}

		listings := book.AllAttachments()
		if year != 0 || month != 0 {
			var err error
			listings, err = book.AttachmentsByYearMonth(year, month)
			if err != nil {
				return err
			}
		}

		return printJSON(cmd.OutOrStdout(), listings)
	})
}

func updateStatus(cmd *cobra.Command, args []string) error {
	logger := log.Logger(log.LOG_MAIN)

	if err := checkAttachmentFilenames(args); err != nil {
		return err
	}

	status, err := parseStatus(statusFields)
	if err != nil {
		return err
	}

	return withBook(func(conf *config.Config, book *ledger.Book) error {
		updated, err := book.UpdateAttachmentStatus(args, status)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"updated": updated, "files": len(args)}).Info("Attachment status updated")
		return nil
	})
}

// checkAttachmentFilenames accepts <hash>.<extension> with an optional path.
func checkAttachmentFilenames(filenames []string) error {
	for _, filename := range filenames {
		base := filepath.Base(filename)
		extension := filepath.Ext(base)
		if len(extension) < 2 || !contentkey.Valid(strings.TrimSuffix(base, extension)) {
			return fmt.Errorf("%s is not an attachment file, expected <hash>.<extension>", filename)
		}
	}
	return nil
}

// parseStatus reads key=value pairs. Values that are valid JSON keep their
// type, anything else is a string.
func parseStatus(fields []string) (map[string]interface{}, error) {
	status := map[string]interface{}{}
	for _, field := range fields {
		key, raw, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid status field %q, expected key=value", field)
		}

		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		status[key] = value
	}
	return status, nil
}

func repair(cmd *cobra.Command, args []string) error {
	logger := log.Logger(log.LOG_MAIN)

	return withBook(func(conf *config.Config, book *ledger.Book) error {
		r := reconciler.NewReconciler(book, store.NewFileSink(conf.AttachmentDir), store.NewEmlArchive(conf.EmlDir))

		if conf.DryRun {
			mismatches, err := r.FindMismatches()
			if err != nil {
				return err
			}
			logger.WithField("mismatches", len(mismatches)).Warn("Not repairing due to dry-run")
			return printJSON(cmd.OutOrStdout(), mismatches)
		}

		mismatches, repaired, err := r.FindAndRepair()
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"mismatches": len(mismatches), "repaired": repaired}).Info("Repair finished")
		return nil
	})
}

func initConfig(cmd *cobra.Command, args []string) error {
	logger := log.Logger(log.LOG_MAIN)

	written, err := config.WriteDefault(configFile)
	if err != nil {
		return err
	}
	if !written {
		logger.WithField("file", configFile).Warn("Config already exists, not overwriting")
		return nil
	}
	logger.WithField("file", configFile).Info("Wrote default config, edit login and whitelist before running")
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	return encoder.Encode(v)
}
