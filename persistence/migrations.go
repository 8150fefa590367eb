// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import "github.com/rubenv/sql-migrate"

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1_ledger",
			Up: []string{
				`CREATE TABLE messages (
					hash TEXT PRIMARY KEY NOT NULL,
					sender TEXT NOT NULL,
					receivers TEXT NOT NULL,
					subject TEXT NULL,
					date TEXT NULL,
					read_date TEXT NOT NULL
				)`,
				`CREATE TABLE attachments (
					message_hash TEXT NOT NULL REFERENCES messages(hash) ON DELETE CASCADE,
					hash TEXT NOT NULL,
					filename TEXT NOT NULL,
					original_file_name TEXT NOT NULL,
					extension TEXT NOT NULL,
					status TEXT NOT NULL,
					size INTEGER NOT NULL,
					mime TEXT NOT NULL,
					is_duplicate BOOLEAN NOT NULL,
					checksum TEXT NOT NULL DEFAULT '',
					PRIMARY KEY (message_hash, hash)
				)`,
				`CREATE INDEX attachments_hash ON attachments(hash)`,
			},
			Down: []string{
				`DROP INDEX attachments_hash`,
				`DROP TABLE attachments`,
				`DROP TABLE messages`,
			},
		},
	},
}
