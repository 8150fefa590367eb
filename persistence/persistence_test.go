// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"path/filepath"
	"testing"

	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func testRecords() map[string]*domain.LedgerRecord {
	return map[string]*domain.LedgerRecord{
		"k1": {
			From:     domain.AddressList{"a@x.com"},
			To:       domain.AddressList{"b@y.com", "c@y.com"},
			Subject:  strPtr("Report"),
			Date:     strPtr("05.03.2024 10:00:00"),
			ReadDate: "06.03.2024 08:00:00",
			Attachments: map[string]*domain.LedgerAttachment{
				"h1": {
					Filename:         "h1.xlsx",
					OriginalFileName: "report.xlsx",
					Extension:        "xlsx",
					Status:           map[string]interface{}{"duplicate": false, "note": "checked"},
					Size:             120,
					Mime:             "application/vnd.ms-excel",
					IsDuplicate:      false,
					Checksum:         "abc",
				},
				"h2": {
					Filename:         "h2.csv",
					OriginalFileName: "report.csv",
					Extension:        "csv",
					Status:           map[string]interface{}{"duplicate": true},
					Size:             3,
					Mime:             "application/octet-stream",
					IsDuplicate:      true,
				},
			},
		},
		"k2": {
			From:     domain.AddressList{},
			To:       domain.AddressList{},
			ReadDate: "06.03.2024 08:00:00",
		},
	}
}

func newStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	datasource := filepath.Join(t.TempDir(), "processed_emails.db")
	store, err := NewSQLiteStore(datasource)
	require.NoError(t, err)
	return store, datasource
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	defer store.Close()

	empty, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, empty)

	records := testRecords()
	require.NoError(t, store.Write(records))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	delete(records, "k1")
	require.NoError(t, store.Write(records))
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestSQLiteStoreReopen(t *testing.T) {
	store, datasource := newStore(t)
	require.NoError(t, store.Write(testRecords()))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(datasource)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, testRecords(), loaded)
}

func TestSQLiteStoreBehindBook(t *testing.T) {
	store, _ := newStore(t)
	defer store.Close()

	book := ledger.NewBook(store)
	require.NoError(t, book.Save(testRecords()))
	require.NoError(t, book.Load())

	assert.True(t, book.Has("k1"))
	assert.Equal(t, map[string]struct{}{"h1": {}, "h2": {}}, book.AttachmentHashes())

	updated, err := book.UpdateAttachmentStatus([]string{"h2.csv"}, map[string]interface{}{"processed": true})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, true, loaded["k1"].Attachments["h2"].Status["processed"])
}
