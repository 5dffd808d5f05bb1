package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contribstats/collector"
)

// setupTestDB creates a new test database connection with a mock
func setupTestDB(t *testing.T) (*DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	database := &DB{conn: sqlxDB}
	database.stmtCache.statements = make(map[string]*sqlx.Stmt)

	cleanup := func() {
		database.Close()
		db.Close()
	}

	return database, mock, cleanup
}

func TestFetchLastRun(t *testing.T) {
	checkpoint := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		mockSetup   func(sqlmock.Sqlmock)
		expected    *LastRun
		expectedErr error
	}{
		{
			name: "successful retrieval",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"last_run", "took_ms", "successful"}).
					AddRow(checkpoint, 1234.5, true)
				mock.ExpectPrepare("SELECT last_run, took_ms, successful").
					ExpectQuery().
					WillReturnRows(rows)
			},
			expected: &LastRun{LastRun: checkpoint, TookMS: 1234.5, Successful: true},
		},
		{
			name: "no checkpoint recorded yet",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("SELECT last_run, took_ms, successful").
					ExpectQuery().
					WillReturnError(sql.ErrNoRows)
			},
			expectedErr: ErrNoCheckpoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			result, err := db.FetchLastRun(context.Background())
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateLastRun(t *testing.T) {
	checkpoint := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		lastRun     LastRun
		mockSetup   func(sqlmock.Sqlmock)
		expectedErr error
	}{
		{
			name:    "successful upsert",
			lastRun: LastRun{LastRun: checkpoint, TookMS: 987.6, Successful: true},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO last_run").
					WithArgs(checkpoint, 987.6, true).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:        "zero timestamp rejected",
			lastRun:     LastRun{TookMS: 1.0, Successful: true},
			mockSetup:   func(mock sqlmock.Sqlmock) {},
			expectedErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			err := db.UpdateLastRun(context.Background(), tt.lastRun)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func testContribution(repo string) collector.Contribution {
	return collector.Contribution{
		Repo:         repo,
		CommitsCount: collector.CommitsCount{Total: 10, Authored: 3},
		IssuesCount:  collector.IssuesCount{Total: 2, Authored: 0},
		PullRequestCount: collector.PullRequestCount{
			Total:    collector.PullRequestStat{Open: 5, Merged: 4},
			Authored: collector.PullRequestStat{Open: 1, Merged: 1},
		},
	}
}

func TestSaveContributions(t *testing.T) {
	recordedAt := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("batch insert in one transaction", func(t *testing.T) {
		db, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectBegin()
		prepared := mock.ExpectPrepare("INSERT INTO contributions")
		prepared.ExpectExec().
			WithArgs(recordedAt, "acme/widgets", false, false, 10, 3, 2, 0, 5, 4, 1, 1).
			WillReturnResult(sqlmock.NewResult(1, 1))
		prepared.ExpectExec().
			WithArgs(recordedAt, "acme/gadgets", false, false, 10, 3, 2, 0, 5, 4, 1, 1).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		err := db.SaveContributions(context.Background(), recordedAt, []collector.Contribution{
			testContribution("acme/widgets"),
			testContribution("acme/gadgets"),
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		db, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO contributions").
			ExpectExec().
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := db.SaveContributions(context.Background(), recordedAt, []collector.Contribution{
			testContribution("acme/widgets"),
		})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		db, mock, cleanup := setupTestDB(t)
		defer cleanup()

		err := db.SaveContributions(context.Background(), recordedAt, nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty repo identifier rejected", func(t *testing.T) {
		db, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO contributions")
		mock.ExpectRollback()

		contribution := testContribution("")
		err := db.SaveContributions(context.Background(), recordedAt, []collector.Contribution{contribution})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
