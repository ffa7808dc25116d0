package alerts

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *PostgresRepository) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresRepository(db)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())

		mock.ExpectClose()
		require.NoError(t, repo.Close())
	})

	return mock, repo
}

func TestPostgresRepository_EnsureSchema(t *testing.T) {
	t.Parallel()

	mock, repo := setupMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS safety_alerts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestPostgresRepository_Append(t *testing.T) {
	t.Parallel()

	mock, repo := setupMockDB(t)
	alert := testAlert("evt-1")

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO safety_alerts`)).
		WithArgs("evt-1", "watch-1", "user-1", "FALL_NO_RESPONSE", "HIGH", int64(1_700_000_000_000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Append(context.Background(), alert))
}

func TestPostgresRepository_AppendDuplicate(t *testing.T) {
	t.Parallel()

	mock, repo := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO safety_alerts`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Append(context.Background(), testAlert("evt-1")), ErrDuplicate)
}

func TestPostgresRepository_Recent(t *testing.T) {
	t.Parallel()

	mock, repo := setupMockDB(t)

	rows := sqlmock.NewRows([]string{
		"event_id", "device_id", "user_id", "event_code", "severity", "timestamp_ms", "metadata",
	}).AddRow(
		"evt-1", "watch-1", "user-1", "FALL_NO_RESPONSE", "HIGH", int64(1_700_000_000_000),
		[]byte(`{"message":"No response to fall prompt","userResponded":false,"confirmationWindowSec":15,`+
			`"location":{"latitude":55.75,"longitude":37.61}}`),
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(5).
		WillReturnRows(rows)

	alerts, err := repo.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, testAlert("evt-1"), alerts[0])
}

func TestPostgresRepository_QueryError(t *testing.T) {
	t.Parallel()

	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrConnDone)

	_, err := repo.All(context.Background())
	require.ErrorIs(t, err, sql.ErrConnDone)
}
