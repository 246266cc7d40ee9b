package history

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// These mirror the teacher's ai/tracker sqlmock tests: assert the exact
// query/args shape against a mocked driver rather than a real file, so the
// SQL text itself is covered independent of sqlite3 being linked in.

func TestRecordRoundExecutesExpectedStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &Store{db: db}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec("INSERT INTO round_events").
		WithArgs(0, uint32(7), "starter", at.Format(time.RFC3339Nano)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.RecordRound(0, 7, "starter", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordLinkEventExecutesExpectedStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &Store{db: db}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec("INSERT INTO link_events").
		WithArgs(uint16(4), "link_down", uint32(1500), at.Format(time.RFC3339Nano)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.RecordLinkEvent(4, "link_down", 1500, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentRoundsQueriesAndScansRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &Store{db: db}
	occurredAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format(time.RFC3339Nano)

	rows := sqlmock.NewRows([]string{"level", "qspn_id", "phase", "occurred_at"}).
		AddRow(0, 9, "closed", occurredAt)
	mock.ExpectQuery("SELECT level, qspn_id, phase, occurred_at FROM round_events").
		WithArgs(10).
		WillReturnRows(rows)

	events, err := s.RecentRounds(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "closed", events[0].Phase)
	require.Equal(t, uint32(9), events[0].QSPNID)
}

func TestRecentRoundsPropagatesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &Store{db: db}

	mock.ExpectQuery("SELECT level, qspn_id, phase, occurred_at FROM round_events").
		WithArgs(5).
		WillReturnError(sql.ErrConnDone)

	_, err = s.RecentRounds(5)
	require.Error(t, err)
}
