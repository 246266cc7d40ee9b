package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDatabaseWithExpectedPragmas(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "history.db")

	s, err := Open(dbPath)
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close()

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, sqliteBusyTimeoutMS, busyTimeout)
}

func TestOpenReturnsErrorForUnwritablePath(t *testing.T) {
	_, err := Open("/invalid/nonexistent/path/history.db")
	assert.Error(t, err)
}

func TestRecordAndReadRoundEvents(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	require.NoError(t, s.RecordRound(0, 1, "starter", now))
	require.NoError(t, s.RecordRound(0, 1, "closed", now.Add(time.Second)))

	events, err := s.RecentRounds(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "closed", events[0].Phase, "most recent event should come first")
	assert.Equal(t, uint32(1), events[0].QSPNID)
}

func TestRecordLinkEvent(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RecordLinkEvent(4, "link_up", 1500, time.Now()))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM link_events").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRecentRoundsRespectsLimit(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordRound(0, uint32(i), "participant", time.Now()))
	}

	events, err := s.RecentRounds(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
}
