package registration

import (
    "context"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/jonboulle/clockwork"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/kateri/camp-registration/internal/model"
    "github.com/kateri/camp-registration/internal/repository"
)

func newTestSweeper(t *testing.T) (*Sweeper, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })

    clock := clockwork.NewFakeClockAt(testNow)
    s := NewSweeper(db,
        repository.NewSessionRepo(db),
        repository.NewHoldRepo(db),
        repository.NewRegistrationRepo(db),
        clock, 5*time.Minute)
    return s, mock
}

func expiredHoldRows(ids ...string) *sqlmock.Rows {
    rows := sqlmock.NewRows(holdCols)
    for i, id := range ids {
        rows.AddRow(2026, "boys", "week-1", id, uint64(i+1), "camper", "reg-"+id,
            testNow.Add(-10*time.Minute), testNow, testNow)
    }
    return rows
}

func TestGroupSessions(t *testing.T) {
    holds := []model.Hold{
        {Year: 2026, Gender: "boys", SessionID: "week-1"},
        {Year: 2026, Gender: "girls", SessionID: "week-1"},
        {Year: 2026, Gender: "boys", SessionID: "week-1"},
        {Year: 2025, Gender: "boys", SessionID: "week-1"},
        {Year: 2026, Gender: "boys", SessionID: "week-2"},
    }

    keys := groupSessions(holds)
    require.Len(t, keys, 4)
    assert.Equal(t, sessionKey{2026, "boys", "week-1"}, keys[0])
    assert.Equal(t, sessionKey{2026, "girls", "week-1"}, keys[1])
    assert.Equal(t, sessionKey{2025, "boys", "week-1"}, keys[2])
    assert.Equal(t, sessionKey{2026, "boys", "week-2"}, keys[3])
}

func TestGroupSessions_Empty(t *testing.T) {
    assert.Empty(t, groupSessions(nil))
}

func TestReleaseExpiredForSession(t *testing.T) {
    s, mock := newTestSweeper(t)

    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WithArgs(2026, "boys", "week-1").
        WillReturnRows(sessionRow(10, 2, 3, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+expires_at <= \?`).
        WillReturnRows(expiredHoldRows("1_camper", "2_camper"))
    mock.ExpectExec(`(?s)DELETE FROM holds.+expires_at <= \?`).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectExec(`(?s)UPDATE registrations.+SET status`).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectExec(`(?s)UPDATE sessions.+hold_count`).
        WithArgs(-2, 0, 2026, "boys", "week-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    released, err := s.ReleaseExpiredForSession(context.Background(), 2026, "boys", "week-1")
    require.NoError(t, err)
    assert.Equal(t, 2, released)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseExpiredForSession_DecrementsByRowsDeleted(t *testing.T) {
    // a hold confirmed between the read and the delete is gone from the
    // table; the counter must move by the delete count, not the read count
    s, mock := newTestSweeper(t)

    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 2, 3, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+expires_at <= \?`).
        WillReturnRows(expiredHoldRows("1_camper", "2_camper"))
    mock.ExpectExec(`(?s)DELETE FROM holds.+expires_at <= \?`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)UPDATE registrations.+SET status`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)UPDATE sessions.+hold_count`).
        WithArgs(-1, 0, 2026, "boys", "week-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    released, err := s.ReleaseExpiredForSession(context.Background(), 2026, "boys", "week-1")
    require.NoError(t, err)
    assert.Equal(t, 1, released)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseExpiredForSession_NothingExpired(t *testing.T) {
    s, mock := newTestSweeper(t)

    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 2, 3, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+expires_at <= \?`).
        WillReturnRows(sqlmock.NewRows(holdCols))
    mock.ExpectCommit()

    released, err := s.ReleaseExpiredForSession(context.Background(), 2026, "boys", "week-1")
    require.NoError(t, err)
    assert.Equal(t, 0, released)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepAllExpired_EmptyPage(t *testing.T) {
    s, mock := newTestSweeper(t)

    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+ORDER BY expires_at`).
        WillReturnRows(sqlmock.NewRows(holdCols))

    released, err := s.SweepAllExpired(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 0, released)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepAllExpired_SingleSession(t *testing.T) {
    s, mock := newTestSweeper(t)

    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+ORDER BY expires_at`).
        WillReturnRows(expiredHoldRows("1_camper", "2_camper"))
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 2, 3, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+expires_at <= \?`).
        WillReturnRows(expiredHoldRows("1_camper", "2_camper"))
    mock.ExpectExec(`(?s)DELETE FROM holds.+expires_at <= \?`).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectExec(`(?s)UPDATE registrations.+SET status`).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectExec(`(?s)UPDATE sessions.+hold_count`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    released, err := s.SweepAllExpired(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 2, released)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureCounters(t *testing.T) {
    s, mock := newTestSweeper(t)

    mock.ExpectExec(`(?s)UPDATE sessions SET hold_count = 0`).
        WillReturnResult(sqlmock.NewResult(0, 3))
    mock.ExpectExec(`(?s)UPDATE sessions SET confirmed_count = 0`).
        WillReturnResult(sqlmock.NewResult(0, 1))

    repaired, err := s.EnsureCounters(context.Background())
    require.NoError(t, err)
    assert.Equal(t, int64(4), repaired)
    assert.NoError(t, mock.ExpectationsWereMet())
}
