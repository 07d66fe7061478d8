package registration

import (
    "context"
    "database/sql"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/jonboulle/clockwork"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/kateri/camp-registration/internal/model"
    "github.com/kateri/camp-registration/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var sessionCols = []string{
    "year", "gender", "session_id", "name", "capacity", "hold_count",
    "confirmed_count", "waitlist_open", "start_date", "end_date",
    "created_at", "updated_at",
}

var registrationCols = []string{
    "id", "year", "gender", "session_id", "parent_id", "camper_id", "status",
    "hold_id", "hold_expires_at", "form_parent", "form_camper", "form_health",
    "form_consents", "form_payment", "message_packets", "deposit_paid",
    "total_due_cents", "created_at", "updated_at",
}

var holdCols = []string{
    "year", "gender", "session_id", "hold_id", "parent_id", "camper_id",
    "registration_id", "expires_at", "created_at", "updated_at",
}

var camperCols = []string{
    "id", "parent_id", "first_name", "last_name", "date_of_birth", "gender",
    "grade_completed", "medical_info", "created_at", "updated_at",
}

func newTestController(t *testing.T) (*Controller, sqlmock.Sqlmock, *clockwork.FakeClock) {
    t.Helper()
    db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })

    clock := clockwork.NewFakeClockAt(testNow)
    ctrl := NewController(db,
        repository.NewSessionRepo(db),
        repository.NewHoldRepo(db),
        repository.NewRegistrationRepo(db),
        repository.NewCamperRepo(db),
        repository.NewPaymentRepo(db),
        clock, 10000)
    return ctrl, mock, clock
}

func sessionRow(capacity, holds, confirmed int, waitlist bool) *sqlmock.Rows {
    return sqlmock.NewRows(sessionCols).AddRow(
        2026, "boys", "week-1", "Week 1", capacity, holds, confirmed, waitlist,
        nil, nil, testNow, testNow,
    )
}

func registrationRow(id, status string, parentID uint64, holdID interface{}, expiresAt interface{}) *sqlmock.Rows {
    return sqlmock.NewRows(registrationCols).AddRow(
        id, 2026, "boys", "week-1", parentID, "camper-1", status,
        holdID, expiresAt, false, false, false, false, false, 0, false, 0,
        testNow, testNow,
    )
}

func camperRow(parentID uint64) *sqlmock.Rows {
    return sqlmock.NewRows(camperCols).AddRow(
        "camper-1", parentID, "Sam", "Miller", testNow.AddDate(-11, 0, 0), "male",
        5, nil, testNow, testNow,
    )
}

func expectCamperLookup(mock sqlmock.Sqlmock, parentID uint64) {
    mock.ExpectQuery(`(?s)SELECT.+FROM campers WHERE id = \?`).
        WithArgs("camper-1").
        WillReturnRows(camperRow(parentID))
}

func startInput() StartHoldInput {
    return StartHoldInput{
        Year:      2026,
        SessionID: "week-1",
        Camper:    CamperInput{ID: "camper-1", Gender: "male"},
    }
}

func TestStartHold_CreatesHoldAndIncrementsCounter(t *testing.T) {
    ctrl, mock, _ := newTestController(t)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WithArgs(2026, "boys", "week-1").
        WillReturnRows(sessionRow(10, 3, 2, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+camper_id = \?`).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+hold_id = \?`).
        WithArgs(2026, "boys", "week-1", "7_camper-1").
        WillReturnError(sql.ErrNoRows)
    mock.ExpectExec(`(?s)INSERT INTO holds`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)UPDATE sessions.+hold_count`).
        WithArgs(1, 0, 2026, "boys", "week-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)INSERT INTO registrations`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    res, err := ctrl.StartHold(context.Background(), 7, startInput())
    require.NoError(t, err)
    assert.Equal(t, OutcomeHolding, res.Status)
    assert.Equal(t, "camper-1", res.CamperID)
    assert.NotEmpty(t, res.RegistrationID)
    assert.Equal(t, testNow.Add(15*time.Minute), res.ExpiresAt)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartHold_FullClosedSessionWritesNothing(t *testing.T) {
    ctrl, mock, _ := newTestController(t)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 4, 6, false))
    mock.ExpectRollback()

    res, err := ctrl.StartHold(context.Background(), 7, startInput())
    require.NoError(t, err)
    assert.Equal(t, OutcomeSessionFull, res.Status)
    assert.Empty(t, res.RegistrationID)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartHold_FullSessionRoutesToWaitlist(t *testing.T) {
    ctrl, mock, _ := newTestController(t)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 4, 6, true))
    mock.ExpectRollback()

    res, err := ctrl.StartHold(context.Background(), 7, startInput())
    require.NoError(t, err)
    assert.Equal(t, OutcomeWaitlist, res.Status)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartHold_ReusesLiveHoldWithoutWrites(t *testing.T) {
    ctrl, mock, _ := newTestController(t)
    liveUntil := testNow.Add(10 * time.Minute)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 3, 2, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+camper_id = \?`).
        WillReturnRows(registrationRow("reg-1", model.StatusHolding, 7, "7_camper-1", liveUntil))
    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+hold_id = \?`).
        WillReturnRows(sqlmock.NewRows(holdCols).AddRow(
            2026, "boys", "week-1", "7_camper-1", 7, "camper-1", "reg-1",
            liveUntil, testNow, testNow))
    mock.ExpectCommit()

    res, err := ctrl.StartHold(context.Background(), 7, startInput())
    require.NoError(t, err)
    assert.Equal(t, OutcomeHolding, res.Status)
    assert.Equal(t, "reg-1", res.RegistrationID)
    assert.Equal(t, liveUntil, res.ExpiresAt.UTC(), "reuse reports the existing expiry")
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartHold_RefreshAfterSweepIncrementsAgain(t *testing.T) {
    // registration still says holding but the sweep already deleted the
    // hold row: the seat was released, so the refresh must count it again
    ctrl, mock, _ := newTestController(t)
    staleUntil := testNow.Add(-5 * time.Minute)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 3, 2, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+camper_id = \?`).
        WillReturnRows(registrationRow("reg-1", model.StatusHolding, 7, "7_camper-1", staleUntil))
    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+hold_id = \?`).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectExec(`(?s)INSERT INTO holds`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)UPDATE sessions.+hold_count`).
        WithArgs(1, 0, 2026, "boys", "week-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)UPDATE registrations.+SET status`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    res, err := ctrl.StartHold(context.Background(), 7, startInput())
    require.NoError(t, err)
    assert.Equal(t, OutcomeHolding, res.Status)
    assert.Equal(t, "reg-1", res.RegistrationID)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartHold_RefreshWithLiveRowDoesNotIncrement(t *testing.T) {
    // expired registration whose hold row survived: the seat is still
    // counted, so the refresh touches the session instead of incrementing
    ctrl, mock, _ := newTestController(t)
    staleUntil := testNow.Add(-5 * time.Minute)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 3, 2, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+camper_id = \?`).
        WillReturnRows(registrationRow("reg-1", model.StatusHolding, 7, "7_camper-1", staleUntil))
    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+hold_id = \?`).
        WillReturnRows(sqlmock.NewRows(holdCols).AddRow(
            2026, "boys", "week-1", "7_camper-1", 7, "camper-1", "reg-1",
            staleUntil, testNow, testNow))
    mock.ExpectExec(`(?s)INSERT INTO holds`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)UPDATE sessions SET updated_at`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)UPDATE registrations.+SET status`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    res, err := ctrl.StartHold(context.Background(), 7, startInput())
    require.NoError(t, err)
    assert.Equal(t, OutcomeHolding, res.Status)
    assert.Equal(t, testNow.Add(15*time.Minute), res.ExpiresAt)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartHold_SessionMissing(t *testing.T) {
    ctrl, mock, _ := newTestController(t)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectRollback()

    _, err := ctrl.StartHold(context.Background(), 7, startInput())
    assert.ErrorIs(t, err, ErrSessionNotFound)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartHold_ClampsRequestedDuration(t *testing.T) {
    ctrl, mock, _ := newTestController(t)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 0, 0, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+camper_id = \?`).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectQuery(`(?s)SELECT.+FROM holds.+hold_id = \?`).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectExec(`(?s)INSERT INTO holds`).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)UPDATE sessions.+hold_count`).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)INSERT INTO registrations`).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    in := startInput()
    in.HoldMinutes = 90
    res, err := ctrl.StartHold(context.Background(), 7, in)
    require.NoError(t, err)
    assert.Equal(t, testNow.Add(30*time.Minute), res.ExpiresAt)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirm_MovesCounterAndDeletesHold(t *testing.T) {
    ctrl, mock, _ := newTestController(t)
    liveUntil := testNow.Add(10 * time.Minute)

    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 3, 2, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+WHERE id = \?`).
        WillReturnRows(registrationRow("reg-1", model.StatusHolding, 7, "7_camper-1", liveUntil))
    mock.ExpectExec(`(?s)UPDATE sessions.+hold_count`).
        WithArgs(-1, 1, 2026, "boys", "week-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)UPDATE registrations.+deposit_paid = TRUE`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`(?s)DELETE FROM holds`).
        WithArgs(2026, "boys", "week-1", "7_camper-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    reg, err := ctrl.Confirm(context.Background(), 7, ConfirmInput{
        Year: 2026, Gender: "boys", SessionID: "week-1",
        RegistrationID: "reg-1", DepositSuccess: true,
    })
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, reg.Status)
    assert.True(t, reg.DepositPaid)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirm_PreconditionsAbortWithoutWrites(t *testing.T) {
    liveUntil := testNow.Add(10 * time.Minute)
    expiredAt := testNow.Add(-1 * time.Minute)

    cases := []struct {
        name    string
        rows    *sqlmock.Rows
        caller  uint64
        deposit bool
        want    error
    }{
        {"wrong parent", registrationRow("reg-1", model.StatusHolding, 42, "7_camper-1", liveUntil), 7, true, ErrPermissionDenied},
        {"not holding", registrationRow("reg-1", model.StatusIncomplete, 7, nil, nil), 7, true, ErrInvalidStatus},
        {"no deposit", registrationRow("reg-1", model.StatusHolding, 7, "7_camper-1", liveUntil), 7, false, ErrDepositRequired},
        {"hold expired", registrationRow("reg-1", model.StatusHolding, 7, "7_camper-1", expiredAt), 7, true, ErrHoldExpired},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            ctrl, mock, _ := newTestController(t)
            mock.ExpectBegin()
            mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
                WillReturnRows(sessionRow(10, 3, 2, false))
            mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+WHERE id = \?`).
                WillReturnRows(tc.rows)
            mock.ExpectRollback()

            _, err := ctrl.Confirm(context.Background(), tc.caller, ConfirmInput{
                Year: 2026, Gender: "boys", SessionID: "week-1",
                RegistrationID: "reg-1", DepositSuccess: tc.deposit,
            })
            assert.ErrorIs(t, err, tc.want)
            assert.NoError(t, mock.ExpectationsWereMet())
        })
    }
}

func TestCreateRegistration_FullClosedSessionRejected(t *testing.T) {
    ctrl, mock, _ := newTestController(t)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 4, 6, false))
    mock.ExpectRollback()

    _, err := ctrl.CreateRegistration(context.Background(), 7, startInput())
    assert.ErrorIs(t, err, ErrSessionFull)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRegistration_FullOpenSessionWaitlists(t *testing.T) {
    ctrl, mock, _ := newTestController(t)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 4, 6, true))
    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+camper_id = \?`).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectExec(`(?s)INSERT INTO registrations`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    res, err := ctrl.CreateRegistration(context.Background(), 7, startInput())
    require.NoError(t, err)
    assert.Equal(t, model.StatusWaitlisted, res.Status)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRegistration_DuplicateCamperRejected(t *testing.T) {
    ctrl, mock, _ := newTestController(t)

    expectCamperLookup(mock, 7)
    mock.ExpectBegin()
    mock.ExpectQuery(`(?s)SELECT.+FROM sessions.+FOR UPDATE`).
        WillReturnRows(sessionRow(10, 1, 1, false))
    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+camper_id = \?`).
        WillReturnRows(registrationRow("reg-1", model.StatusIncomplete, 7, nil, nil))
    mock.ExpectRollback()

    _, err := ctrl.CreateRegistration(context.Background(), 7, startInput())
    assert.ErrorIs(t, err, ErrAlreadyRegistered)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitiateDeposit_RequiresHoldingStatus(t *testing.T) {
    ctrl, mock, _ := newTestController(t)

    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+WHERE id = \?`).
        WillReturnRows(registrationRow("reg-1", model.StatusIncomplete, 7, nil, nil))

    _, err := ctrl.InitiateDeposit(context.Background(), 7, DepositInput{
        Year: 2026, Gender: "boys", SessionID: "week-1", RegistrationID: "reg-1",
    })
    assert.ErrorIs(t, err, ErrInvalidStatus)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDepositPayments_OwnershipEnforced(t *testing.T) {
    ctrl, mock, _ := newTestController(t)
    liveUntil := testNow.Add(10 * time.Minute)

    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+WHERE id = \?`).
        WillReturnRows(registrationRow("reg-1", model.StatusHolding, 42, "42_camper-1", liveUntil))

    _, err := ctrl.ListDepositPayments(context.Background(), 7, DepositInput{
        Year: 2026, Gender: "boys", SessionID: "week-1", RegistrationID: "reg-1",
    })
    assert.ErrorIs(t, err, ErrPermissionDenied)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitiateDeposit_WritesAuthorizedPayment(t *testing.T) {
    ctrl, mock, _ := newTestController(t)
    liveUntil := testNow.Add(10 * time.Minute)

    mock.ExpectQuery(`(?s)SELECT.+FROM registrations.+WHERE id = \?`).
        WillReturnRows(registrationRow("reg-1", model.StatusHolding, 7, "7_camper-1", liveUntil))
    mock.ExpectExec(`(?s)INSERT INTO payments`).
        WillReturnResult(sqlmock.NewResult(0, 1))

    id, err := ctrl.InitiateDeposit(context.Background(), 7, DepositInput{
        Year: 2026, Gender: "boys", SessionID: "week-1", RegistrationID: "reg-1",
    })
    require.NoError(t, err)
    assert.NotEmpty(t, id)
    assert.NoError(t, mock.ExpectationsWereMet())
}
