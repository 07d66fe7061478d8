package repository

import (
    "context"
    "database/sql"

    "github.com/kateri/camp-registration/internal/model"
)

// SessionRepo provides data access to the sessions table.  Sessions are
// identified by the composite key (year, gender, session_id) where gender
// is the storage partition key ("boys"/"girls").  The hold and confirmed
// counters on a session row are mutated only through ApplyCounterDeltaTx
// inside a transaction that has first locked the row via GetForUpdateTx;
// that read-then-write discipline is what serializes concurrent writers
// on the per-session point of contention.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying database handle so callers can open
// transactions spanning multiple repositories.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionColumns = `year, gender, session_id, name, capacity, hold_count,
            confirmed_count, waitlist_open, start_date, end_date, created_at, updated_at`

func scanSession(row *sql.Row) (*model.Session, error) {
    var s model.Session
    var holdCount, confirmedCount sql.NullInt64
    var startDate, endDate sql.NullTime
    err := row.Scan(
        &s.Year, &s.Gender, &s.SessionID, &s.Name, &s.Capacity,
        &holdCount, &confirmedCount, &s.WaitlistOpen,
        &startDate, &endDate, &s.CreatedAt, &s.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if holdCount.Valid {
        n := int(holdCount.Int64)
        s.HoldCount = &n
    }
    if confirmedCount.Valid {
        n := int(confirmedCount.Int64)
        s.ConfirmedCount = &n
    }
    if startDate.Valid {
        t := startDate.Time
        s.StartDate = &t
    }
    if endDate.Valid {
        t := endDate.Time
        s.EndDate = &t
    }
    return &s, nil
}

// Get returns a single session outside of any transaction.  It returns
// sql.ErrNoRows when the session does not exist.
func (r *SessionRepo) Get(ctx context.Context, year int, gender, sessionID string) (*model.Session, error) {
    const q = `SELECT ` + sessionColumns + ` FROM sessions
               WHERE year = ? AND gender = ? AND session_id = ?`
    return scanSession(r.db.QueryRowContext(ctx, q, year, gender, sessionID))
}

// GetForUpdateTx reads a session row within the provided transaction and
// takes a row lock on it (SELECT ... FOR UPDATE).  Every operation that
// mutates the session counters must acquire this lock first so that two
// concurrent hold or confirm attempts against the same session are
// serialized by the database.  Returns sql.ErrNoRows when missing.
func (r *SessionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, year int, gender, sessionID string) (*model.Session, error) {
    const q = `SELECT ` + sessionColumns + ` FROM sessions
               WHERE year = ? AND gender = ? AND session_id = ? FOR UPDATE`
    return scanSession(tx.QueryRowContext(ctx, q, year, gender, sessionID))
}

// ApplyCounterDeltaTx adjusts the hold and confirmed counters on a session
// row.  It must only be called inside a transaction that already holds the
// row lock from GetForUpdateTx.  Missing counters are treated as zero and
// the result is floored at zero so a stray decrement can never drive a
// counter negative.
func (r *SessionRepo) ApplyCounterDeltaTx(ctx context.Context, tx *sql.Tx, year int, gender, sessionID string, holdDelta, confirmedDelta int) error {
    const q = `UPDATE sessions
               SET hold_count = GREATEST(COALESCE(hold_count, 0) + ?, 0),
                   confirmed_count = GREATEST(COALESCE(confirmed_count, 0) + ?, 0),
                   updated_at = UTC_TIMESTAMP()
               WHERE year = ? AND gender = ? AND session_id = ?`
    _, err := tx.ExecContext(ctx, q, holdDelta, confirmedDelta, year, gender, sessionID)
    return err
}

// TouchTx bumps a session's updated_at without changing any counters.  It
// is used on no-op hold renewals so the row still records recent activity.
func (r *SessionRepo) TouchTx(ctx context.Context, tx *sql.Tx, year int, gender, sessionID string) error {
    const q = `UPDATE sessions SET updated_at = UTC_TIMESTAMP()
               WHERE year = ? AND gender = ? AND session_id = ?`
    _, err := tx.ExecContext(ctx, q, year, gender, sessionID)
    return err
}

// EnsureCounterDefaults fills in zero for any session whose hold_count or
// confirmed_count column is NULL.  It never touches rows that already
// carry a numeric value, so repeated runs cannot clobber legitimate
// counts.  The two statements run outside a transaction; each only ever
// sets missing defaults.  Returns the number of rows repaired.
func (r *SessionRepo) EnsureCounterDefaults(ctx context.Context) (int64, error) {
    var total int64
    res, err := r.db.ExecContext(ctx,
        `UPDATE sessions SET hold_count = 0, updated_at = UTC_TIMESTAMP() WHERE hold_count IS NULL`)
    if err != nil {
        return 0, err
    }
    if n, err := res.RowsAffected(); err == nil {
        total += n
    }
    res, err = r.db.ExecContext(ctx,
        `UPDATE sessions SET confirmed_count = 0, updated_at = UTC_TIMESTAMP() WHERE confirmed_count IS NULL`)
    if err != nil {
        return total, err
    }
    if n, err := res.RowsAffected(); err == nil {
        total += n
    }
    return total, nil
}

// Upsert creates or updates a session document.  Counters are only
// initialized on first insert; an update from the admin tooling must not
// reset seat accounting maintained by the hold controller.
func (r *SessionRepo) Upsert(ctx context.Context, s *model.Session) error {
    const q = `INSERT INTO sessions
                   (year, gender, session_id, name, capacity, hold_count, confirmed_count,
                    waitlist_open, start_date, end_date)
               VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?, ?)
               ON DUPLICATE KEY UPDATE
                   name = VALUES(name),
                   capacity = VALUES(capacity),
                   waitlist_open = VALUES(waitlist_open),
                   start_date = VALUES(start_date),
                   end_date = VALUES(end_date),
                   updated_at = UTC_TIMESTAMP()`
    var start, end interface{}
    if s.StartDate != nil {
        start = s.StartDate.UTC().Format("2006-01-02 15:04:05")
    }
    if s.EndDate != nil {
        end = s.EndDate.UTC().Format("2006-01-02 15:04:05")
    }
    _, err := r.db.ExecContext(ctx, q,
        s.Year, s.Gender, s.SessionID, s.Name, s.Capacity, s.WaitlistOpen, start, end)
    return err
}

// ListByYearGender returns all sessions for one (year, gender) partition
// ordered by session id.  Used by the public browse endpoint and the
// admin holds summary.
func (r *SessionRepo) ListByYearGender(ctx context.Context, year int, gender string) ([]model.Session, error) {
    const q = `SELECT ` + sessionColumns + ` FROM sessions
               WHERE year = ? AND gender = ? ORDER BY session_id`
    rows, err := r.db.QueryContext(ctx, q, year, gender)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    sessions := make([]model.Session, 0)
    for rows.Next() {
        var s model.Session
        var holdCount, confirmedCount sql.NullInt64
        var startDate, endDate sql.NullTime
        if err := rows.Scan(
            &s.Year, &s.Gender, &s.SessionID, &s.Name, &s.Capacity,
            &holdCount, &confirmedCount, &s.WaitlistOpen,
            &startDate, &endDate, &s.CreatedAt, &s.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        if holdCount.Valid {
            n := int(holdCount.Int64)
            s.HoldCount = &n
        }
        if confirmedCount.Valid {
            n := int(confirmedCount.Int64)
            s.ConfirmedCount = &n
        }
        if startDate.Valid {
            t := startDate.Time
            s.StartDate = &t
        }
        if endDate.Valid {
            t := endDate.Time
            s.EndDate = &t
        }
        sessions = append(sessions, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return sessions, nil
}
