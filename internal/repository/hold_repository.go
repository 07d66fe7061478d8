package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/kateri/camp-registration/internal/model"
)

// HoldRepo provides data access to the holds table.  A hold row is keyed
// by (year, gender, session_id, hold_id) where hold_id is derived
// deterministically from the parent and camper, so re-entrant hold
// attempts address the same row.  All methods compare expirations in
// UTC; callers must supply UTC timestamps.
type HoldRepo struct {
    db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// HoldKey derives the deterministic hold id for a (parent, camper) pair.
// The derivation is pure and stable across runs; it stands in for a
// uniqueness index on the pair.  Changing it would orphan live holds.
func HoldKey(parentID uint64, camperID string) string {
    return fmt.Sprintf("%d_%s", parentID, camperID)
}

// GetTx reads a single hold row within the provided transaction.  It
// returns sql.ErrNoRows when no hold exists at that id, which the hold
// controller uses as the authoritative "is a seat currently counted"
// signal (the registration's denormalized pointer may be stale).
func (r *HoldRepo) GetTx(ctx context.Context, tx *sql.Tx, year int, gender, sessionID, holdID string) (*model.Hold, error) {
    const q = `SELECT year, gender, session_id, hold_id, parent_id, camper_id,
                      registration_id, expires_at, created_at, updated_at
               FROM holds
               WHERE year = ? AND gender = ? AND session_id = ? AND hold_id = ?`
    var h model.Hold
    err := tx.QueryRowContext(ctx, q, year, gender, sessionID, holdID).Scan(
        &h.Year, &h.Gender, &h.SessionID, &h.HoldID, &h.ParentID, &h.CamperID,
        &h.RegistrationID, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &h, nil
}

// UpsertTx writes or overwrites a hold row within the provided
// transaction.  Overwriting is how a stale hold is renewed: the new
// expiry replaces the old one and the registration pointer is refreshed.
func (r *HoldRepo) UpsertTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
    const q = `INSERT INTO holds
                   (year, gender, session_id, hold_id, parent_id, camper_id,
                    registration_id, expires_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE
                   registration_id = VALUES(registration_id),
                   expires_at = VALUES(expires_at),
                   updated_at = UTC_TIMESTAMP()`
    _, err := tx.ExecContext(ctx, q,
        h.Year, h.Gender, h.SessionID, h.HoldID, h.ParentID, h.CamperID,
        h.RegistrationID, h.ExpiresAt.UTC().Format("2006-01-02 15:04:05"),
    )
    return err
}

// DeleteTx removes a single hold row within the provided transaction.
// Used by confirm, which releases the seat's provisional reservation as
// part of the same transaction that bumps the confirmed counter.
func (r *HoldRepo) DeleteTx(ctx context.Context, tx *sql.Tx, year int, gender, sessionID, holdID string) error {
    const q = `DELETE FROM holds
               WHERE year = ? AND gender = ? AND session_id = ? AND hold_id = ?`
    _, err := tx.ExecContext(ctx, q, year, gender, sessionID, holdID)
    return err
}

// ExpiredBySessionTx returns all holds in one session whose expiry is at
// or before the given instant.  The query runs inside the caller's
// transaction so the release job can read and delete under the session
// row lock.  When there are no expired holds it returns an empty slice.
func (r *HoldRepo) ExpiredBySessionTx(ctx context.Context, tx *sql.Tx, year int, gender, sessionID string, now time.Time) ([]model.Hold, error) {
    const q = `SELECT year, gender, session_id, hold_id, parent_id, camper_id,
                      registration_id, expires_at, created_at, updated_at
               FROM holds
               WHERE year = ? AND gender = ? AND session_id = ? AND expires_at <= ?`
    rows, err := tx.QueryContext(ctx, q, year, gender, sessionID, now.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    holds := make([]model.Hold, 0)
    for rows.Next() {
        var h model.Hold
        if err := rows.Scan(
            &h.Year, &h.Gender, &h.SessionID, &h.HoldID, &h.ParentID, &h.CamperID,
            &h.RegistrationID, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        holds = append(holds, h)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return holds, nil
}

// DeleteExpiredBySessionTx deletes every expired hold in one session and
// returns the number of rows removed.  The count, not the size of any
// earlier read, is what the caller must decrement the session's hold
// counter by so that a hold confirmed in between cannot be released twice.
func (r *HoldRepo) DeleteExpiredBySessionTx(ctx context.Context, tx *sql.Tx, year int, gender, sessionID string, now time.Time) (int64, error) {
    const q = `DELETE FROM holds
               WHERE year = ? AND gender = ? AND session_id = ? AND expires_at <= ?`
    res, err := tx.ExecContext(ctx, q, year, gender, sessionID, now.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ListExpired pages through expired holds across every session, oldest
// first.  It is the global sweep's work queue: the limit bounds how much
// one sweep run processes, and sessions with more expired holds than the
// page are drained incrementally across subsequent runs.
func (r *HoldRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Hold, error) {
    const q = `SELECT year, gender, session_id, hold_id, parent_id, camper_id,
                      registration_id, expires_at, created_at, updated_at
               FROM holds
               WHERE expires_at <= ?
               ORDER BY expires_at
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, now.UTC().Format("2006-01-02 15:04:05"), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    holds := make([]model.Hold, 0)
    for rows.Next() {
        var h model.Hold
        if err := rows.Scan(
            &h.Year, &h.Gender, &h.SessionID, &h.HoldID, &h.ParentID, &h.CamperID,
            &h.RegistrationID, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        holds = append(holds, h)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return holds, nil
}
