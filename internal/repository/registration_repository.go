package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/kateri/camp-registration/internal/model"
)

// RegistrationRepo provides CRUD operations for registrations.  A
// registration is the durable record of one (parent, camper, session)
// attempt; rows are created once and transitioned, never deleted.  All
// timestamp fields are stored in UTC.
type RegistrationRepo struct {
    db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, year, gender, session_id, parent_id, camper_id, status,
            hold_id, hold_expires_at, form_parent, form_camper, form_health,
            form_consents, form_payment, message_packets, deposit_paid,
            total_due_cents, created_at, updated_at`

func scanRegistration(scan func(dest ...interface{}) error) (*model.Registration, error) {
    var reg model.Registration
    var holdID sql.NullString
    var holdExpiresAt sql.NullTime
    err := scan(
        &reg.ID, &reg.Year, &reg.Gender, &reg.SessionID, &reg.ParentID, &reg.CamperID,
        &reg.Status, &holdID, &holdExpiresAt,
        &reg.FormCompletion.Parent, &reg.FormCompletion.Camper, &reg.FormCompletion.Health,
        &reg.FormCompletion.Consents, &reg.FormCompletion.Payment,
        &reg.MessagePackets, &reg.DepositPaid, &reg.TotalDueCents,
        &reg.CreatedAt, &reg.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if holdID.Valid {
        v := holdID.String
        reg.HoldID = &v
    }
    if holdExpiresAt.Valid {
        t := holdExpiresAt.Time
        reg.HoldExpiresAt = &t
    }
    return &reg, nil
}

// CreateTx inserts a new registration within the scope of an existing
// transaction.  The caller supplies the uuid id and the initial status;
// timestamps are set by the database.  The caller must commit or roll
// back the transaction.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
    const q = `INSERT INTO registrations
                   (id, year, gender, session_id, parent_id, camper_id, status,
                    hold_id, hold_expires_at, message_packets, deposit_paid, total_due_cents)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var holdID interface{}
    var holdExpiresAt interface{}
    if reg.HoldID != nil {
        holdID = *reg.HoldID
    }
    if reg.HoldExpiresAt != nil {
        holdExpiresAt = reg.HoldExpiresAt.UTC().Format("2006-01-02 15:04:05")
    }
    _, err := tx.ExecContext(ctx, q,
        reg.ID, reg.Year, reg.Gender, reg.SessionID, reg.ParentID, reg.CamperID,
        reg.Status, holdID, holdExpiresAt, reg.MessagePackets, reg.DepositPaid,
        reg.TotalDueCents,
    )
    return err
}

// GetTx reads a single registration by id within a transaction, scoped to
// its session partition.  Returns sql.ErrNoRows when absent.
func (r *RegistrationRepo) GetTx(ctx context.Context, tx *sql.Tx, year int, gender, sessionID, regID string) (*model.Registration, error) {
    const q = `SELECT ` + registrationColumns + ` FROM registrations
               WHERE id = ? AND year = ? AND gender = ? AND session_id = ?`
    row := tx.QueryRowContext(ctx, q, regID, year, gender, sessionID)
    return scanRegistration(row.Scan)
}

// Get reads a single registration by id outside of any transaction.
func (r *RegistrationRepo) Get(ctx context.Context, year int, gender, sessionID, regID string) (*model.Registration, error) {
    const q = `SELECT ` + registrationColumns + ` FROM registrations
               WHERE id = ? AND year = ? AND gender = ? AND session_id = ?`
    row := r.db.QueryRowContext(ctx, q, regID, year, gender, sessionID)
    return scanRegistration(row.Scan)
}

// GetByCamperTx looks up the registration for one camper in one session
// within a transaction.  At most one registration exists per camper per
// session, enforced by a unique key.  Returns sql.ErrNoRows when the
// camper has no registration yet.
func (r *RegistrationRepo) GetByCamperTx(ctx context.Context, tx *sql.Tx, year int, gender, sessionID, camperID string) (*model.Registration, error) {
    const q = `SELECT ` + registrationColumns + ` FROM registrations
               WHERE year = ? AND gender = ? AND session_id = ? AND camper_id = ?
               LIMIT 1`
    row := tx.QueryRowContext(ctx, q, year, gender, sessionID, camperID)
    return scanRegistration(row.Scan)
}

// SetHoldingTx moves a registration to the holding state and records the
// active hold's id and expiry.  Called on both fresh holds and renewals.
func (r *RegistrationRepo) SetHoldingTx(ctx context.Context, tx *sql.Tx, regID, holdID string, expiresAt time.Time) error {
    const q = `UPDATE registrations
               SET status = ?, hold_id = ?, hold_expires_at = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    _, err := tx.ExecContext(ctx, q,
        model.StatusHolding, holdID, expiresAt.UTC().Format("2006-01-02 15:04:05"), regID)
    return err
}

// ConfirmTx transitions a registration to the confirmed state and records
// the deposit as paid.  The caller is responsible for the accompanying
// counter mutations and hold deletion in the same transaction.
func (r *RegistrationRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, regID string) error {
    const q = `UPDATE registrations
               SET status = ?, deposit_paid = TRUE, form_payment = TRUE, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, model.StatusConfirmed, regID)
    return err
}

// MarkExpiredTx flips a batch of registrations to the expired state.  The
// status guard means a registration confirmed after the release job read
// its hold is left untouched.  The denormalized hold pointer is kept
// as-is; the hold controller treats it as advisory and re-checks hold
// existence on the next hold attempt.
func (r *RegistrationRepo) MarkExpiredTx(ctx context.Context, tx *sql.Tx, regIDs []string) error {
    if len(regIDs) == 0 {
        return nil
    }
    placeholders := make([]string, 0, len(regIDs))
    args := make([]interface{}, 0, len(regIDs)+1)
    args = append(args, model.StatusExpired)
    for _, id := range regIDs {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    q := `UPDATE registrations
          SET status = ?, updated_at = UTC_TIMESTAMP()
          WHERE id IN (` + strings.Join(placeholders, ",") + `) AND status = '` + model.StatusHolding + `'`
    _, err := tx.ExecContext(ctx, q, args...)
    return err
}

// ListByParent returns all registrations created by the given parent,
// newest first, along with the display name of their session.  Used by
// the parent-facing listing endpoint.
func (r *RegistrationRepo) ListByParent(ctx context.Context, parentID uint64) ([]RegistrationDetail, error) {
    const q = `SELECT r.id, r.year, r.gender, r.session_id, r.camper_id, r.status,
                      r.hold_expires_at, r.deposit_paid, r.total_due_cents, r.created_at,
                      s.name, c.first_name, c.last_name
               FROM registrations r
               JOIN sessions s ON s.year = r.year AND s.gender = r.gender AND s.session_id = r.session_id
               JOIN campers c ON c.id = r.camper_id
               WHERE r.parent_id = ?
               ORDER BY r.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, parentID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]RegistrationDetail, 0)
    for rows.Next() {
        var d RegistrationDetail
        var holdExpiresAt sql.NullTime
        if err := rows.Scan(
            &d.ID, &d.Year, &d.Gender, &d.SessionID, &d.CamperID, &d.Status,
            &holdExpiresAt, &d.DepositPaid, &d.TotalDueCents, &d.CreatedAt,
            &d.SessionName, &d.CamperFirstName, &d.CamperLastName,
        ); err != nil {
            return nil, err
        }
        if holdExpiresAt.Valid {
            iso := holdExpiresAt.Time.UTC().Format(time.RFC3339)
            d.HoldExpiresAt = &iso
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return details, nil
}

// RegistrationDetail is the parent-facing view of a registration with the
// session and camper display fields joined in.
type RegistrationDetail struct {
    ID              string    `json:"id"`
    Year            int       `json:"year"`
    Gender          string    `json:"gender"`
    SessionID       string    `json:"session_id"`
    SessionName     string    `json:"session_name"`
    CamperID        string    `json:"camper_id"`
    CamperFirstName string    `json:"camper_first_name"`
    CamperLastName  string    `json:"camper_last_name"`
    Status          string    `json:"status"`
    HoldExpiresAt   *string   `json:"hold_expires_at,omitempty"`
    DepositPaid     bool      `json:"deposit_paid"`
    TotalDueCents   uint32    `json:"total_due_cents"`
    CreatedAt       time.Time `json:"created_at"`
}
