package repository

import (
    "context"
    "database/sql"

    "github.com/kateri/camp-registration/internal/model"
)

// PaymentRepo provides data access to the payments table.  Payments are
// written by the stubbed deposit-authorization flow; there is no real
// provider callback yet, so rows only ever carry the authorized status.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the provided database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts a new payment row.  The caller supplies the uuid id.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
    const q = `INSERT INTO payments
                   (id, parent_id, registration_id, amount_cents, currency, status)
               VALUES (?, ?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q,
        p.ID, p.ParentID, p.RegistrationID, p.AmountCents, p.Currency, p.Status)
    return err
}

// ListByRegistration returns payments recorded against one registration,
// oldest first.
func (r *PaymentRepo) ListByRegistration(ctx context.Context, registrationID string) ([]model.Payment, error) {
    const q = `SELECT id, parent_id, registration_id, amount_cents, currency, status,
                      created_at, updated_at
               FROM payments WHERE registration_id = ? ORDER BY created_at`
    rows, err := r.db.QueryContext(ctx, q, registrationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    payments := make([]model.Payment, 0)
    for rows.Next() {
        var p model.Payment
        if err := rows.Scan(
            &p.ID, &p.ParentID, &p.RegistrationID, &p.AmountCents, &p.Currency,
            &p.Status, &p.CreatedAt, &p.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        payments = append(payments, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return payments, nil
}
