package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/kateri/camp-registration/internal/model"
)

// UserRepo provides data access to the users table.
type UserRepo struct {
    db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the provided database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user and populates the generated ID on the
// provided record.  It returns ErrConflict when the email address is
// already registered.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
    const q = `INSERT INTO users (email, password_hash, role, is_active) VALUES (?, ?, ?, TRUE)`
    res, err := r.db.ExecContext(ctx, q, strings.ToLower(u.Email), u.PasswordHash, u.Role)
    if err != nil {
        // 1062 duplicate entry surfaces as a driver error string; a unique
        // key on email is the source of truth for duplicates
        if strings.Contains(err.Error(), "Duplicate entry") {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    u.ID = uint64(id)
    return nil
}

// GetByEmail returns a user by email address.  Returns sql.ErrNoRows
// when no account exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
    const q = `SELECT id, email, password_hash, role, is_active, created_at, updated_at
               FROM users WHERE email = ?`
    var u model.User
    err := r.db.QueryRowContext(ctx, q, strings.ToLower(email)).Scan(
        &u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &u, nil
}

// GetByID returns a user by primary key.  Returns sql.ErrNoRows when no
// account exists.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
    const q = `SELECT id, email, password_hash, role, is_active, created_at, updated_at
               FROM users WHERE id = ?`
    var u model.User
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &u, nil
}
