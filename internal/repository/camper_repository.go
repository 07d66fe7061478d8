package repository

import (
    "context"
    "database/sql"

    "github.com/kateri/camp-registration/internal/model"
)

// CamperRepo provides data access to the campers table.  Campers are
// created implicitly on a parent's first registration attempt when no
// camper id is supplied and are reused across subsequent attempts.
type CamperRepo struct {
    db *sql.DB
}

// NewCamperRepo returns a new CamperRepo bound to the provided database.
func NewCamperRepo(db *sql.DB) *CamperRepo { return &CamperRepo{db: db} }

// Create inserts a new camper row.  The caller supplies the uuid id.
func (r *CamperRepo) Create(ctx context.Context, c *model.Camper) error {
    const q = `INSERT INTO campers
                   (id, parent_id, first_name, last_name, date_of_birth, gender, grade_completed)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q,
        c.ID, c.ParentID, c.FirstName, c.LastName,
        c.DateOfBirth.UTC().Format("2006-01-02"), c.Gender, c.GradeCompleted,
    )
    return err
}

// GetByID returns a camper by id.  It returns sql.ErrNoRows when the
// camper does not exist and ErrForbidden when the camper belongs to a
// different parent, so a caller can never register someone else's child.
func (r *CamperRepo) GetByID(ctx context.Context, camperID string, parentID uint64) (*model.Camper, error) {
    const q = `SELECT id, parent_id, first_name, last_name, date_of_birth, gender,
                      grade_completed, medical_info, created_at, updated_at
               FROM campers WHERE id = ?`
    var c model.Camper
    var medical sql.NullString
    err := r.db.QueryRowContext(ctx, q, camperID).Scan(
        &c.ID, &c.ParentID, &c.FirstName, &c.LastName, &c.DateOfBirth, &c.Gender,
        &c.GradeCompleted, &medical, &c.CreatedAt, &c.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if c.ParentID != parentID {
        return nil, ErrForbidden
    }
    if medical.Valid {
        c.MedicalInfo = []byte(medical.String)
    }
    return &c, nil
}

// ListByParent returns all campers belonging to one parent ordered by
// creation time.
func (r *CamperRepo) ListByParent(ctx context.Context, parentID uint64) ([]model.Camper, error) {
    const q = `SELECT id, parent_id, first_name, last_name, date_of_birth, gender,
                      grade_completed, medical_info, created_at, updated_at
               FROM campers WHERE parent_id = ? ORDER BY created_at`
    rows, err := r.db.QueryContext(ctx, q, parentID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    campers := make([]model.Camper, 0)
    for rows.Next() {
        var c model.Camper
        var medical sql.NullString
        if err := rows.Scan(
            &c.ID, &c.ParentID, &c.FirstName, &c.LastName, &c.DateOfBirth, &c.Gender,
            &c.GradeCompleted, &medical, &c.CreatedAt, &c.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        if medical.Valid {
            c.MedicalInfo = []byte(medical.String)
        }
        campers = append(campers, c)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return campers, nil
}
