package model

import "time"

// Role names accepted in the JWT "role" claim.  Parents self-register;
// admin accounts are provisioned by bootstrap tooling.
const (
    RoleParent = "PARENT"
    RoleAdmin  = "ADMIN"
)

// User represents an account record as stored in the `users` table.
// Each field corresponds to a column in the database.  The json tags
// are omitted here because these structs are primarily used internally
// by the repository layer; handlers may define separate response types
// with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (PARENT or ADMIN).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
