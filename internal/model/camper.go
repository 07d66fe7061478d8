package model

import "time"

// Camper represents a child record in the `campers` table.  Campers are
// created implicitly on a parent's first registration attempt when no
// camper id is supplied, and are reused across years.  Medical details
// are stored as an opaque JSON column because their shape is driven by
// the health form, not by the registration flow.
//
// Fields:
//  ID             – uuid primary key.
//  ParentID       – owning parent user.
//  FirstName      – camper first name.
//  LastName       – camper last name.
//  DateOfBirth    – camper date of birth.
//  Gender         – "male" or "female" (camper attribute, not the
//                   storage partition key).
//  GradeCompleted – school grade completed, 2 through 8.
//  MedicalInfo    – raw JSON blob from the health form.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Camper struct {
    ID             string    // campers.id
    ParentID       uint64    // campers.parent_id
    FirstName      string    // campers.first_name
    LastName       string    // campers.last_name
    DateOfBirth    time.Time // campers.date_of_birth
    Gender         string    // campers.gender ("male"/"female")
    GradeCompleted int       // campers.grade_completed
    MedicalInfo    []byte    // campers.medical_info (JSON, nullable)
    CreatedAt      time.Time // campers.created_at
    UpdatedAt      time.Time // campers.updated_at
}
