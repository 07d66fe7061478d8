package model

import "time"

// Hold represents a time-bounded provisional seat reservation for one
// (parent, camper) pair within a session.  The hold ID is derived
// deterministically from the parent and camper identifiers so that a
// re-entrant hold attempt maps to the same row instead of creating a
// duplicate.  Holds exist only while a seat is provisionally reserved;
// they are deleted on confirm, on expiry sweep, or overwritten on
// renewal.  Rows in this table are owned exclusively by the hold
// controller and are never exposed to clients.
//
// Fields:
//  Year           – session partition year.
//  Gender         – session partition key ("boys"/"girls").
//  SessionID      – session the seat belongs to.
//  HoldID         – deterministic id "<parentID>_<camperID>".
//  ParentID       – user holding the seat.
//  CamperID       – camper the seat is held for.
//  RegistrationID – registration this hold backs.
//  ExpiresAt      – when the hold lapses and becomes sweepable.
//  CreatedAt      – when the hold was created.
//  UpdatedAt      – when the hold was last renewed.
type Hold struct {
    Year           int       // holds.year
    Gender         string    // holds.gender
    SessionID      string    // holds.session_id
    HoldID         string    // holds.hold_id
    ParentID       uint64    // holds.parent_id
    CamperID       string    // holds.camper_id
    RegistrationID string    // holds.registration_id
    ExpiresAt      time.Time // holds.expires_at
    CreatedAt      time.Time // holds.created_at
    UpdatedAt      time.Time // holds.updated_at
}
