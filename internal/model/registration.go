package model

import "time"

// Registration status values.  A registration moves
// incomplete → holding → confirmed along the happy path; a hold that is
// never confirmed lapses to expired, which is terminal for that hold but
// not for the camper (a later hold attempt transitions back to holding).
// Full sessions route new attempts to waitlisted when the waitlist is
// open.  Any state may be cancelled by an admin.
const (
    StatusIncomplete = "incomplete"
    StatusHolding    = "holding"
    StatusConfirmed  = "confirmed"
    StatusExpired    = "expired"
    StatusWaitlisted = "waitlisted"
    StatusCancelled  = "cancelled"
)

// FormCompletion tracks which of the registration forms a parent has
// finished.  It is stored as individual boolean columns so the admin
// dashboard can filter on them directly.
type FormCompletion struct {
    Parent   bool `json:"parent"`   // registrations.form_parent
    Camper   bool `json:"camper"`   // registrations.form_camper
    Health   bool `json:"health"`   // registrations.form_health
    Consents bool `json:"consents"` // registrations.form_consents
    Payment  bool `json:"payment"`  // registrations.form_payment
}

// Registration is the durable per-(parent, camper, session) record of a
// registration attempt and its outcome.  It is created on the first hold
// attempt (or by direct creation) and never deleted, only transitioned.
// HoldID and HoldExpiresAt are a denormalized copy of the currently
// active hold; they may be stale after a sweep has deleted the hold row,
// which is why the controller always cross-checks hold existence rather
// than trusting the status field alone.
//
// Fields:
//  ID             – uuid primary key.
//  Year           – session partition year.
//  Gender         – session partition key ("boys"/"girls").
//  SessionID      – session this registration targets.
//  ParentID       – owning parent user.
//  CamperID       – camper being registered.
//  Status         – lifecycle status, see constants above.
//  HoldID         – id of the active hold, if any (nullable).
//  HoldExpiresAt  – expiry of the active hold, if any (nullable).
//  FormCompletion – per-form completion flags.
//  MessagePackets – purchased message packet add-ons.
//  DepositPaid    – whether the deposit has been captured.
//  TotalDueCents  – outstanding balance in cents.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Registration struct {
    ID             string         // registrations.id
    Year           int            // registrations.year
    Gender         string         // registrations.gender
    SessionID      string         // registrations.session_id
    ParentID       uint64         // registrations.parent_id
    CamperID       string         // registrations.camper_id
    Status         string         // registrations.status
    HoldID         *string        // registrations.hold_id (nullable)
    HoldExpiresAt  *time.Time     // registrations.hold_expires_at (nullable)
    FormCompletion FormCompletion // registrations.form_* columns
    MessagePackets int            // registrations.message_packets
    DepositPaid    bool           // registrations.deposit_paid
    TotalDueCents  uint32         // registrations.total_due_cents
    CreatedAt      time.Time      // registrations.created_at
    UpdatedAt      time.Time      // registrations.updated_at
}
