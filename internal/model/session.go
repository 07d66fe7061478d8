package model

import "time"

// Gender partition keys used in session paths.  Camper genders
// ("male"/"female") map onto these storage keys; the mapping is a
// fixed convention shared with the web client and must not change.
const (
    GenderBoys  = "boys"
    GenderGirls = "girls"
)

// Session represents one scheduled camp offering as stored in the
// `sessions` table.  A session is identified by the composite key
// (year, gender, session_id).  The hold and confirmed counters are
// denormalized seat accounting maintained exclusively by the hold
// controller; they are nullable in the schema so that a missing
// counter (legacy rows) is distinguishable from an explicit zero.
//
// Fields:
//  Year           – camp year the session belongs to.
//  Gender         – partition key, "boys" or "girls".
//  SessionID      – identifier of the session within its partition.
//  Name           – display name shown to parents.
//  Capacity       – seat capacity; 0 means unlimited.
//  HoldCount      – number of active holds counted against capacity (nullable).
//  ConfirmedCount – number of confirmed registrations (nullable).
//  WaitlistOpen   – whether overflow interest is routed to the waitlist.
//  StartDate      – first day of the session (nullable).
//  EndDate        – last day of the session (nullable).
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Session struct {
    Year           int        // sessions.year
    Gender         string     // sessions.gender
    SessionID      string     // sessions.session_id
    Name           string     // sessions.name
    Capacity       int        // sessions.capacity
    HoldCount      *int       // sessions.hold_count (nullable)
    ConfirmedCount *int       // sessions.confirmed_count (nullable)
    WaitlistOpen   bool       // sessions.waitlist_open
    StartDate      *time.Time // sessions.start_date (nullable)
    EndDate        *time.Time // sessions.end_date (nullable)
    CreatedAt      time.Time  // sessions.created_at
    UpdatedAt      time.Time  // sessions.updated_at
}

// Holds returns the hold counter, treating a missing column value as zero.
func (s *Session) Holds() int {
    if s.HoldCount == nil {
        return 0
    }
    return *s.HoldCount
}

// Confirmed returns the confirmed counter, treating a missing value as zero.
func (s *Session) Confirmed() int {
    if s.ConfirmedCount == nil {
        return 0
    }
    return *s.ConfirmedCount
}

// Remaining computes the number of seats still available.  A capacity of
// zero means the session is unbounded and -1 is returned.  The result is
// clamped at zero so over-committed counters never surface as negative
// availability.
func (s *Session) Remaining() int {
    if s.Capacity == 0 {
        return -1
    }
    r := s.Capacity - s.Confirmed() - s.Holds()
    if r < 0 {
        return 0
    }
    return r
}
