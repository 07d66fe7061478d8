// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationConfirmedEvent is published when a registration is
// successfully confirmed.  It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type RegistrationConfirmedEvent struct {
    RegistrationID string `json:"registration_id"`
    ParentID       uint64 `json:"parent_id"`
    CamperID       string `json:"camper_id"`
    Year           int    `json:"year"`
    Gender         string `json:"gender"`
    SessionID      string `json:"session_id"`
    DepositCents   uint32 `json:"deposit_cents"`
    ConfirmedAt    string `json:"confirmed_at"`
}
