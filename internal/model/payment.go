package model

import "time"

// Payment models a row in the `payments` table.  The payment provider
// integration is stubbed: initiating a deposit records an authorized
// payment without contacting a PSP.  The registration is referenced by
// id rather than a foreign key so payment rows survive independently of
// the registration lifecycle.
//
// Fields:
//  ID             – uuid primary key.
//  ParentID       – paying parent user.
//  RegistrationID – registration the deposit applies to.
//  AmountCents    – authorized amount in cents.
//  Currency       – ISO currency code, currently always "USD".
//  Status         – payment state ("authorized").
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Payment struct {
    ID             string    // payments.id
    ParentID       uint64    // payments.parent_id
    RegistrationID string    // payments.registration_id
    AmountCents    uint32    // payments.amount_cents
    Currency       string    // payments.currency
    Status         string    // payments.status
    CreatedAt      time.Time // payments.created_at
    UpdatedAt      time.Time // payments.updated_at
}
