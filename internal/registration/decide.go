package registration

import (
    "time"

    "github.com/kateri/camp-registration/internal/model"
)

// Outcome statuses returned by StartHold.  SESSION_FULL and WAITLIST are
// routing results, not errors: the session had no seat to give, and the
// transaction wrote nothing.
const (
    OutcomeHolding     = "HOLDING"
    OutcomeSessionFull = "SESSION_FULL"
    OutcomeWaitlist    = "WAITLIST"
)

// sessionFull reports whether the session has no seat left for a new
// hold.  Capacity zero means unlimited and is never full.  Counters that
// are missing on the row count as zero.
func sessionFull(s *model.Session) bool {
    return s.Capacity > 0 && s.Confirmed()+s.Holds() >= s.Capacity
}

// startAction enumerates what StartHold must do for an existing or
// missing registration once the session is known to have room.
type startAction int

const (
    // startReuse: the registration already has a live hold backed by an
    // existing hold row; return it untouched (idempotent re-entry).
    startReuse startAction = iota
    // startRefresh: the registration exists but its hold is stale or
    // missing; overwrite the hold row and re-point the registration.
    startRefresh
    // startCreate: no registration exists for this camper yet.
    startCreate
)

// startStep is the decision StartHold executes inside its transaction.
type startStep struct {
    action        startAction
    incrementHold bool      // whether the session's hold counter grows by one
    expiresAt     time.Time // hold expiry the caller should report
}

// decideStart classifies a hold attempt against the camper's existing
// registration (nil when none) and the presence of the hold row at the
// deterministic hold id.  The central correctness property lives here:
// the counter increments only when no hold row previously existed, which
// is checked on the hold document itself rather than on the
// registration's status field, because the two can diverge after a sweep
// deletes the hold before the registration is re-pointed.
func decideStart(reg *model.Registration, holdExists bool, now, newExpiry time.Time) startStep {
    if reg == nil {
        return startStep{action: startCreate, incrementHold: true, expiresAt: newExpiry}
    }
    live := reg.Status == model.StatusHolding &&
        reg.HoldExpiresAt != nil &&
        now.Before(*reg.HoldExpiresAt) &&
        holdExists
    if live {
        return startStep{action: startReuse, expiresAt: *reg.HoldExpiresAt}
    }
    return startStep{action: startRefresh, incrementHold: !holdExists, expiresAt: newExpiry}
}

// checkConfirmable applies the confirm preconditions in order: ownership,
// lifecycle status, deposit, then hold expiry.  A nil return means the
// registration may transition to confirmed.  No precondition mutates
// state; the caller aborts the transaction on any error.
func checkConfirmable(reg *model.Registration, callerParentID uint64, depositSuccess bool, now time.Time) error {
    if reg.ParentID != 0 && reg.ParentID != callerParentID {
        return ErrPermissionDenied
    }
    if reg.Status != model.StatusHolding {
        return ErrInvalidStatus
    }
    if !depositSuccess {
        return ErrDepositRequired
    }
    if reg.HoldExpiresAt != nil && now.After(*reg.HoldExpiresAt) {
        return ErrHoldExpired
    }
    return nil
}
