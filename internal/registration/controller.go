package registration

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/google/uuid"
    "github.com/jonboulle/clockwork"

    "github.com/kateri/camp-registration/internal/model"
    "github.com/kateri/camp-registration/internal/repository"
)

// Controller implements the hold lifecycle against the session, hold and
// registration stores.  Every counter-mutating operation runs as a single
// transaction that first locks the session row, so two concurrent
// attempts against the same session are serialized by the database and a
// committed read never observes confirmed + held exceeding capacity.
// The clock is injected so hold expiry is deterministic under test.
type Controller struct {
    db           *sql.DB
    sessions     *repository.SessionRepo
    holds        *repository.HoldRepo
    regs         *repository.RegistrationRepo
    campers      *repository.CamperRepo
    payments     *repository.PaymentRepo
    clock        clockwork.Clock
    depositCents uint32
}

// NewController constructs a Controller.  All repositories must be
// non-nil; depositCents is the stubbed deposit authorization amount.
func NewController(db *sql.DB, sessions *repository.SessionRepo, holds *repository.HoldRepo, regs *repository.RegistrationRepo, campers *repository.CamperRepo, payments *repository.PaymentRepo, clock clockwork.Clock, depositCents uint32) *Controller {
    if db == nil || sessions == nil || holds == nil || regs == nil || campers == nil || payments == nil {
        panic("nil dependency passed to NewController")
    }
    if clock == nil {
        clock = clockwork.NewRealClock()
    }
    return &Controller{
        db:           db,
        sessions:     sessions,
        holds:        holds,
        regs:         regs,
        campers:      campers,
        payments:     payments,
        clock:        clock,
        depositCents: depositCents,
    }
}

// StartHoldInput carries the request fields for StartHold and
// CreateRegistration.  HoldMinutes of zero selects the default duration.
type StartHoldInput struct {
    Year        int         `json:"year"`
    SessionID   string      `json:"sessionId"`
    Camper      CamperInput `json:"camper"`
    HoldMinutes int         `json:"holdMinutes,omitempty"`
}

// StartResult is the outcome of StartHold.  RegistrationID, CamperID and
// ExpiresAt are only populated when Status is HOLDING.
type StartResult struct {
    Status         string
    RegistrationID string
    CamperID       string
    ExpiresAt      time.Time
}

// ensureCamper resolves the camper referenced by the input: an explicit
// id is verified to exist and belong to the caller, otherwise a new
// camper row is created.  Runs outside the hold transaction; a created
// camper that later hits SESSION_FULL is intentionally kept so the next
// attempt can reuse it.
func (c *Controller) ensureCamper(ctx context.Context, parentID uint64, in CamperInput) (string, error) {
    if in.ID != "" {
        if _, err := c.campers.GetByID(ctx, in.ID, parentID); err != nil {
            if errors.Is(err, repository.ErrForbidden) {
                return "", ErrPermissionDenied
            }
            if errors.Is(err, sql.ErrNoRows) {
                return "", ErrInvalidArgument
            }
            return "", err
        }
        return in.ID, nil
    }
    dob, _ := time.Parse("2006-01-02", in.DateOfBirth)
    camper := &model.Camper{
        ID:             uuid.NewString(),
        ParentID:       parentID,
        FirstName:      in.FirstName,
        LastName:       in.LastName,
        DateOfBirth:    dob,
        Gender:         in.Gender,
        GradeCompleted: in.GradeCompleted,
    }
    if err := c.campers.Create(ctx, camper); err != nil {
        return "", err
    }
    return camper.ID, nil
}

// StartHold places or renews a provisional seat reservation for one
// camper in one session.
//
// The whole operation after camper resolution is a single transaction:
// read the session under a row lock, route away if full, then reuse,
// refresh or create the hold per decideStart.  Calling StartHold
// repeatedly for the same (parent, camper) while a valid hold is active
// returns the same registration id and increments the hold counter
// exactly once.
func (c *Controller) StartHold(ctx context.Context, parentID uint64, in StartHoldInput) (*StartResult, error) {
    if in.Year == 0 || in.SessionID == "" {
        return nil, ErrInvalidArgument
    }
    gender, err := validateCamper(in.Camper)
    if err != nil {
        return nil, err
    }
    camperID, err := c.ensureCamper(ctx, parentID, in.Camper)
    if err != nil {
        return nil, err
    }

    minutes := clampHoldMinutes(in.HoldMinutes)
    expiresAt := c.clock.Now().UTC().Add(time.Duration(minutes) * time.Minute)

    tx, err := c.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    sess, err := c.sessions.GetForUpdateTx(ctx, tx, in.Year, gender, in.SessionID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrSessionNotFound
        }
        return nil, err
    }
    if sessionFull(sess) {
        // no writes on either routing outcome; the rollback is a no-op
        if !sess.WaitlistOpen {
            return &StartResult{Status: OutcomeSessionFull, CamperID: camperID}, nil
        }
        return &StartResult{Status: OutcomeWaitlist, CamperID: camperID}, nil
    }

    holdID := repository.HoldKey(parentID, camperID)
    now := c.clock.Now().UTC()

    var reg *model.Registration
    reg, err = c.regs.GetByCamperTx(ctx, tx, in.Year, gender, in.SessionID, camperID)
    if err != nil && !errors.Is(err, sql.ErrNoRows) {
        return nil, err
    }
    holdExists := true
    if _, err := c.holds.GetTx(ctx, tx, in.Year, gender, in.SessionID, holdID); err != nil {
        if !errors.Is(err, sql.ErrNoRows) {
            return nil, err
        }
        holdExists = false
    }

    step := decideStart(reg, holdExists, now, expiresAt)
    switch step.action {
    case startReuse:
        committed = true
        if err := tx.Commit(); err != nil {
            return nil, err
        }
        return &StartResult{
            Status:         OutcomeHolding,
            RegistrationID: reg.ID,
            CamperID:       camperID,
            ExpiresAt:      step.expiresAt,
        }, nil

    case startRefresh:
        hold := &model.Hold{
            Year: in.Year, Gender: gender, SessionID: in.SessionID,
            HoldID: holdID, ParentID: parentID, CamperID: camperID,
            RegistrationID: reg.ID, ExpiresAt: expiresAt,
        }
        if err := c.holds.UpsertTx(ctx, tx, hold); err != nil {
            return nil, err
        }
        if step.incrementHold {
            if err := c.sessions.ApplyCounterDeltaTx(ctx, tx, in.Year, gender, in.SessionID, 1, 0); err != nil {
                return nil, err
            }
        } else if err := c.sessions.TouchTx(ctx, tx, in.Year, gender, in.SessionID); err != nil {
            return nil, err
        }
        if err := c.regs.SetHoldingTx(ctx, tx, reg.ID, holdID, expiresAt); err != nil {
            return nil, err
        }
        committed = true
        if err := tx.Commit(); err != nil {
            return nil, err
        }
        return &StartResult{
            Status:         OutcomeHolding,
            RegistrationID: reg.ID,
            CamperID:       camperID,
            ExpiresAt:      expiresAt,
        }, nil

    default: // startCreate
        regID := uuid.NewString()
        hold := &model.Hold{
            Year: in.Year, Gender: gender, SessionID: in.SessionID,
            HoldID: holdID, ParentID: parentID, CamperID: camperID,
            RegistrationID: regID, ExpiresAt: expiresAt,
        }
        if err := c.holds.UpsertTx(ctx, tx, hold); err != nil {
            return nil, err
        }
        if err := c.sessions.ApplyCounterDeltaTx(ctx, tx, in.Year, gender, in.SessionID, 1, 0); err != nil {
            return nil, err
        }
        newReg := &model.Registration{
            ID: regID, Year: in.Year, Gender: gender, SessionID: in.SessionID,
            ParentID: parentID, CamperID: camperID, Status: model.StatusHolding,
            HoldID: &holdID, HoldExpiresAt: &expiresAt,
        }
        if err := c.regs.CreateTx(ctx, tx, newReg); err != nil {
            return nil, err
        }
        committed = true
        if err := tx.Commit(); err != nil {
            return nil, err
        }
        return &StartResult{
            Status:         OutcomeHolding,
            RegistrationID: regID,
            CamperID:       camperID,
            ExpiresAt:      expiresAt,
        }, nil
    }
}

// ConfirmInput carries the request fields for Confirm.  Gender here is
// the storage partition key ("boys"/"girls"), matching how registrations
// are addressed once created.
type ConfirmInput struct {
    Year           int    `json:"year"`
    Gender         string `json:"gender"`
    SessionID      string `json:"sessionId"`
    RegistrationID string `json:"registrationId"`
    DepositSuccess bool   `json:"depositSuccess"`
}

// Confirm converts a live hold into a confirmed registration: the hold
// counter moves to the confirmed counter, the registration is marked
// confirmed with the deposit recorded, and the hold row is deleted — all
// in one transaction under the session row lock.  Preconditions
// (ownership, holding status, deposit, unexpired hold) abort with no
// state change.
func (c *Controller) Confirm(ctx context.Context, parentID uint64, in ConfirmInput) (*model.Registration, error) {
    if in.Year == 0 || in.SessionID == "" || in.RegistrationID == "" || !validGenderKey(in.Gender) {
        return nil, ErrInvalidArgument
    }

    tx, err := c.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if _, err := c.sessions.GetForUpdateTx(ctx, tx, in.Year, in.Gender, in.SessionID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrSessionNotFound
        }
        return nil, err
    }
    reg, err := c.regs.GetTx(ctx, tx, in.Year, in.Gender, in.SessionID, in.RegistrationID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrRegNotFound
        }
        return nil, err
    }
    if err := checkConfirmable(reg, parentID, in.DepositSuccess, c.clock.Now().UTC()); err != nil {
        return nil, err
    }

    if err := c.sessions.ApplyCounterDeltaTx(ctx, tx, in.Year, in.Gender, in.SessionID, -1, 1); err != nil {
        return nil, err
    }
    if err := c.regs.ConfirmTx(ctx, tx, reg.ID); err != nil {
        return nil, err
    }
    if reg.HoldID != nil {
        if err := c.holds.DeleteTx(ctx, tx, in.Year, in.Gender, in.SessionID, *reg.HoldID); err != nil {
            return nil, err
        }
    }
    committed = true
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    reg.Status = model.StatusConfirmed
    reg.DepositPaid = true
    return reg, nil
}

// CreateRegistration creates a registration directly, without placing a
// hold.  A full session routes to the waitlist when it is open and fails
// with SESSION_FULL when it is closed.  The created registration starts
// incomplete (or waitlisted) and does not count against the session's
// seat accounting until a hold or confirmation happens.
func (c *Controller) CreateRegistration(ctx context.Context, parentID uint64, in StartHoldInput) (*StartResult, error) {
    if in.Year == 0 || in.SessionID == "" {
        return nil, ErrInvalidArgument
    }
    gender, err := validateCamper(in.Camper)
    if err != nil {
        return nil, err
    }
    camperID, err := c.ensureCamper(ctx, parentID, in.Camper)
    if err != nil {
        return nil, err
    }

    tx, err := c.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    sess, err := c.sessions.GetForUpdateTx(ctx, tx, in.Year, gender, in.SessionID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrSessionNotFound
        }
        return nil, err
    }
    status := model.StatusIncomplete
    if sessionFull(sess) {
        if !sess.WaitlistOpen {
            return nil, ErrSessionFull
        }
        status = model.StatusWaitlisted
    }
    if _, err := c.regs.GetByCamperTx(ctx, tx, in.Year, gender, in.SessionID, camperID); err == nil {
        return nil, ErrAlreadyRegistered
    } else if !errors.Is(err, sql.ErrNoRows) {
        return nil, err
    }

    reg := &model.Registration{
        ID: uuid.NewString(), Year: in.Year, Gender: gender, SessionID: in.SessionID,
        ParentID: parentID, CamperID: camperID, Status: status,
    }
    if err := c.regs.CreateTx(ctx, tx, reg); err != nil {
        return nil, err
    }
    committed = true
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    return &StartResult{Status: status, RegistrationID: reg.ID, CamperID: camperID}, nil
}

// DepositInput carries the request fields for InitiateDeposit.
type DepositInput struct {
    Year           int    `json:"year"`
    Gender         string `json:"gender"`
    SessionID      string `json:"sessionId"`
    RegistrationID string `json:"registrationId"`
    AmountCents    uint32 `json:"amountCents,omitempty"`
}

// InitiateDeposit records a stubbed deposit authorization against a
// registration that is currently holding a seat.  No payment provider is
// contacted; the payment row is written with the authorized status and
// its id returned so the client can pass depositSuccess to Confirm.
func (c *Controller) InitiateDeposit(ctx context.Context, parentID uint64, in DepositInput) (string, error) {
    if in.Year == 0 || in.SessionID == "" || in.RegistrationID == "" || !validGenderKey(in.Gender) {
        return "", ErrInvalidArgument
    }
    reg, err := c.regs.Get(ctx, in.Year, in.Gender, in.SessionID, in.RegistrationID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return "", ErrRegNotFound
        }
        return "", err
    }
    if reg.ParentID != parentID {
        return "", ErrPermissionDenied
    }
    if reg.Status != model.StatusHolding {
        return "", ErrInvalidStatus
    }
    amount := in.AmountCents
    if amount == 0 {
        amount = c.depositCents
    }
    payment := &model.Payment{
        ID:             uuid.NewString(),
        ParentID:       parentID,
        RegistrationID: reg.ID,
        AmountCents:    amount,
        Currency:       "USD",
        Status:         "authorized",
    }
    if err := c.payments.Create(ctx, payment); err != nil {
        return "", err
    }
    return payment.ID, nil
}

// ListDepositPayments returns the payments recorded against one
// registration after verifying the caller owns it.
func (c *Controller) ListDepositPayments(ctx context.Context, parentID uint64, in DepositInput) ([]model.Payment, error) {
    if in.Year == 0 || in.SessionID == "" || in.RegistrationID == "" || !validGenderKey(in.Gender) {
        return nil, ErrInvalidArgument
    }
    reg, err := c.regs.Get(ctx, in.Year, in.Gender, in.SessionID, in.RegistrationID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrRegNotFound
        }
        return nil, err
    }
    if reg.ParentID != parentID {
        return nil, ErrPermissionDenied
    }
    return c.payments.ListByRegistration(ctx, reg.ID)
}
