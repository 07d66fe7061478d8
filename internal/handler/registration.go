package handler

import (
    "context"  // detached context for the confirm event publish
    "net/http" // HTTP status codes
    "time"     // RFC3339 timestamp formatting

    "github.com/labstack/echo/v4"

    "github.com/kateri/camp-registration/internal/queue"
    "github.com/kateri/camp-registration/internal/registration"
    "github.com/kateri/camp-registration/internal/repository"
)

// RegistrationHandler exposes the parent-facing registration flow: hold a
// seat, pay a deposit, confirm, and list the parent's registrations.  All
// seat accounting happens inside the registration controller; the handler
// only translates HTTP to controller calls and controller errors to
// status codes.
type RegistrationHandler struct {
    Ctrl         *registration.Controller
    Regs         *repository.RegistrationRepo
    Campers      *repository.CamperRepo
    DepositCents uint32
}

func NewRegistrationHandler(ctrl *registration.Controller, regs *repository.RegistrationRepo, campers *repository.CamperRepo, depositCents uint32) *RegistrationHandler {
    return &RegistrationHandler{Ctrl: ctrl, Regs: regs, Campers: campers, DepositCents: depositCents}
}

// StartHold handles POST /v1/registrations/hold.  The response status is
// one of HOLDING, SESSION_FULL or WAITLIST; registration and hold details
// are only present for HOLDING.
func (h *RegistrationHandler) StartHold(c echo.Context) error {
    parentID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHENTICATED"})
    }
    var in registration.StartHoldInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    res, err := h.Ctrl.StartHold(c.Request().Context(), parentID, in)
    if err != nil {
        return respondRegistrationError(c, err)
    }
    resp := echo.Map{"status": res.Status}
    if res.Status == registration.OutcomeHolding {
        resp["registration_id"] = res.RegistrationID
        resp["camper_id"] = res.CamperID
        resp["hold_expires_at"] = res.ExpiresAt.UTC().Format(time.RFC3339)
    }
    return c.JSON(http.StatusOK, resp)
}

// Create handles POST /v1/registrations.  It records a registration
// without holding a seat: either an incomplete entry for an open session
// or a waitlisted one for a full session.
func (h *RegistrationHandler) Create(c echo.Context) error {
    parentID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHENTICATED"})
    }
    var in registration.StartHoldInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    res, err := h.Ctrl.CreateRegistration(c.Request().Context(), parentID, in)
    if err != nil {
        return respondRegistrationError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "status":          res.Status,
        "registration_id": res.RegistrationID,
        "camper_id":       res.CamperID,
    })
}

// InitiateDeposit handles POST /v1/registrations/deposit.  It records an
// authorized deposit payment for a held registration and returns the
// payment id the client passes back on confirm.
func (h *RegistrationHandler) InitiateDeposit(c echo.Context) error {
    parentID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHENTICATED"})
    }
    var in registration.DepositInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    paymentID, err := h.Ctrl.InitiateDeposit(c.Request().Context(), parentID, in)
    if err != nil {
        return respondRegistrationError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"payment_id": paymentID})
}

// Confirm handles POST /v1/registrations/confirm.  On success the seat
// moves from held to confirmed and a registration.confirmed event is
// published for downstream consumers; publish failures never fail the
// request.
func (h *RegistrationHandler) Confirm(c echo.Context) error {
    parentID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHENTICATED"})
    }
    var in registration.ConfirmInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    reg, err := h.Ctrl.Confirm(c.Request().Context(), parentID, in)
    if err != nil {
        return respondRegistrationError(c, err)
    }

    event := queue.RegistrationConfirmedEvent{
        RegistrationID: reg.ID,
        ParentID:       reg.ParentID,
        CamperID:       reg.CamperID,
        Year:           reg.Year,
        Gender:         reg.Gender,
        SessionID:      reg.SessionID,
        DepositCents:   h.DepositCents,
        ConfirmedAt:    reg.UpdatedAt.UTC().Format(time.RFC3339),
    }
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = queue.PublishRegistrationConfirmed(ctx, event)
    }()

    return c.JSON(http.StatusOK, echo.Map{"ok": true, "registration_id": reg.ID})
}

// ListMine handles GET /v1/my-registrations.  It returns every
// registration belonging to the caller with session and camper details
// joined in.
func (h *RegistrationHandler) ListMine(c echo.Context) error {
    parentID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHENTICATED"})
    }
    items, err := h.Regs.ListByParent(c.Request().Context(), parentID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    if items == nil {
        items = []repository.RegistrationDetail{}
    }
    return c.JSON(http.StatusOK, echo.Map{"registrations": items})
}

// ListCampers handles GET /v1/campers.  It returns the caller's camper
// records so a returning parent can register the same child by id
// instead of re-entering their details.
func (h *RegistrationHandler) ListCampers(c echo.Context) error {
    parentID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHENTICATED"})
    }
    campers, err := h.Campers.ListByParent(c.Request().Context(), parentID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    type camperView struct {
        ID             string `json:"id"`
        FirstName      string `json:"first_name"`
        LastName       string `json:"last_name"`
        DateOfBirth    string `json:"date_of_birth,omitempty"`
        Gender         string `json:"gender"`
        GradeCompleted int    `json:"grade_completed"`
    }
    out := make([]camperView, 0, len(campers))
    for _, cam := range campers {
        v := camperView{
            ID:             cam.ID,
            FirstName:      cam.FirstName,
            LastName:       cam.LastName,
            Gender:         cam.Gender,
            GradeCompleted: cam.GradeCompleted,
        }
        if !cam.DateOfBirth.IsZero() {
            v.DateOfBirth = cam.DateOfBirth.Format("2006-01-02")
        }
        out = append(out, v)
    }
    return c.JSON(http.StatusOK, echo.Map{"campers": out})
}

// ListPayments handles GET /v1/registrations/payments.  It returns the
// payments recorded against one of the caller's registrations, addressed
// by the same composite key the other registration endpoints use.
func (h *RegistrationHandler) ListPayments(c echo.Context) error {
    parentID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHENTICATED"})
    }
    var in registration.DepositInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    payments, err := h.Ctrl.ListDepositPayments(c.Request().Context(), parentID, in)
    if err != nil {
        return respondRegistrationError(c, err)
    }
    type paymentView struct {
        ID          string `json:"id"`
        AmountCents uint32 `json:"amount_cents"`
        Currency    string `json:"currency"`
        Status      string `json:"status"`
        CreatedAt   string `json:"created_at"`
    }
    out := make([]paymentView, 0, len(payments))
    for _, p := range payments {
        out = append(out, paymentView{
            ID:          p.ID,
            AmountCents: p.AmountCents,
            Currency:    p.Currency,
            Status:      p.Status,
            CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"payments": out})
}
