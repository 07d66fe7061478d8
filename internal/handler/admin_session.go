package handler

import (
    "net/http" // HTTP status codes
    "strconv"  // year query param parsing
    "time"     // date parsing for session bounds

    "github.com/labstack/echo/v4"

    "github.com/kateri/camp-registration/internal/model"
    "github.com/kateri/camp-registration/internal/registration"
    "github.com/kateri/camp-registration/internal/repository"
)

// AdminHandler serves the admin-only session management API: creating
// and updating sessions, inspecting the seat counters, and triggering
// the maintenance jobs on demand instead of waiting for the schedule.
type AdminHandler struct {
    Sessions *repository.SessionRepo
    Sweeper  *registration.Sweeper
}

func NewAdminHandler(sessions *repository.SessionRepo, sweeper *registration.Sweeper) *AdminHandler {
    return &AdminHandler{Sessions: sessions, Sweeper: sweeper}
}

type upsertSessionReq struct {
    Year         int    `json:"year"`
    Gender       string `json:"gender"`
    SessionID    string `json:"sessionId"`
    Name         string `json:"name"`
    Capacity     int    `json:"capacity"`
    WaitlistOpen bool   `json:"waitlistOpen"`
    StartDate    string `json:"startDate,omitempty"` // YYYY-MM-DD
    EndDate      string `json:"endDate,omitempty"`   // YYYY-MM-DD
}

// UpsertSession handles POST /v1/admin/sessions.  Inserting a new
// session initializes its counters to zero; updating an existing one
// leaves the counters untouched so live holds are never lost.
func (h *AdminHandler) UpsertSession(c echo.Context) error {
    var req upsertSessionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    gender, ok := normalizeGender(req.Gender)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_GENDER"})
    }
    if req.Year < 2000 || req.SessionID == "" || req.Name == "" || req.Capacity < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    s := &model.Session{
        Year:         req.Year,
        Gender:       gender,
        SessionID:    req.SessionID,
        Name:         req.Name,
        Capacity:     req.Capacity,
        WaitlistOpen: req.WaitlistOpen,
    }
    if req.StartDate != "" {
        d, err := time.Parse("2006-01-02", req.StartDate)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
        }
        s.StartDate = &d
    }
    if req.EndDate != "" {
        d, err := time.Parse("2006-01-02", req.EndDate)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
        }
        s.EndDate = &d
    }
    if err := h.Sessions.Upsert(c.Request().Context(), s); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// HoldsSummary handles GET /v1/admin/sessions/holds-summary?year=YYYY&gender=G.
// It reports the raw counter values per session so an admin can compare
// them against the public availability numbers.
func (h *AdminHandler) HoldsSummary(c echo.Context) error {
    year, err := strconv.Atoi(c.QueryParam("year"))
    if err != nil || year < 2000 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    gender, ok := normalizeGender(c.QueryParam("gender"))
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_GENDER"})
    }
    sessions, err := h.Sessions.ListByYearGender(c.Request().Context(), year, gender)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    type summary struct {
        SessionID      string `json:"session_id"`
        Name           string `json:"name"`
        Capacity       int    `json:"capacity"`
        HoldCount      int    `json:"hold_count"`
        ConfirmedCount int    `json:"confirmed_count"`
        Remaining      int    `json:"remaining"`
    }
    out := make([]summary, 0, len(sessions))
    for _, s := range sessions {
        out = append(out, summary{
            SessionID:      s.SessionID,
            Name:           s.Name,
            Capacity:       s.Capacity,
            HoldCount:      s.Holds(),
            ConfirmedCount: s.Confirmed(),
            Remaining:      s.Remaining(),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"year": year, "gender": gender, "sessions": out})
}

type releaseExpiredReq struct {
    Year      int    `json:"year"`
    Gender    string `json:"gender"`
    SessionID string `json:"sessionId"`
}

// ReleaseExpired handles POST /v1/admin/sessions/release-expired.  With
// a session in the body it releases that session's expired holds; with
// an empty body it runs one pass of the global sweep.  Either way it
// reports how many holds were released.
func (h *AdminHandler) ReleaseExpired(c echo.Context) error {
    var req releaseExpiredReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    ctx := c.Request().Context()
    if req.SessionID == "" {
        released, err := h.Sweeper.SweepAllExpired(ctx)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
        }
        return c.JSON(http.StatusOK, echo.Map{"ok": true, "released": released})
    }
    gender, ok := normalizeGender(req.Gender)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_GENDER"})
    }
    if req.Year < 2000 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    released, err := h.Sweeper.ReleaseExpiredForSession(ctx, req.Year, gender, req.SessionID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "released": released})
}

// EnsureCounters handles POST /v1/admin/jobs/ensure-counters.  It
// backfills NULL counters to zero and reports how many rows were
// repaired.
func (h *AdminHandler) EnsureCounters(c echo.Context) error {
    repaired, err := h.Sweeper.EnsureCounters(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "repaired": repaired})
}
