package handler

import (
    "encoding/json" // cache payload serialization
    "net/http"      // HTTP status codes
    "strconv"       // year query param parsing
    "time"          // cache TTL and date formatting

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/kateri/camp-registration/internal/model"
    "github.com/kateri/camp-registration/internal/repository"
)

// sessionListTTL bounds how stale the public availability numbers may
// be.  The counters move on every hold/confirm, so the window is short.
const sessionListTTL = 30 * time.Second

// PublicHandler serves the unauthenticated session browsing API.  The
// listing is cached in Redis per (year, gender) so that parents hammering
// the page on registration morning do not translate into table scans; a
// nil Redis client disables caching and every request hits the database.
type PublicHandler struct {
    Sessions *repository.SessionRepo
    Cache    *redis.Client
}

func NewPublicHandler(sessions *repository.SessionRepo, cache *redis.Client) *PublicHandler {
    return &PublicHandler{Sessions: sessions, Cache: cache}
}

// PublicSession is a session as exposed to unauthenticated browsing.
// Counters are collapsed into a remaining-seat number; the raw hold and
// confirmed counts stay internal.
type PublicSession struct {
    SessionID    string `json:"session_id"`
    Name         string `json:"name"`
    Capacity     int    `json:"capacity"`
    Remaining    int    `json:"remaining"`
    Full         bool   `json:"full"`
    WaitlistOpen bool   `json:"waitlist_open"`
    StartDate    string `json:"start_date,omitempty"`
    EndDate      string `json:"end_date,omitempty"`
}

// normalizeGender maps a gender query value onto the storage partition
// key.  Both the camper attribute form ("male"/"female") and the
// partition form ("boys"/"girls") are accepted.
func normalizeGender(g string) (string, bool) {
    switch g {
    case "male", model.GenderBoys:
        return model.GenderBoys, true
    case "female", model.GenderGirls:
        return model.GenderGirls, true
    default:
        return "", false
    }
}

// ListSessions handles GET /v1/sessions?year=YYYY&gender=G.  It returns
// the sessions for one partition with live availability derived from the
// seat counters.
func (h *PublicHandler) ListSessions(c echo.Context) error {
    year, err := strconv.Atoi(c.QueryParam("year"))
    if err != nil || year < 2000 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    gender, ok := normalizeGender(c.QueryParam("gender"))
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_GENDER"})
    }

    ctx := c.Request().Context()
    cacheKey := "public:sessions:" + strconv.Itoa(year) + ":" + gender

    if h.Cache != nil {
        if raw, err := h.Cache.Get(ctx, cacheKey).Bytes(); err == nil {
            var cached []PublicSession
            if json.Unmarshal(raw, &cached) == nil {
                return c.JSON(http.StatusOK, echo.Map{"sessions": cached})
            }
        }
    }

    sessions, err := h.Sessions.ListByYearGender(ctx, year, gender)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }

    out := make([]PublicSession, 0, len(sessions))
    for _, s := range sessions {
        ps := PublicSession{
            SessionID:    s.SessionID,
            Name:         s.Name,
            Capacity:     s.Capacity,
            Remaining:    s.Remaining(),
            Full:         s.Capacity > 0 && s.Remaining() <= 0,
            WaitlistOpen: s.WaitlistOpen,
        }
        if s.StartDate != nil {
            ps.StartDate = s.StartDate.Format("2006-01-02")
        }
        if s.EndDate != nil {
            ps.EndDate = s.EndDate.Format("2006-01-02")
        }
        out = append(out, ps)
    }

    if h.Cache != nil {
        if raw, err := json.Marshal(out); err == nil {
            // cache write failures are invisible to the caller
            h.Cache.Set(ctx, cacheKey, raw, sessionListTTL)
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}
