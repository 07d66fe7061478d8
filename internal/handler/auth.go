package handler

import (
    "database/sql" // for sentinel errors returned from repository
    "errors"       // for errors.Is comparisons
    "net/http"     // HTTP status codes
    "strings"      // input normalization
    "time"         // token expiry formatting

    "github.com/labstack/echo/v4"

    "github.com/kateri/camp-registration/internal/model"
    "github.com/kateri/camp-registration/internal/repository"
    "github.com/kateri/camp-registration/internal/utils"
)

// AuthHandler implements parent account registration and login.  Every
// registered account gets the PARENT role; admin accounts are created by
// the bootstrap tooling, never through this endpoint.  Tokens are HS256
// JWTs whose subject is the user id consumed by the registration flow as
// the verified parent identity.
type AuthHandler struct {
    Users        *repository.UserRepo
    JWTSecret    string
    AccessTTLMin int
    BcryptCost   int
}

// NewAuthHandler constructs an AuthHandler.  The user repository must be
// non-nil.
func NewAuthHandler(users *repository.UserRepo, jwtSecret string, accessTTLMin, bcryptCost int) *AuthHandler {
    if users == nil {
        panic("nil repository passed to NewAuthHandler")
    }
    return &AuthHandler{Users: users, JWTSecret: jwtSecret, AccessTTLMin: accessTTLMin, BcryptCost: bcryptCost}
}

// Register handles POST /v1/auth/register.  It creates a parent account
// from an email and password and returns a signed access token so the
// client can proceed straight into the registration flow.  Duplicate
// emails return 409.
func (h *AuthHandler) Register(c echo.Context) error {
    var body struct {
        Email    string `json:"email"`
        Password string `json:"password"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    body.Email = strings.TrimSpace(strings.ToLower(body.Email))
    if body.Email == "" || !strings.Contains(body.Email, "@") || len(body.Password) < 8 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    hash, err := utils.HashPassword(body.Password, h.BcryptCost)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    user := &model.User{Email: body.Email, PasswordHash: hash, Role: model.RoleParent}
    if err := h.Users.Create(c.Request().Context(), user); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "EMAIL_TAKEN"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    tok, err := utils.NewAccessToken(h.JWTSecret, user.ID, user.Role, h.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "access_token": tok.Token,
        "expires_at":   tok.Exp.Format(time.RFC3339),
    })
}

// Login handles POST /v1/auth/login.  It verifies the email/password
// pair and returns a fresh access token.  Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (h *AuthHandler) Login(c echo.Context) error {
    var body struct {
        Email    string `json:"email"`
        Password string `json:"password"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_ARGUMENT"})
    }
    user, err := h.Users.GetByEmail(c.Request().Context(), strings.TrimSpace(body.Email))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "INVALID_CREDENTIALS"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    if !user.IsActive || !utils.VerifyPassword(user.PasswordHash, body.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "INVALID_CREDENTIALS"})
    }
    tok, err := utils.NewAccessToken(h.JWTSecret, user.ID, user.Role, h.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access_token": tok.Token,
        "expires_at":   tok.Exp.Format(time.RFC3339),
    })
}

// Me handles GET /v1/me.  It returns the authenticated user's account
// details.
func (h *AuthHandler) Me(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHENTICATED"})
    }
    user, err := h.Users.GetByID(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "USER_NOT_FOUND"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":    user.ID,
        "email": user.Email,
        "role":  user.Role,
    })
}
