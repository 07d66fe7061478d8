package handler // handler defines http handlers

import (
    "errors"   // errors provides sentinel comparisons for response mapping
    "net/http" // status codes
    "strconv"  // strconv converts strings to numeric types

    "github.com/labstack/echo/v4"

    "github.com/kateri/camp-registration/internal/registration"
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64.  JWTAuth stores the raw claim value, whose concrete type
// depends on how the JSON number was decoded.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// respondRegistrationError maps the registration package's sentinel
// errors onto HTTP responses with the error message as the machine
// readable code.  Validation failures are the caller's fault (400),
// missing documents 404, ownership violations 403, business-rule
// preconditions 409, and anything unrecognized is a generic 500 so
// infrastructure detail never leaks to parents.
func respondRegistrationError(c echo.Context, err error) error {
    var status int
    switch {
    case errors.Is(err, registration.ErrInvalidArgument),
        errors.Is(err, registration.ErrInvalidGender),
        errors.Is(err, registration.ErrGradeOutOfRange):
        status = http.StatusBadRequest
    case errors.Is(err, registration.ErrSessionNotFound),
        errors.Is(err, registration.ErrRegNotFound):
        status = http.StatusNotFound
    case errors.Is(err, registration.ErrPermissionDenied):
        status = http.StatusForbidden
    case errors.Is(err, registration.ErrInvalidStatus),
        errors.Is(err, registration.ErrDepositRequired),
        errors.Is(err, registration.ErrHoldExpired),
        errors.Is(err, registration.ErrSessionFull),
        errors.Is(err, registration.ErrAlreadyRegistered):
        status = http.StatusConflict
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
    }
    return c.JSON(status, echo.Map{"error": err.Error()})
}
