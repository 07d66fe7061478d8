package handler

import (
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/kateri/camp-registration/internal/registration"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    rec := httptest.NewRecorder()
    return e.NewContext(req, rec), rec
}

func TestGetUserID(t *testing.T) {
    cases := []struct {
        name  string
        value interface{}
        want  uint64
        ok    bool
    }{
        {"uint64", uint64(7), 7, true},
        {"int", 7, 7, true},
        {"int64", int64(7), 7, true},
        {"float64 from json claim", float64(7), 7, true},
        {"numeric string", "7", 7, true},
        {"garbage string", "abc", 0, false},
        {"missing", nil, 0, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c, _ := newTestContext(t)
            if tc.value != nil {
                c.Set("user_id", tc.value)
            }
            got, err := getUserID(c)
            if tc.ok {
                require.NoError(t, err)
                assert.Equal(t, tc.want, got)
            } else {
                assert.Error(t, err)
            }
        })
    }
}

func TestRespondRegistrationError(t *testing.T) {
    cases := []struct {
        err    error
        status int
        code   string
    }{
        {registration.ErrInvalidArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},
        {registration.ErrInvalidGender, http.StatusBadRequest, "INVALID_GENDER"},
        {registration.ErrGradeOutOfRange, http.StatusBadRequest, "GRADE_OUT_OF_RANGE"},
        {registration.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
        {registration.ErrRegNotFound, http.StatusNotFound, "REG_NOT_FOUND"},
        {registration.ErrPermissionDenied, http.StatusForbidden, "PERMISSION_DENIED"},
        {registration.ErrInvalidStatus, http.StatusConflict, "INVALID_STATUS"},
        {registration.ErrDepositRequired, http.StatusConflict, "DEPOSIT_REQUIRED"},
        {registration.ErrHoldExpired, http.StatusConflict, "HOLD_EXPIRED"},
        {registration.ErrSessionFull, http.StatusConflict, "SESSION_FULL"},
        {registration.ErrAlreadyRegistered, http.StatusConflict, "ALREADY_REGISTERED"},
        {errors.New("driver: bad connection"), http.StatusInternalServerError, "INTERNAL"},
    }
    for _, tc := range cases {
        t.Run(tc.code, func(t *testing.T) {
            c, rec := newTestContext(t)
            require.NoError(t, respondRegistrationError(c, tc.err))
            assert.Equal(t, tc.status, rec.Code)

            var body map[string]string
            require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
            assert.Equal(t, tc.code, body["error"], "the error message is the wire code")
        })
    }
}
