package registration

import (
    "time"

    "github.com/kateri/camp-registration/internal/model"
)

// Hold duration bounds in minutes.  Requests outside the window are
// clamped rather than rejected; an omitted duration gets the default.
const (
    minHoldMinutes     = 5
    maxHoldMinutes     = 30
    defaultHoldMinutes = 15
)

// Camper grade bounds (grade completed before camp).
const (
    minGrade = 2
    maxGrade = 8
)

// CamperInput carries the camper fields accepted by the registration
// operations.  When ID is set the existing camper record is used and the
// remaining fields are ignored; otherwise a camper is created.
type CamperInput struct {
    ID             string `json:"id,omitempty"`
    FirstName      string `json:"firstName"`
    LastName       string `json:"lastName"`
    DateOfBirth    string `json:"dateOfBirth"`
    Gender         string `json:"gender"`
    GradeCompleted int    `json:"gradeCompleted"`
}

// genderKey maps the camper-facing gender attribute onto the storage
// partition key: male→boys, female→girls.  The mapping is a fixed,
// load-bearing convention shared with the web client.
func genderKey(gender string) (string, error) {
    switch gender {
    case "male":
        return model.GenderBoys, nil
    case "female":
        return model.GenderGirls, nil
    default:
        return "", ErrInvalidGender
    }
}

// validGenderKey reports whether g is one of the storage partition keys.
func validGenderKey(g string) bool {
    return g == model.GenderBoys || g == model.GenderGirls
}

// validateCamper checks the camper fields shared by startHold and direct
// registration creation and returns the storage partition key for the
// camper's gender.  All validation happens before any transaction
// starts, so a rejected request has no side effects.
func validateCamper(c CamperInput) (string, error) {
    if c.ID != "" {
        // existing camper: gender still decides the session partition
        return genderKey(c.Gender)
    }
    if c.FirstName == "" || c.LastName == "" {
        return "", ErrInvalidArgument
    }
    if c.DateOfBirth != "" {
        if _, err := time.Parse("2006-01-02", c.DateOfBirth); err != nil {
            return "", ErrInvalidArgument
        }
    }
    key, err := genderKey(c.Gender)
    if err != nil {
        return "", err
    }
    if c.GradeCompleted < minGrade || c.GradeCompleted > maxGrade {
        return "", ErrGradeOutOfRange
    }
    return key, nil
}

// clampHoldMinutes normalizes a requested hold duration: zero (omitted)
// becomes the default, and anything outside [minHoldMinutes,
// maxHoldMinutes] is pinned to the nearest bound.
func clampHoldMinutes(m int) int {
    if m == 0 {
        m = defaultHoldMinutes
    }
    if m < minHoldMinutes {
        return minHoldMinutes
    }
    if m > maxHoldMinutes {
        return maxHoldMinutes
    }
    return m
}
