package authz

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// conditionValidate validates condition documents before they are stored.
var conditionValidate = validator.New() //nolint:gochecknoglobals

// TimeRestrictions limits a conditional grant to an hour-of-day window
// and/or a set of weekdays, evaluated in server-local time.
type TimeRestrictions struct {
	// StartHour is the inclusive first hour (0-23) of the allowed window.
	StartHour *int `json:"startHour,omitempty" validate:"omitempty,min=0,max=23"`
	// EndHour is the inclusive last hour (0-23) of the allowed window.
	EndHour *int `json:"endHour,omitempty" validate:"omitempty,min=0,max=23"`
	// Weekdays lists allowed days (0 = Sunday .. 6 = Saturday).
	Weekdays []int `json:"weekdays,omitempty" validate:"omitempty,dive,min=0,max=6"`
}

// Conditions is the structured predicate attached to a conditional grant.
// All fields are optional and implicitly ANDed. A predicate whose request
// field is absent does not match: a conditional grant never applies when
// its condition cannot be verified.
type Conditions struct {
	// TimeRestrictions limits when the grant applies.
	TimeRestrictions *TimeRestrictions `json:"timeRestrictions,omitempty"`
	// MaxAmount is the ceiling the request amount must not exceed.
	MaxAmount *float64 `json:"maxAmount,omitempty" validate:"omitempty,gte=0"`
	// AllowedLocations lists locations the request must come from.
	AllowedLocations []string `json:"allowedLocations,omitempty"`
	// DepartmentID requires the request to be scoped to this department.
	DepartmentID *uint `json:"departmentId,omitempty"`
}

// Validate checks the document's field ranges.
func (c *Conditions) Validate() error {
	return conditionValidate.Struct(c) //nolint:wrapcheck
}

// Encode serializes the document for storage on a UserPermission record.
func (c *Conditions) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	return string(raw), nil
}

// ParseConditions decodes a stored condition document. An empty input
// yields nil, meaning unconditional.
func ParseConditions(raw string) (*Conditions, error) {
	if raw == "" {
		return nil, nil //nolint:nilnil
	}

	var c Conditions
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &c, nil
}

// Matches evaluates the predicate against a request at the given time.
// A nil document matches everything; a nil request matches only a nil
// document.
func (c *Conditions) Matches(req *Request, now time.Time) bool {
	if c == nil {
		return true
	}

	if req == nil {
		req = &Request{}
	}

	at := now
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	if !c.timeMatches(at) {
		return false
	}

	if c.MaxAmount != nil {
		if req.Amount == nil || *req.Amount > *c.MaxAmount {
			return false
		}
	}

	if len(c.AllowedLocations) > 0 && !containsString(c.AllowedLocations, req.Location) {
		return false
	}

	if c.DepartmentID != nil {
		if req.DepartmentID == nil || *req.DepartmentID != *c.DepartmentID {
			return false
		}
	}

	return true
}

func (c *Conditions) timeMatches(at time.Time) bool {
	tr := c.TimeRestrictions
	if tr == nil {
		return true
	}

	hour := at.Hour()

	if tr.StartHour != nil && hour < *tr.StartHour {
		return false
	}

	if tr.EndHour != nil && hour > *tr.EndHour {
		return false
	}

	if len(tr.Weekdays) > 0 {
		day := int(at.Weekday())
		found := false

		for _, d := range tr.Weekdays {
			if d == day {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

func containsString(haystack []string, needle string) bool {
	if needle == "" {
		return false
	}

	for _, s := range haystack {
		if s == needle {
			return true
		}
	}

	return false
}
