package model

import (
	"fmt"
	"time"
)

// LocalDate formats a date as "YYYY-MM-DD" in tool payloads.
type LocalDate time.Time

const dateFormat = "2006-01-02"

// MarshalJSON implements the json.Marshaler interface.
func (d LocalDate) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", time.Time(d).Format(dateFormat))), nil
}

// String implements fmt.Stringer.
func (d LocalDate) String() string {
	return time.Time(d).Format(dateFormat)
}

// DatePtr converts an optional timestamp into an optional LocalDate.
func DatePtr(t *time.Time) *LocalDate {
	if t == nil {
		return nil
	}
	d := LocalDate(*t)
	return &d
}
