package extract

import (
	"fmt"
	"regexp"
	"time"

	"github.com/ppiankov/scientia/internal/model"
)

// MaxAge is the sanity bound on a computed age; anything above it means a
// date was read wrong
const MaxAge = 125

var dateToken = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

// ParseDate finds the first YYYY-MM-DD token in s and parses it as a UTC calendar date
func ParseDate(s string) (time.Time, error) {
	token := dateToken.FindString(s)
	if token == "" {
		return time.Time{}, fmt.Errorf("no %s date in %q", "YYYY-MM-DD", s)
	}

	date, err := time.Parse(model.DateLayout, token)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", token, err)
	}
	return date, nil
}

// Age returns completed years from birth to end. The year difference is
// reduced by one when end falls before the anniversary of birth in end's year.
// A negative age or one above MaxAge is a malformed document.
func Age(birth, end time.Time) (int, error) {
	age := end.Year() - birth.Year()
	if end.Month() < birth.Month() || (end.Month() == birth.Month() && end.Day() < birth.Day()) {
		age--
	}

	if age < 0 {
		return 0, model.Malformed(fmt.Sprintf("end date %s precedes birth date %s",
			end.Format(model.DateLayout), birth.Format(model.DateLayout)), nil)
	}
	if age > MaxAge {
		return 0, model.Malformed(fmt.Sprintf("implausible age %d", age), nil)
	}
	return age, nil
}

// Today returns the calendar date of t as UTC midnight
func Today(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
