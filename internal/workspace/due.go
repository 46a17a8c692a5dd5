package workspace

import (
	"time"

	"github.com/benvon/smart-notes/internal/models"
)

// Urgency classifies a due date relative to today.
type Urgency string

const (
	UrgencyOverdue Urgency = "overdue"
	UrgencySoon    Urgency = "soon"
	UrgencyNormal  Urgency = "normal"
)

// DueLabel describes due as seen on now's calendar date (UTC): TODAY,
// TOMORROW, YESTERDAY or a date such as "Mar 9, 2026". Today and tomorrow
// are soon, anything earlier is overdue.
func DueLabel(due, now time.Time) (string, Urgency) {
	day := models.DateOnly(due.UTC())
	today := models.DateOnly(now.UTC())

	urgency := UrgencyNormal
	switch {
	case day.Before(today):
		urgency = UrgencyOverdue
	case !day.After(today.AddDate(0, 0, 1)):
		urgency = UrgencySoon
	}

	switch {
	case day.Equal(today):
		return "TODAY", urgency
	case day.Equal(today.AddDate(0, 0, 1)):
		return "TOMORROW", urgency
	case day.Equal(today.AddDate(0, 0, -1)):
		return "YESTERDAY", urgency
	}
	return day.Format("Jan 2, 2006"), urgency
}
