package utils

import "time"

// DateToReadable converts a stored slot date ("2006-01-02") into the
// human form used in notification emails, e.g. "Monday, 2 January 2006".
// Malformed input is returned unchanged so an email is still sent with
// whatever the store held.
func DateToReadable(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, 2 January 2006")
}

// TimeToReadable renders a start/end pair of clock times ("15:04:05")
// as "15:04 - 17:00" for display and email bodies.
func TimeToReadable(start, end string) string {
	return clipSeconds(start) + " - " + clipSeconds(end)
}

func clipSeconds(t string) string {
	if len(t) >= 5 {
		return t[:5]
	}
	return t
}
