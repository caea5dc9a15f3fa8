package models

import "time"

// DateLayout is the calendar-date key used for notes and staging files.
const DateLayout = "2006-01-02"

// NoteMetadata is a lightweight representation of a daily note on disk.
type NoteMetadata struct {
	Date      string    `json:"date"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DateOf returns the calendar date of t, in t's location, as a DateLayout key.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}
