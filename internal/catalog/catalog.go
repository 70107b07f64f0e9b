// Package catalog holds the deduplicated snapshot of schedulable slots
// scraped from the remote booking site.
package catalog

import (
	"fmt"
	"time"
)

// Slot is one bookable weekly occurrence. Its identity key is
// (weekday, start, end, name, instructor, location); everything else is
// mutable display data refreshed on each sync.
type Slot struct {
	ID         int64
	Name       string
	Location   string
	Weekday    time.Weekday
	TimeStart  string // "HH:MM"
	TimeEnd    string // "HH:MM"
	CourseType string
	Instructor string

	// OpenAccess marks gym-floor style slots as opposed to instructed courses.
	OpenAccess bool
	Capacity   int

	UpdatedAt time.Time
}

func (s Slot) Key() string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%s",
		int(s.Weekday), s.TimeStart, s.TimeEnd, s.Name, s.Instructor, s.Location)
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s-%s %s @ %s", s.Weekday, s.TimeStart, s.TimeEnd, s.Name, s.Location)
}

// RawRow is the typed intermediate record a Scraper produces for one
// schedule entry, before dedup key computation.
type RawRow struct {
	Activity   string
	Location   string
	Weekday    time.Weekday
	TimeStart  string
	TimeEnd    string
	CourseType string
	Instructor string
	OpenAccess bool
	Capacity   int
}

func (r RawRow) slot(now time.Time) Slot {
	return Slot{
		Name:       r.Activity,
		Location:   r.Location,
		Weekday:    r.Weekday,
		TimeStart:  r.TimeStart,
		TimeEnd:    r.TimeEnd,
		CourseType: r.CourseType,
		Instructor: r.Instructor,
		OpenAccess: r.OpenAccess,
		Capacity:   r.Capacity,
		UpdatedAt:  now,
	}
}

func (r RawRow) Valid() bool {
	return r.Activity != "" && r.TimeStart != "" && r.TimeEnd != ""
}
