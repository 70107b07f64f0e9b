package notify

import (
	"fmt"
	"strings"
	"time"
)

// CalendarEvent is the payload of the .ics attachment sent after a
// successful booking.
type CalendarEvent struct {
	UID      string
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
}

// EventICS renders a single-event iCal document. Times are emitted in UTC.
func EventICS(e CalendarEvent) []byte {
	var b strings.Builder
	writeLine := func(field, value string) {
		b.WriteString(field)
		b.WriteString(":")
		b.WriteString(escapeICS(value))
		b.WriteString("\r\n")
	}

	b.WriteString("BEGIN:VCALENDAR\r\n")
	writeLine("VERSION", "2.0")
	writeLine("PRODID", "-//sportsched//booking//EN")
	b.WriteString("BEGIN:VEVENT\r\n")
	writeLine("UID", e.UID)
	writeLine("DTSTAMP", time.Now().UTC().Format("20060102T150405Z"))
	writeLine("DTSTART", e.Start.UTC().Format("20060102T150405Z"))
	writeLine("DTEND", e.End.UTC().Format("20060102T150405Z"))
	writeLine("SUMMARY", e.Summary)
	if e.Location != "" {
		writeLine("LOCATION", e.Location)
	}
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

// EventAttachment wraps the rendered event as a message attachment.
func EventAttachment(e CalendarEvent) *Attachment {
	name := fmt.Sprintf("%s.ics", strings.ReplaceAll(strings.ToLower(e.Summary), " ", "-"))
	return &Attachment{
		Filename: name,
		MIME:     "text/calendar",
		Data:     EventICS(e),
	}
}

func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	return strings.ReplaceAll(s, "\n", "\\n")
}
