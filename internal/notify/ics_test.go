package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventICS(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	data := EventICS(CalendarEvent{
		UID:      "abc@sportsched",
		Summary:  "Functional Training",
		Location: "Giuriati, Fitness",
		Start:    time.Date(2026, 9, 7, 18, 0, 0, 0, loc),
		End:      time.Date(2026, 9, 7, 18, 50, 0, 0, loc),
	})
	s := string(data)

	assert.True(t, strings.HasPrefix(s, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(s, "END:VCALENDAR\r\n"))
	assert.Contains(t, s, "UID:abc@sportsched\r\n")
	assert.Contains(t, s, "SUMMARY:Functional Training\r\n")
	// Rome is UTC+2 in September.
	assert.Contains(t, s, "DTSTART:20260907T160000Z\r\n")
	assert.Contains(t, s, "DTEND:20260907T165000Z\r\n")
	// Commas are escaped per the format.
	assert.Contains(t, s, "LOCATION:Giuriati\\, Fitness\r\n")
}

func TestEventAttachment(t *testing.T) {
	att := EventAttachment(CalendarEvent{
		UID:     "abc@sportsched",
		Summary: "Functional Training",
		Start:   time.Now(),
		End:     time.Now().Add(time.Hour),
	})
	require.NotNil(t, att)
	assert.Equal(t, "functional-training.ics", att.Filename)
	assert.Equal(t, "text/calendar", att.MIME)
	assert.NotEmpty(t, att.Data)
}
