package sportrick

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scheduleHTML = `
<div id="day-schedule-container">
  <div class="day-schedule">
    <div class="day-schedule-label">Lunedì, 7 Settembre</div>
    <div class="day-schedule-slots">
      <div class="event-slot" data-slot-id="s1">
        <div class="slot-time">
          <span class="time-start">18:00</span>
          <span class="time-duration">50 min</span>
        </div>
        <div class="slot-description">Giuriati - Fitness <span class="skill">Functional Training</span></div>
        <div class="slot-description2">con Rossi</div>
      </div>
      <div class="event-slot slot-full" data-slot-id="s2">
        <div class="slot-time">
          <span class="time-start">19:00</span>
          <span class="time-duration">55 min</span>
        </div>
        <div class="slot-description">Giuriati - Fitness <span class="skill">Pilates</span></div>
        <div class="slot-description2">con Bianchi</div>
      </div>
    </div>
  </div>
  <div class="day-schedule">
    <div class="day-schedule-label">Mercoledì, 9 Settembre</div>
    <div class="day-schedule-slots">
      <div class="event-slot" data-slot-id="s3">
        <div class="slot-time">
          <span class="time-start">12:30</span>
          <span class="time-duration">45 min</span>
        </div>
        <div class="slot-description">Bocconi - Sala corsi <span class="skill">Yoga</span></div>
        <div class="slot-description2">con Verdi</div>
      </div>
    </div>
  </div>
</div>`

func TestParseSchedule(t *testing.T) {
	rows, err := ParseSchedule(scheduleHTML, false)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, "Functional Training", first.Activity)
	assert.Equal(t, time.Monday, first.Weekday)
	assert.Equal(t, "18:00", first.TimeStart)
	assert.Equal(t, "18:50", first.TimeEnd)
	assert.Equal(t, "Giuriati", first.Location)
	assert.Equal(t, "Fitness", first.CourseType)
	assert.Equal(t, "Rossi", first.Instructor)
	assert.False(t, first.OpenAccess)

	assert.Equal(t, time.Wednesday, rows[2].Weekday)
	assert.Equal(t, "13:15", rows[2].TimeEnd)
}

func TestParseScheduleOpenAccess(t *testing.T) {
	html := `
<div id="day-schedule-repository">
  <div class="day-schedule">
    <div class="day-schedule-label">Sabato, 12 Settembre</div>
    <div class="day-schedule-slots">
      <div class="event-slot" data-slot-id="g1">
        <div class="slot-time">
          <span class="time-start">10:00</span>
          <span class="time-duration">90 min</span>
        </div>
        <div class="slot-description">Giuriati - Sala pesi</div>
      </div>
    </div>
  </div>
</div>`

	rows, err := ParseSchedule(html, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Fit Center", rows[0].Activity)
	assert.Equal(t, time.Saturday, rows[0].Weekday)
	assert.Equal(t, "11:30", rows[0].TimeEnd)
	assert.True(t, rows[0].OpenAccess)
	assert.Empty(t, rows[0].Instructor)
}

func TestParseScheduleUnknownDayIgnored(t *testing.T) {
	html := `
<div id="day-schedule-container">
  <div class="day-schedule">
    <div class="day-schedule-label">Festivo</div>
    <div class="day-schedule-slots">
      <div class="event-slot"><div class="slot-time"><span class="time-start">10:00</span></div></div>
    </div>
  </div>
</div>`
	rows, err := ParseSchedule(html, false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindSlotAction(t *testing.T) {
	id, ok := FindSlotAction(scheduleHTML, "18:00", "functional training")
	require.True(t, ok)
	assert.Equal(t, "s1", id)

	// Full slots are not bookable.
	_, ok = FindSlotAction(scheduleHTML, "19:00", "Pilates")
	assert.False(t, ok)

	_, ok = FindSlotAction(scheduleHTML, "18:00", "Zumba")
	assert.False(t, ok)
}

func TestParseBookings(t *testing.T) {
	html := `
<div id="event-repository">
  <div class="event-main-block">
    <div class="event-info-schedule">05/09/2026</div>
    <span class="time-start">18:00</span>
    <span class="time-duration">50 min</span>
    <div class="event-info-description">Giuriati - Fitness</div>
    <div class="event-info-skill-level">Functional Training</div>
  </div>
  <div class="event-main-block">
    <div class="event-info-schedule"></div>
  </div>
</div>`

	bookings, err := ParseBookings(html)
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	b := bookings[0]
	assert.Equal(t, "05-09-2026_1800_Functional_Training", b.RemoteID)
	assert.Equal(t, "Functional Training", b.Description)
	assert.Equal(t, "Giuriati - Fitness", b.Location)
	assert.Equal(t, "18:00 (50 min)", b.Time)
}

func TestAntiforgeryToken(t *testing.T) {
	html := `<form><input name="__RequestVerificationToken" type="hidden" value="tok123"></form>`
	assert.Equal(t, "tok123", antiforgeryToken(html))
	assert.Empty(t, antiforgeryToken("<form></form>"))
}
