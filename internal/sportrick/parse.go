package sportrick

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/sport-scheduler/internal/catalog"
)

// The site labels day blocks with Italian weekday names.
var weekdayNames = map[string]time.Weekday{
	"lunedì":    time.Monday,
	"martedì":   time.Tuesday,
	"mercoledì": time.Wednesday,
	"giovedì":   time.Thursday,
	"venerdì":   time.Friday,
	"sabato":    time.Saturday,
	"domenica":  time.Sunday,
}

var reDuration = regexp.MustCompile(`(?i)(\d+)\s*min`)

// ParseSchedule extracts slot rows from a weekly schedule page. openAccess
// marks gym-floor pages, whose slots have no course name or instructor.
func ParseSchedule(html string, openAccess bool) ([]catalog.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var rows []catalog.RawRow
	doc.Find("#day-schedule-container .day-schedule, #day-schedule-repository .day-schedule").Each(func(_ int, day *goquery.Selection) {
		label := cleanText(day.Find(".day-schedule-label").First().Text())
		weekday, ok := parseWeekday(label)
		if !ok {
			return
		}

		day.Find(".day-schedule-slots .event-slot").Each(func(_ int, ev *goquery.Selection) {
			timeStart := cleanText(ev.Find(".slot-time .time-start").First().Text())
			timeEnd := endTime(timeStart, cleanText(ev.Find(".slot-time .time-duration").First().Text()))

			desc := ev.Find(".slot-description").First()
			skill := cleanText(desc.Find("span.skill").First().Text())
			location, courseType := splitDescription(desc, skill)

			instructor := cleanText(ev.Find(".slot-description2").First().Text())
			instructor = strings.TrimSpace(strings.TrimPrefix(instructor, "con "))

			activity := skill
			if openAccess || activity == "" {
				activity = "Fit Center"
				if !openAccess && courseType != "" {
					activity = courseType
				}
			}

			row := catalog.RawRow{
				Activity:   activity,
				Location:   location,
				Weekday:    weekday,
				TimeStart:  timeStart,
				TimeEnd:    timeEnd,
				CourseType: courseType,
				Instructor: instructor,
				OpenAccess: openAccess,
			}
			if row.Valid() {
				rows = append(rows, row)
			}
		})
	})

	return rows, nil
}

// ParseBookings extracts the site's own bookings list.
func ParseBookings(html string) ([]RemoteBooking, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var out []RemoteBooking
	doc.Find("#event-repository .event-main-block").Each(func(_ int, el *goquery.Selection) {
		date := cleanText(el.Find(".event-info-schedule").First().Text())
		timeStart := cleanText(el.Find(".time-start").First().Text())
		duration := cleanText(el.Find(".time-duration").First().Text())
		location := cleanText(el.Find(".event-info-description").First().Text())
		name := cleanText(el.Find(".event-info-skill-level").First().Text())

		if date == "" || timeStart == "" || name == "" {
			return
		}

		bookingTime := timeStart
		if duration != "" {
			bookingTime = fmt.Sprintf("%s (%s)", timeStart, duration)
		}

		out = append(out, RemoteBooking{
			RemoteID:    remoteBookingID(date, timeStart, name),
			Description: name,
			Location:    location,
			Date:        date,
			Time:        bookingTime,
		})
	})
	return out, nil
}

// FindSlotAction locates an open slot matching time and name on a schedule
// page and returns its action id.
func FindSlotAction(html, timeStart, name string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var id string
	doc.Find(".event-slot").EachWithBreak(func(_ int, ev *goquery.Selection) bool {
		if ev.HasClass("slot-full") || ev.HasClass("slot-booked") {
			return true
		}
		st := cleanText(ev.Find(".time-start").First().Text())
		desc := cleanText(ev.Find(".slot-description").First().Text())
		if st == timeStart && strings.Contains(strings.ToLower(desc), strings.ToLower(name)) {
			id, _ = ev.Attr("data-slot-id")
			return false
		}
		return true
	})
	return id, id != ""
}

func antiforgeryToken(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	v, _ := doc.Find(`input[name="__RequestVerificationToken"]`).First().Attr("value")
	return v
}

func bookingConfirmationID(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	v, _ := doc.Find("#booking-confirmation").First().Attr("data-booking-id")
	return v
}

// remoteBookingID builds the stable key the bookings list is deduped on.
func remoteBookingID(date, timeStart, name string) string {
	id := fmt.Sprintf("%s_%s_%s", date, timeStart, name)
	id = strings.ReplaceAll(id, "/", "-")
	id = strings.ReplaceAll(id, " ", "_")
	return strings.ReplaceAll(id, ":", "")
}

func parseWeekday(label string) (time.Weekday, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if i := strings.IndexAny(label, ", "); i > 0 {
		label = label[:i]
	}
	wd, ok := weekdayNames[label]
	return wd, ok
}

// splitDescription separates "Location - Course" text, with the skill span
// already accounted for.
func splitDescription(desc *goquery.Selection, skill string) (location, courseType string) {
	full := cleanText(desc.Text())
	if skill != "" {
		full = strings.TrimSpace(strings.TrimSuffix(full, skill))
		full = strings.TrimSpace(strings.TrimSuffix(full, "-"))
	}
	parts := strings.SplitN(full, " - ", 2)
	location = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		courseType = strings.TrimSpace(parts[1])
	}
	return location, courseType
}

// endTime adds a "NN min" duration onto an "HH:MM" start.
func endTime(start, durationText string) string {
	m := reDuration.FindStringSubmatch(durationText)
	if start == "" || m == nil {
		return ""
	}
	t, err := time.Parse("15:04", start)
	if err != nil {
		return ""
	}
	var mins int
	fmt.Sscanf(m[1], "%d", &mins)
	return t.Add(time.Duration(mins) * time.Minute).Format("15:04")
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
