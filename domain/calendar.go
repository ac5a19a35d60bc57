package domain

import (
	"sort"
	"time"
)

// DateLayout is the wire format of due dates and deadlines.
const DateLayout = "2006-01-02"

// CalendarItem is a dated entry shown on the calendar.
type CalendarItem struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CalendarDay groups the items falling on one date.
type CalendarDay struct {
	Date  string         `json:"date"`
	Items []CalendarItem `json:"items"`
}

// CalendarEntries buckets task due dates and project deadlines within
// [from, to] by day. Records without a parseable date are skipped.
func CalendarEntries(tasks []Task, projects []Project, from, to time.Time) []CalendarDay {
	byDay := make(map[string][]CalendarItem)
	add := func(date string, it CalendarItem) {
		d, err := time.Parse(DateLayout, date)
		if err != nil {
			return
		}
		if (!from.IsZero() && d.Before(from)) || (!to.IsZero() && d.After(to)) {
			return
		}
		key := d.Format(DateLayout)
		byDay[key] = append(byDay[key], it)
	}
	for _, t := range tasks {
		add(t.DueDate, CalendarItem{Kind: "task", ID: t.ID, Title: t.Title})
	}
	for _, p := range projects {
		add(p.Deadline, CalendarItem{Kind: "project", ID: p.ID, Title: p.Name})
	}

	days := make([]CalendarDay, 0, len(byDay))
	for date, items := range byDay {
		days = append(days, CalendarDay{Date: date, Items: items})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
