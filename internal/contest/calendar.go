package contest

import (
	"context"
	"time"

	"github.com/ZJUSCT/CSRank/internal/database/models"
)

type Day struct {
	Date    time.Time        `json:"date"`
	Weekday time.Weekday     `json:"weekday"`
	IsPad   bool             `json:"is_pad"`
	IsToday bool             `json:"is_today"`
	Starts  []models.Contest `json:"starts"`
	Ends    []models.Contest `json:"ends"`
	OneDay  []models.Contest `json:"oneday"`
}

type Month struct {
	Month time.Time  `json:"month"`
	Weeks [][]Day    `json:"weeks"`
	Prev  *time.Time `json:"prev_month"`
	Next  *time.Time `json:"next_month"`
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

func (d civilDate) monthIndex() int {
	return d.year*12 + int(d.month) - 1
}

// Calendar lays out one month, Sunday first, with the viewer's contests placed
// on the local days they start and end.
func (g *Gate) Calendar(ctx context.Context, v *Viewer, year int, month time.Month, today time.Time) (*Month, error) {
	if month < time.January || month > time.December {
		return nil, NotFound("")
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, g.loc)
	todayDate := dateOf(today.In(g.loc))

	minStart, maxEnd, ok, err := g.store.ContestBounds(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NotFound("")
	}
	lo := dateOf(minStart.In(g.loc)).monthIndex()
	hi := max(dateOf(maxEnd.In(g.loc)).monthIndex(), todayDate.monthIndex())
	cur := dateOf(first).monthIndex()
	if cur < lo || cur > hi {
		return nil, NotFound("")
	}

	days := monthDays(first)
	f := g.filterFor(v)
	f.From = days[0]
	f.To = days[len(days)-1].AddDate(0, 0, 1)
	contests, err := g.store.Contests(ctx, f)
	if err != nil {
		return nil, err
	}

	starts := make(map[civilDate][]models.Contest)
	ends := make(map[civilDate][]models.Contest)
	oneday := make(map[civilDate][]models.Contest)
	for _, c := range contests {
		s, e := dateOf(c.StartTime.In(g.loc)), dateOf(c.EndTime.In(g.loc))
		if s == e {
			oneday[s] = append(oneday[s], c)
		} else {
			starts[s] = append(starts[s], c)
			ends[e] = append(ends[e], c)
		}
	}

	out := &Month{Month: first}
	for i := 0; i < len(days); i += 7 {
		week := make([]Day, 0, 7)
		for _, d := range days[i : i+7] {
			key := dateOf(d)
			week = append(week, Day{
				Date:    d,
				Weekday: d.Weekday(),
				IsPad:   d.Month() != month,
				IsToday: key == todayDate,
				Starts:  starts[key],
				Ends:    ends[key],
				OneDay:  oneday[key],
			})
		}
		out.Weeks = append(out.Weeks, week)
	}

	if cur > lo {
		prev := first.AddDate(0, -1, 0)
		out.Prev = &prev
	}
	if cur < hi {
		next := first.AddDate(0, 1, 0)
		out.Next = &next
	}
	return out, nil
}

// monthDays returns whole Sunday-first weeks covering the month of first.
func monthDays(first time.Time) []time.Time {
	start := first.AddDate(0, 0, -int(first.Weekday()))
	last := first.AddDate(0, 1, -1)
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
