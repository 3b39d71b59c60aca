package views

import (
	"time"

	"github.com/samber/lo"

	"github.com/hongminglow/clubhub/internal/models"
)

// weekdays are the dashboard buckets, Monday first.
var weekdays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// DayActivity is one weekday bucket of the weekly chart.
type DayActivity struct {
	Day      string
	Posts    int
	Visitors int
}

func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeeklyActivity counts post creations and visits per weekday in loc,
// Monday through Sunday. Timestamps are not limited to the current week.
func WeeklyActivity(posts []models.Post, visits []time.Time, loc *time.Location) [7]DayActivity {
	if loc == nil {
		loc = time.Local
	}
	var out [7]DayActivity
	for i, d := range weekdays {
		out[i].Day = d
	}
	for _, p := range posts {
		out[weekdayIndex(p.CreatedAt.In(loc))].Posts++
	}
	for _, v := range visits {
		out[weekdayIndex(v.In(loc))].Visitors++
	}
	return out
}

// Summary is the dashboard's headline counts.
type Summary struct {
	Total     int
	Published int
	Events    int
	Drafts    int
}

// Summarize counts drafts, published posts, and published events.
func Summarize(posts []models.Post) Summary {
	return Summary{
		Total:     len(posts),
		Published: lo.CountBy(posts, func(p models.Post) bool { return p.Status == models.StatusPublished }),
		Events: lo.CountBy(posts, func(p models.Post) bool {
			return p.Status == models.StatusPublished && p.Type == models.PostTypeEvents
		}),
		Drafts: lo.CountBy(posts, func(p models.Post) bool { return p.IsDraft() }),
	}
}
