package ledger

import (
	"time"

	"github.com/dailywell/aigov/pkg/models"
)

// Resets reports which windows rolled over.
type Resets struct {
	Daily   bool
	Weekly  bool
	Monthly bool
}

// Any reports whether any window rolled over.
func (r Resets) Any() bool {
	return r.Daily || r.Weekly || r.Monthly
}

// DayStart returns midnight UTC of t's day.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns midnight UTC of the Monday starting t's ISO week.
func WeekStart(t time.Time) time.Time {
	d := DayStart(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// MonthStart returns midnight UTC on the first of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ApplyResets rolls over every window whose boundary has passed since its
// last reset. Applying it twice at the same instant changes nothing.
func (l *Ledger) ApplyResets(now time.Time) Resets {
	var r Resets
	l.ensureMaps()

	if month := MonthStart(now); l.PeriodStart.Before(month) {
		l.snapshot(month)
		l.resetPeriod(month)
		r.Monthly = true
	}
	if day := DayStart(now); l.LastDailyReset.Before(day) {
		l.resetDaily(day)
		r.Daily = true
	}
	if week := WeekStart(now); l.LastWeeklyReset.Before(week) {
		l.resetWeekly(week)
		r.Weekly = true
	}
	return r
}

// ForceReset zeroes every period counter and drops outstanding reservations
// regardless of boundaries. A ledger that is already pristine for the
// current period is left untouched, so repeated calls are no-ops. Returns
// whether anything changed.
func (l *Ledger) ForceReset(now time.Time) bool {
	l.ApplyResets(now)
	if l.pristine() {
		return false
	}
	month := MonthStart(now)
	l.snapshot(now.UTC())
	l.resetPeriod(month)
	l.resetDaily(DayStart(now))
	l.resetWeekly(WeekStart(now))
	return true
}

func (l *Ledger) pristine() bool {
	return l.countersZero() && l.ReservedUSD == 0 && len(l.Reservations) == 0
}

func (l *Ledger) countersZero() bool {
	return l.TokensUsed == 0 && l.LocalTokens == 0 && l.BilledUSD == 0 &&
		l.Messages.Total() == 0 && l.TokensToday == 0 && l.MessagesToday == 0 &&
		sumCounts(l.CategoryCalls) == 0 &&
		sumCounts(l.DailyIntentCalls) == 0 && sumCounts(l.WeeklyIntentCalls) == 0
}

func (l *Ledger) snapshot(end time.Time) {
	if l.countersZero() {
		return
	}
	l.History = append(l.History, models.PeriodSnapshot{
		PeriodStart:   l.PeriodStart,
		PeriodEnd:     end,
		Plan:          l.Plan,
		TokensUsed:    l.TokensUsed,
		LocalTokens:   l.LocalTokens,
		BilledUSD:     l.BilledUSD,
		Messages:      l.Messages.Total(),
		CloudMessages: l.Messages.Cloud,
		CategoryCalls: cloneMap(l.CategoryCalls),
	})
	if n := len(l.History); n > MaxHistory {
		l.History = append([]models.PeriodSnapshot(nil), l.History[n-MaxHistory:]...)
	}
}

// resetPeriod also drops reservations: they were priced against the budget
// of the period being closed. Settling one later is a no-op.
func (l *Ledger) resetPeriod(month time.Time) {
	l.PeriodStart = month
	l.LastMonthlyReset = month
	l.TokensUsed = 0
	l.LocalTokens = 0
	l.BilledUSD = 0
	l.Messages = MessageCounts{}
	l.CategoryCalls = make(map[models.Category]int64)
	l.ReservedUSD = 0
	l.Reservations = nil
}

func (l *Ledger) resetDaily(day time.Time) {
	l.LastDailyReset = day
	l.TokensToday = 0
	l.MessagesToday = 0
	l.DailyIntentCalls = make(map[models.Intent]int64)
}

func (l *Ledger) resetWeekly(week time.Time) {
	l.LastWeeklyReset = week
	l.WeeklyIntentCalls = make(map[models.Intent]int64)
}

func sumCounts[K comparable](m map[K]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}
