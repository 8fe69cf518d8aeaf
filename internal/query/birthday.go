package query

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
)

// MaxBirthdayDays is the longest look-ahead of an upcoming birthdays search.
const MaxBirthdayDays = 366

// monthDayExpr computes the comparable month/day key of the birthday column, e.g. 1231 for
// December 31.
const monthDayExpr = "(MONTH(birthday) * 100 + DAYOFMONTH(birthday))"

// BirthdayWindow selects contacts whose next birthday falls into [From, To]. A birthday
// matches when its occurrence in the year of From, or in the following year, lies inside
// the window. The year of birth is ignored.
type BirthdayWindow struct {
	From time.Time
	To   time.Time

	start int // month/day key of From
	end   int // month/day key of To
	span  span
}

type span int

const (
	spanWithinYear span = iota // start <= key <= end
	spanNewYear                // key >= start or key <= end
	spanAll                    // the window covers a full year
)

// NewBirthdayWindow returns the window from today until today plus days. Only the calendar
// date of today is used. days must be between 0 and MaxBirthdayDays.
func NewBirthdayWindow(today time.Time, days int) (BirthdayWindow, error) {
	if days < 0 || days > MaxBirthdayDays {
		return BirthdayWindow{}, apperror.Invalid("days",
			fmt.Sprintf("must be between 0 and %d", MaxBirthdayDays))
	}
	y, m, d := today.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, days)

	w := BirthdayWindow{
		From:  from,
		To:    to,
		start: monthDayKey(from),
		end:   monthDayKey(to),
	}
	// In common years people born on February 29 celebrate on February 28.
	if w.end == 228 && !isLeap(to.Year()) {
		w.end = 229
	}

	switch years := to.Year() - from.Year(); {
	case years == 0:
		w.span = spanWithinYear
	case years == 1 && w.end < w.start:
		w.span = spanNewYear
	default:
		w.span = spanAll
	}
	return w, nil
}

// Contains reports whether a contact born on the given date has a birthday in the window.
func (w BirthdayWindow) Contains(birthday time.Time) bool {
	key := monthDayKey(birthday)
	switch w.span {
	case spanWithinYear:
		return key >= w.start && key <= w.end
	case spanNewYear:
		return key >= w.start || key <= w.end
	}
	return true
}

// ToSql implements squirrel.Sqlizer.
func (w BirthdayWindow) ToSql() (string, []interface{}, error) {
	switch w.span {
	case spanWithinYear:
		return sq.Expr(monthDayExpr+" BETWEEN ? AND ?", w.start, w.end).ToSql()
	case spanNewYear:
		return sq.Or{
			sq.Expr(monthDayExpr+" >= ?", w.start),
			sq.Expr(monthDayExpr+" <= ?", w.end),
		}.ToSql()
	}
	return sq.Expr("1 = 1").ToSql()
}

func monthDayKey(t time.Time) int {
	return int(t.Month())*100 + t.Day()
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
