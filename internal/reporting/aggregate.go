package reporting

import (
	"errors"
	"sort"
	"strings"
	"time"

	"contract-sender/internal/calls"
	"contract-sender/internal/users"
)

var ErrInvalidRange = errors.New("reporting: invalid date range")

const day = 24 * time.Hour

// ParseRange validates a selector string. Empty means "30".
func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return Range30, nil
	case RangeToday, Range7, Range30, Range90, Range365, RangeAll:
		return r, nil
	default:
		return "", ErrInvalidRange
	}
}

// Days returns the look-back for numeric ranges.
func (r Range) Days() (int, bool) {
	switch r {
	case Range7:
		return 7, true
	case Range30:
		return 30, true
	case Range90:
		return 90, true
	case Range365:
		return 365, true
	default:
		return 0, false
	}
}

// Cutoff returns the inclusive lower bound of the window.
func Cutoff(r Range, now time.Time) time.Time {
	switch r {
	case RangeToday:
		return midnight(now)
	case RangeAll:
		return time.Unix(0, 0)
	}
	if n, ok := r.Days(); ok {
		return now.Add(-time.Duration(n) * day)
	}
	return midnight(now)
}

func midnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// AggregateInput is one immutable snapshot.
type AggregateInput struct {
	Calls []calls.Record
	// Users is the roster; disabled accounts are ignored.
	Users []users.Account
	Range Range
	Now   time.Time
}

type datedCall struct {
	calls.Record
	start time.Time
}

// Aggregate reduces a snapshot into overall and per-user statistics.
// It is a pure function of its input.
func Aggregate(in AggregateInput) KPIReport {
	now := in.Now
	cutoff := Cutoff(in.Range, now)
	todayStart := midnight(now)
	weekStart := now.Add(-7 * day)
	monthStart := now.Add(-30 * day)

	report := KPIReport{Range: in.Range, GeneratedAt: now, Cutoff: cutoff}

	windowed := make([]datedCall, 0, len(in.Calls))
	for _, c := range in.Calls {
		start, ok := c.Start()
		if !ok {
			report.InvalidTimestamps++
			continue
		}
		// Fixed informational windows over the whole snapshot.
		if !start.Before(todayStart) {
			report.Overall.CallsToday++
		}
		if !start.Before(weekStart) {
			report.Overall.CallsThisWeek++
		}
		if !start.Before(monthStart) {
			report.Overall.CallsThisMonth++
		}
		if !start.Before(cutoff) {
			windowed = append(windowed, datedCall{Record: c, start: start})
		}
	}

	o := &report.Overall
	seenUsers := make(map[string]struct{})
	for _, c := range windowed {
		o.TotalCalls++
		switch c.Status {
		case calls.StatusCompleted:
			o.CompletedCalls++
		case calls.StatusFailed:
			o.FailedCalls++
		}
		o.TotalDuration += c.DurationSeconds()
		o.TotalCost += c.Cost
		if c.UserID != "" {
			seenUsers[c.UserID] = struct{}{}
		}
	}
	o.ActiveUsers = len(seenUsers)
	o.AverageDuration = ratio(o.TotalDuration, o.TotalCalls)
	o.AverageCost = ratio(o.TotalCost, o.TotalCalls)
	o.SuccessRate = percent(o.CompletedCalls, o.TotalCalls)

	roster := users.Active(in.Users)
	rows := make([]UserStatistics, len(roster))
	byID := make(map[string]int, len(roster))
	byEmail := make(map[string]int, len(roster))
	for i, u := range roster {
		rows[i] = UserStatistics{UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName()}
		byID[u.ID] = i
		if e := normEmail(u.Email); e != "" {
			if _, dup := byEmail[e]; !dup {
				byEmail[e] = i
			}
		}
	}

	for _, c := range windowed {
		idx, ok := byID[c.UserID]
		if !ok && c.AgentEmail != "" {
			idx, ok = byEmail[normEmail(c.AgentEmail)]
		}
		if !ok {
			report.UnattributedCalls = append(report.UnattributedCalls, c.ID)
			continue
		}
		row := &rows[idx]
		row.TotalCalls++
		switch c.Status {
		case calls.StatusCompleted:
			row.CompletedCalls++
		case calls.StatusFailed:
			row.FailedCalls++
		}
		row.TotalDuration += c.DurationSeconds()
		row.TotalCost += c.Cost
		if !c.start.Before(weekStart) {
			row.CallsThisWeek++
		}
		if !c.start.Before(monthStart) {
			row.CallsThisMonth++
		}
		if row.LastCallDate == nil || c.start.After(*row.LastCallDate) {
			t := c.start
			row.LastCallDate = &t
		}
	}

	for i := range rows {
		r := &rows[i]
		r.AverageDuration = ratio(r.TotalDuration, r.TotalCalls)
		r.AverageCost = ratio(r.TotalCost, r.TotalCalls)
		r.SuccessRate = percent(r.CompletedCalls, r.TotalCalls)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalCalls != rows[j].TotalCalls {
			return rows[i].TotalCalls > rows[j].TotalCalls
		}
		return rows[i].DisplayName < rows[j].DisplayName
	})
	report.Users = rows
	return report
}

func ratio(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func normEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
