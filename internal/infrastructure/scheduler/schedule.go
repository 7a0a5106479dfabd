package scheduler

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"time"
)

// Schedule defines when a job should run.
type Schedule interface {
	// Next returns the first run time strictly after t.
	Next(t time.Time) time.Time

	String() string
}

// ParseSchedule accepts "@every <duration>", the shorthands @hourly, @daily
// and @weekly, or a five-field cron expression.
func ParseSchedule(spec string) (Schedule, error) {
	spec = strings.TrimSpace(spec)

	switch spec {
	case "":
		return nil, ErrEmptySchedule
	case "@hourly":
		return ParseCron("0 * * * *")
	case "@daily", "@midnight":
		return ParseCron("0 0 * * *")
	case "@weekly":
		return ParseCron("0 0 * * 0")
	}

	if rest, ok := strings.CutPrefix(spec, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("scheduler: invalid interval %q: %w", rest, err)
		}
		return Every(d)
	}

	return ParseCron(spec)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every returns an IntervalSchedule. Intervals under a second are rejected.
func Every(d time.Duration) (*IntervalSchedule, error) {
	if d < time.Second {
		return nil, fmt.Errorf("scheduler: interval %s is shorter than 1s", d)
	}
	return &IntervalSchedule{Interval: d}, nil
}

// Next implements Schedule.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s *IntervalSchedule) String() string {
	return "@every " + s.Interval.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON
// ══════════════════════════════════════════════════════════════════════════════

// CronSchedule is a parsed five-field cron expression:
// minute hour day-of-month month day-of-week. Each field accepts *, n, n-m,
// lists and /step. Day-of-week 0 and 7 are both Sunday.
type CronSchedule struct {
	raw    string
	minute uint64
	hour   uint64
	dom    uint64
	month  uint64
	dow    uint64
}

type cronField struct {
	name     string
	min, max int
}

var cronFields = [5]cronField{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 7},
}

// ParseCron parses a five-field cron expression.
func ParseCron(expr string) (*CronSchedule, error) {
	parts := strings.Fields(expr)
	if len(parts) != len(cronFields) {
		return nil, fmt.Errorf("scheduler: cron expression %q: expected 5 fields, got %d", expr, len(parts))
	}

	var sets [5]uint64
	for i, part := range parts {
		set, err := parseCronField(part, cronFields[i])
		if err != nil {
			return nil, fmt.Errorf("scheduler: cron expression %q: %w", expr, err)
		}
		sets[i] = set
	}

	// Fold 7 onto Sunday.
	if sets[4]&(1<<7) != 0 {
		sets[4] = sets[4]&^(1<<7) | 1
	}

	return &CronSchedule{
		raw:    expr,
		minute: sets[0],
		hour:   sets[1],
		dom:    sets[2],
		month:  sets[3],
		dow:    sets[4],
	}, nil
}

func parseCronField(s string, f cronField) (uint64, error) {
	var set uint64
	for _, item := range strings.Split(s, ",") {
		lo, hi, step := f.min, f.max, 1

		rng, stepStr, hasStep := strings.Cut(item, "/")
		if hasStep {
			n, err := strconv.Atoi(stepStr)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("%s: invalid step %q", f.name, stepStr)
			}
			step = n
		}

		switch {
		case rng == "*":
		case strings.Contains(rng, "-"):
			a, b, _ := strings.Cut(rng, "-")
			var err error
			if lo, err = cronValue(a, f); err != nil {
				return 0, err
			}
			if hi, err = cronValue(b, f); err != nil {
				return 0, err
			}
			if lo > hi {
				return 0, fmt.Errorf("%s: range %q is reversed", f.name, rng)
			}
		default:
			v, err := cronValue(rng, f)
			if err != nil {
				return 0, err
			}
			lo = v
			// "n/step" runs from n to the end of the field.
			if !hasStep {
				hi = v
			}
		}

		for v := lo; v <= hi; v += step {
			set |= 1 << uint(v)
		}
	}
	return set, nil
}

func cronValue(s string, f cronField) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid value %q", f.name, s)
	}
	if v < f.min || v > f.max {
		return 0, fmt.Errorf("%s: value %d out of range [%d-%d]", f.name, v, f.min, f.max)
	}
	return v, nil
}

// Next implements Schedule. It returns the zero time if nothing matches
// within five years, which only happens for dates such as February 30.
func (c *CronSchedule) Next(t time.Time) time.Time {
	t = t.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(5, 0, 0)

	for t.Before(limit) {
		if !has(c.month, int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !c.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !has(c.hour, t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
			continue
		}
		if !has(c.minute, t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}

// dayMatches follows cron: when both day fields are restricted, either may
// match.
func (c *CronSchedule) dayMatches(t time.Time) bool {
	domAll := bits.OnesCount64(c.dom) == 31
	dowAll := bits.OnesCount64(c.dow) == 7

	domOK := has(c.dom, t.Day())
	dowOK := has(c.dow, int(t.Weekday()))

	if !domAll && !dowAll {
		return domOK || dowOK
	}
	return domOK && dowOK
}

func (c *CronSchedule) String() string {
	return c.raw
}

func has(set uint64, v int) bool {
	return set&(1<<uint(v)) != 0
}
