// Package usage accounts for chat-completion token consumption. Counters
// roll over at day and month boundaries (UTC); the report endpoint reads
// them for dashboards.
package usage

import (
	"context"
	"sync"
	"time"
)

// Period selects the reporting window.
type Period string

const (
	// PeriodDay reports the current UTC day.
	PeriodDay Period = "day"
	// PeriodMonth reports the current UTC month.
	PeriodMonth Period = "month"
)

// Report is a snapshot of token consumption for one period.
type Report struct {
	Period           Period
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Requests         int64
	ResetsAt         time.Time
}

type counters struct {
	prompt     int64
	completion int64
	requests   int64
}

// Tracker accumulates token counts with day/month rollover. It implements
// the chat transport's usage recorder.
type Tracker struct {
	clock func() time.Time

	mu      sync.Mutex
	day     string
	month   string
	daily   counters
	monthly counters
}

// NewTracker creates a usage tracker.
func NewTracker() *Tracker {
	return &Tracker{clock: time.Now}
}

// WithClock overrides the time source, for tests.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// AddTokens records one chat completion's token usage.
func (t *Tracker) AddTokens(prompt, completion int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollLocked()
	t.daily.prompt += int64(prompt)
	t.daily.completion += int64(completion)
	t.daily.requests++
	t.monthly.prompt += int64(prompt)
	t.monthly.completion += int64(completion)
	t.monthly.requests++
}

// rollLocked resets counters whose period has ended.
func (t *Tracker) rollLocked() {
	now := t.clock().UTC()
	day := now.Format("2006-01-02")
	month := now.Format("2006-01")

	if t.day != day {
		t.day = day
		t.daily = counters{}
	}
	if t.month != month {
		t.month = month
		t.monthly = counters{}
	}
}

func (t *Tracker) snapshot(period Period) (counters, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollLocked()
	now := t.clock().UTC()

	if period == PeriodMonth {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return t.monthly, monthStart.AddDate(0, 1, 0)
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.daily, dayStart.Add(24 * time.Hour)
}

// Service handles usage reporting.
type Service struct {
	tracker *Tracker
}

// New creates a Service. tracker can be nil (always-zero reports).
func New(tracker *Tracker) *Service {
	return &Service{tracker: tracker}
}

// GetReport builds a usage report for the given period. Unknown periods
// default to the daily window.
func (s *Service) GetReport(_ context.Context, period Period) Report {
	if period != PeriodDay && period != PeriodMonth {
		period = PeriodDay
	}
	if s.tracker == nil {
		return Report{Period: period}
	}

	c, resetsAt := s.tracker.snapshot(period)
	return Report{
		Period:           period,
		PromptTokens:     c.prompt,
		CompletionTokens: c.completion,
		TotalTokens:      c.prompt + c.completion,
		Requests:         c.requests,
		ResetsAt:         resetsAt,
	}
}
