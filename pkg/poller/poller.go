// Package poller drives the scan, notify and sleep cycle across platforms.
package poller

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/ticketwatch/internal/logger"
	"github.com/jmylchreest/ticketwatch/pkg/notifier"
	"github.com/jmylchreest/ticketwatch/pkg/scanner"
	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

// State is the poller's position in its cycle.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateNotifying
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateNotifying:
		return "notifying"
	case StateSleeping:
		return "sleeping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Scanner is the per-platform view the poller needs.
type Scanner interface {
	Name() string
	Events() []scanner.Event
	AvailableOnly(ctx context.Context) map[string][]ticket.Record
	URL(event string) (string, bool)
}

// Interval is the range the sleep between cycles is drawn from.
type Interval struct {
	Min time.Duration
	Max time.Duration
}

// Random returns a duration drawn uniformly from [Min, Max].
func (i Interval) Random() time.Duration {
	if i.Max <= i.Min {
		return i.Min
	}
	return i.Min + time.Duration(rand.Int64N(int64(i.Max-i.Min)+1))
}

// PlatformReport summarizes one platform's part of a cycle.
type PlatformReport struct {
	Platform        string
	AvailableEvents int
	Notified        int
	Failed          bool
}

// CycleReport summarizes one scan and notify cycle.
type CycleReport struct {
	Started          time.Time
	Duration         time.Duration
	Platforms        []PlatformReport
	Notifications    int
	DeliveryFailures int
}

// Poller runs the availability cycle. It owns no scanner or notifier state;
// both are injected.
type Poller struct {
	scanners []Scanner
	notifier notifier.Notifier
	interval Interval
	state    atomic.Int32
}

// New creates a poller over scanners, notifying through n.
func New(scanners []Scanner, n notifier.Notifier, interval Interval) *Poller {
	return &Poller{
		scanners: scanners,
		notifier: n,
		interval: interval,
	}
}

// State returns the current cycle state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// Run cycles until ctx is cancelled, then returns ctx's error.
func (p *Poller) Run(ctx context.Context) error {
	defer p.setState(StateIdle)

	logger.Info("poller started",
		"platforms", len(p.scanners),
		"interval_min", p.interval.Min,
		"interval_max", p.interval.Max,
		"notifier", p.notifier.Name())

	for {
		report := p.RunOnce(ctx)
		logger.Info("cycle complete",
			"duration", report.Duration.Round(time.Millisecond),
			"notifications", report.Notifications,
			"delivery_failures", report.DeliveryFailures)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := p.interval.Random()
		p.setState(StateSleeping)
		logger.Info("next check", "in", wait.Round(time.Second), "at", humanize.Time(time.Now().Add(wait)))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			logger.Info("poller stopped")
			return ctx.Err()
		case <-t.C:
		}
	}
}

type pending struct {
	platform int
	message  notifier.Message
}

// RunOnce scans every platform and sends one message per available event.
func (p *Poller) RunOnce(ctx context.Context) CycleReport {
	report := CycleReport{
		Started:   time.Now(),
		Platforms: make([]PlatformReport, len(p.scanners)),
	}

	p.setState(StateScanning)
	var queue []pending
	for i, s := range p.scanners {
		report.Platforms[i].Platform = s.Name()
		messages, err := p.scan(ctx, s)
		if err != nil {
			logger.Platform(s.Name()).Error("platform scan failed", "error", err)
			report.Platforms[i].Failed = true
			continue
		}
		report.Platforms[i].AvailableEvents = len(messages)
		if len(messages) == 0 {
			logger.Platform(s.Name()).Info("no tickets available")
		}
		for _, m := range messages {
			queue = append(queue, pending{platform: i, message: m})
		}
	}

	p.setState(StateNotifying)
	for _, item := range queue {
		if ctx.Err() != nil {
			break
		}
		if err := p.notifier.Send(ctx, notifier.Format(item.message)); err != nil {
			report.DeliveryFailures++
			logger.Platform(item.message.Platform).Warn("notification failed",
				"event", item.message.Event,
				"notifier", p.notifier.Name(),
				"error", err)
			continue
		}
		report.Notifications++
		report.Platforms[item.platform].Notified++
		logger.Platform(item.message.Platform).Info("notification sent", "event", item.message.Event)
	}

	report.Duration = time.Since(report.Started)
	return report
}

// scan collects the messages for one platform, in configured event order.
// A panic is returned as an error.
func (p *Poller) scan(ctx context.Context, s Scanner) (messages []notifier.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			messages = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	available := s.AvailableOnly(ctx)
	seen := make(map[string]bool, len(available))
	for _, ev := range s.Events() {
		records, ok := available[ev.Name]
		if !ok || seen[ev.Name] {
			continue
		}
		seen[ev.Name] = true

		url, _ := s.URL(ev.Name)
		messages = append(messages, notifier.Message{
			Platform: s.Name(),
			Event:    ev.Name,
			Records:  records,
			URL:      url,
		})
	}
	return messages, nil
}
