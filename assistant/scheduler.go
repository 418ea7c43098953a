package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	defaultCycleSpec = "*/20 * * * *"
	defaultFAQSpec   = "@weekly"
)

// FAQRegenerator refreshes the dynamic instructions from the knowledge
// store on the weekly schedule.
type FAQRegenerator func() error

// Scheduler drives the periodic analysis cycle and the weekly FAQ
// digest. It shares the assistant's single-cycle guard, so a scheduled
// tick that collides with a manual run is simply dropped.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the cron entries. Specs come from the
// scheduler.* keys, with the assistant defaults when blank.
func NewScheduler(ctx context.Context, a *Assistant, regenFAQ FAQRegenerator) (*Scheduler, error) {
	c := cron.New()

	cycleSpec := viper.GetString("scheduler.cycle")
	if cycleSpec == "" {
		cycleSpec = defaultCycleSpec
	}
	if _, err := c.AddFunc(cycleSpec, func() {
		sum, err := a.RunCycle(ctx, TriggerSchedule)
		switch {
		case errors.Is(err, ErrCycleInProgress):
			slog.Info("scheduled_cycle_skipped", "reason", "already_running")
		case err != nil:
			slog.Warn("scheduled_cycle_failed", "error", err.Error())
		default:
			slog.Info("scheduled_cycle_done", "summary", sum.String())
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule cycle %q: %w", cycleSpec, err)
	}

	if regenFAQ != nil {
		faqSpec := viper.GetString("scheduler.faq")
		if faqSpec == "" {
			faqSpec = defaultFAQSpec
		}
		if _, err := c.AddFunc(faqSpec, func() {
			if err := regenFAQ(); err != nil {
				slog.Warn("scheduled_faq_failed", "error", err.Error())
				return
			}
			slog.Info("scheduled_faq_done")
		}); err != nil {
			return nil, fmt.Errorf("schedule faq %q: %w", faqSpec, err)
		}
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler_started", "entries", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for running entries to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler_stopped")
}
