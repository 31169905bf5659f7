// Package scheduler runs periodic exports so the site generator always
// finds fresh data files without anyone pressing a button.
package scheduler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/progsite/roster-api/internal/export"
)

type Scheduler struct {
	cron     *cron.Cron
	exporter *export.Exporter
	spec     string
}

// New creates a scheduler for the given cron spec (robfig/cron syntax,
// "@hourly" etc. included).
func New(spec string, exporter *export.Exporter) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		exporter: exporter,
		spec:     spec,
	}
}

// Start registers the export job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		slog.Info("scheduled export triggered", slog.String("spec", s.spec))
		if _, err := s.exporter.Run(context.Background()); err != nil {
			// An overlapping manual run is fine; anything else is not.
			if errors.Is(err, export.ErrAlreadyRunning) {
				slog.Info("export skipped, already running")
				return
			}
			slog.Error("scheduled export failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
