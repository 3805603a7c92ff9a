package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/report"
	"github.com/kidsweather/kidsweather/internal/weather"
)

// Renderer periodically builds the default coordinate's report and writes the
// JSON to a file, keeping both caches warm and giving static consumers a
// fresh artifact to serve.
type Renderer struct {
	scheduler *gocron.Scheduler
	svc       *report.Service
	coord     weather.Coordinate
	interval  time.Duration
	output    string
	log       logger.Logger
}

// New creates a render scheduler.
func New(svc *report.Service, coord weather.Coordinate, interval time.Duration, output string, log logger.Logger) *Renderer {
	return &Renderer{
		scheduler: gocron.NewScheduler(time.UTC),
		svc:       svc,
		coord:     coord,
		interval:  interval,
		output:    output,
		log:       log.WithField("component", "render_scheduler"),
	}
}

// Start schedules the periodic render job and runs it immediately once.
func (r *Renderer) Start() error {
	minutes := int(r.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	job := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if err := r.render(ctx); err != nil {
			r.log.Errorf("render job failed: %v", err)
			return
		}
		r.log.Infof("rendered report for %s to %s", r.coord, r.output)
	}

	if _, err := r.scheduler.Every(minutes).Minutes().Do(job); err != nil {
		return err
	}

	r.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (r *Renderer) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

func (r *Renderer) render(ctx context.Context) error {
	rep, err := r.svc.BuildReport(ctx, r.coord, report.Options{Source: "scheduler"})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	tmp := r.output + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	if err := os.Rename(tmp, r.output); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish report file: %w", err)
	}
	return nil
}
