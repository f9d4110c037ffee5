package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

const (
	// jobTimeout bounds one refresh of a single station.
	jobTimeout      = 30 * time.Second
	defaultInterval = 5 * time.Minute
)

// Refresher is the part of coastal.Service the scheduler drives.
type Refresher interface {
	GetCurrents(ctx context.Context, stationID string, explicit *coastal.Coordinates) (coastal.StationTimeSeries, error)
	GetThreatsForStation(ctx context.Context, stationID string, explicit *coastal.Coordinates) (coastal.ThreatAssessment, error)
}

// Scheduler periodically refreshes currents for the monitored stations and the
// threat assessment for the first of them.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	stations  []string
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(stations []string, interval time.Duration, service Refresher, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		stations:  stations,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first tick runs immediately.
func (s *Scheduler) Start() error {
	if len(s.stations) == 0 {
		s.logger.Info("scheduler: no stations configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = defaultInterval
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every station concurrently and waits for all of them.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.Debug("scheduler: running refresh job", "stations", len(s.stations))

	var wg sync.WaitGroup
	for _, id := range s.stations {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()

			if _, err := s.service.GetCurrents(ctx, id, nil); err != nil {
				s.logFailure("currents", id, err)
			}
		}()
	}

	if len(s.stations) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			id := s.stations[0]
			ctx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()

			if _, err := s.service.GetThreatsForStation(ctx, id, nil); err != nil {
				s.logFailure("threats", id, err)
			}
		}()
	}

	wg.Wait()
	s.logger.Debug("scheduler: completed refresh job")
}

func (s *Scheduler) logFailure(kind, station string, err error) {
	if errors.Is(err, coastal.ErrSuperseded) {
		s.logger.Debug("scheduler: result superseded", "kind", kind, "station", station)
		return
	}
	s.logger.Warn("scheduler: refresh failed", "kind", kind, "station", station, "error", err)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
