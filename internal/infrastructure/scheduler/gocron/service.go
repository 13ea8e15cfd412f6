// Package scheduler runs the coordinator's periodic reconcile sweep on a
// fixed interval.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

type service struct {
	scheduler *gocron.Scheduler
}

// NewScheduler returns a gocron-backed ports.SchedulerService.
func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

// ScheduleTask registers task to run every interval seconds. When
// immediate is false the first run waits out a full interval, matching
// gocron's WaitForSchedule semantics.
func (s *service) ScheduleTask(interval int64, immediate bool, task func()) error {
	job := s.scheduler.Every(interval).Seconds()
	if !immediate {
		job = job.WaitForSchedule()
	}
	_, err := job.Do(task)
	return err
}
