package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openlearn/live-session-server/internal/audit"
	"github.com/openlearn/live-session-server/internal/repository"
)

// ReaperJob periodically force-completes live sessions whose tutor never
// ended them. A session is reaped once it has been live for its full
// duration plus the configured overrun allowance.
type ReaperJob struct {
	sessions   repository.SessionRepository
	interval   time.Duration
	maxOverrun time.Duration
	done       chan struct{}
}

func NewReaperJob(sessions repository.SessionRepository, interval, maxOverrun time.Duration) *ReaperJob {
	return &ReaperJob{
		sessions:   sessions,
		interval:   interval,
		maxOverrun: maxOverrun,
		done:       make(chan struct{}),
	}
}

func (j *ReaperJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("max_overrun", j.maxOverrun).Msg("session reaper started")
}

func (j *ReaperJob) Stop() {
	close(j.done)
	log.Info().Msg("session reaper stopped")
}

func (j *ReaperJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.reap()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.reap()
		}
	}
}

func (j *ReaperJob) reap() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.sessions.CompleteOverrun(ctx, time.Now(), j.maxOverrun)
	if err != nil {
		log.Error().Err(err).Msg("failed to reap overrun sessions")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("force-completed overrun sessions")
		audit.Log(audit.Event{
			Type:    audit.EventSessionReaped,
			Details: map[string]interface{}{"count": count},
		})
	}
}
