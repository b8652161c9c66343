package tracker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cwygoda/fetchd/internal/domain"
	"github.com/cwygoda/fetchd/internal/progress"
)

// Daemon status values that end tracking.
const (
	statusComplete = "complete"
	statusError    = "error"
	statusRemoved  = "removed"
)

// Tracker runs one polling loop per registered job. Loops are supervised:
// Shutdown cancels them and waits for the set to drain.
type Tracker struct {
	registry   *domain.Registry
	downloader domain.Downloader
	notifier   domain.Notifier
	history    domain.History
	interval   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a tracker polling each job every interval.
func New(registry *domain.Registry, downloader domain.Downloader, notifier domain.Notifier, history domain.History, interval time.Duration) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		registry:   registry,
		downloader: downloader,
		notifier:   notifier,
		history:    history,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Track starts the polling loop for a freshly registered job. The loop
// owns all of the job's state transitions; whatever happens inside it,
// the job ends up retired from the registry.
func (t *Tracker) Track(job *domain.Job) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("job %s: tracking panic: %v", job.GID, r)
				t.registry.Unregister(job.GID)
			}
		}()
		t.run(job)
	}()
}

func (t *Tracker) run(job *domain.Job) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	name := job.Name
	msg := job.Message
	lastText := job.LastRendered

	for {
		select {
		case <-t.ctx.Done():
			t.registry.Unregister(job.GID)
			return
		case <-ticker.C:
		}

		// Another actor (bulk cancel) may have retired the job already.
		if !t.registry.Contains(job.GID) {
			log.Printf("job %s: no longer tracked, stopping", job.GID)
			return
		}

		st, err := t.downloader.TellStatus(t.ctx, job.GID)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownJob) {
				log.Printf("job %s: daemon does not know it, assuming removed", job.GID)
				t.registry.Unregister(job.GID)
				return
			}
			// Transient poll failure: keep the loop alive, try again on
			// the next tick.
			log.Printf("job %s: status poll failed: %v", job.GID, err)
			continue
		}

		t.registry.SetState(job.GID, domain.StateActive)

		// Torrent metadata may reveal the real name mid-flight.
		if st.Name != "" && st.Name != name {
			name = st.Name
			t.registry.SetName(job.GID, name)
		}

		text := progress.Render(name, st)
		if text != lastText {
			if msg == 0 {
				if ref, err := t.notifier.Post(t.ctx, job.Conversation, text); err != nil {
					log.Printf("job %s: progress post failed: %v", job.GID, err)
				} else {
					msg = ref
					lastText = text
					t.registry.SetRendered(job.GID, text)
				}
			} else if err := t.notifier.Edit(t.ctx, job.Conversation, msg, text); err != nil {
				log.Printf("job %s: progress edit failed: %v", job.GID, err)
			} else {
				lastText = text
				t.registry.SetRendered(job.GID, text)
			}
		}

		switch st.Status {
		case statusComplete, statusError, statusRemoved:
			t.finish(job, name, msg, st)
			return
		}
	}
}

// finish performs the terminal transition: final notification, failure
// record, history row, retirement.
func (t *Tracker) finish(job *domain.Job, name string, msg domain.MessageRef, st *domain.DownloadStatus) {
	var state domain.JobState
	var final string

	switch st.Status {
	case statusComplete:
		state = domain.StateCompleted
		final = progress.RenderCompleted(name, st.TotalBytes)
		log.Printf("job %s: completed %q", job.GID, name)
	case statusError:
		state = domain.StateFailed
		final = progress.RenderFailed(name, st.ErrorMessage)
		failed := *job
		failed.Name = name
		t.registry.RecordFailure(&failed, st.ErrorMessage)
		log.Printf("job %s: failed %q: %s", job.GID, name, st.ErrorMessage)
	default:
		state = domain.StateRemoved
		final = progress.RenderRemoved(name)
		log.Printf("job %s: removed %q", job.GID, name)
	}

	t.registry.SetState(job.GID, state)

	if msg == 0 {
		if _, err := t.notifier.Post(t.ctx, job.Conversation, final); err != nil {
			log.Printf("job %s: final post failed: %v", job.GID, err)
		}
	} else if err := t.notifier.Edit(t.ctx, job.Conversation, msg, final); err != nil {
		log.Printf("job %s: final edit failed: %v", job.GID, err)
	}

	if t.history != nil {
		entry := domain.HistoryEntry{
			GID:        job.GID,
			Owner:      job.Owner,
			Name:       name,
			State:      state,
			Error:      st.ErrorMessage,
			TotalBytes: st.TotalBytes,
			StartedAt:  job.StartedAt,
			FinishedAt: time.Now(),
		}
		if err := t.history.Append(t.ctx, entry); err != nil {
			log.Printf("job %s: history append failed: %v", job.GID, err)
		}
	}

	t.registry.Unregister(job.GID)
}

// Shutdown cancels all polling loops and waits for them to drain, or
// returns the context's error when the deadline passes first.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.cancel()
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
