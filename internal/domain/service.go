package domain

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"
)

var magnetPattern = regexp.MustCompile(`(?i)^magnet:\?xt=urn:btih:[a-fA-F0-9]{40}`)

// A common browser user agent, some hosts block the daemon's default.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36"

// Service is the orchestrator facade: it admits submissions against the
// per-owner limit, starts downloads on the daemon, registers them and
// hands them to the tracker. Bulk control operations live here too.
type Service struct {
	registry   *Registry
	downloader Downloader
	notifier   Notifier
	prober     NameProber
	history    History
	tracker    Tracker

	mu     sync.Mutex
	closed bool
}

// NewService creates a Service. The tracker must be attached with
// SetTracker before the first Submit; the tracker itself needs the
// service's collaborators, so wiring happens in two steps.
func NewService(registry *Registry, downloader Downloader, notifier Notifier, prober NameProber, history History) *Service {
	return &Service{
		registry:   registry,
		downloader: downloader,
		notifier:   notifier,
		prober:     prober,
		history:    history,
	}
}

// SetTracker attaches the tracking-loop port.
func (s *Service) SetTracker(t Tracker) {
	s.tracker = t
}

// Registry exposes the job registry to collaborating adapters.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Submit admits, starts and tracks a new download. The concurrency check
// happens before the daemon is contacted; the returned job is a snapshot,
// tracking proceeds asynchronously.
func (s *Service) Submit(ctx context.Context, kind Kind, payload string, owner, conversation int64) (*Job, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrShuttingDown
	}
	s.mu.Unlock()

	if err := validatePayload(kind, payload); err != nil {
		return nil, err
	}
	if err := s.registry.Reserve(owner); err != nil {
		return nil, err
	}

	gid, name, err := s.start(ctx, kind, payload)
	if err != nil {
		s.registry.Release(owner)
		return nil, err
	}

	job := &Job{
		GID:          gid,
		Owner:        owner,
		Name:         name,
		Conversation: conversation,
		StartedAt:    time.Now(),
		State:        StatePreparing,
	}
	if err := s.registry.Register(job); err != nil {
		// GID collision means the daemon handed out an id we already
		// track; fatal to this submission.
		return nil, fmt.Errorf("register %s: %w", gid, err)
	}
	log.Printf("job %s: started %s download %q for user %d", gid, kind, name, owner)

	if ref, err := s.notifier.Post(ctx, conversation, fmt.Sprintf("Download started: %s\nStatus: Preparing...", name)); err != nil {
		log.Printf("job %s: start notification failed: %v", gid, err)
	} else {
		s.registry.SetMessage(gid, ref)
	}

	// Snapshot before the tracking loop takes ownership of the job.
	copy := *job
	s.tracker.Track(job)
	return &copy, nil
}

func (s *Service) start(ctx context.Context, kind Kind, payload string) (gid, name string, err error) {
	switch kind {
	case KindMagnet:
		// Real name arrives later with the torrent metadata.
		name = "Magnet Link"
		gid, err = s.downloader.AddURI(ctx, []string{payload}, nil)
	case KindTorrent:
		name = "Torrent"
		gid, err = s.downloader.AddTorrent(ctx, payload)
	default:
		name = s.resolveName(ctx, payload)
		gid, err = s.downloader.AddURI(ctx, []string{payload}, map[string]string{
			"out":        name,
			"user-agent": browserUserAgent,
		})
	}
	return gid, name, err
}

// resolveName probes the URL for a server-suggested filename, falling
// back to the path component. Probe failures never block submission.
func (s *Service) resolveName(ctx context.Context, rawURL string) string {
	name := "download"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			name = base
		}
	}
	if s.prober != nil {
		if probed, err := s.prober.Probe(ctx, rawURL); err != nil {
			log.Printf("filename probe failed for %s: %v", rawURL, err)
		} else if probed != "" {
			name = probed
		}
	}
	return name
}

func validatePayload(kind Kind, payload string) error {
	switch kind {
	case KindURL:
		u, err := url.Parse(payload)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%w: not a valid URL", ErrInvalidPayload)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https", "ftp":
		default:
			return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidPayload, u.Scheme)
		}
	case KindMagnet:
		if !magnetPattern.MatchString(payload) {
			return fmt.Errorf("%w: not a valid magnet link", ErrInvalidPayload)
		}
	case KindTorrent:
		if payload == "" {
			return fmt.Errorf("%w: empty torrent content", ErrInvalidPayload)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPayload, kind)
	}
	return nil
}

// Active returns snapshot copies of the owner's tracked jobs.
func (s *Service) Active(owner int64) []Job {
	return s.registry.Active(owner)
}

// ActiveAll returns the daemon's view of all active downloads.
func (s *Service) ActiveAll(ctx context.Context) ([]DownloadStatus, error) {
	return s.downloader.TellActive(ctx)
}

// PauseAll pauses every download on the daemon.
func (s *Service) PauseAll(ctx context.Context) error {
	return s.downloader.PauseAll(ctx)
}

// ResumeAll resumes every paused download on the daemon.
func (s *Service) ResumeAll(ctx context.Context) error {
	return s.downloader.UnpauseAll(ctx)
}

// CancelAll removes every active download from the daemon, purges its
// result list and clears the registry and the failed set. Per-job remove
// failures are logged, the sweep continues regardless.
func (s *Service) CancelAll(ctx context.Context) error {
	active, err := s.downloader.TellActive(ctx)
	if err != nil {
		return fmt.Errorf("list active: %w", err)
	}
	for _, dl := range active {
		if err := s.downloader.Remove(ctx, dl.GID); err != nil {
			log.Printf("job %s: remove failed: %v", dl.GID, err)
		}
	}
	if err := s.downloader.PurgeDownloadResult(ctx); err != nil {
		log.Printf("purge download results failed: %v", err)
	}
	s.registry.Clear()
	s.registry.ClearFailed()
	log.Printf("cancelled %d active download(s)", len(active))
	return nil
}

// RetryFailed re-issues each failed download on the daemon. Successful
// retries are re-registered and re-tracked under the new GID; failures
// keep their record. Returns the number of retried and failed attempts.
func (s *Service) RetryFailed(ctx context.Context) (retried, failed int, err error) {
	for _, rec := range s.registry.FailedJobs() {
		if err := s.registry.Reserve(rec.Owner); err != nil {
			log.Printf("job %s: retry for user %d rejected: %v", rec.GID, rec.Owner, err)
			failed++
			continue
		}
		gid, rerr := s.downloader.RetryDownload(ctx, rec.GID)
		if rerr != nil {
			s.registry.Release(rec.Owner)
			log.Printf("job %s: retry failed: %v", rec.GID, rerr)
			failed++
			continue
		}
		job := &Job{
			GID:          gid,
			Owner:        rec.Owner,
			Name:         rec.Name,
			Conversation: rec.Conversation,
			StartedAt:    time.Now(),
			State:        StatePreparing,
		}
		if err := s.registry.Register(job); err != nil {
			log.Printf("job %s: re-register failed: %v", gid, err)
			failed++
			continue
		}
		// Only a registered, tracked retry consumes the failure record.
		s.registry.RemoveFailed(rec.GID)
		if ref, perr := s.notifier.Post(ctx, rec.Conversation, fmt.Sprintf("Retrying: %s", rec.Name)); perr == nil {
			s.registry.SetMessage(gid, ref)
		}
		s.tracker.Track(job)
		retried++
	}
	return retried, failed, nil
}

// FailedJobs lists the retained failure records.
func (s *Service) FailedJobs() []FailedJob {
	return s.registry.FailedJobs()
}

// Stats aggregates daemon statistics with the local tracking counts.
type Stats struct {
	Global  GlobalStat
	Tracked int
	Failed  int
}

// GlobalStats fetches daemon-wide statistics.
func (s *Service) GlobalStats(ctx context.Context) (*Stats, error) {
	global, err := s.downloader.GetGlobalStat(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Global:  *global,
		Tracked: s.registry.Len(),
		Failed:  len(s.registry.FailedJobs()),
	}, nil
}

// History lists recent terminal-job records.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(ctx, limit)
}

// Close stops admitting new submissions. In-flight tracking loops are
// drained by the tracker's own Shutdown.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
