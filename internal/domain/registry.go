package domain

import "sync"

// Registry is the in-memory store of tracked jobs. A single mutex guards
// the job table, the per-owner index, slot reservations and the failed
// set; registry operations are rare compared to polling, so one lock is
// not a bottleneck.
type Registry struct {
	mu       sync.Mutex
	limit    int
	jobs     map[string]*Job
	byOwner  map[int64][]string
	reserved map[int64]int
	failed   map[string]*FailedJob
}

// NewRegistry creates a registry enforcing the given per-owner limit.
func NewRegistry(limit int) *Registry {
	return &Registry{
		limit:    limit,
		jobs:     make(map[string]*Job),
		byOwner:  make(map[int64][]string),
		reserved: make(map[int64]int),
		failed:   make(map[string]*FailedJob),
	}
}

// Reserve claims a concurrency slot for owner before the daemon is
// contacted. It fails with ErrLimitExceeded when active jobs plus
// in-flight reservations have reached the limit, so two racing
// submissions can never both slip under it.
func (r *Registry) Reserve(owner int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.byOwner[owner])+r.reserved[owner] >= r.limit {
		return ErrLimitExceeded
	}
	r.reserved[owner]++
	return nil
}

// Release drops a reservation after a submission failed before Register.
func (r *Registry) Release(owner int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reserved[owner] > 0 {
		r.reserved[owner]--
	}
}

// Register converts a reservation into a tracked job. It fails with
// ErrDuplicateJob if the GID is already present; the reservation is
// consumed either way.
func (r *Registry) Register(job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reserved[job.Owner] > 0 {
		r.reserved[job.Owner]--
	}
	if _, ok := r.jobs[job.GID]; ok {
		return ErrDuplicateJob
	}
	r.jobs[job.GID] = job
	r.byOwner[job.Owner] = append(r.byOwner[job.Owner], job.GID)
	return nil
}

// Unregister removes a job from the table and the owner index. It is a
// no-op when the GID is absent.
func (r *Registry) Unregister(gid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(gid)
}

func (r *Registry) remove(gid string) {
	job, ok := r.jobs[gid]
	if !ok {
		return
	}
	delete(r.jobs, gid)
	gids := r.byOwner[job.Owner]
	for i, g := range gids {
		if g == gid {
			r.byOwner[job.Owner] = append(gids[:i], gids[i+1:]...)
			break
		}
	}
	if len(r.byOwner[job.Owner]) == 0 {
		delete(r.byOwner, job.Owner)
	}
}

// Contains reports whether the GID is still tracked.
func (r *Registry) Contains(gid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[gid]
	return ok
}

// Get returns a copy of the job, or nil when absent.
func (r *Registry) Get(gid string) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[gid]
	if !ok {
		return nil
	}
	copy := *job
	return &copy
}

// ActiveCount returns the number of tracked jobs for owner, excluding
// reservations.
func (r *Registry) ActiveCount(owner int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byOwner[owner])
}

// Active returns snapshot copies of the owner's tracked jobs. Callers
// never observe later mutations through the returned slice.
func (r *Registry) Active(owner int64) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var jobs []Job
	for _, gid := range r.byOwner[owner] {
		jobs = append(jobs, *r.jobs[gid])
	}
	return jobs
}

// Len returns the total number of tracked jobs across all owners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// SetName updates a job's display name, e.g. when torrent metadata
// reveals the real name mid-flight. No-op when the GID is absent.
func (r *Registry) SetName(gid, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[gid]; ok {
		job.Name = name
	}
}

// SetMessage attaches the notification message posted for a job.
// No-op when the GID is absent.
func (r *Registry) SetMessage(gid string, ref MessageRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[gid]; ok {
		job.Message = ref
	}
}

// SetRendered records the last progress text sent for a job, used to
// suppress redundant notifier edits.
func (r *Registry) SetRendered(gid, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[gid]; ok {
		job.LastRendered = text
	}
}

// SetState transitions a job's state. Terminal states are absorbing;
// a transition out of one is ignored.
func (r *Registry) SetState(gid string, state JobState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[gid]; ok && !job.State.Terminal() {
		job.State = state
	}
}

// Clear empties the job table and owner index, used by bulk cancel.
// Running tracking loops notice the missing entry on their next tick
// and exit on their own.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = make(map[string]*Job)
	r.byOwner = make(map[int64][]string)
}

// RecordFailure retires a job into the failed set.
func (r *Registry) RecordFailure(job *Job, errText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[job.GID] = &FailedJob{
		GID:          job.GID,
		Owner:        job.Owner,
		Name:         job.Name,
		Conversation: job.Conversation,
		Error:        errText,
	}
}

// FailedJobs returns snapshot copies of the failed set.
func (r *Registry) FailedJobs() []FailedJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FailedJob
	for _, f := range r.failed {
		out = append(out, *f)
	}
	return out
}

// RemoveFailed drops one failed record, e.g. after a successful retry.
func (r *Registry) RemoveFailed(gid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failed, gid)
}

// ClearFailed empties the failed set, used by bulk cancel.
func (r *Registry) ClearFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = make(map[string]*FailedJob)
}
