package domain

import "context"

// DownloadStatus is the daemon's view of one download, as reported by a
// status poll. Numeric fields are already parsed from the wire format.
type DownloadStatus struct {
	GID            string
	Status         string
	TotalBytes     int64
	CompletedBytes int64
	Speed          int64
	ErrorMessage   string
	Name           string
}

// GlobalStat is the daemon's aggregate transfer statistics.
type GlobalStat struct {
	NumActive     int64
	NumWaiting    int64
	NumStopped    int64
	DownloadSpeed int64
	UploadSpeed   int64
}

// Downloader is the driven port for the external download daemon.
type Downloader interface {
	AddURI(ctx context.Context, uris []string, options map[string]string) (gid string, err error)
	AddTorrent(ctx context.Context, base64Content string) (gid string, err error)
	TellStatus(ctx context.Context, gid string) (*DownloadStatus, error)
	TellActive(ctx context.Context) ([]DownloadStatus, error)
	PauseAll(ctx context.Context) error
	UnpauseAll(ctx context.Context) error
	Remove(ctx context.Context, gid string) error
	PurgeDownloadResult(ctx context.Context) error
	GetGlobalStat(ctx context.Context) (*GlobalStat, error)
	RetryDownload(ctx context.Context, gid string) (gid2 string, err error)
}

// MessageRef identifies a posted notification so it can be edited later.
type MessageRef int64

// Notifier is the driven port for posting and editing progress messages.
// Edit failures for unchanged content are the adapter's problem; they
// must be logged and swallowed, never propagated.
type Notifier interface {
	Post(ctx context.Context, conversation int64, text string) (MessageRef, error)
	Edit(ctx context.Context, conversation int64, ref MessageRef, text string) error
}

// NameProber is the driven port for best-effort filename discovery on
// URL submissions. Implementations must bound their own timeout.
type NameProber interface {
	Probe(ctx context.Context, url string) (string, error)
}

// History is the driven port for the terminal-job audit store.
type History interface {
	Append(ctx context.Context, e HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// Tracker is the driven port that watches a registered job until it
// reaches a terminal state. Track must return quickly, spawning its
// own polling task.
type Tracker interface {
	Track(job *Job)
}
