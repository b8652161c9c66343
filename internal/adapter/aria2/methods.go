package aria2

import (
	"context"
	"fmt"

	"github.com/cwygoda/fetchd/internal/domain"
)

// AddURI starts a download from one or more URIs (HTTP/FTP/magnet).
func (c *Client) AddURI(ctx context.Context, uris []string, options map[string]string) (string, error) {
	params := []any{uris}
	if options != nil {
		params = append(params, options)
	}
	var gid string
	if err := c.call(ctx, "aria2.addUri", params, &gid); err != nil {
		return "", err
	}
	return gid, nil
}

// AddTorrent starts a download from base64-encoded torrent file content.
func (c *Client) AddTorrent(ctx context.Context, base64Content string) (string, error) {
	var gid string
	if err := c.call(ctx, "aria2.addTorrent", []any{base64Content, []any{}, map[string]any{}}, &gid); err != nil {
		return "", err
	}
	return gid, nil
}

// TellStatus polls the daemon for one download's status. A GID the
// daemon no longer knows surfaces as domain.ErrUnknownJob.
func (c *Client) TellStatus(ctx context.Context, gid string) (*domain.DownloadStatus, error) {
	var payload statusPayload
	if err := c.call(ctx, "aria2.tellStatus", []any{gid}, &payload); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownJob, gid)
		}
		return nil, err
	}
	st := payload.toDomain()
	return &st, nil
}

// TellActive lists all downloads the daemon considers active.
func (c *Client) TellActive(ctx context.Context) ([]domain.DownloadStatus, error) {
	var payloads []statusPayload
	if err := c.call(ctx, "aria2.tellActive", nil, &payloads); err != nil {
		return nil, err
	}
	statuses := make([]domain.DownloadStatus, 0, len(payloads))
	for i := range payloads {
		statuses = append(statuses, payloads[i].toDomain())
	}
	return statuses, nil
}

// PauseAll pauses every download.
func (c *Client) PauseAll(ctx context.Context) error {
	return c.call(ctx, "aria2.pauseAll", nil, nil)
}

// UnpauseAll resumes every paused download.
func (c *Client) UnpauseAll(ctx context.Context) error {
	return c.call(ctx, "aria2.unpauseAll", nil, nil)
}

// Remove removes a download from the daemon.
func (c *Client) Remove(ctx context.Context, gid string) error {
	return c.call(ctx, "aria2.remove", []any{gid}, nil)
}

// PurgeDownloadResult clears completed/error/removed results on the daemon.
func (c *Client) PurgeDownloadResult(ctx context.Context) error {
	return c.call(ctx, "aria2.purgeDownloadResult", nil, nil)
}

// GetGlobalStat fetches daemon-wide transfer statistics.
func (c *Client) GetGlobalStat(ctx context.Context) (*domain.GlobalStat, error) {
	var payload globalStatPayload
	if err := c.call(ctx, "aria2.getGlobalStat", nil, &payload); err != nil {
		return nil, err
	}
	gs := payload.toDomain()
	return &gs, nil
}

// RetryDownload re-queues a stopped download, returning the new GID.
func (c *Client) RetryDownload(ctx context.Context, gid string) (string, error) {
	var newGID string
	if err := c.call(ctx, "aria2.retryDownload", []any{gid}, &newGID); err != nil {
		return "", err
	}
	return newGID, nil
}
