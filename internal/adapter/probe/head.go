package probe

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

var filenamePattern = regexp.MustCompile(`filename="?([^";]+)"?`)

const probeTimeout = 15 * time.Second

// HeadProber discovers a server-suggested filename by issuing a HEAD
// request and reading the Content-Disposition header. It implements
// domain.NameProber.
type HeadProber struct {
	http *http.Client
}

// New creates a prober with a bounded timeout that follows redirects.
func New() *HeadProber {
	return &HeadProber{http: &http.Client{Timeout: probeTimeout}}
}

// Probe returns the filename suggested by the server, or "" when the
// response carries none.
func (p *HeadProber) Probe(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	cd := resp.Header.Get("Content-Disposition")
	if cd == "" {
		return "", nil
	}
	m := filenamePattern.FindStringSubmatch(cd)
	if m == nil {
		return "", fmt.Errorf("unparseable Content-Disposition: %q", cd)
	}
	return m[1], nil
}
