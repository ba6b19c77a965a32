package tts

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"
)

// httpDoer sends JSON requests with retry for the REST providers.
type httpDoer struct {
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger

	// parse turns a non-2xx response into an error.
	parse func(*http.Response) error
}

// post sends body to url, rebuilding the request on every attempt so the body
// can be replayed. The caller closes the returned response.
func (d *httpDoer) post(ctx context.Context, url string, body []byte, header http.Header) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d.retryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header = header.Clone()

		resp, err := d.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = d.parse(resp)
			resp.Body.Close()
			d.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// get performs a single authenticated GET and checks the status.
func (d *httpDoer) get(ctx context.Context, url string, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header = header.Clone()

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return d.parse(resp)
	}
	return nil
}
