package httpds

import (
	"context"
	"io"
)

// Remote is a data source backed by a single URL.
type Remote struct {
	client *Client
	url    string
}

// NewRemote binds url to client.
func NewRemote(client *Client, url string) *Remote {
	return &Remote{client: client, url: url}
}

// Name returns the URL.
func (r *Remote) Name() string { return r.url }

// Open fetches the URL and returns the response body. Any final status
// outside 2xx is returned as *StatusError.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: r.url, Code: resp.StatusCode}
	}
	return resp.Body, nil
}
