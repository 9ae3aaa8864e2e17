// Package client reads records from a server started with seqstore serve
package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
)

// ErrNotFound is returned by Read for sequence numbers past the last record
var ErrNotFound = errors.New("client: record not found")

type Client struct {
	baseURL    string
	HTTPClient *http.Client
}

// New creates a client for server at baseURL e.g. "http://localhost:8080"
func New(baseURL string) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *Client) request(path string) *requests.Builder {
	return requests.
		URL(c.baseURL).
		Path(path).
		Client(c.HTTPClient)
}

// Read returns payload of record seq
func (c *Client) Read(ctx context.Context, seq uint64) ([]byte, error) {
	var buf bytes.Buffer
	notFound := false
	err := c.request("records/"+strconv.FormatUint(seq, 10)).
		AddValidator(func(res *http.Response) error {
			if res.StatusCode == http.StatusNotFound {
				notFound = true
			}
			return requests.CheckStatus(http.StatusOK)(res)
		}).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if notFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Count returns number of records in the store
func (c *Client) Count(ctx context.Context) (uint64, error) {
	var res struct {
		Count uint64 `json:"count"`
	}
	err := c.request("count").
		ToJSON(&res).
		Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}
