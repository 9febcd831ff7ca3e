package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedDoer struct {
	responses []func() (*http.Response, error)
	calls     int
}

func (d *scriptedDoer) Do(*http.Request) (*http.Response, error) {
	i := d.calls
	d.calls++
	if i >= len(d.responses) {
		i = len(d.responses) - 1
	}
	return d.responses[i]()
}

func status(code int) func() (*http.Response, error) {
	return func() (*http.Response, error) {
		return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
}

func netErr() func() (*http.Response, error) {
	return func() (*http.Response, error) {
		return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	}
}

func newTestClient(d Doer) *Client {
	c := NewWithDoer(d, DefaultConfig())
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestClient_RetriesServerErrors(t *testing.T) {
	d := &scriptedDoer{responses: []func() (*http.Response, error){status(502), status(503), status(200)}}
	c := newTestClient(d)

	resp, err := c.Get(context.Background(), "http://tmdb.local/movie/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, d.calls)
}

func TestClient_ReturnsLastServerErrorResponse(t *testing.T) {
	d := &scriptedDoer{responses: []func() (*http.Response, error){status(500)}}
	c := newTestClient(d)

	resp, err := c.Get(context.Background(), "http://tmdb.local/movie/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 3, d.calls)
}

func TestClient_RetriesNetworkErrors(t *testing.T) {
	d := &scriptedDoer{responses: []func() (*http.Response, error){netErr(), netErr(), netErr()}}
	c := newTestClient(d)

	_, err := c.Get(context.Background(), "http://tmdb.local/movie/1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, d.calls)
}

func TestClient_DoesNotRetryPost(t *testing.T) {
	d := &scriptedDoer{responses: []func() (*http.Response, error){status(503)}}
	c := newTestClient(d)

	req, err := http.NewRequest(http.MethodPost, "http://tmdb.local/x", http.NoBody)
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 1, d.calls)
}

func TestClient_SetsUserAgent(t *testing.T) {
	var got string
	d := &scriptedDoer{responses: []func() (*http.Response, error){status(200)}}
	c := newTestClient(doerFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get("User-Agent")
		return d.Do(r)
	}))

	resp, err := c.Get(context.Background(), "http://tmdb.local/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "wokeornot/1.0", got)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(errors.New("plain")))
	assert.True(t, isRetryableError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
}

func TestBackoff_Capped(t *testing.T) {
	c := NewWithDoer(nil, Config{RetryWaitMin: 100 * time.Millisecond, RetryWaitMax: 300 * time.Millisecond})
	assert.Equal(t, 100*time.Millisecond, c.backoff(1))
	assert.Equal(t, 200*time.Millisecond, c.backoff(2))
	assert.Equal(t, 300*time.Millisecond, c.backoff(3))
}
