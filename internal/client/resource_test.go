package client

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	Text string `json:"text"`
}

func TestResource_Load(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/hello":
			_, _ = w.Write([]byte(`{"success":true,"data":{"text":"hi"}}`))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"Internal Server Error","message":"disk full"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		wantText string
		wantErr  string
	}{
		{name: "success", path: "/hello", wantText: "hi"},
		{name: "server message replaces default", path: "/broken", wantErr: "disk full"},
		{name: "default message", path: "/missing", wantErr: DefaultFetchError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var mu sync.Mutex
			var changes []State[greeting]
			res := NewResource(c, func(s State[greeting]) {
				mu.Lock()
				defer mu.Unlock()
				changes = append(changes, s)
			})
			t.Cleanup(res.Close)

			require.NoError(t, res.Load(tt.path, RequestOptions{}))
			res.Wait()

			state := res.State()
			assert.False(t, state.Loading)
			if tt.wantErr != "" {
				require.Error(t, state.Err)
				assert.Equal(t, tt.wantErr, state.Err.Error())
				assert.Nil(t, state.Data)
			} else {
				require.NoError(t, state.Err)
				require.NotNil(t, state.Data)
				assert.Equal(t, tt.wantText, state.Data.Text)
			}

			mu.Lock()
			defer mu.Unlock()
			require.Len(t, changes, 2)
			assert.True(t, changes[0].Loading)
			assert.False(t, changes[1].Loading)
		})
	}
}

func TestResource_SamePairIsNotRefetched(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"text":"hi"}`))
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)

	res := NewResource[greeting](c, nil)
	t.Cleanup(res.Close)
	opts := RequestOptions{Header: map[string]string{"X-Mode": "a"}}
	require.NoError(t, res.Load("/hello", opts))
	require.NoError(t, res.Load("/hello", opts))
	res.Wait()
	require.NoError(t, res.Load("/hello", RequestOptions{Header: map[string]string{"X-Mode": "a"}}))
	res.Wait()
	assert.Equal(t, int32(1), hits.Load())

	require.NoError(t, res.Load("/hello", RequestOptions{Header: map[string]string{"X-Mode": "b"}}))
	res.Wait()
	assert.Equal(t, int32(2), hits.Load(), "different options refetch")
}

// blockingServer holds every request until release is closed.
func blockingServer(t *testing.T) (*Client, chan struct{}, chan string) {
	t.Helper()
	release := make(chan struct{})
	arrived := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived <- r.URL.Path
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"text":"` + r.URL.Path + `"}`))
	}))
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
		srv.Close()
	})
	c, err := New(srv.URL)
	require.NoError(t, err)
	return c, release, arrived
}

func TestResource_CloseSuppressesResult(t *testing.T) {
	t.Parallel()
	c, release, arrived := blockingServer(t)

	var changes atomic.Int32
	res := NewResource(c, func(State[greeting]) { changes.Add(1) })
	require.NoError(t, res.Load("/slow", RequestOptions{}))
	<-arrived

	res.Close()
	close(release)
	res.Wait()

	state := res.State()
	assert.NoError(t, state.Err, "a cancelled request never records an error")
	assert.Nil(t, state.Data)
	assert.Equal(t, int32(1), changes.Load(), "only the loading transition was reported")

	require.NoError(t, res.Load("/other", RequestOptions{}))
	res.Wait()
	assert.Nil(t, res.State().Data, "a closed resource does not load")
}

func TestResource_NewURLCancelsPrevious(t *testing.T) {
	t.Parallel()
	c, release, arrived := blockingServer(t)

	res := NewResource[greeting](c, nil)
	t.Cleanup(res.Close)

	require.NoError(t, res.Load("/first", RequestOptions{}))
	assert.Equal(t, "/first", <-arrived)
	require.NoError(t, res.Load("/second", RequestOptions{}))
	assert.Equal(t, "/second", <-arrived)
	close(release)
	res.Wait()

	state := res.State()
	require.NoError(t, state.Err)
	require.NotNil(t, state.Data)
	assert.Equal(t, "/second", state.Data.Text)
	assert.False(t, state.Loading)
}

func TestResource_KeepsDataWhileReloading(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"` + r.URL.Path + `"}`))
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithTimeout(5*time.Second))
	require.NoError(t, err)

	var sawStale atomic.Bool
	res := NewResource(c, func(s State[greeting]) {
		if s.Loading && s.Data != nil && s.Data.Text == "/a" {
			sawStale.Store(true)
		}
	})
	t.Cleanup(res.Close)
	require.NoError(t, res.Load("/a", RequestOptions{}))
	res.Wait()
	require.NoError(t, res.Load("/b", RequestOptions{}))
	res.Wait()

	assert.True(t, sawStale.Load())
	assert.Equal(t, "/b", res.State().Data.Text)
}
