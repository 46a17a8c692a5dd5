package client

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/mitchellh/hashstructure/v2"
)

// DefaultFetchError is reported when a failed request carries no server message.
const DefaultFetchError = "Failed to fetch data."

// RequestOptions are the request settings that, with the URL, identify a load.
type RequestOptions struct {
	Method string // defaults to GET
	Header map[string]string
	Body   any
}

// State is a snapshot of a Resource.
type State[T any] struct {
	Data    *T
	Loading bool
	Err     error
}

// Resource fetches one URL into T and tracks its lifecycle. Loading a new
// URL or options cancels the request in flight, and Close cancels it for
// good: results of a cancelled request are never recorded.
type Resource[T any] struct {
	c        *Client
	onChange func(State[T])

	mu     sync.Mutex
	state  State[T]
	key    string
	gen    uint64
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewResource creates an idle resource. onChange, if set, receives every
// state change and is called without the resource's lock held.
func NewResource[T any](c *Client, onChange func(State[T])) *Resource[T] {
	return &Resource[T]{c: c, onChange: onChange}
}

// State returns the current snapshot.
func (r *Resource[T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func loadKey(url string, opts RequestOptions) (string, error) {
	h, err := hashstructure.Hash(opts, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return url + "#" + strconv.FormatUint(h, 16), nil
}

// Load fetches url with opts. Loading the pair that is already loaded or in
// flight does nothing; any other pair replaces the current request.
func (r *Resource[T]) Load(url string, opts RequestOptions) error {
	key, err := loadKey(url, opts)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed || key == r.key {
		r.mu.Unlock()
		return nil
	}
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.key = key
	r.gen++
	gen := r.gen
	r.cancel = cancel
	r.state.Loading = true
	r.state.Err = nil
	snapshot := r.state
	r.wg.Add(1)
	r.mu.Unlock()

	r.notify(snapshot)
	go r.fetch(ctx, gen, url, opts)
	return nil
}

func (r *Resource[T]) fetch(ctx context.Context, gen uint64, url string, opts RequestOptions) {
	defer r.wg.Done()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	raw, err := r.c.do(ctx, request{
		method:         method,
		path:           url,
		body:           opts.Body,
		header:         opts.Header,
		failure:        DefaultFetchError,
		replaceMessage: true,
	})
	var data *T
	if err == nil {
		data, err = decodeRecord[T](raw, "response")
	}

	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		r.state.Err = err
	} else if data != nil {
		r.state.Data = data
	}
	r.state.Loading = false
	r.cancel = nil
	snapshot := r.state
	r.mu.Unlock()

	r.notify(snapshot)
}

func (r *Resource[T]) notify(s State[T]) {
	if r.onChange != nil {
		r.onChange(s)
	}
}

// Close cancels any request in flight. The state is never updated again.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	r.closed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
}

// Wait blocks until every fetch goroutine started by Load has returned.
func (r *Resource[T]) Wait() {
	r.wg.Wait()
}
