package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnscripted is returned for a request no reply was scripted for.
var ErrUnscripted = errors.New("unscripted request")

// Request is one call received by a FakeService. For Put, Path already
// includes the id.
type Request struct {
	Method string          `json:"method" yaml:"method"`
	Path   string          `json:"path" yaml:"path"`
	Body   json.RawMessage `json:"body,omitempty" yaml:"-"`
}

type reply struct {
	body json.RawMessage
	err  error
}

type route struct {
	replies []reply
	hold    chan struct{}
}

// FakeService is a scripted remote.Service.
//
// Replies are keyed by method and path (query string included). Each route
// holds a queue of replies: calls consume them in order and the last one
// repeats. Safe for concurrent use.
type FakeService struct {
	mu       sync.Mutex
	routes   map[string]*route
	requests []Request
}

// NewFakeService creates a FakeService with no scripted replies.
func NewFakeService() *FakeService {
	return &FakeService{routes: make(map[string]*route)}
}

func routeKey(method, path string) string {
	return method + " " + path
}

func (f *FakeService) route(method, path string) *route {
	key := routeKey(method, path)
	r, ok := f.routes[key]
	if !ok {
		r = &route{}
		f.routes[key] = r
	}
	return r
}

// Reply queues body as a successful response for method and path. It
// panics if body cannot be encoded as JSON.
func (f *FakeService) Reply(method, path string, body any) *FakeService {
	raw, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("testutil: encode reply for %s: %v", routeKey(method, path), err))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.route(method, path)
	r.replies = append(r.replies, reply{body: raw})
	return f
}

// Fail queues err as the response for method and path.
func (f *FakeService) Fail(method, path string, err error) *FakeService {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.route(method, path)
	r.replies = append(r.replies, reply{err: err})
	return f
}

// Hold makes every call to method and path wait until release is called
// or the call's context is done.
func (f *FakeService) Hold(method, path string) (release func()) {
	ch := make(chan struct{})

	f.mu.Lock()
	f.route(method, path).hold = ch
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Get implements remote.Service.
func (f *FakeService) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return f.call(ctx, "GET", path, nil)
}

// Post implements remote.Service.
func (f *FakeService) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return f.call(ctx, "POST", path, body)
}

// Put implements remote.Service.
func (f *FakeService) Put(ctx context.Context, path, id string, body any) (json.RawMessage, error) {
	return f.call(ctx, "PUT", path+"/"+id, body)
}

func (f *FakeService) call(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	req := Request{Method: method, Path: path}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		req.Body = raw
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	r, ok := f.routes[routeKey(method, path)]
	var hold chan struct{}
	if ok {
		hold = r.hold
	}
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnscripted, routeKey(method, path))
	}

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(r.replies) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnscripted, routeKey(method, path))
	}
	next := r.replies[0]
	if len(r.replies) > 1 {
		r.replies = r.replies[1:]
	}
	if next.err != nil {
		return nil, next.err
	}
	return slices.Clone(next.body), nil
}

// Requests returns every call received so far, in arrival order.
func (f *FakeService) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// Calls returns how many times method and path were requested.
func (f *FakeService) Calls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}
