// Package apitest provides a programmable api.Gateway for store tests.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/client/api"
)

// Call is one request seen by the fake.
type Call struct {
	Method string
	Path   string
	Body   any
	Query  url.Values
}

// Responder answers a call by filling out or returning an error.
type Responder func(ctx context.Context, c Call, out any) error

// Fake records every call and answers from registered responders. Calls to
// unregistered routes fail with 404.
type Fake struct {
	mu     sync.Mutex
	routes map[string]Responder
	calls  []Call
}

func New() *Fake {
	return &Fake{routes: map[string]Responder{}}
}

// On registers r for method and path, replacing any earlier responder.
func (f *Fake) On(method, path string, r Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = r
}

func (f *Fake) Send(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	c := Call{Method: method, Path: path, Body: body, Query: query}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	r := f.routes[method+" "+path]
	f.mu.Unlock()

	if r == nil {
		return api.NewHTTPError(http.StatusNotFound, "no route for "+method+" "+path)
	}
	return r(ctx, c, out)
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many calls hit method and path.
func (f *Fake) Count(method, path string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// Reply answers with v, passed through JSON like a real response.
func Reply(v any) Responder {
	return func(_ context.Context, _ Call, out any) error {
		if out == nil {
			return nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, out)
	}
}

// Fail answers with an HTTP error.
func Fail(status int, message string) Responder {
	return func(context.Context, Call, any) error {
		return api.NewHTTPError(status, message)
	}
}

// Gate holds a responder back until Release is called, so tests can decide
// the order in which concurrent calls complete.
type Gate struct {
	next     Responder
	arrived  chan struct{}
	released chan struct{}
	once     sync.Once
}

func NewGate(next Responder) *Gate {
	return &Gate{next: next, arrived: make(chan struct{}, 16), released: make(chan struct{})}
}

func (g *Gate) Respond(ctx context.Context, c Call, out any) error {
	g.arrived <- struct{}{}
	select {
	case <-g.released:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.next(ctx, c, out)
}

func (g *Gate) Release() {
	g.once.Do(func() { close(g.released) })
}

// WaitArrived blocks until a call reached the gate.
func (g *Gate) WaitArrived(t testing.TB) {
	t.Helper()
	select {
	case <-g.arrived:
	case <-time.After(5 * time.Second):
		t.Fatal("call never reached the gate")
	}
}

var _ api.Gateway = (*Fake)(nil)
