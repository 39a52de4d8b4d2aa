package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name  string
	delay time.Duration
	err   error
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Fetch(ctx context.Context, req *Request) (*Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{HTML: "<html></html>", EngineName: f.name}, nil
}

func TestDispatch_FastestEngineWins(t *testing.T) {
	fast := &fakeEngine{name: "fast", delay: 10 * time.Millisecond}
	slow := &fakeEngine{name: "slow", delay: 200 * time.Millisecond}

	d := NewDispatcher([]Engine{fast, slow}, []time.Duration{0, 0}, NewDomainMemory(time.Minute))
	result, err := d.Dispatch(context.Background(), &Request{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, "fast", result.EngineName)
}

func TestDispatch_EscalatesWhenFirstEngineFails(t *testing.T) {
	failing := &fakeEngine{name: "http", err: errors.New("non-html response")}
	fallback := &fakeEngine{name: "rod", delay: 5 * time.Millisecond}

	d := NewDispatcher([]Engine{failing, fallback}, []time.Duration{0, 0}, NewDomainMemory(time.Minute))
	result, err := d.Dispatch(context.Background(), &Request{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, "rod", result.EngineName)
}

func TestDispatch_AllEnginesFailReturnsLastError(t *testing.T) {
	e1 := &fakeEngine{name: "a", err: errors.New("boom a")}
	e2 := &fakeEngine{name: "b", err: errors.New("boom b")}

	d := NewDispatcher([]Engine{e1, e2}, []time.Duration{0, 0}, NewDomainMemory(time.Minute))
	_, err := d.Dispatch(context.Background(), &Request{URL: "https://example.com"})
	require.Error(t, err)
}

func TestDomainMemory_RemembersWinningEngineAndEntriesExpire(t *testing.T) {
	dm := NewDomainMemory(10 * time.Millisecond)
	defer dm.Stop()

	dm.Set("example.com", "rod")
	require.Equal(t, "rod", dm.Get("example.com"))

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, "", dm.Get("example.com"))
}

func TestDispatch_UsesRememberedEngineFirst(t *testing.T) {
	http := &fakeEngine{name: "http"}
	rod := &fakeEngine{name: "rod"}

	dm := NewDomainMemory(time.Minute)
	dm.Set("example.com", "rod")

	d := NewDispatcher([]Engine{http, rod}, []time.Duration{0, 500 * time.Millisecond}, dm)
	result, err := d.Dispatch(context.Background(), &Request{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, "rod", result.EngineName)
}
