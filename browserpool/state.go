package browserpool

import "sync/atomic"

// State is the BrowserPool lifecycle state machine:
//
//	Uninitialized -> Starting -> Ready -> (Draining -> Restarting -> Ready) | Shutdown
type State int32

const (
	Uninitialized State = iota
	Starting
	Ready
	Draining
	Restarting
	ShutdownState
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Draining:
		return "draining"
	case Restarting:
		return "restarting"
	case ShutdownState:
		return "shutdown"
	default:
		return "unknown"
	}
}

// stateBox is an atomically-swapped State holder shared by BrowserPool.
type stateBox struct {
	v atomic.Int32
}

func (b *stateBox) Load() State      { return State(b.v.Load()) }
func (b *stateBox) Store(s State)    { b.v.Store(int32(s)) }
func (b *stateBox) Is(s State) bool  { return b.Load() == s }
func (b *stateBox) CAS(old, to State) bool {
	return b.v.CompareAndSwap(int32(old), int32(to))
}
