package session

import (
	"sync"
	"time"
)

// Phase names a step of the connect sequence.
type Phase string

// Connect emits phases in this order: searching_host, connecting,
// authenticating, using_username, then loading_keys and auth_public_key or
// auth_password, then success or failed. Failures may end the sequence early.
const (
	PhaseSearchingHost  Phase = "searching_host"
	PhaseConnecting     Phase = "connecting"
	PhaseAuthenticating Phase = "authenticating"
	PhaseUsingUsername  Phase = "using_username"
	PhaseLoadingKeys    Phase = "loading_keys"
	PhaseAuthPublicKey  Phase = "auth_public_key"
	PhaseAuthPassword   Phase = "auth_password"
	PhaseSuccess        Phase = "success"
	PhaseFailed         Phase = "failed"
)

// ProgressEvent reports connect progress. It is advisory only.
type ProgressEvent struct {
	Phase  Phase
	Detail string // host, username, key type or failure message
	Key    string // key fingerprint for auth_public_key
	Time   time.Time
}

type observers struct {
	mu       sync.Mutex
	nextID   int
	progress map[int]func(ProgressEvent)
	state    map[int]func(State)
}

// Subscribe registers fn for progress events and returns a function that
// removes it.
func (s *Session) Subscribe(fn func(ProgressEvent)) (unsubscribe func()) {
	o := &s.observers
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.progress == nil {
		o.progress = make(map[int]func(ProgressEvent))
	}
	id := o.nextID
	o.nextID++
	o.progress[id] = fn

	return func() {
		o.mu.Lock()
		delete(o.progress, id)
		o.mu.Unlock()
	}
}

// OnStateChange registers fn to be called with each new State.
func (s *Session) OnStateChange(fn func(State)) (unsubscribe func()) {
	o := &s.observers
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == nil {
		o.state = make(map[int]func(State))
	}
	id := o.nextID
	o.nextID++
	o.state[id] = fn

	return func() {
		o.mu.Lock()
		delete(o.state, id)
		o.mu.Unlock()
	}
}

func (s *Session) emit(phase Phase, detail, key string) {
	ev := ProgressEvent{Phase: phase, Detail: detail, Key: key, Time: s.clock.Now()}
	for _, fn := range s.observers.progressSnapshot() {
		fn(ev)
	}
}

// progressSnapshot copies the observer list so callbacks run unlocked, in
// registration order.
func (o *observers) progressSnapshot() []func(ProgressEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fns := make([]func(ProgressEvent), 0, len(o.progress))
	for id := 0; id < o.nextID; id++ {
		if fn, ok := o.progress[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func (o *observers) notifyState(state State) {
	o.mu.Lock()
	fns := make([]func(State), 0, len(o.state))
	for id := 0; id < o.nextID; id++ {
		if fn, ok := o.state[id]; ok {
			fns = append(fns, fn)
		}
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
