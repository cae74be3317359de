package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/porthealth/porthealth/internal/onboarding"
)

// DefaultFlowIdleTimeout is how long an onboarding session is kept after the
// device was last seen.
const DefaultFlowIdleTimeout = 30 * time.Minute

type flowEntry struct {
	session  *onboarding.Session
	lastSeen time.Time
}

// flows holds the onboarding session of every device in memory.
// Nothing is persisted, a restart starts every device over.
//
// Sessions that are idle for longer than idleTimeout are evicted lazily,
// a device that comes back after that starts over.
type flows struct {
	mu          sync.Mutex
	idleTimeout time.Duration
	lastSweep   time.Time
	sessions    map[uuid.UUID]*flowEntry

	// nowFunc is used to get the current time.
	nowFunc func() time.Time
}

func newFlows(idleTimeout time.Duration) *flows {
	if idleTimeout <= 0 {
		idleTimeout = DefaultFlowIdleTimeout
	}

	return &flows{
		idleTimeout: idleTimeout,
		sessions:    make(map[uuid.UUID]*flowEntry),
		nowFunc:     time.Now,
	}
}

// get returns the session of a device and marks the device as seen.
func (f *flows) get(id uuid.UUID) (*onboarding.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.sessions[id]
	if !ok {
		return nil, false
	}

	now := f.nowFunc()
	if f.idle(e, now) {
		delete(f.sessions, id)
		return nil, false
	}

	e.lastSeen = now
	return e.session, true
}

// start creates a new session under a random device id.
func (f *flows) start() (uuid.UUID, *onboarding.Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, nil, err
	}

	sess := onboarding.NewSession()

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.nowFunc()
	f.sweep(now)

	f.sessions[id] = &flowEntry{
		session:  sess,
		lastSeen: now,
	}

	return id, sess, nil
}

// end discards the session of a device.
func (f *flows) end(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.sessions, id)
}

// len returns the number of sessions held, idle ones included.
func (f *flows) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sessions)
}

// sweep removes idle sessions, at most once per idle timeout.
// f.mu must be held.
func (f *flows) sweep(now time.Time) {
	if now.Sub(f.lastSweep) < f.idleTimeout {
		return
	}
	f.lastSweep = now

	for id, e := range f.sessions {
		if f.idle(e, now) {
			delete(f.sessions, id)
		}
	}
}

func (f *flows) idle(e *flowEntry, now time.Time) bool {
	return now.Sub(e.lastSeen) >= f.idleTimeout
}

type deviceFlow struct {
	deviceID uuid.UUID
	session  *onboarding.Session
}

type ctxKey string

const flowCtxKey ctxKey = "_flow"

func ctxWithFlow(ctx context.Context, flow deviceFlow) context.Context {
	return context.WithValue(ctx, flowCtxKey, flow)
}

func flowFromCtx(ctx context.Context) (deviceFlow, error) {
	flow, ok := ctx.Value(flowCtxKey).(deviceFlow)
	if !ok {
		return deviceFlow{}, fmt.Errorf("could not get flow from context")
	}

	return flow, nil
}
