package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/keystonehq/keystone/internal/constants"
	"github.com/keystonehq/keystone/internal/convo"
	"github.com/keystonehq/keystone/internal/habit"
	"github.com/keystonehq/keystone/internal/logger"
	"github.com/keystonehq/keystone/internal/models"
)

// pushTimeout bounds a single network write so a stalled connection cannot
// hold the flush goroutine forever.
const pushTimeout = 15 * time.Second

// Engine bridges the local stores to the remote authority. It is
// constructed once at session start and torn down at sign-out; all hook
// references live on the instance, never in package globals.
type Engine struct {
	store    *habit.Store
	convo    *convo.Store
	remote   RemoteStore
	userID   string
	debounce time.Duration
	onResult func(Result)

	mu              sync.Mutex
	habitTimer      *time.Timer
	habitPending    []byte
	convoTimer      *time.Timer
	convoPending    []byte
	unregisterSave  func()
	unregisterClear func()
	unregisterConvo func()
	stopped         bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce overrides the trailing debounce window.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithResultHook installs an observability callback receiving every sync
// Result. Failures surface here instead of anywhere user-visible.
func WithResultHook(fn func(Result)) Option {
	return func(e *Engine) { e.onResult = fn }
}

// WithConversationStore attaches the conversation store so its slot pair
// syncs to the second remote table with the same debounce behavior.
func WithConversationStore(c *convo.Store) Option {
	return func(e *Engine) { e.convo = c }
}

// New builds an engine for the given user. Start must be called before any
// syncing happens.
func New(store *habit.Store, remote RemoteStore, userID string, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		remote:   remote,
		userID:   userID,
		debounce: constants.DefaultDebounce,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start performs the first-load reconciliation, then registers the store
// hooks. The pull is one-shot: if the remote row exists it overwrites the
// local primary unconditionally (the device is catching up, not
// authoritative); if it is absent and a non-install local record exists,
// that record is pushed once, immediately. Pull failures leave local state
// untouched.
func (e *Engine) Start(ctx context.Context) {
	payload, found, err := e.remote.FetchHabitData(ctx, e.userID)
	switch {
	case err != nil:
		e.report(Result{Op: OpPull, Err: err})
	case found:
		if err := e.store.ReplaceFromRemote(payload); err != nil {
			e.report(Result{Op: OpPull, Err: err})
		} else {
			e.report(Result{Op: OpPull, OK: true})
		}
	default:
		// Snapshot, not Load: this read must not consume the one-shot
		// restore prompt a corrupt primary may have armed.
		local := e.store.Snapshot()
		if local.State != models.StateInstall {
			e.pushHabit(mustMarshal(local))
		}
	}

	if e.convo != nil {
		if payload, found, err := e.remote.FetchConversation(ctx, e.userID); err != nil {
			e.report(Result{Op: OpPull, Err: err})
		} else if found {
			if err := e.convo.ReplaceFromRemote(payload); err != nil {
				e.report(Result{Op: OpPull, Err: err})
			}
		}
	}

	// Hook registration takes the store locks, so it happens outside the
	// engine lock to keep lock ordering one-directional.
	unregSave := e.store.OnSave(e.scheduleHabitPush)
	unregClear := e.store.OnClear(e.clearRemote)
	var unregConvo func()
	if e.convo != nil {
		unregConvo = e.convo.OnSave(e.scheduleConvoPush)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = false
	e.unregisterSave = unregSave
	e.unregisterClear = unregClear
	e.unregisterConvo = unregConvo
}

// Flush pushes any debounced payloads immediately instead of waiting for
// their timers. Short-lived sessions call this before Stop so the last
// mutation of the session is not lost with the process.
func (e *Engine) Flush() {
	e.mu.Lock()
	if e.habitTimer != nil {
		e.habitTimer.Stop()
		e.habitTimer = nil
	}
	if e.convoTimer != nil {
		e.convoTimer.Stop()
		e.convoTimer = nil
	}
	habitPayload := e.habitPending
	convoPayload := e.convoPending
	e.habitPending = nil
	e.convoPending = nil
	e.mu.Unlock()

	if habitPayload != nil {
		e.pushHabit(habitPayload)
	}
	if convoPayload != nil {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := e.remote.UpsertConversation(ctx, e.userID, convoPayload); err != nil {
			e.report(Result{Op: OpPushConvo, Err: err})
		} else {
			e.report(Result{Op: OpPushConvo, OK: true})
		}
	}
}

// Stop deregisters the hooks and cancels any pending debounce timers. An
// in-flight push is allowed to land; no new pushes are scheduled after
// Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	unregs := []func(){e.unregisterSave, e.unregisterClear, e.unregisterConvo}
	e.unregisterSave, e.unregisterClear, e.unregisterConvo = nil, nil, nil
	if e.habitTimer != nil {
		e.habitTimer.Stop()
		e.habitTimer = nil
	}
	if e.convoTimer != nil {
		e.convoTimer.Stop()
		e.convoTimer = nil
	}
	e.habitPending = nil
	e.convoPending = nil
	e.mu.Unlock()

	// Deregistration takes the store locks; run it outside the engine lock.
	for _, unreg := range unregs {
		if unreg != nil {
			unreg()
		}
	}
}

// scheduleHabitPush coalesces local mutations: each save within the quiet
// window replaces the pending snapshot and resets the timer, so only the
// final state of a burst is ever transmitted.
func (e *Engine) scheduleHabitPush(snapshot models.HabitData) {
	payload := mustMarshal(snapshot)
	if payload == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.habitPending = payload
	if e.habitTimer == nil {
		e.habitTimer = time.AfterFunc(e.debounce, e.flushHabit)
	} else {
		e.habitTimer.Reset(e.debounce)
	}
}

func (e *Engine) flushHabit() {
	e.mu.Lock()
	payload := e.habitPending
	e.habitPending = nil
	e.habitTimer = nil
	stopped := e.stopped
	e.mu.Unlock()

	if stopped || payload == nil {
		return
	}
	e.pushHabit(payload)
}

func (e *Engine) pushHabit(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := e.remote.UpsertHabitData(ctx, e.userID, payload); err != nil {
		// Not retried automatically: the next natural mutation carries the
		// latest state forward.
		e.report(Result{Op: OpPush, Err: err})
		return
	}
	e.report(Result{Op: OpPush, OK: true})
}

func (e *Engine) scheduleConvoPush(state models.ConversationState) {
	payload, err := json.Marshal(state)
	if err != nil {
		logger.Error("Failed to serialize conversation state for sync", "error", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.convoPending = payload
	if e.convoTimer == nil {
		e.convoTimer = time.AfterFunc(e.debounce, e.flushConvo)
	} else {
		e.convoTimer.Reset(e.debounce)
	}
}

func (e *Engine) flushConvo() {
	e.mu.Lock()
	payload := e.convoPending
	e.convoPending = nil
	e.convoTimer = nil
	stopped := e.stopped
	e.mu.Unlock()

	if stopped || payload == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := e.remote.UpsertConversation(ctx, e.userID, payload); err != nil {
		e.report(Result{Op: OpPushConvo, Err: err})
		return
	}
	e.report(Result{Op: OpPushConvo, OK: true})
}

// clearRemote deletes the remote rows after a full local reset. Any pending
// debounced push is cancelled first so stale data cannot resurrect the row.
func (e *Engine) clearRemote() {
	e.mu.Lock()
	if e.habitTimer != nil {
		e.habitTimer.Stop()
		e.habitTimer = nil
	}
	e.habitPending = nil
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := e.remote.DeleteHabitData(ctx, e.userID); err != nil {
		e.report(Result{Op: OpDelete, Err: err})
	} else {
		e.report(Result{Op: OpDelete, OK: true})
	}
	if e.convo != nil {
		if err := e.remote.DeleteConversation(ctx, e.userID); err != nil {
			e.report(Result{Op: OpDeleteConvo, Err: err})
		} else {
			e.report(Result{Op: OpDeleteConvo, OK: true})
		}
	}
}

func (e *Engine) report(r Result) {
	if r.Err != nil {
		logger.Warn("Sync operation failed", "op", r.Op, "error", r.Err)
	} else {
		logger.Debug("Sync operation completed", "op", r.Op)
	}
	if e.onResult != nil {
		e.onResult(r)
	}
}

func mustMarshal(d models.HabitData) []byte {
	payload, err := json.Marshal(d)
	if err != nil {
		logger.Error("Failed to serialize habit data for sync", "error", err)
		return nil
	}
	return payload
}
