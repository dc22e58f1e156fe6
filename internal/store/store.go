// Package store holds the client-side entity caches. Each store is a flat
// keyed cache filled by fetches and mutation responses and cleared on logout.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/logger"
	"github.com/chat-analyzer/gateway/pkg/metrics"
)

var (
	ErrInvalidFileType  = errors.New("Please select a .csv or .json file")
	ErrMissingAgentID   = errors.New("Agent ID missing in response")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrUnknownAgent     = errors.New("agent not found")
)

// Gate reports whether fetches may reach the backend.
type Gate interface {
	Authenticated() bool
}

// GateFunc adapts a function to Gate.
type GateFunc func() bool

// Authenticated implements Gate.
func (f GateFunc) Authenticated() bool { return f() }

type openGate struct{}

func (openGate) Authenticated() bool { return true }

// Notifier receives cache change events.
type Notifier interface {
	Notify(ctx context.Context, event model.StoreEvent)
}

// NopNotifier drops every event.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, model.StoreEvent) {}

// Deps are the collaborators shared by every store.
type Deps struct {
	Client   transport.Requester
	Gate     Gate
	Notifier Notifier
	Logger   *logger.Logger
}

// Latch allows one latched fetch per store. A fetch that cannot acquire it is
// skipped rather than queued.
type Latch struct {
	held atomic.Bool
}

// TryAcquire takes the latch; it returns false if it is already held.
func (l *Latch) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the latch.
func (l *Latch) Release() {
	l.held.Store(false)
}

// Held reports whether a latched fetch is in flight.
func (l *Latch) Held() bool {
	return l.held.Load()
}

// Entity is anything cached by id.
type Entity interface {
	EntityID() string
}

// MergeByID unions current and incoming by id. A later item replaces an
// earlier one with the same id but keeps the earlier position. Items with an
// empty id are dropped.
func MergeByID[T Entity](current, incoming []T) []T {
	index := make(map[string]int, len(current)+len(incoming))
	merged := make([]T, 0, len(current)+len(incoming))
	for _, list := range [][]T{current, incoming} {
		for _, item := range list {
			id := item.EntityID()
			if id == "" {
				continue
			}
			if i, ok := index[id]; ok {
				merged[i] = item
				continue
			}
			index[id] = len(merged)
			merged = append(merged, item)
		}
	}
	return merged
}

// base carries the latch, error and loading state common to all stores.
type base struct {
	name     string
	client   transport.Requester
	gate     Gate
	notifier Notifier
	logger   *logger.Logger

	latch      Latch
	refreshing atomic.Int32

	errMu sync.RWMutex
	err   string
}

func (b *base) init(name string, deps Deps) {
	b.name = name
	b.client = deps.Client
	b.gate = deps.Gate
	b.notifier = deps.Notifier
	b.logger = logger.OrGlobal(deps.Logger).Named(name)
	if b.gate == nil {
		b.gate = openGate{}
	}
	if b.notifier == nil {
		b.notifier = NopNotifier{}
	}
}

// Loading reports whether a fetch or refresh is in flight.
func (b *base) Loading() bool {
	return b.latch.Held() || b.refreshing.Load() > 0
}

// Err returns the last recorded error message, or "".
func (b *base) Err() string {
	b.errMu.RLock()
	defer b.errMu.RUnlock()
	return b.err
}

func (b *base) setErr(msg string) {
	b.errMu.Lock()
	b.err = msg
	b.errMu.Unlock()
}

// allowed checks the auth gate and records a denied fetch.
func (b *base) allowed() bool {
	if b.gate.Authenticated() {
		return true
	}
	metrics.RecordFetch(b.name, metrics.OutcomeDenied)
	return false
}

// begin acquires the latch and clears the error. It returns false when the
// fetch must be skipped because a fetch or refresh is already loading.
func (b *base) begin() bool {
	if b.refreshing.Load() > 0 || !b.latch.TryAcquire() {
		metrics.RecordFetch(b.name, metrics.OutcomeSkipped)
		return false
	}
	b.setErr("")
	return true
}

// beginRefresh marks a refresh in flight without consulting the latch.
func (b *base) beginRefresh() func() {
	b.refreshing.Add(1)
	b.setErr("")
	return func() { b.refreshing.Add(-1) }
}

// fail records err as the store error message.
func (b *base) fail(op string, err error, fallback string) {
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	b.setErr(msg)
	metrics.RecordFetch(b.name, metrics.OutcomeError)
	b.logger.Warn("Store operation failed",
		zap.String("op", op),
		zap.Error(err),
	)
}

func (b *base) succeeded() {
	metrics.RecordFetch(b.name, metrics.OutcomeSuccess)
}

func (b *base) emit(ctx context.Context, action model.StoreAction, key string, count int) {
	b.notifier.Notify(ctx, model.StoreEvent{
		ID:        uuid.New().String(),
		Store:     b.name,
		Action:    action,
		Key:       key,
		Count:     count,
		CreatedAt: time.Now().UTC(),
	})
}
