package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
)

// =============================================================================
// Queue
// =============================================================================

// Queue 다중 생산자/소비자 FIFO. 비어 있으면 Pop이 블록
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) Push(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
	q.signal()
}

// PushFront 실패한 항목을 맨 앞에 되돌림
func (q *Queue[T]) PushFront(item T) {
	q.mu.Lock()
	q.items = append([]T{item}, q.items...)
	q.mu.Unlock()
	q.signal()
}

func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return item, true
}

func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if item, ok := q.TryPop(); ok {
			return item, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// Clear 모든 항목 제거, 제거한 개수 반환
func (q *Queue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// =============================================================================
// MotionLock
// =============================================================================

// MotionLock 물리 동작 하나만 진행되도록 하는 이진 락. 획득한 역할과 해제하는 역할이 다를 수 있음
type MotionLock struct {
	ch       chan struct{}
	acquires atomic.Int64
	releases atomic.Int64
}

func NewMotionLock() *MotionLock {
	return &MotionLock{ch: make(chan struct{}, 1)}
}

func (l *MotionLock) Acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		l.acquires.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 이미 풀린 락이면 ErrLockNotHeld
func (l *MotionLock) Release() error {
	select {
	case <-l.ch:
		l.releases.Add(1)
		return nil
	default:
		return ErrLockNotHeld
	}
}

func (l *MotionLock) Held() bool {
	return len(l.ch) == 1
}

// Counts 성공한 획득/해제 횟수
func (l *MotionLock) Counts() (acquires, releases int64) {
	return l.acquires.Load(), l.releases.Load()
}

// =============================================================================
// Latches
// =============================================================================

// latch 레벨 트리거 래치. set 상태 동안 Wait는 즉시 반환
type latch struct {
	mu  sync.Mutex
	set bool
	ch  chan struct{}
}

func newLatch() latch {
	return latch{ch: make(chan struct{})}
}

func (l *latch) raise() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.set {
		return false
	}
	l.set = true
	close(l.ch)
	return true
}

func (l *latch) lower() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.set {
		return false
	}
	l.set = false
	l.ch = make(chan struct{})
	return true
}

func (l *latch) isSet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set
}

func (l *latch) wait(ctx context.Context) error {
	l.mu.Lock()
	ch := l.ch
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Gate 시작 요청이 검증될 때까지 디스패치를 막는 래치
type Gate struct {
	l latch
}

func NewGate() *Gate {
	return &Gate{l: newLatch()}
}

func (g *Gate) Open() {
	g.l.raise()
}

func (g *Gate) Close() {
	g.l.lower()
}

func (g *Gate) IsOpen() bool {
	return g.l.isSet()
}

func (g *Gate) Wait(ctx context.Context) error {
	return g.l.wait(ctx)
}

// Flag 제어 링크 끊김 신호. 명시적으로 Clear할 때까지 유지
type Flag struct {
	l latch
}

func NewFlag() *Flag {
	return &Flag{l: newLatch()}
}

// Set 새로 올라간 경우에만 true
func (f *Flag) Set() bool {
	return f.l.raise()
}

func (f *Flag) Clear() bool {
	return f.l.lower()
}

func (f *Flag) IsSet() bool {
	return f.l.isSet()
}

func (f *Flag) Wait(ctx context.Context) error {
	return f.l.wait(ctx)
}
