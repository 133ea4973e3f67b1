package telemetry

import (
	"sync"
	"time"
)

// retainedHeartbeat 값이 같아도 이 간격이 지나면 다시 발행
const retainedHeartbeat = 10 * time.Second

// retainedEntry 토픽별 마지막 retained 값
type retainedEntry struct {
	value    string
	lastSent time.Time
	sent     int
}

// retainedCache 같은 retained 값이 연속으로 발행되는 것을 막음
type retainedCache struct {
	mu        sync.Mutex
	entries   map[string]*retainedEntry
	heartbeat time.Duration
	now       func() time.Time
}

func newRetainedCache(heartbeat time.Duration) *retainedCache {
	return &retainedCache{
		entries:   make(map[string]*retainedEntry),
		heartbeat: heartbeat,
		now:       time.Now,
	}
}

// ShouldSend 값이 바뀌었거나 하트비트가 지났으면 true
func (c *retainedCache) ShouldSend(topic, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[topic]
	if !exists {
		return true
	}
	if entry.value != value {
		return true
	}
	return c.now().Sub(entry.lastSent) > c.heartbeat
}

// Mark 발행 성공 후 기록
func (c *retainedCache) Mark(topic, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[topic]; exists {
		entry.value = value
		entry.lastSent = c.now()
		entry.sent++
		return
	}
	c.entries[topic] = &retainedEntry{value: value, lastSent: c.now(), sent: 1}
}

// Sent 토픽별 발행 횟수
func (c *retainedCache) Sent(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[topic]; exists {
		return entry.sent
	}
	return 0
}
