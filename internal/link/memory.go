package link

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLink 프로세스 내부 Link. 테스트와 시뮬레이션용
type MemoryLink struct {
	name string

	mu       sync.Mutex
	in       chan string
	peer     *MemoryLink
	closed   chan struct{}
	fail     error
	connects int
}

// Pipe 서로 연결된 두 MemoryLink 생성. 둘 다 연결된 상태로 반환
func Pipe(aName, bName string) (*MemoryLink, *MemoryLink) {
	a := &MemoryLink{name: aName, in: make(chan string, 64), closed: make(chan struct{})}
	b := &MemoryLink{name: bName, in: make(chan string, 64), closed: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

func (m *MemoryLink) Name() string {
	return m.name
}

// Connect 끊긴 링크를 다시 열고 주입된 실패를 지움
func (m *MemoryLink) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closed:
		m.closed = make(chan struct{})
	default:
	}
	m.fail = nil
	m.connects++
	return nil
}

func (m *MemoryLink) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
	return nil
}

// Fail 대기 중인 Receive와 이후 Send를 err로 실패시킴 (전송 오류 주입)
func (m *MemoryLink) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fail = err
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}

// Connects Connect 호출 횟수
func (m *MemoryLink) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

func (m *MemoryLink) state() (chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed, m.fail
}

func (m *MemoryLink) Send(text string) error {
	closed, fail := m.state()
	if fail != nil {
		return fmt.Errorf("%w: %v", ErrTransport, fail)
	}
	select {
	case <-closed:
		return ErrClosed
	default:
	}

	select {
	case m.peer.in <- text:
		return nil
	case <-closed:
		return ErrClosed
	}
}

func (m *MemoryLink) Receive() (string, error) {
	closed, _ := m.state()

	select {
	case text := <-m.in:
		return text, nil
	case <-closed:
		_, fail := m.state()
		if fail != nil {
			return "", fmt.Errorf("%w: %v", ErrTransport, fail)
		}
		return "", ErrClosed
	}
}

