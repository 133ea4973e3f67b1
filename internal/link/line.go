package link

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"robot-pipeline/internal/utils"
)

// Dialer 연결마다 새 스트림을 여는 함수
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// LineLink 개행 단위로 메시지를 읽는 Link 구현
type LineLink struct {
	name       string
	dial       Dialer
	terminator string

	mu     sync.Mutex
	conn   io.ReadWriteCloser
	reader *bufio.Reader

	sendMu sync.Mutex
}

// Option LineLink 옵션
type Option func(*LineLink)

// WithTerminator 송신 메시지 뒤에 붙일 구분자 (모터 컨트롤러는 고정 길이라 "")
func WithTerminator(terminator string) Option {
	return func(l *LineLink) {
		l.terminator = terminator
	}
}

// NewLineLink 새 라인 링크 생성
func NewLineLink(name string, dial Dialer, opts ...Option) *LineLink {
	l := &LineLink{
		name:       name,
		dial:       dial,
		terminator: "\n",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LineLink) Name() string {
	return l.name
}

// Connect 스트림을 열고 이전 연결이 있으면 닫음
func (l *LineLink) Connect(ctx context.Context) error {
	conn, err := l.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", ErrTransport, l.name, err)
	}

	l.mu.Lock()
	old := l.conn
	l.conn = conn
	l.reader = bufio.NewReader(conn)
	l.mu.Unlock()

	if old != nil {
		old.Close()
	}

	utils.Logger.Infof("✅ Link %s connected", l.name)
	return nil
}

// Disconnect 스트림을 닫음. 블록된 Receive는 ErrClosed로 반환
func (l *LineLink) Disconnect() error {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.reader = nil
	l.mu.Unlock()

	if conn == nil {
		return nil
	}

	utils.Logger.Infof("Link %s disconnected", l.name)
	return conn.Close()
}

func (l *LineLink) current() (io.ReadWriteCloser, *bufio.Reader) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn, l.reader
}

func (l *LineLink) Send(text string) error {
	conn, _ := l.current()
	if conn == nil {
		return ErrClosed
	}

	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	if _, err := io.WriteString(conn, text+l.terminator); err != nil {
		return fmt.Errorf("%w: send on %s: %v", ErrTransport, l.name, err)
	}

	utils.Logger.Debugf("📤 %s SENDING: %s", l.name, text)
	return nil
}

func (l *LineLink) Receive() (string, error) {
	conn, reader := l.current()
	if conn == nil {
		return "", ErrClosed
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !l.isCurrent(conn) {
				return "", ErrClosed
			}
			return "", fmt.Errorf("%w: receive on %s: %v", ErrTransport, l.name, err)
		}

		if trimmed := strings.TrimSpace(line); trimmed != "" {
			utils.Logger.Debugf("📥 %s RECEIVED: %s", l.name, trimmed)
			return trimmed, nil
		}
	}
}

// isCurrent conn이 아직 활성 연결인지 확인 (Disconnect 이후면 false)
func (l *LineLink) isCurrent(conn io.ReadWriteCloser) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn == conn
}
