// Package link provides the bidirectional text links to the motor controller,
// the vision companion and the control tablet.
package link

import (
	"context"
	"errors"
)

var (
	// ErrClosed 링크가 끊겼거나 아직 연결되지 않음
	ErrClosed = errors.New("link closed")
	// ErrTransport 송수신 실패
	ErrTransport = errors.New("link transport error")
)

// Link 텍스트 메시지 단위의 양방향 링크
type Link interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect() error
	Send(text string) error
	// Receive 다음 메시지까지 블록. 끊긴 후에는 ErrClosed
	Receive() (string, error)
}
