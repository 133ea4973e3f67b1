package orchestrator

import "errors"

var (
	// ErrEmptyQueue 명령 큐가 빈 상태에서 시작 요청
	ErrEmptyQueue = errors.New("command queue is empty")
	// ErrLockNotHeld 이미 풀린 motion lock 해제 시도
	ErrLockNotHeld = errors.New("motion lock not held")
	// ErrAlreadyRunning 게이트가 이미 열린 상태에서 시작 요청
	ErrAlreadyRunning = errors.New("run already in progress")
)
