package models

import "errors"

// ErrProtocol 알 수 없는 명령 코드 또는 메시지 타입
var ErrProtocol = errors.New("protocol error")
