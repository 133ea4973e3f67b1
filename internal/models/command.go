package models

import (
	"fmt"
	"strconv"
	"strings"
)

// StepQuantum 한 쌍의 waypoint 사이 직진 거리
const StepQuantum = 10

// MaxMagnitude 3자리 와이어 필드의 최대값
const MaxMagnitude = 999

// turnAngle 회전 명령의 고정 각도 필드
const turnAngle = "090"

// CommandKind 명령 종류
type CommandKind int

const (
	KindStraight CommandKind = iota
	KindTurn
	KindCapture
	KindFinish
)

func (k CommandKind) String() string {
	switch k {
	case KindStraight:
		return "straight"
	case KindTurn:
		return "turn"
	case KindCapture:
		return "capture"
	case KindFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// Sign 직진 방향
type Sign int

const (
	Forward Sign = iota
	Backward
)

// Arc 90도 회전 호
type Arc int

const (
	ForwardRight Arc = iota
	ForwardLeft
	BackwardRight
	BackwardLeft
)

var arcCodes = map[Arc]string{
	ForwardRight:  "RF",
	ForwardLeft:   "LF",
	BackwardRight: "RB",
	BackwardLeft:  "LB",
}

// Lateral 촬영 시 장애물의 좌우 위치 힌트
type Lateral int

const (
	LateralNone Lateral = iota
	LateralLeft
	LateralCenter
	LateralRight
)

var lateralCodes = map[Lateral]string{
	LateralLeft:   "L",
	LateralCenter: "C",
	LateralRight:  "R",
}

func (l Lateral) String() string {
	if code, ok := lateralCodes[l]; ok {
		return code
	}
	return ""
}

// Command 모터/비전으로 보낼 단일 동작
type Command struct {
	Kind       CommandKind
	Sign       Sign
	Magnitude  int
	Arc        Arc
	ObstacleID int
	Lateral    Lateral
}

// Straight 직진 명령 생성
func Straight(sign Sign, magnitude int) Command {
	return Command{Kind: KindStraight, Sign: sign, Magnitude: magnitude}
}

// Turn 회전 명령 생성
func Turn(arc Arc) Command {
	return Command{Kind: KindTurn, Arc: arc}
}

// Capture 촬영 명령 생성
func Capture(obstacleID int, lateral Lateral) Command {
	return Command{Kind: KindCapture, ObstacleID: obstacleID, Lateral: lateral}
}

// Finish 종료 명령 생성
func Finish() Command {
	return Command{Kind: KindFinish}
}

// IsMotion 모터 ACK가 필요한 명령인지 확인
func (c Command) IsMotion() bool {
	return c.Kind == KindStraight || c.Kind == KindTurn
}

// String 와이어 코드로 직렬화
func (c Command) String() string {
	switch c.Kind {
	case KindStraight:
		prefix := "SF"
		if c.Sign == Backward {
			prefix = "SB"
		}
		return fmt.Sprintf("%s%03d", prefix, c.Magnitude)
	case KindTurn:
		return arcCodes[c.Arc] + turnAngle
	case KindCapture:
		if c.Lateral == LateralNone {
			return fmt.Sprintf("CAP%d", c.ObstacleID)
		}
		return fmt.Sprintf("CAP%d_%s", c.ObstacleID, c.Lateral)
	case KindFinish:
		return "FIN"
	default:
		return ""
	}
}

// ParseCommand 와이어 코드를 Command로 변환
func ParseCommand(code string) (Command, error) {
	code = strings.TrimSpace(code)

	switch {
	case code == "FIN":
		return Finish(), nil

	case strings.HasPrefix(code, "CAP"):
		return parseCapture(code)

	case len(code) == 5 && (strings.HasPrefix(code, "SF") || strings.HasPrefix(code, "SB")):
		magnitude, err := strconv.Atoi(code[2:])
		if err != nil || magnitude < 0 {
			return Command{}, fmt.Errorf("%w: bad magnitude in %q", ErrProtocol, code)
		}
		sign := Forward
		if code[1] == 'B' {
			sign = Backward
		}
		return Straight(sign, magnitude), nil

	case len(code) == 5:
		for arc, prefix := range arcCodes {
			if code[:2] == prefix {
				if code[2:] != turnAngle {
					return Command{}, fmt.Errorf("%w: unsupported turn angle in %q", ErrProtocol, code)
				}
				return Turn(arc), nil
			}
		}
	}

	return Command{}, fmt.Errorf("%w: unknown command %q", ErrProtocol, code)
}

func parseCapture(code string) (Command, error) {
	body := strings.TrimPrefix(code, "CAP")
	idPart, lateralPart, hasLateral := strings.Cut(body, "_")

	id, err := strconv.Atoi(idPart)
	if err != nil {
		return Command{}, fmt.Errorf("%w: bad obstacle id in %q", ErrProtocol, code)
	}
	if !hasLateral {
		return Capture(id, LateralNone), nil
	}

	for lateral, c := range lateralCodes {
		if c == lateralPart {
			return Capture(id, lateral), nil
		}
	}
	return Command{}, fmt.Errorf("%w: bad lateral in %q", ErrProtocol, code)
}
