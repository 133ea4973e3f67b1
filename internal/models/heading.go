package models

import "fmt"

// Heading 로봇/장애물 방향. 값은 플래너와 태블릿 프로토콜의 d 필드와 동일
type Heading int

const (
	North Heading = 0
	East  Heading = 2
	South Heading = 4
	West  Heading = 6
)

func (h Heading) String() string {
	switch h {
	case North:
		return "North"
	case East:
		return "East"
	case South:
		return "South"
	case West:
		return "West"
	default:
		return fmt.Sprintf("Heading(%d)", int(h))
	}
}

// Valid 네 방향 중 하나인지 확인
func (h Heading) Valid() bool {
	switch h {
	case North, East, South, West:
		return true
	}
	return false
}

// ParseHeading 와이어 값을 Heading으로 변환
func ParseHeading(v int) (Heading, error) {
	h := Heading(v)
	if !h.Valid() {
		return 0, fmt.Errorf("%w: invalid heading %d", ErrProtocol, v)
	}
	return h, nil
}
