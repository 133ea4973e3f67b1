package models

import (
	"encoding/json"
	"fmt"
)

// noTarget 플래너가 사진 대상이 없을 때 s 필드에 넣는 값
const noTarget = -1

// WaypointState 플래너가 생성한 로봇 자세. TargetObstacleID가 있으면 이 자세에서 촬영
type WaypointState struct {
	X                int
	Y                int
	Heading          Heading
	TargetObstacleID *int
}

type waypointWire struct {
	X int  `json:"x"`
	Y int  `json:"y"`
	D int  `json:"d"`
	S *int `json:"s,omitempty"`
}

// NewWaypoint 촬영 대상 없는 자세 생성
func NewWaypoint(x, y int, h Heading) WaypointState {
	return WaypointState{X: x, Y: y, Heading: h}
}

// WithTarget 촬영 대상 장애물 id를 붙인 복사본 반환
func (w WaypointState) WithTarget(obstacleID int) WaypointState {
	id := obstacleID
	w.TargetObstacleID = &id
	return w
}

// Equal 두 자세가 같은지 비교 (대상 id 포함)
func (w WaypointState) Equal(o WaypointState) bool {
	if w.X != o.X || w.Y != o.Y || w.Heading != o.Heading {
		return false
	}
	if w.TargetObstacleID == nil || o.TargetObstacleID == nil {
		return w.TargetObstacleID == nil && o.TargetObstacleID == nil
	}
	return *w.TargetObstacleID == *o.TargetObstacleID
}

// Location 위치 텔레메트리 페이로드로 변환
func (w WaypointState) Location() LocationPayload {
	return LocationPayload{X: w.X, Y: w.Y, D: int(w.Heading)}
}

func (w WaypointState) String() string {
	if w.TargetObstacleID != nil {
		return fmt.Sprintf("(%d,%d,%s,%d)", w.X, w.Y, w.Heading, *w.TargetObstacleID)
	}
	return fmt.Sprintf("(%d,%d,%s)", w.X, w.Y, w.Heading)
}

func (w WaypointState) MarshalJSON() ([]byte, error) {
	s := noTarget
	if w.TargetObstacleID != nil {
		s = *w.TargetObstacleID
	}
	return json.Marshal(waypointWire{X: w.X, Y: w.Y, D: int(w.Heading), S: &s})
}

func (w *WaypointState) UnmarshalJSON(data []byte) error {
	var wire waypointWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	heading, err := ParseHeading(wire.D)
	if err != nil {
		return err
	}

	*w = WaypointState{X: wire.X, Y: wire.Y, Heading: heading}
	if wire.S != nil && *wire.S != noTarget {
		id := *wire.S
		w.TargetObstacleID = &id
	}
	return nil
}
