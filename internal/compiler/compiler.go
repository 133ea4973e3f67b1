// Package compiler turns planner waypoints into the motor/capture command stream.
package compiler

import (
	"errors"
	"fmt"

	"robot-pipeline/internal/models"
)

var (
	ErrInvalidInput      = errors.New("invalid compiler input")
	ErrInvalidTransition = errors.New("invalid heading transition")
)

// Result 컴파일 결과. Checkpoints는 압축 전 이동 명령 하나당 하나
type Result struct {
	Commands    []models.Command
	Checkpoints []models.WaypointState
}

// Compile waypoint 목록과 장애물 정보를 압축된 명령 목록으로 변환
func Compile(states []models.WaypointState, obstacles []models.Obstacle) (Result, error) {
	if len(states) < 2 {
		return Result{}, fmt.Errorf("%w: need at least 2 states, got %d", ErrInvalidInput, len(states))
	}

	table := make(map[int]models.Obstacle, len(obstacles))
	for _, obs := range obstacles {
		table[obs.ID] = obs
	}

	for i, s := range states {
		if !s.Heading.Valid() {
			return Result{}, fmt.Errorf("%w: state %d has invalid heading %d", ErrInvalidInput, i, int(s.Heading))
		}
		if s.TargetObstacleID != nil {
			if _, ok := table[*s.TargetObstacleID]; !ok {
				return Result{}, fmt.Errorf("%w: state %d targets unknown obstacle %d", ErrInvalidInput, i, *s.TargetObstacleID)
			}
		}
	}

	var commands []models.Command
	var checkpoints []models.WaypointState

	for i := 1; i < len(states); i++ {
		prev, cur := states[i-1], states[i]

		move, err := moveBetween(prev, cur)
		if err != nil {
			return Result{}, fmt.Errorf("pair %d %s -> %s: %w", i, prev, cur, err)
		}
		commands = append(commands, move)
		checkpoints = append(checkpoints, cur)

		if cur.TargetObstacleID != nil {
			obs := table[*cur.TargetObstacleID]
			commands = append(commands, models.Capture(obs.ID, lateralFor(obs, cur)))
		}
	}
	commands = append(commands, models.Finish())

	commands = Compact(commands)
	for _, c := range commands {
		if c.Kind == models.KindStraight && c.Magnitude > models.MaxMagnitude {
			return Result{}, fmt.Errorf("%w: straight magnitude %d exceeds %d", ErrInvalidInput, c.Magnitude, models.MaxMagnitude)
		}
	}

	return Result{Commands: commands, Checkpoints: checkpoints}, nil
}

func moveBetween(prev, cur models.WaypointState) (models.Command, error) {
	if prev.Heading == cur.Heading {
		return models.Straight(straightSign(prev, cur), models.StepQuantum), nil
	}

	arcs, ok := turnArcs[headingPair{prev.Heading, cur.Heading}]
	if !ok {
		return models.Command{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, prev.Heading, cur.Heading)
	}

	dy := cur.Y - prev.Y
	switch {
	case dy > 0:
		return models.Turn(arcs[0]), nil
	case dy < 0:
		return models.Turn(arcs[1]), nil
	default:
		return models.Command{}, fmt.Errorf("%w: turn %s to %s without y displacement", ErrInvalidTransition, prev.Heading, cur.Heading)
	}
}

// straightSign 방향축 양의 진행이면 Forward, 나머지는 Backward
func straightSign(prev, cur models.WaypointState) models.Sign {
	switch cur.Heading {
	case models.East:
		if cur.X > prev.X {
			return models.Forward
		}
	case models.North:
		if cur.Y > prev.Y {
			return models.Forward
		}
	case models.West:
		if cur.X < prev.X {
			return models.Forward
		}
	case models.South:
		if cur.Y < prev.Y {
			return models.Forward
		}
	}
	return models.Backward
}

// Compact 같은 방향의 연속 직진 명령을 하나로 합침
func Compact(commands []models.Command) []models.Command {
	out := make([]models.Command, 0, len(commands))
	for _, c := range commands {
		if n := len(out); n > 0 && c.Kind == models.KindStraight {
			last := &out[n-1]
			if last.Kind == models.KindStraight && last.Sign == c.Sign {
				last.Magnitude += c.Magnitude
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// AlignCheckpoints 단위 checkpoint를 압축된 이동 명령 하나당 하나로 투영.
// 각 이동 명령 실행 후의 자세를 반환
func AlignCheckpoints(commands []models.Command, unit []models.WaypointState) ([]models.WaypointState, error) {
	aligned := make([]models.WaypointState, 0, len(commands))
	consumed := 0

	for _, c := range commands {
		if !c.IsMotion() {
			continue
		}

		steps := 1
		if c.Kind == models.KindStraight && c.Magnitude > models.StepQuantum {
			steps = c.Magnitude / models.StepQuantum
		}
		consumed += steps
		if consumed > len(unit) {
			return nil, fmt.Errorf("%w: commands need %d checkpoints, have %d", ErrInvalidInput, consumed, len(unit))
		}
		aligned = append(aligned, unit[consumed-1])
	}

	if consumed != len(unit) {
		return nil, fmt.Errorf("%w: %d checkpoints left unaligned", ErrInvalidInput, len(unit)-consumed)
	}
	return aligned, nil
}
