package compiler

import "robot-pipeline/internal/models"

type headingPair struct {
	prev models.Heading
	next models.Heading
}

// turnArcs (이전 방향, 새 방향) -> [Δy>0 일 때, Δy<0 일 때]
var turnArcs = map[headingPair][2]models.Arc{
	{models.North, models.East}: {models.ForwardRight, models.BackwardLeft},
	{models.North, models.West}: {models.ForwardLeft, models.BackwardRight},
	{models.East, models.North}: {models.ForwardLeft, models.BackwardRight},
	{models.East, models.South}: {models.BackwardLeft, models.ForwardRight},
	{models.South, models.East}: {models.BackwardRight, models.ForwardLeft},
	{models.South, models.West}: {models.BackwardLeft, models.ForwardRight},
	{models.West, models.North}: {models.ForwardRight, models.BackwardLeft},
	{models.West, models.South}: {models.BackwardRight, models.ForwardLeft},
}

type axis int

const (
	axisX axis = iota
	axisY
)

type lateralRule struct {
	axis axis
	// obstacle 좌표가 로봇보다 클 때의 결과. 작으면 반대
	greater models.Lateral
}

// lateralRules (장애물 면, 로봇 방향). 마주보는 네 조합만 존재
var lateralRules = map[headingPair]lateralRule{
	{models.West, models.East}:   {axisY, models.LateralLeft},
	{models.East, models.West}:   {axisY, models.LateralRight},
	{models.North, models.South}: {axisX, models.LateralLeft},
	{models.South, models.North}: {axisX, models.LateralRight},
}

func mirror(l models.Lateral) models.Lateral {
	switch l {
	case models.LateralLeft:
		return models.LateralRight
	case models.LateralRight:
		return models.LateralLeft
	default:
		return l
	}
}

// lateralFor 장애물 대비 로봇의 좌우 위치 힌트 계산
func lateralFor(obs models.Obstacle, robot models.WaypointState) models.Lateral {
	rule, ok := lateralRules[headingPair{obs.Heading, robot.Heading}]
	if !ok {
		return models.LateralNone
	}

	obsCoord, robotCoord := obs.X, robot.X
	if rule.axis == axisY {
		obsCoord, robotCoord = obs.Y, robot.Y
	}

	switch {
	case obsCoord == robotCoord:
		return models.LateralCenter
	case obsCoord > robotCoord:
		return rule.greater
	default:
		return mirror(rule.greater)
	}
}
