package orchestrator

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"robot-pipeline/internal/interfaces"
)

// Run 상태
const (
	StateIdle     = "idle"
	StateGated    = "gated"
	StateRunning  = "running"
	StateFinished = "finished"
)

// Run 이벤트
const (
	EventPlanInstalled = "plan_installed"
	EventStart         = "start"
	EventFinish        = "finish"
	EventAbort         = "abort"
)

// RunMachine 한 번의 실행 생명주기 Idle -> Gated -> Running -> Finished
type RunMachine struct {
	fsm    *fsm.FSM
	logger interfaces.Logger
}

// NewRunMachine idle 상태의 새 상태 머신 생성
func NewRunMachine(logger interfaces.Logger) *RunMachine {
	m := &RunMachine{logger: logger}

	m.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventPlanInstalled, Src: []string{StateIdle, StateGated, StateRunning, StateFinished}, Dst: StateGated},
			{Name: EventStart, Src: []string{StateGated}, Dst: StateRunning},
			{Name: EventFinish, Src: []string{StateRunning}, Dst: StateFinished},
			{Name: EventAbort, Src: []string{StateIdle, StateGated, StateRunning, StateFinished}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				m.logger.Infof("RUN: state changed from %s -> %s (Event: %s)", e.Src, e.Dst, e.Event)
			},
		},
	)
	return m
}

// Fire 이벤트 발생. 같은 상태로의 전이는 오류가 아님
func (m *RunMachine) Fire(ctx context.Context, event string) error {
	err := m.fsm.Event(ctx, event)

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return err
}

func (m *RunMachine) Current() string {
	return m.fsm.Current()
}

func (m *RunMachine) Can(event string) bool {
	return m.fsm.Can(event)
}
