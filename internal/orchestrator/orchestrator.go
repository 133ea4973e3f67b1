// Package orchestrator executes compiled command streams against the robot's
// motor, vision and control links.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"robot-pipeline/internal/common/constants"
	"robot-pipeline/internal/interfaces"
	"robot-pipeline/internal/link"
	"robot-pipeline/internal/messaging"
	"robot-pipeline/internal/models"
)

const motorRetryDelay = 500 * time.Millisecond

// Links 오케스트레이터가 직접 다루는 링크
type Links struct {
	Motor   link.Link
	Control link.Link
}

// Orchestrator 네 역할(디스패처, 모터 리스너, 제어 리스너, 복구 감독자)과 공유 상태
type Orchestrator struct {
	motor    link.Link
	control  link.Link
	vision   interfaces.Vision
	planner  interfaces.Planner
	config   interfaces.ConfigProvider
	logger   interfaces.Logger
	ids      interfaces.UniqueIDGenerator
	observer interfaces.TelemetryObserver

	state    *RunState
	machine  *RunMachine
	router   *messaging.Router
	outbound *Queue[models.ControlMessage]

	// 리셋 명령 후 첫 ACK를 기다리는 시작 요청
	resetWaiter atomic.Pointer[chan struct{}]
	startMu     sync.Mutex
	acks        atomic.Int64
	restarts    atomic.Int64
}

// New 새 오케스트레이터 생성. observer는 nil 가능
func New(
	links Links,
	vision interfaces.Vision,
	planner interfaces.Planner,
	config interfaces.ConfigProvider,
	logger interfaces.Logger,
	ids interfaces.UniqueIDGenerator,
	observer interfaces.TelemetryObserver,
) *Orchestrator {
	logger.Infof("🏗️ CREATING Orchestrator")

	o := &Orchestrator{
		motor:    links.Motor,
		control:  links.Control,
		vision:   vision,
		planner:  planner,
		config:   config,
		logger:   logger,
		ids:      ids,
		observer: observer,
		state:    NewRunState(config.GetInitialPose()),
		machine:  NewRunMachine(logger),
		outbound: NewQueue[models.ControlMessage](),
	}
	o.router = messaging.NewRouter(o, o)

	logger.Infof("✅ Orchestrator CREATED")
	return o
}

// Run 링크를 연결하고 모든 역할을 실행. ctx가 취소되면 nil 반환
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.motor.Connect(ctx); err != nil {
		return fmt.Errorf("motor link: %w", err)
	}
	defer o.motor.Disconnect()

	if err := o.control.Connect(ctx); err != nil {
		return fmt.Errorf("control link: %w", err)
	}
	defer o.control.Disconnect()

	o.Notify(models.NewGeneral(constants.MsgConnected))
	if err := o.planner.Status(ctx); err != nil {
		o.logger.Warnf("⚠️ Planner service not reachable at startup: %v", err)
	}
	o.Notify(models.NewGeneral(constants.MsgReady))
	o.Notify(models.NewMode(constants.ModePath))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.dispatch(gctx) })
	g.Go(func() error { return o.listenMotor(gctx) })
	g.Go(func() error { return o.supervise(gctx) })
	g.Go(func() error {
		// 블록된 모터 Receive를 깨움
		<-gctx.Done()
		o.motor.Disconnect()
		return nil
	})

	o.logger.Infof("✅ Orchestrator running")
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Notify 제어 링크로 보낼 메시지를 큐에 넣고 텔레메트리로 복제
func (o *Orchestrator) Notify(msg models.ControlMessage) {
	o.outbound.Push(msg)
	if o.observer != nil {
		o.observer.Observe(o.state.RunID(), msg)
	}
}

// Snapshot 현재 실행 상태 복사본
func (o *Orchestrator) Snapshot() Snapshot {
	snap := o.state.Snapshot()
	snap.State = o.machine.Current()
	snap.Restarts = o.restarts.Load()
	return snap
}

func (o *Orchestrator) Obstacles() []models.Obstacle {
	return o.state.Obstacles()
}

// Restarts 제어 링크 복구 횟수
func (o *Orchestrator) Restarts() int64 {
	return o.restarts.Load()
}

func (o *Orchestrator) State() *RunState {
	return o.state
}

// abortRun 게이트를 닫고 큐를 비운 뒤 idle로 되돌림
func (o *Orchestrator) abortRun(ctx context.Context, reason string, cause error) {
	o.logger.Errorf("❌ Run aborted: %s (%v)", reason, cause)

	o.state.Gate.Close()
	o.state.ClearQueues()
	if err := o.machine.Fire(ctx, EventAbort); err != nil {
		o.logger.Warnf("Run machine abort failed: %v", err)
	}
	o.Notify(models.NewError(reason))
}

// fire 실패해도 실행을 막지 않는 상태 전이
func (o *Orchestrator) fire(ctx context.Context, event string) {
	if err := o.machine.Fire(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Warnf("Run machine rejected %s in state %s: %v", event, o.machine.Current(), err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
