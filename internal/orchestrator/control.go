package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"robot-pipeline/internal/common/constants"
	"robot-pipeline/internal/compiler"
	"robot-pipeline/internal/models"
)

// =============================================================================
// Control Listener / Sender
// =============================================================================

// listenControl 제어 링크 메시지를 라우터로 전달. 전송 오류 시 끊김 신호를 올리고 감독자를 기다림
func (o *Orchestrator) listenControl(ctx context.Context) {
	for {
		line, err := o.control.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.markControlDropped("receive", err)
			<-ctx.Done()
			return
		}

		if err := o.router.Route(ctx, line); err != nil {
			o.handleRouteError(ctx, line, err)
		}
	}
}

// sendControl 송신 큐를 제어 링크로 내보냄. 실패한 메시지는 큐 앞에 되돌림
func (o *Orchestrator) sendControl(ctx context.Context) {
	for {
		msg, err := o.outbound.Pop(ctx)
		if err != nil {
			return
		}

		line, err := msg.Encode()
		if err != nil {
			o.logger.Errorf("❌ Failed to encode %s message: %v", msg.Type, err)
			continue
		}

		if err := o.control.Send(line); err != nil {
			o.outbound.PushFront(msg)
			if ctx.Err() != nil {
				return
			}
			o.markControlDropped("send", err)
			<-ctx.Done()
			return
		}
		o.logger.Debugf("📤 CONTROL SENDING: %s", line)
	}
}

func (o *Orchestrator) markControlDropped(op string, err error) {
	if o.state.ControlDropped.Set() {
		o.logger.Errorf("❌ Control link dropped on %s: %v", op, err)
	}
}

func (o *Orchestrator) handleRouteError(ctx context.Context, line string, err error) {
	switch {
	case ctx.Err() != nil:
	case errors.Is(err, models.ErrProtocol):
		o.abortRun(ctx, constants.MsgProtocolViolation, fmt.Errorf("%q: %w", line, err))
	default:
		// 계획/운영자 오류는 핸들러가 이미 제어 링크로 보고함
		o.logger.Warnf("Control message not applied: %v", err)
	}
}

// =============================================================================
// Handlers
// =============================================================================

// HandleObstacles 장애물을 등록하고 새 계획을 요청. 성공 응답 후에만 큐를 교체
func (o *Orchestrator) HandleObstacles(ctx context.Context, payload models.ObstaclesPayload) error {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	o.state.RegisterObstacles(payload.Obstacles)
	o.Notify(models.NewGeneral(constants.MsgRequestingPlan))

	pose := o.config.GetInitialPose()
	req := models.PlanRequest{
		Obstacles: payload.Obstacles,
		Mode:      payload.Mode,
		BigTurn:   "0",
		RobotX:    pose.X,
		RobotY:    pose.Y,
		RobotDir:  int(pose.Heading),
	}

	resp, err := o.planner.Plan(ctx, req)
	if err != nil {
		o.logger.Errorf("❌ Planner request failed: %v", err)
		o.Notify(models.NewError(constants.MsgPlanFailed))
		return err
	}

	commands, checkpoints, err := o.buildPlan(resp)
	if err != nil {
		o.logger.Errorf("❌ Planner response unusable: %v", err)
		o.Notify(models.NewError(constants.MsgPlanFailed))
		return err
	}

	runID := o.ids.GenerateUniqueID()
	gen := o.state.InstallPlan(runID, commands, checkpoints)
	o.fire(ctx, EventPlanInstalled)

	o.logger.Infof("✅ Plan %d installed for run %s: %d commands, %d checkpoints", gen, runID, len(commands), len(checkpoints))
	o.Notify(models.NewGeneral(constants.MsgPlanReceived))
	return nil
}

// buildPlan 로컬 컴파일 또는 플래너가 준 명령 파싱
func (o *Orchestrator) buildPlan(resp *models.PlanResponse) ([]models.Command, []models.WaypointState, error) {
	if o.config.GetCompileLocally() {
		result, err := compiler.Compile(resp.Data.Path, o.state.Obstacles())
		if err != nil {
			return nil, nil, err
		}
		checkpoints, err := compiler.AlignCheckpoints(result.Commands, result.Checkpoints)
		if err != nil {
			return nil, nil, err
		}
		return result.Commands, checkpoints, nil
	}

	commands := make([]models.Command, 0, len(resp.Data.Commands)+1)
	motion := 0
	for _, code := range resp.Data.Commands {
		c, err := models.ParseCommand(code)
		if err != nil {
			return nil, nil, err
		}
		if c.IsMotion() {
			motion++
		}
		commands = append(commands, c)
	}
	if len(commands) == 0 || commands[len(commands)-1].Kind != models.KindFinish {
		o.logger.Warnf("Planner command list does not end with FIN, appending it")
		commands = append(commands, models.Finish())
	}

	var checkpoints []models.WaypointState
	if len(resp.Data.Path) > 1 {
		checkpoints = resp.Data.Path[1:]
	}
	if len(checkpoints) != motion {
		o.logger.Warnf("⚠️ Planner returned %d checkpoints for %d motion commands", len(checkpoints), motion)
	}
	return commands, checkpoints, nil
}

// HandleStart 리셋 명령을 보내고 그 ACK를 받은 뒤 게이트를 엶
func (o *Orchestrator) HandleStart(ctx context.Context) error {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	if o.state.Gate.IsOpen() {
		o.Notify(models.NewGeneral(constants.MsgAlreadyRunning))
		return ErrAlreadyRunning
	}

	if err := o.planner.Status(ctx); err != nil {
		o.logger.Errorf("❌ Planner status check failed: %v", err)
		o.Notify(models.NewError(constants.MsgAPIDown))
		return err
	}

	if o.state.Commands.Len() == 0 {
		o.Notify(models.NewError(constants.MsgEmptyQueue))
		return ErrEmptyQueue
	}

	if err := o.resetMotor(ctx); err != nil {
		return err
	}

	o.state.Gate.Open()
	o.fire(ctx, EventStart)

	o.logger.Infof("🚀 Run %s started", o.state.RunID())
	o.Notify(models.NewGeneral(constants.MsgStarting))
	o.Notify(models.NewStatus(constants.StatusRunning))
	return nil
}

// resetMotor RS00을 보내고 전용 ACK를 기다림. 진행 중인 이동의 ACK가 먼저 오도록 락을 잡고 보냄
func (o *Orchestrator) resetMotor(ctx context.Context) error {
	if err := o.state.Lock.Acquire(ctx); err != nil {
		return err
	}
	defer o.releaseLock("reset")

	waiter := make(chan struct{})
	o.resetWaiter.Store(&waiter)

	if err := o.motor.Send(constants.ResetCommand); err != nil {
		o.resetWaiter.CompareAndSwap(&waiter, nil)
		o.logger.Errorf("❌ Failed to send reset to motor: %v", err)
		o.Notify(models.NewError(constants.MsgMotorSendFailed))
		return err
	}
	o.logger.Infof("📤 MOTOR SENDING: %s", constants.ResetCommand)

	var stall <-chan time.Time
	if timeout := o.config.GetAckTimeout(); timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		stall = timer.C
	}

	for {
		select {
		case <-waiter:
			return nil
		case <-stall:
			o.logger.Warnf("⚠️ Still waiting for reset ACK")
			stall = nil
		case <-ctx.Done():
			o.resetWaiter.CompareAndSwap(&waiter, nil)
			return ctx.Err()
		}
	}
}
