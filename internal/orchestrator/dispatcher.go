package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"robot-pipeline/internal/common/constants"
	"robot-pipeline/internal/models"
)

// dispatch 명령 큐를 하나씩 꺼내 실행. 모터 명령은 ACK까지 락을 유지
func (o *Orchestrator) dispatch(ctx context.Context) error {
	for {
		if err := o.state.Gate.Wait(ctx); err != nil {
			return nil
		}
		item, err := o.state.Commands.Pop(ctx)
		if err != nil {
			return nil
		}
		if err := o.state.Lock.Acquire(ctx); err != nil {
			return nil
		}

		if item.gen != o.state.Generation() {
			o.logger.Debugf("Dropping stale command %s from plan %d", item.command, item.gen)
			o.releaseLock("stale command")
			continue
		}
		// 대기 중 새 계획이 설치되어 게이트가 닫힌 경우
		if !o.state.Gate.IsOpen() {
			o.state.Commands.PushFront(item)
			o.releaseLock("gate closed")
			continue
		}

		switch item.command.Kind {
		case models.KindStraight, models.KindTurn:
			o.dispatchMotion(ctx, item)
		case models.KindCapture:
			o.dispatchCapture(ctx, item.command)
		case models.KindFinish:
			o.finishRun(ctx)
		default:
			o.releaseLock("unknown command")
			o.abortRun(ctx, constants.MsgUnknownMotorAction,
				fmt.Errorf("%w: command kind %s", models.ErrProtocol, item.command.Kind))
		}
	}
}

func (o *Orchestrator) dispatchMotion(ctx context.Context, item queuedCommand) {
	code := item.command.String()

	ackSeq := o.acks.Load()
	sent, err := o.state.BeginMotion(item.gen, func() error { return o.motor.Send(code) })
	if err != nil {
		o.logger.Errorf("❌ Failed to send %s to motor: %v", code, err)
		o.releaseLock("motor send failed")
		o.abortRun(ctx, constants.MsgMotorSendFailed, err)
		return
	}
	if !sent {
		// 확인 직후 새 계획이 설치되었거나 게이트가 닫힘
		if item.gen == o.state.Generation() {
			o.state.Commands.PushFront(item)
		} else {
			o.logger.Debugf("Dropping stale command %s from plan %d", code, item.gen)
		}
		o.releaseLock("plan replaced")
		return
	}
	o.logger.Infof("📤 MOTOR SENDING: %s", code)

	if timeout := o.config.GetAckTimeout(); timeout > 0 {
		time.AfterFunc(timeout, func() {
			if o.acks.Load() == ackSeq && o.state.Lock.Held() {
				o.logger.Warnf("⚠️ No ACK for %s after %v, pipeline stalled", code, timeout)
			}
		})
	}
}

// dispatchCapture 촬영 요청 후 결과를 분류, 전달하고 락을 직접 해제
func (o *Orchestrator) dispatchCapture(ctx context.Context, c models.Command) {
	o.Notify(models.NewGeneral(fmt.Sprintf(constants.MsgCapturing, c.ObstacleID)))

	rec, err := o.vision.Capture(ctx, c.ObstacleID, c.Lateral)
	if err != nil {
		if ctx.Err() != nil {
			o.releaseLock("capture cancelled")
			return
		}
		o.logger.Errorf("❌ Capture failed for obstacle %d: %v", c.ObstacleID, err)
		o.Notify(models.NewError(fmt.Sprintf(constants.MsgCaptureFailed, c.ObstacleID)))
		rec = models.ImageRecPayload{ImageID: constants.NotRecognized, ObstacleID: strconv.Itoa(c.ObstacleID)}
	}

	o.state.Classify(c.ObstacleID, rec.Recognized())
	o.Notify(models.NewImageRec(rec))
	o.releaseLock("capture")
}

// finishRun 게이트를 닫고 완료를 알린 뒤 이미지 합치기 요청
func (o *Orchestrator) finishRun(ctx context.Context) {
	o.state.Gate.Close()
	o.releaseLock("finish")
	o.fire(ctx, EventFinish)

	o.logger.Infof("✅ Commands queue finished at %s", o.state.Location())
	o.Notify(models.NewGeneral(constants.MsgFinished))
	o.Notify(models.NewStatus(constants.StatusFinished))

	if err := o.planner.Stitch(ctx); err != nil {
		o.logger.Errorf("❌ Stitch request failed: %v", err)
		o.Notify(models.NewError(constants.MsgStitchFailed))
		return
	}
	o.Notify(models.NewGeneral(constants.MsgStitched))
}

// releaseLock 락 해제. 이미 풀린 락은 경고만 남김
func (o *Orchestrator) releaseLock(reason string) {
	if err := o.state.Lock.Release(); err != nil {
		o.logger.Warnf("Tried to release a released lock (%s): %v", reason, err)
	}
}
