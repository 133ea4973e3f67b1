package orchestrator

import (
	"context"
	"strings"

	"robot-pipeline/internal/common/constants"
	"robot-pipeline/internal/models"
)

// listenMotor 모터 ACK마다 checkpoint 하나를 꺼내 위치를 알리고 락 해제
func (o *Orchestrator) listenMotor(ctx context.Context) error {
	for {
		line, err := o.motor.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			o.logger.Errorf("❌ Motor link receive failed: %v", err)
			if sleepCtx(ctx, motorRetryDelay) != nil {
				return nil
			}
			continue
		}

		if !strings.HasPrefix(line, constants.AckPrefix) {
			o.logger.Warnf("Ignoring motor message: %q", line)
			continue
		}
		o.acks.Add(1)

		if waiter := o.resetWaiter.Swap(nil); waiter != nil {
			o.logger.Infof("✅ Reset acknowledged")
			close(*waiter)
			continue
		}

		current, ok := o.state.TakeInflight()
		if !ok {
			o.logger.Warnf("ACK with no motor command in flight, ignored")
			continue
		}

		// 위치를 먼저 알린 뒤 락을 풀어 다음 명령의 메시지가 앞서지 않게 함
		if current {
			o.advanceCheckpoint()
		} else {
			o.logger.Warnf("ACK for a command from a replaced plan, location unchanged")
		}
		o.releaseLock("ack")
	}
}

func (o *Orchestrator) advanceCheckpoint() {
	pose, ok := o.state.Checkpoints.TryPop()
	if !ok {
		o.logger.Warnf("ACK received with no checkpoint pending")
		return
	}
	o.state.SetLocation(pose)
	o.logger.Infof("📍 Location: %s", pose)
	o.Notify(models.NewLocation(pose.Location()))
}
