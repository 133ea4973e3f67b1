package orchestrator

import (
	"context"
	"sync"

	"robot-pipeline/internal/common/constants"
	"robot-pipeline/internal/models"
)

// supervise 제어 역할을 시작하고, 끊김 신호마다 한 번씩 재연결 후 재시작
func (o *Orchestrator) supervise(ctx context.Context) error {
	var wg sync.WaitGroup
	stop := o.startControlRoles(ctx, &wg)

	for {
		if err := o.state.ControlDropped.Wait(ctx); err != nil {
			stop()
			o.control.Disconnect()
			wg.Wait()
			return nil
		}

		o.logger.Warnf("⚠️ Control link down, restarting control roles")
		stop()
		o.control.Disconnect()
		wg.Wait()

		if err := o.reconnectControl(ctx); err != nil {
			return nil
		}

		o.state.ControlDropped.Clear()
		stop = o.startControlRoles(ctx, &wg)
		o.restarts.Add(1)

		o.logger.Infof("✅ Control link reconnected (restart #%d)", o.restarts.Load())
		o.Notify(models.NewGeneral(constants.MsgReconnected))
		o.Notify(models.NewMode(constants.ModePath))
	}
}

func (o *Orchestrator) startControlRoles(ctx context.Context, wg *sync.WaitGroup) context.CancelFunc {
	roleCtx, cancel := context.WithCancel(ctx)

	wg.Add(2)
	go func() {
		defer wg.Done()
		o.listenControl(roleCtx)
	}()
	go func() {
		defer wg.Done()
		o.sendControl(roleCtx)
	}()
	return cancel
}

func (o *Orchestrator) reconnectControl(ctx context.Context) error {
	for {
		err := o.control.Connect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Errorf("❌ Control reconnect failed: %v", err)
		if err := sleepCtx(ctx, o.config.GetReconnectDelay()); err != nil {
			return err
		}
	}
}
