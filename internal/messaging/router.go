// internal/messaging/router.go
package messaging

import (
	"context"
	"fmt"

	"robot-pipeline/internal/models"
	"robot-pipeline/internal/utils"
)

// ObstacleHandler 장애물 설정 처리 인터페이스
type ObstacleHandler interface {
	HandleObstacles(ctx context.Context, payload models.ObstaclesPayload) error
}

// ActionHandler 실행 액션 처리 인터페이스
type ActionHandler interface {
	HandleStart(ctx context.Context) error
}

// Router 제어 링크 메시지 라우터
type Router struct {
	obstacleHandler ObstacleHandler
	actionHandler   ActionHandler
}

// NewRouter 새 메시지 라우터 생성
func NewRouter(obstacleHandler ObstacleHandler, actionHandler ActionHandler) *Router {
	return &Router{
		obstacleHandler: obstacleHandler,
		actionHandler:   actionHandler,
	}
}

// Route 한 줄을 파싱하여 해당 핸들러로 전달. 파싱 실패는 models.ErrProtocol
func (r *Router) Route(ctx context.Context, line string) error {
	msg, err := models.ParseControlMessage(line)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case models.ObstaclesMessage:
		utils.Logger.Infof("Received %d obstacles (mode %q)", len(m.Payload.Obstacles), m.Payload.Mode)
		return r.obstacleHandler.HandleObstacles(ctx, m.Payload)

	case models.ActionMessage:
		utils.Logger.Infof("Received action: %s", m.Action)
		return r.actionHandler.HandleStart(ctx)

	default:
		return fmt.Errorf("%w: unhandled message %T", models.ErrProtocol, msg)
	}
}
