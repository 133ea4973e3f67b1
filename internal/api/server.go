// Package api serves the read-only run status API and the websocket telemetry stream.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"robot-pipeline/internal/interfaces"
	"robot-pipeline/internal/models"
	"robot-pipeline/internal/orchestrator"
	"robot-pipeline/internal/utils"
)

// StatusSource API가 읽는 실행 상태
type StatusSource interface {
	Snapshot() orchestrator.Snapshot
	Obstacles() []models.Obstacle
}

// StreamServer 웹소켓 연결을 넘겨받아 끊길 때까지 서비스
type StreamServer interface {
	Serve(conn *websocket.Conn)
	ClientCount() int
}

// Server echo 기반 상태 API
type Server struct {
	echo     *echo.Echo
	source   StatusSource
	stream   StreamServer
	logger   interfaces.Logger
	upgrader websocket.Upgrader
}

// NewServer 새 API 서버 생성. stream은 nil 가능
func NewServer(source StatusSource, stream StreamServer, logger interfaces.Logger) *Server {
	s := &Server{
		echo:   echo.New(),
		source: source,
		stream: stream,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(s.requestLogger)

	api := s.echo.Group("/api/v1")
	api.GET("/health", s.HealthCheck)
	api.GET("/run", s.GetRun)
	api.GET("/obstacles", s.GetObstacles)
	api.GET("/ws", s.Stream)
}

// Handler 테스트용 http.Handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start addr에서 서비스 시작. ctx 취소 시 graceful shutdown
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("🌐 Status API listening on %s", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// ===================================================================
// HANDLERS
// ===================================================================

// HealthCheck 서비스 상태 요약
func (s *Server) HealthCheck(c echo.Context) error {
	snap := s.source.Snapshot()
	data := map[string]interface{}{
		"service":      "robot-pipeline",
		"run_state":    snap.State,
		"control_link": linkStatus(snap.ControlLinkUp),
		"timestamp":    time.Now().Unix(),
	}
	if s.stream != nil {
		data["stream_clients"] = s.stream.ClientCount()
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Service is healthy", data))
}

// GetRun 현재 실행 상태 스냅샷
func (s *Server) GetRun(c echo.Context) error {
	return c.JSON(http.StatusOK, utils.SuccessResponse("Run state retrieved successfully", s.source.Snapshot()))
}

// GetObstacles 등록된 장애물 목록
func (s *Server) GetObstacles(c echo.Context) error {
	obstacles := s.source.Obstacles()
	data := map[string]interface{}{
		"obstacles": obstacles,
		"count":     len(obstacles),
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Obstacles retrieved successfully", data))
}

// Stream 웹소켓으로 업그레이드하고 텔레메트리 허브에 연결
func (s *Server) Stream(c echo.Context) error {
	if s.stream == nil {
		return c.JSON(http.StatusServiceUnavailable, utils.ErrorResponse("Telemetry stream is disabled"))
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warnf("Websocket upgrade failed: %v", err)
		return nil
	}
	s.stream.Serve(conn)
	return nil
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		req := c.Request()
		s.logger.Debugf("%s %s %s %d %v", req.Method, req.RequestURI, c.RealIP(), c.Response().Status, time.Since(start))
		return err
	}
}

func linkStatus(up bool) string {
	if up {
		return "up"
	}
	return "down"
}
