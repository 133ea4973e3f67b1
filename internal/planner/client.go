// Package planner talks to the external path-planning service.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"robot-pipeline/internal/models"
	"robot-pipeline/internal/utils"
)

// ErrPlanningService 플래너가 성공 응답을 주지 않음
var ErrPlanningService = errors.New("planning service error")

const (
	defaultConnectTimeout = 5 * time.Second
	maxErrorBody          = 512
)

// Client 플래너 서비스 HTTP 클라이언트
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient baseURL의 플래너 서비스 클라이언트 생성
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   defaultConnectTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Status GET /status. 서비스가 살아 있으면 nil
func (c *Client) Status(ctx context.Context) error {
	resp, err := c.get(ctx, "/status")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status check returned %d", ErrPlanningService, resp.StatusCode)
	}
	return nil
}

// Plan POST /path. 성공 응답만 반환하고 나머지는 ErrPlanningService
func (c *Client) Plan(ctx context.Context, req models.PlanRequest) (*models.PlanResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/path", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	utils.Logger.Infof("📤 PLANNER REQUEST: %d obstacles from (%d,%d,%d) retrying=%v",
		len(req.Obstacles), req.RobotX, req.RobotY, req.RobotDir, req.Retrying)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanningService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: /path returned %d: %s", ErrPlanningService, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var plan models.PlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrPlanningService, err)
	}
	if plan.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanningService, *plan.Error)
	}

	utils.Logger.Infof("✅ PLANNER RESPONSE: %d commands, %d waypoints, distance %.1f",
		len(plan.Data.Commands), len(plan.Data.Path), plan.Data.Distance)
	return &plan, nil
}

// Stitch GET /stitch. 촬영한 이미지 합치기 요청
func (c *Client) Stitch(ctx context.Context) error {
	resp, err := c.get(ctx, "/stitch")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: stitch returned %d", ErrPlanningService, resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanningService, err)
	}
	return resp, nil
}
