// Package vision issues capture requests to the image-recognition companion.
package vision

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"robot-pipeline/internal/link"
	"robot-pipeline/internal/models"
	"robot-pipeline/internal/utils"
)

type result struct {
	line string
	err  error
}

// Client 비전 링크 위의 촬영 요청/응답
type Client struct {
	link    link.Link
	trigger string

	mu sync.Mutex
	// 취소된 촬영의 응답. 다음 촬영 전에 소비해 버림
	pending chan result
}

// NewClient 새 비전 클라이언트 생성
func NewClient(l link.Link, trigger string) *Client {
	return &Client{link: l, trigger: trigger}
}

// Capture 트리거를 보내고 응답 한 줄을 기다림. 응답은 JSON 또는 클래스 토큰
func (c *Client) Capture(ctx context.Context, obstacleID int, lateral models.Lateral) (models.ImageRecPayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.drainPending(ctx); err != nil {
		return models.ImageRecPayload{}, err
	}

	trigger := c.trigger
	if lateral != models.LateralNone {
		trigger = trigger + "_" + lateral.String()
	}

	utils.Logger.Infof("📷 CAPTURE obstacle %d (%s)", obstacleID, trigger)
	if err := c.link.Send(trigger); err != nil {
		return models.ImageRecPayload{}, err
	}

	done := make(chan result, 1)
	go func() {
		line, err := c.link.Receive()
		done <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		c.pending = done
		return models.ImageRecPayload{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return models.ImageRecPayload{}, r.err
		}
		rec := parseResponse(r.line, obstacleID)
		utils.Logger.Infof("📷 CAPTURE RESULT obstacle %d: %s", obstacleID, rec.ImageID)
		return rec, nil
	}
}

// drainPending 이전 취소된 촬영의 늦은 응답을 기다려 버림
func (c *Client) drainPending(ctx context.Context) error {
	if c.pending == nil {
		return nil
	}
	select {
	case r := <-c.pending:
		c.pending = nil
		if r.err != nil {
			return r.err
		}
		utils.Logger.Warnf("Discarding late vision reply: %q", r.line)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseResponse(line string, obstacleID int) models.ImageRecPayload {
	rec := models.ImageRecPayload{ObstacleID: strconv.Itoa(obstacleID)}

	var decoded models.ImageRecPayload
	if strings.HasPrefix(line, "{") && json.Unmarshal([]byte(line), &decoded) == nil {
		rec.ImageID = decoded.ImageID
		return rec
	}

	rec.ImageID = strings.TrimSpace(line)
	return rec
}
