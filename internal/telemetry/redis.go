package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"robot-pipeline/internal/common/constants"
	rediskeys "robot-pipeline/internal/common/redis"
	"robot-pipeline/internal/interfaces"
	"robot-pipeline/internal/models"
)

// RedisSnapshot 제어 메시지로 run 텔레메트리 hash와 최근 위치 키를 갱신
type RedisSnapshot struct {
	cache interfaces.CacheService

	mu      sync.Mutex
	runID   string
	success map[string]struct{}
	failure map[string]struct{}
}

// NewRedisSnapshot 새 redis 스냅샷 sink 생성
func NewRedisSnapshot(cache interfaces.CacheService) *RedisSnapshot {
	return &RedisSnapshot{
		cache:   cache,
		success: make(map[string]struct{}),
		failure: make(map[string]struct{}),
	}
}

func (r *RedisSnapshot) Name() string {
	return "redis"
}

func (r *RedisSnapshot) Publish(ctx context.Context, runID string, msg models.ControlMessage) error {
	if runID == "" {
		// 계획 설치 전 메시지는 run에 속하지 않음
		return nil
	}
	key := rediskeys.RunTelemetry(runID)

	if r.startRun(runID) {
		if err := r.cache.Set(ctx, rediskeys.CurrentRunKey, runID, 0); err != nil {
			return fmt.Errorf("set current run: %w", err)
		}
	}

	switch msg.Type {
	case constants.MessageTypeLocation:
		if err := r.cache.Set(ctx, rediskeys.RobotLocationKey, []byte(msg.Value), 0); err != nil {
			return fmt.Errorf("set location: %w", err)
		}
		return r.cache.HSet(ctx, key, rediskeys.FieldLocation, []byte(msg.Value))

	case constants.MessageTypeStatus:
		return r.hsetText(ctx, key, rediskeys.FieldStatus, msg)

	case constants.MessageTypeMode:
		return r.hsetText(ctx, key, rediskeys.FieldMode, msg)

	case constants.MessageTypeGeneral:
		return r.hsetText(ctx, key, rediskeys.FieldLastInfo, msg)

	case constants.MessageTypeError:
		return r.hsetText(ctx, key, rediskeys.FieldLastErr, msg)

	case constants.MessageTypeImageRec:
		var rec models.ImageRecPayload
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			return fmt.Errorf("decode imageRec: %w", err)
		}
		success, failure := r.classify(rec)

		pipe := r.cache.Pipeline()
		if err := pipe.HSet(ctx, key, rediskeys.FieldSuccess, success); err != nil {
			return err
		}
		if err := pipe.HSet(ctx, key, rediskeys.FieldFailure, failure); err != nil {
			return err
		}
		if err := pipe.HSet(ctx, key, "image:"+rec.ObstacleID, rec.ImageID); err != nil {
			return err
		}
		return pipe.Exec(ctx)
	}
	return nil
}

// startRun 새 run이면 집합을 초기화하고 true
func (r *RedisSnapshot) startRun(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runID == runID {
		return false
	}
	r.runID = runID
	r.success = make(map[string]struct{})
	r.failure = make(map[string]struct{})
	return true
}

// classify 성공/실패 집합을 갱신하고 JSON 배열로 반환
func (r *RedisSnapshot) classify(rec models.ImageRecPayload) (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.Recognized() {
		r.success[rec.ObstacleID] = struct{}{}
		delete(r.failure, rec.ObstacleID)
	} else {
		r.failure[rec.ObstacleID] = struct{}{}
		delete(r.success, rec.ObstacleID)
	}
	return encodeIDs(r.success), encodeIDs(r.failure)
}

func (r *RedisSnapshot) hsetText(ctx context.Context, key, field string, msg models.ControlMessage) error {
	text, ok := msg.Text()
	if !ok {
		return fmt.Errorf("%s message value is not a string", msg.Type)
	}
	return r.cache.HSet(ctx, key, field, text)
}

func encodeIDs(set map[string]struct{}) string {
	ids := make([]int, 0, len(set))
	for id := range set {
		if n, err := strconv.Atoi(id); err == nil {
			ids = append(ids, n)
		}
	}
	sort.Ints(ids)
	data, _ := json.Marshal(ids)
	return string(data)
}
