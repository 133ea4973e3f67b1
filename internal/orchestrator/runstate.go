package orchestrator

import (
	"sort"
	"sync"

	"robot-pipeline/internal/models"
)

// queuedCommand 명령과 그 명령이 속한 계획 세대
type queuedCommand struct {
	command models.Command
	gen     uint64
}

// RunState 오케스트레이터가 소유하는 실행 상태. 모든 역할이 같은 값을 참조
type RunState struct {
	Commands       *Queue[queuedCommand]
	Checkpoints    *Queue[models.WaypointState]
	Lock           *MotionLock
	Gate           *Gate
	ControlDropped *Flag

	mu         sync.RWMutex
	runID      string
	generation uint64
	inflight   uint64
	awaiting   bool
	location   models.WaypointState
	obstacles  map[int]models.Obstacle
	success    map[int]struct{}
	failure    map[int]struct{}
}

// NewRunState 초기 위치로 실행 상태 생성
func NewRunState(initial models.WaypointState) *RunState {
	return &RunState{
		Commands:       NewQueue[queuedCommand](),
		Checkpoints:    NewQueue[models.WaypointState](),
		Lock:           NewMotionLock(),
		Gate:           NewGate(),
		ControlDropped: NewFlag(),
		location:       initial,
		obstacles:      make(map[int]models.Obstacle),
		success:        make(map[int]struct{}),
		failure:        make(map[int]struct{}),
	}
}

// ClearQueues 두 큐를 비우고 세대를 올림. 이미 꺼낸 이전 명령은 디스패처가 버림
func (s *RunState) ClearQueues() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *RunState) clearLocked() uint64 {
	s.Commands.Clear()
	s.Checkpoints.Clear()
	s.generation++
	return s.generation
}

// InstallPlan 게이트를 닫고 큐를 새 계획으로 교체
func (s *RunState) InstallPlan(runID string, commands []models.Command, checkpoints []models.WaypointState) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Gate.Close()
	gen := s.clearLocked()
	s.runID = runID

	items := make([]queuedCommand, len(commands))
	for i, c := range commands {
		items[i] = queuedCommand{command: c, gen: gen}
	}
	s.Checkpoints.Push(checkpoints...)
	s.Commands.Push(items...)
	return gen
}

func (s *RunState) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// BeginMotion 세대와 게이트를 다시 확인하고 send까지 계획 설치와 겹치지 않게 실행.
// sent=false면 명령은 보내지지 않음
func (s *RunState) BeginMotion(gen uint64, send func() error) (sent bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || !s.Gate.IsOpen() {
		return false, nil
	}
	s.inflight = gen
	s.awaiting = true
	if err := send(); err != nil {
		s.awaiting = false
		return false, err
	}
	return true, nil
}

// TakeInflight ACK가 기다리던 모터 명령을 소비. ok=false면 ACK를 기다리는 명령이 없음
func (s *RunState) TakeInflight() (current, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.awaiting {
		return false, false
	}
	s.awaiting = false
	return s.inflight == s.generation, true
}

func (s *RunState) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

func (s *RunState) SetLocation(pose models.WaypointState) {
	s.mu.Lock()
	s.location = pose
	s.mu.Unlock()
}

func (s *RunState) Location() models.WaypointState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// RegisterObstacles 장애물 테이블에 등록 (같은 id는 덮어씀, 삭제 없음)
func (s *RunState) RegisterObstacles(obstacles []models.Obstacle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obs := range obstacles {
		s.obstacles[obs.ID] = obs
	}
}

// Obstacles id 순으로 정렬된 장애물 목록
func (s *RunState) Obstacles() []models.Obstacle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Obstacle, 0, len(s.obstacles))
	for _, obs := range s.obstacles {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Classify 촬영 결과로 성공/실패 집합에 분류. 반대 집합에서는 제거
func (s *RunState) Classify(obstacleID int, recognized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if recognized {
		s.success[obstacleID] = struct{}{}
		delete(s.failure, obstacleID)
	} else {
		s.failure[obstacleID] = struct{}{}
		delete(s.success, obstacleID)
	}
}

// Snapshot API 응답용 실행 상태 복사본
type Snapshot struct {
	RunID             string                 `json:"run_id"`
	State             string                 `json:"state"`
	Location          models.LocationPayload `json:"location"`
	CommandsQueued    int                    `json:"commands_queued"`
	CheckpointsQueued int                    `json:"checkpoints_queued"`
	GateOpen          bool                   `json:"gate_open"`
	LockHeld          bool                   `json:"lock_held"`
	ControlLinkUp     bool                   `json:"control_link_up"`
	Restarts          int64                  `json:"control_restarts"`
	Success           []int                  `json:"success"`
	Failure           []int                  `json:"failure"`
}

func (s *RunState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		RunID:             s.runID,
		Location:          s.location.Location(),
		CommandsQueued:    s.Commands.Len(),
		CheckpointsQueued: s.Checkpoints.Len(),
		GateOpen:          s.Gate.IsOpen(),
		LockHeld:          s.Lock.Held(),
		ControlLinkUp:     !s.ControlDropped.IsSet(),
		Success:           sortedIDs(s.success),
		Failure:           sortedIDs(s.failure),
	}
}

func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
