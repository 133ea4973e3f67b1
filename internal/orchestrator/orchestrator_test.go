package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"robot-pipeline/internal/common/constants"
	"robot-pipeline/internal/link"
	"robot-pipeline/internal/models"
	"robot-pipeline/internal/services"
	"robot-pipeline/internal/utils"
)

const waitTimeout = 2 * time.Second

func init() {
	utils.SetOutput(io.Discard)
}

// ============================================================================
// Fakes
// ============================================================================

type fakePlanner struct {
	mu        sync.Mutex
	statusErr error
	planErr   error
	responses []*models.PlanResponse
	requests  []models.PlanRequest
	stitches  int
}

func (p *fakePlanner) Status(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusErr
}

func (p *fakePlanner) Plan(ctx context.Context, req models.PlanRequest) (*models.PlanResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.planErr != nil {
		return nil, p.planErr
	}
	resp := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return resp, nil
}

func (p *fakePlanner) Stitch(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stitches++
	return nil
}

func (p *fakePlanner) setStatusErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusErr = err
}

type capture struct {
	obstacleID int
	lateral    models.Lateral
}

type fakeVision struct {
	mu      sync.Mutex
	imageID string
	err     error
	calls   []capture
}

func (v *fakeVision) Capture(ctx context.Context, obstacleID int, lateral models.Lateral) (models.ImageRecPayload, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, capture{obstacleID, lateral})
	if v.err != nil {
		return models.ImageRecPayload{}, v.err
	}
	return models.ImageRecPayload{ImageID: v.imageID, ObstacleID: strconv.Itoa(obstacleID)}, nil
}

func (v *fakeVision) captures() []capture {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]capture(nil), v.calls...)
}

type fakeConfig struct {
	local bool
}

func (c *fakeConfig) GetInitialPose() models.WaypointState {
	return models.NewWaypoint(1, 1, models.North)
}

func (c *fakeConfig) GetCompileLocally() bool {
	return c.local
}

func (c *fakeConfig) GetAckTimeout() time.Duration {
	return 0
}

func (c *fakeConfig) GetReconnectDelay() time.Duration {
	return 10 * time.Millisecond
}

func (c *fakeConfig) GetLogLevel() string {
	return "error"
}

// ============================================================================
// Harness
// ============================================================================

type harness struct {
	orch    *Orchestrator
	control *link.MemoryLink
	tablet  *link.MemoryLink
	robot   *link.MemoryLink
	planner *fakePlanner
	vision  *fakeVision

	inbox      chan models.ControlMessage
	motorCodes chan string
	cancel     context.CancelFunc
	done       chan error
}

// newHarness 오케스트레이터를 메모리 링크에 연결해 실행. autoAck면 로봇이 모든 명령에 즉시 ACK
func newHarness(t *testing.T, planner *fakePlanner, local, autoAck bool) *harness {
	t.Helper()

	motor, robot := link.Pipe("motor", "robot")
	control, tablet := link.Pipe("control", "tablet")
	vision := &fakeVision{imageID: "11"}

	h := &harness{
		control:    control,
		tablet:     tablet,
		robot:      robot,
		planner:    planner,
		vision:     vision,
		inbox:      make(chan models.ControlMessage, 256),
		motorCodes: make(chan string, 64),
		done:       make(chan error, 1),
	}
	h.orch = New(
		Links{Motor: motor, Control: control},
		vision,
		planner,
		&fakeConfig{local: local},
		services.NewLoggerWithOutput("error", io.Discard),
		services.NewUniqueIDGenerator(),
		nil,
	)

	go func() {
		for {
			line, err := tablet.Receive()
			if err != nil {
				return
			}
			var msg models.ControlMessage
			if json.Unmarshal([]byte(line), &msg) == nil {
				h.inbox <- msg
			}
		}
	}()

	go func() {
		for {
			code, err := robot.Receive()
			if err != nil {
				return
			}
			h.motorCodes <- code
			if autoAck {
				robot.Send("ACK")
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.orch.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-h.done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(waitTimeout):
			t.Error("Run did not stop after cancel")
		}
		tablet.Disconnect()
		robot.Disconnect()
	})

	h.expect(t, constants.MessageTypeGeneral, constants.MsgReady)
	return h
}

// expect 지정한 타입(과 문구)의 메시지가 올 때까지 다른 메시지는 건너뜀
func (h *harness) expect(t *testing.T, msgType, text string) models.ControlMessage {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case msg := <-h.inbox:
			if msg.Type != msgType {
				continue
			}
			if got, _ := msg.Text(); text != "" && got != text {
				continue
			}
			return msg
		case <-deadline:
			t.Fatalf("Timed out waiting for %s message %q", msgType, text)
			return models.ControlMessage{}
		}
	}
}

// collectUntil 지정한 메시지까지 받은 모든 메시지를 순서대로 반환
func (h *harness) collectUntil(t *testing.T, msgType, text string) []models.ControlMessage {
	t.Helper()
	var msgs []models.ControlMessage
	deadline := time.After(waitTimeout)
	for {
		select {
		case msg := <-h.inbox:
			msgs = append(msgs, msg)
			if got, _ := msg.Text(); msg.Type == msgType && (text == "" || got == text) {
				return msgs
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %s message %q", msgType, text)
			return nil
		}
	}
}

func ofType(msgs []models.ControlMessage, msgType string) []models.ControlMessage {
	var out []models.ControlMessage
	for _, msg := range msgs {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// locations 수집된 메시지 중 위치만 순서대로 디코드
func locations(t *testing.T, msgs []models.ControlMessage) []models.LocationPayload {
	t.Helper()
	found := ofType(msgs, constants.MessageTypeLocation)
	out := make([]models.LocationPayload, len(found))
	for i, msg := range found {
		if err := json.Unmarshal(msg.Value, &out[i]); err != nil {
			t.Fatalf("Invalid location payload: %v", err)
		}
	}
	return out
}

// indexOf 첫 번째로 일치하는 메시지의 위치, 없으면 -1
func indexOf(msgs []models.ControlMessage, msgType, text string) int {
	for i, msg := range msgs {
		if got, _ := msg.Text(); msg.Type == msgType && (text == "" || got == text) {
			return i
		}
	}
	return -1
}

func hasText(msgs []models.ControlMessage, msgType, text string) bool {
	for _, msg := range msgs {
		if got, _ := msg.Text(); msg.Type == msgType && got == text {
			return true
		}
	}
	return false
}

func (h *harness) expectCode(t *testing.T, expected string) {
	t.Helper()
	select {
	case code := <-h.motorCodes:
		if code != expected {
			t.Fatalf("Expected motor code %s, got %s", expected, code)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("Timed out waiting for motor code %s", expected)
	}
}

func (h *harness) send(t *testing.T, line string) {
	t.Helper()
	if err := h.tablet.Send(line); err != nil {
		t.Fatalf("Tablet send failed: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func target(w models.WaypointState, id int) models.WaypointState {
	return w.WithTarget(id)
}

const (
	obstaclesLine = `{"type":"obstacles","value":{"obstacles":[{"id":5,"x":3,"y":6,"d":6}],"mode":"0"}}`
	startLine     = `{"type":"action","value":"start"}`
)

// ============================================================================
// Tests
// ============================================================================

func TestRunCompletesPlan(t *testing.T) {
	planner := &fakePlanner{responses: []*models.PlanResponse{{
		Data: models.PlanResult{Path: []models.WaypointState{
			models.NewWaypoint(1, 1, models.North),
			models.NewWaypoint(1, 2, models.North),
			models.NewWaypoint(1, 3, models.North),
			target(models.NewWaypoint(1, 4, models.East), 5),
		}},
	}}}
	h := newHarness(t, planner, true, true)

	h.send(t, obstaclesLine)
	h.expect(t, constants.MessageTypeGeneral, constants.MsgPlanReceived)

	if snap := h.orch.Snapshot(); snap.State != StateGated || snap.CommandsQueued == 0 {
		t.Fatalf("Expected gated state with queued commands, got %+v", snap)
	}

	h.send(t, startLine)
	msgs := h.collectUntil(t, constants.MessageTypeGeneral, constants.MsgStitched)

	for _, want := range []struct{ msgType, text string }{
		{constants.MessageTypeGeneral, constants.MsgStarting},
		{constants.MessageTypeStatus, constants.StatusRunning},
		{constants.MessageTypeStatus, constants.StatusFinished},
	} {
		if !hasText(msgs, want.msgType, want.text) {
			t.Errorf("Expected %s message %q", want.msgType, want.text)
		}
	}

	recs := ofType(msgs, constants.MessageTypeImageRec)
	if len(recs) != 1 {
		t.Fatalf("Expected 1 imageRec message, got %d", len(recs))
	}
	var payload models.ImageRecPayload
	if err := json.Unmarshal(recs[0].Value, &payload); err != nil {
		t.Fatalf("Invalid imageRec payload: %v", err)
	}
	if payload.ImageID != "11" || payload.ObstacleID != "5" {
		t.Errorf("Expected image 11 for obstacle 5, got %+v", payload)
	}

	locs := locations(t, msgs)
	expected := []models.LocationPayload{{X: 1, Y: 3, D: 0}, {X: 1, Y: 4, D: 2}}
	if len(locs) != 2 || locs[0] != expected[0] || locs[1] != expected[1] {
		t.Errorf("Expected locations %+v, got %+v", expected, locs)
	}
	lastLoc := -1
	for i, msg := range msgs {
		if msg.Type == constants.MessageTypeLocation {
			lastLoc = i
		}
	}
	if rec := indexOf(msgs, constants.MessageTypeImageRec, ""); lastLoc > rec {
		t.Errorf("Expected final location before imageRec, got location at %d and imageRec at %d", lastLoc, rec)
	}

	h.expectCode(t, constants.ResetCommand)
	h.expectCode(t, "SF020")
	h.expectCode(t, "RF090")

	captures := h.vision.captures()
	if len(captures) != 1 || captures[0].obstacleID != 5 || captures[0].lateral != models.LateralLeft {
		t.Errorf("Expected one left capture of obstacle 5, got %+v", captures)
	}

	req := planner.requests[0]
	if req.RobotX != 1 || req.RobotY != 1 || req.RobotDir != 0 || req.Mode != "0" || len(req.Obstacles) != 1 {
		t.Errorf("Unexpected plan request %+v", req)
	}

	snap := h.orch.Snapshot()
	if snap.State != StateFinished {
		t.Errorf("Expected state %s, got %s", StateFinished, snap.State)
	}
	if snap.GateOpen || snap.LockHeld {
		t.Errorf("Expected gate closed and lock free, got %+v", snap)
	}
	if len(snap.Success) != 1 || snap.Success[0] != 5 {
		t.Errorf("Expected obstacle 5 in success, got %v", snap.Success)
	}
	if snap.Location != (models.LocationPayload{X: 1, Y: 4, D: 2}) {
		t.Errorf("Expected final location (1,4,E), got %+v", snap.Location)
	}

	acquires, releases := h.orch.State().Lock.Counts()
	if acquires != releases {
		t.Errorf("Expected balanced lock counts, got %d/%d", acquires, releases)
	}
}

func TestStartWithEmptyQueue(t *testing.T) {
	h := newHarness(t, &fakePlanner{}, true, true)

	h.send(t, startLine)
	h.expect(t, constants.MessageTypeError, constants.MsgEmptyQueue)

	if h.orch.State().Gate.IsOpen() {
		t.Error("Expected gate to stay closed")
	}
	select {
	case code := <-h.motorCodes:
		t.Errorf("Expected no motor traffic, got %s", code)
	default:
	}
}

func TestStartWhenPlannerDown(t *testing.T) {
	planner := &fakePlanner{responses: []*models.PlanResponse{{
		Data: models.PlanResult{Path: []models.WaypointState{
			models.NewWaypoint(1, 1, models.North),
			models.NewWaypoint(1, 2, models.North),
		}},
	}}}
	h := newHarness(t, planner, true, true)

	h.send(t, obstaclesLine)
	h.expect(t, constants.MessageTypeGeneral, constants.MsgPlanReceived)

	planner.setStatusErr(errors.New("connection refused"))
	h.send(t, startLine)
	h.expect(t, constants.MessageTypeError, constants.MsgAPIDown)

	if h.orch.State().Gate.IsOpen() {
		t.Error("Expected gate to stay closed")
	}
	if h.orch.State().Commands.Len() == 0 {
		t.Error("Expected queued commands to be kept")
	}
}

func TestPlanFailureKeepsQueues(t *testing.T) {
	planner := &fakePlanner{planErr: errors.New("planner returned 500")}
	h := newHarness(t, planner, true, true)

	h.send(t, obstaclesLine)
	h.expect(t, constants.MessageTypeError, constants.MsgPlanFailed)

	if h.orch.State().Commands.Len() != 0 {
		t.Error("Expected no commands after a failed plan")
	}
	if obs := h.orch.Obstacles(); len(obs) != 1 || obs[0].ID != 5 {
		t.Errorf("Expected obstacle 5 registered, got %+v", obs)
	}
}

func TestProtocolViolationAbortsRun(t *testing.T) {
	h := newHarness(t, &fakePlanner{}, true, true)

	h.send(t, `{"type":"manual","value":"FW--"}`)
	h.expect(t, constants.MessageTypeError, constants.MsgProtocolViolation)

	if h.orch.Snapshot().State != StateIdle {
		t.Errorf("Expected idle state, got %s", h.orch.Snapshot().State)
	}
}

func TestControlLinkReconnect(t *testing.T) {
	planner := &fakePlanner{responses: []*models.PlanResponse{{
		Data: models.PlanResult{Path: []models.WaypointState{
			models.NewWaypoint(1, 1, models.North),
			models.NewWaypoint(1, 2, models.North),
		}},
	}}}
	h := newHarness(t, planner, true, true)

	h.control.Fail(errors.New("cable pulled"))
	h.expect(t, constants.MessageTypeGeneral, constants.MsgReconnected)

	waitFor(t, "control restart", func() bool { return h.orch.Restarts() == 1 })
	if h.orch.State().ControlDropped.IsSet() {
		t.Error("Expected drop flag to be cleared after restart")
	}
	if h.control.Connects() != 2 {
		t.Errorf("Expected 2 control connects, got %d", h.control.Connects())
	}

	h.send(t, obstaclesLine)
	h.expect(t, constants.MessageTypeGeneral, constants.MsgPlanReceived)

	if h.orch.Restarts() != 1 {
		t.Errorf("Expected exactly 1 restart, got %d", h.orch.Restarts())
	}
	if !h.orch.Snapshot().ControlLinkUp {
		t.Error("Expected control link up")
	}
}

func TestNewPlanDropsStaleCommands(t *testing.T) {
	planner := &fakePlanner{responses: []*models.PlanResponse{
		{Data: models.PlanResult{
			Path: []models.WaypointState{
				models.NewWaypoint(1, 1, models.North),
				models.NewWaypoint(1, 2, models.North),
				models.NewWaypoint(1, 3, models.North),
			},
			Commands: []string{"SF010", "SF010", "FIN"},
		}},
		{Data: models.PlanResult{
			Path: []models.WaypointState{
				models.NewWaypoint(5, 5, models.North),
				models.NewWaypoint(5, 3, models.North),
			},
			Commands: []string{"SB020", "FIN"},
		}},
	}}
	h := newHarness(t, planner, false, false)

	h.send(t, obstaclesLine)
	h.expect(t, constants.MessageTypeGeneral, constants.MsgPlanReceived)
	h.send(t, startLine)
	h.expectCode(t, constants.ResetCommand)
	h.robot.Send("ACK")
	h.expectCode(t, "SF010")

	h.send(t, obstaclesLine)
	h.expect(t, constants.MessageTypeGeneral, constants.MsgPlanReceived)

	// 교체된 계획의 ACK
	h.robot.Send("ACK")

	h.send(t, startLine)
	h.expectCode(t, constants.ResetCommand)
	h.robot.Send("ACK")
	h.expectCode(t, "SB020")
	h.robot.Send("ACK")

	msgs := h.collectUntil(t, constants.MessageTypeStatus, constants.StatusFinished)
	locs := locations(t, msgs)
	if len(locs) != 1 || locs[0] != (models.LocationPayload{X: 5, Y: 3, D: 0}) {
		t.Errorf("Expected only location (5,3,N), got %+v", locs)
	}

	acquires, releases := h.orch.State().Lock.Counts()
	if acquires != releases {
		t.Errorf("Expected balanced lock counts, got %d/%d", acquires, releases)
	}
}

func TestCaptureFailureCountsAsNotRecognized(t *testing.T) {
	planner := &fakePlanner{responses: []*models.PlanResponse{{
		Data: models.PlanResult{Path: []models.WaypointState{
			models.NewWaypoint(1, 1, models.North),
			target(models.NewWaypoint(1, 2, models.East), 5),
		}},
	}}}
	h := newHarness(t, planner, true, true)
	h.vision.mu.Lock()
	h.vision.err = errors.New("camera timeout")
	h.vision.mu.Unlock()

	h.send(t, obstaclesLine)
	h.expect(t, constants.MessageTypeGeneral, constants.MsgPlanReceived)
	h.send(t, startLine)

	rec := h.expect(t, constants.MessageTypeImageRec, "")
	var payload models.ImageRecPayload
	if err := json.Unmarshal(rec.Value, &payload); err != nil {
		t.Fatalf("Invalid imageRec payload: %v", err)
	}
	if payload.ImageID != constants.NotRecognized {
		t.Errorf("Expected %s, got %s", constants.NotRecognized, payload.ImageID)
	}
	h.expect(t, constants.MessageTypeStatus, constants.StatusFinished)

	if failure := h.orch.Snapshot().Failure; len(failure) != 1 || failure[0] != 5 {
		t.Errorf("Expected obstacle 5 in failure, got %v", failure)
	}
}

func TestMotorNoiseDoesNotDisturbRun(t *testing.T) {
	planner := &fakePlanner{responses: []*models.PlanResponse{{
		Data: models.PlanResult{Path: []models.WaypointState{
			models.NewWaypoint(1, 1, models.North),
			models.NewWaypoint(1, 2, models.North),
		}},
	}}}
	h := newHarness(t, planner, true, false)

	// 대기 중 잡음과 락이 풀린 상태의 ACK
	h.robot.Send("garbage 123")
	h.robot.Send("ACK")
	waitFor(t, "idle ACK", func() bool { return h.orch.acks.Load() == 1 })
	if acquires, releases := h.orch.State().Lock.Counts(); acquires != 0 || releases != 0 {
		t.Fatalf("Expected untouched lock after idle ACK, got %d/%d", acquires, releases)
	}

	h.send(t, obstaclesLine)
	h.expect(t, constants.MessageTypeGeneral, constants.MsgPlanReceived)
	h.send(t, startLine)

	h.expectCode(t, constants.ResetCommand)
	h.robot.Send("hello")
	h.robot.Send("ACK")
	h.expectCode(t, "SF010")
	h.robot.Send("noise")
	h.robot.Send("ACK")

	msgs := h.collectUntil(t, constants.MessageTypeStatus, constants.StatusFinished)
	locs := locations(t, msgs)
	if len(locs) != 1 || locs[0] != (models.LocationPayload{X: 1, Y: 2, D: 0}) {
		t.Errorf("Expected only location (1,2,N) before finish, got %+v", locs)
	}

	// 실행이 끝난 뒤의 ACK
	h.robot.Send("ACK")
	waitFor(t, "late ACK", func() bool { return h.orch.acks.Load() == 4 })
	h.expect(t, constants.MessageTypeGeneral, constants.MsgStitched)

	snap := h.orch.Snapshot()
	if snap.State != StateFinished || snap.LockHeld {
		t.Errorf("Expected finished state with lock free, got %+v", snap)
	}
	if snap.Location != (models.LocationPayload{X: 1, Y: 2, D: 0}) {
		t.Errorf("Expected location (1,2,N), got %+v", snap.Location)
	}
	acquires, releases := h.orch.State().Lock.Counts()
	if acquires != 3 || releases != 3 {
		t.Errorf("Expected 3 acquires and 3 releases, got %d/%d", acquires, releases)
	}
}
