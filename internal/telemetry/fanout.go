// Package telemetry mirrors outbound control messages to observers outside the
// control link: websocket clients, an MQTT broker and a redis snapshot.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"robot-pipeline/internal/interfaces"
	"robot-pipeline/internal/models"
)

const fanoutBuffer = 256

// Event 텔레메트리로 내보내는 제어 메시지 한 건
type Event struct {
	RunID string          `json:"run_id"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
	At    time.Time       `json:"at"`
}

// NewEvent 제어 메시지로부터 이벤트 생성
func NewEvent(runID string, msg models.ControlMessage) Event {
	return Event{RunID: runID, Type: msg.Type, Value: msg.Value, At: time.Now().UTC()}
}

// Fanout 관찰한 메시지를 버퍼에 넣고 Run 루프에서 각 sink로 전달
type Fanout struct {
	sinks  []interfaces.TelemetrySink
	logger interfaces.Logger
	events chan observed
}

type observed struct {
	runID string
	msg   models.ControlMessage
}

// NewFanout 새 fan-out 생성
func NewFanout(logger interfaces.Logger, sinks ...interfaces.TelemetrySink) *Fanout {
	return &Fanout{
		sinks:  sinks,
		logger: logger,
		events: make(chan observed, fanoutBuffer),
	}
}

// AddSink Run 시작 전에만 호출
func (f *Fanout) AddSink(sink interfaces.TelemetrySink) {
	f.sinks = append(f.sinks, sink)
}

// Observe 호출자를 블록하지 않음. 버퍼가 가득 차면 버리고 경고
func (f *Fanout) Observe(runID string, msg models.ControlMessage) {
	select {
	case f.events <- observed{runID, msg}:
	default:
		f.logger.Warnf("⚠️ Telemetry buffer full, dropping %s message", msg.Type)
	}
}

// Run ctx가 취소될 때까지 이벤트를 sink로 전달
func (f *Fanout) Run(ctx context.Context) {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	f.logger.Infof("📡 Telemetry fan-out running with sinks %v", names)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-f.events:
			for _, sink := range f.sinks {
				if err := sink.Publish(ctx, ev.runID, ev.msg); err != nil {
					f.logger.Warnf("Telemetry sink %s failed on %s: %v", sink.Name(), ev.msg.Type, err)
				}
			}
		}
	}
}
