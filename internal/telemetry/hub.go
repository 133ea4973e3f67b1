package telemetry

import (
	"context"
	"encoding/json"
	"sync"

	"robot-pipeline/internal/interfaces"
	"robot-pipeline/internal/models"
)

// Hub 웹소켓 클라이언트 집합에 이벤트를 브로드캐스트
type Hub struct {
	logger interfaces.Logger

	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu    sync.RWMutex
	count int
}

// NewHub 새 허브 생성. Run을 별도 고루틴에서 호출해야 함
func NewHub(logger interfaces.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, fanoutBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Name() string {
	return "websocket"
}

// Run 등록/해제/브로드캐스트 루프. ctx 취소 시 모든 클라이언트를 닫음
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount()
			h.logger.Infof("🔌 Telemetry client connected (%d total)", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Infof("🔌 Telemetry client disconnected (%d remaining)", len(h.clients))
			}

		case data := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					h.drop(client)
					h.logger.Warnf("⚠️ Dropped slow telemetry client")
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Publish 이벤트를 JSON으로 인코딩해 브로드캐스트. 채널이 가득 차면 버림
func (h *Hub) Publish(ctx context.Context, runID string, msg models.ControlMessage) error {
	data, err := json.Marshal(NewEvent(runID, msg))
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warnf("⚠️ Telemetry broadcast channel full, dropping %s message", msg.Type)
	}
	return nil
}

// ClientCount 연결된 클라이언트 수
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
