package vision

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"robot-pipeline/internal/link"
	"robot-pipeline/internal/models"
	"robot-pipeline/internal/utils"
)

func init() {
	utils.SetOutput(io.Discard)
}

// companion 트리거를 받으면 reply를 돌려주는 가짜 비전 컴퓨터
func companion(t *testing.T, peer link.Link, reply string, triggers chan<- string) {
	t.Helper()
	go func() {
		trigger, err := peer.Receive()
		if err != nil {
			return
		}
		triggers <- trigger
		peer.Send(reply)
	}()
}

func TestCaptureParsesResponses(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		lateral    models.Lateral
		trigger    string
		imageID    string
		recognized bool
	}{
		{"json", `{"image_id":"38","obstacle_id":"5"}`, models.LateralLeft, "Capture_L", "38", true},
		{"bare token", "20", models.LateralNone, "Capture", "20", true},
		{"not recognized", "NA", models.LateralCenter, "Capture_C", "NA", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, peer := link.Pipe("vision", "companion")
			triggers := make(chan string, 1)
			companion(t, peer, tt.reply, triggers)

			client := NewClient(local, "Capture")
			rec, err := client.Capture(context.Background(), 5, tt.lateral)
			if err != nil {
				t.Fatalf("Capture failed: %v", err)
			}

			if got := <-triggers; got != tt.trigger {
				t.Errorf("Expected trigger '%s', got '%s'", tt.trigger, got)
			}
			if rec.ImageID != tt.imageID {
				t.Errorf("Expected image id '%s', got '%s'", tt.imageID, rec.ImageID)
			}
			if rec.ObstacleID != "5" {
				t.Errorf("Expected obstacle id '5', got '%s'", rec.ObstacleID)
			}
			if rec.Recognized() != tt.recognized {
				t.Errorf("Expected recognized=%v for '%s'", tt.recognized, rec.ImageID)
			}
		})
	}
}

func TestCaptureTransportError(t *testing.T) {
	local, _ := link.Pipe("vision", "companion")
	local.Fail(errors.New("socket reset"))

	_, err := NewClient(local, "Capture").Capture(context.Background(), 1, models.LateralNone)
	if !errors.Is(err, link.ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestCaptureCancelled(t *testing.T) {
	local, _ := link.Pipe("vision", "companion")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(local, "Capture").Capture(ctx, 1, models.LateralNone)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestCaptureDiscardsReplyOfCancelledCapture(t *testing.T) {
	local, peer := link.Pipe("vision", "companion")
	client := NewClient(local, "Capture")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Capture(ctx, 1, models.LateralNone); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got %v", err)
	}

	// 취소된 촬영에 대한 늦은 응답
	if trigger, err := peer.Receive(); err != nil || trigger != "Capture" {
		t.Fatalf("Expected first trigger 'Capture', got '%s' (%v)", trigger, err)
	}
	peer.Send("99")

	triggers := make(chan string, 1)
	companion(t, peer, "20", triggers)

	rec, err := client.Capture(context.Background(), 2, models.LateralRight)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if got := <-triggers; got != "Capture_R" {
		t.Errorf("Expected trigger 'Capture_R', got '%s'", got)
	}
	if rec.ImageID != "20" || rec.ObstacleID != "2" {
		t.Errorf("Expected image 20 for obstacle 2, got %+v", rec)
	}
}
