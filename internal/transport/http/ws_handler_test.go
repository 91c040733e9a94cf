package http

import (
	"context"
	"testing"
	"time"

	"daily-trivia-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestLeaderboardFeedStreamsUpdates(t *testing.T) {
	f := newFixture(t)

	u := "ws" + f.server.URL[len("http"):] + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives on connect.
	initial := readSnapshot(conn, t)
	if initial.TotalPlayers != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	if err := f.board.RecordDay(context.Background(), "u1", f.dayKey, 55, 4); err != nil {
		t.Fatalf("record: %v", err)
	}

	update := readSnapshot(conn, t)
	if update.TotalPlayers != 1 {
		t.Fatalf("expected one player after record, got %+v", update)
	}
	if update.Entries[0].WeeklyScore != 55 {
		t.Fatalf("expected score 55 in broadcast, got %+v", update.Entries[0])
	}
	if update.Entries[0].DisplayName != "Alice" {
		t.Fatalf("expected resolved name in broadcast, got %q", update.Entries[0].DisplayName)
	}
}

func readSnapshot(conn *websocket.Conn, t *testing.T) domain.WeeklyLeaderboard {
	t.Helper()
	var snapshot domain.WeeklyLeaderboard
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	return snapshot
}
