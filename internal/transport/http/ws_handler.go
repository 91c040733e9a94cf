package http

import (
	"log"
	"net/http"

	"daily-trivia-service/internal/app"
	"github.com/gorilla/websocket"
)

// LeaderboardFeed streams weekly leaderboard snapshots over a websocket:
// one on connect, then one whenever a player's day is finalized.
type LeaderboardFeed struct {
	board    *app.LeaderboardAggregator
	upgrader websocket.Upgrader
}

func NewLeaderboardFeed(board *app.LeaderboardAggregator) *LeaderboardFeed {
	return &LeaderboardFeed{
		board: board,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and forwards leaderboard updates until
// the client disconnects.
func (h *LeaderboardFeed) ServeWS(w http.ResponseWriter, r *http.Request) {
	updates, cancel, err := h.board.Watch(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Reader goroutine only detects disconnects; clients send nothing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				log.Printf("[ws] write error: %v", err)
				return
			}
		case <-gone:
			return
		}
	}
}
