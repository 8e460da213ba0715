package main

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/strataml/strata"
)

// progress is one monitor event.
type progress struct {
	Iteration uint32  `json:"iteration"`
	Layer     int     `json:"layer"`
	Layers    int     `json:"layers"`
	Score     float32 `json:"score"`
	Complete  bool    `json:"complete"`
}

var upgrader = websocket.Upgrader{} // use default options

// wsMonitor feeds training progress events to websocket clients.
type wsMonitor struct {
	events chan progress
}

func newWsMonitor() *wsMonitor {
	return &wsMonitor{events: make(chan progress, 8)}
}

func (m *wsMonitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer c.Close()
	for {
		select {
		case ev := <-m.events:
			if err := c.WriteJSON(ev); err != nil {
				log.Println("write:", err)
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// push queues an event without ever stalling the training loop; with nobody
// connected, events drop.
func (m *wsMonitor) push(s *strata.Stack) {
	score, _ := s.AvgScore()
	ev := progress{
		Iteration: s.Iterations(),
		Layer:     s.CurrentLayer(),
		Layers:    s.Layers(),
		Score:     score,
		Complete:  s.TrainingComplete(),
	}
	select {
	case m.events <- ev:
	default:
	}
}
