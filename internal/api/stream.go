package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// AlertEvent is one message on the alert stream. Only analyses that crossed
// the review threshold are published.
type AlertEvent struct {
	ClaimID        string             `json:"claim_id"`
	ClaimNumber    string             `json:"claim_number"`
	RiskScore      float64            `json:"risk_score"`
	Status         domain.ClaimStatus `json:"status"`
	Recommendation string             `json:"recommendation"`
	Flags          []domain.FraudFlag `json:"flags,omitempty"`
	AnalyzedAt     time.Time          `json:"analyzed_at"`
}

// AlertHub fans analysis events out to websocket subscribers. Slow or dead
// subscribers are dropped rather than blocking publishers.
type AlertHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]chan AlertEvent
	closed   bool
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// NewAlertHub creates an alert hub.
func NewAlertHub(logger *logrus.Logger) *AlertHub {
	return &AlertHub{
		clients: make(map[*websocket.Conn]chan AlertEvent),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: logger,
	}
}

// Subscribe upgrades the request to a websocket and streams alert events
// until the peer disconnects.
func (h *AlertHub) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithFields(logrus.Fields{"error": err.Error()}).Warn("Websocket upgrade failed")
		return
	}

	events := make(chan AlertEvent, 16)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = events
	h.mu.Unlock()

	// Reader goroutine: its only job is to observe the close
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()

	go func() {
		for event := range events {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				h.remove(conn)
				return
			}
		}
		conn.Close()
	}()
}

// Publish broadcasts one flagged analysis to all subscribers. Analyses below
// the review threshold are dropped silently.
func (h *AlertHub) Publish(claim *domain.Claim, analysis *domain.CompositeAnalysis) {
	if analysis.FinalStatus != domain.StatusFlaggedReview &&
		analysis.FinalStatus != domain.StatusFlaggedCritical {
		return
	}

	event := AlertEvent{
		ClaimID:        analysis.ClaimID,
		ClaimNumber:    claim.ClaimNumber,
		RiskScore:      analysis.CompositeRiskScore,
		Status:         analysis.FinalStatus,
		Recommendation: analysis.Recommendation,
		Flags:          analysis.AllFlags(),
		AnalyzedAt:     analysis.AnalyzedAt,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, events := range h.clients {
		select {
		case events <- event:
		default:
			delete(h.clients, conn)
			close(events)
		}
	}
}

// Close disconnects every subscriber.
func (h *AlertHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, events := range h.clients {
		delete(h.clients, conn)
		close(events)
	}
}

func (h *AlertHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if events, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(events)
	}
	conn.Close()
}
