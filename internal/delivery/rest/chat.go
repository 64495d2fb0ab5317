package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/chat"
	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMsgSize = 4096
)

type chatInput struct {
	Text string `json:"text"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	userID := userFrom(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	messages, unsubscribe := h.hub.Subscribe(room)
	defer unsubscribe()

	h.logger.Info("chat connected", zap.String("user_id", userID), zap.String("room", room))
	defer h.logger.Info("chat disconnected", zap.String("user_id", userID), zap.String("room", room))

	readDone := make(chan struct{})
	go h.readChat(conn, room, userID, readDone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case msg, ok := <-messages:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readChat(conn *websocket.Conn, room, userID string, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in chatInput
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("chat read failed", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}

		_, err := h.hub.Publish(entities.ChatMessage{Room: room, Sender: userID, Text: in.Text})
		if err != nil && !errors.Is(err, chat.ErrEmptyMessage) {
			h.logger.Error("chat publish failed", zap.String("room", room), zap.Error(err))
			return
		}
	}
}
