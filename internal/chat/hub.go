package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

// AssistantSender is the sender name of simulated replies.
const AssistantSender = "assistant"

const defaultBufferSize = 16

var (
	ErrEmptyMessage = errors.New("empty chat message")
	ErrHubClosed    = errors.New("chat hub closed")
)

type subscriber struct {
	ch chan entities.ChatMessage
}

// Hub is an in-process pub/sub of chat rooms. Publishing never blocks:
// a subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*subscriber]struct{}
	closed bool
	done   chan struct{}

	bufferSize int
	echoDelay  time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewHub creates a hub. With a positive echoDelay every user message
// is answered by the assistant after that delay.
func NewHub(bufferSize int, echoDelay time.Duration, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		rooms:      make(map[string]map[*subscriber]struct{}),
		done:       make(chan struct{}),
		bufferSize: bufferSize,
		echoDelay:  echoDelay,
		logger:     logger,
		now:        time.Now,
	}
}

// Subscribe registers for messages of room. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(room string) (<-chan entities.ChatMessage, func()) {
	sub := &subscriber{ch: make(chan entities.ChatMessage, h.bufferSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*subscriber]struct{})
	}
	h.rooms[room][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { h.unsubscribe(room, sub) })
	}
}

// Publish stamps msg with an id and time and delivers it to the room.
func (h *Hub) Publish(msg entities.ChatMessage) (entities.ChatMessage, error) {
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.Text == "" {
		return entities.ChatMessage{}, ErrEmptyMessage
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = h.now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return entities.ChatMessage{}, ErrHubClosed
	}

	for sub := range h.rooms[msg.Room] {
		select {
		case sub.ch <- msg:
		default:
			h.logger.Warn("chat subscriber too slow, dropping message",
				zap.String("room", msg.Room),
				zap.String("message_id", msg.ID),
			)
		}
	}

	if h.echoDelay > 0 && msg.Sender != AssistantSender {
		h.scheduleReply(msg)
	}

	return msg, nil
}

// Subscribers returns the number of subscribers of room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close stops pending replies and closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	close(h.done)

	for room, subs := range h.rooms {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.rooms, room)
	}
}

func (h *Hub) unsubscribe(room string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}

	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) scheduleReply(msg entities.ChatMessage) {
	reply := entities.ChatMessage{
		Room:   msg.Room,
		Sender: AssistantSender,
		Text:   "Received: " + msg.Text,
	}

	go func() {
		select {
		case <-time.After(h.echoDelay):
		case <-h.done:
			return
		}

		if _, err := h.Publish(reply); err != nil && !errors.Is(err, ErrHubClosed) {
			h.logger.Error("failed to publish chat reply", zap.Error(err))
		}
	}()
}
