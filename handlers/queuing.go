// Package handlers queuing.go holds frames a client's send buffer had no room for.
package handlers

import (
	"fmt"
	"sync"
)

// DefaultQueueLimit bounds the overflow frames kept per client.
const DefaultQueueLimit = 64

// MessageQueue is a bounded per-client FIFO. When a client's queue is full the
// oldest frame is discarded; snapshots carry full state, so only the newest
// frames matter.
type MessageQueue struct {
	mu       sync.Mutex
	limit    int
	messages map[string][][]byte // map of client ID to message queue
}

func NewMessageQueue(limit int) *MessageQueue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &MessageQueue{
		limit:    limit,
		messages: make(map[string][][]byte),
	}
}

// Enqueue appends message and reports whether an older frame was dropped to
// make room for it.
func (mq *MessageQueue) Enqueue(clientID string, message []byte) (dropped bool) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	q := mq.messages[clientID]
	if len(q) >= mq.limit {
		q = q[1:]
		dropped = true
	}
	mq.messages[clientID] = append(q, message)
	return dropped
}

func (mq *MessageQueue) Dequeue(clientID string) ([]byte, error) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	messages, ok := mq.messages[clientID]
	if !ok || len(messages) == 0 {
		return nil, fmt.Errorf("no messages for client %s", clientID)
	}

	message := messages[0]
	mq.messages[clientID] = messages[1:]

	return message, nil
}

func (mq *MessageQueue) QueueSize(clientID string) int {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	return len(mq.messages[clientID])
}

func (mq *MessageQueue) ClearQueue(clientID string) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	delete(mq.messages, clientID)
}
