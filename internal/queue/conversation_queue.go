package queue

import "fmt"

// ConversationQueue holds the pending updates of one user. At most one of
// them is in flight at a time. It is not safe for concurrent use; the
// Manager guards every queue with its own lock.
type ConversationQueue struct {
	pending  []*Message
	inFlight *Message
	userID   int64
}

// NewConversationQueue creates a queue for userID.
func NewConversationQueue(userID int64) *ConversationQueue {
	return &ConversationQueue{userID: userID}
}

// Enqueue appends msg.
func (cq *ConversationQueue) Enqueue(msg *Message) error {
	switch {
	case msg == nil:
		return fmt.Errorf("cannot enqueue nil message")
	case msg.UserID != cq.userID:
		return fmt.Errorf("message user %d does not match queue user %d", msg.UserID, cq.userID)
	}
	cq.pending = append(cq.pending, msg)
	return nil
}

// Dequeue moves the oldest pending message in flight and returns it. It
// returns nil while another message is in flight or nothing is pending.
func (cq *ConversationQueue) Dequeue() *Message {
	if cq.inFlight != nil || len(cq.pending) == 0 {
		return nil
	}
	msg := cq.pending[0]
	cq.pending[0] = nil
	cq.pending = cq.pending[1:]
	cq.inFlight = msg
	return msg
}

// Requeue puts the in-flight msg back at the head of the queue.
func (cq *ConversationQueue) Requeue(msg *Message) error {
	if msg == nil || msg != cq.inFlight {
		return fmt.Errorf("message is not in flight for user %d", cq.userID)
	}
	cq.inFlight = nil
	cq.pending = append([]*Message{msg}, cq.pending...)
	return nil
}

// Complete releases the in-flight slot.
func (cq *ConversationQueue) Complete() { cq.inFlight = nil }

// Size returns the number of pending messages.
func (cq *ConversationQueue) Size() int { return len(cq.pending) }

// IsProcessing reports whether a message is in flight.
func (cq *ConversationQueue) IsProcessing() bool { return cq.inFlight != nil }

// IsEmpty reports whether nothing is pending or in flight.
func (cq *ConversationQueue) IsEmpty() bool {
	return len(cq.pending) == 0 && cq.inFlight == nil
}
