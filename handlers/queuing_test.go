package handlers

import "testing"

func TestMessageQueueDropsOldest(t *testing.T) {
	mq := NewMessageQueue(2)
	if mq.Enqueue("c", []byte("1")) || mq.Enqueue("c", []byte("2")) {
		t.Fatalf("dropped before the limit")
	}
	if !mq.Enqueue("c", []byte("3")) {
		t.Fatalf("expected a drop at the limit")
	}
	if mq.QueueSize("c") != 2 {
		t.Fatalf("size = %d", mq.QueueSize("c"))
	}
	for _, want := range []string{"2", "3"} {
		got, err := mq.Dequeue("c")
		if err != nil || string(got) != want {
			t.Fatalf("dequeue = %q, %v; want %q", got, err, want)
		}
	}
	if _, err := mq.Dequeue("c"); err == nil {
		t.Fatalf("dequeue from empty queue succeeded")
	}
}

func TestMessageQueueIsPerClient(t *testing.T) {
	mq := NewMessageQueue(0)
	mq.Enqueue("a", []byte("x"))
	mq.Enqueue("b", []byte("y"))
	mq.ClearQueue("a")
	if mq.QueueSize("a") != 0 || mq.QueueSize("b") != 1 {
		t.Fatalf("sizes a=%d b=%d", mq.QueueSize("a"), mq.QueueSize("b"))
	}
}
