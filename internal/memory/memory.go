// Package memory keeps the bounded conversation history of one session.
package memory

import (
	"fmt"
	"strings"
	"sync"

	"resume-rag/internal/models"
)

// Buffer is a fixed-capacity FIFO ring of conversation turns. Once full, every
// append overwrites the oldest turn.
type Buffer struct {
	mu    sync.Mutex
	turns []models.Turn
	head  int // index of the oldest turn
	size  int
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = models.DefaultMemorySize
	}
	return &Buffer{turns: make([]models.Turn, capacity)}
}

func (b *Buffer) Capacity() int { return len(b.turns) }

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Append adds a turn, evicting the oldest one when the buffer is full
func (b *Buffer) Append(turns ...models.Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	capacity := len(b.turns)
	for _, t := range turns {
		if b.size < capacity {
			b.turns[(b.head+b.size)%capacity] = t
			b.size++
			continue
		}
		b.turns[b.head] = t
		b.head = (b.head + 1) % capacity
	}
}

// Turns returns a copy of the buffered turns, oldest first
func (b *Buffer) Turns() []models.Turn {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Turn, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.turns[(b.head+i)%len(b.turns)]
	}
	return out
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.turns)
	b.head = 0
	b.size = 0
}

// Summary reports the message count and the number of complete exchanges.
// An odd count (an exchange cut short) rounds down.
func (b *Buffer) Summary() models.MemorySummary {
	n := b.Len()
	return models.MemorySummary{TotalMessages: n, ExchangeCount: n / 2}
}

// Transcript renders the history for the answer prompt; empty when there is none
func (b *Buffer) Transcript() string {
	turns := b.Turns()
	if len(turns) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Conversation History:\n")
	for _, t := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", speaker(t.Role), t.Content)
	}
	sb.WriteString("\n")
	return sb.String()
}

func speaker(role models.Role) string {
	switch role {
	case models.RoleUser:
		return "User"
	case models.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}
