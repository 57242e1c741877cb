package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Buffer は 1 ユースケース分のイベントを保持する Sink です。
// ID と発生時刻が未設定のイベントには記録時に値を補います。
type Buffer struct {
	mu     sync.Mutex
	now    func() time.Time
	events []Event
}

// NewBuffer は空の Buffer を生成します。now が nil の場合は UTC の現在時刻を使います。
func NewBuffer(now func() time.Time) *Buffer {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Buffer{now: now}
}

func (b *Buffer) Record(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		if b.now == nil {
			b.now = func() time.Time { return time.Now().UTC() }
		}
		e.OccurredAt = b.now()
	}
	b.events = append(b.events, e)
}

// Events は保持中のイベントのコピーを返します。
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Drain は保持中のイベントを返して空にします。
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Names は保持中のイベント名を記録順に返します。
func (b *Buffer) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.events))
	for _, e := range b.events {
		names = append(names, e.Name)
	}
	return names
}

// Flush は保持中のイベントを publisher へ渡し、成功した場合のみ破棄します。
func (b *Buffer) Flush(ctx context.Context, publisher Publisher) error {
	pending := b.Events()
	if len(pending) == 0 || publisher == nil {
		return nil
	}
	if err := publisher.Publish(ctx, pending...); err != nil {
		return err
	}
	b.mu.Lock()
	b.events = b.events[len(pending):]
	b.mu.Unlock()
	return nil
}
