// Package event はドメインイベントとその収集・配信の抽象を提供します。
package event

import (
	"context"
	"time"
)

// Event は状態変更を表す不変の事実です。Name は "<Entity><Action>Event" 形式です。
type Event struct {
	ID            string
	Name          string
	AggregateType string
	AggregateID   string
	OccurredAt    time.Time
	// Entity は発行時点のエンティティのスナップショットです。
	Entity any
}

// Sink はエンティティ操作が発生させたイベントを受け取ります。
type Sink interface {
	Record(Event)
}

// SinkFunc は関数を Sink として扱うためのアダプタです。
type SinkFunc func(Event)

func (f SinkFunc) Record(e Event) {
	f(e)
}

// Publisher は収集済みイベントを外部へ配信します。
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// PublisherFunc は関数を Publisher として扱うためのアダプタです。
type PublisherFunc func(ctx context.Context, events ...Event) error

func (f PublisherFunc) Publish(ctx context.Context, events ...Event) error {
	return f(ctx, events...)
}

// Discard はイベントを破棄する Publisher です。
var Discard Publisher = PublisherFunc(func(context.Context, ...Event) error { return nil })

// New はイベントを生成します。ID と発生時刻は Sink 側で補われます。
func New(name, aggregateType, aggregateID string, snapshot any) Event {
	return Event{
		Name:          name,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Entity:        snapshot,
	}
}
