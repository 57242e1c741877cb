package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope は永続化・ブローカー送信用にエンコードしたイベントです。
type Envelope struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Encode はイベントのエンティティスナップショットを JSON に変換します。
func Encode(e Event) (Envelope, error) {
	payload, err := json.Marshal(e.Entity)
	if err != nil {
		return Envelope{}, fmt.Errorf("event: encode %s: %w", e.Name, err)
	}
	return Envelope{
		ID:            e.ID,
		Name:          e.Name,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		OccurredAt:    e.OccurredAt,
		Payload:       payload,
	}, nil
}

// Key はパーティショニングに用いるキーを返します。
func (e Envelope) Key() string {
	return e.AggregateType + ":" + e.AggregateID
}
