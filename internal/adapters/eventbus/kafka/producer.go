// Package kafka はドメインイベントを Kafka トピックへ送信します。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/platform/config"
)

const (
	headerEventName     = "event-name"
	headerAggregateType = "aggregate-type"
	headerEventID       = "event-id"
)

type producerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// Producer はエンコード済みイベントを同期送信します。
type Producer struct {
	client producerClient
	topic  string
}

// NewProducer は設定から Producer を生成します。
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: new client: %w", err)
	}
	return &Producer{client: client, topic: cfg.Topic}, nil
}

// Send はイベントを集約キー付きのレコードとして送信し、全件の書き込み完了を待ちます。
func (p *Producer) Send(ctx context.Context, envelopes ...event.Envelope) error {
	if len(envelopes) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(envelopes))
	for _, env := range envelopes {
		record, err := p.record(env)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce: %w", err)
	}
	return nil
}

func (p *Producer) record(env event.Envelope) (*kgo.Record, error) {
	value, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("kafka: encode %s: %w", env.Name, err)
	}
	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(env.Key()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerEventName, Value: []byte(env.Name)},
			{Key: headerAggregateType, Value: []byte(env.AggregateType)},
			{Key: headerEventID, Value: []byte(env.ID)},
		},
	}, nil
}

// Health はブローカーへの疎通を確認します。
func (p *Producer) Health(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close はクライアントを閉じ、送信中のレコードを破棄します。
func (p *Producer) Close() {
	p.client.Close()
}
