package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher writes events as JSON records keyed by object identifier,
// so all events for one object land on the same partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(client *kgo.Client, topic string) (*KafkaPublisher, error) {
	if client == nil {
		return nil, errors.New("kafka client is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	rec, err := Record(p.topic, event)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", event.ID, err)
	}
	return nil
}

// Record renders event as a Kafka record for topic.
func Record(topic string, event Event) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.ObjectID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
	}, nil
}
