package kafka

import (
	"context"
	"encoding/json"
	"log"

	"marketplace-order-service/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("[OrderPipeline][KafkaProducer] initialized topic=%s brokers=%v", topic, brokers)
	return &Producer{writer: w, topic: topic}
}

// PublishOrderEvent publishes a domain event keyed by the external transaction
// id so redeliveries of the same checkout land on the same partition.
func (p *Producer) PublishOrderEvent(event models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.ExternalTransactionID),
		Value: data,
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Printf("[OrderPipeline][KafkaProducer] failed to publish %s order=%s err=%v", event.Type, event.OrderID, err)
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	log.Printf("[OrderPipeline][KafkaProducer] closing writer topic=%s", p.topic)
	return p.writer.Close()
}
