package stream

import (
	"context"
	"fmt"
	"log"

	"github.com/goccy/go-json"

	"classifier_server/adapter/in/worker"
)

type Consumer struct {
	stream *RedisStream
	pool   *worker.Pool
	name   string
}

func NewConsumer(stream *RedisStream, pool *worker.Pool, name string) *Consumer {
	return &Consumer{
		stream: stream,
		pool:   pool,
		name:   name,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	if err := c.stream.CreateGroup(ctx, StreamClassify); err != nil {
		log.Printf("Failed to create group for %s: %v", StreamClassify, err)
	}

	go c.consume(ctx, StreamClassify)
}

func (c *Consumer) consume(ctx context.Context, stream string) {
	c.stream.Consume(ctx, stream, c.name, func(id string, data []byte) error {
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			log.Printf("Failed to unmarshal job: %v", err)
			return err
		}

		msg := &worker.Message{
			ID:        job.ID,
			Type:      job.Type,
			Payload:   job.Payload,
			CreatedAt: job.CreatedAt,
		}

		// Unsubmitted messages stay pending and get redelivered.
		if !c.pool.Submit(msg) {
			return fmt.Errorf("pool rejected job %s", job.ID)
		}
		return nil
	})
}
