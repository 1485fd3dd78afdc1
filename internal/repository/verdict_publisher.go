package repository

import (
	"context"
	"errors"

	"Veritas/internal/domain/models"
	domsvc "Veritas/internal/domain/service"
	pkgkafka "Veritas/pkg/kafka"
)

type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaVerdictPublisher writes verdict events to the verdicts topic keyed by kind.
type KafkaVerdictPublisher struct {
	producer batchPublisher
	topic    string
}

func NewKafkaVerdictPublisher(producer *pkgkafka.Producer, topic string) *KafkaVerdictPublisher {
	return &KafkaVerdictPublisher{producer: producer, topic: topic}
}

func (p *KafkaVerdictPublisher) PublishVerdict(ctx context.Context, ev models.VerdictEvent) error {
	msg := pkgkafka.Message{Key: []byte(ev.Kind), Value: ev}
	if ev.RequestID != "" {
		msg.Headers = map[string]string{pkgkafka.HeaderRequestID: ev.RequestID}
	}
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{msg})
}

// FanoutPublisher delivers each event to every sink and joins their errors.
type FanoutPublisher struct {
	sinks []domsvc.VerdictPublisher
}

// NewFanoutPublisher drops nil sinks.
func NewFanoutPublisher(sinks ...domsvc.VerdictPublisher) *FanoutPublisher {
	f := &FanoutPublisher{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *FanoutPublisher) PublishVerdict(ctx context.Context, ev models.VerdictEvent) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.PublishVerdict(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domsvc.VerdictPublisher = (*KafkaVerdictPublisher)(nil)
	_ domsvc.VerdictPublisher = (*FanoutPublisher)(nil)
)
