package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"Veritas/internal/domain/models"
	pkgkafka "Veritas/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProducer struct {
	topic string
	msgs  []pkgkafka.Message
}

func (r *recordingProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	r.topic = topic
	r.msgs = append(r.msgs, msgs...)
	return nil
}

type sinkFunc func(context.Context, models.VerdictEvent) error

func (f sinkFunc) PublishVerdict(ctx context.Context, ev models.VerdictEvent) error {
	return f(ctx, ev)
}

func TestKafkaVerdictPublisher_KeysByKind(t *testing.T) {
	rp := &recordingProducer{}
	p := &KafkaVerdictPublisher{producer: rp, topic: "risk.verdicts"}

	ev := models.VerdictEvent{ID: "e1", RequestID: "r1", Kind: models.KindKYC, Verdict: map[string]int{"x": 1}, EmittedAt: 10}
	require.NoError(t, p.PublishVerdict(context.Background(), ev))

	assert.Equal(t, "risk.verdicts", rp.topic)
	require.Len(t, rp.msgs, 1)
	assert.Equal(t, "kyc", string(rp.msgs[0].Key))
	assert.Equal(t, "r1", rp.msgs[0].Headers[pkgkafka.HeaderRequestID])

	b, err := json.Marshal(rp.msgs[0].Value)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"e1","request_id":"r1","kind":"kyc","verdict":{"x":1},"emitted_at":10}`, string(b))
}

func TestFanoutPublisher_DeliversToAllAndJoinsErrors(t *testing.T) {
	var got []string
	boom := errors.New("boom")
	f := NewFanoutPublisher(
		sinkFunc(func(_ context.Context, ev models.VerdictEvent) error { got = append(got, "a:"+ev.ID); return nil }),
		nil,
		sinkFunc(func(context.Context, models.VerdictEvent) error { return boom }),
		sinkFunc(func(_ context.Context, ev models.VerdictEvent) error { got = append(got, "c:"+ev.ID); return nil }),
	)
	// the nil sink is dropped rather than dereferenced
	err := f.PublishVerdict(context.Background(), models.VerdictEvent{ID: "1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a:1", "c:1"}, got)
}
