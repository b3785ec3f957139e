package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingAck struct {
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *recordingAck) Ack(tag uint64, _ bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *recordingAck) Nack(tag uint64, _ bool, requeue bool) error {
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestProcess(t *testing.T) {
	failing := func(err error) Handler {
		return func(context.Context, string, []byte) error { return err }
	}

	tests := []struct {
		name        string
		redelivered bool
		handler     Handler
		wantAck     bool
		wantRequeue bool
	}{
		{name: "success acks", handler: failing(nil), wantAck: true},
		{name: "first failure requeues", handler: failing(errors.New("db down")), wantRequeue: true},
		{name: "second failure drops", redelivered: true, handler: failing(errors.New("db down"))},
		{name: "permanent failure drops", handler: failing(ErrPermanent)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &recordingAck{}
			msg := amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, RoutingKey: "order.paid", Redelivered: tt.redelivered}

			process(context.Background(), zap.NewNop(), msg, tt.handler)

			if tt.wantAck {
				assert.Equal(t, []uint64{7}, ack.acked)
				assert.Empty(t, ack.nacked)
				return
			}
			assert.Empty(t, ack.acked)
			assert.Equal(t, []bool{tt.wantRequeue}, ack.requeue)
		})
	}
}

func TestProcess_PassesRoutingKeyAndBody(t *testing.T) {
	var gotKey, gotBody string
	msg := amqp.Delivery{Acknowledger: &recordingAck{}, RoutingKey: "order.paid", Body: []byte(`{"orderId":"o1"}`)}
	process(context.Background(), zap.NewNop(), msg, func(_ context.Context, key string, body []byte) error {
		gotKey, gotBody = key, string(body)
		return nil
	})
	assert.Equal(t, "order.paid", gotKey)
	assert.JSONEq(t, `{"orderId":"o1"}`, gotBody)
}
