package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type recordingAck struct {
	acked  int
	nacked int
}

func (r *recordingAck) Ack(tag uint64, multiple bool) error {
	r.acked++
	return nil
}

func (r *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	r.nacked++
	return nil
}

func (r *recordingAck) Reject(tag uint64, requeue bool) error {
	r.nacked++
	return nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, msg any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestHandleDeliveryAcksOnSuccess(t *testing.T) {
	ack := &recordingAck{}
	var got Message
	handleDelivery(context.Background(), delivery(t, ack, Message{To: "a@b.c", Subject: "s", Body: "b"}), func(ctx context.Context, m Message) error {
		got = m
		return nil
	})

	if ack.acked != 1 || ack.nacked != 0 {
		t.Fatalf("want 1 ack, got ack=%d nack=%d", ack.acked, ack.nacked)
	}
	if got.To != "a@b.c" || got.Subject != "s" {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestHandleDeliveryNacksOnHandlerError(t *testing.T) {
	ack := &recordingAck{}
	handleDelivery(context.Background(), delivery(t, ack, Message{To: "a@b.c"}), func(ctx context.Context, m Message) error {
		return errors.New("smtp down")
	})
	if ack.nacked != 1 || ack.acked != 0 {
		t.Fatalf("want 1 nack, got ack=%d nack=%d", ack.acked, ack.nacked)
	}
}

func TestHandleDeliveryNacksOnGarbage(t *testing.T) {
	ack := &recordingAck{}
	called := false
	handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")}, func(ctx context.Context, m Message) error {
		called = true
		return nil
	})
	if called {
		t.Fatalf("handler must not run for undecodable payload")
	}
	if ack.nacked != 1 {
		t.Fatalf("want nack, got %d", ack.nacked)
	}
}
