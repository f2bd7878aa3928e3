package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestPublishSendsKeyedJSONWithTraceHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	producer := mocks.NewSyncProducer(t, nil)
	var sent *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})

	pub := NewPublisher(producer, "order_events", zaptest.NewLogger(t))

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	err := pub.Publish(ctx, "42", map[string]any{"event_type": "order_created", "order_id": 42})
	span.End()
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if sent.Topic != "order_events" {
		t.Errorf("Expected topic order_events, got %s", sent.Topic)
	}
	key, _ := sent.Key.Encode()
	if string(key) != "42" {
		t.Errorf("Expected key 42, got %s", key)
	}

	value, _ := sent.Value.Encode()
	var body map[string]any
	if err := json.Unmarshal(value, &body); err != nil || body["event_type"] != "order_created" {
		t.Errorf("Unexpected payload %s (%v)", value, err)
	}

	carrier := headerCarrier(sent.Headers)
	if carrier.Get("traceparent") == "" {
		t.Errorf("Expected traceparent header, got keys %v", carrier.Keys())
	}
}

func TestPublishReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(errors.New("broker unavailable"))

	pub := NewPublisher(producer, "order_events", zaptest.NewLogger(t))
	if err := pub.Publish(context.Background(), "1", struct{}{}); err == nil {
		t.Fatal("Expected send error")
	}
}
