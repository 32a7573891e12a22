package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"

	"github.com/segmentio/kafka-go"
)

func hookLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestConsumeLogHook_StampsStartTimeAndTraceID(t *testing.T) {
	hook := NewConsumeLogHook(hookLogger(t))

	km := kafka.Message{
		Partition: 2,
		Offset:    41,
		Headers:   []kafka.Header{{Key: "trace_id", Value: []byte("abc-123")}},
	}
	ctx, _, data, err := hook.BeforeHandle(context.Background(), "bars", km, []byte(`{}`))
	if err != nil {
		t.Fatalf("BeforeHandle returned error: %v", err)
	}
	if string(data) != `{}` {
		t.Errorf("expected payload to pass through unchanged, got %q", data)
	}

	start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time)
	if !ok {
		t.Fatal("expected start time in context")
	}
	if time.Since(start) > time.Second {
		t.Errorf("start time not recent: %v", start)
	}

	id, ok := ctx.Value(pkgkafka.CtxTraceID).(string)
	if !ok || id != "abc-123" {
		t.Errorf("expected trace id abc-123, got %q (ok=%v)", id, ok)
	}
}

func TestConsumeLogHook_NoTraceHeader(t *testing.T) {
	hook := NewConsumeLogHook(hookLogger(t))

	ctx, _, _, err := hook.BeforeHandle(context.Background(), "bars", kafka.Message{}, nil)
	if err != nil {
		t.Fatalf("BeforeHandle returned error: %v", err)
	}
	if got := ctx.Value(pkgkafka.CtxTraceID); got != nil {
		t.Errorf("expected no trace id, got %v", got)
	}
}

func TestConsumeLogHook_AfterAndErrorDoNotPanic(t *testing.T) {
	hook := NewConsumeLogHook(hookLogger(t))

	ctx, _, _, err := hook.BeforeHandle(context.Background(), "bars", kafka.Message{}, nil)
	if err != nil {
		t.Fatalf("BeforeHandle returned error: %v", err)
	}

	hook.AfterHandle(ctx, "bars", kafka.Message{}, nil, nil)
	hook.AfterHandle(context.Background(), "bars", kafka.Message{}, nil, nil)
	hook.OnError(ctx, "bars", kafka.Message{}, nil, errors.New("boom"))
	hook.OnError(context.Background(), "bars", kafka.Message{}, nil, errors.New("boom"))
}
