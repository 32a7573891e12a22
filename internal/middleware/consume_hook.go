package middleware

import (
	"context"
	"time"

	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// slowHandle is how long a single message may take before the hook
// flags it.
const slowHandle = 500 * time.Millisecond

// NewConsumeLogHook builds the hook chain attached to the bars
// consumer. It stamps handling start time, threads the trace id from
// the message headers and logs failing or slow handlers with their
// partition and offset.
func NewConsumeLogHook(log *applogger.Logger) pkgkafka.ConsumerHook {
	timing := pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			if id := pkgkafka.ExtractTraceID(km); id != "" {
				ctx = pkgkafka.WithTraceID(ctx, id)
			}
			return ctx, km, data, nil
		},
		After: func(ctx context.Context, topic string, km kafka.Message, _ []byte, err error) {
			if err != nil {
				return
			}
			start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time)
			if !ok {
				return
			}
			if elapsed := time.Since(start); elapsed > slowHandle {
				log.Warn("slow message handling",
					applogger.String("topic", topic),
					applogger.Int("partition", km.Partition),
					applogger.Int64("offset", km.Offset),
					applogger.Duration("elapsed", elapsed))
			}
		},
	}
	failures := pkgkafka.HookFuncs{
		Err: func(ctx context.Context, topic string, km kafka.Message, _ []byte, err error) {
			fields := []applogger.Field{
				applogger.String("topic", topic),
				applogger.Int("partition", km.Partition),
				applogger.Int64("offset", km.Offset),
				applogger.Error(err),
			}
			if id, ok := ctx.Value(pkgkafka.CtxTraceID).(string); ok {
				fields = append(fields, applogger.String("trace_id", id))
			}
			log.Warn("message handling failed", fields...)
		},
	}
	return pkgkafka.NewHookChain(timing, failures)
}
