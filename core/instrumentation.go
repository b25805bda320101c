package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-voice/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	chunksForwarded, _ = meter.Int64Counter("orchestrator.chunks.forwarded", metric.WithDescription("Captured chunks handed to the transport"))
	chunksDiscarded, _ = meter.Int64Counter("orchestrator.chunks.discarded", metric.WithDescription("Captured chunks dropped after their recording ended"))
	stepsRun, _        = meter.Int64Counter("orchestrator.steps", metric.WithDescription("Steps run by the orchestrator runtime"))
)
