package transport

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-voice/core/transport"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	framesSent, _        = meter.Int64Counter("transport.frames.sent", metric.WithDescription("Frames written to the voice service"))
	framesDropped, _     = meter.Int64Counter("transport.frames.dropped", metric.WithDescription("Outbound frames dropped before reaching the wire"))
	decodeErrors, _      = meter.Int64Counter("transport.decode.errors", metric.WithDescription("Inbound frames that failed to decode"))
	reconnectAttempts, _ = meter.Int64Counter("transport.reconnect.attempts", metric.WithDescription("Reconnect handshakes attempted"))
)
