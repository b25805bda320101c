package orchestration

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// spawn runs work on its own goroutine. A panic is logged and reported as
// an error event instead of taking the process down.
func (o *Orchestrator) spawn(name string, work func()) {
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("%s worker panicked: %v", name, recovered)
				o.logger.Error("worker panicked", "worker", name, "error", err)
				o.step(func() { o.fail(err) })
			}
		}()
		work()
	}()
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
