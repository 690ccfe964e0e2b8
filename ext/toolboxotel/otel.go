// Package toolboxotel traces tool invocations with OpenTelemetry.
//
// Install the middleware on a registry:
//
//	reg.Use(toolboxotel.Middleware())
//
// Each Invoke becomes one span named "tool <name>". Failed calls record the error
// and its toolbox kind.
package toolboxotel

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/toolbox"
)

const instrumentationName = "github.com/skosovsky/toolbox/ext/toolboxotel"

// Attribute keys set on tool spans.
const (
	AttrToolName    = attribute.Key("tool.name")
	AttrToolVersion = attribute.Key("tool.version")
	AttrDangerous   = attribute.Key("tool.dangerous")
	AttrArgsBytes   = attribute.Key("tool.args.bytes")
	AttrResultBytes = attribute.Key("tool.result.bytes")
	AttrErrorKind   = attribute.Key("tool.error.kind")
	AttrArguments   = attribute.Key("tool.arguments")
)

type config struct {
	provider   trace.TracerProvider
	recordArgs bool
}

// Option configures the middleware.
type Option func(*config)

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.provider = tp
		}
	}
}

// WithArguments records the raw call arguments on the span. Off by default since
// arguments may carry user data.
func WithArguments() Option {
	return func(c *config) { c.recordArgs = true }
}

// Middleware returns a toolbox middleware that starts a span around every Invoke.
func Middleware(opts ...Option) toolbox.Middleware {
	c := config{provider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&c)
	}
	tracer := c.provider.Tracer(instrumentationName)
	return toolbox.Intercept(func(ctx context.Context, next toolbox.Tool, args json.RawMessage) (json.RawMessage, error) {
		name := next.Name()
		attrs := []attribute.KeyValue{
			AttrToolName.String(name),
			AttrArgsBytes.Int(len(args)),
		}
		if tm, ok := next.(toolbox.ToolMetadata); ok {
			if v := tm.Version(); v != "" {
				attrs = append(attrs, AttrToolVersion.String(v))
			}
			if tm.IsDangerous() {
				attrs = append(attrs, AttrDangerous.Bool(true))
			}
		}
		if c.recordArgs {
			attrs = append(attrs, AttrArguments.String(string(args)))
		}
		ctx, span := tracer.Start(ctx, "tool "+name,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		out, err := next.Invoke(ctx, args)
		if err != nil {
			if te, ok := toolbox.AsToolError(err); ok {
				span.SetAttributes(AttrErrorKind.String(te.Kind.String()))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetAttributes(AttrResultBytes.Int(len(out)))
		return out, nil
	})
}
