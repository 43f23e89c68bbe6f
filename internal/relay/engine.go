// Package relay routes chat completion requests to a backend and reconciles
// the backend's transport mode with what the client is owed.
package relay

import (
	"context"
	"net/http"

	"github.com/nulzo/model-relay/internal/audit"
	"github.com/nulzo/model-relay/internal/routing"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// TableSource hands out the current routing snapshot.
type TableSource interface {
	Load() *routing.Table
}

type Options struct {
	// GlobalStream applies when the selected route has no override.
	GlobalStream routing.StreamMode
}

type Engine struct {
	tables     TableSource
	dispatcher *Dispatcher
	reconciler *Reconciler
	opts       Options
	logger     *zap.Logger
	audit      audit.Recorder
}

func NewEngine(tables TableSource, dispatcher *Dispatcher, opts Options, logger *zap.Logger, rec audit.Recorder) *Engine {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Engine{
		tables:     tables,
		dispatcher: dispatcher,
		reconciler: NewReconciler(logger),
		opts:       opts,
		logger:     logger,
		audit:      rec,
	}
}

// Request is an inbound chat completion that already passed content type and
// JSON object checks.
type Request struct {
	Body          []byte
	Authorization string
	Header        http.Header
}

// Plan is a routed and rewritten request ready to dispatch.
type Plan struct {
	Decision
	Body           []byte
	RequestedModel string
}

// Outcome describes a served request. Committed means response headers were
// written, so any error was handled in band or by abandoning the stream.
type Outcome struct {
	Plan      Plan
	Committed bool
}

// Plan selects a backend and rewrites the envelope.
func (e *Engine) Plan(ctx context.Context, body []byte) (Plan, error) {
	table := e.tables.Load()

	requested := gjson.GetBytes(body, "model").String()

	sel, err := routing.Select(requested, table)
	if err != nil {
		e.logger.Error("Routing table exhausted, check the default backend configuration",
			zap.String("model", requested), zap.Error(err))
		return Plan{}, err
	}
	e.logSelection(requested, sel, table)

	t, err := Transform(body, sel.Route, e.opts.GlobalStream)
	if err != nil {
		return Plan{}, err
	}

	if t.HadModel {
		e.audit.Record(ctx, audit.NewEntry(ctx, audit.EventModelRewrite, map[string]any{
			"from": t.ClientModel, "to": sel.Route.UpstreamModelID,
		}))
	} else {
		e.audit.Record(ctx, audit.NewEntry(ctx, audit.EventModelRewrite, map[string]any{
			"added": sel.Route.UpstreamModelID,
		}))
	}
	if t.Stream != t.ClientStream {
		e.audit.Record(ctx, audit.NewEntry(ctx, audit.EventStreamRewrite, map[string]any{
			"from": t.ClientStream, "to": t.Stream,
		}))
	}

	return Plan{
		Decision: Decision{
			Selection: sel,
			Stream:    t.Stream,
			Mode:      Decide(t.Stream, sel.Route),
		},
		Body:           t.Body,
		RequestedModel: requested,
	}, nil
}

func (e *Engine) logSelection(requested string, sel routing.Selection, table *routing.Table) {
	fields := []zap.Field{
		zap.String("model", requested),
		zap.String("backend", sel.Route.Name),
		zap.String("endpoint", sel.Route.Endpoint),
		zap.Stringer("reason", sel.Reason),
	}

	switch {
	case sel.Reason == routing.ReasonFirstEntry:
		e.logger.Warn("No active API configuration, using first entry", fields...)
	case sel.Reason == routing.ReasonDefault && table.Multi():
		e.logger.Warn("Routing document has no entries, falling back to default backend", fields...)
	default:
		e.logger.Info("Selected backend", fields...)
	}
}

// Serve runs one request end to end and writes the response to w. If the
// returned Outcome is not committed and err is non-nil, nothing was written
// and the caller renders the error.
func (e *Engine) Serve(ctx context.Context, w http.ResponseWriter, req Request) (Outcome, error) {
	if req.Header != nil {
		e.audit.Record(ctx, audit.NewEntry(ctx, audit.EventRequestHeaders, audit.RedactHeaders(req.Header)))
	}
	e.audit.Record(ctx, audit.NewEntry(ctx, audit.EventRequestBody, string(req.Body)))

	plan, err := e.Plan(ctx, req.Body)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Plan: plan}
	route := plan.Route()

	e.audit.Record(ctx, audit.NewEntry(ctx, audit.EventForward, map[string]any{
		"url":    Endpoint(route),
		"stream": plan.Stream,
	}))

	res, err := e.dispatcher.Dispatch(ctx, route, plan.Body, plan.Stream, req.Authorization)
	if err != nil {
		return out, err
	}

	e.audit.Record(ctx, audit.NewEntry(ctx, audit.EventResponseMode, plan.Mode.String()))

	switch plan.Mode {
	case ModePassthrough:
		out.Committed = true
		if err := e.reconciler.Passthrough(ctx, w, res); err != nil {
			e.logger.Warn("Stream abandoned", zap.String("backend", route.Name), zap.Error(err))
			return out, err
		}
		return out, nil

	case ModeSynthetic:
		e.audit.Record(ctx, audit.NewEntry(ctx, audit.EventResponseBody, string(res.Body)))
		out.Committed = true
		return out, e.reconciler.Synthetic(ctx, w, res.Body, route.ExposedModelID)

	default:
		e.audit.Record(ctx, audit.NewEntry(ctx, audit.EventResponseBody, string(res.Body)))
		body, err := RewriteModel(res.Body, route.ExposedModelID)
		if err != nil {
			return out, err
		}
		out.Committed = true
		return out, e.reconciler.Buffered(w, body)
	}
}
