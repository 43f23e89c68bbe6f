package v1

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-relay/internal/analytics"
	"github.com/nulzo/model-relay/internal/relay"
	"github.com/nulzo/model-relay/internal/requestid"
	"github.com/nulzo/model-relay/internal/routing"
	"github.com/nulzo/model-relay/internal/store/model"
	"github.com/nulzo/model-relay/pkg/api"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type ChatHandler struct {
	engine  *relay.Engine
	journal analytics.Ingestor
	logger  *zap.Logger
}

// NewChatHandler wires the relay engine. journal may be nil.
func NewChatHandler(engine *relay.Engine, journal analytics.Ingestor, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		engine:  engine,
		journal: journal,
		logger:  logger,
	}
}

func (h *ChatHandler) CreateCompletion(c *gin.Context) {
	start := time.Now()

	if !isJSON(c.GetHeader("Content-Type")) {
		_ = c.Error(api.BadRequest("Content-Type must be application/json"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(api.BadRequest(fmt.Sprintf("JSON parsing failed: %v", err)))
		return
	}
	if !gjson.ValidBytes(body) {
		_ = c.Error(api.BadRequest("JSON parsing failed: request body is not valid JSON"))
		return
	}
	if !gjson.ParseBytes(body).IsObject() {
		_ = c.Error(api.BadRequest("JSON parsing failed: request body must be a JSON object"))
		return
	}

	out, err := h.engine.Serve(c.Request.Context(), c.Writer, relay.Request{
		Body:          body,
		Authorization: c.GetHeader("Authorization"),
		Header:        c.Request.Header,
	})
	if err != nil {
		if out.Committed {
			// headers are gone, the stream was cut short
			_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		} else {
			h.renderError(c, err)
		}
	}

	h.record(c, out, err, time.Since(start))
}

// renderError maps relay failures onto the client response.
func (h *ChatHandler) renderError(c *gin.Context, err error) {
	var (
		upstream  *relay.UpstreamError
		transport *relay.TransportError
	)

	switch {
	case errors.As(err, &upstream):
		if gjson.ValidBytes(upstream.Body) {
			_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			c.Data(upstream.StatusCode, "application/json", upstream.Body)
			return
		}
		msg := fmt.Sprintf("HTTP error: %d %s", upstream.StatusCode, http.StatusText(upstream.StatusCode))
		_ = c.Error(api.NewError(upstream.StatusCode, msg, nil))

	case errors.As(err, &transport):
		_ = c.Error(api.Unavailable(fmt.Sprintf("Request exception: %v", transport.Err), err))

	case errors.Is(err, routing.ErrNoRoute):
		_ = c.Error(api.Internal("Internal server error: no backend configured", err))

	case errors.Is(err, relay.ErrInvalidUpstreamBody):
		_ = c.Error(api.Internal("Internal server error: upstream returned invalid JSON", err))

	default:
		_ = c.Error(api.Internal(fmt.Sprintf("Internal server error: %v", err), err))
	}
}

func (h *ChatHandler) record(c *gin.Context, out relay.Outcome, err error, latency time.Duration) {
	if h.journal == nil {
		return
	}

	status := c.Writer.Status()
	if !c.Writer.Written() {
		// the error handler has not rendered yet
		status = statusOf(err)
	}

	route := out.Plan.Route()
	entry := &model.RequestLog{
		ID:             requestid.From(c.Request.Context()),
		Backend:        route.Name,
		Endpoint:       route.Endpoint,
		RequestedModel: out.Plan.RequestedModel,
		ExposedModel:   route.ExposedModelID,
		UpstreamModel:  route.UpstreamModelID,
		IsStreamed:     out.Plan.Stream || out.Plan.Mode == relay.ModeSynthetic,
		StatusCode:     status,
		LatencyMS:      latency.Milliseconds(),
		IPAddress:      c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		CreatedAt:      time.Now(),
	}
	if route.Name != "" {
		entry.SelectReason = out.Plan.Selection.Reason.String()
		entry.ResponseMode = out.Plan.Mode.String()
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if entry.ID == "" {
		entry.ID = requestid.New()
	}

	h.journal.Log(entry)
}

func statusOf(err error) int {
	var (
		apiErr    *api.Error
		upstream  *relay.UpstreamError
		transport *relay.TransportError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &apiErr):
		return apiErr.Status
	case errors.As(err, &upstream):
		return upstream.StatusCode
	case errors.As(err, &transport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// isJSON accepts application/json and application/*+json.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || (strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}
