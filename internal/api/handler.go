// Package api serves the bridge's HTTP surface: health, metrics and a dry-run
// decode endpoint.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mokosmart/internal/constants"
	"mokosmart/internal/decoder"
	"mokosmart/internal/listener"
	"mokosmart/internal/logger"
	apperrors "mokosmart/pkg/errors"
	"mokosmart/pkg/raddec"
)

const defaultDecodeOrigin = "api"

type Handler struct {
	logger  logger.Logger
	options decoder.Options
	now     func() time.Time
}

func NewHandler(opts decoder.Options, log logger.Logger) *Handler {
	return &Handler{
		logger:  log,
		options: opts,
		now:     time.Now,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine, middleware ...gin.HandlerFunc) {
	v1 := router.Group("/api/v1", middleware...)
	{
		v1.POST("/decode", h.Decode)
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.logger.WarnwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(apperrors.ToHTTPStatus(err), apperrors.ToErrorResponse(err))
}

type Rejection struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type DecodeResponse struct {
	MsgType                string                          `json:"msgType"`
	GatewayID              string                          `json:"gatewayId,omitempty"`
	Raddecs                []*raddec.Raddec                `json:"raddecs"`
	InfrastructureMessages []*raddec.InfrastructureMessage `json:"infrastructureMessages"`
	SkippedReports         int                             `json:"skippedReports"`
	Rejection              *Rejection                      `json:"rejection,omitempty"`
}

// Decode runs a gateway message through the decoder without emitting
// anything. The origin query parameter overrides the reported origin.
func (h *Handler) Decode(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxDecodeBodyBytes)
	payload, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.HandleError(c, apperrors.ErrPayloadTooLarge.WithDetail("limit_bytes", tooLarge.Limit))
			return
		}
		h.HandleError(c, apperrors.ErrValidation.WithCause(err))
		return
	}

	msg, err := listener.ParseMessage(payload)
	if err != nil {
		h.HandleError(c, apperrors.ErrValidation.WithCause(err))
		return
	}

	origin := c.DefaultQuery("origin", defaultDecodeOrigin)
	result := decoder.Decode(msg, origin, h.now(), h.options)

	c.JSON(http.StatusOK, newDecodeResponse(result))
}

func newDecodeResponse(result decoder.Result) DecodeResponse {
	resp := DecodeResponse{
		MsgType:                result.Type.String(),
		GatewayID:              result.GatewayID,
		Raddecs:                result.Raddecs,
		InfrastructureMessages: result.InfrastructureMessages,
		SkippedReports:         result.SkippedReports,
	}

	if result.Rejection != nil {
		resp.Rejection = &Rejection{Message: result.Rejection.Error()}
		var invalid *decoder.InvalidEnvelopeError
		if errors.As(result.Rejection, &invalid) {
			resp.Rejection.Reason = string(invalid.Reason)
		}
	}
	return resp
}
