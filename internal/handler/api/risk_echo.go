package api

import (
	"errors"

	"Veritas/internal/domain/models"
	domsvc "Veritas/internal/domain/service"
	"Veritas/internal/services/scoring"
	"Veritas/internal/usecase"
	xhttp "Veritas/pkg/http"
	xlogger "Veritas/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RiskEchoHandler exposes the risk engine over HTTP.
type RiskEchoHandler struct {
	logger *xlogger.Logger
	svc    *usecase.RiskService
}

func NewRiskEchoHandler(logger *xlogger.Logger, svc *usecase.RiskService) *RiskEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &RiskEchoHandler{logger: logger, svc: svc}
}

func (h *RiskEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.GET("/risk-assessment", h.RiskAssessment)
	g.GET("/scenario/:scenario", h.Scenario)
	g.POST("/leverage-health", h.LeverageHealth)
	g.POST("/kyc-risk-assessment", h.KYCRisk)
	g.POST("/invoice-nav-prediction", h.InvoiceNAV)
}

func (h *RiskEchoHandler) Health(c echo.Context) error {
	res, err := h.svc.Health(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RiskEchoHandler) RiskAssessment(c echo.Context) error {
	res, err := h.svc.Predict(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RiskEchoHandler) Scenario(c echo.Context) error {
	req := &models.ScenarioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.rejected(c, "invalid scenario", verr)
	}
	res, err := h.svc.Scenario(c.Request().Context(), req.Scenario)
	if err != nil {
		var ie *scoring.InputError
		if errors.As(err, &ie) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unknown scenario: %s", req.Scenario))
		}
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RiskEchoHandler) LeverageHealth(c echo.Context) error {
	req := &models.LeverageRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.rejected(c, "invalid position snapshot", verr)
	}
	res, err := h.svc.AssessLeverage(c.Request().Context(), req.Snapshot())
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RiskEchoHandler) KYCRisk(c echo.Context) error {
	req := &models.KYCRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.rejected(c, "invalid investor snapshot", verr)
	}
	res, err := h.svc.AssessKYC(c.Request().Context(), req.Snapshot())
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RiskEchoHandler) InvoiceNAV(c echo.Context) error {
	req := &models.NAVRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.rejected(c, "invalid pool snapshot", verr)
	}
	res, err := h.svc.ForecastNAV(c.Request().Context(), req.Snapshot())
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RiskEchoHandler) rejected(c echo.Context, msg string, verr []xhttp.ValidationError) error {
	h.logger.Debug("request rejected",
		xlogger.String("path", c.Path()),
		xlogger.Int("violations", len(verr)),
		xlogger.String("request_id", xlogger.RequestIDFromContext(c.Request().Context())),
	)
	return xhttp.BadRequestResponse(c, msg, verr)
}

// toAppError maps domain errors onto transport status codes.
// The use case has already logged anything unexpected.
func toAppError(err error) *xhttp.AppError {
	var ie *scoring.InputError
	switch {
	case errors.As(err, &ie):
		return xhttp.BadRequestError("invalid input").WithError(err).WithDetails([]xhttp.ValidationError{{
			Code:    "ERR_INVALID",
			Field:   ie.Field,
			Message: ie.Reason,
		}})
	case errors.Is(err, scoring.ErrInvalidInput):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, scoring.ErrDivision):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, domsvc.ErrUpstreamPredictor):
		return xhttp.BadGatewayError("upstream predictor unavailable").WithError(err)
	default:
		return xhttp.InternalError("internal server error").WithError(err)
	}
}
