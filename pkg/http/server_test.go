package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeFunc func(e *echo.Echo)

func (f routeFunc) RegisterRoutes(e *echo.Echo) { f(e) }

type sample struct {
	Amount *float64 `json:"amount" validate:"required,gte=0"`
	Name   string   `json:"name" validate:"required"`
}

func newTestServer(opts ...ServerOption) *Server {
	h := routeFunc(func(e *echo.Echo) {
		e.POST("/echo", func(c echo.Context) error {
			var req sample
			if details := ReadAndValidateRequest(c, &req); details != nil {
				return BadRequestResponse(c, "invalid request", details)
			}
			return SuccessResponse(c, req)
		})
		e.GET("/fail", func(c echo.Context) error {
			return AppErrorResponse(c, BadGatewayError("upstream predictor unavailable"))
		})
	})
	return NewServer([]Handler{h}, opts...)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestValidation_MissingFieldUsesJSONName(t *testing.T) {
	rec := do(newTestServer(), http.MethodPost, "/echo", `{"name":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"amount"`)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_REQUIRED"`)
	assert.NotContains(t, rec.Body.String(), "timestamp")
}

func TestValidation_ZeroIsPresent(t *testing.T) {
	rec := do(newTestServer(), http.MethodPost, "/echo", `{"name":"x","amount":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"x","amount":0}`, rec.Body.String())
}

func TestValidation_WrongType(t *testing.T) {
	rec := do(newTestServer(), http.MethodPost, "/echo", `{"name":"x","amount":"lots"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_MALFORMED")
}

func TestAppErrorResponse_UpstreamCarriesTimestamp(t *testing.T) {
	rec := do(newTestServer(), http.MethodGet, "/fail", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"upstream predictor unavailable"`)
	assert.Contains(t, rec.Body.String(), `"timestamp"`)
}

func TestNotFound_UsesErrorBody(t *testing.T) {
	rec := do(newTestServer(), http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"Not Found"`)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(WithBodyLimit(16))
	rec := do(s, http.MethodPost, "/echo", `{"name":"a very long name indeed","amount":1}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAppError_Unwrap(t *testing.T) {
	inner := assert.AnError
	err := BadRequestError("bad").WithError(inner).WithDetails([]string{"x"})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Contains(t, err.Error(), "bad")
}
