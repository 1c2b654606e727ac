package projection

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pathways-lab/scenario-explorer/internal/charts"
	httperr "github.com/pathways-lab/scenario-explorer/internal/core/errors"
)

// Response formats of the chart endpoint.
const (
	FormatJSON     = "json"
	FormatProtobuf = "protobuf"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/charts", s.HandleListCharts)
	r.GET("/v1/charts/:name", s.HandleRenderChart)
	r.GET("/v1/variables", s.HandleVariables)
	r.GET("/v1/netzero", s.HandleNetZero)
}

// HandleListCharts handles GET /v1/charts
// Query parameters: variable (optional)
func (s *Service) HandleListCharts(c *gin.Context) {
	resp, err := s.ListCharts(c.Request.Context(), c.Query("variable"))
	if err != nil {
		writeError(c, err, "Failed to list charts")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRenderChart handles GET /v1/charts/:name
// Query parameters: select (repeatable, DIM:label), format (json|protobuf)
func (s *Service) HandleRenderChart(c *gin.Context) {
	var query struct {
		Select []string `form:"select"`
		Format string   `form:"format"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	format := query.Format
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatProtobuf {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnsupportedFormat,
			Message:   "Unsupported response format",
			Details:   fmt.Sprintf("format must be %s or %s, got %q", FormatJSON, FormatProtobuf, format),
		})
		return
	}

	resp, err := s.RenderChart(c.Request.Context(), c.Param("name"), query.Select)
	if err != nil {
		writeError(c, err, "Failed to render chart")
		return
	}

	if format == FormatProtobuf {
		msg, err := toStruct(resp)
		if err != nil {
			writeError(c, err, "Failed to encode chart")
			return
		}
		c.ProtoBuf(http.StatusOK, msg)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleVariables handles GET /v1/variables
func (s *Service) HandleVariables(c *gin.Context) {
	resp, err := s.Variables(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to list variables")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleNetZero handles GET /v1/netzero
// Query parameters: variable, base_year, threshold (all optional)
func (s *Service) HandleNetZero(c *gin.Context) {
	q := NetZeroQuery{
		Variable: c.Query("variable"),
		BaseYear: c.Query("base_year"),
	}
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid threshold",
				Details:   err.Error(),
			})
			return
		}
		q.Threshold = v
	}

	resp, err := s.NetZero(c.Request.Context(), q)
	if err != nil {
		writeError(c, err, "Failed to compute net-zero years")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid chart query",
			Details:   err.Error(),
		})
	case errors.Is(err, charts.ErrChartNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpChartNotFoundError,
			Message:   "Chart not found",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotReadyError,
			Message:   "Results are not loaded yet",
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   message,
			Details:   err.Error(),
		})
	}
}

// toStruct converts a response into a protobuf Struct through its JSON form,
// so both encodings carry the same fields and null cells.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	msg := &structpb.Struct{}
	if err := protojson.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("convert response to protobuf: %w", err)
	}
	return msg, nil
}
