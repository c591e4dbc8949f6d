package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/licitaware/procura/pkg/match"
)

// SearchEngine is the search operation consumed by the controller.
type SearchEngine interface {
	Search(ctx context.Context, supplierID string, cfg match.Config) (*match.Outcome, error)
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SearchController handles the similarity-search API endpoints
type SearchController struct {
	engine SearchEngine
}

// NewSearchController creates a new search controller
func NewSearchController(engine SearchEngine) *SearchController {
	return &SearchController{engine: engine}
}

// RegisterRoutes registers search routes with the gin router
func (sc *SearchController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/suppliers/:supplier_id/matches", sc.FindMatches)
}

// FindMatches runs a similarity search for one supplier. The request body is
// an optional search configuration; unknown keys are rejected so that a
// typoed option never silently falls back to its default.
func (sc *SearchController) FindMatches(c *gin.Context) {
	cfg, err := decodeConfig(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "INVALID_REQUEST",
			Details: fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	outcome, err := sc.engine.Search(c.Request.Context(), c.Param("supplier_id"), cfg)
	if err != nil {
		sc.writeSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// decodeConfig reads the optional configuration body. An empty body means
// all defaults.
func decodeConfig(body io.Reader) (match.Config, error) {
	var cfg match.Config

	raw, err := io.ReadAll(body)
	if err != nil {
		return cfg, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// writeSearchError maps engine errors to HTTP status codes.
func (sc *SearchController) writeSearchError(c *gin.Context, err error) {
	switch {
	case match.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "INVALID_REQUEST",
			Details: err.Error(),
		})
	case match.IsRetrievalTimeout(err):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{
			Error:   "RETRIEVAL_TIMEOUT",
			Details: err.Error(),
		})
	case match.IsRetrievalFailure(err):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "RETRIEVAL_FAILED",
			Details: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Details: err.Error(),
		})
	}
}
