package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/songplay-etl/internal/catalog/dbt"
	"github.com/feichai0017/songplay-etl/internal/models"
)

// CatalogHandler serves the dbt sources describing the output tables.
type CatalogHandler struct {
	generator  *dbt.Generator
	outputRoot string
}

func NewCatalogHandler(generator *dbt.Generator, outputRoot string) *CatalogHandler {
	return &CatalogHandler{generator: generator, outputRoot: outputRoot}
}

func (h *CatalogHandler) GetSources(c *gin.Context) {
	sources := h.generator.Sources(h.outputRoot, models.StarSchema)
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, sources)
		return
	}

	data, err := dbt.Marshal(sources)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to render catalog", Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/yaml", data)
}
