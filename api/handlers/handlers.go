package handlers

import (
	"github.com/feichai0017/songplay-etl/internal/catalog/dbt"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/queue"
)

type Handlers struct {
	Run     *RunHandler
	Catalog *CatalogHandler
}

func NewHandlers(
	runQueue queue.Queue,
	catalog *dbt.Generator,
	outputRoot string,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Run:     NewRunHandler(runQueue, log),
		Catalog: NewCatalogHandler(catalog, outputRoot),
	}
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
