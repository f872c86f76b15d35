package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/shopcat/backend/api/handler"
)

type Handlers struct {
	Unit       *apiHandler.UnitHandler
	Statistics *apiHandler.StatisticsHandler
	Journal    *apiHandler.JournalHandler
	Health     *apiHandler.HealthHandler
}

func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Catalog mutations and live reads
	r.POST("/imports", handlers.Unit.ImportUnits)
	r.DELETE("/delete/{id}", handlers.Unit.DeleteUnit)
	r.GET("/nodes/{id}", handlers.Unit.GetNode)

	// Temporal queries
	r.GET("/sales", handlers.Statistics.GetSales)
	r.GET("/node/{id}/statistic", handlers.Statistics.GetStatistic)

	// Operational
	r.GET("/admin/journal", handlers.Journal.Recent)

	return r
}
