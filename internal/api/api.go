// Package api wires the HTTP surface: quote functions, uploads, exports and
// the alert endpoints, all speaking the {success, data, error} envelope.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quotedesk/quotedesk/internal/alerting"
	"github.com/quotedesk/quotedesk/internal/middleware"
	"github.com/quotedesk/quotedesk/internal/quote"
	"github.com/quotedesk/quotedesk/internal/storage"
)

// QuoteStore is the slice of the quote repository the handlers need.
type QuoteStore interface {
	Create(ctx context.Context, in *quote.CreateInput) (*quote.Quote, error)
	Get(ctx context.Context, id uuid.UUID) (*quote.Quote, error)
	List(ctx context.Context, filter *quote.ListFilter) ([]quote.Quote, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// NumberAllocator produces the next quote number for a date.
type NumberAllocator interface {
	Next(ctx context.Context, date time.Time) (string, error)
}

// Uploader persists incoming files.
type Uploader interface {
	Save(ctx context.Context, up *storage.Upload) (*storage.FileInfo, error)
}

// AlertChecker runs one evaluation pass.
type AlertChecker interface {
	Run(ctx context.Context) (*alerting.CheckResult, error)
}

// Deps collects everything the handlers depend on. Handlers hold interfaces
// so tests can swap in-memory fakes.
type Deps struct {
	Quotes      QuoteStore
	Alloc       NumberAllocator
	Uploads     Uploader
	Checker     AlertChecker
	AlertStore  alerting.Store
	AlertCache  alerting.OpenAlertCache
	ExportToken string

	// Now is the handler clock; defaults to time.Now.
	Now func() time.Time
}

type Api struct {
	deps *Deps
}

// Register mounts all routes on the router.
func Register(router *gin.Engine, deps *Deps) *Api {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.AlertCache == nil {
		deps.AlertCache = alerting.NoopCache{}
	}
	api := &Api{deps: deps}
	api.setupRouters(router)
	return api
}

func (api *Api) setupRouters(router *gin.Engine) {
	// edge-function style endpoints consumed by the web client
	fn := router.Group("/functions/v1")
	fn.POST("/generate-quote-no", api.GenerateQuoteNo)
	fn.POST("/calculate-quote-total", api.CalculateQuoteTotal)
	fn.POST("/export-quotes", middleware.RequireBearer(api.deps.ExportToken), api.ExportQuotes)
	fn.POST("/upload-image", api.UploadImage)

	// resource API
	v1 := router.Group("/v1")
	v1.GET("/quotes", api.ListQuotes)
	v1.POST("/quotes", api.CreateQuote)
	v1.GET("/quotes/:quoteID", api.GetQuote)
	v1.PATCH("/quotes/:quoteID/status", api.UpdateQuoteStatus)
	v1.GET("/alerts", api.ListOpenAlerts)
	v1.POST("/alerts/check", api.CheckAlerts)
	v1.POST("/metrics", api.RecordMetric)

	router.GET("/healthz", api.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (api *Api) Healthz(c *gin.Context) {
	respondOK(c, gin.H{"status": "ok"})
}
