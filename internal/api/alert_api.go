package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quotedesk/quotedesk/internal/alerting"
	"github.com/quotedesk/quotedesk/internal/apierr"
)

// CheckAlerts runs one evaluation pass on demand and reports what it did.
// The counts are top-level so dashboards can read them without unwrapping.
func (api *Api) CheckAlerts(c *gin.Context) {
	res, err := api.deps.Checker.Run(c.Request.Context())
	if err != nil {
		respondError(c, apierr.Wrap(apierr.CodeServer, "alert check failed", err))
		return
	}
	if res.Alerts == nil {
		res.Alerts = []alerting.AlertRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"checkedRules":    res.CheckedRules,
		"triggeredAlerts": res.TriggeredAlerts,
		"alerts":          res.Alerts,
	})
}

// ListOpenAlerts serves open alert records from the Redis mirror when it is
// reachable, falling back to the database otherwise.
func (api *Api) ListOpenAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	records, err := api.deps.AlertCache.ListOpen(ctx)
	if err != nil {
		if !errors.Is(err, alerting.ErrCacheUnavailable) {
			log.Warn().Err(err).Msg("open-alert cache read failed, falling back to database")
		}
		records, err = api.deps.AlertStore.ListOpenRecords(ctx)
		if err != nil {
			respondError(c, apierr.Wrap(apierr.CodeServer, "failed to list open alerts", err))
			return
		}
	}
	if records == nil {
		records = []*alerting.AlertRecord{}
	}
	respondOK(c, records)
}

type recordMetricRequest struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

// RecordMetric stores one sample for later rule evaluation.
func (api *Api) RecordMetric(c *gin.Context) {
	var req recordMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid JSON body")
		return
	}
	if req.Name == "" {
		invalidInput(c, "name is required")
		return
	}
	if req.Value == nil {
		invalidInput(c, "value must be a number")
		return
	}

	sample := &alerting.MetricSample{Name: req.Name, Value: *req.Value, RecordedAt: api.deps.Now().UTC()}
	if err := api.deps.AlertStore.InsertSample(c.Request.Context(), sample); err != nil {
		respondError(c, apierr.Wrap(apierr.CodeServer, "failed to record metric", err))
		return
	}
	respondOK(c, sample)
}
