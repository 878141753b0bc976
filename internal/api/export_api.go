package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quotedesk/quotedesk/internal/apierr"
	"github.com/quotedesk/quotedesk/internal/quote"
)

const exportDateLayout = "2006-01-02"

type exportRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Status    string `json:"status"`
}

// ExportQuotes streams the filtered quote list as an xlsx attachment.
// Auth is enforced by the RequireBearer middleware on the route.
func (api *Api) ExportQuotes(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid JSON body")
		return
	}

	filter := &quote.ListFilter{Status: req.Status}
	if req.StartDate != "" {
		t, err := time.Parse(exportDateLayout, req.StartDate)
		if err != nil {
			invalidInput(c, "startDate must be YYYY-MM-DD")
			return
		}
		filter.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse(exportDateLayout, req.EndDate)
		if err != nil {
			invalidInput(c, "endDate must be YYYY-MM-DD")
			return
		}
		// inclusive end date
		end := t.AddDate(0, 0, 1)
		filter.EndDate = &end
	}

	quotes, err := api.deps.Quotes.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, apierr.Wrap(apierr.CodeServer, "failed to load quotes for export", err))
		return
	}

	data, filename, err := quote.ExportXLSX(quotes, api.deps.Now())
	if err != nil {
		respondError(c, apierr.Wrap(apierr.CodeServer, "failed to build spreadsheet", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, quote.ExportContentType, data)
}
