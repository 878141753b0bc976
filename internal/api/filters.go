package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quotedesk/quotedesk/internal/apierr"
	"github.com/quotedesk/quotedesk/internal/quote"
)

// parseListFilter reads the quote list query parameters: status, start_date,
// end_date (both YYYY-MM-DD, end inclusive) and limit.
func parseListFilter(c *gin.Context) (*quote.ListFilter, error) {
	filter := &quote.ListFilter{Status: c.Query("status")}
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, apierr.Newf(apierr.CodeInvalidInput, "unknown status %q", filter.Status)
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(exportDateLayout, v)
		if err != nil {
			return nil, apierr.New(apierr.CodeInvalidInput, "start_date must be YYYY-MM-DD")
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(exportDateLayout, v)
		if err != nil {
			return nil, apierr.New(apierr.CodeInvalidInput, "end_date must be YYYY-MM-DD")
		}
		end := t.AddDate(0, 0, 1)
		filter.EndDate = &end
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, apierr.New(apierr.CodeInvalidInput, "limit must be a positive integer")
		}
		filter.Limit = n
	}
	return filter, nil
}
