package api

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quotedesk/quotedesk/internal/apierr"
	"github.com/quotedesk/quotedesk/internal/quote"
)

// GenerateQuoteNo allocates the next quote number for today (UTC). The
// allocator is atomic, so concurrent calls never hand out the same number.
func (api *Api) GenerateQuoteNo(c *gin.Context) {
	no, err := api.deps.Alloc.Next(c.Request.Context(), api.deps.Now().UTC())
	if err != nil {
		respondError(c, apierr.Wrap(apierr.CodeServer, "failed to generate quote number", err))
		return
	}
	respondOK(c, gin.H{"quote_no": no})
}

type calculateTotalRequest struct {
	Items json.RawMessage `json:"items"`
}

type rawLineItem struct {
	UnitPrice *float64 `json:"unit_price"`
	Quantity  *float64 `json:"quantity"`
}

// CalculateQuoteTotal sums line items with half-up cent rounding.
func (api *Api) CalculateQuoteTotal(c *gin.Context) {
	var req calculateTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid JSON body")
		return
	}
	if len(req.Items) == 0 || string(req.Items) == "null" {
		invalidInput(c, "items is required and must be an array")
		return
	}
	var raw []rawLineItem
	if err := json.Unmarshal(req.Items, &raw); err != nil {
		invalidInput(c, "items must be an array of objects with numeric unit_price and quantity")
		return
	}

	items := make([]quote.LineItem, len(raw))
	for i, it := range raw {
		if it.UnitPrice == nil || it.Quantity == nil {
			invalidInput(c, "unit_price and quantity must be numbers")
			return
		}
		items[i] = quote.LineItem{UnitPrice: *it.UnitPrice, Quantity: *it.Quantity}
	}

	total, count, err := quote.Total(items)
	if err != nil {
		invalidInput(c, err.Error())
		return
	}
	respondOK(c, gin.H{"total_price": total, "item_count": count})
}

type createQuoteRequest struct {
	CustomerName string `json:"customer_name"`
	Status       string `json:"status"`
	Items        []struct {
		Name      string  `json:"name"`
		UnitPrice float64 `json:"unit_price"`
		Quantity  int     `json:"quantity"`
	} `json:"items"`
}

func (api *Api) CreateQuote(c *gin.Context) {
	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid JSON body")
		return
	}
	if req.CustomerName == "" {
		invalidInput(c, "customer_name is required")
		return
	}
	if req.Status != "" && !validStatus(req.Status) {
		invalidInput(c, fmt.Sprintf("unknown status %q", req.Status))
		return
	}

	in := &quote.CreateInput{CustomerName: req.CustomerName, Status: req.Status}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			invalidInput(c, "quantity must be a positive integer")
			return
		}
		in.Items = append(in.Items, quote.QuoteItem{Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}

	q, err := api.deps.Quotes.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, q)
}

func (api *Api) GetQuote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("quoteID"))
	if err != nil {
		invalidInput(c, "quoteID must be a UUID")
		return
	}
	q, err := api.deps.Quotes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, q)
}

func (api *Api) ListQuotes(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	quotes, err := api.deps.Quotes.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if quotes == nil {
		quotes = []quote.Quote{}
	}
	respondOK(c, quotes)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (api *Api) UpdateQuoteStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("quoteID"))
	if err != nil {
		invalidInput(c, "quoteID must be a UUID")
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validStatus(req.Status) {
		invalidInput(c, "status must be one of draft, sent, accepted, rejected")
		return
	}
	if err := api.deps.Quotes.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"id": id, "status": req.Status})
}

func validStatus(s string) bool {
	switch s {
	case quote.StatusDraft, quote.StatusSent, quote.StatusAccepted, quote.StatusRejected:
		return true
	}
	return false
}
