package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quotedesk/quotedesk/internal/apierr"
)

// respondOK writes the success envelope.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// respondError classifies err into the taxonomy and writes the error
// envelope. Server-side causes are logged, not leaked.
func respondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	status := apierr.HTTPStatus(ae.Code)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("path", c.FullPath()).Msg("request rejected")
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": string(ae.Code), "message": ae.Message},
	})
}

func invalidInput(c *gin.Context, message string) {
	respondError(c, apierr.New(apierr.CodeInvalidInput, message))
}
