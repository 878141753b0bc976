package api

import (
	"github.com/gin-gonic/gin"

	"github.com/quotedesk/quotedesk/internal/apierr"
	"github.com/quotedesk/quotedesk/internal/storage"
)

// UploadImage accepts one multipart image under the "file" field, with an
// optional "folder" field selecting the target subdirectory.
func (api *Api) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, apierr.New(apierr.CodeUpload, "no file provided"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, apierr.Wrap(apierr.CodeUpload, "failed to read uploaded file", err))
		return
	}
	defer f.Close()

	info, err := api.deps.Uploads.Save(c.Request.Context(), &storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Folder:      c.PostForm("folder"),
		Size:        fh.Size,
		Reader:      f,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, info)
}
