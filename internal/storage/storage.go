// Package storage saves uploaded images on the local filesystem and hands
// back public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quotedesk/quotedesk/internal/apierr"
)

// allowedImageTypes maps accepted MIME types to file extensions.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Upload describes one incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Folder      string
	Size        int64
	Reader      io.Reader
}

// FileInfo is returned to the caller after a successful save.
type FileInfo struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	Path     string `json:"path"`
}

// Service validates and persists uploads under a base directory.
type Service struct {
	baseDir     string
	baseURL     string
	publicRoute string
	maxSize     int64
}

func NewService(baseDir, baseURL, publicRoute string, maxSizeBytes int64) (*Service, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Service{
		baseDir:     baseDir,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		publicRoute: "/" + strings.Trim(publicRoute, "/"),
		maxSize:     maxSizeBytes,
	}, nil
}

// BaseDir exposes the storage root for static file serving.
func (s *Service) BaseDir() string { return s.baseDir }

// PublicRoute exposes the URL prefix files are served under.
func (s *Service) PublicRoute() string { return s.publicRoute }

// Save validates the upload and writes it to disk under a generated name.
func (s *Service) Save(ctx context.Context, up *Upload) (*FileInfo, error) {
	contentType := strings.ToLower(strings.TrimSpace(up.ContentType))
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, apierr.Newf(apierr.CodeUpload, "unsupported file type %q: only jpeg, png and webp images are accepted", up.ContentType)
	}
	if up.Size > s.maxSize {
		return nil, apierr.Newf(apierr.CodeUpload, "file too large: %d bytes exceeds the %d byte limit", up.Size, s.maxSize)
	}

	folder := sanitizeFolder(up.Folder)
	name := uuid.New().String() + ext
	relPath := path.Join(folder, name)

	dir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apierr.Wrap(apierr.CodeUpload, "prepare upload folder", err)
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeUpload, "create file", err)
	}
	defer dst.Close() //nolint:errcheck

	// copy one byte past the limit so an undeclared oversize body is caught
	written, err := io.Copy(dst, io.LimitReader(up.Reader, s.maxSize+1))
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeUpload, "write file", err)
	}
	if written > s.maxSize {
		os.Remove(dst.Name()) //nolint:errcheck
		return nil, apierr.Newf(apierr.CodeUpload, "file too large: exceeds the %d byte limit", s.maxSize)
	}

	log.Info().Str("path", relPath).Int64("size", written).Str("type", contentType).Msg("file uploaded")
	return &FileInfo{
		URL:      s.baseURL + s.publicRoute + "/" + relPath,
		Filename: name,
		Size:     written,
		Type:     contentType,
		Path:     relPath,
	}, nil
}

// sanitizeFolder keeps uploads inside the base directory.
func sanitizeFolder(folder string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" || folder == "." {
		return "misc"
	}
	return folder
}
