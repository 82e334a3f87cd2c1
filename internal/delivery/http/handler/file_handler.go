package handler

import (
	"net/url"

	"matchmap/internal/delivery/http/middleware"
	"matchmap/internal/domain/request"
	"matchmap/internal/usecase/files"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type FileHandler struct {
	svc FileService
}

func NewFileHandler(svc FileService) *FileHandler {
	return &FileHandler{svc: svc}
}

// Download serves a stored blob. A signed token in the query authorizes the
// request on its own; otherwise the tenant middleware must have run.
func (h *FileHandler) Download(c fiber.Ctx) error {
	fileID, err := uuid.Parse(c.Params("fileId"))
	if err != nil {
		return mapFilesError(files.ErrNotFound)
	}
	kind, ok := request.ParseFileKind(c.Query("type"))
	if !ok {
		return badRequest("type must be job or applicant", nil)
	}

	var content files.Content
	if token := c.Query("token"); token != "" {
		content, err = h.svc.DownloadWithToken(c.Context(), c.Params("slug"), fileID, kind, c.Query("exp"), token)
	} else {
		actx, ok := middleware.TenantFrom(c)
		if !ok {
			return mapFilesError(files.ErrUnauthenticated)
		}
		content, err = h.svc.Download(c.Context(), actx, fileID, kind)
	}
	if err != nil {
		return mapFilesError(err)
	}

	c.Set(fiber.HeaderContentType, content.File.MimeType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+url.PathEscape(content.File.Filename)+`"`)
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Status(fiber.StatusOK).Send(content.Data)
}
