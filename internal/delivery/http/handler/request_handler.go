package handler

import (
	"io"
	"mime/multipart"
	"strings"

	"matchmap/internal/pkg/response"
	"matchmap/internal/usecase/lifecycle"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type RequestHandler struct {
	svc RequestService
}

func NewRequestHandler(svc RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// RegisterRoutes expects r to be a tenant-scoped group.
func (h *RequestHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/requests", h.List)
	r.Post("/requests", h.Create)
	r.Get("/requests/:id", h.Get)
	r.Post("/requests/:id/start", h.Start)
}

func (h *RequestHandler) List(c fiber.Ctx) error {
	actx, err := requireTenant(c)
	if err != nil {
		return err
	}
	out, err := h.svc.List(c.Context(), actx)
	if err != nil {
		return mapLifecycleError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}

func (h *RequestHandler) Get(c fiber.Ctx) error {
	actx, err := requireTenant(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return mapLifecycleError(lifecycle.ErrNotFound)
	}
	detail, err := h.svc.Get(c.Context(), actx, id)
	if err != nil {
		return mapLifecycleError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, detail)
}

func (h *RequestHandler) Create(c fiber.Ctx) error {
	actx, err := requireTenant(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return badRequest("Expected multipart form data", err)
	}

	in := lifecycle.CreateInput{
		Metadata: lifecycle.Metadata{
			JobTitle:   formValue(form, "jobTitle"),
			Department: optionalValue(form, "department"),
			Seniority:  optionalValue(form, "seniority"),
		},
	}
	if fhs := form.File["jobFile"]; len(fhs) > 0 {
		u := toUpload(fhs[0])
		in.JobFile = &u
	}
	for _, fh := range form.File["applicantFiles"] {
		in.ApplicantFiles = append(in.ApplicantFiles, toUpload(fh))
	}

	res, err := h.svc.Create(c.Context(), actx, in)
	if err != nil {
		return mapLifecycleError(err)
	}

	data := map[string]any{
		"success":       true,
		"requestId":     res.RequestID,
		"status":        res.Status,
		"paymentStatus": res.PaymentStatus,
	}
	if res.ExecutionID != "" {
		data["executionId"] = res.ExecutionID
	}
	return response.Success(c, fiber.StatusCreated, "Request created", data)
}

func (h *RequestHandler) Start(c fiber.Ctx) error {
	actx, err := requireTenant(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return mapLifecycleError(lifecycle.ErrNotFound)
	}

	res, err := h.svc.Start(c.Context(), actx, id)
	if err != nil {
		return mapLifecycleError(err)
	}
	return c.Status(fiber.StatusOK).JSON(map[string]any{
		"success":     true,
		"executionId": res.ExecutionID,
		"status":      res.Status,
	})
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

func optionalValue(form *multipart.Form, key string) *string {
	v := formValue(form, key)
	if v == "" {
		return nil
	}
	return &v
}

func toUpload(fh *multipart.FileHeader) lifecycle.Upload {
	return lifecycle.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
