// Package handlers is the HTTP surface of the conversion service. The
// convert handler ingests the multipart upload, runs the pipeline and
// composes the terminal response; it is the only place where a pipeline
// classification becomes a wire-level status.
package handlers

import (
	"context"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/config"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/convert"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/domain"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/cache"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/logging"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/pipeline"
)

// ConvertService bundles the pipeline and its request-independent
// collaborators for the /convert route.
type ConvertService struct {
	cfg      config.Config
	pipe     *pipeline.Pipeline
	pdfCache *cache.PDFCache
}

// NewConvertService creates the handler service. pdfCache may be nil when
// caching is disabled.
func NewConvertService(cfg config.Config, pipe *pipeline.Pipeline, pdfCache *cache.PDFCache) *ConvertService {
	return &ConvertService{cfg: cfg, pipe: pipe, pdfCache: pdfCache}
}

// HandleConvert serves POST /convert. Exactly one response is emitted per
// request: either the PDF attachment or a JSON error from the fixed status
// set.
func (s *ConvertService) HandleConvert(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return composeError(c, domain.ErrMissingFile)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return composeError(c, domain.ErrMissingFile)
	}
	upload, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		logging.Error("Upload read failed", "error", err)
		return composeError(c, err)
	}

	opts := convert.ParseOptions(
		c.FormValue("fontSize"),
		c.FormValue("landscape"),
		c.FormValue("singlePageSheets"),
		s.cfg.Convert.DefaultFontSize,
	)

	filename := PDFFilename(fileHeader.Filename)

	var cacheKey string
	if s.pdfCache != nil {
		cacheKey = cache.Key(upload, opts)
		if pdf, ok := s.pdfCache.Get(c.Context(), cacheKey); ok {
			return sendPDF(c, pdf, filename)
		}
	}

	// Background context: a client that disconnects early does not cancel
	// in-flight transform or render work. Only the renderer-call timeout
	// aborts anything.
	pdf, err := s.pipe.Convert(context.Background(), upload, fileHeader.Size, opts)
	if err != nil {
		return composeError(c, err)
	}

	if s.pdfCache != nil {
		s.pdfCache.Set(c.Context(), cacheKey, pdf)
	}

	logging.Info("PDF generated",
		"filename", filename,
		"request_id", c.Get("X-Request-ID"),
		"bytes", len(pdf),
	)
	return sendPDF(c, pdf, filename)
}

func sendPDF(c *fiber.Ctx, pdf []byte, filename string) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}

// composeError maps a pipeline classification onto the wire. Upstream bodies
// and internal fault detail never reach the client; the full error is
// logged instead.
func composeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, domain.ErrMissingFile):
		status, message = fiber.StatusBadRequest, domain.ErrMissingFile.Error()
	case errors.Is(err, domain.ErrInvalidFormat):
		status, message = fiber.StatusBadRequest, domain.ErrInvalidFormat.Error()
	case errors.Is(err, domain.ErrFileTooLarge):
		status, message = fiber.StatusRequestEntityTooLarge, domain.ErrFileTooLarge.Error()
	case errors.Is(err, domain.ErrOverloaded):
		status, message = fiber.StatusServiceUnavailable, domain.ErrOverloaded.Error()
	case errors.Is(err, domain.ErrRenderTimeout):
		status, message = fiber.StatusGatewayTimeout, domain.ErrRenderTimeout.Error()
	default:
		if ue, ok := domain.AsUpstream(err); ok {
			status, message = ue.StatusCode, ue.Message
		}
	}

	if status >= fiber.StatusInternalServerError {
		logging.Error("Conversion failed", "status", status, "error", err.Error())
	} else {
		logging.Warn("Conversion rejected", "status", status, "error", err.Error())
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
