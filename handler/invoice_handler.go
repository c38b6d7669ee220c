package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/client"
	"github.com/Aashish23092/invoice-extractor/config"
	"github.com/Aashish23092/invoice-extractor/dto"
	"github.com/Aashish23092/invoice-extractor/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	reportWriter   service.ReportWriter
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, reportWriter service.ReportWriter) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		reportWriter:   reportWriter,
	}
}

// NewRouter builds the gin engine with the health check and the invoice API.
func NewRouter(h *InvoiceHandler, maxUploadMB int64) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = maxUploadMB << 20

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Invoice Extractor",
		})
	})

	api := router.Group("/api/v1")
	{
		invoices := api.Group("/invoices")
		{
			invoices.POST("/extract", h.ExtractInvoice)
			invoices.POST("/report", h.ExtractReport)
		}
		api.GET("/templates", h.ListTemplates)
	}
	return router
}

// ExtractInvoice handles POST /api/v1/invoices/extract
func (h *InvoiceHandler) ExtractInvoice(c *gin.Context) {
	requestID := uuid.NewString()
	src, ok := h.readSource(c, requestID)
	if !ok {
		return
	}

	result, err := h.invoiceService.Extract(c.Request.Context(), src)
	if err != nil {
		h.sendExtractionError(c, requestID, src.Name, err)
		return
	}

	c.JSON(http.StatusOK, dto.ExtractResponse{
		RequestID:   requestID,
		Source:      src.Name,
		Template:    result.Template.Name,
		Invoice:     result.Record,
		Notes:       result.Notes,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// ExtractReport handles POST /api/v1/invoices/report and answers with the
// xlsx workbook.
func (h *InvoiceHandler) ExtractReport(c *gin.Context) {
	requestID := uuid.NewString()
	src, ok := h.readSource(c, requestID)
	if !ok {
		return
	}

	result, err := h.invoiceService.Extract(c.Request.Context(), src)
	if err != nil {
		h.sendExtractionError(c, requestID, src.Name, err)
		return
	}

	var buf bytes.Buffer
	if err := h.reportWriter.Write(result.Record, &buf); err != nil {
		h.sendError(c, http.StatusInternalServerError, "UnexpectedError", "Failed to build report", src.Name, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, service.ReportFileName(result.Record)))
	c.Header("X-Request-ID", requestID)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListTemplates handles GET /api/v1/templates
func (h *InvoiceHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.invoiceService.Templates()})
}

func (h *InvoiceHandler) readSource(c *gin.Context, requestID string) (service.ExtractSource, bool) {
	file, _ := c.FormFile("file")
	request := &dto.ExtractRequest{
		File:     file,
		Template: c.PostForm("template"),
		Password: c.PostForm("password"),
		Table:    c.PostForm("table"),
	}
	if err := request.Validate(); err != nil {
		h.sendError(c, http.StatusBadRequest, "BadRequest", err.Error(), "", nil)
		return service.ExtractSource{}, false
	}

	zap.L().Info("received invoice",
		zap.String("request_id", requestID),
		zap.String("file", file.Filename),
		zap.Int64("size", file.Size),
		zap.String("template", request.Template),
	)

	reader, err := file.Open()
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "UnexpectedError", "Failed to open uploaded file", file.Filename, err)
		return service.ExtractSource{}, false
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "UnexpectedError", "Failed to read uploaded file", file.Filename, err)
		return service.ExtractSource{}, false
	}

	src := service.ExtractSource{
		Name:     file.Filename,
		Data:     data,
		Template: request.Template,
		Password: request.Password,
	}
	if request.Table != "" {
		rows, err := client.ParseTableJSON([]byte(request.Table))
		if err != nil {
			h.sendError(c, http.StatusBadRequest, "BadRequest", "Invalid table field", file.Filename, err)
			return service.ExtractSource{}, false
		}
		src.Table = rows
	}
	return src, true
}

func (h *InvoiceHandler) sendExtractionError(c *gin.Context, requestID, source string, err error) {
	status, kind := classifyError(err)
	zap.L().Warn("invoice extraction failed",
		zap.String("request_id", requestID),
		zap.String("source", source),
		zap.String("kind", kind),
		zap.Error(err),
	)
	h.sendError(c, status, kind, "", source, err)
}

// classifyError maps err to the HTTP status and the kind reported to the client.
func classifyError(err error) (int, string) {
	kind := dto.ErrorKind(err)
	switch {
	case dto.IsExtractionFailure(err):
		return http.StatusUnprocessableEntity, kind
	case errors.Is(err, config.ErrTemplateNotFound):
		return http.StatusBadRequest, "TemplateNotFoundError"
	case errors.Is(err, dto.ErrDocumentUnavailable), errors.Is(err, dto.ErrUnsupportedDocument):
		return http.StatusBadRequest, kind
	}
	return http.StatusInternalServerError, kind
}

// sendError sends a structured error response
func (h *InvoiceHandler) sendError(c *gin.Context, statusCode int, kind, message, source string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   kind,
		Message: errorMsg,
		Code:    statusCode,
		Source:  source,
	})
}
