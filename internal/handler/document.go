package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hospital-frontdesk/internal/document"
	"github.com/iliyamo/hospital-frontdesk/internal/model"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

// DocumentHandler renders paperwork and manages template mappings.
type DocumentHandler struct {
	Renderer  *document.Renderer
	Resolver  *document.Resolver
	Templates *repository.TemplateRepo
	Hospital  string
}

func NewDocumentHandler(renderer *document.Renderer, resolver *document.Resolver, templates *repository.TemplateRepo, hospital string) *DocumentHandler {
	if renderer == nil || resolver == nil || templates == nil {
		panic("nil dependency passed to NewDocumentHandler")
	}
	return &DocumentHandler{Renderer: renderer, Resolver: resolver, Templates: templates, Hospital: hospital}
}

// Render handles GET /v1/admissions/:id/documents/:kind.
//
// Query parameters:
//
//	paid          amount paid so far (receipt)
//	variant       treatment | admission | lab | opd (consent form)
//	acknowledged  true once the patient accepted the consent text
func (h *DocumentHandler) Render(c echo.Context) error {
	kind, err := document.ParseKind(c.Param("kind"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "UnknownKind"})
	}

	var opts document.RenderOptions
	if v := strings.TrimSpace(c.QueryParam("paid")); v != "" {
		paid, err := decimal.NewFromString(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "paid must be a decimal amount"})
		}
		opts.AmountPaid = &paid
	}
	if v := strings.TrimSpace(c.QueryParam("variant")); v != "" {
		opts.Variant = model.ConsentVariant(strings.ToLower(v))
	}
	if v := c.QueryParam("acknowledged"); v != "" {
		ack, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "acknowledged must be true or false"})
		}
		opts.Acknowledged = ack
	}

	doc, err := h.Renderer.Render(c.Request().Context(), c.Param("id"), kind, opts)
	if err != nil {
		return respondError(c, storage("render document", err))
	}
	return c.JSON(http.StatusOK, doc)
}

// GetTemplate handles GET /v1/templates/:module/:type.  An unmapped pair
// is 200 with a null template.
func (h *DocumentHandler) GetTemplate(c echo.Context) error {
	module, typ := c.Param("module"), c.Param("type")
	t, err := h.Resolver.Resolve(c.Request().Context(), module, typ)
	if err != nil {
		logFor(c).Error().Err(err).Str("module", module).Str("document_type", typ).Msg("resolve template")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "template lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"module": module, "document_type": typ, "template": t})
}

type templateRequest struct {
	Name      string `json:"name"`
	ObjectKey string `json:"object_key"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type"`
}

// PutTemplate handles PUT /v1/templates/:module/:type.  The new mapping
// replaces the active one.
func (h *DocumentHandler) PutTemplate(c echo.Context) error {
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.ObjectKey == "" && req.URL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "object_key or url is required"})
	}

	t := &model.Template{
		Module:       c.Param("module"),
		DocumentType: c.Param("type"),
		Name:         req.Name,
		ObjectKey:    req.ObjectKey,
		URL:          req.URL,
		MimeType:     req.MimeType,
	}
	ctx := c.Request().Context()
	if err := h.Templates.Upsert(ctx, t); err != nil {
		return respondError(c, storage("upsert template", err))
	}
	h.Resolver.Invalidate(ctx, t.Module, t.DocumentType)
	return c.JSON(http.StatusOK, t)
}

// Consent handles GET /v1/consents/:variant?patient=<name>.  The desk shows
// the text and records the acknowledgement itself.
func (h *DocumentHandler) Consent(c echo.Context) error {
	variant := model.ConsentVariant(strings.ToLower(c.Param("variant")))
	patient := c.QueryParam("patient")
	text, err := document.ConsentText(variant, patient, h.Hospital)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"decision": model.ConsentDecision{Variant: variant, PatientName: patient},
		"text":     text,
	})
}
