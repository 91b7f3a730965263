// Package document resolves printable templates and fills the field sets
// of admission paperwork: the admission form, consent forms and receipts.
// Rendering reads admissions but never changes them.
package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// Kind is the document to produce.
type Kind string

const (
	KindAdmissionForm Kind = "admission-form"
	KindConsentForm   Kind = "consent-form"
	KindReceipt       Kind = "receipt"
)

// TemplateModule is the module name admission paperwork is mapped under.
const TemplateModule = "admission"

// ParseKind accepts the URL form of a kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAdmissionForm, KindConsentForm, KindReceipt:
		return k, nil
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// DocumentType is the template mapping key of the kind.
func (k Kind) DocumentType() string {
	return strings.ReplaceAll(string(k), "-", "_")
}

func (k Kind) numberPrefix() string {
	switch k {
	case KindConsentForm:
		return "CNS"
	case KindReceipt:
		return "RCP"
	}
	return "ADM"
}

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentUnpaid  PaymentStatus = "unpaid"
)

type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// RenderOptions carries the inputs that are not part of the admission.
type RenderOptions struct {
	AmountPaid   *decimal.Decimal     // receipt; nil means nothing paid
	LineItems    []LineItem           // receipt; defaults to the deposit
	Variant      model.ConsentVariant // consent form; defaults to admission
	Acknowledged bool                 // consent form acknowledgement gate
}

// RenderedDocument is a field-filled document ready for a print surface.
type RenderedDocument struct {
	Kind                Kind              `json:"kind"`
	DocumentNumber      string            `json:"document_number"`
	Title               string            `json:"title"`
	Fields              map[string]string `json:"fields"`
	LineItems           []LineItem        `json:"line_items,omitempty"`
	Total               decimal.Decimal   `json:"total"`
	AmountPaid          *decimal.Decimal  `json:"amount_paid,omitempty"`
	BalanceDue          *decimal.Decimal  `json:"balance_due,omitempty"`
	PaymentStatus       PaymentStatus     `json:"payment_status,omitempty"`
	VerificationCode    string            `json:"verification_code"`
	VerificationPayload string            `json:"verification_payload"`
	Printable           bool              `json:"printable"`
	Template            *model.Template   `json:"template"`
}

// RenderError reports a missing identity field.  Optional fields never
// cause one; they render blank.
type RenderError struct {
	Field string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("cannot render document: %s is required", e.Field)
}

// AdmissionSource loads committed admissions.
type AdmissionSource interface {
	GetByID(ctx context.Context, id string) (*model.Admission, error)
}

// TemplateResolver is implemented by *Resolver.
type TemplateResolver interface {
	Resolve(ctx context.Context, module, documentType string) (*model.Template, error)
}

// Renderer builds documents from committed admissions and their snapshots.
type Renderer struct {
	admissions AdmissionSource
	templates  TemplateResolver
	loc        *time.Location
	hospital   string
	log        zerolog.Logger
}

// NewRenderer returns a renderer formatting times in loc.  templates may be
// nil, in which case documents carry no template.
func NewRenderer(admissions AdmissionSource, templates TemplateResolver, loc *time.Location, hospital string, logger zerolog.Logger) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{
		admissions: admissions,
		templates:  templates,
		loc:        loc,
		hospital:   hospital,
		log:        logger.With().Str("component", "renderer").Logger(),
	}
}

// Render loads the admission and produces the document of the given kind.
// A template lookup failure is logged and the document is rendered without
// a template; only a missing admission or identity field fails the call.
func (r *Renderer) Render(ctx context.Context, admissionID string, kind Kind, opts RenderOptions) (*RenderedDocument, error) {
	adm, err := r.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	doc, err := r.Build(adm, kind, opts)
	if err != nil {
		return nil, err
	}
	if r.templates != nil {
		tpl, err := r.templates.Resolve(ctx, TemplateModule, kind.DocumentType())
		if err != nil {
			r.log.Warn().Err(err).Str("kind", string(kind)).Msg("template lookup failed, rendering without template")
		}
		doc.Template = tpl
	}
	return doc, nil
}

// Build fills the document from the admission alone.
func (r *Renderer) Build(adm *model.Admission, kind Kind, opts RenderOptions) (*RenderedDocument, error) {
	number := DocumentNumber(kind, adm)
	if number == "" {
		return nil, &RenderError{Field: "document_number"}
	}
	if strings.TrimSpace(adm.Snapshot.Patient.Name) == "" {
		return nil, &RenderError{Field: "patient_name"}
	}

	doc := &RenderedDocument{
		Kind:           kind,
		DocumentNumber: number,
		Printable:      true,
		Fields: map[string]string{
			"document_number": number,
			"patient_name":    adm.Snapshot.Patient.Name,
			"hospital_name":   r.hospital,
		},
	}

	var err error
	switch kind {
	case KindAdmissionForm:
		r.fillAdmissionForm(doc, adm)
	case KindConsentForm:
		err = r.fillConsentForm(doc, adm, opts)
	case KindReceipt:
		r.fillReceipt(doc, adm, opts)
	default:
		err = fmt.Errorf("unknown document kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	doc.VerificationCode = VerificationCode(number, adm.AdmissionDate, doc.Total)
	doc.VerificationPayload = VerificationPayload(number, adm.AdmissionDate, doc.Total)
	return doc, nil
}

// DocumentNumber is <prefix>-<yyyymmdd>-<first 8 characters of the id>, or
// "" when the admission has no id.
func DocumentNumber(kind Kind, adm *model.Admission) string {
	id := strings.ReplaceAll(adm.ID, "-", "")
	if id == "" {
		return ""
	}
	if len(id) > 8 {
		id = id[:8]
	}
	date := adm.AdmissionDate
	if date.IsZero() {
		date = adm.AdmittedAt
	}
	return fmt.Sprintf("%s-%s-%s", kind.numberPrefix(), date.Format("20060102"), strings.ToUpper(id))
}

func (r *Renderer) fillConsentForm(doc *RenderedDocument, adm *model.Admission, opts RenderOptions) error {
	variant := opts.Variant
	if variant == "" {
		variant = model.ConsentAdmission
	}
	text, err := ConsentText(variant, adm.Snapshot.Patient.Name, r.hospital)
	if err != nil {
		return err
	}
	doc.Title = "Consent Form"
	doc.Total = decimal.Zero
	doc.Printable = opts.Acknowledged
	doc.Fields["variant"] = string(variant)
	doc.Fields["consent_text"] = text
	doc.Fields["acknowledged"] = fmt.Sprintf("%t", opts.Acknowledged)
	doc.Fields["date"] = formatDate(adm.AdmissionDate)
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
