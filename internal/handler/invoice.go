package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/go-invoices/internal/errs"
	"github.com/deppfellow/go-invoices/internal/model/invoice"
	"github.com/deppfellow/go-invoices/internal/server"
	"github.com/deppfellow/go-invoices/internal/service"
)

var validate = func() *validator.Validate {
	v := validator.New()
	// Report route parameters by their URL name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("param"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}()

// formFields captures the submitted invoice fields untyped, so the invoice
// schema can coerce and report on them. JSON bodies are decoded here;
// url-encoded and multipart bodies are read from the form in raw.
type formFields struct {
	fields map[string]any
}

func (f *formFields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	f.fields = fields
	return nil
}

func (f *formFields) raw(c echo.Context) (map[string]any, error) {
	if f.fields != nil {
		return f.fields, nil
	}

	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEApplicationForm) && !strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		return map[string]any{}, nil
	}

	form, err := c.FormParams()
	if err != nil {
		return nil, errs.NewBadRequestError("Invalid form submission", false, nil, nil, nil)
	}
	return invoice.Values(form), nil
}

// CreateInvoiceRequest has no binding rules of its own; its fields are
// checked by the invoice schema in the service.
type CreateInvoiceRequest struct {
	formFields
}

func (r *CreateInvoiceRequest) Validate() error {
	return nil
}

type InvoiceIDRequest struct {
	ID string `param:"id" validate:"required"`
}

func (r *InvoiceIDRequest) Validate() error {
	return validate.Struct(r)
}

// UpdateInvoiceRequest takes the invoice id from the route. An id in the
// body is ignored.
type UpdateInvoiceRequest struct {
	InvoiceIDRequest
	formFields
}

func (r *UpdateInvoiceRequest) Validate() error {
	return r.InvoiceIDRequest.Validate()
}

type ListInvoicesRequest struct{}

func (r *ListInvoicesRequest) Validate() error {
	return nil
}

type InvoiceHandler struct {
	Handler
	invoices *service.InvoiceService
}

func NewInvoiceHandler(s *server.Server, invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		Handler:  NewHandler(s),
		invoices: invoices,
	}
}

func (h *InvoiceHandler) CreateInvoice(c echo.Context, req *CreateInvoiceRequest) (service.ActionResult, error) {
	raw, err := req.raw(c)
	if err != nil {
		return service.ActionResult{}, err
	}
	return h.invoices.CreateInvoice(c.Request().Context(), raw)
}

func (h *InvoiceHandler) UpdateInvoice(c echo.Context, req *UpdateInvoiceRequest) (service.ActionResult, error) {
	raw, err := req.raw(c)
	if err != nil {
		return service.ActionResult{}, err
	}
	return h.invoices.UpdateInvoice(c.Request().Context(), req.ID, raw)
}

func (h *InvoiceHandler) DeleteInvoice(c echo.Context, req *InvoiceIDRequest) (service.ActionResult, error) {
	return h.invoices.DeleteInvoice(c.Request().Context(), req.ID)
}

func (h *InvoiceHandler) ListInvoices(c echo.Context, _ *ListInvoicesRequest) ([]invoice.Summary, error) {
	return h.invoices.ListInvoices(c.Request().Context())
}

func (h *InvoiceHandler) GetInvoice(c echo.Context, req *InvoiceIDRequest) (*invoice.Summary, error) {
	return h.invoices.GetInvoice(c.Request().Context(), req.ID)
}

// ExportInvoices renders the invoice list as CSV.
func (h *InvoiceHandler) ExportInvoices(c echo.Context, _ *ListInvoicesRequest) ([]byte, error) {
	summaries, err := h.invoices.ListInvoices(c.Request().Context())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "customer", "email", "amount", "status", "date"})
	for _, s := range summaries {
		_ = w.Write([]string{
			s.ID,
			s.CustomerName,
			s.CustomerEmail,
			invoice.FormatAmount(s.Amount),
			string(s.Status),
			s.Date,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Routes returns the echo handlers for the invoice endpoints.
func (h *InvoiceHandler) Routes() InvoiceRoutes {
	return InvoiceRoutes{
		List:   Handle(h.Handler, h.ListInvoices, http.StatusOK, func() *ListInvoicesRequest { return &ListInvoicesRequest{} }),
		Export: HandleFile(h.Handler, h.ExportInvoices, http.StatusOK, func() *ListInvoicesRequest { return &ListInvoicesRequest{} }, "invoices.csv", "text/csv"),
		Get:    Handle(h.Handler, h.GetInvoice, http.StatusOK, func() *InvoiceIDRequest { return &InvoiceIDRequest{} }),
		Create: HandleAction(h.Handler, h.CreateInvoice, func() *CreateInvoiceRequest { return &CreateInvoiceRequest{} }),
		Update: HandleAction(h.Handler, h.UpdateInvoice, func() *UpdateInvoiceRequest { return &UpdateInvoiceRequest{} }),
		Delete: HandleAction(h.Handler, h.DeleteInvoice, func() *InvoiceIDRequest { return &InvoiceIDRequest{} }),
	}
}

type InvoiceRoutes struct {
	List, Export, Get, Create, Update, Delete echo.HandlerFunc
}
