package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/orderdesk/service/internal/response"
)

// multipartOverhead is added to the file ceiling to cover form fields and
// part headers when capping the request body.
const multipartOverhead = 1 << 20

// Handler holds HTTP handlers for order endpoints.
type Handler struct {
	svc      *Service
	maxBytes int64
	logger   *log.Entry
}

// NewHandler creates a new order Handler. maxFileBytes caps the uploaded
// file; zero disables the cap.
func NewHandler(svc *Service, maxFileBytes int64, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "order_http")
	}
	return &Handler{svc: svc, maxBytes: maxFileBytes, logger: logger}
}

// Routes returns a router for mounting under /api/orders.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/download-url", h.DownloadURL)
	return r
}

type orderBody struct {
	ID           int64       `json:"id"           example:"1"`
	CustomerName string      `json:"customerName" example:"Alice"`
	Amount       json.Number `json:"amount"       swaggertype:"number" example:"100.00"`
	FileURL      string      `json:"fileUrl"      example:"https://orders.s3.amazonaws.com/orders/0b7c...-invoice.pdf"`
	CreatedAt    time.Time   `json:"createdAt"    example:"2026-02-27T14:48:34Z"`
	UpdatedAt    time.Time   `json:"updatedAt"    example:"2026-02-27T14:48:34Z"`
}

type downloadLinkBody struct {
	URL       string    `json:"url"       example:"https://orders.s3.amazonaws.com/orders/0b7c...-invoice.pdf?X-Amz-Signature=..."`
	ExpiresAt time.Time `json:"expiresAt" example:"2026-02-27T14:53:34Z"`
}

func toOrderBody(o Order) orderBody {
	return orderBody{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		Amount:       json.Number(o.Amount.StringFixed(2)),
		FileURL:      o.FileURL,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// Create godoc
//
//	@Summary		Create order
//	@Description	Uploads the file, then stores a new order that points at it.
//	@Tags			orders
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			customerName	formData	string	true	"Customer name"
//	@Param			amount			formData	number	true	"Order amount, at most 2 decimal places"
//	@Param			file			formData	file	true	"Order file"
//	@Success		201				{object}	orderBody
//	@Failure		400				{object}	response.ErrorBody
//	@Failure		500				{object}	response.ErrorBody
//	@Router			/orders [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseForm(w, r, true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.svc.Create(r.Context(), form.customerName, form.amount, lo.FromPtr(form.file))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, toOrderBody(o))
}

// List godoc
//
//	@Summary	List orders
//	@Tags		orders
//	@Produce	json
//	@Success	200	{array}		orderBody
//	@Failure	500	{object}	response.ErrorBody
//	@Router		/orders [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, lo.Map(orders, func(o Order, _ int) orderBody { return toOrderBody(o) }))
}

// Get godoc
//
//	@Summary	Get order
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		int	true	"Order ID"
//	@Success	200	{object}	orderBody
//	@Failure	400	{object}	response.ErrorBody
//	@Failure	404	{object}	response.ErrorBody
//	@Failure	500	{object}	response.ErrorBody
//	@Router		/orders/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, found, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		response.NotFound(w, fmt.Sprintf("order %d not found", id))
		return
	}
	response.OK(w, toOrderBody(o))
}

// Update godoc
//
//	@Summary		Update order
//	@Description	Replaces customer name and amount. When a file is sent it replaces the order's file; the old object is kept in storage.
//	@Tags			orders
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id				path		int		true	"Order ID"
//	@Param			customerName	formData	string	true	"Customer name"
//	@Param			amount			formData	number	true	"Order amount, at most 2 decimal places"
//	@Param			file			formData	file	false	"Replacement file"
//	@Success		200				{object}	orderBody
//	@Failure		400				{object}	response.ErrorBody
//	@Failure		404				{object}	response.ErrorBody
//	@Failure		500				{object}	response.ErrorBody
//	@Router			/orders/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	form, err := h.parseForm(w, r, false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, found, err := h.svc.Update(r.Context(), id, form.customerName, form.amount, form.file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		response.NotFound(w, fmt.Sprintf("order %d not found", id))
		return
	}
	response.OK(w, toOrderBody(o))
}

// Delete godoc
//
//	@Summary		Delete order
//	@Description	Removes the order record. Its file stays in storage.
//	@Tags			orders
//	@Param			id	path	int	true	"Order ID"
//	@Success		204
//	@Failure		400	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/orders/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	deleted, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !deleted {
		response.NotFound(w, fmt.Sprintf("order %d not found", id))
		return
	}
	response.NoContent(w)
}

// DownloadURL godoc
//
//	@Summary		Get download link
//	@Description	Returns a short-lived signed URL for the order's file.
//	@Tags			orders
//	@Produce		json
//	@Param			id	path		int	true	"Order ID"
//	@Success		200	{object}	downloadLinkBody
//	@Failure		400	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		409	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/orders/{id}/download-url [get]
func (h *Handler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	link, err := h.svc.GetDownloadLink(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, downloadLinkBody{URL: link.URL, ExpiresAt: link.ExpiresAt})
}

// errFileTooLarge marks a request body that hit the size cap.
var errFileTooLarge = errors.New("request body too large")

type orderForm struct {
	customerName string
	amount       decimal.Decimal
	file         *File
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request, fileRequired bool) (orderForm, error) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return orderForm{}, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, h.maxBytes)
		}
		return orderForm{}, &ValidationError{Field: "body", Reason: "must be multipart/form-data"}
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	form := orderForm{customerName: r.FormValue("customerName")}

	rawAmount := r.FormValue("amount")
	if rawAmount == "" {
		return orderForm{}, &ValidationError{Field: "amount", Reason: "is required"}
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return orderForm{}, &ValidationError{Field: "amount", Reason: "must be a decimal number"}
	}
	form.amount = amount

	part, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		if fileRequired {
			return orderForm{}, &ValidationError{Field: "file", Reason: "is required"}
		}
		return form, nil
	case err != nil:
		return orderForm{}, &ValidationError{Field: "file", Reason: "could not be read"}
	}
	defer part.Close()

	file, err := readFile(part, header)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return orderForm{}, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, h.maxBytes)
		}
		return orderForm{}, &ValidationError{Field: "file", Reason: "could not be read"}
	}
	form.file = file
	return form, nil
}

func readFile(part multipart.File, header *multipart.FileHeader) (*File, error) {
	data, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, response.CodeValidationFailed, verr.Error())
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, response.CodeValidationFailed, err.Error())
	case errors.Is(err, errFileTooLarge):
		response.BadRequest(w, response.CodeFileTooLarge, err.Error())
	case errors.Is(err, ErrUploadFailed):
		h.logger.WithError(err).WithField("path", r.URL.Path).Warn("file upload failed")
		response.BadRequest(w, response.CodeFileUploadFailed, ErrUploadFailed.Error())
	case errors.Is(err, ErrOrderNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNoFileAttached):
		response.Conflict(w, response.CodeNoFileAttached, err.Error())
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		response.InternalError(w)
	}
}
