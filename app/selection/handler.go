package selection

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/letra-wholesale/order-sheet/app/orders"
	"github.com/letra-wholesale/order-sheet/app/respond"
	"github.com/letra-wholesale/order-sheet/metrics"
	"github.com/letra-wholesale/order-sheet/models"
)

var errProductNotFound = errors.New("product not found")

type ProductLookup interface {
	Get(ctx context.Context, id int64) (models.Product, bool)
}

// Sessions identifies the browser session that owns a selection.
type Sessions interface {
	SessionID(w http.ResponseWriter, r *http.Request) (string, error)
}

type SelectionResponse struct {
	Items         []models.SelectedProduct `json:"items"`
	TotalItems    int                      `json:"totalItems"`
	TotalQuantity int                      `json:"totalQuantity"`
}

type SelectionHandler struct {
	registry *Registry
	catalog  ProductLookup
	sessions Sessions
	export   orders.Options
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewSelectionHandler takes the export title, sorter and time zone from export.
// Format and sorting are chosen per request.
func NewSelectionHandler(registry *Registry, catalog ProductLookup, sessions Sessions, export orders.Options, logger *zap.Logger, m *metrics.Metrics) *SelectionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionHandler{
		registry: registry,
		catalog:  catalog,
		sessions: sessions,
		export:   export,
		logger:   logger.Named("selection.http"),
		metrics:  m,
	}
}

func (h *SelectionHandler) Mount(r chi.Router) {
	r.Get("/api/selection", h.HandleGet)
	r.Delete("/api/selection", h.HandleClear)
	r.Post("/api/selection/items", h.HandleAdd)
	r.Put("/api/selection/items/{id}", h.HandleSetQuantity)
	r.Delete("/api/selection/items/{id}", h.HandleRemove)
	r.Post("/api/selection/export", h.HandleExport)
}

func (h *SelectionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}
	items := h.registry.Items(sid)
	if r.URL.Query().Get("sort") == "size" {
		items = h.export.Sorter.Sort(items)
	}
	h.writeSelection(w, items)
}

func (h *SelectionHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}

	var input struct {
		ProductID int64 `json:"productId"`
		Quantity  *int  `json:"quantity"`
	}
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	qty := 1
	if input.Quantity != nil {
		qty = *input.Quantity
	}

	// lookup and append both happen under the registry lock
	err := h.registry.Do(sid, func(ws *WorkingSet) error {
		p, found := h.catalog.Get(r.Context(), input.ProductID)
		if !found {
			return errProductNotFound
		}
		return ws.Add(p, qty)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSelection(w, h.registry.Items(sid))
}

func (h *SelectionHandler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	err := h.registry.Do(sid, func(ws *WorkingSet) error {
		return ws.SetQuantity(id, input.Quantity)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSelection(w, h.registry.Items(sid))
}

func (h *SelectionHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	err := h.registry.Do(sid, func(ws *WorkingSet) error {
		if !ws.Remove(id) {
			return ErrItemNotFound
		}
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSelection(w, h.registry.Items(sid))
}

func (h *SelectionHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}
	h.registry.Forget(sid)
	h.writeSelection(w, []models.SelectedProduct{})
}

type exportRequest struct {
	Customer   orders.CustomerInfo `json:"customer"`
	SortBySize bool                `json:"sortBySize"`
	Format     string              `json:"format"`
}

// HandleExport renders the session's selection as a downloadable order sheet.
// The selection is left untouched.
func (h *SelectionHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}

	var input exportRequest
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	format, err := orders.ParseFormat(input.Format)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := h.export
	opts.Format = format
	opts.SortBySize = input.SortBySize

	doc, err := orders.Render(h.registry.Items(sid), input.Customer, opts)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("order sheet exported",
		zap.String("format", string(format)),
		zap.String("company", input.Customer.Company))
	h.metrics.RecordExport(string(format))

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(doc.Filename, format))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

func (h *SelectionHandler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid, err := h.sessions.SessionID(w, r)
	if err != nil {
		h.logger.Error("failed to resolve selection session", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to resolve session")
		return "", false
	}
	return sid, true
}

func (h *SelectionHandler) writeSelection(w http.ResponseWriter, items []models.SelectedProduct) {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	respond.JSON(w, http.StatusOK, SelectionResponse{
		Items:         items,
		TotalItems:    len(items),
		TotalQuantity: total,
	})
}

func (h *SelectionHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errProductNotFound), errors.Is(err, ErrItemNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, orders.ErrCompanyRequired),
		errors.Is(err, orders.ErrContactRequired),
		errors.Is(err, orders.ErrEmptySelection):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("selection request failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid product id")
		return 0, false
	}
	return id, true
}

// contentDisposition carries the Japanese filename as RFC 5987 UTF-8 with an
// ASCII fallback for older clients.
func contentDisposition(filename string, format orders.Format) string {
	return fmt.Sprintf(`attachment; filename="order-sheet.%s"; filename*=UTF-8''%s`, format, url.PathEscape(filename))
}
