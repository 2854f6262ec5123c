package catalog

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/letra-wholesale/order-sheet/app/importer"
	"github.com/letra-wholesale/order-sheet/app/respond"
	"github.com/letra-wholesale/order-sheet/app/search"
	"github.com/letra-wholesale/order-sheet/models"
)

const (
	maxImportBytes = 10 << 20
	maxImageBytes  = 5 << 20
)

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

type Response struct {
	Total    int              `json:"total"`
	Products []models.Product `json:"products"`
}

type ImportResponse struct {
	BulkResult
	Skipped int `json:"skipped"`
}

type ProductProvider interface {
	List(ctx context.Context) []models.Product
	Get(ctx context.Context, id int64) (models.Product, bool)
	AddOne(ctx context.Context, d models.Draft) (models.Product, error)
	AddMany(ctx context.Context, drafts []models.Draft) (BulkResult, error)
	Update(ctx context.Context, id int64, patch models.Patch) (models.Product, error)
	UpdateImage(ctx context.Context, id int64, imageURL string) (models.Product, error)
	DeleteOne(ctx context.Context, id int64) (bool, error)
	DeleteMany(ctx context.Context, ids []int64) (bool, error)
	DeleteAll(ctx context.Context) error
}

// Reconciler refreshes open selections after the catalog changes.
type Reconciler interface {
	ReconcileAll(catalog []models.Product)
}

type CatalogHandler struct {
	repo       ProductProvider
	selections Reconciler
	logger     *zap.Logger
}

func NewCatalogHandler(r ProductProvider, selections Reconciler, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{
		repo:       r,
		selections: selections,
		logger:     logger.Named("catalog.http"),
	}
}

// Mount registers the catalog routes. Mutations are wrapped with requireAdmin.
func (h *CatalogHandler) Mount(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/api/products", h.HandleGet)
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/api/products", h.HandleCreate)
		r.Post("/api/products/bulk", h.HandleCreateMany)
		r.Post("/api/products/import", h.HandleImport)
		r.Post("/api/products/delete", h.HandleDeleteMany)
		r.Put("/api/products/{id}", h.HandleUpdate)
		r.Put("/api/products/{id}/image", h.HandleUpdateImage)
		r.Delete("/api/products/{id}", h.HandleDelete)
		r.Delete("/api/products", h.HandleDeleteAll)
	})
}

func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	products := search.Filter(h.repo.List(r.Context()), r.URL.Query().Get("q"))
	respond.JSON(w, http.StatusOK, Response{
		Total:    len(products),
		Products: products,
	})
}

func (h *CatalogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input models.Draft
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	draft := input.Trim()
	if err := draft.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.repo.AddOne(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.reconcile(r.Context())
	respond.JSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) HandleCreateMany(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Products []models.Draft `json:"products"`
	}
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(input.Products) == 0 {
		respond.Error(w, http.StatusBadRequest, "Missing products")
		return
	}

	drafts := make([]models.Draft, len(input.Products))
	for i, d := range input.Products {
		drafts[i] = d.Trim()
		if err := drafts[i].Validate(); err != nil {
			respond.Error(w, http.StatusBadRequest, fmt.Sprintf("product %d: %s", i+1, err))
			return
		}
	}

	result, err := h.repo.AddMany(r.Context(), drafts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.reconcile(r.Context())
	respond.JSON(w, http.StatusOK, result)
}

func (h *CatalogHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	parsed, err := importer.Parse(header.Filename, file)
	if err != nil {
		h.logger.Info("rejected product import", zap.String("filename", header.Filename), zap.Error(err))
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.repo.AddMany(r.Context(), parsed.Drafts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.reconcile(r.Context())
	respond.JSON(w, http.StatusOK, ImportResponse{BulkResult: result, Skipped: parsed.Skipped})
}

func (h *CatalogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var patch models.Patch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	patch = trimPatch(patch)

	current, found := h.repo.Get(r.Context(), id)
	if !found {
		respond.Error(w, http.StatusNotFound, "Product not found")
		return
	}
	if err := patch.Apply(current).Draft().Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.repo.Update(r.Context(), id, patch)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.reconcile(r.Context())
	respond.JSON(w, http.StatusOK, product)
}

// HandleUpdateImage accepts either a JSON {"imageUrl": ...} body or a
// multipart "image" file, which is stored inline as a data URI.
func (h *CatalogHandler) HandleUpdateImage(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var imageURL string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		uri, err := readImageUpload(w, r)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		imageURL = uri
	} else {
		var input struct {
			ImageURL string `json:"imageUrl"`
		}
		if err := respond.Decode(r, &input); err != nil {
			respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		imageURL = strings.TrimSpace(input.ImageURL)
	}

	product, err := h.repo.UpdateImage(r.Context(), id, imageURL)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.reconcile(r.Context())
	respond.JSON(w, http.StatusOK, product)
}

// HandleDelete removes one product. An unknown id is a no-op reported as
// {"deleted":false}, the same as the multi-delete route.
func (h *CatalogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	deleted, err := h.repo.DeleteOne(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if deleted {
		h.reconcile(r.Context())
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *CatalogHandler) HandleDeleteMany(w http.ResponseWriter, r *http.Request) {
	var input struct {
		IDs []int64 `json:"ids"`
	}
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	deleted, err := h.repo.DeleteMany(r.Context(), input.IDs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if deleted {
		h.reconcile(r.Context())
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *CatalogHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteAll(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.reconcile(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) reconcile(ctx context.Context) {
	if h.selections == nil {
		return
	}
	h.selections.ReconcileAll(h.repo.List(ctx))
}

func (h *CatalogHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateCode):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrProductNotFound):
		respond.Error(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, ErrCatalogUnavailable):
		respond.Error(w, http.StatusServiceUnavailable, ErrCatalogUnavailable.Error())
	default:
		h.logger.Error("catalog request failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		respond.Error(w, http.StatusBadRequest, "Invalid product id")
		return 0, false
	}
	return id, true
}

func trimPatch(p models.Patch) models.Patch {
	for _, field := range []**string{&p.Code, &p.Name, &p.Name2, &p.SizeCode, &p.ImageURL} {
		if *field != nil {
			v := strings.TrimSpace(**field)
			*field = &v
		}
	}
	return p
}

func readImageUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	file, _, err := r.FormFile("image")
	if err != nil {
		return "", errors.New("missing image")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return "", errors.Wrap(err, "read image")
	}
	if len(data) > maxImageBytes {
		return "", errors.New("image is too large")
	}

	contentType := http.DetectContentType(data)
	if !imageTypes[contentType] {
		return "", errors.New("image must be PNG, JPEG or GIF")
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
