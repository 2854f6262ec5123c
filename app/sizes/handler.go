package sizes

import (
	"context"
	"net/http"

	"github.com/letra-wholesale/order-sheet/app/orders"
	"github.com/letra-wholesale/order-sheet/app/respond"
	"github.com/letra-wholesale/order-sheet/models"
)

type SizeResponse struct {
	SizeCode string `json:"sizeCode"`
	Products int    `json:"products"`
}

type CatalogProvider interface {
	List(ctx context.Context) []models.Product
}

// SizeHandler lists the size codes in use, in the same natural order the
// order sheet uses. Products without a size code are not counted.
type SizeHandler struct {
	repo   CatalogProvider
	sorter orders.SizeSorter
}

func NewSizeHandler(r CatalogProvider, sorter orders.SizeSorter) *SizeHandler {
	return &SizeHandler{repo: r, sorter: sorter}
}

func (h *SizeHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int)
	var codes []string
	for _, p := range h.repo.List(r.Context()) {
		if p.SizeCode == "" {
			continue
		}
		if counts[p.SizeCode] == 0 {
			codes = append(codes, p.SizeCode)
		}
		counts[p.SizeCode]++
	}

	response := make([]SizeResponse, 0, len(codes))
	for _, code := range h.sorter.SortSizes(codes) {
		response = append(response, SizeResponse{
			SizeCode: code,
			Products: counts[code],
		})
	}

	respond.JSON(w, http.StatusOK, response)
}
