package catalog

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/letra-wholesale/order-sheet/metrics"
	"github.com/letra-wholesale/order-sheet/models"
)

var (
	// ErrDuplicateCode is returned when a code collides with another product's code.
	ErrDuplicateCode = errors.New("product code already exists")
	// ErrProductNotFound is returned by updates addressing an unknown id.
	ErrProductNotFound = errors.New("product not found")
	// ErrCatalogUnavailable is returned when a mutation cannot read the current catalog.
	ErrCatalogUnavailable = errors.New("catalog storage unavailable")
)

// BulkResult reports a partial-success import.
type BulkResult struct {
	AddedCount     int              `json:"addedCount"`
	Added          []models.Product `json:"added"`
	DuplicateCodes []string         `json:"duplicateCodes"`
}

// Service is the only writer of the catalog store. Every operation runs under
// one mutex, so reads and writes against the store never interleave.
type Service struct {
	mu      sync.Mutex
	store   models.CatalogStore
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewService(store models.CatalogStore, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		logger:  logger.Named("catalog"),
		metrics: m,
	}
}

// List returns the catalog. A store that cannot be read yields an empty catalog.
func (s *Service) List(ctx context.Context) []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrStateNotFound) {
			s.logger.Error("failed to read catalog, serving empty catalog", zap.Error(err))
			s.metrics.RecordStorageFailure("read")
		}
		return []models.Product{}
	}
	s.metrics.SetCatalogSize(len(state.Products))
	if state.Products == nil {
		return []models.Product{}
	}
	return state.Products
}

// Get looks a product up by id.
func (s *Service) Get(ctx context.Context, id int64) (models.Product, bool) {
	for _, p := range s.List(ctx) {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// AddOne appends a product built from d under a fresh id.
// A non-empty code that collides with an existing code is rejected.
func (s *Service) AddOne(ctx context.Context, d models.Draft) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		s.metrics.RecordCatalogOperation("add_one", "unavailable")
		return models.Product{}, err
	}

	if key := models.NormalizeCode(d.Code); key != "" {
		for _, p := range state.Products {
			if models.NormalizeCode(p.Code) == key {
				s.logger.Info("rejected duplicate product code", zap.String("code", d.Code), zap.Int64("existing_id", p.ID))
				s.metrics.RecordCatalogOperation("add_one", "duplicate")
				return models.Product{}, ErrDuplicateCode
			}
		}
	}

	product := d.Product(state.NextID)
	state.NextID++
	state.Products = append(state.Products, product)
	s.save(ctx, state)

	s.logger.Info("product added", zap.Int64("product_id", product.ID), zap.String("code", product.Code))
	s.metrics.RecordCatalogOperation("add_one", "ok")
	return product, nil
}

// AddMany imports drafts in order against one growing set of seen codes.
// Colliding drafts are reported in DuplicateCodes and the rest of the batch continues.
func (s *Service) AddMany(ctx context.Context, drafts []models.Draft) (BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := BulkResult{Added: []models.Product{}, DuplicateCodes: []string{}}

	state, err := s.load(ctx)
	if err != nil {
		s.metrics.RecordCatalogOperation("add_many", "unavailable")
		return result, err
	}

	seen := make(map[string]struct{}, len(state.Products)+len(drafts))
	for _, p := range state.Products {
		if key := models.NormalizeCode(p.Code); key != "" {
			seen[key] = struct{}{}
		}
	}

	for _, d := range drafts {
		key := models.NormalizeCode(d.Code)
		if key != "" {
			if _, dup := seen[key]; dup {
				result.DuplicateCodes = append(result.DuplicateCodes, d.Code)
				continue
			}
			seen[key] = struct{}{}
		}
		product := d.Product(state.NextID)
		state.NextID++
		result.Added = append(result.Added, product)
	}
	result.AddedCount = len(result.Added)

	if result.AddedCount > 0 {
		state.Products = append(state.Products, result.Added...)
		s.save(ctx, state)
	}

	s.logger.Info("bulk import processed",
		zap.Int("submitted", len(drafts)),
		zap.Int("added", result.AddedCount),
		zap.Int("duplicates", len(result.DuplicateCodes)))
	s.metrics.RecordCatalogOperation("add_many", "ok")
	return result, nil
}

// Update merges patch into the product with the given id.
// A patched code colliding with any other product's code is rejected.
func (s *Service) Update(ctx context.Context, id int64, patch models.Patch) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		s.metrics.RecordCatalogOperation("update", "unavailable")
		return models.Product{}, err
	}

	idx := indexOf(state.Products, id)
	if idx < 0 {
		s.metrics.RecordCatalogOperation("update", "not_found")
		return models.Product{}, ErrProductNotFound
	}

	if patch.Code != nil {
		if key := models.NormalizeCode(*patch.Code); key != "" {
			for _, p := range state.Products {
				if p.ID != id && models.NormalizeCode(p.Code) == key {
					s.logger.Info("rejected duplicate product code on update",
						zap.Int64("product_id", id), zap.String("code", *patch.Code), zap.Int64("existing_id", p.ID))
					s.metrics.RecordCatalogOperation("update", "duplicate")
					return models.Product{}, ErrDuplicateCode
				}
			}
		}
	}

	state.Products[idx] = patch.Apply(state.Products[idx])
	s.save(ctx, state)

	s.metrics.RecordCatalogOperation("update", "ok")
	return state.Products[idx], nil
}

// UpdateImage replaces the image of a product. Images take no part in code identity.
func (s *Service) UpdateImage(ctx context.Context, id int64, imageURL string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		s.metrics.RecordCatalogOperation("update_image", "unavailable")
		return models.Product{}, err
	}

	idx := indexOf(state.Products, id)
	if idx < 0 {
		s.metrics.RecordCatalogOperation("update_image", "not_found")
		return models.Product{}, ErrProductNotFound
	}
	state.Products[idx].ImageURL = imageURL
	s.save(ctx, state)

	s.metrics.RecordCatalogOperation("update_image", "ok")
	return state.Products[idx], nil
}

// DeleteOne removes the product with the given id and reports whether it existed.
func (s *Service) DeleteOne(ctx context.Context, id int64) (bool, error) {
	return s.deleteWhere(ctx, "delete_one", func(p models.Product) bool { return p.ID == id })
}

// DeleteMany removes every product whose id is listed and reports whether any existed.
func (s *Service) DeleteMany(ctx context.Context, ids []int64) (bool, error) {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return s.deleteWhere(ctx, "delete_many", func(p models.Product) bool {
		_, ok := set[p.ID]
		return ok
	})
}

// DeleteAll clears the catalog. The id counter is kept so ids are never reused.
func (s *Service) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		s.metrics.RecordCatalogOperation("delete_all", "unavailable")
		return err
	}
	removed := len(state.Products)
	state.Products = []models.Product{}
	s.save(ctx, state)

	s.logger.Info("catalog cleared", zap.Int("removed", removed))
	s.metrics.RecordCatalogOperation("delete_all", "ok")
	return nil
}

// Seed persists products when the store has never been written.
// It reports whether seeding happened.
func (s *Service) Seed(ctx context.Context, products []models.Product) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.store.Load(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrStateNotFound) {
		return false, errors.Wrap(err, "check catalog before seeding")
	}

	state := models.CatalogState{Products: products}
	state.NextID = state.MaxID() + 1
	if err := s.store.Save(ctx, state); err != nil {
		return false, errors.Wrap(err, "seed catalog")
	}
	s.logger.Info("catalog seeded", zap.Int("products", len(products)))
	return true, nil
}

func (s *Service) deleteWhere(ctx context.Context, operation string, match func(models.Product) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		s.metrics.RecordCatalogOperation(operation, "unavailable")
		return false, err
	}

	kept := make([]models.Product, 0, len(state.Products))
	for _, p := range state.Products {
		if !match(p) {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(state.Products) {
		s.metrics.RecordCatalogOperation(operation, "not_found")
		return false, nil
	}

	removed := len(state.Products) - len(kept)
	state.Products = kept
	s.save(ctx, state)

	s.logger.Info("products deleted", zap.String("operation", operation), zap.Int("removed", removed))
	s.metrics.RecordCatalogOperation(operation, "ok")
	return true, nil
}

// load reads the state for a mutation. A never-written store is an empty catalog;
// any other read failure aborts the mutation so the id counter cannot regress.
func (s *Service) load(ctx context.Context) (models.CatalogState, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrStateNotFound) {
			s.logger.Error("failed to read catalog before mutation", zap.Error(err))
			s.metrics.RecordStorageFailure("read")
			return models.CatalogState{}, errors.Wrap(ErrCatalogUnavailable, err.Error())
		}
		state = models.CatalogState{}
	}
	if floor := state.MaxID() + 1; state.NextID < floor {
		state.NextID = floor
	}
	return state, nil
}

// save persists state. Write failures are logged and absorbed.
func (s *Service) save(ctx context.Context, state models.CatalogState) {
	if err := s.store.Save(ctx, state); err != nil {
		s.logger.Error("failed to write catalog", zap.Error(err))
		s.metrics.RecordStorageFailure("write")
		return
	}
	s.metrics.SetCatalogSize(len(state.Products))
}

func indexOf(products []models.Product, id int64) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
