package models

import (
	"context"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// catalogStateRow holds the id counter. There is only ever one row.
type catalogStateRow struct {
	ID     uint  `gorm:"primaryKey"`
	NextID int64 `gorm:"not null"`
}

func (c *catalogStateRow) TableName() string {
	return "catalog_states"
}

const catalogStateRowID = 1

type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgresStore connects through lib/pq and migrates the catalog tables.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        dsn,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	return NewPostgresStore(db)
}

func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&Product{}, &catalogStateRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate catalog tables")
	}
	return &PostgresStore{
		db: db,
	}, nil
}

func (s *PostgresStore) Load(ctx context.Context) (CatalogState, error) {
	var row catalogStateRow
	if err := s.db.WithContext(ctx).
		Where("id = ?", catalogStateRowID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CatalogState{}, ErrStateNotFound
		}
		return CatalogState{}, errors.Wrap(err, "query catalog state")
	}

	var products []Product
	if err := s.db.WithContext(ctx).
		Order("position ASC").
		Find(&products).Error; err != nil {
		return CatalogState{}, errors.Wrap(err, "query products")
	}
	return CatalogState{Products: products, NextID: row.NextID}, nil
}

// Save replaces the stored product set and counter in one transaction.
func (s *PostgresStore) Save(ctx context.Context, state CatalogState) error {
	products := make([]Product, len(state.Products))
	for i, p := range state.Products {
		p.Position = i
		products[i] = p
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Product{}).Error; err != nil {
			return err
		}
		if len(products) > 0 {
			if err := tx.CreateInBatches(products, 200).Error; err != nil {
				return err
			}
		}
		return tx.Save(&catalogStateRow{ID: catalogStateRowID, NextID: state.NextID}).Error
	})
	return errors.Wrap(err, "save catalog state")
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
