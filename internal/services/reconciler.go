/**
 * @description
 * Reconciler, the core of the sync engine.
 * Merges one fetched snapshot into the store as a single transaction:
 * category lookup-or-create, latest-record upsert, and idempotent appends
 * into the three history tables.
 *
 * @dependencies
 * - gorm.io/gorm (clause.OnConflict for all upsert/no-op inserts)
 * - github.com/jackc/pgconn, github.com/jackc/pgx/v5/pgconn: Postgres
 *   error-code classification for both driver generations
 * - backend/internal/models
 * - backend/internal/keepa
 * - backend/internal/apperrors
 *
 * @notes
 * - Reconciling the same snapshot twice leaves the store unchanged except for
 *   the product's updated_at. That is what makes batch-level retry safe.
 * - The latest-record upsert is last-write-wins on purpose: there is no
 *   updated_at ordering guard, so out-of-order syncs can regress product
 *   fields while history stays correct. Known trade-off, kept as-is.
 */

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/asinwatch-project/backend/internal/apperrors"
	"github.com/asinwatch-project/backend/internal/keepa"
	"github.com/asinwatch-project/backend/internal/models"
	"github.com/jackc/pgconn"
	pgxconn "github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reconciler writes snapshots for one platform into the store.
// It is the sole writer of products and the history tables.
type Reconciler struct {
	DB         *gorm.DB
	PlatformID uint
}

func NewReconciler(db *gorm.DB, platformID uint) *Reconciler {
	return &Reconciler{DB: db, PlatformID: platformID}
}

// EnsurePlatform resolves or creates the platform row by unique name.
// Conflict-ignore insert followed by a re-select closes the create race.
func EnsurePlatform(db *gorm.DB, name string) (uint, error) {
	platform := models.Platform{Name: name}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&platform).Error; err != nil {
		return 0, classifyStoreError(err)
	}

	var existing models.Platform
	if err := db.Where("name = ?", name).First(&existing).Error; err != nil {
		return 0, classifyStoreError(err)
	}
	return existing.ID, nil
}

// Reconcile merges one snapshot into the store and returns the product's
// internal id. All writes happen in one transaction; a failure leaves no
// partial state behind.
func (r *Reconciler) Reconcile(ctx context.Context, snap *keepa.Snapshot) (uint, error) {
	if snap == nil || snap.ASIN == "" {
		return 0, apperrors.New(apperrors.KindMalformedResponse, "snapshot has no asin")
	}

	var productID uint
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categoryID, err := ensureCategory(tx, snap.Category)
		if err != nil {
			return err
		}

		id, err := upsertProduct(tx, r.PlatformID, categoryID, snap)
		if err != nil {
			return err
		}
		productID = id

		if err := insertPricePoint(tx, id, snap); err != nil {
			return err
		}
		if err := insertRatingPoint(tx, id, snap); err != nil {
			return err
		}
		return insertRankPoint(tx, id, snap)
	})
	if err != nil {
		return 0, err
	}
	return productID, nil
}

// ensureCategory resolves or creates the category row for a non-empty label
func ensureCategory(tx *gorm.DB, name string) (*uint, error) {
	if name == "" {
		return nil, nil
	}

	category := models.Category{Name: name}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&category).Error; err != nil {
		return nil, classifyStoreError(err)
	}

	var existing models.Category
	if err := tx.Where("name = ?", name).First(&existing).Error; err != nil {
		return nil, classifyStoreError(err)
	}
	return &existing.ID, nil
}

// upsertProduct writes the latest record keyed by (platform_id, asin).
// Every snapshot-bearing column is overwritten unconditionally.
func upsertProduct(tx *gorm.DB, platformID uint, categoryID *uint, snap *keepa.Snapshot) (uint, error) {
	product := models.Product{
		PlatformID:   platformID,
		CategoryID:   categoryID,
		ASIN:         snap.ASIN,
		Title:        snap.Title,
		Brand:        snap.Brand,
		Category:     snap.Category,
		ImageURL:     snap.ImageURL,
		ProductURL:   snap.ProductURL,
		ReviewCount:  snap.ReviewCount,
		ReviewRating: snap.Rating,
		Price:        snap.Price,
		BuyboxPrice:  snap.BuyboxPrice,
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "platform_id"}, {Name: "asin"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category_id",
			"title",
			"brand",
			"category",
			"image_url",
			"product_url",
			"review_count",
			"review_rating",
			"price",
			"buybox_price",
			"updated_at",
		}),
	}).Create(&product).Error; err != nil {
		return 0, classifyStoreError(err)
	}

	// Re-select the id: on a conflict-update the driver's last-insert-id is
	// not trustworthy across dialects.
	var existing models.Product
	if err := tx.Select("id").Where("platform_id = ? AND asin = ?", platformID, snap.ASIN).First(&existing).Error; err != nil {
		return 0, classifyStoreError(err)
	}
	return existing.ID, nil
}

func insertPricePoint(tx *gorm.DB, productID uint, snap *keepa.Snapshot) error {
	entry := models.PriceHistory{
		ProductID:   productID,
		Timestamp:   snap.ObservedAt,
		Price:       snap.Price,
		BuyboxPrice: snap.BuyboxPrice,
		Currency:    snap.Currency,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "ts"}},
		DoNothing: true,
	}).Create(&entry).Error; err != nil {
		return classifyStoreError(err)
	}
	return nil
}

func insertRatingPoint(tx *gorm.DB, productID uint, snap *keepa.Snapshot) error {
	entry := models.RatingHistory{
		ProductID:   productID,
		Timestamp:   snap.ObservedAt,
		Rating:      snap.Rating,
		ReviewCount: snap.ReviewCount,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "ts"}},
		DoNothing: true,
	}).Create(&entry).Error; err != nil {
		return classifyStoreError(err)
	}
	return nil
}

// insertRankPoint appends the sales rank observation, substituting the
// sentinel category when the provider returned an un-categorized rank.
// Snapshots without a rank write nothing.
func insertRankPoint(tx *gorm.DB, productID uint, snap *keepa.Snapshot) error {
	if snap.SalesRank == nil {
		return nil
	}

	category := snap.RankCategory
	if category == "" {
		category = models.DefaultRankCategory
	}

	entry := models.SalesRankHistory{
		ProductID: productID,
		Timestamp: snap.ObservedAt,
		Category:  category,
		Rank:      *snap.SalesRank,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "ts"}, {Name: "category"}},
		DoNothing: true,
	}).Create(&entry).Error; err != nil {
		return classifyStoreError(err)
	}
	return nil
}

// classifyStoreError maps a store failure into the sync taxonomy.
// Constraint-class errors are unexpected here because every expected
// unique-key conflict is absorbed by an ON CONFLICT clause.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	var syncErr *apperrors.Error
	if errors.As(err, &syncErr) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.KindStoreUnavailable, err)
	}

	// The pgx-backed gorm driver raises pgx/v5's PgError; the v1 type still
	// appears from code using the older pgconn stack directly. Both carry the
	// same SQLSTATE codes.
	var pgxErr *pgxconn.PgError
	if errors.As(err, &pgxErr) {
		return classifyPgCode(pgxErr.Code, pgxErr.ConstraintName, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPgCode(pgErr.Code, pgErr.ConstraintName, err)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Wrap(apperrors.KindStoreConstraintViolation, err)
	}

	// Anything else (closed pools, dropped connections, driver faults) is a
	// connectivity problem the batch may retry.
	return apperrors.Wrap(apperrors.KindStoreUnavailable, err)
}

// classifyPgCode maps a SQLSTATE code: class 23 is a constraint violation,
// the connection/resource/shutdown/transaction classes are availability
// problems, everything else falls back to availability as well.
func classifyPgCode(code, constraint string, err error) error {
	if len(code) < 2 {
		return apperrors.Wrap(apperrors.KindStoreUnavailable, err)
	}
	switch code[:2] {
	case "23":
		return apperrors.Wrap(apperrors.KindStoreConstraintViolation,
			fmt.Errorf("constraint %s: %w", constraint, err))
	case "08", "53", "57", "40":
		return apperrors.Wrap(apperrors.KindStoreUnavailable, err)
	}
	return apperrors.Wrap(apperrors.KindStoreUnavailable, err)
}
