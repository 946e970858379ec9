package services

import (
	"testing"
	"time"

	appdb "github.com/asinwatch-project/backend/internal/db"
	"github.com/asinwatch-project/backend/internal/keepa"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, appdb.Migrate(db))
	return db
}

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }

// testSnapshot builds the canonical fixture snapshot for asin at ts
func testSnapshot(asin string, ts time.Time) *keepa.Snapshot {
	rank := 550
	return &keepa.Snapshot{
		ASIN:         asin,
		Title:        "Wireless Earbuds",
		Brand:        "Acme",
		Category:     "Electronics",
		ImageURL:     "https://m.media-amazon.com/images/I/41abcDEF.jpg",
		ProductURL:   "https://www.amazon.com/dp/" + asin,
		Price:        f64(19.99),
		BuyboxPrice:  f64(18.50),
		Rating:       f64(4.30),
		ReviewCount:  i(1200),
		SalesRank:    &rank,
		RankCategory: "Electronics",
		Currency:     "USD",
		ObservedAt:   ts,
	}
}
