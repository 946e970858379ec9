/**
 * @description
 * Normalization of raw Keepa product payloads into Snapshot values.
 * Monetary fields are reduced to two-decimal dollars or absent; ratings are
 * reduced to [0,5] with two decimals; timestamps become UTC.
 */

package keepa

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/asinwatch-project/backend/internal/apperrors"
)

// keepaEpoch is the base of Keepa's minute timestamps
var keepaEpoch = time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)

// Snapshot is one normalized point-in-time observation of a product
type Snapshot struct {
	ASIN       string
	Title      string
	Brand      string
	Category   string
	ImageURL   string
	ProductURL string

	Price       *float64
	BuyboxPrice *float64
	Rating      *float64
	ReviewCount *int

	SalesRank    *int
	RankCategory string // empty when the rank carries no category

	Currency   string
	ObservedAt time.Time
}

// MinutesToTime converts Keepa minutes to a UTC timestamp
func MinutesToTime(minute int) time.Time {
	return keepaEpoch.Add(time.Duration(minute) * time.Minute)
}

// centsToPrice converts a Keepa cent value to two-decimal dollars.
// Values <= 0 mean "no data" and map to nil.
func centsToPrice(v int64) *float64 {
	if v <= 0 {
		return nil
	}
	p := math.Round(float64(v)) / 100.0
	return &p
}

// normalizeRating reduces a Keepa rating to [0,5] stars with two decimals.
// Keepa always reports ratings scaled by 10 (45 == 4.5 stars, 4 == 0.4).
func normalizeRating(v float64) *float64 {
	if v < 0 {
		return nil
	}
	v = v / 10.0
	if v > 5 {
		v = 5
	}
	r := math.Round(v*100) / 100
	return &r
}

// parseSnapshot normalizes one raw product into a Snapshot.
// A payload without an ASIN is malformed; everything else is optional.
func parseSnapshot(p *RawProduct) (*Snapshot, error) {
	asin := strings.TrimSpace(p.ASIN)
	if asin == "" {
		return nil, apperrors.New(apperrors.KindMalformedResponse, "keepa product payload has no asin")
	}

	snap := &Snapshot{
		ASIN:       asin,
		Title:      p.Title,
		Brand:      p.Brand,
		ProductURL: fmt.Sprintf("https://www.amazon.com/dp/%s", asin),
		Currency:   "USD",
		ObservedAt: time.Now().UTC().Truncate(time.Minute),
	}

	if p.LastUpdate > 0 {
		snap.ObservedAt = MinutesToTime(p.LastUpdate)
	}

	// Category label is the deepest node of the category tree
	if n := len(p.CategoryTree); n > 0 {
		snap.Category = p.CategoryTree[n-1].Name
	}

	if p.ImagesCSV != "" {
		img := p.ImagesCSV
		if i := strings.IndexByte(img, ','); i >= 0 {
			img = img[:i]
		}
		snap.ImageURL = "https://m.media-amazon.com/images/I/" + img
	}

	// Current price: last value of the Amazon price series
	if len(p.CSV) > 0 && len(p.CSV[0]) >= 2 {
		series := p.CSV[0]
		snap.Price = centsToPrice(series[len(series)-1])
	}

	if p.Stats != nil {
		if p.Stats.BuyBoxPrice != nil {
			snap.BuyboxPrice = centsToPrice(*p.Stats.BuyBoxPrice)
		}
		if p.Stats.Rating != nil {
			snap.Rating = normalizeRating(*p.Stats.Rating)
		}
		if p.Stats.ReviewCount != nil && *p.Stats.ReviewCount >= 0 {
			rc := *p.Stats.ReviewCount
			snap.ReviewCount = &rc
		}
	}

	rank, category := latestRank(p)
	if rank > 0 {
		snap.SalesRank = &rank
		snap.RankCategory = category
	}

	return snap, nil
}

// latestRank picks the most recent positive rank from the product's sales
// rank series. The reference category is preferred; otherwise the lowest
// category id wins so the choice is deterministic.
func latestRank(p *RawProduct) (int, string) {
	if len(p.SalesRanks) == 0 {
		return 0, ""
	}

	key := ""
	if p.SalesRankReference > 0 {
		ref := fmt.Sprintf("%d", p.SalesRankReference)
		if _, ok := p.SalesRanks[ref]; ok {
			key = ref
		}
	}
	if key == "" {
		keys := make([]string, 0, len(p.SalesRanks))
		for k := range p.SalesRanks {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		key = keys[0]
	}

	series := p.SalesRanks[key]
	// Series is minute,rank pairs; walk backwards to the last positive rank.
	start := len(series) - 1
	if start%2 == 0 {
		start-- // truncated series, drop the dangling minute
	}
	for i := start; i >= 1; i -= 2 {
		if series[i] > 0 {
			return series[i], key
		}
	}
	return 0, ""
}
