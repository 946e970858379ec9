/**
 * @description
 * Type definitions for Keepa /product API responses.
 * Only the fields the sync pipeline consumes are mapped; Keepa payloads carry
 * far more than we read.
 *
 * @notes
 * - Prices are integer cents; values <= 0 mean "no data".
 * - Timestamps are "Keepa minutes": minutes since 2011-01-01 UTC.
 */

package keepa

// ProductResponse is the top-level payload of GET /product
type ProductResponse struct {
	Timestamp  int64        `json:"timestamp"`
	TokensLeft int          `json:"tokensLeft"`
	RefillIn   int          `json:"refillIn"` // milliseconds until the next token refill
	RefillRate int          `json:"refillRate"`
	Products   []RawProduct `json:"products"`
	Error      *APIError    `json:"error,omitempty"`
}

// APIError is Keepa's structured error object
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RawProduct is one product object as returned by Keepa
type RawProduct struct {
	ASIN               string           `json:"asin"`
	Title              string           `json:"title"`
	Brand              string           `json:"brand"`
	ImagesCSV          string           `json:"imagesCSV"`
	CategoryTree       []CategoryNode   `json:"categoryTree"`
	Stats              *Stats           `json:"stats"`
	CSV                [][]int64        `json:"csv"` // csv[0] is the Amazon price series: minute,cents pairs
	SalesRanks         map[string][]int `json:"salesRanks"`
	SalesRankReference int64            `json:"salesRankReference"`
	LastUpdate         int              `json:"lastUpdate"` // Keepa minutes
}

// CategoryNode is one element of the product's category tree
type CategoryNode struct {
	CatID int64  `json:"catId"`
	Name  string `json:"name"`
}

// Stats is the stats object requested via stats=1
type Stats struct {
	Rating      *float64 `json:"rating"` // Keepa scales ratings by 10 (45 == 4.5 stars)
	ReviewCount *int     `json:"reviewCount"`
	BuyBoxPrice *int64   `json:"buyBoxPrice"` // cents, <= 0 means absent
}
