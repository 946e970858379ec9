package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/asinwatch-project/backend/internal/apperrors"
	"github.com/asinwatch-project/backend/internal/config"
	"github.com/asinwatch-project/backend/internal/keepa"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Display credential status (without showing actual values)
	fmt.Println("=== Keepa Credentials Check ===")
	fmt.Printf("API URL: %s\n", cfg.Keepa.APIURL)
	fmt.Printf("Domain: %d\n", cfg.Keepa.Domain)

	keySet := cfg.Keepa.APIKey != ""
	keyUsable := cfg.RequireKeepaKey() == nil

	fmt.Printf("API Key: %s\n", statusString(keySet))
	if keySet && !keyUsable {
		fmt.Println("API Key looks like a placeholder value")
	}
	fmt.Println()

	if !keyUsable {
		fmt.Println("❌ Missing or placeholder credentials. Please check your .env file for:")
		fmt.Println("  - KEEPA_API_KEY")
		os.Exit(1)
	}

	// A live lookup against a well-known ASIN. Any outcome except an auth or
	// malformed-payload failure means the key works.
	fmt.Println("Test: fetching a known product...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	testASIN := "B09DT48V16"
	client := keepa.NewClient(cfg, rate.NewLimiter(rate.Limit(1), 1))

	snap, err := client.FetchProduct(ctx, testASIN)
	if err != nil {
		switch apperrors.KindOf(err) {
		case apperrors.KindNotFound:
			// An unknown-ASIN answer still proves the key was accepted.
			fmt.Printf("✅ Request authenticated (provider reports %s unknown): %v\n", testASIN, err)
		case apperrors.KindRateLimited:
			fmt.Printf("✅ Request authenticated but the token bucket is empty: %v\n", err)
			fmt.Println("   Wait for the quota to refill before running a sync.")
		case apperrors.KindTransient:
			fmt.Printf("⚠️  Request failed with a network/server error: %v\n", err)
			fmt.Println("   Credentials could not be verified; try again.")
			os.Exit(1)
		default:
			fmt.Printf("❌ Request failed: %v\n", err)
			fmt.Println("\nThis usually indicates:")
			fmt.Println("  - API key is invalid or expired")
			fmt.Println("  - KEEPA_API_URL points at the wrong host")
			log.Fatalf("Keepa authentication test failed")
		}
	} else {
		fmt.Printf("✅ Request succeeded! Retrieved %q\n", snap.Title)
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Println("✅ Keepa credentials are VALID and working!")
}

func statusString(set bool) string {
	if set {
		return "[SET]"
	}
	return "[NOT SET]"
}
