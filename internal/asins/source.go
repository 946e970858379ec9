/**
 * @description
 * Identifier source for the sync job: reads ASINs from a plain text file,
 * one per line. Blank lines, duplicates and malformed identifiers are
 * filtered, not errors.
 */

package asins

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/asinwatch-project/backend/internal/logger"
)

// asinPattern matches Amazon's 10-character identifier format
var asinPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// Valid reports whether s is a well-formed ASIN
func Valid(s string) bool {
	return asinPattern.MatchString(s)
}

// LoadFile reads ASINs from path, preserving first-seen order.
// Blank and duplicate lines are dropped silently; malformed lines are
// dropped with a warning.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open asin file: %w", err)
	}
	defer f.Close()

	var out []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		s := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if s == "" || seen[s] {
			continue
		}
		if !Valid(s) {
			logger.Error("⚠️ Skipping malformed asin %q", s)
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read asin file: %w", err)
	}

	return out, nil
}
