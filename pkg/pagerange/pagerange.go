// Package pagerange parses user-entered page selections such as "1-3" or
// "1,3,5" into zero-based page indices.
package pagerange

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidPosition is returned by ParsePosition for anything outside 1..pageCount+1
var ErrInvalidPosition = errors.New("invalid insert position")

// Parse converts a 1-based page selection into ascending, duplicate-free
// zero-based indices below maxPages. Malformed or out-of-range tokens are
// skipped; a reversed range such as "5-2" contributes nothing. An empty
// result means the selection was unusable.
func Parse(text string, maxPages int) []int {
	seen := make(map[int]bool)
	pages := []int{}

	add := func(page int) {
		if page < 1 || page > maxPages {
			return
		}
		if !seen[page-1] {
			seen[page-1] = true
			pages = append(pages, page-1)
		}
	}

	for _, part := range strings.Split(text, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}

		if strings.Contains(token, "-") {
			// "1-2-3" reads as 1-2; endpoints past the second are ignored
			bounds := strings.Split(token, "-")
			start, errStart := strconv.Atoi(strings.TrimSpace(bounds[0]))
			end, errEnd := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if errStart != nil || errEnd != nil {
				continue
			}
			if start < 1 {
				start = 1
			}
			for i := start; i <= end && i <= maxPages; i++ {
				add(i)
			}
			continue
		}

		page, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		add(page)
	}

	sort.Ints(pages)
	return pages
}

// All returns every index of an n-page document
func All(n int) []int {
	if n < 0 {
		n = 0
	}
	pages := make([]int, n)
	for i := range pages {
		pages[i] = i
	}
	return pages
}

// Format renders zero-based indices back into the compact 1-based form, e.g. [0 1 2 4] -> "1-3,5"
func Format(indices []int) string {
	if len(indices) == 0 {
		return ""
	}

	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	var parts []string
	start, prev := sorted[0], sorted[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start+1))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start+1, prev+1))
		}
	}
	for _, idx := range sorted[1:] {
		if idx == prev {
			continue
		}
		if idx == prev+1 {
			prev = idx
			continue
		}
		flush()
		start, prev = idx, idx
	}
	flush()

	return strings.Join(parts, ",")
}

// ParsePosition parses the 1-based insert position shown to the user
// (1..pageCount+1) and returns the zero-based insert index.
func ParsePosition(text string, pageCount int) (int, error) {
	position, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPosition, text)
	}
	if position < 1 || position > pageCount+1 {
		return 0, fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidPosition, position, pageCount+1)
	}
	return position - 1, nil
}
