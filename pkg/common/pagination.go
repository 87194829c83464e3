package common

import (
	"strconv"
	"strings"
)

// MaxPage bounds the page-skipping query loop.
const MaxPage = 1000

// ParsePage parses a 1-based page number taken from a path or query
// parameter. An empty value means page 1.
func ParsePage(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, true
	}
	p, err := strconv.Atoi(raw)
	if err != nil || p < 1 || p > MaxPage {
		return 0, false
	}
	return p, true
}

