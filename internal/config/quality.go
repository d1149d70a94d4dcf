package config

import (
	"fmt"
	"strconv"
	"strings"

	"wavconv/internal/services"
)

// Quality keywords map onto the LAME VBR scale where lower numbers mean
// higher fidelity and larger files.
var qualityKeywords = map[string]int{
	"high": 2,
	"mid":  5,
	"low":  7,

	// optimize=quality|speed|size spellings
	"quality": 2,
	"speed":   5,
	"size":    7,
}

// QualityKeywords lists the accepted user-facing keywords.
func QualityKeywords() []string {
	return []string{"high", "mid", "low"}
}

// QualityValue converts a keyword or a literal 0-9 VBR value to the numeric
// encoder quality.
func QualityValue(keyword string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(keyword))
	if value, ok := qualityKeywords[key]; ok {
		return value, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 && n <= 9 {
		return n, nil
	}
	return 0, services.Wrap(services.ErrConfiguration, "config", "quality",
		fmt.Sprintf("unknown quality %q (want %s or 0-9)", keyword, strings.Join(QualityKeywords(), "|")), nil)
}

// ResolveConcurrency picks the pool capacity. A request from the command line
// wins over the configured value; either is honoured only when it is a positive
// integer below twice the core count. The boolean is false when a supplied
// value was rejected and the core count was used instead.
func ResolveConcurrency(requested string, configured, cores int) (int, bool) {
	if cores < 1 {
		cores = 1
	}
	limit := 2 * cores
	if requested = strings.TrimSpace(requested); requested != "" {
		n, err := strconv.Atoi(requested)
		if err != nil || n <= 0 || n >= limit {
			return cores, false
		}
		return n, true
	}
	if configured == 0 {
		return cores, true
	}
	if configured < 0 || configured >= limit {
		return cores, false
	}
	return configured, true
}
