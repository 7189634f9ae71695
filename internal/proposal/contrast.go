package proposal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"propoflash/internal/common/validation"
)

// MinContrast is the WCAG AA ratio for body text.
const MinContrast = 4.5

// NormalizeHex returns s as a lower-case #rrggbb token, expanding #rgb.
func NormalizeHex(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !validation.ValidateHexColor(s) {
		return "", false
	}
	s = strings.ToLower(s)
	if len(s) == 4 {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	return s, true
}

func luminance(hex string) (float64, error) {
	h, ok := NormalizeHex(hex)
	if !ok {
		return 0, fmt.Errorf("invalid color %q", hex)
	}
	channel := func(i int) float64 {
		v, _ := strconv.ParseUint(h[i:i+2], 16, 8)
		c := float64(v) / 255
		if c <= 0.03928 {
			return c / 12.92
		}
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return 0.2126*channel(1) + 0.7152*channel(3) + 0.0722*channel(5), nil
}

// ContrastRatio is the WCAG contrast ratio between two colors, from 1 to 21.
func ContrastRatio(a, b string) (float64, error) {
	la, err := luminance(a)
	if err != nil {
		return 0, err
	}
	lb, err := luminance(b)
	if err != nil {
		return 0, err
	}
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05), nil
}

// ReadableInk keeps ink when it reaches min against surface. Otherwise it
// returns whichever of fallback and white contrasts best.
func ReadableInk(ink, surface, fallback string, min float64) string {
	if r, err := ContrastRatio(ink, surface); err == nil && r >= min {
		return ink
	}
	best, bestRatio := fallback, -1.0
	for _, c := range []string{fallback, "#ffffff"} {
		r, err := ContrastRatio(c, surface)
		if err != nil {
			continue
		}
		if r > bestRatio {
			best, bestRatio = c, r
		}
	}
	return best
}
