package validation

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

// City length bounds in runes.
const (
	MinCityLen = 1
	MaxCityLen = 100
)

var (
	ErrCityEmpty        = errors.New("city is required")
	ErrCityTooLong      = errors.New("city too long")
	ErrCityInvalidChars = errors.New("city contains invalid characters")

	ErrLatitudeRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeRange = errors.New("longitude must be between -180 and 180")
)

// ValidateCity trims the input and enforces MaxCityLen. Any printable text
// is accepted, e.g. "Zürich (ZH)" or "São Paulo/SP"; control characters and
// angle brackets are not. Returns the trimmed string. An empty search is
// never sent to the geocoder.
func ValidateCity(input string) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) < MinCityLen {
		return "", ErrCityEmpty
	}
	if len(r) > MaxCityLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !isAllowedCityRune(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

func isAllowedCityRune(r rune) bool {
	if r == '<' || r == '>' {
		return false
	}
	return unicode.IsPrint(r)
}

// ValidateCoordinates checks a geolocation fix is on the globe.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return ErrLatitudeRange
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return ErrLongitudeRange
	}
	return nil
}
