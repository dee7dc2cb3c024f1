package search

import (
	"net/url"
	"strconv"
	"strings"

	"phuket-estate/internal/models"
)

// Price buckets shown on the search page. Intervals are half-open in THB:
// a listing priced exactly on a boundary belongs to the upper bucket.
const (
	PriceBucketLow  = "0-10"  // [0, 10,000,000)
	PriceBucketMid  = "10-20" // [10,000,000, 20,000,000)
	PriceBucketHigh = "20+"   // [20,000,000, ∞)
)

const (
	priceLowMax  = 10_000_000
	priceMidMax  = 20_000_000
	priceCeiling = 100_000_000 // encoded upper bound for the open bucket
)

// Query-string keys owned by the filter engine. Keys outside this set are
// passed through untouched by ApplyToQuery.
const (
	keySearch       = "search"
	keyFormat       = "type"
	keyPropertyType = "propertyType"
	keyLocation     = "location"
	keyPropertyCode = "propertyCode"
	keyMinPrice     = "minPrice"
	keyMaxPrice     = "maxPrice"
	keyBedrooms     = "bedrooms"
	keyBathrooms    = "bathrooms"
)

// Criteria is the current search/filter state. The zero value matches
// everything; an empty string or zero count means "no constraint on this
// dimension".
type Criteria struct {
	Query        string
	Location     string
	PropertyType string
	Format       string
	PriceBucket  string
	MinBedrooms  int
	MinBathrooms int
	PropertyCode string
}

// IsZero reports whether no criterion is active
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// Filter returns the subset of properties satisfying every active criterion,
// preserving input order. It never mutates its inputs and never fails: a
// record missing a field required by an active criterion simply does not
// match.
func Filter(properties []models.Property, c Criteria) []models.Property {
	if c.IsZero() {
		return properties
	}

	matched := make([]models.Property, 0, len(properties))
	for _, p := range properties {
		if Matches(&p, c) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Matches reports whether a single property satisfies all active criteria
func Matches(p *models.Property, c Criteria) bool {
	if c.Query != "" {
		q := strings.ToLower(c.Query)
		inName := strings.Contains(strings.ToLower(p.Name), q)
		inCode := p.PropertyCode != "" && strings.Contains(strings.ToLower(p.PropertyCode), q)
		if !inName && !inCode {
			return false
		}
	}

	if c.Location != "" && p.Location != c.Location {
		return false
	}

	if c.PropertyType != "" && p.PropertyType != c.PropertyType {
		return false
	}

	if c.Format != "" && !strings.EqualFold(p.Type, c.Format) {
		return false
	}

	if c.PriceBucket != "" {
		min, max, ok := BucketBounds(c.PriceBucket)
		// Unknown bucket labels degrade to "no constraint" rather than
		// excluding everything.
		if ok {
			if p.Price < min {
				return false
			}
			if max > 0 && p.Price >= max {
				return false
			}
		}
	}

	if c.MinBedrooms > 0 && p.Bedrooms < c.MinBedrooms {
		return false
	}

	if c.MinBathrooms > 0 && p.Bathrooms < c.MinBathrooms {
		return false
	}

	if c.PropertyCode != "" {
		if p.PropertyCode == "" ||
			!strings.Contains(strings.ToLower(p.PropertyCode), strings.ToLower(c.PropertyCode)) {
			return false
		}
	}

	return true
}

// BucketBounds returns the half-open price interval of a bucket label.
// The open-ended bucket reports max=0. ok is false for unknown labels.
func BucketBounds(bucket string) (min, max float64, ok bool) {
	switch bucket {
	case PriceBucketLow:
		return 0, priceLowMax, true
	case PriceBucketMid:
		return priceLowMax, priceMidMax, true
	case PriceBucketHigh:
		return priceMidMax, 0, true
	}
	return 0, 0, false
}

// bucketForMaxPrice maps a numeric upper bound back to the nearest fixed
// bucket, mirroring how the bounds are encoded by ApplyToQuery.
func bucketForMaxPrice(max float64) string {
	switch {
	case max <= priceLowMax:
		return PriceBucketLow
	case max <= priceMidMax:
		return PriceBucketMid
	default:
		return PriceBucketHigh
	}
}

// CriteriaFromQuery reconstructs filter criteria from a page query string.
// Unrecognized keys are ignored and malformed values are dropped for that
// field only; the remaining criteria parse normally.
func CriteriaFromQuery(values url.Values) Criteria {
	c := Criteria{
		Query:        values.Get(keySearch),
		Format:       values.Get(keyFormat),
		PropertyType: values.Get(keyPropertyType),
		Location:     values.Get(keyLocation),
		PropertyCode: values.Get(keyPropertyCode),
	}

	if n, err := strconv.Atoi(values.Get(keyBedrooms)); err == nil && n > 0 {
		c.MinBedrooms = n
	}
	if n, err := strconv.Atoi(values.Get(keyBathrooms)); err == nil && n > 0 {
		c.MinBathrooms = n
	}

	// A price bucket round-trips as a pair of numeric bounds. Both must be
	// present and numeric, otherwise the price criterion is dropped.
	minStr := values.Get(keyMinPrice)
	maxStr := values.Get(keyMaxPrice)
	if minStr != "" && maxStr != "" {
		if _, err := strconv.ParseFloat(minStr, 64); err == nil {
			if max, err := strconv.ParseFloat(maxStr, 64); err == nil && max >= 0 {
				c.PriceBucket = bucketForMaxPrice(max)
			}
		}
	}

	return c
}

// ApplyToQuery produces the query string for the given criteria, starting
// from prev: every active criterion sets its key, every absent one removes
// its key, and keys not owned by the engine pass through unchanged. The
// returned flag reports whether the result differs from prev; callers must
// skip navigation when it is false to avoid redundant history entries and
// render loops. Applying the same criteria twice yields the same state.
func ApplyToQuery(c Criteria, prev url.Values) (url.Values, bool) {
	next := url.Values{}
	for k, vs := range prev {
		next[k] = append([]string(nil), vs...)
	}

	setOrDelete(next, keySearch, c.Query)
	setOrDelete(next, keyFormat, c.Format)
	setOrDelete(next, keyPropertyType, c.PropertyType)
	setOrDelete(next, keyLocation, c.Location)
	setOrDelete(next, keyPropertyCode, c.PropertyCode)

	if c.MinBedrooms > 0 {
		next.Set(keyBedrooms, strconv.Itoa(c.MinBedrooms))
	} else {
		next.Del(keyBedrooms)
	}
	if c.MinBathrooms > 0 {
		next.Set(keyBathrooms, strconv.Itoa(c.MinBathrooms))
	} else {
		next.Del(keyBathrooms)
	}

	switch c.PriceBucket {
	case PriceBucketLow:
		next.Set(keyMinPrice, "0")
		next.Set(keyMaxPrice, strconv.Itoa(priceLowMax))
	case PriceBucketMid:
		next.Set(keyMinPrice, strconv.Itoa(priceLowMax))
		next.Set(keyMaxPrice, strconv.Itoa(priceMidMax))
	case PriceBucketHigh:
		next.Set(keyMinPrice, strconv.Itoa(priceMidMax))
		next.Set(keyMaxPrice, strconv.Itoa(priceCeiling))
	default:
		next.Del(keyMinPrice)
		next.Del(keyMaxPrice)
	}

	return next, next.Encode() != prev.Encode()
}

func setOrDelete(values url.Values, key, value string) {
	if value != "" {
		values.Set(key, value)
	} else {
		values.Del(key)
	}
}
