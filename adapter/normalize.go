package adapter

import (
	"strings"
	"time"

	"github.com/seatsniper/engine/model"
)

// ResolveDateTime applies the adapter-wide date/time resolution order:
// platform UTC field if present; else local date + local time (defaulting
// to 19:00:00); else a best-effort parse of a human string. Returns false
// if none of those produce a usable instant, telling the caller to drop
// the item.
func ResolveDateTime(utcField string, localDate string, localTime string, humanString string) (time.Time, bool) {
	if utcField != "" {
		if t, err := time.Parse(time.RFC3339, utcField); err == nil {
			return t.UTC(), true
		}
	}

	if localDate != "" {
		lt := localTime
		if lt == "" {
			lt = "19:00:00"
		}
		if t, err := time.Parse("2006-01-02 15:04:05", localDate+" "+lt); err == nil {
			return t.UTC(), true
		}
	}

	if humanString != "" {
		layouts := []string{
			time.RFC1123,
			time.RFC1123Z,
			"Jan 2, 2006 3:04 PM",
			"January 2, 2006",
			"2006-01-02T15:04:05",
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, humanString); err == nil {
				return t.UTC(), true
			}
		}
	}

	return time.Time{}, false
}

// categoryKeywords maps a lowercase substring found in a platform's
// classification string to the fixed internal category.
var categoryKeywords = []struct {
	substr string
	cat    model.Category
}{
	{"sport", model.CategorySports},
	{"football", model.CategorySports},
	{"basketball", model.CategorySports},
	{"baseball", model.CategorySports},
	{"hockey", model.CategorySports},
	{"soccer", model.CategorySports},
	{"theatre", model.CategoryTheater},
	{"theater", model.CategoryTheater},
	{"musical", model.CategoryTheater},
	{"broadway", model.CategoryTheater},
	{"comedy", model.CategoryComedy},
	{"stand-up", model.CategoryComedy},
	{"festival", model.CategoryFestivals},
	{"fair", model.CategoryFestivals},
	{"music", model.CategoryConcerts},
	{"concert", model.CategoryConcerts},
}

// InferCategory classifies a platform's free-text segment/genre string
// against a fixed keyword dictionary, defaulting to CONCERTS.
func InferCategory(classification string) model.Category {
	lower := strings.ToLower(classification)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.substr) {
			return kw.cat
		}
	}
	return model.CategoryConcerts
}

// deliveryKeywords is checked in order; the first matching substring wins.
var deliveryKeywords = []struct {
	substr string
	d      model.DeliveryType
}{
	{"instant", model.DeliveryInstant},
	{"mobile", model.DeliveryInstant},
	{"electronic", model.DeliveryElectronic},
	{"digital", model.DeliveryElectronic},
	{"willcall", model.DeliveryWillCall},
	{"will call", model.DeliveryWillCall},
	{"ups", model.DeliveryPhysical},
	{"fedex", model.DeliveryPhysical},
	{"mail", model.DeliveryPhysical},
	{"ship", model.DeliveryPhysical},
}

// InferDeliveryType maps a platform's free-text delivery description to
// the fixed internal taxonomy, defaulting to electronic.
func InferDeliveryType(description string) model.DeliveryType {
	lower := strings.ToLower(description)
	for _, kw := range deliveryKeywords {
		if strings.Contains(lower, kw.substr) {
			return kw.d
		}
	}
	return model.DeliveryElectronic
}

// PriceRangeFrom builds a *model.PriceRange, returning nil unless both
// bounds are strictly positive.
func PriceRangeFrom(low, high float64, currency string) *model.PriceRange {
	if low <= 0 || high <= 0 {
		return nil
	}
	return &model.PriceRange{Min: low, Max: high, Currency: currency}
}
