package scoring

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/seatsniper/engine/model"
)

// priceVsAverage: 50% below average maps to 100, at-average to 50, 50%+
// above to 0.
func priceVsAverage(price, averagePrice float64) int {
	if averagePrice <= 0 {
		return 50
	}
	diffPct := (averagePrice - price) / averagePrice * 100
	return clamp(0, 100, round(50+diffPct))
}

var sectionTierScore = map[model.SectionTier]int{
	model.TierPremium:      100,
	model.TierUpperPremium: 80,
	model.TierMidTier:      60,
	model.TierUpperLevel:   40,
	model.TierObstructed:   20,
}

var sectionNormalizer = regexp.MustCompile(`(?i)\b(SECTION|SEC)\b`)
var nonDigits = regexp.MustCompile(`[^0-9]`)

var keywordTiers = []struct {
	substr string
	tier   model.SectionTier
}{
	{"floor", model.TierPremium},
	{"pit", model.TierPremium},
	{"vip", model.TierPremium},
	{"club", model.TierPremium},
	{"courtside", model.TierPremium},
	{"field", model.TierPremium},
	{"diamond", model.TierPremium},
	{"lower", model.TierUpperPremium},
	{"terrace", model.TierUpperPremium},
	{"box", model.TierUpperPremium},
	{"upper", model.TierUpperLevel},
	{"balcony", model.TierUpperLevel},
	{"gallery", model.TierUpperLevel},
	{"mezzanine", model.TierUpperLevel},
	{"obstructed", model.TierObstructed},
	{"limited", model.TierObstructed},
	{"partial", model.TierObstructed},
	{"behind", model.TierObstructed},
}

// ResolveSectionTier implements the six-step tier-resolution order: exact
// match against a caller-supplied map, normalized lookup, numeric-only
// lookup, keyword heuristics, numeric-range heuristics, then a MID_TIER
// default.
func ResolveSectionTier(section string, sectionTiers map[string]model.SectionTier) model.SectionTier {
	if section == "" {
		return model.TierMidTier
	}

	if sectionTiers != nil {
		if tier, ok := sectionTiers[section]; ok {
			return tier
		}
	}

	normalized := strings.ToUpper(strings.TrimSpace(section))
	normalized = sectionNormalizer.ReplaceAllString(normalized, "")
	normalized = strings.TrimSpace(normalized)
	if sectionTiers != nil {
		if tier, ok := sectionTiers[normalized]; ok {
			return tier
		}
	}

	digitsOnly := nonDigits.ReplaceAllString(section, "")
	if digitsOnly != "" && sectionTiers != nil {
		if tier, ok := sectionTiers[digitsOnly]; ok {
			return tier
		}
	}

	lower := strings.ToLower(section)
	for _, kw := range keywordTiers {
		if strings.Contains(lower, kw.substr) {
			return kw.tier
		}
	}

	if digitsOnly != "" {
		if n, err := strconv.Atoi(digitsOnly); err == nil {
			switch {
			case n >= 100 && n <= 199:
				return model.TierUpperPremium
			case n >= 200 && n <= 299:
				return model.TierMidTier
			case n >= 300:
				return model.TierUpperLevel
			}
		}
	}

	return model.TierMidTier
}

func sectionQuality(tier model.SectionTier) int {
	if s, ok := sectionTierScore[tier]; ok {
		return s
	}
	return sectionTierScore[model.TierMidTier]
}

var doubleLetterExcluded = map[string]bool{"GA": true}

// ParseRowRank converts a row label into its rank, or -1 if it can't be
// parsed (the caller then substitutes the middle row).
func ParseRowRank(row string) int {
	trimmed := strings.ToUpper(strings.TrimSpace(row))
	if trimmed == "" {
		return -1
	}
	if trimmed == "GA" || trimmed == "GENERAL ADMISSION" || trimmed == "PIT" {
		return 1
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n
	}
	if len(trimmed) == 1 && trimmed[0] >= 'A' && trimmed[0] <= 'Z' {
		return int(trimmed[0]-'A') + 1
	}
	if len(trimmed) == 2 && !doubleLetterExcluded[trimmed] {
		first, second := trimmed[0], trimmed[1]
		if first >= 'A' && first <= 'Z' && second >= 'A' && second <= 'Z' {
			return 27 + 26*int(first-'A') + int(second-'A'+1)
		}
	}
	return -1
}

// rowPosition scores proximity to the front of the section.
func rowPosition(rowRank, totalRows int) int {
	if totalRows <= 0 || rowRank <= 0 {
		return 50
	}
	if rowRank > totalRows {
		rowRank = totalRows
	}
	if rowRank == 1 {
		return 100
	}
	pos := float64(rowRank-1) / float64(totalRows-1)
	return int(math.Max(20, math.Round(100-math.Sqrt(pos)*80)))
}

// weightedHistoricalAverage applies a 0.9^n decay to history sorted
// newest-first, and returns the average alongside the lowest observed
// price.
func weightedHistoricalAverage(history []model.HistoricalPrice) (avg, lowest float64) {
	sorted := make([]model.HistoricalPrice, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RecordedAt > sorted[j].RecordedAt })

	var weightedSum, weightTotal float64
	lowest = math.MaxFloat64
	for n, h := range sorted {
		w := math.Pow(0.9, float64(n))
		weightedSum += h.AveragePrice * w
		weightTotal += w
		if h.LowestPrice < lowest {
			lowest = h.LowestPrice
		}
	}
	if weightTotal == 0 {
		return 0, 0
	}
	return weightedSum / weightTotal, lowest
}

// historicalPricing scores against a recency-decayed weighted average and
// the historical floor.
func historicalPricing(price float64, history []model.HistoricalPrice) int {
	if len(history) == 0 {
		return 50
	}
	avg, lowest := weightedHistoricalAverage(history)
	if price <= lowest {
		return 100
	}
	if price >= avg {
		return int(math.Max(0, math.Round(50-(price-avg)/avg*100)))
	}
	return round(50 + (avg-price)/(avg-lowest)*50)
}

func popularityScore(popularity int) int {
	switch {
	case popularity >= 90:
		return 100
	case popularity >= 80:
		return 90
	case popularity >= 60:
		return 70
	case popularity >= 40:
		return 50
	case popularity >= 20:
		return 30
	default:
		return 20
	}
}

func timingScore(daysUntilEvent int) int {
	switch {
	case daysUntilEvent < 1:
		return 20
	case daysUntilEvent < 3:
		return 40
	case daysUntilEvent < 7:
		return 60
	case daysUntilEvent <= 30:
		return 100
	case daysUntilEvent <= 60:
		return 80
	case daysUntilEvent <= 90:
		return 60
	case daysUntilEvent <= 180:
		return 40
	default:
		return 30
	}
}

var sectionResaleScore = map[model.SectionTier]int{
	model.TierPremium:      100,
	model.TierUpperPremium: 85,
	model.TierMidTier:      70,
	model.TierUpperLevel:   50,
	model.TierObstructed:   30,
}

func resalePotential(popularity, daysUntilEvent int, tier model.SectionTier) int {
	pop := popularityScore(popularity)
	timing := timingScore(daysUntilEvent)
	section := sectionResaleScore[tier]
	return round(float64(pop)*0.5 + float64(timing)*0.3 + float64(section)*0.2)
}
