package scoring

import (
	"fmt"
	"strings"

	"github.com/seatsniper/engine/model"
)

// ValueScoreInput bundles everything the engine needs to score one
// listing. EventPopularity and SectionTiers have no production supply
// side yet: EventPopularity is hard-coded to 50 by every caller today,
// and SectionTiers is always passed empty. Both parameters are preserved
// so a future venue-data source can wire in without changing this
// signature.
type ValueScoreInput struct {
	Listing             model.NormalizedListing
	AveragePrice        float64
	SectionTiers        map[string]model.SectionTier // caller-supplied venue override, usually nil
	TotalRowsInSection  int
	HistoricalPriceData []model.HistoricalPrice
	EventPopularity     int // 0-100
	DaysUntilEvent      int
}

// Engine is the deterministic, stateless value-scoring engine. It holds
// only its weight configuration; Score has no side effects and depends on
// nothing but its input.
type Engine struct {
	weights Weights
}

// NewEngine builds an Engine from w, rejecting any weight vector that does
// not sum to 1.0 within tolerance.
func NewEngine(w Weights) (*Engine, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: w}, nil
}

// MustNewEngine is NewEngine for callers that construct the engine once at
// startup with DefaultWeights() and want a panic instead of threading an
// error through initialization.
func MustNewEngine(w Weights) *Engine {
	e, err := NewEngine(w)
	if err != nil {
		panic(err)
	}
	return e
}

const historicalLowProximity = 0.05 // within 5% of the historical low
const priceOutlierThreshold = 25.0  // >=25% below average

// Score computes the five sub-scores, the weighted total, a
// recommendation bucket, human-readable reasoning, and the boolean flags.
func (e *Engine) Score(in ValueScoreInput) model.ValueScoreResult {
	rowRank := ParseRowRank(in.Listing.Row)
	if rowRank <= 0 {
		if in.TotalRowsInSection > 0 {
			rowRank = (in.TotalRowsInSection + 1) / 2 // ceil(totalRows/2)
		} else {
			rowRank = -1
		}
	}

	tier := ResolveSectionTier(in.Listing.Section, in.SectionTiers)

	breakdown := model.ScoreBreakdown{
		Price:      priceVsAverage(in.Listing.PricePerTicket, in.AveragePrice),
		Section:    sectionQuality(tier),
		Row:        rowPosition(rowRank, in.TotalRowsInSection),
		Historical: historicalPricing(in.Listing.PricePerTicket, in.HistoricalPriceData),
		Resale:     resalePotential(in.EventPopularity, in.DaysUntilEvent, tier),
	}

	weighted := float64(breakdown.Price)*e.weights.Price +
		float64(breakdown.Section)*e.weights.Section +
		float64(breakdown.Row)*e.weights.Row +
		float64(breakdown.Historical)*e.weights.Historical +
		float64(breakdown.Resale)*e.weights.Resale
	total := clamp(1, 100, round(weighted))

	flags := model.ScoreFlags{
		IsPremiumSection: tier == model.TierPremium || tier == model.TierUpperPremium,
		IsFrontRow:       rowRank >= 1 && rowRank <= 3,
		IsPriceOutlier:   priceOutlierPercent(in.Listing.PricePerTicket, in.AveragePrice) >= priceOutlierThreshold,
		IsHistoricalLow:  nearHistoricalLow(in.Listing.PricePerTicket, in.HistoricalPriceData),
	}

	rec := recommendationFor(total)

	return model.ValueScoreResult{
		TotalScore:     total,
		Breakdown:      breakdown,
		Recommendation: rec,
		Reasoning:      buildReasoning(in, flags, rec, total),
		Flags:          flags,
	}
}

func priceOutlierPercent(price, averagePrice float64) float64 {
	if averagePrice <= 0 {
		return 0
	}
	pct := (averagePrice - price) / averagePrice * 100
	if pct < 0 {
		return 0
	}
	return pct
}

func nearHistoricalLow(price float64, history []model.HistoricalPrice) bool {
	if len(history) == 0 {
		return false
	}
	lowest := history[0].LowestPrice
	for _, h := range history[1:] {
		if h.LowestPrice < lowest {
			lowest = h.LowestPrice
		}
	}
	if lowest <= 0 {
		return false
	}
	return price <= lowest*(1+historicalLowProximity)
}

func recommendationFor(total int) model.Recommendation {
	switch {
	case total >= 85:
		return model.RecommendationExcellent
	case total >= 70:
		return model.RecommendationGood
	case total >= 55:
		return model.RecommendationFair
	case total >= 40:
		return model.RecommendationBelowAverage
	default:
		return model.RecommendationPoor
	}
}

func buildReasoning(in ValueScoreInput, flags model.ScoreFlags, rec model.Recommendation, total int) string {
	var clauses []string

	if pct := priceOutlierPercent(in.Listing.PricePerTicket, in.AveragePrice); pct >= 1 {
		clauses = append(clauses, fmt.Sprintf("%d%% below average price", round(pct)))
	}
	if flags.IsPremiumSection {
		clauses = append(clauses, "Premium seating location")
	}
	if flags.IsFrontRow {
		clauses = append(clauses, "Front row position")
	}
	if flags.IsHistoricalLow {
		clauses = append(clauses, "Near historical low price")
	}
	if in.EventPopularity >= 80 && in.DaysUntilEvent >= 7 && in.DaysUntilEvent <= 30 {
		clauses = append(clauses, "High resale potential")
	}

	if len(clauses) == 0 {
		return defaultReasoning(rec, total)
	}
	return strings.Join(clauses, ". ")
}

func defaultReasoning(rec model.Recommendation, total int) string {
	switch rec {
	case model.RecommendationExcellent:
		return "Exceptional value across price, seating, and timing"
	case model.RecommendationGood:
		return "Solid value for this listing"
	case model.RecommendationFair:
		return "Reasonable value; no standout factors"
	case model.RecommendationBelowAverage:
		return "Below-average value for this price point"
	default:
		return fmt.Sprintf("Poor value (score %d)", total)
	}
}
