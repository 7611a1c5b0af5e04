// Package comparator derives per-section cheapest-per-platform pricing and
// the overall best deal for a matched event, once its listings from two or
// more platforms are known.
package comparator

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/seatsniper/engine/matching"
	"github.com/seatsniper/engine/model"
)

// PlatformListings is the raw per-platform listing set for one matched
// event, as the caller has fetched it.
type PlatformListings map[string][]model.NormalizedListing

// Result is the full cross-platform comparison for one event.
type Result struct {
	Sections []model.SectionComparison
	BestDeal model.PlatformListing
	HasDeal  bool
}

// Compare builds the comparison. It requires listings from at least two
// platforms; with fewer, it returns an empty Result.
func Compare(byPlatform PlatformListings) Result {
	if countNonEmpty(byPlatform) < 2 {
		return Result{}
	}

	// normalized section -> platform -> cheapest listing on that platform
	cheapest := make(map[string]map[string]model.NormalizedListing)
	for platform, listings := range byPlatform {
		for _, l := range listings {
			section := matching.NormalizeSection(l.Section)
			if cheapest[section] == nil {
				cheapest[section] = make(map[string]model.NormalizedListing)
			}
			existing, ok := cheapest[section][platform]
			if !ok || l.PricePerTicket < existing.PricePerTicket {
				cheapest[section][platform] = l
			}
		}
	}

	var sections []model.SectionComparison
	var overallBest model.PlatformListing
	var overallBestPlatform string
	haveOverall := false

	for section, byP := range cheapest {
		if len(byP) == 0 {
			continue
		}
		listings := make([]model.PlatformListing, 0, len(byP))
		for platform, l := range byP {
			listings = append(listings, model.PlatformListing{Platform: platform, Listing: l})
		}
		sort.Slice(listings, func(i, j int) bool {
			return listings[i].Listing.PricePerTicket < listings[j].Listing.PricePerTicket
		})

		sc := model.SectionComparison{
			NormalizedSection: section,
			Listings:          listings,
			BestDeal:          listings[0],
		}
		if len(listings) > 1 {
			next := listings[1].Listing.PricePerTicket
			best := listings[0].Listing.PricePerTicket
			sc.Savings = next - best
			if next > 0 {
				sc.SavingsPercent = int(sc.Savings/next*100 + 0.5)
			}
		}
		sections = append(sections, sc)

		if !haveOverall || listings[0].Listing.PricePerTicket < overallBest.Listing.PricePerTicket {
			overallBest = listings[0]
			overallBestPlatform = listings[0].Platform
			haveOverall = true
		}
	}
	_ = overallBestPlatform

	sort.Slice(sections, func(i, j int) bool {
		return sectionSortKey(sections[i].NormalizedSection) < sectionSortKey(sections[j].NormalizedSection)
	})

	return Result{Sections: sections, BestDeal: overallBest, HasDeal: haveOverall}
}

func countNonEmpty(byPlatform PlatformListings) int {
	n := 0
	for _, listings := range byPlatform {
		if len(listings) > 0 {
			n++
		}
	}
	return n
}

var sectionDigits = regexp.MustCompile(`[0-9]+`)

// sectionSortKey extracts the leading numeric token from a normalized
// section name for ascending display order; sections without a number
// sort last.
func sectionSortKey(section string) int {
	digits := sectionDigits.FindString(section)
	if digits == "" {
		return 999
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 999
	}
	return n
}
