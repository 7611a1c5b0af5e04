// Package matching groups the same real-world event as listed on
// different marketplaces, via venue-alias canonicalization, fuzzy name
// matching, and time proximity. It is pure and stateless: Match takes a
// flat slice of events and returns the cross-platform groups it finds.
package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/seatsniper/engine/model"
)

const (
	// maxTimeDelta is the widest gap between two events' start times that
	// still allows them to be considered the same real-world event.
	maxTimeDelta = 30 * time.Minute
	// minNameSimilarity is the Levenshtein-derived similarity floor.
	minNameSimilarity = 85
)

// eventsMatch reports whether a and b describe the same real-world event:
// within 30 minutes of each other, same canonical venue, and fuzzy name
// similarity >= 85%.
func eventsMatch(a, b model.NormalizedEvent) (matches bool, confidence int) {
	delta := a.DateTime.Sub(b.DateTime)
	if delta < 0 {
		delta = -delta
	}
	if delta > maxTimeDelta {
		return false, 0
	}
	if VenueCanonical(a.Venue.Name) != VenueCanonical(b.Venue.Name) {
		return false, 0
	}

	nameSim := nameSimilarity(NormalizeName(a.Name), NormalizeName(b.Name))
	if nameSim < minNameSimilarity {
		return false, 0
	}

	timeScore := int((1.0-float64(delta)/float64(maxTimeDelta))*100 + 0.5)
	confidence = round(float64(nameSim)*0.5 + 100*0.3 + float64(timeScore)*0.2)
	return true, confidence
}

func round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}

// Match groups events into cross-platform EventMatches. It iterates
// events in order, starting a new group from the first unprocessed event
// and greedily absorbing matching events from OTHER platforms only (two
// events from the same platform never merge, since a single marketplace
// never lists the same event twice under different platform IDs). Groups
// with members from fewer than two distinct platforms are discarded.
func Match(events []model.NormalizedEvent) []model.EventMatch {
	used := make([]bool, len(events))
	var groups []model.EventMatch

	for i := range events {
		if used[i] {
			continue
		}
		used[i] = true

		members := map[string]model.NormalizedEvent{events[i].Platform: events[i]}
		minConfidence := 100
		anyMatched := false

		for j := i + 1; j < len(events); j++ {
			if used[j] {
				continue
			}
			if events[j].Platform == events[i].Platform {
				continue // never merge same-platform listings of the same event
			}
			if _, already := members[events[j].Platform]; already {
				continue
			}
			matched, conf := eventsMatch(events[i], events[j])
			if !matched {
				continue
			}
			used[j] = true
			members[events[j].Platform] = events[j]
			anyMatched = true
			if conf < minConfidence {
				minConfidence = conf
			}
		}

		if !anyMatched || len(members) < 2 {
			continue
		}

		groups = append(groups, buildGroup(events[i], members, minConfidence))
	}

	return groups
}

func buildGroup(seed model.NormalizedEvent, members map[string]model.NormalizedEvent, confidence int) model.EventMatch {
	canonicalName := titleCase(NormalizeName(seed.Name))
	venueName := VenueCanonical(seed.Venue.Name)
	return model.EventMatch{
		GroupID:       groupID(canonicalName, venueName, seed.DateTime),
		CanonicalName: canonicalName,
		VenueName:     venueName,
		EventDate:     seed.DateTime,
		Events:        members,
		Confidence:    confidence,
	}
}

// groupID builds a deterministic id: a 30-char name hash, a venue slug,
// and the event's UTC date.
func groupID(name, venue string, eventDate time.Time) string {
	sum := sha256.Sum256([]byte(name))
	nameHash := hex.EncodeToString(sum[:])[:30]
	return fmt.Sprintf("%s_%s_%s", nameHash, slugify(venue), eventDate.UTC().Format("2006-01-02"))
}

func slugify(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
