package matching

import (
	"regexp"
	"strings"
)

var (
	// "vs.", "v.", and bare "vs" all collapse to the single token "vs";
	// the dotted forms need their own pattern because \b cannot anchor
	// after a trailing period.
	vsDotRe     = regexp.MustCompile(`\bvs?\.|\bvs\b`)
	stripTokens = []string{"tickets", "live", "concert"}
	whitespace  = regexp.MustCompile(`\s+`)
)

// NormalizeName lowercases the event name, collapses "vs."/"v." into a
// single "vs" token, strips marketing boilerplate tokens, and collapses
// whitespace. Idempotent: NormalizeName(NormalizeName(s)) == NormalizeName(s).
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = vsDotRe.ReplaceAllString(s, "vs")
	for _, tok := range stripTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// venueAliases maps a lowercased alternate venue name to its canonical
// form. Keys and values are real-world arena/stadium aliases that
// marketplaces disagree on.
var venueAliases = map[string]string{
	"rose garden arena":      "Moda Center",
	"the garden":             "Madison Square Garden",
	"msg":                    "Madison Square Garden",
	"staples center":         "Crypto.com Arena",
	"the staples center":     "Crypto.com Arena",
	"att stadium":            "AT&T Stadium",
	"at&t stadium":           "AT&T Stadium",
	"us bank stadium":        "U.S. Bank Stadium",
	"u.s. bank stadium":      "U.S. Bank Stadium",
	"the forum":              "Kia Forum",
	"great american ballpark": "Great American Ball Park",
}

// VenueCanonical resolves a free-text venue name to its canonical form:
// exact alias lookup, then substring match in both directions against the
// alias table, else title-cased original. Idempotent.
func VenueCanonical(venueName string) string {
	lower := strings.ToLower(strings.TrimSpace(venueName))
	if lower == "" {
		return venueName
	}
	if canon, ok := venueAliases[lower]; ok {
		return canon
	}
	for alias, canon := range venueAliases {
		if strings.Contains(lower, alias) || strings.Contains(alias, lower) {
			return canon
		}
	}
	return titleCase(venueName)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if len(w) == 0 {
			continue
		}
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// NormalizeSection lowercases a section string, expands common
// abbreviations used for cross-platform comparison ("sec." -> "section",
// "ga" -> "general admission"), strips row tokens and punctuation, and
// collapses whitespace. Idempotent.
func NormalizeSection(section string) string {
	s := strings.ToLower(strings.TrimSpace(section))
	s = strings.ReplaceAll(s, "sec.", "section")
	s = wholeWordReplace(s, "ga", "general admission")
	s = punctuation.ReplaceAllString(s, " ")
	s = rowTokenRe.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

var (
	punctuation = regexp.MustCompile(`[^a-z0-9 ]+`)
	rowTokenRe  = regexp.MustCompile(`\brow\s*\w*\b`)
)

func wholeWordReplace(s, word, repl string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.ReplaceAllString(s, repl)
}
