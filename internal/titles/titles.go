// Package titles picks display titles for MangaDex manga and filters cards by
// a loose title query.
package titles

import (
	"cmp"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/unicode/norm"

	"github.com/Another0Noob/mangadex-progress/internal/mangadexapi"
)

var (
	reNonAlnum   = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	reMultiSpace = regexp.MustCompile(`\s+`)
)

// Pick returns a human friendly title for m, preferring lang, then English,
// then romanized titles. At each step primary titles win over alt titles.
// Without any title the manga ID is returned.
func Pick(m mangadexapi.Manga, lang string) string {
	attrs := m.Attributes
	prefer := []func(code string) bool{
		func(code string) bool { return lang != "" && code == lang },
		func(code string) bool { return code == "en" },
		func(code string) bool { return strings.HasSuffix(code, "-ro") },
		func(string) bool { return true },
	}

	for _, match := range prefer {
		if t := first(attrs.Title, match); t != "" {
			return t
		}
		for _, alt := range attrs.AltTitles {
			if t := first(alt, match); t != "" {
				return t
			}
		}
	}
	return m.ID
}

// first returns the non-empty title of the smallest matching language code.
func first(titles map[string]string, match func(string) bool) string {
	for _, code := range slices.Sorted(maps.Keys(titles)) {
		if t := titles[code]; t != "" && match(code) {
			return t
		}
	}
	return ""
}

// All returns every primary and alt title of m.
func All(m mangadexapi.Manga) []string {
	var out []string
	for _, code := range slices.Sorted(maps.Keys(m.Attributes.Title)) {
		out = append(out, m.Attributes.Title[code])
	}
	for _, alt := range m.Attributes.AltTitles {
		for _, code := range slices.Sorted(maps.Keys(alt)) {
			out = append(out, alt[code])
		}
	}
	return out
}

func stripDiacritics(s string) string {
	decomp := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomp))
	for _, r := range decomp {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize folds s for comparison: width and compatibility forms, diacritics,
// case, punctuation and the wo/node particle variants.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = norm.NFKC.String(s)
	s = stripDiacritics(s)
	s = strings.ToLower(s)

	for _, r := range []string{"@comic", "the comic", "(comic)", "(manga)"} {
		s = strings.ReplaceAll(s, r, "")
	}

	s = reNonAlnum.ReplaceAllString(s, " ")

	tokens := strings.Fields(s)
	out := tokens[:0]
	for i := 0; i < len(tokens); i++ {
		switch tok := tokens[i]; {
		case tok == "wo":
			out = append(out, "o")
		case tok == "node":
			out = append(out, "no")
		case tok == "no" && i+1 < len(tokens) && tokens[i+1] == "de":
			out = append(out, "no")
			i++
		default:
			out = append(out, tok)
		}
	}

	return reMultiSpace.ReplaceAllString(strings.Join(out, " "), " ")
}

// Filter keeps the cards with a title that contains query as a fuzzy
// subsequence, closest match first. An empty query keeps every card.
func Filter(cards []mangadexapi.MangaCard, query string) []mangadexapi.MangaCard {
	q := Normalize(query)
	if q == "" {
		return cards
	}

	type ranked struct {
		card     mangadexapi.MangaCard
		distance int
	}

	var hits []ranked
	for _, card := range cards {
		best := -1
		for _, t := range All(card.Manga) {
			d := fuzzy.RankMatchNormalizedFold(q, Normalize(t))
			if d >= 0 && (best < 0 || d < best) {
				best = d
			}
		}
		if best >= 0 {
			hits = append(hits, ranked{card: card, distance: best})
		}
	}

	slices.SortStableFunc(hits, func(a, b ranked) int {
		return cmp.Compare(a.distance, b.distance)
	})

	out := make([]mangadexapi.MangaCard, len(hits))
	for i, h := range hits {
		out[i] = h.card
	}
	return out
}
