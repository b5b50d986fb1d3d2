package rank

import (
	"sort"

	"github.com/dgallion1/docfocus/internal/docmodel"
)

// DefaultPreviewChars is how much of a section's content represents it
// when ranking.
const DefaultPreviewChars = 600

// Ranked is one unit's place in a ranking.
type Ranked struct {
	Rank  int // 1-based position
	Score float64
	Index int // position of the unit in the input slice
}

// Rank scores every unit against query by cosine similarity in a TF-IDF
// space fitted over the units plus the query. Results are ordered by
// descending score; equal scores keep their input order.
func Rank(units []string, query string) []Ranked {
	if len(units) == 0 {
		return nil
	}

	texts := make([]string, 0, len(units)+1)
	texts = append(texts, units...)
	texts = append(texts, query)
	vecs := Vectorize(texts)
	q := vecs[len(units)]

	out := make([]Ranked, len(units))
	for i := range units {
		out[i] = Ranked{Score: q.Dot(vecs[i]), Index: i}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// SectionText is the text a section is ranked by: its title followed by the
// first previewChars characters of its content.
func SectionText(s docmodel.Section, previewChars int) string {
	return s.Title + "\n" + docmodel.TruncateRunes(s.Content, previewChars)
}

// Sections ranks sections against query.
func Sections(sections []docmodel.Section, query string, previewChars int) []docmodel.ScoredSection {
	if previewChars <= 0 {
		previewChars = DefaultPreviewChars
	}
	units := make([]string, len(sections))
	for i, s := range sections {
		units[i] = SectionText(s, previewChars)
	}

	ranked := Rank(units, query)
	out := make([]docmodel.ScoredSection, len(ranked))
	for i, r := range ranked {
		out[i] = docmodel.ScoredSection{
			Section: sections[r.Index],
			Score:   r.Score,
			Rank:    r.Rank,
		}
	}
	return out
}
