package docmodel

// Word is a single text token on a page, as reported by a document source.
type Word struct {
	Text   string  // Token text
	Bottom float64 // Vertical baseline position
	Size   float64 // Font size
}

// Line is a run of words judged to share a visual row and a font size.
type Line struct {
	Text string
	Size float64
}

// Section is a titled, page-anchored span of body text within one document.
type Section struct {
	Title    string // Heading text (never empty once segmentation finishes)
	Content  string // Newline-joined body lines
	Page     int    // 1-based page the section was flushed on
	Document string // Source filename
}

// ScoredSection is a Section with its similarity to the query.
type ScoredSection struct {
	Section
	Score float64
	Rank  int // 1-based importance rank
}

// TruncateRunes returns the first n characters of s.
func TruncateRunes(s string, n int) string {
	if n < 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
