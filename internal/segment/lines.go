package segment

import (
	"math"
	"strings"

	"github.com/dgallion1/docfocus/internal/docmodel"
)

// AssembleLines groups a page's words into rows. A word joins the current
// line when its baseline is within tol of the previous word's baseline and
// its font size matches the line's exactly. Words are assumed to arrive in
// reading order.
func AssembleLines(words []docmodel.Word, tol float64) []docmodel.Line {
	if len(words) == 0 {
		return nil
	}

	var lines []docmodel.Line
	var cur strings.Builder
	size := words[0].Size
	lastBottom := words[0].Bottom
	cur.WriteString(words[0].Text)

	for _, w := range words[1:] {
		if math.Abs(w.Bottom-lastBottom) < tol && w.Size == size {
			cur.WriteByte(' ')
			cur.WriteString(w.Text)
			lastBottom = w.Bottom
			continue
		}
		lines = append(lines, docmodel.Line{Text: strings.TrimSpace(cur.String()), Size: size})
		cur.Reset()
		cur.WriteString(w.Text)
		size = w.Size
		lastBottom = w.Bottom
	}
	if cur.Len() > 0 {
		lines = append(lines, docmodel.Line{Text: strings.TrimSpace(cur.String()), Size: size})
	}

	return lines
}
