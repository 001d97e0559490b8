package table

import (
	"strings"
	"unicode"

	"github.com/schollz/closestmatch"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldLabel reduces a header label to its comparison form: accents
// stripped, lower case, inner whitespace collapsed. "Compañía  Código"
// and "compania codigo" fold to the same string.
func foldLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// suggest maps each missing label to the closest header name, if any.
func (h Header) suggest(missing []string) map[string]string {
	candidates := make([]string, 0, len(h.names))
	original := make(map[string]string, len(h.names))
	for i, f := range h.folded {
		if f == "" {
			continue
		}
		if _, dup := original[f]; !dup {
			candidates = append(candidates, f)
			original[f] = h.names[i]
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	cm := closestmatch.New(candidates, []int{2, 3})
	out := make(map[string]string, len(missing))
	for _, label := range missing {
		if match := cm.Closest(foldLabel(label)); match != "" {
			out[label] = original[match]
		}
	}
	return out
}
