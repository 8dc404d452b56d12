package patterns

import (
	"sort"
	"strings"
	"unicode"
)

// Related is a pattern scored by overlap with another pattern.
type Related struct {
	Pattern
	Score float64 `json:"score"`
}

// DefaultRelatedLimit caps GetRelatedPatterns when no limit is given.
const DefaultRelatedLimit = 5

var stopwords = map[string]bool{
	"with": true, "from": true, "that": true, "this": true, "into": true,
	"when": true, "until": true, "their": true, "them": true, "each": true,
	"every": true, "back": true, "through": true, "using": true,
}

// GetRelatedPatterns ranks other patterns by Jaccard overlap of node
// types, error codes and significant title/use-case words.
func (l *Library) GetRelatedPatterns(name string, limit int) ([]Related, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	if _, err := l.Lookup(name); err != nil {
		return nil, err
	}
	base, err := l.GetPatternMetadata(name)
	if err != nil {
		return nil, err
	}
	baseFeatures := features(name, base)

	all, err := l.ListAvailablePatterns()
	if err != nil {
		return nil, err
	}
	out := []Related{}
	for _, p := range all {
		if p.Name == name {
			continue
		}
		meta, err := l.GetPatternMetadata(p.Name)
		if err != nil {
			return nil, err
		}
		score := jaccard(baseFeatures, features(p.Name, meta))
		if score > 0 {
			out = append(out, Related{Pattern: p, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func features(name string, meta Metadata) map[string]bool {
	set := make(map[string]bool)
	for _, nt := range meta.NodeTypes {
		set["node:"+strings.ToLower(nt)] = true
	}
	for _, c := range meta.ErrorCodes {
		set["code:"+c] = true
	}
	words := []string{name, meta.Title}
	words = append(words, meta.UseCases...)
	for _, w := range words {
		for _, word := range strings.FieldsFunc(strings.ToLower(w), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if len(word) >= 4 && !stopwords[word] {
				set["word:"+word] = true
			}
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
