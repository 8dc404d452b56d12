package patterns

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Metadata is the structured header of a pattern document.
type Metadata struct {
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty,omitempty"`
	NodeTypes  []string `json:"node_types"`
	UseCases   []string `json:"use_cases"`
	ErrorCodes []string `json:"error_codes"`
}

// CodeExample is one fenced code block.
type CodeExample struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Section headings recognized by ParseMetadata (level 2, case-insensitive).
const (
	sectionDifficulty = "difficulty"
	sectionNodeTypes  = "node types"
	sectionUseCases   = "use cases"
	sectionErrorCodes = "error codes"
)

func parse(content string) (ast.Node, []byte) {
	src := []byte(content)
	return goldmark.DefaultParser().Parse(text.NewReader(src)), src
}

// ParseMetadata reads the title from the first level-1 heading and the
// Difficulty, Node Types, Use Cases and Error Codes sections from
// level-2 headings. Sections may be lists or comma-separated paragraphs.
func ParseMetadata(content string) Metadata {
	doc, src := parse(content)
	meta := Metadata{NodeTypes: []string{}, UseCases: []string{}, ErrorCodes: []string{}}

	section := ""
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			title := textOf(h, src)
			switch {
			case h.Level == 1 && meta.Title == "":
				meta.Title = title
				section = ""
			case h.Level == 2:
				section = strings.ToLower(title)
			default:
				section = ""
			}
			continue
		}

		items := sectionItems(n, src)
		switch section {
		case sectionDifficulty:
			if meta.Difficulty == "" && len(items) > 0 {
				meta.Difficulty = items[0]
			}
		case sectionNodeTypes:
			meta.NodeTypes = append(meta.NodeTypes, splitItems(items)...)
		case sectionUseCases:
			meta.UseCases = append(meta.UseCases, items...)
		case sectionErrorCodes:
			for _, c := range splitItems(items) {
				meta.ErrorCodes = append(meta.ErrorCodes, strings.ToUpper(c))
			}
		}
	}
	return meta
}

// sectionItems returns list item texts for lists and the paragraph text
// for paragraphs.
func sectionItems(n ast.Node, src []byte) []string {
	switch n.(type) {
	case *ast.List:
		var items []string
		for li := n.FirstChild(); li != nil; li = li.NextSibling() {
			if s := textOf(li, src); s != "" {
				items = append(items, s)
			}
		}
		return items
	case *ast.Paragraph:
		if s := textOf(n, src); s != "" {
			return []string{s}
		}
	}
	return nil
}

// splitItems splits comma-separated entries.
func splitItems(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func textOf(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// ParseCodeExamples returns every fenced code block in document order.
// Blocks without an info string are tagged "text".
func ParseCodeExamples(content string) []CodeExample {
	doc, src := parse(content)
	examples := []CodeExample{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := string(block.Language(src))
		if lang == "" {
			lang = "text"
		}
		var code strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			code.Write(seg.Value(src))
		}
		examples = append(examples, CodeExample{
			Language: lang,
			Code:     strings.TrimRight(code.String(), "\n"),
		})
		return ast.WalkSkipChildren, nil
	})
	return examples
}
