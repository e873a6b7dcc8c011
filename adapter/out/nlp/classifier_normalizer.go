// Package nlp implements text processing adapters for the classification
// pipeline: HTML normalization, PII handling and metadata extraction.
package nlp

import (
	"strings"

	"golang.org/x/net/html"
)

// Normalizer converts raw email bodies to plain text.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize strips HTML markup and collapses whitespace runs. Plain text
// input only gets the whitespace pass.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	if strings.Contains(raw, "<") && strings.Contains(raw, ">") {
		text = stripHTML(raw)
	}

	return collapseWhitespace(text)
}

// stripHTML walks the token stream, keeping text nodes and dropping
// script and style contents entirely.
func stripHTML(raw string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(raw))

	var sb strings.Builder
	skipDepth := 0

	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			return sb.String()

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipDepth++
			}
			if isBlockTag(tag) {
				sb.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
			if isBlockTag(tag) {
				sb.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "br" {
				sb.WriteByte('\n')
			}

		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
			}
		}
	}
}

func isBlockTag(tag string) bool {
	switch tag {
	case "p", "div", "br", "tr", "li", "h1", "h2", "h3", "h4", "h5", "h6", "table":
		return true
	}
	return false
}

// collapseWhitespace trims each line and drops runs of blank lines, while
// collapsing spaces and tabs inside lines.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")

	var out []string
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
