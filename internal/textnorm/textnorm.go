// Package textnorm turns raw, possibly HTML-bearing posting text into the
// canonical plain-text document form used for embedding and reranking. The
// same function must run at indexing time and at query time; otherwise the
// reranker sees a different rendering of the document than the one that was
// embedded.
package textnorm

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedElements are elements whose text content is never human-readable.
var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
}

// CleanHTML strips markup from s and returns best-effort plain text with all
// whitespace runs collapsed to single spaces. Malformed markup never fails:
// the tokenizer is streaming and yields whatever text it can recover.
// Plain text without any tags passes through (modulo whitespace collapsing).
func CleanHTML(s string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(s))

	var (
		b    strings.Builder
		skip string
	)

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			// io.EOF on well-formed input; anything else means the input is
			// hopeless past this point, and what was collected still stands.
			break
		}

		switch tt {
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if _, ok := skippedElements[string(name)]; ok && skip == "" {
				skip = string(name)
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skip == string(name) {
				skip = ""
			}
		case html.TextToken:
			if skip != "" {
				continue
			}

			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Document renders stored posting content as the canonical plain-text
// document. Today this is CleanHTML; it exists as its own name so call sites
// say what they mean and the rendering can grow without touching them.
func Document(content string) string {
	return CleanHTML(content)
}
