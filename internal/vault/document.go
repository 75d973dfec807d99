// Package vault reads markdown documents from disk and turns them into the
// domain representation: frontmatter metadata, tags, a display title, and
// the raw text the extractor works on.
package vault

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/conorfennell/vaultsrs/internal/domain"
)

// inline tags look like #flashcards or #topic/sub, anywhere in the body.
var inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][\w/-]*)`)

// frontmatter is the subset of document metadata the indexer cares about.
type frontmatter struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// ParseDocument builds a Document from raw file content. relPath is the
// vault-relative path and becomes the deck identity. deckTag marks a
// document as a deck; it may come from frontmatter or an inline tag.
func ParseDocument(relPath string, content []byte, deckTag string) (domain.Document, error) {
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return domain.Document{}, fmt.Errorf("parsing %s: %w", relPath, err)
	}

	tags := append([]string(nil), fm.Tags...)
	for _, m := range inlineTagRe.FindAllStringSubmatch(string(body), -1) {
		tags = appendUnique(tags, m[1])
	}

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	}

	doc := domain.Document{
		Path:  relPath,
		Title: title,
		Text:  string(body),
		Tags:  tags,
	}
	doc.DeckTagged = doc.HasTag(deckTag)
	return doc, nil
}

// splitFrontmatter strips a leading YAML block delimited by --- lines.
// Documents without one pass through untouched.
func splitFrontmatter(content []byte) (frontmatter, []byte, error) {
	var fm frontmatter
	s := string(content)
	if !strings.HasPrefix(s, "---\n") && !strings.HasPrefix(s, "---\r\n") {
		return fm, content, nil
	}
	rest := s[strings.Index(s, "\n")+1:]
	end := regexp.MustCompile(`(?m)^---[ \t]*\r?$`).FindStringIndex(rest)
	if end == nil {
		return fm, content, nil
	}
	if err := yaml.Unmarshal([]byte(rest[:end[0]]), &fm); err != nil {
		return fm, nil, fmt.Errorf("frontmatter: %w", err)
	}
	body := rest[end[1]:]
	body = strings.TrimPrefix(strings.TrimPrefix(body, "\r\n"), "\n")
	return fm, []byte(body), nil
}

var markdown = goldmark.New()

// firstHeading returns the text of the first ATX heading, or "".
func firstHeading(body []byte) string {
	root := markdown.Parser().Parse(text.NewReader(body))
	var title string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			var sb strings.Builder
			for c := h.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					sb.Write(t.Segment.Value(body))
				}
			}
			title = strings.TrimSpace(sb.String())
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func appendUnique(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}
