// Package extract scans document text for the two card syntaxes: delimited
// front/back blocks and inline cloze-deletion markers. It emits raw
// candidates; identity resolution happens later.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/conorfennell/vaultsrs/internal/domain"
)

// Placeholder replaces the hidden span on a cloze card's front.
const Placeholder = "[...]"

var (
	// Block-start marker for basic cards, matched case-insensitively.
	blockMarkerRe = regexp.MustCompile(`(?i)---card---`)

	// Anchor token at the end of a line: caret + alphanumeric/hyphen id.
	anchorRe = regexp.MustCompile(`(?m)\^([A-Za-z0-9-]+)[ \t]*$`)

	// Cloze marker: ==cN::text==
	clozeRe = regexp.MustCompile(`==c(\d+)::(.*?)==`)

	// Blank-line paragraph boundary.
	paragraphRe = regexp.MustCompile(`\n[ \t]*\n`)
)

// Candidate is a card parsed from text, before identity resolution.
type Candidate struct {
	Kind     domain.CardKind
	Front    string
	Back     string
	RawSpan  string
	Anchor   string // empty when absent
	ClozeNum int    // zero for basic cards
}

// Extract parses documentText and returns all well-formed candidates plus a
// count of malformed ones that were skipped. Basic candidates come first, in
// document order, then cloze candidates in document order. Extraction is
// pure and idempotent: the same text always yields identical candidates.
func Extract(documentText string) ([]Candidate, int) {
	text := strings.ReplaceAll(documentText, "\r\n", "\n")

	cards, malformed := extractBasic(text)
	cloze := extractCloze(text)
	return append(cards, cloze...), malformed
}

// extractBasic splits the text on the block-start marker and parses each
// chunk as front/separator/back. Chunks without a separator line, or with an
// empty front or back, are counted as malformed and skipped.
func extractBasic(text string) ([]Candidate, int) {
	chunks := blockMarkerRe.Split(text, -1)
	if len(chunks) < 2 {
		return nil, 0
	}

	var out []Candidate
	var malformed int
	for _, chunk := range chunks[1:] { // text before the first marker is not a card
		lines := strings.Split(chunk, "\n")
		sep := -1
		for i, line := range lines {
			if strings.TrimRight(line, " \t") == "---" {
				sep = i
				break
			}
		}
		if sep < 0 {
			malformed++
			continue
		}

		front := strings.TrimSpace(strings.Join(lines[:sep], "\n"))
		// Everything after the first separator belongs to the back; any
		// further --- lines are kept as content.
		back := strings.TrimSpace(strings.Join(lines[sep+1:], "\n"))

		front, anchor := stripAnchor(front)
		if front == "" || back == "" {
			malformed++
			continue
		}

		out = append(out, Candidate{
			Kind:    domain.KindBasic,
			Front:   front,
			Back:    back,
			RawSpan: chunk,
			Anchor:  anchor,
		})
	}
	return out, malformed
}

// extractCloze splits the text into blank-line-delimited paragraphs and emits
// one candidate per distinct cloze number in each paragraph. An anchor at the
// end of a paragraph is shared by all of its cloze candidates.
func extractCloze(text string) []Candidate {
	var out []Candidate
	for _, para := range paragraphRe.Split(text, -1) {
		raw := para
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		body, anchor := stripTrailingAnchor(para)

		matches := clozeRe.FindAllStringSubmatch(body, -1)
		if len(matches) == 0 {
			continue
		}

		var nums []int
		seen := make(map[int]bool)
		for _, m := range matches {
			n, err := strconv.Atoi(m[1])
			if err != nil || seen[n] {
				continue
			}
			seen[n] = true
			nums = append(nums, n)
		}

		back := renderCloze(body, -1) // full reveal
		for _, n := range nums {
			out = append(out, Candidate{
				Kind:     domain.KindCloze,
				Front:    renderCloze(body, n),
				Back:     back,
				RawSpan:  raw,
				Anchor:   anchor,
				ClozeNum: n,
			})
		}
	}
	return out
}

// renderCloze replaces every ==cN::text== marker: occurrences of hide become
// the placeholder, all others reveal their text. A negative hide reveals
// everything; it cannot collide with a marker number, which c0 can.
func renderCloze(paragraph string, hide int) string {
	return clozeRe.ReplaceAllStringFunc(paragraph, func(m string) string {
		sub := clozeRe.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[1])
		if err == nil && n == hide {
			return Placeholder
		}
		return sub[2]
	})
}

// stripAnchor removes the last end-of-line anchor token found in s and
// returns the cleaned text and the anchor id, if any. Taking the last match
// keeps interior block references intact when a genuine trailing anchor
// follows them; the marker-line form still works because that anchor is the
// only match.
func stripAnchor(s string) (string, string) {
	locs := anchorRe.FindAllStringSubmatchIndex(s, -1)
	if locs == nil {
		return s, ""
	}
	loc := locs[len(locs)-1]
	anchor := s[loc[2]:loc[3]]
	cleaned := strings.TrimSpace(s[:loc[0]] + s[loc[1]:])
	return cleaned, anchor
}

// stripTrailingAnchor removes an anchor token only if it terminates s.
func stripTrailingAnchor(s string) (string, string) {
	loc := anchorRe.FindStringSubmatchIndex(s)
	if loc == nil || loc[1] != len(s) {
		return s, ""
	}
	anchor := s[loc[2]:loc[3]]
	return strings.TrimSpace(s[:loc[0]]), anchor
}
