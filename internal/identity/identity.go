// Package identity derives stable card and deck identities. Anchored cards
// keep their id across edits; unanchored cards get a content hash that
// changes whenever the content does. That trade-off is deliberate: the anchor
// is the explicit opt-in to edit-stability, and the resolver never invents
// one on the user's behalf.
package identity

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/conorfennell/vaultsrs/internal/domain"
	"github.com/conorfennell/vaultsrs/internal/extract"
)

// DeckID derives the deck identity from a document path. The slash-normalized
// path is the identity, so a rename necessarily produces a new deck.
func DeckID(path string) string {
	return filepath.ToSlash(strings.TrimSpace(path))
}

// Resolve returns the card id for a candidate within the given deck.
// Anchored ids are namespaced by deck so the same anchor string in two
// documents cannot collide; cloze anchors carry the cloze number suffix so
// each deletion keeps its own identity.
func Resolve(c extract.Candidate, deckID, sourcePath string) string {
	anchor := strings.TrimSpace(c.Anchor)
	if anchor != "" {
		id := deckID + "::" + anchor
		if c.Kind == domain.KindCloze {
			id += "-" + strconv.Itoa(c.ClozeNum)
		}
		return id
	}

	if c.Kind == domain.KindCloze {
		return hashHex(sourcePath + "::" + c.RawSpan + "::" + strconv.Itoa(c.ClozeNum))
	}
	return hashHex(sourcePath + "::" + c.Front)
}

// Materialize turns a candidate into a Card owned by the given deck.
func Materialize(c extract.Candidate, deckID, sourcePath string) domain.Card {
	return domain.Card{
		ID:         Resolve(c, deckID, sourcePath),
		DeckID:     deckID,
		SourcePath: sourcePath,
		Kind:       c.Kind,
		Front:      c.Front,
		Back:       c.Back,
		RawSpan:    c.RawSpan,
	}
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)
}
