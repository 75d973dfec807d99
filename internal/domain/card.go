package domain

// CardKind distinguishes the two supported card syntaxes.
type CardKind string

const (
	KindBasic CardKind = "basic"
	KindCloze CardKind = "cloze"
)

// Card is a single reviewable unit extracted from a document. Cards are
// ephemeral views: they are rebuilt on every indexing pass and never persisted
// themselves. Only the ID survives re-extraction, which is what ties a card
// back to its MemoryState and review history.
type Card struct {
	ID         string
	DeckID     string
	SourcePath string
	Kind       CardKind
	Front      string
	Back       string
	RawSpan    string
}

// DeckStats are point-in-time counts over a deck's member cards, recomputed
// on demand by joining the index against the state store.
type DeckStats struct {
	New      int
	Due      int
	Learning int
}

// Deck is a deck-tagged document acting as a card container.
type Deck struct {
	ID         string
	Title      string
	SourcePath string
	Tags       []string
	CardIDs    []string
	Stats      DeckStats
}

// Document is the host-provided view of one file in the corpus. The core does
// not read files or parse frontmatter itself; Title, Tags and DeckTagged are
// pre-extracted by the vault collaborator.
type Document struct {
	Path       string
	Title      string
	Text       string
	Tags       []string
	DeckTagged bool
}

// HasTag reports whether the document carries the given tag.
func (d Document) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
