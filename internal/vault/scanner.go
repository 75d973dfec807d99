package vault

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/vaultsrs/internal/domain"
)

// Scanner walks a vault directory and parses every markdown file.
type Scanner struct {
	root    string
	deckTag string
	logger  *slog.Logger
}

func NewScanner(root, deckTag string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{root: root, deckTag: deckTag, logger: logger}
}

// Scan returns all documents under the vault root. Hidden directories such
// as .obsidian and .git are skipped. A file that fails to read or parse is
// logged and skipped rather than failing the whole scan.
func (s *Scanner) Scan(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		doc, ok := s.load(path)
		if ok {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning vault %s: %w", s.root, err)
	}

	s.logger.Debug("scanned vault", "root", s.root, "documents", len(docs))
	return docs, nil
}

// Load parses a single file by absolute or vault-relative path, for
// incremental reindexing after a file change.
func (s *Scanner) Load(path string) (domain.Document, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	doc, ok := s.load(path)
	if !ok {
		return domain.Document{}, fmt.Errorf("loading document %s", path)
	}
	return doc, nil
}

func (s *Scanner) load(path string) (domain.Document, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("skipping unreadable file", "path", path, "error", err)
		return domain.Document{}, false
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	doc, err := ParseDocument(filepath.ToSlash(rel), content, s.deckTag)
	if err != nil {
		s.logger.Warn("skipping unparseable file", "path", path, "error", err)
		return domain.Document{}, false
	}
	return doc, true
}
