package memory

import (
	"context"
	"sync"

	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/shared"
)

// ContentRepository implements content.Repository over a Catalog.
type ContentRepository struct {
	mu      sync.RWMutex
	catalog *content.Catalog
}

// NewContentRepository creates a repository, optionally seeded with a catalog.
func NewContentRepository(seed *content.Catalog) *ContentRepository {
	if seed == nil {
		seed = content.NewCatalog()
	}
	return &ContentRepository{catalog: seed}
}

// LoadCatalog returns a catalog holding only the requested languages and books.
func (r *ContentRepository) LoadCatalog(_ context.Context, languages []content.LanguageID, books []string) (*content.Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := content.NewCatalog()
	for _, id := range languages {
		lang, ok := r.catalog.Language(id)
		if !ok {
			continue
		}
		out.AddLanguage(lang)
		for _, book := range books {
			if p, ok := r.catalog.Pack(id, book); ok {
				out.AddPack(p)
			}
		}
	}
	return out, nil
}

// ListLanguages returns all known languages.
func (r *ContentRepository) ListLanguages(_ context.Context) ([]content.Language, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog.Languages(), nil
}

// ListBooks returns the books of a language.
func (r *ContentRepository) ListBooks(_ context.Context, language content.LanguageID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog.Books(language), nil
}

// SaveLanguage creates or renames a language.
func (r *ContentRepository) SaveLanguage(_ context.Context, lang content.Language) error {
	if !lang.ID.IsValid() {
		return shared.ErrInvalidLanguage
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog.AddLanguage(lang)
	return nil
}

// SavePack replaces the pack of (language, book).
func (r *ContentRepository) SavePack(_ context.Context, pack *content.Pack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.catalog.Language(pack.Language); !ok {
		return shared.ErrLanguageNotFound
	}
	r.catalog.AddPack(pack)
	return nil
}
