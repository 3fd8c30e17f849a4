package content

import (
	"context"
	"sort"
)

// Store is the read-only sentence source the scheduler pages through.
// Implementations must return sentences in stable index order and never
// mutate a sentence once returned.
type Store interface {
	// Pack returns the pack of a language for the given book.
	Pack(language LanguageID, book string) (*Pack, bool)
}

// Repository loads content from durable storage into an in-memory Catalog.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// LoadCatalog loads every pack of the given languages whose book is listed.
	LoadCatalog(ctx context.Context, languages []LanguageID, books []string) (*Catalog, error)

	// ListLanguages returns all known languages.
	ListLanguages(ctx context.Context) ([]Language, error)

	// ListBooks returns the books available for a language, sorted.
	ListBooks(ctx context.Context, language LanguageID) ([]string, error)

	// SaveLanguage creates or renames a language.
	SaveLanguage(ctx context.Context, lang Language) error

	// SavePack creates or replaces a pack and its sentences. The language must exist.
	SavePack(ctx context.Context, pack *Pack) error
}

// Catalog is an in-memory Store keyed by language and book.
type Catalog struct {
	languages map[LanguageID]Language
	packs     map[LanguageID]map[string]*Pack
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		languages: make(map[LanguageID]Language),
		packs:     make(map[LanguageID]map[string]*Pack),
	}
}

// AddLanguage registers a language. Re-adding replaces the name only.
func (c *Catalog) AddLanguage(lang Language) {
	c.languages[lang.ID] = lang
	if _, ok := c.packs[lang.ID]; !ok {
		c.packs[lang.ID] = make(map[string]*Pack)
	}
}

// AddPack registers a pack under its language, creating the language if needed.
func (c *Catalog) AddPack(p *Pack) {
	if _, ok := c.languages[p.Language]; !ok {
		c.AddLanguage(Language{ID: p.Language})
	}
	c.packs[p.Language][p.Book] = p
}

// Pack implements Store.
func (c *Catalog) Pack(language LanguageID, book string) (*Pack, bool) {
	byBook, ok := c.packs[language]
	if !ok {
		return nil, false
	}
	p, ok := byBook[book]
	return p, ok
}

// Language returns a registered language.
func (c *Catalog) Language(id LanguageID) (Language, bool) {
	l, ok := c.languages[id]
	return l, ok
}

// Languages returns all registered languages sorted by code.
func (c *Catalog) Languages() []Language {
	out := make([]Language, 0, len(c.languages))
	for _, l := range c.languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Books returns the books available for a language, sorted by name.
func (c *Catalog) Books(language LanguageID) []string {
	byBook := c.packs[language]
	out := make([]string, 0, len(byBook))
	for book := range byBook {
		out = append(out, book)
	}
	sort.Strings(out)
	return out
}

// Misaligned returns the books whose pack lengths differ between the given languages.
// The importer is expected to keep these aligned; the scheduler tolerates violations.
func (c *Catalog) Misaligned(languages []LanguageID, books []string) []string {
	var out []string
	for _, book := range books {
		count := -1
		for _, lang := range languages {
			p, ok := c.Pack(lang, book)
			n := 0
			if ok {
				n = p.SentenceCount()
			}
			if count >= 0 && n != count {
				out = append(out, book)
				break
			}
			count = n
		}
	}
	return out
}
