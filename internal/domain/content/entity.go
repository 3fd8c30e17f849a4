// Package content contains the read-only sentence content consumed by the scheduler:
// languages, packs and sentences. Content is produced by the importer and loaded into
// memory before any scheduling happens, so nothing here performs I/O.
package content

import (
	"fmt"
	"sort"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// LanguageID is a short language code such as "EN", "ES" or "ZS".
type LanguageID string

// IsValid reports whether the code has at least two characters and no spaces.
func (l LanguageID) IsValid() bool {
	s := string(l)
	return len(s) >= 2 && len(s) <= 8 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the code.
func (l LanguageID) String() string {
	return string(l)
}

// Language identifies a language and its human-readable name.
type Language struct {
	ID   LanguageID
	Name string
}

// DisplayName returns Name, falling back to the code.
func (l Language) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return string(l.ID)
}

// Sentence is a single 1-indexed sentence in a pack.
type Sentence struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Translation  string `json:"translation,omitempty"`
	IPA          string `json:"ipa,omitempty"`
	Romanization string `json:"romanization,omitempty"`
	AudioPath    string `json:"audio_path,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// PACK
// ══════════════════════════════════════════════════════════════════════════════

// Pack is an ordered collection of sentences of one language for one book.
// Packs of different languages sharing a book name are content-aligned.
type Pack struct {
	ID        string
	Language  LanguageID
	Book      string
	sentences []Sentence
}

// NewPack creates a pack. Sentences are sorted by index; indices must be positive and unique.
func NewPack(id string, language LanguageID, book string, sentences []Sentence) (*Pack, error) {
	if !language.IsValid() {
		return nil, fmt.Errorf("content: invalid language %q", language)
	}
	if strings.TrimSpace(book) == "" {
		return nil, fmt.Errorf("content: pack book is required")
	}

	sorted := make([]Sentence, len(sentences))
	copy(sorted, sentences)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	for i, s := range sorted {
		if s.Index <= 0 {
			return nil, fmt.Errorf("content: pack %s/%s: sentence index %d must be positive", language, book, s.Index)
		}
		if i > 0 && sorted[i-1].Index == s.Index {
			return nil, fmt.Errorf("content: pack %s/%s: duplicate sentence index %d", language, book, s.Index)
		}
	}

	return &Pack{
		ID:        id,
		Language:  language,
		Book:      book,
		sentences: sorted,
	}, nil
}

// SentenceCount returns the number of sentences in the pack.
func (p *Pack) SentenceCount() int {
	return len(p.sentences)
}

// SentenceAt returns the sentence at a zero-based position within the pack.
func (p *Pack) SentenceAt(offset int) (Sentence, bool) {
	if offset < 0 || offset >= len(p.sentences) {
		return Sentence{}, false
	}
	return p.sentences[offset], true
}

// Sentences returns a copy of the pack's sentences in index order.
func (p *Pack) Sentences() []Sentence {
	out := make([]Sentence, len(p.sentences))
	copy(out, p.sentences)
	return out
}
