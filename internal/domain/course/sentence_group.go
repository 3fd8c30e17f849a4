package course

import (
	"github.com/natibo/natibo/internal/domain/content"
)

// GroupEntry points at one sentence of one language and carries its content once built.
type GroupEntry struct {
	Language content.LanguageID `json:"language"`
	Book     string             `json:"book"`
	Offset   int                `json:"offset"`
	Sentence *content.Sentence  `json:"sentence,omitempty"`
}

// SentenceGroup aligns one position of the course across its languages.
// Entries follow the course language order. A group built from misaligned packs
// may lack entries for some languages; see Complete.
type SentenceGroup struct {
	Position int          `json:"position"`
	Entries  []GroupEntry `json:"entries"`
}

// Languages returns the languages present in the group.
func (g SentenceGroup) Languages() []content.LanguageID {
	out := make([]content.LanguageID, 0, len(g.Entries))
	for _, e := range g.Entries {
		out = append(out, e.Language)
	}
	return out
}

// Sentence returns the built sentence for the given language.
func (g SentenceGroup) Sentence(language content.LanguageID) (content.Sentence, bool) {
	for _, e := range g.Entries {
		if e.Language == language && e.Sentence != nil {
			return *e.Sentence, true
		}
	}
	return content.Sentence{}, false
}

// Complete reports whether every one of numLanguages languages has built content.
func (g SentenceGroup) Complete(numLanguages int) bool {
	built := 0
	for _, e := range g.Entries {
		if e.Sentence != nil {
			built++
		}
	}
	return built == numLanguages
}

// resolve fills entries from the store. Entries whose content is gone are dropped;
// the group is usable if at least one entry resolved.
func (g SentenceGroup) resolve(store content.Store) (SentenceGroup, bool) {
	out := SentenceGroup{Position: g.Position, Entries: make([]GroupEntry, 0, len(g.Entries))}
	for _, e := range g.Entries {
		pack, ok := store.Pack(e.Language, e.Book)
		if !ok {
			continue
		}
		s, ok := pack.SentenceAt(e.Offset)
		if !ok {
			continue
		}
		e.Sentence = &s
		out.Entries = append(out.Entries, e)
	}
	return out, len(out.Entries) > 0
}

func (g SentenceGroup) clone() SentenceGroup {
	out := SentenceGroup{Position: g.Position, Entries: make([]GroupEntry, len(g.Entries))}
	for i, e := range g.Entries {
		if e.Sentence != nil {
			s := *e.Sentence
			e.Sentence = &s
		}
		out.Entries[i] = e
	}
	return out
}
