package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/natibo/natibo/internal/domain/content"
)

// LanguageView is a language with the books available in it.
type LanguageView struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Books []string `json:"books"`
}

// ListLanguagesHandler lists the stored content.
type ListLanguagesHandler struct {
	content content.Repository
}

// NewListLanguagesHandler creates a ListLanguagesHandler.
func NewListLanguagesHandler(repo content.Repository) *ListLanguagesHandler {
	return &ListLanguagesHandler{content: repo}
}

// Handle returns every language with its books, fetching books concurrently.
func (h *ListLanguagesHandler) Handle(ctx context.Context) ([]LanguageView, error) {
	languages, err := h.content.ListLanguages(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]LanguageView, len(languages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, lang := range languages {
		g.Go(func() error {
			books, err := h.content.ListBooks(gctx, lang.ID)
			if err != nil {
				return err
			}
			if books == nil {
				books = []string{}
			}
			out[i] = LanguageView{ID: string(lang.ID), Name: lang.DisplayName(), Books: books}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
