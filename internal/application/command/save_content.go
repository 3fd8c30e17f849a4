package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SAVE PACK
// Stores the output of the external importer.
// ══════════════════════════════════════════════════════════════════════════════

// SavePackCommand stores the sentences of one language for one book. The language
// is created when it does not exist yet.
type SavePackCommand struct {
	Language     string
	LanguageName string
	Book         string
	Sentences    []content.Sentence
}

// Validate checks the command shape.
func (c SavePackCommand) Validate() error {
	if !content.LanguageID(c.Language).IsValid() {
		return shared.ErrInvalidLanguage
	}
	if strings.TrimSpace(c.Book) == "" {
		return shared.NewDomainError("content", "SavePack", shared.ErrEmptyValue, "book is required")
	}
	if len(c.Sentences) == 0 {
		return shared.NewDomainError("content", "SavePack", shared.ErrEmptyValue, "pack has no sentences")
	}
	return nil
}

// SavePackHandler stores packs.
type SavePackHandler struct {
	content content.Repository
	logger  *logger.Logger
}

// NewSavePackHandler creates a SavePackHandler.
func NewSavePackHandler(repo content.Repository, log *logger.Logger) *SavePackHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SavePackHandler{content: repo, logger: log}
}

// Handle validates and stores the pack, replacing any previous version.
func (h *SavePackHandler) Handle(ctx context.Context, cmd SavePackCommand) (*content.Pack, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	lang := content.LanguageID(cmd.Language)
	pack, err := content.NewPack(fmt.Sprintf("%s:%s", lang, cmd.Book), lang, cmd.Book, cmd.Sentences)
	if err != nil {
		return nil, shared.WrapError("content", "SavePack", shared.ErrInvalidInput, "invalid pack", err)
	}

	if err := h.ensureLanguage(ctx, lang, cmd.LanguageName); err != nil {
		return nil, err
	}
	if err := h.content.SavePack(ctx, pack); err != nil {
		return nil, err
	}

	h.logger.Info("pack saved",
		logger.Language(string(lang)),
		logger.Book(cmd.Book),
		logger.Int("sentences", pack.SentenceCount()),
	)
	return pack, nil
}

func (h *SavePackHandler) ensureLanguage(ctx context.Context, lang content.LanguageID, name string) error {
	known, err := h.content.ListLanguages(ctx)
	if err != nil {
		return err
	}
	for _, l := range known {
		if l.ID == lang && (name == "" || l.Name == name) {
			return nil
		}
	}
	return h.content.SaveLanguage(ctx, content.Language{ID: lang, Name: name})
}
