package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ContentRepository implements content.Repository for PostgreSQL.
type ContentRepository struct {
	conn *Connection
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(conn *Connection) *ContentRepository {
	return &ContentRepository{conn: conn}
}

// LoadCatalog reads the requested packs with their sentences in one query.
func (r *ContentRepository) LoadCatalog(ctx context.Context, languages []content.LanguageID, books []string) (*content.Catalog, error) {
	codes := make([]string, len(languages))
	for i, l := range languages {
		codes[i] = string(l)
	}

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT l.id, l.name, p.id, p.book,
		       s.idx, s.text, s.translation, s.ipa, s.romanization, s.audio_path
		FROM languages l
		JOIN packs p ON p.language_id = l.id
		LEFT JOIN sentences s ON s.pack_id = p.id
		WHERE l.id = ANY($1) AND p.book = ANY($2)
		ORDER BY p.id, s.idx`, codes, books)
	if err != nil {
		return nil, fmt.Errorf("postgres: load catalog: %w", err)
	}
	defer rows.Close()

	type packRows struct {
		id        string
		language  content.LanguageID
		book      string
		sentences []content.Sentence
	}

	catalog := content.NewCatalog()
	var order []string
	packs := make(map[string]*packRows)

	for rows.Next() {
		var (
			langID, langName, packID, book string
			idx                            *int
			text, translation, ipa         *string
			romanization, audioPath        *string
		)
		if err := rows.Scan(&langID, &langName, &packID, &book,
			&idx, &text, &translation, &ipa, &romanization, &audioPath); err != nil {
			return nil, fmt.Errorf("postgres: scan sentence: %w", err)
		}

		catalog.AddLanguage(content.Language{ID: content.LanguageID(langID), Name: langName})

		p, ok := packs[packID]
		if !ok {
			p = &packRows{id: packID, language: content.LanguageID(langID), book: book}
			packs[packID] = p
			order = append(order, packID)
		}
		if idx == nil {
			continue
		}
		p.sentences = append(p.sentences, content.Sentence{
			Index:        *idx,
			Text:         deref(text),
			Translation:  deref(translation),
			IPA:          deref(ipa),
			Romanization: deref(romanization),
			AudioPath:    deref(audioPath),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load catalog: %w", err)
	}

	for _, id := range order {
		p := packs[id]
		pack, err := content.NewPack(p.id, p.language, p.book, p.sentences)
		if err != nil {
			return nil, err
		}
		catalog.AddPack(pack)
	}
	return catalog, nil
}

// ListLanguages returns all known languages.
func (r *ContentRepository) ListLanguages(ctx context.Context) ([]content.Language, error) {
	rows, err := r.conn.Pool().Query(ctx, `SELECT id, name FROM languages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list languages: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (content.Language, error) {
		var id, name string
		err := row.Scan(&id, &name)
		return content.Language{ID: content.LanguageID(id), Name: name}, err
	})
}

// ListBooks returns the books stored for a language.
func (r *ContentRepository) ListBooks(ctx context.Context, language content.LanguageID) ([]string, error) {
	rows, err := r.conn.Pool().Query(ctx, `SELECT book FROM packs WHERE language_id = $1 ORDER BY book`, string(language))
	if err != nil {
		return nil, fmt.Errorf("postgres: list books: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// SaveLanguage creates or renames a language.
func (r *ContentRepository) SaveLanguage(ctx context.Context, lang content.Language) error {
	if !lang.ID.IsValid() {
		return shared.ErrInvalidLanguage
	}
	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO languages (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		string(lang.ID), lang.Name)
	if err != nil {
		return fmt.Errorf("postgres: save language: %w", err)
	}
	return nil
}

// SavePack replaces the pack of (language, book) and all its sentences atomically.
func (r *ContentRepository) SavePack(ctx context.Context, pack *content.Pack) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var packID string
		err := tx.QueryRow(ctx, `
			INSERT INTO packs (id, language_id, book) VALUES ($1, $2, $3)
			ON CONFLICT (language_id, book) DO UPDATE SET updated_at = NOW()
			RETURNING id`,
			pack.ID, string(pack.Language), pack.Book).Scan(&packID)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return shared.ErrLanguageNotFound
			}
			return fmt.Errorf("postgres: save pack: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM sentences WHERE pack_id = $1`, packID); err != nil {
			return fmt.Errorf("postgres: clear sentences: %w", err)
		}

		sentences := pack.Sentences()
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"sentences"},
			[]string{"pack_id", "idx", "text", "translation", "ipa", "romanization", "audio_path"},
			pgx.CopyFromSlice(len(sentences), func(i int) ([]any, error) {
				s := sentences[i]
				return []any{packID, s.Index, s.Text, s.Translation, s.IPA, s.Romanization, s.AudioPath}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("postgres: copy sentences: %w", err)
		}
		return nil
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
