package postgres

// Migrations returns all embedded migrations in version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_content", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_courses", UpSQL: migration002Up, DownSQL: migration002Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CONTENT
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS languages (
    id VARCHAR(8) PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS packs (
    id TEXT PRIMARY KEY,
    language_id VARCHAR(8) NOT NULL REFERENCES languages(id) ON DELETE CASCADE,
    book TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_packs_language_book UNIQUE (language_id, book)
);

CREATE TABLE IF NOT EXISTS sentences (
    pack_id TEXT NOT NULL REFERENCES packs(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    text TEXT NOT NULL DEFAULT '',
    translation TEXT NOT NULL DEFAULT '',
    ipa TEXT NOT NULL DEFAULT '',
    romanization TEXT NOT NULL DEFAULT '',
    audio_path TEXT NOT NULL DEFAULT '',

    PRIMARY KEY (pack_id, idx),
    CONSTRAINT valid_sentence_index CHECK (idx > 0)
);
`

const migration001Down = `
DROP TABLE IF EXISTS sentences;
DROP TABLE IF EXISTS packs;
DROP TABLE IF EXISTS languages;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: COURSES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    languages TEXT[] NOT NULL,
    books TEXT[] NOT NULL,
    state JSONB NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    day_completed BOOLEAN NOT NULL DEFAULT FALSE,
    advanceable BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_version CHECK (version > 0)
);

CREATE INDEX IF NOT EXISTS idx_courses_created_at ON courses(created_at);
CREATE INDEX IF NOT EXISTS idx_courses_advanceable ON courses(updated_at) WHERE advanceable;
`

const migration002Down = `
DROP TABLE IF EXISTS courses;
`
