package sqlstore

// Times are stored as unix nanoseconds so both dialects round-trip them
// exactly. Invite tokens are unique among live sessions only.
const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    visibility TEXT NOT NULL,
    participants JSONB NOT NULL DEFAULT '[]',
    waitlist JSONB NOT NULL DEFAULT '[]',
    drawn JSONB NOT NULL DEFAULT '[]',
    start_at BIGINT,
    invite_token TEXT,
    result JSONB,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_live_token
    ON sessions(invite_token) WHERE status <> 'finished' AND invite_token IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    user_id BIGINT NOT NULL,
    numbers JSONB NOT NULL,
    row_map JSONB NOT NULL,
    marked JSONB NOT NULL DEFAULT '[]',
    last_marked_at BIGINT,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_session_id ON cards(session_id);
CREATE INDEX IF NOT EXISTS idx_cards_user_id ON cards(user_id);

CREATE TABLE IF NOT EXISTS promos (
    id TEXT PRIMARY KEY,
    media_ref TEXT NOT NULL,
    caption TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    visibility TEXT NOT NULL,
    participants BLOB NOT NULL,
    waitlist BLOB NOT NULL,
    drawn BLOB NOT NULL,
    start_at INTEGER,
    invite_token TEXT,
    result BLOB,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_live_token
    ON sessions(invite_token) WHERE status <> 'finished' AND invite_token IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    numbers BLOB NOT NULL,
    row_map BLOB NOT NULL,
    marked BLOB NOT NULL,
    last_marked_at INTEGER,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_session_id ON cards(session_id);
CREATE INDEX IF NOT EXISTS idx_cards_user_id ON cards(user_id);

CREATE TABLE IF NOT EXISTS promos (
    id TEXT PRIMARY KEY,
    media_ref TEXT NOT NULL,
    caption TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
`
