// Package sqlstore implements store.Store on top of Postgres or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/sqlutil"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var _ store.Store = (*Store)(nil)

// Store is a store.Store backed by database/sql through sqlx.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database and runs migrations. For SQLite the dsn is a
// file path whose parent directory is created if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; avoids SQLITE_BUSY under concurrent marks.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: driver}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("driver", driver).Msg("connected to database")
	return s, nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := schemaPostgres
	if s.driver == DriverSQLite {
		schema = schemaSQLite
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// forUpdate returns the row-lock suffix for the dialect.
func (s *Store) forUpdate() string {
	if s.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// Users

type userRow struct {
	ID          int64  `db:"id"`
	DisplayName string `db:"display_name"`
	CreatedAt   int64  `db:"created_at"`
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, display_name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = CASE
			WHEN excluded.display_name = '' THEN users.display_name
			ELSE excluded.display_name END`),
		user.ID, user.DisplayName, sqlutil.ToUnixNano(user.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT id, display_name, created_at FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &models.User{
		ID:          row.ID,
		DisplayName: row.DisplayName,
		CreatedAt:   sqlutil.FromUnixNano(row.CreatedAt),
	}, nil
}

// Cards

const cardColumns = `id, session_id, user_id, numbers, row_map, marked, last_marked_at, created_at`

type cardRow struct {
	ID           string        `db:"id"`
	SessionID    string        `db:"session_id"`
	UserID       int64         `db:"user_id"`
	Numbers      []byte        `db:"numbers"`
	RowMap       []byte        `db:"row_map"`
	Marked       []byte        `db:"marked"`
	LastMarkedAt sql.NullInt64 `db:"last_marked_at"`
	CreatedAt    int64         `db:"created_at"`
}

func (r cardRow) toModel() (*models.Card, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid card id: %w", err)
	}
	sessionID, err := uuid.Parse(r.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	c := &models.Card{
		ID:           id,
		SessionID:    sessionID,
		UserID:       r.UserID,
		LastMarkedAt: sqlutil.FromNullUnixNano(r.LastMarkedAt),
		CreatedAt:    sqlutil.FromUnixNano(r.CreatedAt),
	}
	if err := json.Unmarshal(r.Numbers, &c.Numbers); err != nil {
		return nil, fmt.Errorf("failed to decode card numbers: %w", err)
	}
	if err := json.Unmarshal(r.RowMap, &c.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode card rows: %w", err)
	}
	if err := json.Unmarshal(r.Marked, &c.Marked); err != nil {
		return nil, fmt.Errorf("failed to decode card marks: %w", err)
	}
	if c.Marked == nil {
		c.Marked = []int{}
	}
	return c, nil
}

func (s *Store) CreateCard(ctx context.Context, card *models.Card) error {
	numbers, err := json.Marshal(card.Numbers)
	if err != nil {
		return fmt.Errorf("failed to encode card numbers: %w", err)
	}
	rowMap, err := json.Marshal(card.Rows)
	if err != nil {
		return fmt.Errorf("failed to encode card rows: %w", err)
	}
	marked := card.Marked
	if marked == nil {
		marked = []int{}
	}
	markedJSON, err := json.Marshal(marked)
	if err != nil {
		return fmt.Errorf("failed to encode card marks: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		card.ID.String(), card.SessionID.String(), card.UserID,
		string(numbers), string(rowMap), string(markedJSON),
		sqlutil.ToNullUnixNano(card.LastMarkedAt), sqlutil.ToUnixNano(card.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (s *Store) GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var row cardRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+cardColumns+` FROM cards WHERE id = ?`), id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return row.toModel()
}

func (s *Store) GetCardsForUser(ctx context.Context, userID int64) ([]*models.Card, error) {
	return s.selectCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = ? ORDER BY created_at, id`, userID)
}

func (s *Store) ListCardsForSession(ctx context.Context, sessionID uuid.UUID) ([]*models.Card, error) {
	return s.selectCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE session_id = ? ORDER BY created_at, id`, sessionID.String())
}

func (s *Store) selectCards(ctx context.Context, query string, args ...any) ([]*models.Card, error) {
	var rows []cardRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	cards := make([]*models.Card, 0, len(rows))
	for _, r := range rows {
		c, err := r.toModel()
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func (s *Store) DeleteCardsForUser(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM cards WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("failed to delete cards for user: %w", err)
	}
	return nil
}

func (s *Store) DeleteCardsForSession(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM cards WHERE session_id = ?`), sessionID.String()); err != nil {
		return fmt.Errorf("failed to delete cards for session: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllCards(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cards`); err != nil {
		return fmt.Errorf("failed to delete cards: %w", err)
	}
	return nil
}

func (s *Store) MarkCardNumber(ctx context.Context, cardID uuid.UUID, n int, at time.Time) (bool, error) {
	var marked bool
	err := sqlutil.Run(ctx, s.db, func(tx *sqlx.Tx) error {
		var raw []byte
		err := tx.GetContext(ctx, &raw, s.q(`SELECT marked FROM cards WHERE id = ?`+s.forUpdate()), cardID.String())
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("card %s: %w", cardID, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read card marks: %w", err)
		}

		var current []int
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("failed to decode card marks: %w", err)
		}
		if slices.Contains(current, n) {
			return nil
		}
		current = append(current, n)
		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode card marks: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(`UPDATE cards SET marked = ?, last_marked_at = ? WHERE id = ?`),
			string(data), sqlutil.ToUnixNano(at), cardID.String()); err != nil {
			return fmt.Errorf("failed to update card marks: %w", err)
		}
		marked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

// Sessions

const sessionColumns = `id, status, visibility, participants, waitlist, drawn, start_at, invite_token, result, created_at, updated_at`

type sessionRow struct {
	ID           string                `db:"id"`
	Status       string                `db:"status"`
	Visibility   string                `db:"visibility"`
	Participants []byte                `db:"participants"`
	Waitlist     []byte                `db:"waitlist"`
	Drawn        []byte                `db:"drawn"`
	StartAt      sql.NullInt64         `db:"start_at"`
	InviteToken  sql.NullString        `db:"invite_token"`
	Result       pqtype.NullRawMessage `db:"result"`
	CreatedAt    int64                 `db:"created_at"`
	UpdatedAt    int64                 `db:"updated_at"`
}

func (r sessionRow) toModel() (*models.Session, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	sess := &models.Session{
		ID:          id,
		Status:      models.SessionStatus(r.Status),
		Visibility:  models.Visibility(r.Visibility),
		StartAt:     sqlutil.FromNullUnixNano(r.StartAt),
		InviteToken: r.InviteToken.String,
		CreatedAt:   sqlutil.FromUnixNano(r.CreatedAt),
		UpdatedAt:   sqlutil.FromUnixNano(r.UpdatedAt),
	}
	if err := json.Unmarshal(r.Participants, &sess.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	if err := json.Unmarshal(r.Waitlist, &sess.Waitlist); err != nil {
		return nil, fmt.Errorf("failed to decode waitlist: %w", err)
	}
	if err := json.Unmarshal(r.Drawn, &sess.Drawn); err != nil {
		return nil, fmt.Errorf("failed to decode draws: %w", err)
	}
	if r.Result.Valid {
		var res models.SessionResult
		if err := json.Unmarshal(r.Result.RawMessage, &res); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		sess.Result = &res
	}
	return sess, nil
}

// sessionArgs encodes the mutable columns of a session.
func sessionArgs(sess *models.Session) (participants, waitlist, drawn string, result pqtype.NullRawMessage, err error) {
	enc := func(v any) (string, error) {
		data, err := json.Marshal(v)
		return string(data), err
	}
	if participants, err = enc(nonNilInt64(sess.Participants)); err != nil {
		return
	}
	if waitlist, err = enc(nonNilInt64(sess.Waitlist)); err != nil {
		return
	}
	if drawn, err = enc(nonNilInt(sess.Drawn)); err != nil {
		return
	}
	if sess.Result != nil {
		result, err = sqlutil.ToNullRawMessage(sess.Result)
	}
	return
}

func nonNilInt64(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}

func nonNilInt(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	participants, waitlist, drawn, result, err := sessionArgs(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		sess.ID.String(), string(sess.Status), string(sess.Visibility),
		participants, waitlist, drawn,
		sqlutil.ToNullUnixNano(sess.StartAt), sqlutil.ToSqlString(sess.InviteToken), result,
		sqlutil.ToUnixNano(sess.CreatedAt), sqlutil.ToUnixNano(sess.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("invite token %q: %w", sess.InviteToken, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return s.getSession(ctx, `WHERE id = ? AND status <> 'finished'`, id.String())
}

func (s *Store) GetSessionByInviteToken(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("empty invite token: %w", store.ErrNotFound)
	}
	return s.getSession(ctx, `WHERE invite_token = ? AND status <> 'finished'`, token)
}

func (s *Store) GetLivePublicSession(ctx context.Context) (*models.Session, error) {
	return s.getSession(ctx, `WHERE visibility = 'public' AND status <> 'finished' ORDER BY created_at LIMIT 1`)
}

func (s *Store) getSession(ctx context.Context, where string, args ...any) (*models.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+sessionColumns+` FROM sessions `+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return row.toModel()
}

func (s *Store) ListLiveSessions(ctx context.Context) ([]*models.Session, error) {
	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+sessionColumns+` FROM sessions WHERE status <> 'finished' ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("failed to list live sessions: %w", err)
	}
	out := make([]*models.Session, 0, len(rows))
	for _, r := range rows {
		sess, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// GetLiveSessionByUser prefers a session the user plays in over one they
// are only waitlisted for. Membership lives in JSON columns, so the filter
// runs over the live set, which is small.
func (s *Store) GetLiveSessionByUser(ctx context.Context, userID int64) (*models.Session, error) {
	live, err := s.ListLiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	var waiting *models.Session
	for _, sess := range live {
		if sess.HasParticipant(userID) {
			return sess, nil
		}
		if waiting == nil && sess.HasWaiter(userID) {
			waiting = sess
		}
	}
	if waiting != nil {
		return waiting, nil
	}
	return nil, fmt.Errorf("live session for user %d: %w", userID, store.ErrNotFound)
}

func (s *Store) UpdateSession(ctx context.Context, id uuid.UUID, update models.SessionUpdate) (*models.Session, error) {
	if err := store.ValidateUpdate(update); err != nil {
		return nil, err
	}

	var updated *models.Session
	err := sqlutil.Run(ctx, s.db, func(tx *sqlx.Tx) error {
		var row sessionRow
		err := tx.GetContext(ctx, &row,
			s.q(`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND status <> 'finished'`+s.forUpdate()), id.String())
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("session %s: %w", id, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		sess, err := row.toModel()
		if err != nil {
			return err
		}

		update.Apply(sess)

		participants, waitlist, drawn, result, err := sessionArgs(sess)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`
			UPDATE sessions SET status = ?, participants = ?, waitlist = ?, drawn = ?,
				start_at = ?, result = ?, updated_at = ?
			WHERE id = ?`),
			string(sess.Status), participants, waitlist, drawn,
			sqlutil.ToNullUnixNano(sess.StartAt), result, sqlutil.ToUnixNano(sess.UpdatedAt),
			id.String(),
		); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		updated = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Promos

type promoRow struct {
	ID        string `db:"id"`
	MediaRef  string `db:"media_ref"`
	Caption   string `db:"caption"`
	CreatedAt int64  `db:"created_at"`
}

func (s *Store) CreatePromo(ctx context.Context, promo *models.Promo) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO promos (id, media_ref, caption, created_at) VALUES (?, ?, ?, ?)`),
		promo.ID.String(), promo.MediaRef, promo.Caption, sqlutil.ToUnixNano(promo.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert promo: %w", err)
	}
	return nil
}

func (s *Store) GetActivePromo(ctx context.Context) (*models.Promo, error) {
	var row promoRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, media_ref, caption, created_at FROM promos ORDER BY created_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active promo: %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active promo: %w", err)
	}
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid promo id: %w", err)
	}
	return &models.Promo{
		ID:        id,
		MediaRef:  row.MediaRef,
		Caption:   row.Caption,
		CreatedAt: sqlutil.FromUnixNano(row.CreatedAt),
	}, nil
}
