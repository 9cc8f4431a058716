package repository

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/okian/mahjic/internal/domain/model"
	"github.com/okian/mahjic/pkg/metrics"
	"github.com/pkg/errors"

	// Registered drivers.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db *sql.DB
	d  dialect

	// writeMu serializes WithTx so a session's read-modify-write of ratings
	// never interleaves with another session's.
	writeMu sync.Mutex

	now   func() time.Time
	newID func() string
}

// Open connects to the database, bootstraps the schema and returns a ready
// store. driver is "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driver)
	}
	if n := d.maxOpenConns(); n > 0 {
		db.SetMaxOpenConns(n)
	}

	s := &SQLStore{db: db, d: d, now: time.Now, newID: defaultID}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping database")
	}
	for _, stmt := range append(s.d.bootstrap(), schema...) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "bootstrap schema: %s", firstLine(stmt))
		}
	}
	return nil
}

// Close closes the pool.
func (s *SQLStore) Close() error {
	return errors.Wrap(s.db.Close(), "close database")
}

// observe records latency and, on failure, an error for op.
func observe(op string, start time.Time, err error) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Milliseconds()))
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordRepositoryError(op)
	}
}

// WithTx implements Store.
func (s *SQLStore) WithTx(ctx context.Context, fn func(Tx) error) (err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	defer func() { observe("tx", start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	t := &sqlTx{s: s, q: tx}
	if err := fn(t); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Wrapf(err, "rollback failed (%v)", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	// Still under writeMu, so hooks observe commits in order.
	for _, hook := range t.afterCommit {
		hook()
	}
	return nil
}

// SourceByAPIKey implements Store.
func (s *SQLStore) SourceByAPIKey(ctx context.Context, apiKey string) (src model.Source, err error) {
	defer func(start time.Time) { observe("source_by_api_key", start, err) }(time.Now())

	row := s.db.QueryRowContext(ctx, s.d.rebind(
		`SELECT id, name, slug, api_key, contact_email, created_at, approved_at
		 FROM verified_sources WHERE api_key = ?`), apiKey)

	var approved sql.NullInt64
	var created int64
	err = row.Scan(&src.ID, &src.Name, &src.Slug, &src.APIKey, &src.ContactEmail, &created, &approved)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Source{}, ErrNotFound
	}
	if err != nil {
		return model.Source{}, errors.Wrap(err, "query source by api key")
	}
	src.CreatedAt = fromMillis(created)
	if approved.Valid {
		t := fromMillis(approved.Int64)
		src.ApprovedAt = &t
	}
	return src, nil
}

// UpsertSource implements Store.
func (s *SQLStore) UpsertSource(ctx context.Context, src model.Source) (err error) {
	defer func(start time.Time) { observe("upsert_source", start, err) }(time.Now())

	if src.ID == "" {
		src.ID = s.newID()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = s.now()
	}
	var approved sql.NullInt64
	if src.ApprovedAt != nil {
		approved = sql.NullInt64{Int64: toMillis(*src.ApprovedAt), Valid: true}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.db.ExecContext(ctx, s.d.rebind(
		`INSERT INTO verified_sources (id, name, slug, api_key, contact_email, created_at, approved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   slug = excluded.slug,
		   api_key = excluded.api_key,
		   contact_email = excluded.contact_email,
		   approved_at = excluded.approved_at`),
		src.ID, src.Name, src.Slug, src.APIKey, src.ContactEmail, toMillis(src.CreatedAt), approved)
	if err != nil {
		if s.d.isUniqueViolation(err) {
			return errors.Wrapf(ErrConflict, "source %s: %v", src.ID, err)
		}
		return errors.Wrapf(err, "upsert source %s", src.ID)
	}
	return nil
}

// Player implements Store.
func (s *SQLStore) Player(ctx context.Context, id string) (p model.Player, err error) {
	defer func(start time.Time) { observe("player", start, err) }(time.Now())
	return queryPlayer(ctx, s.db, s.d.rebind(`SELECT `+playerColumns+` FROM players WHERE id = ?`), id)
}

// LeaderboardPlayers implements Store.
func (s *SQLStore) LeaderboardPlayers(ctx context.Context) (out []model.Player, err error) {
	defer func(start time.Time) { observe("leaderboard_players", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, s.d.rebind(
		`SELECT `+playerColumns+` FROM players WHERE tier = ? AND privacy_mode = ?`),
		string(model.TierVerified), string(model.PrivacyNormal))
	if err != nil {
		return nil, errors.Wrap(err, "query leaderboard players")
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan leaderboard player")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate leaderboard players")
}

// History implements Store. Entries are newest first.
func (s *SQLStore) History(ctx context.Context, playerID string, q model.HistoryQuery) (page model.HistoryPage, err error) {
	defer func(start time.Time) { observe("history", start, err) }(time.Now())

	family := q.Family
	if family == "" {
		family = model.FamilyOpen
	}
	where := []string{"h.player_id = ?", "h.rating_type = ?"}
	args := []any{playerID, string(family)}
	if q.From != nil {
		where = append(where, "h.created_at >= ?")
		args = append(args, toMillis(*q.From))
	}
	if q.To != nil {
		where = append(where, "h.created_at <= ?")
		args = append(args, toMillis(*q.To))
	}
	cond := strings.Join(where, " AND ")

	if err := s.db.QueryRowContext(ctx, s.d.rebind(
		`SELECT COUNT(*) FROM rating_history h WHERE `+cond), args...).Scan(&page.Total); err != nil {
		return model.HistoryPage{}, errors.Wrap(err, "count history")
	}

	rows, err := s.db.QueryContext(ctx, s.d.rebind(
		`SELECT h.round_id, s.session_date, v.name, s.game_type, h.rating_type,
		        r.games_played, COALESCE(rp.mahjongs, 0), rp.points,
		        h.rating_before, h.rating_after, h.created_at
		 FROM rating_history h
		 JOIN rounds r ON r.id = h.round_id
		 JOIN game_sessions s ON s.id = r.session_id
		 JOIN verified_sources v ON v.id = s.source_id
		 LEFT JOIN round_players rp ON rp.round_id = h.round_id AND rp.player_id = h.player_id
		 WHERE `+cond+`
		 ORDER BY h.created_at DESC, r.round_index DESC, h.id
		 LIMIT ? OFFSET ?`), append(args, q.Limit, q.Offset)...)
	if err != nil {
		return model.HistoryPage{}, errors.Wrap(err, "query history")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e       model.HistoryEntry
			date    string
			gt, fam string
			points  sql.NullFloat64
			created int64
		)
		if err := rows.Scan(&e.RoundID, &date, &e.SourceName, &gt, &fam,
			&e.GamesPlayed, &e.Mahjongs, &points, &e.RatingBefore, &e.RatingAfter, &created); err != nil {
			return model.HistoryPage{}, errors.Wrap(err, "scan history")
		}
		e.SessionDate, _ = time.Parse(time.DateOnly, date)
		e.GameType = model.GameType(gt)
		e.Family = model.RatingFamily(fam)
		if points.Valid {
			v := points.Float64
			e.Points = &v
		}
		e.CreatedAt = fromMillis(created)
		page.Entries = append(page.Entries, e)
	}
	return page, errors.Wrap(rows.Err(), "iterate history")
}

// Stats implements Store.
func (s *SQLStore) Stats(ctx context.Context) (st Stats, err error) {
	defer func(start time.Time) { observe("stats", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx, s.d.rebind(
		`SELECT (SELECT COUNT(*) FROM players),
		        (SELECT COUNT(*) FROM players WHERE tier = ?),
		        (SELECT COUNT(*) FROM verified_sources),
		        (SELECT COUNT(*) FROM game_sessions),
		        (SELECT COUNT(*) FROM rounds)`), string(model.TierVerified)).
		Scan(&st.Players, &st.VerifiedPlayers, &st.Sources, &st.Sessions, &st.Rounds)
	return st, errors.Wrap(err, "query stats")
}

// sqlTx implements Tx.
type sqlTx struct {
	s *SQLStore
	q queryer

	afterCommit []func()
}

// AfterCommit implements Tx.
func (t *sqlTx) AfterCommit(fn func()) {
	if fn != nil {
		t.afterCommit = append(t.afterCommit, fn)
	}
}

func (t *sqlTx) PlayerByBGTUserID(ctx context.Context, bgtUserID string) (model.Player, error) {
	return queryPlayer(ctx, t.q, t.s.d.rebind(
		`SELECT `+playerColumns+` FROM players WHERE bgt_user_id = ?`+t.s.d.lockClause()), bgtUserID)
}

func (t *sqlTx) PlayerByEmail(ctx context.Context, email string) (model.Player, error) {
	return queryPlayer(ctx, t.q, t.s.d.rebind(
		`SELECT `+playerColumns+` FROM players WHERE email = ?`+t.s.d.lockClause()), email)
}

func (t *sqlTx) CreatePlayer(ctx context.Context, p model.Player) (model.Player, error) {
	if p.ID == "" {
		p.ID = t.s.newID()
	}
	now := t.s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt

	_, err := t.q.ExecContext(ctx, t.s.d.rebind(
		`INSERT INTO players (`+playerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Email, p.Name, nullString(p.BGTUserID), string(p.Tier), string(p.Privacy),
		p.Rating, p.VerifiedRating, p.GamesPlayed, toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		if t.s.d.isUniqueViolation(err) {
			return model.Player{}, errors.Wrapf(ErrConflict, "player %s: %v", p.Email, err)
		}
		return model.Player{}, errors.Wrapf(err, "create player %s", p.Email)
	}
	// Round-trip through millisecond storage precision.
	p.CreatedAt, p.UpdatedAt = fromMillis(toMillis(p.CreatedAt)), fromMillis(toMillis(p.UpdatedAt))
	return p, nil
}

func (t *sqlTx) LinkBGTUserID(ctx context.Context, playerID, bgtUserID string) error {
	res, err := t.q.ExecContext(ctx, t.s.d.rebind(
		`UPDATE players SET bgt_user_id = ?, updated_at = ? WHERE id = ?`),
		bgtUserID, toMillis(t.s.now()), playerID)
	if err != nil {
		if t.s.d.isUniqueViolation(err) {
			return errors.Wrapf(ErrConflict, "bgt_user_id %s already linked: %v", bgtUserID, err)
		}
		return errors.Wrapf(err, "link player %s", playerID)
	}
	return expectOne(res, "link player "+playerID)
}

func (t *sqlTx) UpdatePlayerRatings(ctx context.Context, playerID string, rating, verifiedRating float64, gamesPlayed int) error {
	res, err := t.q.ExecContext(ctx, t.s.d.rebind(
		`UPDATE players SET mahjic_rating = ?, verified_rating = ?, games_played = ?, updated_at = ? WHERE id = ?`),
		rating, verifiedRating, gamesPlayed, toMillis(t.s.now()), playerID)
	if err != nil {
		return errors.Wrapf(err, "update player %s", playerID)
	}
	return expectOne(res, "update player "+playerID)
}

func (t *sqlTx) CreateSession(ctx context.Context, rec SessionRecord) (string, error) {
	id := t.s.newID()
	_, err := t.q.ExecContext(ctx, t.s.d.rebind(
		`INSERT INTO game_sessions (id, source_id, session_date, game_type, idempotency_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		id, rec.SourceID, rec.SessionDate.Format(time.DateOnly), string(rec.GameType),
		nullString(rec.IdempotencyKey), toMillis(t.s.now()))
	if err != nil {
		if t.s.d.isUniqueViolation(err) {
			return "", errors.Wrapf(ErrConflict, "session with idempotency key %q: %v", rec.IdempotencyKey, err)
		}
		return "", errors.Wrap(err, "create session")
	}
	return id, nil
}

func (t *sqlTx) CreateRound(ctx context.Context, rec RoundRecord) (string, error) {
	id := t.s.newID()
	verified := 0
	if rec.VerifiedScored {
		verified = 1
	}
	_, err := t.q.ExecContext(ctx, t.s.d.rebind(
		`INSERT INTO rounds (id, session_id, round_index, games_played, wall_games, verified_scored, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, rec.SessionID, rec.Index, rec.GamesPlayed, rec.WallGames, verified, toMillis(t.s.now()))
	if err != nil {
		return "", errors.Wrapf(err, "create round %d", rec.Index)
	}
	return id, nil
}

func (t *sqlTx) AddRoundPlayer(ctx context.Context, rec RoundPlayerRecord) error {
	var points sql.NullFloat64
	if rec.Points != nil {
		points = sql.NullFloat64{Float64: *rec.Points, Valid: true}
	}
	_, err := t.q.ExecContext(ctx, t.s.d.rebind(
		`INSERT INTO round_players (id, round_id, player_id, seat, mahjongs, points, elo_before, elo_change, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.s.newID(), rec.RoundID, rec.PlayerID, rec.Seat, rec.Mahjongs, points,
		rec.EloBefore, rec.EloChange, toMillis(t.s.now()))
	return errors.Wrapf(err, "add round player %s", rec.PlayerID)
}

func (t *sqlTx) AddRatingHistory(ctx context.Context, rec HistoryRecord) error {
	_, err := t.q.ExecContext(ctx, t.s.d.rebind(
		`INSERT INTO rating_history (id, player_id, round_id, rating_type, rating_before, rating_after, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		t.s.newID(), rec.PlayerID, rec.RoundID, string(rec.Family),
		rec.RatingBefore, rec.RatingAfter, toMillis(t.s.now()))
	return errors.Wrapf(err, "add %s history for %s", rec.Family, rec.PlayerID)
}

const playerColumns = `id, email, name, bgt_user_id, tier, privacy_mode, mahjic_rating, verified_rating, games_played, created_at, updated_at`

func queryPlayer(ctx context.Context, q queryer, query string, arg any) (model.Player, error) {
	p, err := scanPlayer(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, ErrNotFound
	}
	if err != nil {
		return model.Player{}, errors.Wrap(err, "query player")
	}
	return p, nil
}

func scanPlayer(sc scanner) (model.Player, error) {
	var (
		p                model.Player
		bgt              sql.NullString
		tier, privacy    string
		created, updated int64
	)
	if err := sc.Scan(&p.ID, &p.Email, &p.Name, &bgt, &tier, &privacy,
		&p.Rating, &p.VerifiedRating, &p.GamesPlayed, &created, &updated); err != nil {
		return model.Player{}, err
	}
	p.BGTUserID = bgt.String
	p.Tier = model.Tier(tier)
	p.Privacy = model.PrivacyMode(privacy)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, what)
	}
	if n == 0 {
		return errors.Wrap(ErrNotFound, what)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
