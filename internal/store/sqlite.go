package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mlisboa/lol-inhouse/internal/rating"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			rating INTEGER NOT NULL DEFAULT 1000,
			primary_lane TEXT NOT NULL DEFAULT 'fill',
			secondary_lane TEXT NOT NULL DEFAULT 'fill',
			wins INTEGER NOT NULL DEFAULT 0,
			losses INTEGER NOT NULL DEFAULT 0,
			is_bot INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL REFERENCES players(id),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			winner TEXT,
			started_at TIMESTAMP,
			ended_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS match_players (
			match_id TEXT NOT NULL REFERENCES matches(id),
			player_id TEXT NOT NULL REFERENCES players(id),
			team TEXT NOT NULL,
			slot INTEGER NOT NULL,
			lane TEXT NOT NULL,
			autofill INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (match_id, player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS draft_actions (
			match_id TEXT NOT NULL REFERENCES matches(id),
			position INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			kind TEXT NOT NULL,
			champion_id INTEGER NOT NULL,
			auto INTEGER NOT NULL DEFAULT 0,
			at TIMESTAMP NOT NULL,
			PRIMARY KEY (match_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS rating_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL REFERENCES matches(id),
			player_id TEXT NOT NULL REFERENCES players(id),
			before INTEGER NOT NULL,
			after INTEGER NOT NULL,
			delta INTEGER NOT NULL,
			won INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rating_history_player ON rating_history(player_id, id)`,
		`CREATE TABLE IF NOT EXISTS push_subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL REFERENCES players(id),
			endpoint TEXT NOT NULL UNIQUE,
			p256dh TEXT NOT NULL,
			auth TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetPlayer retrieves a player by ID.
func (s *SQLiteStore) GetPlayer(ctx context.Context, playerID string) (*Player, error) {
	var p Player
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, rating, primary_lane, secondary_lane, wins, losses, is_bot, created_at, updated_at
		 FROM players WHERE id = ?`, playerID).Scan(
		&p.ID, &p.Name, &p.Rating, &p.PrimaryLane, &p.SecondaryLane,
		&p.Wins, &p.Losses, &p.IsBot, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPlayer creates or updates a player. Rating, wins and losses are
// only set on first insert; ApplyRatingRecords owns them afterwards.
func (s *SQLiteStore) UpsertPlayer(ctx context.Context, player *Player) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, rating, primary_lane, secondary_lane, wins, losses, is_bot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 	name = excluded.name,
		 	primary_lane = excluded.primary_lane,
		 	secondary_lane = excluded.secondary_lane,
		 	updated_at = excluded.updated_at`,
		player.ID, player.Name, player.Rating, player.PrimaryLane, player.SecondaryLane,
		player.Wins, player.Losses, player.IsBot, player.CreatedAt, player.UpdatedAt,
	)
	return err
}

// ListPlayers returns all registered players.
func (s *SQLiteStore) ListPlayers(ctx context.Context) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, rating, primary_lane, secondary_lane, wins, losses, is_bot, created_at, updated_at
		 FROM players ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Rating, &p.PrimaryLane, &p.SecondaryLane,
			&p.Wins, &p.Losses, &p.IsBot, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// UpdateLanes updates a player's lane preferences.
func (s *SQLiteStore) UpdateLanes(ctx context.Context, playerID, primary, secondary string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE players SET primary_lane = ?, secondary_lane = ?, updated_at = ? WHERE id = ?`,
		primary, secondary, time.Now(), playerID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("player not found")
	}
	return nil
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, player_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		session.ID, session.PlayerID, session.CreatedAt, session.ExpiresAt,
	)
	return err
}

// GetSession retrieves a non-expired session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, player_id, created_at, expires_at
		 FROM sessions WHERE id = ? AND expires_at > ?`,
		sessionID, time.Now()).Scan(
		&session.ID, &session.PlayerID, &session.CreatedAt, &session.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

// DeleteExpiredSessions removes all expired sessions.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now())
	return err
}

// CreateMatch creates a new match record.
func (s *SQLiteStore) CreateMatch(ctx context.Context, match *Match) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (id, status, winner, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?)`,
		match.ID, match.Status, match.Winner, match.StartedAt, match.EndedAt,
	)
	return err
}

// UpdateMatchStatus updates a match's status only.
func (s *SQLiteStore) UpdateMatchStatus(ctx context.Context, matchID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE matches SET status = ? WHERE id = ?`, status, matchID)
	return err
}

// CompleteMatch marks a match finished with its winner.
func (s *SQLiteStore) CompleteMatch(ctx context.Context, matchID, winner string, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE matches SET status = 'completed', winner = ?, ended_at = ? WHERE id = ?`,
		winner, endedAt, matchID)
	return err
}

// GetMatch retrieves a match by ID.
func (s *SQLiteStore) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	var m Match
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, winner, started_at, ended_at
		 FROM matches WHERE id = ?`, matchID).Scan(
		&m.ID, &m.Status, &m.Winner, &m.StartedAt, &m.EndedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddMatchPlayer adds a player to a match.
func (s *SQLiteStore) AddMatchPlayer(ctx context.Context, mp *MatchPlayer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_players (match_id, player_id, team, slot, lane, autofill)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		mp.MatchID, mp.PlayerID, mp.Team, mp.Slot, mp.Lane, mp.Autofill,
	)
	return err
}

// GetMatchPlayers retrieves all players for a match in slot order.
func (s *SQLiteStore) GetMatchPlayers(ctx context.Context, matchID string) ([]MatchPlayer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id, player_id, team, slot, lane, autofill
		 FROM match_players WHERE match_id = ? ORDER BY slot`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []MatchPlayer
	for rows.Next() {
		var mp MatchPlayer
		if err := rows.Scan(&mp.MatchID, &mp.PlayerID, &mp.Team, &mp.Slot, &mp.Lane, &mp.Autofill); err != nil {
			return nil, err
		}
		players = append(players, mp)
	}
	return players, rows.Err()
}

// AddDraftAction appends one ban or pick.
func (s *SQLiteStore) AddDraftAction(ctx context.Context, action *DraftAction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO draft_actions (match_id, position, slot, kind, champion_id, auto, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		action.MatchID, action.Position, action.Slot, action.Kind, action.ChampionID, action.Auto, action.At,
	)
	return err
}

// GetDraftActions retrieves a match's draft in action order.
func (s *SQLiteStore) GetDraftActions(ctx context.Context, matchID string) ([]DraftAction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id, position, slot, kind, champion_id, auto, at
		 FROM draft_actions WHERE match_id = ? ORDER BY position`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []DraftAction
	for rows.Next() {
		var a DraftAction
		if err := rows.Scan(&a.MatchID, &a.Position, &a.Slot, &a.Kind, &a.ChampionID, &a.Auto, &a.At); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// ListMatches retrieves the most recent completed matches.
func (s *SQLiteStore) ListMatches(ctx context.Context, limit int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, winner, started_at, ended_at
		 FROM matches
		 WHERE status = 'completed'
		 ORDER BY ended_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Status, &m.Winner, &m.StartedAt, &m.EndedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ApplyRatingRecords updates ratings, tallies and history atomically. The
// delta is applied against the row's current rating rather than the rating
// snapshotted at queue time, so two matches finishing in close succession
// cannot overwrite each other's adjustment.
func (s *SQLiteStore) ApplyRatingRecords(ctx context.Context, matchID string, records []rating.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range records {
		var current int
		if err := tx.QueryRowContext(ctx,
			`SELECT rating FROM players WHERE id = ?`, rec.PlayerID).Scan(&current); err != nil {
			return fmt.Errorf("read rating for %s: %w", rec.PlayerID, err)
		}
		after := current + rec.Delta

		winInc, lossInc := 0, 1
		if rec.Won {
			winInc, lossInc = 1, 0
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE players SET rating = ?, wins = wins + ?, losses = losses + ?, updated_at = ?
			 WHERE id = ?`,
			after, winInc, lossInc, time.Now(), rec.PlayerID); err != nil {
			return fmt.Errorf("update rating for %s: %w", rec.PlayerID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rating_history (match_id, player_id, before, after, delta, won)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			matchID, rec.PlayerID, current, after, rec.Delta, rec.Won); err != nil {
			return fmt.Errorf("insert rating history for %s: %w", rec.PlayerID, err)
		}
	}

	return tx.Commit()
}

// RatingHistory retrieves a player's most recent rating changes.
func (s *SQLiteStore) RatingHistory(ctx context.Context, playerID string, limit int) ([]RatingChange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id, player_id, before, after, delta, won, created_at
		 FROM rating_history WHERE player_id = ?
		 ORDER BY id DESC LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []RatingChange
	for rows.Next() {
		var c RatingChange
		if err := rows.Scan(&c.MatchID, &c.PlayerID, &c.Before, &c.After, &c.Delta, &c.Won, &c.CreatedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// Leaderboard retrieves all human players ordered by rating.
func (s *SQLiteStore) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, rating, wins, losses
		 FROM players
		 WHERE is_bot = 0
		 ORDER BY rating DESC, wins DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.Rating, &e.Wins, &e.Losses); err != nil {
			return nil, err
		}
		e.Total = e.Wins + e.Losses
		if e.Total > 0 {
			e.WinRate = float64(e.Wins) / float64(e.Total) * 100
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Streak = s.calculateStreak(ctx, entries[i].PlayerID)
	}

	return entries, nil
}

// calculateStreak walks a player's history newest-first until the result
// flips.
func (s *SQLiteStore) calculateStreak(ctx context.Context, playerID string) int {
	rows, err := s.db.QueryContext(ctx,
		`SELECT CASE WHEN won THEN 1 ELSE -1 END
		 FROM rating_history WHERE player_id = ?
		 ORDER BY id DESC`, playerID)
	if err != nil {
		return 0
	}
	defer rows.Close()

	streak := 0
	var firstResult int
	first := true

	for rows.Next() {
		var result int
		if err := rows.Scan(&result); err != nil {
			return 0
		}

		if first {
			firstResult = result
			streak = result
			first = false
		} else if result == firstResult {
			streak += result
		} else {
			break
		}
	}

	return streak
}

// ListMatchesWithPlayers retrieves recent matches with full player info.
func (s *SQLiteStore) ListMatchesWithPlayers(ctx context.Context, limit int) ([]MatchWithPlayers, error) {
	matches, err := s.ListMatches(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.attachPlayers(ctx, matches)
}

// PlayerMatchHistory retrieves a player's recent completed matches.
func (s *SQLiteStore) PlayerMatchHistory(ctx context.Context, playerID string, limit int) ([]MatchWithPlayers, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.status, m.winner, m.started_at, m.ended_at
		 FROM matches m
		 JOIN match_players mp ON mp.match_id = m.id
		 WHERE mp.player_id = ? AND m.status = 'completed'
		 ORDER BY m.ended_at DESC
		 LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Status, &m.Winner, &m.StartedAt, &m.EndedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.attachPlayers(ctx, matches)
}

// SavePushSubscription stores a browser push subscription, replacing any
// previous row for the same endpoint.
func (s *SQLiteStore) SavePushSubscription(ctx context.Context, sub *PushSubscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (player_id, endpoint, p256dh, auth)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
		 	player_id = excluded.player_id,
		 	p256dh = excluded.p256dh,
		 	auth = excluded.auth`,
		sub.PlayerID, sub.Endpoint, sub.P256dh, sub.Auth,
	)
	return err
}

// GetPushSubscriptions retrieves all subscriptions for one player.
func (s *SQLiteStore) GetPushSubscriptions(ctx context.Context, playerID string) ([]PushSubscription, error) {
	return s.queryPushSubscriptions(ctx,
		`SELECT id, player_id, endpoint, p256dh, auth, created_at
		 FROM push_subscriptions WHERE player_id = ?`, playerID)
}

// GetAllPushSubscriptions retrieves every stored subscription.
func (s *SQLiteStore) GetAllPushSubscriptions(ctx context.Context) ([]PushSubscription, error) {
	return s.queryPushSubscriptions(ctx,
		`SELECT id, player_id, endpoint, p256dh, auth, created_at
		 FROM push_subscriptions`)
}

// DeletePushSubscription removes a subscription by endpoint.
func (s *SQLiteStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return err
}

func (s *SQLiteStore) queryPushSubscriptions(ctx context.Context, query string, args ...any) ([]PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []PushSubscription
	for rows.Next() {
		var sub PushSubscription
		if err := rows.Scan(&sub.ID, &sub.PlayerID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SQLiteStore) attachPlayers(ctx context.Context, matches []Match) ([]MatchWithPlayers, error) {
	result := make([]MatchWithPlayers, 0, len(matches))
	for _, m := range matches {
		mwp := MatchWithPlayers{Match: m}

		rows, err := s.db.QueryContext(ctx,
			`SELECT mp.player_id, p.name, mp.team, mp.slot, mp.lane, mp.autofill, rh.delta
			 FROM match_players mp
			 LEFT JOIN players p ON mp.player_id = p.id
			 LEFT JOIN rating_history rh ON rh.match_id = mp.match_id AND rh.player_id = mp.player_id
			 WHERE mp.match_id = ?
			 ORDER BY mp.slot`, m.ID)
		if err != nil {
			return nil, err
		}

		for rows.Next() {
			var p MatchPlayerInfo
			var name sql.NullString
			var delta sql.NullInt64
			if err := rows.Scan(&p.PlayerID, &name, &p.Team, &p.Slot, &p.Lane, &p.Autofill, &delta); err != nil {
				rows.Close()
				return nil, err
			}
			p.Name = name.String
			if p.Name == "" {
				p.Name = p.PlayerID
			}
			if delta.Valid {
				d := int(delta.Int64)
				p.Delta = &d
			}

			if p.Team == "blue" {
				mwp.Blue = append(mwp.Blue, p)
			} else {
				mwp.Red = append(mwp.Red, p)
			}
		}
		rows.Close()

		result = append(result, mwp)
	}

	return result, nil
}
