package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-chat-assistant/internal/chat"
	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS chat_turns (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	user_message TEXT NOT NULL,
	bot_response TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_turns_session ON chat_turns (session_id, created_at);

CREATE TABLE IF NOT EXISTS weather_data (
	city TEXT NOT NULL,
	date TEXT NOT NULL,
	temperature REAL NOT NULL,
	humidity INTEGER NOT NULL,
	description TEXT NOT NULL,
	wind_speed REAL NOT NULL DEFAULT 0.0,
	lat REAL NOT NULL DEFAULT 0.0,
	lon REAL NOT NULL DEFAULT 0.0,
	PRIMARY KEY (city, date)
);

CREATE TABLE IF NOT EXISTS forecast_data (
	city TEXT NOT NULL,
	forecast_dt TEXT NOT NULL,
	temp_max REAL,
	humidity INTEGER NOT NULL,
	description TEXT NOT NULL,
	wind_speed REAL NOT NULL DEFAULT 0.0,
	lat REAL NOT NULL DEFAULT 0.0,
	lon REAL NOT NULL DEFAULT 0.0,
	PRIMARY KEY (city, forecast_dt)
);

CREATE TABLE IF NOT EXISTS api_call_count (
	date TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore is the persistent record store backed by the pure Go modernc SQLite driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}
	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetWeather(ctx context.Context, city, date string) (weather.WeatherRecord, bool, error) {
	var r weather.WeatherRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT city, date, temperature, humidity, description, wind_speed, lat, lon
		 FROM weather_data WHERE city = ? AND date = ?`, city, date,
	).Scan(&r.City, &r.Date, &r.Temperature, &r.Humidity, &r.Description, &r.WindSpeed, &r.Lat, &r.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.WeatherRecord{}, false, nil
	}
	if err != nil {
		return weather.WeatherRecord{}, false, fmt.Errorf("store: get weather %s/%s: %w", city, date, err)
	}
	return r, true, nil
}

// PutWeather stores rec unless a record for (city, date) already exists.
func (s *SQLiteStore) PutWeather(ctx context.Context, rec weather.WeatherRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO weather_data (city, date, temperature, humidity, description, wind_speed, lat, lon)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.City, rec.Date, rec.Temperature, rec.Humidity, rec.Description, rec.WindSpeed, rec.Lat, rec.Lon,
	)
	if err != nil {
		return fmt.Errorf("store: put weather %s/%s: %w", rec.City, rec.Date, err)
	}
	return nil
}

func (s *SQLiteStore) GetForecastEntry(ctx context.Context, city string, ts time.Time) (weather.ForecastEntry, bool, error) {
	var (
		e       weather.ForecastEntry
		dt      string
		tempMax sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT city, forecast_dt, temp_max, humidity, description, wind_speed, lat, lon
		 FROM forecast_data WHERE city = ? AND forecast_dt = ?`, city, forecastKey(ts),
	).Scan(&e.City, &dt, &tempMax, &e.Humidity, &e.Description, &e.WindSpeed, &e.Lat, &e.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.ForecastEntry{}, false, nil
	}
	if err != nil {
		return weather.ForecastEntry{}, false, fmt.Errorf("store: get forecast %s/%s: %w", city, forecastKey(ts), err)
	}

	e.TempMax = tempMax.Float64
	e.Timestamp, err = time.ParseInLocation(weather.ForecastLayout, dt, time.UTC)
	if err != nil {
		return weather.ForecastEntry{}, false, fmt.Errorf("store: parse forecast_dt %q: %w", dt, err)
	}
	return e, true, nil
}

// PutForecastEntry stores e unless an entry for (city, timestamp) already exists.
func (s *SQLiteStore) PutForecastEntry(ctx context.Context, e weather.ForecastEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO forecast_data (city, forecast_dt, temp_max, humidity, description, wind_speed, lat, lon)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.City, forecastKey(e.Timestamp), e.TempMax, e.Humidity, e.Description, e.WindSpeed, e.Lat, e.Lon,
	)
	if err != nil {
		return fmt.Errorf("store: put forecast %s/%s: %w", e.City, forecastKey(e.Timestamp), err)
	}
	return nil
}

// IncrementCalls atomically bumps the day's counter.
func (s *SQLiteStore) IncrementCalls(ctx context.Context, day string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO api_call_count (date, count) VALUES (?, 1)
		 ON CONFLICT(date) DO UPDATE SET count = count + 1
		 RETURNING count`, day,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: increment calls %s: %w", day, err)
	}
	return count, nil
}

func (s *SQLiteStore) CallCount(ctx context.Context, day string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count FROM api_call_count WHERE date = ?`, day).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: call count %s: %w", day, err)
	}
	return count, nil
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, t chat.Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_turns (id, session_id, user_message, bot_response, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.UserText, t.BotText, t.Timestamp.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store: append turn %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Turns(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, user_message, bot_response, created_at
		 FROM chat_turns WHERE session_id = ? ORDER BY created_at, id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list turns %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []chat.Turn
	for rows.Next() {
		var (
			t  chat.Turn
			ns int64
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserText, &t.BotText, &ns); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		t.Timestamp = time.Unix(0, ns).UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate turns: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ClearTurns(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("store: clear turns %s: %w", sessionID, err)
	}
	return nil
}

// Prune deletes cache rows, counters and turns older than cutoff's calendar day.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (PruneResult, error) {
	day := cutoff.Format(weather.DateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PruneResult{}, fmt.Errorf("store: begin prune: %w", err)
	}
	defer tx.Rollback()

	var res PruneResult
	steps := []struct {
		query string
		arg   any
		dst   *int64
	}{
		{`DELETE FROM weather_data WHERE date < ?`, day, &res.Weather},
		{`DELETE FROM forecast_data WHERE forecast_dt < ?`, day, &res.Forecast},
		{`DELETE FROM api_call_count WHERE date < ?`, day, &res.Counters},
		{`DELETE FROM chat_turns WHERE created_at < ?`, cutoff.UTC().UnixNano(), &res.Turns},
	}
	for _, st := range steps {
		r, err := tx.ExecContext(ctx, st.query, st.arg)
		if err != nil {
			return PruneResult{}, fmt.Errorf("store: prune: %w", err)
		}
		if *st.dst, err = r.RowsAffected(); err != nil {
			return PruneResult{}, fmt.Errorf("store: prune rows affected: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return PruneResult{}, fmt.Errorf("store: commit prune: %w", err)
	}
	return res, nil
}

func forecastKey(ts time.Time) string {
	return ts.UTC().Format(weather.ForecastLayout)
}
