package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"CoinSentinel/internal/model"
)

// SQLiteRecorder persists evaluations to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signal_snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			asset           TEXT NOT NULL,
			source          TEXT,
			triggered_by    TEXT,
			price           REAL,
			rsi             REAL,
			macd            REAL,
			macd_signal     REAL,
			macd_histogram  REAL,
			ema20           REAL,
			ema50           REAL,
			bollinger_upper REAL,
			bollinger_mid   REAL,
			bollinger_lower REAL,
			stoch_rsi       REAL,
			score           INTEGER,
			signal          TEXT,
			strength        TEXT,
			adjusted_score  INTEGER,
			confidence      INTEGER,
			obv_trend       TEXT,
			divergence      TEXT,
			adx             REAL,
			trend_context   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_asset_ts ON signal_snapshots(asset, timestamp)`,

		`CREATE TABLE IF NOT EXISTS indicator_verdicts (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id    INTEGER NOT NULL REFERENCES signal_snapshots(id),
			position       INTEGER NOT NULL,
			indicator      TEXT NOT NULL,
			value          TEXT,
			message        TEXT,
			classification TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_snapshot ON indicator_verdicts(snapshot_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSignal(snap *SignalSnapshot) error {
	if snap == nil || snap.Report == nil || snap.Report.Signal == nil {
		return errors.New("record signal: empty snapshot")
	}
	rep := snap.Report
	sig := rep.Signal
	ext := rep.Extended
	if ext == nil {
		ext = &model.ExtendedAnalysis{}
	}
	ts := rep.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO signal_snapshots
		(timestamp, asset, source, triggered_by, price, rsi, macd, macd_signal, macd_histogram,
		 ema20, ema50, bollinger_upper, bollinger_mid, bollinger_lower, stoch_rsi,
		 score, signal, strength, adjusted_score, confidence,
		 obv_trend, divergence, adx, trend_context)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), rep.Asset, rep.Source, string(snap.Trigger), sig.Price, sig.RSI,
		sig.MACD, sig.MACDSignal, sig.MACDHistogram,
		sig.EMA20, sig.EMA50, sig.BollingerUpper, sig.BollingerMid, sig.BollingerLower, sig.StochRSI,
		sig.Score, string(sig.Signal), string(sig.Strength), ext.AdjustedScore, ext.Confidence,
		string(ext.OBVTrend), string(ext.Divergence), ext.ADX, string(ext.TrendContext),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}

	for i, v := range sig.Verdicts {
		if _, err := tx.Exec(`INSERT INTO indicator_verdicts
			(snapshot_id, position, indicator, value, message, classification)
			VALUES (?,?,?,?,?,?)`,
			id, i, v.Name, v.Value, v.Message, string(v.Classification),
		); err != nil {
			return fmt.Errorf("insert verdict %s: %w", v.Name, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LatestSignal(asset string) (*StoredSignal, error) {
	var (
		s        StoredSignal
		ts       int64
		trigger  string
		signal   string
		strength string
	)
	err := r.db.QueryRow(`SELECT id, timestamp, asset, source, triggered_by, price,
			score, signal, strength, adjusted_score, confidence
		FROM signal_snapshots WHERE asset = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1`, asset,
	).Scan(&s.ID, &ts, &s.Asset, &s.Source, &trigger, &s.Price,
		&s.Score, &signal, &strength, &s.AdjustedScore, &s.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest signal: %w", err)
	}
	s.RecordedAt = time.Unix(ts, 0)
	s.Trigger = Trigger(trigger)
	s.Signal = model.Signal(signal)
	s.Strength = model.Strength(strength)

	rows, err := r.db.Query(`SELECT indicator, value, message, classification
		FROM indicator_verdicts WHERE snapshot_id = ? ORDER BY position`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v model.IndicatorVerdict
		var class string
		if err := rows.Scan(&v.Name, &v.Value, &v.Message, &class); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		v.Classification = model.Classification(class)
		s.Verdicts = append(s.Verdicts, v)
	}
	return &s, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
