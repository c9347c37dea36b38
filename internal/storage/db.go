package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"d2stats/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS feed_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  feed TEXT NOT NULL,
  version TEXT,
  hash TEXT NOT NULL,
  body BLOB NOT NULL,
  fetchedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_feed_snapshots_feed ON feed_snapshots(feed, id);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  itemVersion TEXT,
  itemCount INTEGER NOT NULL,
  heroCount INTEGER NOT NULL,
  outputPath TEXT,
  timingsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS run_items (
  runId INTEGER NOT NULL,
  position INTEGER NOT NULL,
  name TEXT NOT NULL,
  damage INTEGER NOT NULL,
  damageMelee INTEGER NOT NULL,
  damageRanged INTEGER NOT NULL,
  attackSpeed INTEGER NOT NULL,
  str INTEGER NOT NULL,
  agi INTEGER NOT NULL,
  intellect INTEGER NOT NULL,
  armorCorruption INTEGER NOT NULL,
  magicDamage INTEGER NOT NULL,
  magicChanceMelee REAL NOT NULL,
  magicChanceRanged REAL NOT NULL,
  critMultiplier REAL NOT NULL,
  critChance REAL NOT NULL,
  cost INTEGER NOT NULL,
  isNeutral INTEGER NOT NULL,
  isUseless INTEGER NOT NULL,
  PRIMARY KEY(runId, position),
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS run_heroes (
  runId INTEGER NOT NULL,
  position INTEGER NOT NULL,
  name TEXT NOT NULL,
  primaryAttribute TEXT NOT NULL,
  attackType TEXT NOT NULL,
  baseAttackTime REAL NOT NULL,
  baseAttackSpeed INTEGER NOT NULL,
  PRIMARY KEY(runId, position),
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS item_categories (
  position INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  scrapedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertSnapshot stores body unless the latest snapshot of the feed has the
// same hash, in which case that snapshot is returned and inserted is false.
func (d *DB) InsertSnapshot(feed internal.FeedName, version, hash string, body []byte) (internal.FeedSnapshot, bool, error) {
	latest, err := d.LatestSnapshot(feed)
	if err != nil {
		return internal.FeedSnapshot{}, false, err
	}
	if latest != nil && latest.Hash == hash {
		return *latest, false, nil
	}

	if _, err := d.conn.Exec(`INSERT INTO feed_snapshots (feed, version, hash, body) VALUES (?, ?, ?, ?)`,
		string(feed), version, hash, body); err != nil {
		return internal.FeedSnapshot{}, false, err
	}

	latest, err = d.LatestSnapshot(feed)
	if err != nil {
		return internal.FeedSnapshot{}, false, err
	}
	if latest == nil {
		return internal.FeedSnapshot{}, false, errors.New("failed to insert snapshot")
	}
	return *latest, true, nil
}

func (d *DB) LatestSnapshot(feed internal.FeedName) (*internal.FeedSnapshot, error) {
	var s internal.FeedSnapshot
	var feedName string
	var version sql.NullString
	err := d.conn.QueryRow(`
SELECT id, feed, version, hash, body, fetchedAt
FROM feed_snapshots WHERE feed = ? ORDER BY id DESC LIMIT 1
`, string(feed)).Scan(&s.ID, &feedName, &version, &s.Hash, &s.Body, &s.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Feed = internal.FeedName(feedName)
	s.Version = version.String
	return &s, nil
}

// LatestDocuments loads the newest snapshot of every feed. All feeds must
// have been synced at least once.
func (d *DB) LatestDocuments() (internal.FeedDocuments, error) {
	var docs internal.FeedDocuments
	for _, feed := range internal.AllFeeds {
		snap, err := d.LatestSnapshot(feed)
		if err != nil {
			return internal.FeedDocuments{}, err
		}
		if snap == nil {
			return internal.FeedDocuments{}, fmt.Errorf("no snapshot for feed %s, run feeds:sync first", feed)
		}
		docs.Set(feed, snap.Body)
	}
	return docs, nil
}

func (d *DB) InsertRun(traceID, itemVersion string, items []internal.NormalizedItem, heroes []internal.HeroRecord, outputPath string, timings map[string]float64) (int, error) {
	timingsJSON, _ := json.Marshal(timings)

	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`INSERT INTO runs (traceId, itemVersion, itemCount, heroCount, outputPath, timingsJson) VALUES (?, ?, ?, ?, ?, ?)`,
		traceID, itemVersion, len(items), len(heroes), outputPath, string(timingsJSON))
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	itemStmt, err := tx.Prepare(`
INSERT INTO run_items (
  runId, position, name, damage, damageMelee, damageRanged, attackSpeed,
  str, agi, intellect, armorCorruption, magicDamage, magicChanceMelee, magicChanceRanged,
  critMultiplier, critChance, cost, isNeutral, isUseless
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer itemStmt.Close()

	for i, it := range items {
		if _, err := itemStmt.Exec(
			runID, i, it.Name, it.Damage, it.DamageMelee, it.DamageRanged, it.AttackSpeed,
			it.Str, it.Agi, it.Int, it.ArmorCorruption, it.MagicDamage, it.MagicChanceMelee, it.MagicChanceRanged,
			it.CritMultiplier, it.CritChance, it.Cost, it.IsNeutral, it.IsUseless,
		); err != nil {
			return 0, err
		}
	}

	heroStmt, err := tx.Prepare(`
INSERT INTO run_heroes (runId, position, name, primaryAttribute, attackType, baseAttackTime, baseAttackSpeed)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer heroStmt.Close()

	for i, h := range heroes {
		if _, err := heroStmt.Exec(runID, i, h.Name, h.PrimaryAttribute, h.AttackType, h.BaseAttackTime, h.BaseAttackSpeed); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(runID), nil
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, itemVersion, itemCount, heroCount, outputPath, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var version, outputPath sql.NullString
		if err := rows.Scan(&row.ID, &row.TraceID, &version, &row.ItemCount, &row.HeroCount, &outputPath, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.ItemVersion = version.String
		row.OutputPath = outputPath.String
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) GetRunItems(runID int) ([]internal.NormalizedItem, error) {
	rows, err := d.conn.Query(`
SELECT name, damage, damageMelee, damageRanged, attackSpeed,
       str, agi, intellect, armorCorruption, magicDamage, magicChanceMelee, magicChanceRanged,
       critMultiplier, critChance, cost, isNeutral, isUseless
FROM run_items WHERE runId = ? ORDER BY position ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.NormalizedItem
	for rows.Next() {
		var it internal.NormalizedItem
		if err := rows.Scan(
			&it.Name, &it.Damage, &it.DamageMelee, &it.DamageRanged, &it.AttackSpeed,
			&it.Str, &it.Agi, &it.Int, &it.ArmorCorruption, &it.MagicDamage, &it.MagicChanceMelee, &it.MagicChanceRanged,
			&it.CritMultiplier, &it.CritChance, &it.Cost, &it.IsNeutral, &it.IsUseless,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (d *DB) GetRunHeroes(runID int) ([]internal.HeroRecord, error) {
	rows, err := d.conn.Query(`
SELECT name, primaryAttribute, attackType, baseAttackTime, baseAttackSpeed
FROM run_heroes WHERE runId = ? ORDER BY position ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.HeroRecord
	for rows.Next() {
		var h internal.HeroRecord
		if err := rows.Scan(&h.Name, &h.PrimaryAttribute, &h.AttackType, &h.BaseAttackTime, &h.BaseAttackSpeed); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (d *DB) ReplaceItemCategories(entries []internal.ItemCategory) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM item_categories`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO item_categories (position, name, category) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.Exec(i, e.Name, e.Category); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ListItemCategories() ([]internal.ItemCategory, error) {
	rows, err := d.conn.Query(`SELECT name, category FROM item_categories ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ItemCategory
	for rows.Next() {
		var e internal.ItemCategory
		if err := rows.Scan(&e.Name, &e.Category); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
