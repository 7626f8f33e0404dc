package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gridlife.ai/internal/persistence/snapshot"
	"gridlife.ai/internal/protocol"
)

var (
	ErrNotFound   = protocol.NewError(protocol.ErrNotFound, "indexdb: turn not found")
	ErrTurnExists = protocol.NewError(protocol.ErrConflict, "indexdb: turn already recorded")
)

// SQLiteIndex stores turn records for every game, and (asynchronously) an
// index of state files written to disk.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan stateFileRow
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type stateFileRow struct {
	GameID string
	Turn   uint64
	Path   string
	Cells  int
	Plants int
	Actors int
}

// StateFile is one indexed state dump on disk.
type StateFile struct {
	GameID string
	Turn   uint64
	Path   string
	Cells  int
	Plants int
	Actors int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan stateFileRow, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			game TEXT NOT NULL,
			number INTEGER NOT NULL,
			uuid TEXT NOT NULL UNIQUE,
			delta_dump TEXT,
			diff TEXT NOT NULL DEFAULT '{}',
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (game, number)
		);`,
		`CREATE TABLE IF NOT EXISTS state_files (
			game TEXT NOT NULL,
			turn INTEGER NOT NULL,
			path TEXT NOT NULL,
			cells INTEGER NOT NULL,
			plants INTEGER NOT NULL,
			actors INTEGER NOT NULL,
			PRIMARY KEY (game, turn)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// AppendTurn stores rec. Turn numbers are unique per game; recording the same
// turn twice returns ErrTurnExists. An empty UUID is filled in.
func (s *SQLiteIndex) AppendTurn(ctx context.Context, rec snapshot.TurnRecord) error {
	if s.closed.Load() {
		return fmt.Errorf("indexdb: closed")
	}
	if rec.GameID == "" {
		return fmt.Errorf("indexdb: empty game id")
	}
	if rec.UUID == "" {
		rec.UUID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	var dump sql.NullString
	if rec.Dump != nil {
		b, err := json.Marshal(rec.Dump)
		if err != nil {
			return fmt.Errorf("marshal dump: %w", err)
		}
		dump = sql.NullString{String: string(b), Valid: true}
	}
	diff, err := json.Marshal(rec.Diff)
	if err != nil {
		return fmt.Errorf("marshal diff: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM turns WHERE game=? AND number=?`, rec.GameID, int64(rec.Number)).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: game=%s turn=%d", ErrTurnExists, rec.GameID, rec.Number)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns(game,number,uuid,delta_dump,diff,recorded_at) VALUES(?,?,?,?,?,?)`,
		rec.GameID, int64(rec.Number), rec.UUID, dump, string(diff), rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	return tx.Commit()
}

const turnCols = `game,number,uuid,delta_dump,diff,recorded_at`

func scanTurn(sc interface{ Scan(...any) error }) (snapshot.TurnRecord, error) {
	var (
		rec      snapshot.TurnRecord
		number   int64
		dump     sql.NullString
		diff     string
		recorded string
	)
	if err := sc.Scan(&rec.GameID, &number, &rec.UUID, &dump, &diff, &recorded); err != nil {
		return rec, err
	}
	rec.Number = uint64(number)
	if dump.Valid {
		st, err := snapshot.DecodeStateJSON([]byte(dump.String))
		if err != nil {
			return rec, fmt.Errorf("turn %d dump: %w", rec.Number, err)
		}
		rec.Dump = &st
	}
	if err := json.Unmarshal([]byte(diff), &rec.Diff); err != nil {
		return rec, fmt.Errorf("turn %d diff: %w", rec.Number, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
		rec.RecordedAt = t
	}
	return rec, nil
}

func (s *SQLiteIndex) Turn(ctx context.Context, game string, number uint64) (snapshot.TurnRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+turnCols+` FROM turns WHERE game=? AND number=?`, game, int64(number))
	rec, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("%w: game=%s turn=%d", ErrNotFound, game, number)
	}
	return rec, err
}

func (s *SQLiteIndex) LatestTurn(ctx context.Context, game string) (snapshot.TurnRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+turnCols+` FROM turns WHERE game=? ORDER BY number DESC LIMIT 1`, game)
	rec, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("%w: game=%s", ErrNotFound, game)
	}
	return rec, err
}

// Turns lists a game's turns in [from, to] ordered by number. to == 0 means
// no upper bound.
func (s *SQLiteIndex) Turns(ctx context.Context, game string, from, to uint64) ([]snapshot.TurnRecord, error) {
	q := `SELECT ` + turnCols + ` FROM turns WHERE game=? AND number>=?`
	args := []any{game, int64(from)}
	if to != 0 {
		q += ` AND number<=?`
		args = append(args, int64(to))
	}
	q += ` ORDER BY number`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []snapshot.TurnRecord
	for rows.Next() {
		rec, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Games(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT game FROM turns ORDER BY game`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// RecordStateFile indexes a state dump written to path. It is queued and
// dropped if the writer falls behind; the files remain the source of truth.
func (s *SQLiteIndex) RecordStateFile(path string, st snapshot.StateV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := stateFileRow{
		GameID: st.Header.GameID,
		Turn:   st.Header.Turn,
		Path:   path,
		Cells:  len(st.Cells),
		Plants: len(st.Plants),
		Actors: len(st.Actors),
	}
	select {
	case s.ch <- r:
	default:
	}
}

func (s *SQLiteIndex) StateFiles(ctx context.Context, game string) ([]StateFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT game,turn,path,cells,plants,actors FROM state_files WHERE game=? ORDER BY turn`, game)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StateFile
	for rows.Next() {
		var (
			f    StateFile
			turn int64
		)
		if err := rows.Scan(&f.GameID, &turn, &f.Path, &f.Cells, &f.Plants, &f.Actors); err != nil {
			return nil, err
		}
		f.Turn = uint64(turn)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertStateFile, _ := s.db.Prepare(`INSERT OR REPLACE INTO state_files(game,turn,path,cells,plants,actors) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertStateFile != nil {
			_ = insertStateFile.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	// The pool has a single connection, so an idle open tx would starve
	// AppendTurn; commit as soon as the queue drains.
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		if insertStateFile != nil {
			if _, err := tx.Stmt(insertStateFile).Exec(r.GameID, int64(r.Turn), r.Path, r.Cells, r.Plants, r.Actors); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		flushIfNeeded()
	}

	commit()
}
