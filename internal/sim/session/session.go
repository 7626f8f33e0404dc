// Package session records the turns of one game: it captures the population
// after each turn, diffs it against the previous turn and hands the result to
// the persistence boundary.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridlife.ai/internal/persistence/archive"
	plog "gridlife.ai/internal/persistence/log"
	"gridlife.ai/internal/persistence/snapshot"
	"gridlife.ai/internal/sim/behaviour"
	"gridlife.ai/internal/sim/entity"
	"gridlife.ai/internal/sim/tuning"
)

// TurnSink is the persistence boundary. indexdb.SQLiteIndex implements it.
type TurnSink interface {
	AppendTurn(ctx context.Context, rec snapshot.TurnRecord) error
}

// TurnSource reads back what a TurnSink stored. to == 0 means no upper bound.
type TurnSource interface {
	Turns(ctx context.Context, game string, from, to uint64) ([]snapshot.TurnRecord, error)
}

// StateIndex is told about every state file the recorder writes.
type StateIndex interface {
	RecordStateFile(path string, st snapshot.StateV1)
}

type TurnWriter interface {
	WriteTurn(rec snapshot.TurnRecord) error
}

type DecisionWriter interface {
	WriteDecision(e plog.DecisionEntry) error
}

type Config struct {
	GameID string
	// A full dump is taken on the first turn and on every turn divisible by
	// SnapshotEvery. Zero means first turn only.
	SnapshotEvery int

	Sink TurnSink

	// Optional.
	StateDir string
	// State files on multiples of ArchiveEvery are copied under
	// StateDir/<game>/archives. Only applies when StateDir is set.
	ArchiveEvery int
	Index        StateIndex
	TurnLog      TurnWriter
	Decisions    DecisionWriter
	Logger       *log.Logger
}

// ConfigFor fills the dump and archive cadence from tu.
func ConfigFor(gameID string, tu tuning.Tuning, sink TurnSink) Config {
	return Config{
		GameID:        gameID,
		SnapshotEvery: tu.SnapshotEveryTurns,
		ArchiveEvery:  tu.ArchiveEveryTurns,
		Sink:          sink,
	}
}

type Recorder struct {
	cfg Config
	now func() time.Time

	mu   sync.Mutex
	prev *snapshot.StateV1
}

func NewRecorder(cfg Config) (*Recorder, error) {
	if cfg.GameID == "" {
		return nil, fmt.Errorf("session: empty game id")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("session: nil turn sink")
	}
	if cfg.SnapshotEvery < 0 {
		return nil, fmt.Errorf("session: snapshot_every must be >= 0")
	}
	return &Recorder{cfg: cfg, now: time.Now}, nil
}

func (r *Recorder) logf(format string, args ...any) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Printf(format, args...)
	}
}

// Last returns the state recorded most recently.
func (r *Recorder) Last() (snapshot.StateV1, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prev == nil {
		return snapshot.StateV1{}, false
	}
	return *r.prev, true
}

// Resume continues a game already stored in src.
func (r *Recorder) Resume(ctx context.Context, src TurnSource) error {
	recs, err := src.Turns(ctx, r.cfg.GameID, 0, 0)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	st, err := Rebuild(recs)
	if err != nil {
		return fmt.Errorf("resume %s: %w", r.cfg.GameID, err)
	}
	r.mu.Lock()
	r.prev = &st
	r.mu.Unlock()
	r.logf("resumed game=%s at turn=%d", r.cfg.GameID, st.Header.Turn)
	return nil
}

// Record captures pop as the state after turn and stores it. Turn numbers must
// increase. On a sink error nothing is remembered, so the turn can be retried.
func (r *Recorder) Record(ctx context.Context, turn uint64, pop snapshot.Population) (snapshot.TurnRecord, error) {
	st, err := snapshot.Capture(r.cfg.GameID, turn, pop)
	if err != nil {
		return snapshot.TurnRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	first := r.prev == nil
	if !first && turn <= r.prev.Header.Turn {
		return snapshot.TurnRecord{}, fmt.Errorf("session: turn %d after turn %d", turn, r.prev.Header.Turn)
	}

	base := snapshot.StateV1{Header: snapshot.Header{Version: snapshot.Version, GameID: r.cfg.GameID, Turn: turn}}
	if !first {
		base = *r.prev
	}
	rec := snapshot.TurnRecord{
		UUID:       uuid.NewString(),
		GameID:     r.cfg.GameID,
		Number:     turn,
		Diff:       snapshot.Diff(base, st),
		RecordedAt: r.now().UTC(),
	}
	dump := first || (r.cfg.SnapshotEvery > 0 && turn%uint64(r.cfg.SnapshotEvery) == 0)
	if dump {
		rec.Dump = &st
	}

	if err := r.cfg.Sink.AppendTurn(ctx, rec); err != nil {
		return snapshot.TurnRecord{}, fmt.Errorf("append turn %d: %w", turn, err)
	}
	r.prev = &st

	if r.cfg.TurnLog != nil {
		if err := r.cfg.TurnLog.WriteTurn(rec); err != nil {
			r.logf("turn log write failed game=%s turn=%d: %v", r.cfg.GameID, turn, err)
		}
	}
	if dump && r.cfg.StateDir != "" {
		path := filepath.Join(r.cfg.StateDir, r.cfg.GameID, fmt.Sprintf("%d.state.zst", turn))
		if err := snapshot.WriteState(path, st); err != nil {
			r.logf("state file write failed path=%s: %v", path, err)
		} else {
			if r.cfg.Index != nil {
				r.cfg.Index.RecordStateFile(path, st)
			}
			if epoch, dst, ok, err := archive.ArchiveEpochState(filepath.Dir(path), path, st, r.cfg.ArchiveEvery); err != nil {
				r.logf("archive failed path=%s: %v", path, err)
			} else if ok {
				r.logf("archived game=%s epoch=%d path=%s", r.cfg.GameID, epoch, dst)
			}
		}
	}
	return rec, nil
}

type Decision struct {
	ActorID string
	Action  any
	Matched bool
}

// Decide asks lib for each actor's action, in the order given. Each actor is
// evaluated once; decisions are logged when a DecisionWriter is configured.
func (r *Recorder) Decide(turn uint64, lib *behaviour.Library, actors []*entity.Actor) []Decision {
	out := make([]Decision, 0, len(actors))
	for _, a := range actors {
		if a == nil {
			continue
		}
		action, ok := lib.Select(a)
		d := Decision{ActorID: a.ID, Action: action, Matched: ok}
		out = append(out, d)
		if r.cfg.Decisions != nil {
			e := plog.DecisionEntry{GameID: r.cfg.GameID, Turn: turn, ActorID: d.ActorID, Action: d.Action, Matched: d.Matched}
			if err := r.cfg.Decisions.WriteDecision(e); err != nil {
				r.logf("decision log write failed game=%s turn=%d actor=%s: %v", r.cfg.GameID, turn, a.ID, err)
			}
		}
	}
	return out
}

var ErrNoDump = errors.New("session: no full dump to start from")

// Rebuild returns the state after the last record. Records must be in turn
// order and the first must carry a full dump.
func Rebuild(recs []snapshot.TurnRecord) (snapshot.StateV1, error) {
	var st snapshot.StateV1
	err := replay(recs, func(_ snapshot.TurnRecord, s snapshot.StateV1) error {
		st = s
		return nil
	})
	return st, err
}

// Verify replays recs and checks that every full dump after the first equals
// the state reached by applying diffs. It returns how many dumps were checked.
func Verify(recs []snapshot.TurnRecord) (int, error) {
	checked := 0
	var cur *snapshot.StateV1
	for i, rec := range recs {
		if i == 0 {
			if rec.Dump == nil {
				return 0, fmt.Errorf("%w: turn %d", ErrNoDump, rec.Number)
			}
			s := *rec.Dump
			cur = &s
			continue
		}
		next, err := snapshot.Apply(*cur, rec.Diff)
		if err != nil {
			return checked, fmt.Errorf("turn %d: %w", rec.Number, err)
		}
		if rec.Dump != nil {
			if !snapshot.Equal(next, *rec.Dump) {
				return checked, fmt.Errorf("turn %d: replayed diffs do not match the stored dump", rec.Number)
			}
			checked++
		}
		cur = &next
	}
	return checked, nil
}

// replay walks recs, calling fn with the state after each one. A record with
// a dump resets the state to that dump.
func replay(recs []snapshot.TurnRecord, fn func(rec snapshot.TurnRecord, st snapshot.StateV1) error) error {
	if len(recs) == 0 {
		return ErrNoDump
	}
	var cur *snapshot.StateV1
	for _, rec := range recs {
		switch {
		case rec.Dump != nil:
			s := *rec.Dump
			cur = &s
		case cur == nil:
			return fmt.Errorf("%w: turn %d", ErrNoDump, rec.Number)
		default:
			next, err := snapshot.Apply(*cur, rec.Diff)
			if err != nil {
				return fmt.Errorf("turn %d: %w", rec.Number, err)
			}
			cur = &next
		}
		if err := fn(rec, *cur); err != nil {
			return err
		}
	}
	return nil
}
