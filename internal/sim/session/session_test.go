package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gridlife.ai/internal/persistence/indexdb"
	plog "gridlife.ai/internal/persistence/log"
	"gridlife.ai/internal/persistence/snapshot"
	"gridlife.ai/internal/sim/behaviour"
	"gridlife.ai/internal/sim/entity"
	"gridlife.ai/internal/sim/geom"
	"gridlife.ai/internal/sim/tuning"
)

type memSink struct {
	recs []snapshot.TurnRecord
	fail error
}

func (m *memSink) AppendTurn(_ context.Context, rec snapshot.TurnRecord) error {
	if m.fail != nil {
		return m.fail
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memSink) Turns(_ context.Context, game string, from, to uint64) ([]snapshot.TurnRecord, error) {
	var out []snapshot.TurnRecord
	for _, r := range m.recs {
		if r.GameID == game && r.Number >= from && (to == 0 || r.Number <= to) {
			out = append(out, r)
		}
	}
	return out, nil
}

type memDecisions struct{ entries []plog.DecisionEntry }

func (m *memDecisions) WriteDecision(e plog.DecisionEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func population(t *testing.T, tu tuning.Tuning) snapshot.Population {
	t.Helper()
	var cells []*entity.Cell
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			c, err := tu.NewCell(x, y)
			if err != nil {
				t.Fatalf("NewCell: %v", err)
			}
			cells = append(cells, c)
		}
	}
	a := tu.NewActor("A1", "ann", 1, 1)
	a.Script = "forager"
	return snapshot.Population{
		Cells:  cells,
		Plants: []*entity.Plant{tu.NewPlant(0, 0, ""), tu.NewPlant(2, 2, "NIGHTSHADE")},
		Actors: []*entity.Actor{a},
	}
}

func TestRecorder_DumpsAndRebuild(t *testing.T) {
	ctx := context.Background()
	tu := tuning.Defaults()
	sink := &memSink{}
	r, err := NewRecorder(Config{GameID: "g1", SnapshotEvery: 3, Sink: sink})
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	pop := population(t, tu)
	var last snapshot.StateV1
	for turn := uint64(1); turn <= 7; turn++ {
		pop.Actors[0].Place(geom.C(int(turn%3), 1))
		pop.Plants[0].Health -= 10
		if turn == 5 {
			pop.Plants = pop.Plants[:1]
		}
		rec, err := r.Record(ctx, turn, pop)
		if err != nil {
			t.Fatalf("Record %d: %v", turn, err)
		}
		if rec.UUID == "" {
			t.Fatalf("turn %d has no uuid", turn)
		}
		wantDump := turn == 1 || turn%3 == 0
		if (rec.Dump != nil) != wantDump {
			t.Fatalf("turn %d dump=%v want %v", turn, rec.Dump != nil, wantDump)
		}
		last, _ = r.Last()
	}

	if len(sink.recs) != 7 {
		t.Fatalf("records=%d want 7", len(sink.recs))
	}
	got, err := Rebuild(sink.recs)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !snapshot.Equal(got, last) {
		t.Fatalf("rebuilt state differs from the last recorded state")
	}
	if len(got.Plants) != 1 || got.Plants[0].Health != 30 {
		t.Fatalf("plants=%+v", got.Plants)
	}

	checked, err := Verify(sink.recs)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if checked != 2 {
		t.Fatalf("checked=%d want 2", checked)
	}

	if _, err := r.Record(ctx, 7, pop); err == nil {
		t.Fatalf("expected error for non-increasing turn")
	}
}

func TestRecorder_SinkFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	tu := tuning.Defaults()
	sink := &memSink{fail: errors.New("disk full")}
	r, _ := NewRecorder(Config{GameID: "g1", Sink: sink})

	if _, err := r.Record(ctx, 1, population(t, tu)); err == nil {
		t.Fatalf("expected sink error")
	}
	if _, ok := r.Last(); ok {
		t.Fatalf("failed turn must not be remembered")
	}
	sink.fail = nil
	rec, err := r.Record(ctx, 1, population(t, tu))
	if err != nil || rec.Dump == nil {
		t.Fatalf("retry: rec=%+v err=%v", rec, err)
	}
}

func TestVerify_DetectsTamperedDump(t *testing.T) {
	ctx := context.Background()
	tu := tuning.Defaults()
	sink := &memSink{}
	r, _ := NewRecorder(Config{GameID: "g1", SnapshotEvery: 2, Sink: sink})
	pop := population(t, tu)
	for turn := uint64(1); turn <= 2; turn++ {
		pop.Plants[0].Health--
		if _, err := r.Record(ctx, turn, pop); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	bad := *sink.recs[1].Dump
	bad.Plants = append([]entity.PlantRecord(nil), bad.Plants...)
	bad.Plants[0].Health = 1
	sink.recs[1].Dump = &bad
	if _, err := Verify(sink.recs); err == nil {
		t.Fatalf("expected mismatch")
	}
	if _, err := Rebuild(sink.recs[1:2]); err != nil {
		t.Fatalf("a dump alone should rebuild: %v", err)
	}
	noDump := sink.recs[1]
	noDump.Dump = nil
	if _, err := Rebuild([]snapshot.TurnRecord{noDump}); !errors.Is(err, ErrNoDump) {
		t.Fatalf("err=%v want ErrNoDump", err)
	}
}

func TestRecorder_Decide(t *testing.T) {
	lib := behaviour.NewLibrary(map[string]*behaviour.Behaviour{
		"forager": behaviour.New(
			behaviour.Func{Cond: func(a *entity.Actor) bool { return a.X() == 0 }, Action: "EAT"},
			behaviour.Func{Cond: func(*entity.Actor) bool { return true }, Action: "WANDER"},
		),
	})
	dec := &memDecisions{}
	r, _ := NewRecorder(Config{GameID: "g1", Sink: &memSink{}, Decisions: dec})

	a := entity.NewActor("A1", "", 0, 0)
	a.Script = "forager"
	b := entity.NewActor("A2", "", 3, 0)
	b.Script = "forager"
	c := entity.NewActor("A3", "", 0, 0)
	c.Script = "unknown"
	dead := entity.NewActor("A4", "", 0, 0)
	dead.Script = "forager"
	dead.Health = 0

	got := r.Decide(4, lib, []*entity.Actor{a, b, c, dead})
	want := []Decision{
		{ActorID: "A1", Action: "EAT", Matched: true},
		{ActorID: "A2", Action: "WANDER", Matched: true},
		{ActorID: "A3"},
		{ActorID: "A4"},
	}
	if len(got) != len(want) {
		t.Fatalf("decisions=%d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("decision %d=%+v want %+v", i, got[i], want[i])
		}
	}
	if len(dec.entries) != 4 || dec.entries[0].Turn != 4 || dec.entries[0].GameID != "g1" {
		t.Fatalf("logged=%+v", dec.entries)
	}
}

func TestRecorder_WithSQLiteAndFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tu := tuning.Defaults()

	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index", "turns.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()
	tl := plog.NewTurnLogger(filepath.Join(dir, "logs"))

	r, err := NewRecorder(Config{
		GameID:        "g1",
		SnapshotEvery: 2,
		Sink:          idx,
		StateDir:      filepath.Join(dir, "states"),
		ArchiveEvery:  2,
		Index:         idx,
		TurnLog:       tl,
	})
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	pop := population(t, tu)
	for turn := uint64(1); turn <= 3; turn++ {
		pop.Plants[1].Health -= 25
		if _, err := r.Record(ctx, turn, pop); err != nil {
			t.Fatalf("Record %d: %v", turn, err)
		}
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("turn log close: %v", err)
	}

	st, err := snapshot.ReadState(filepath.Join(dir, "states", "g1", "2.state.zst"))
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if st.Header.Turn != 2 {
		t.Fatalf("state header=%+v", st.Header)
	}
	if _, err := os.Stat(filepath.Join(dir, "states", "g1", "3.state.zst")); !os.IsNotExist(err) {
		t.Fatalf("turn 3 should not have a state file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "states", "g1", "archives", "epoch_001", "2.state.zst")); err != nil {
		t.Fatalf("turn 2 should be archived: %v", err)
	}

	logged, err := plog.ReadTurns(filepath.Join(dir, "logs"))
	if err != nil || len(logged) != 3 {
		t.Fatalf("logged=%d err=%v", len(logged), err)
	}

	// A fresh recorder picks up where the stored game left off.
	r2, _ := NewRecorder(ConfigFor("g1", tu, idx))
	if err := r2.Resume(ctx, idx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	prev, _ := r.Last()
	resumed, ok := r2.Last()
	if !ok || !snapshot.Equal(resumed, prev) {
		t.Fatalf("resumed state differs")
	}
	pop.Plants[1].Health = 0
	rec, err := r2.Record(ctx, 4, pop)
	if err != nil {
		t.Fatalf("Record after resume: %v", err)
	}
	if rec.Dump != nil || rec.Diff.FromTurn != 3 || len(rec.Diff.Plants) != 1 {
		t.Fatalf("diff after resume=%+v", rec.Diff)
	}
}
