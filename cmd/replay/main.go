package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"gridlife.ai/internal/persistence/indexdb"
	plog "gridlife.ai/internal/persistence/log"
	"gridlife.ai/internal/persistence/snapshot"
	"gridlife.ai/internal/protocol"
	"gridlife.ai/internal/sim/session"
	"gridlife.ai/internal/sim/tuning"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to a .state.zst file (optional)")
		dbPath     = flag.String("db", "", "turn index sqlite path (optional)")
		logsDir    = flag.String("logs", "", "game log dir containing turns/turns-*.jsonl.zst (optional, used when -db is empty)")
		game       = flag.String("game", "", "game id; lists games when empty")
		toTurn     = flag.Uint64("to_turn", 0, "stop at turn (inclusive, optional)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "tuning file used to classify plants")
	)
	flag.Parse()

	if *snapPath == "" && *dbPath == "" && *logsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot, -db or -logs")
		os.Exit(2)
	}

	tu, err := tuning.Load(*tuningPath)
	if os.IsNotExist(err) {
		tu, err = tuning.Defaults(), nil
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	if *snapPath != "" {
		st, err := snapshot.ReadState(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		var size uint64
		if fi, err := os.Stat(*snapPath); err == nil {
			size = uint64(fi.Size())
		}
		fmt.Printf("snapshot v%d game=%s turn=%d size=%s\n", st.Header.Version, st.Header.GameID, st.Header.Turn, humanize.Bytes(size))
		printState(st, tu)
	}

	var recs []snapshot.TurnRecord
	switch {
	case *dbPath != "":
		recs, err = loadFromDB(*dbPath, *game, *toTurn)
	case *logsDir != "":
		recs, err = loadFromLogs(*logsDir, *game, *toTurn)
	default:
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "load turns:", protocol.CodeOf(err), err)
		os.Exit(1)
	}
	if *game == "" {
		return
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no turns found for game", *game)
		os.Exit(1)
	}

	dumps := 0
	for _, r := range recs {
		if r.Dump != nil {
			dumps++
		}
	}
	checked, err := session.Verify(recs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "verify:", err)
		os.Exit(1)
	}
	st, err := session.Rebuild(recs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rebuild:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: game=%s turns=%s dumps=%d checked=%d first=%d last=%d\n",
		*game, humanize.Comma(int64(len(recs))), dumps, checked, recs[0].Number, st.Header.Turn)
	printState(st, tu)
}

func loadFromDB(path, game string, toTurn uint64) ([]snapshot.TurnRecord, error) {
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	ctx := context.Background()
	if game == "" {
		games, err := idx.Games(ctx)
		if err != nil {
			return nil, err
		}
		for _, g := range games {
			latest, err := idx.LatestTurn(ctx, g)
			if err != nil {
				return nil, err
			}
			fmt.Printf("game=%s latest_turn=%d recorded=%s\n", g, latest.Number, humanize.Time(latest.RecordedAt))
		}
		return nil, nil
	}
	return idx.Turns(ctx, game, 0, toTurn)
}

func loadFromLogs(dir, game string, toTurn uint64) ([]snapshot.TurnRecord, error) {
	all, err := plog.ReadTurns(dir)
	if err != nil {
		return nil, err
	}
	var out []snapshot.TurnRecord
	seen := map[string]bool{}
	for _, r := range all {
		if game == "" {
			if !seen[r.GameID] {
				seen[r.GameID] = true
				fmt.Printf("game=%s\n", r.GameID)
			}
			continue
		}
		if r.GameID != game || (toTurn != 0 && r.Number > toTurn) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func printState(st snapshot.StateV1, tu tuning.Tuning) {
	pop, err := tu.Restore(st)
	if err != nil {
		fmt.Fprintln(os.Stderr, "restore:", err)
		os.Exit(1)
	}
	var food, deadly, alivePlants, aliveActors, water int
	for _, c := range pop.Cells {
		if c.Flags().Water {
			water++
		}
	}
	for _, p := range pop.Plants {
		f := p.Flags()
		if f.Food {
			food++
		}
		if f.Deadly {
			deadly++
		}
		if p.Alive() {
			alivePlants++
		}
	}
	for _, a := range pop.Actors {
		if a.Alive() {
			aliveActors++
		}
	}
	fmt.Printf("cells=%d water=%d plants=%d alive=%d food=%d deadly=%d actors=%d alive=%d\n",
		len(pop.Cells), water, len(pop.Plants), alivePlants, food, deadly, len(pop.Actors), aliveActors)
}
