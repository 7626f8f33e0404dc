package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"gridlife.ai/internal/protocol"
	"gridlife.ai/internal/sim/entity"
	"gridlife.ai/internal/sim/geom"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	GameID  string `json:"game_id"`
	Turn    uint64 `json:"turn"`
}

// StateV1 is a full dump of every inhabitant at the end of a turn. Records
// are kept in canonical order: cells and plants by (x, y), actors by id.
type StateV1 struct {
	Header Header `json:"header"`

	Cells  []entity.CellRecord  `json:"cells"`
	Plants []entity.PlantRecord `json:"plants"`
	Actors []entity.ActorRecord `json:"actors"`
}

// Population is the live form of a StateV1.
type Population struct {
	Cells  []*entity.Cell
	Plants []*entity.Plant
	Actors []*entity.Actor
}

// Capture records pop as the state of turn. The world keeps at most one cell
// and one plant per coordinate, and actor ids are unique; a violation is an
// error rather than a silently lossy dump.
func Capture(gameID string, turn uint64, pop Population) (StateV1, error) {
	s := StateV1{
		Header: Header{Version: Version, GameID: gameID, Turn: turn},
		Cells:  make([]entity.CellRecord, 0, len(pop.Cells)),
		Plants: make([]entity.PlantRecord, 0, len(pop.Plants)),
		Actors: make([]entity.ActorRecord, 0, len(pop.Actors)),
	}
	for _, c := range pop.Cells {
		if c != nil {
			s.Cells = append(s.Cells, c.Record())
		}
	}
	for _, p := range pop.Plants {
		if p != nil {
			s.Plants = append(s.Plants, p.Record())
		}
	}
	for _, a := range pop.Actors {
		if a != nil {
			s.Actors = append(s.Actors, a.Record())
		}
	}
	s.sort()
	if err := s.checkUnique(); err != nil {
		return StateV1{}, err
	}
	return s, nil
}

// RestoreOptions carries what records do not: the species catalog plants
// consult for their flags, and the wrap modulus. Zero values keep the entity
// defaults (DefaultCatalog, DefaultWrap).
type RestoreOptions struct {
	Catalog entity.SpeciesCatalog
	Wrap    int
}

// Restore rebuilds live entities from records alone, with entity defaults.
func Restore(s StateV1) (Population, error) {
	return RestoreWith(s, RestoreOptions{})
}

// RestoreWith rebuilds live entities and applies opts to every one of them.
func RestoreWith(s StateV1, opts RestoreOptions) (Population, error) {
	pop := Population{
		Cells:  make([]*entity.Cell, 0, len(s.Cells)),
		Plants: make([]*entity.Plant, 0, len(s.Plants)),
		Actors: make([]*entity.Actor, 0, len(s.Actors)),
	}
	for _, r := range s.Cells {
		c, err := entity.CellFromRecord(r)
		if err != nil {
			return Population{}, fmt.Errorf("cell at %s: %w", r.Coords, err)
		}
		opts.place(&c.Placement)
		pop.Cells = append(pop.Cells, c)
	}
	for _, r := range s.Plants {
		p := entity.PlantFromRecord(r)
		opts.place(&p.Placement)
		if opts.Catalog != nil {
			p.UseCatalog(opts.Catalog)
		}
		pop.Plants = append(pop.Plants, p)
	}
	for _, r := range s.Actors {
		a := entity.ActorFromRecord(r)
		opts.place(&a.Placement)
		pop.Actors = append(pop.Actors, a)
	}
	return pop, nil
}

func (o RestoreOptions) place(p *entity.Placement) {
	if o.Wrap > 0 {
		p.Wrap = o.Wrap
	}
}

func lessCoord(a, b geom.Coord) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

func (s *StateV1) sort() {
	sort.Slice(s.Cells, func(i, j int) bool { return lessCoord(s.Cells[i].Coords, s.Cells[j].Coords) })
	sort.Slice(s.Plants, func(i, j int) bool { return lessCoord(s.Plants[i].Coords, s.Plants[j].Coords) })
	sort.Slice(s.Actors, func(i, j int) bool { return s.Actors[i].ID < s.Actors[j].ID })
}

// checkUnique assumes s is sorted.
func (s StateV1) checkUnique() error {
	for i := 1; i < len(s.Cells); i++ {
		if s.Cells[i].Coords == s.Cells[i-1].Coords {
			return fmt.Errorf("duplicate cell at %s", s.Cells[i].Coords)
		}
	}
	for i := 1; i < len(s.Plants); i++ {
		if s.Plants[i].Coords == s.Plants[i-1].Coords {
			return fmt.Errorf("duplicate plant at %s", s.Plants[i].Coords)
		}
	}
	for i := range s.Actors {
		if s.Actors[i].ID == "" {
			return fmt.Errorf("actor without id at %s", s.Actors[i].Coords)
		}
		if i > 0 && s.Actors[i].ID == s.Actors[i-1].ID {
			return fmt.Errorf("duplicate actor id %s", s.Actors[i].ID)
		}
	}
	return nil
}

// DecodeStateJSON validates raw against the state schema and decodes it.
func DecodeStateJSON(raw []byte) (StateV1, error) {
	var s StateV1
	if err := protocol.ValidateRecord(protocol.RecordState, raw); err != nil {
		return s, &entity.BadRecordError{Kind: protocol.RecordState, Err: err}
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, &entity.BadRecordError{Kind: protocol.RecordState, Err: err}
	}
	s.sort()
	if err := s.checkUnique(); err != nil {
		return StateV1{}, &entity.BadRecordError{Kind: protocol.RecordState, Err: err}
	}
	return s, nil
}

func WriteState(path string, s StateV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(s.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&s); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

func ReadState(path string) (StateV1, error) {
	var s StateV1
	f, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return s, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for tools; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return s, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&s); err != nil {
		return s, fmt.Errorf("gob decode: %w", err)
	}
	return s, nil
}

// ReadHeader decodes only the leading header line of a state file.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}
