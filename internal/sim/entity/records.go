package entity

import (
	"encoding/json"
	"fmt"

	"gridlife.ai/internal/protocol"
	"gridlife.ai/internal/sim/geom"
)

// CellRecord is the serialized cell: type is always written as the symbolic
// name, and read from either the name or the integer code.
type CellRecord struct {
	Type      Terrain    `json:"type"`
	Coords    geom.Coord `json:"coords"`
	Elevation int        `json:"elevation"`
}

type PlantRecord struct {
	Type   string     `json:"type"`
	Health int        `json:"health"`
	Coords geom.Coord `json:"coords"`
}

type ActorRecord struct {
	ID     string     `json:"id"`
	Name   string     `json:"name,omitempty"`
	Script string     `json:"script,omitempty"`
	Health int        `json:"health"`
	Coords geom.Coord `json:"coords"`
}

// BadRecordError wraps a record that failed schema validation or decoding.
type BadRecordError struct {
	Kind string
	Err  error
}

func (e *BadRecordError) Error() string { return fmt.Sprintf("bad %s record: %v", e.Kind, e.Err) }
func (e *BadRecordError) Unwrap() error { return e.Err }
func (e *BadRecordError) Code() string  { return protocol.ErrBadRecord }

func decodeRecord(kind string, raw []byte, dst any) error {
	if err := protocol.ValidateRecord(kind, raw); err != nil {
		return &BadRecordError{Kind: kind, Err: err}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &BadRecordError{Kind: kind, Err: err}
	}
	return nil
}

// DecodeCell validates raw JSON against the cell schema and builds the cell.
func DecodeCell(raw []byte) (*Cell, error) {
	var r CellRecord
	if err := decodeRecord(protocol.RecordCell, raw, &r); err != nil {
		return nil, err
	}
	return CellFromRecord(r)
}

func DecodePlant(raw []byte) (*Plant, error) {
	var r PlantRecord
	if err := decodeRecord(protocol.RecordPlant, raw, &r); err != nil {
		return nil, err
	}
	return PlantFromRecord(r), nil
}

func DecodeActor(raw []byte) (*Actor, error) {
	var r ActorRecord
	if err := decodeRecord(protocol.RecordActor, raw, &r); err != nil {
		return nil, err
	}
	return ActorFromRecord(r), nil
}
