package snapshot

import "time"

// TurnRecord is what the persistence boundary stores per turn of a game:
// always a diff against the previous turn, and a full dump when one was taken.
type TurnRecord struct {
	UUID       string    `json:"uuid"`
	GameID     string    `json:"game_id"`
	Number     uint64    `json:"number"`
	Dump       *StateV1  `json:"delta_dump,omitempty"`
	Diff       DiffV1    `json:"diff"`
	RecordedAt time.Time `json:"recorded_at"`
}
