package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gridlife.ai/internal/persistence/snapshot"
)

type EpochArchiveMeta struct {
	Epoch      int    `json:"epoch"`
	GameID     string `json:"game_id"`
	EndTurn    uint64 `json:"end_turn"`
	EpochTurns int    `json:"epoch_turns"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
	Cells      int    `json:"cells"`
	Plants     int    `json:"plants"`
	Actors     int    `json:"actors"`
}

// ArchiveEpochState copies the state file written at the end of an epoch into
// `gameDir/archives/epoch_<NNN>/`. Epoch k ends at turn epochTurns*k; other
// turns are not archived and return archived=false.
func ArchiveEpochState(gameDir, statePath string, st snapshot.StateV1, epochTurns int) (epoch int, archivedPath string, archived bool, err error) {
	if epochTurns <= 0 {
		return 0, "", false, nil
	}
	turn := st.Header.Turn
	if turn == 0 || turn%uint64(epochTurns) != 0 {
		return 0, "", false, nil
	}
	epoch = int(turn / uint64(epochTurns))

	archiveDir := filepath.Join(gameDir, "archives", fmt.Sprintf("epoch_%03d", epoch))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(statePath))
	if err := copyFile(statePath, dst); err != nil {
		return 0, "", false, err
	}

	meta := EpochArchiveMeta{
		Epoch:      epoch,
		GameID:     st.Header.GameID,
		EndTurn:    turn,
		EpochTurns: epochTurns,
		Snapshot:   filepath.Base(dst),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Cells:      len(st.Cells),
		Plants:     len(st.Plants),
		Actors:     len(st.Actors),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return epoch, dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
