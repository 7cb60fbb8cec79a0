package drivesync

import "github.com/2beens/gymtracker/internal/tracker"

type Winner int

const (
	LocalWins Winner = iota
	RemoteWins
)

func (w Winner) String() string {
	if w == RemoteWins {
		return "remote"
	}
	return "local"
}

// Resolve decides which of two timestamped snapshots is authoritative.
// Whole-document last-writer-wins; no per-item merge:
//   - an empty remote never wins, regardless of local
//   - a non-empty remote wins over an empty local (fresh device bootstrap)
//   - otherwise the newer updatedAt wins, with ties going to remote: the
//     remote copy already survived a successful round trip, so on equal
//     timestamps it is treated as at least as authoritative
//
// An absent updatedAt counts as 0.
func Resolve(local, remote tracker.Snapshot) Winner {
	if remote.Empty() {
		return LocalWins
	}
	if local.Empty() {
		return RemoteWins
	}
	if remote.UpdatedAt >= local.UpdatedAt {
		return RemoteWins
	}
	return LocalWins
}
