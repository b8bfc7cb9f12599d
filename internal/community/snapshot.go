package community

import (
	"encoding/json"
	"fmt"

	"communities.ooo/internal/ledger"
	"communities.ooo/internal/store"
)

const snapshotVersion = 1

// snapshot is the persisted form of the whole service state. Rank indexes are
// derived and rebuilt on restore.
type snapshot struct {
	Version int                  `json:"version"`
	Store   store.Snapshot       `json:"store"`
	Ledger  []ledger.Transaction `json:"ledger"`
}

// Snapshot serializes the current state.
func (s *Service) Snapshot() ([]byte, error) {
	return json.Marshal(s.capture())
}

func (s *Service) capture() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		Version: snapshotVersion,
		Store:   s.st.Snapshot(),
		Ledger:  s.led.Log(),
	}
}

// Restore replaces the current state with a snapshot taken by Snapshot.
func (s *Service) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("%w: %d", errSnapshotFormat, snap.Version)
	}
	st, err := store.Restore(snap.Store)
	if err != nil {
		return fmt.Errorf("restore store: %w", err)
	}
	if _, err := s.write(func() error {
		s.install(st, snap.Ledger)
		return nil
	}); err != nil {
		return err
	}
	s.log.WithField("transactions", len(snap.Ledger)).Info("state restored")
	return nil
}
