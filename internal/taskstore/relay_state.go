package taskstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// RelayState remembers which GitLab notes of an MR were already forwarded to
// the review service.
type RelayState struct {
	ReviewID  string `json:"reviewId"`
	Forwarded []int  `json:"forwardedNoteIds"`
}

func (s *RelayState) IsForwarded(noteID int) bool {
	for _, id := range s.Forwarded {
		if id == noteID {
			return true
		}
	}
	return false
}

func (s *RelayState) MarkForwarded(noteID int) {
	if s.IsForwarded(noteID) {
		return
	}
	s.Forwarded = append(s.Forwarded, noteID)
	sort.Ints(s.Forwarded)
}

func (s *FileStore) relayStatePath(iid int) string {
	return filepath.Join(s.dir, fmt.Sprintf("review-relay-%d.json", iid))
}

// LoadRelayState returns an empty state when the MR was never synced.
func (s *FileStore) LoadRelayState(iid int) (*RelayState, error) {
	state := &RelayState{}
	data, err := os.ReadFile(s.relayStatePath(iid))
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, fmt.Errorf("error reading relay state: %w", err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("error decoding relay state: %w", err)
	}
	return state, nil
}

func (s *FileStore) SaveRelayState(iid int, state *RelayState) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("error creating %s: %w", s.dir, err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding relay state: %w", err)
	}
	if err := os.WriteFile(s.relayStatePath(iid), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("error writing relay state: %w", err)
	}
	return nil
}
