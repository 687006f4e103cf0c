package rowmodel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// GroupState is the persisted expand/collapse state of group rows.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "expanded": {
//	    "Europe": true,
//	    "Europe|France": false
//	  }
//	}
//
// Keys are group key paths. Paths that no longer exist are ignored on load.
type GroupState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
}

// GroupStateVersion is the current schema version.
const GroupStateVersion = 1

// groupState snapshots group expansion before a reload, when configured to.
func (m *ClientSideRowModel) groupState() map[string]bool {
	if !m.grid.RememberGroupStateWhenNewData || len(m.root.ChildrenAfterGroup) == 0 {
		return nil
	}
	return m.snapshotGroupState()
}

func (m *ClientSideRowModel) snapshotGroupState() map[string]bool {
	state := make(map[string]bool)
	model.ForEachGroupWithKey(m.root, func(n *model.RowNode, key string) {
		state[key] = n.Expanded
	})
	return state
}

// restoreGroupState applies state to groups whose key path it names. Other
// groups keep the expansion the group stage gave them.
func (m *ClientSideRowModel) restoreGroupState(state map[string]bool) {
	model.ForEachGroupWithKey(m.root, func(n *model.RowNode, key string) {
		if expanded, ok := state[key]; ok {
			n.Expanded = expanded
		}
	})
}

// GetGroupState returns the expansion of every group keyed by key path.
func (m *ClientSideRowModel) GetGroupState() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotGroupState()
}

// SaveGroupState writes the expansion of every group to path.
func (m *ClientSideRowModel) SaveGroupState(path string) error {
	state := GroupState{
		Version:  GroupStateVersion,
		Expanded: m.GetGroupState(),
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal group state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create group state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write group state: %w", err)
	}
	return nil
}

// LoadGroupState reads path and applies it to the current groups, or to
// the groups built by the next load when no rows are loaded yet. A missing
// file is not an error.
func (m *ClientSideRowModel) LoadGroupState(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read group state: %w", err)
	}

	var state GroupState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parse group state %s: %w", path, err)
	}
	if state.Version > GroupStateVersion {
		m.log.WithField("version", state.Version).Warn("group state written by a newer version; ignoring it")
		return nil
	}

	m.locked(func() {
		if len(m.root.AllLeafChildren) == 0 {
			m.pendingGroupState = state.Expanded
			return
		}
		m.restoreGroupState(state.Expanded)
		m.refreshModel(RefreshParams{Step: StepMap, KeepRenderedRows: true})
	})
	return nil
}
