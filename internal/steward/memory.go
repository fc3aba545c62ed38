package steward

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

const maxRecords = 10

// CycleRecord captures what happened in a single steward cycle.
type CycleRecord struct {
	Frame     uint64    `json:"frame"`
	At        time.Time `json:"at"`
	Action    string    `json:"action"`
	Preset    string    `json:"preset,omitempty"`
	Rule      string    `json:"rule,omitempty"`
	Rationale string    `json:"rationale,omitempty"`
}

// Memory is a ring of recent cycle records kept in a json file.
type Memory struct {
	path    string
	Records []CycleRecord `json:"records"`
}

// LoadMemory reads the memory file. Returns empty memory if it is missing
// or unreadable.
func LoadMemory(path string) *Memory {
	m := &Memory{path: path}
	if path == "" {
		return m
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	if err := json.Unmarshal(data, m); err != nil {
		slog.Warn("steward memory corrupted, starting fresh", "error", err)
		return &Memory{path: path}
	}
	return m
}

// Save writes the memory to disk. Memory without a path is not saved.
func (m *Memory) Save() {
	if m.path == "" {
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal steward memory", "error", err)
		return
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		slog.Error("failed to write steward memory", "error", err)
	}
}

// Record adds a cycle record, trimming to maxRecords.
func (m *Memory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// LastApplied returns the most recently applied preset.
func (m *Memory) LastApplied() string {
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].Action == "preset" {
			return m.Records[i].Preset
		}
	}
	return ""
}
