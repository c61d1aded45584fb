package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/focus/internal/store"
)

type jsonExport struct {
	ExportedAt   string        `json:"exported_at"`
	Count        int           `json:"count"`
	TotalMinutes int           `json:"total_minutes"`
	Sessions     []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID              int64  `json:"id"`
	SessionID       string `json:"session_id"`
	Type            string `json:"type"`
	TaskID          *int64 `json:"task_id,omitempty"`
	Task            string `json:"task,omitempty"`
	Project         string `json:"project,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	ExpectedMinutes int    `json:"expected_minutes"`
	ActualMinutes   int    `json:"actual_minutes"`
	Duration        string `json:"duration"`
}

func ToJSON(logs []store.SessionLog, refs Refs, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(logs),
		Sessions:   []jsonSession{},
	}

	for _, l := range logs {
		task, project := refs.names(l)
		export.TotalMinutes += l.ActualMinutes
		export.Sessions = append(export.Sessions, jsonSession{
			ID:              l.ID,
			SessionID:       l.SessionID,
			Type:            string(l.Type),
			TaskID:          l.TaskID,
			Task:            task,
			Project:         project,
			StartTime:       l.StartTime.Local().Format(time.RFC3339),
			EndTime:         l.EndTime.Local().Format(time.RFC3339),
			ExpectedMinutes: l.ExpectedMinutes,
			ActualMinutes:   l.ActualMinutes,
			Duration:        formatMinutes(l.ActualMinutes),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
