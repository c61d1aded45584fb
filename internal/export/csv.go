package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/focus/internal/store"
)

func ToCSV(logs []store.SessionLog, refs Refs, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Session", "Type", "Task", "Project", "Start", "End", "Expected (min)", "Actual (min)", "Duration"}); err != nil {
		return err
	}

	for _, l := range logs {
		task, project := refs.names(l)
		row := []string{
			strconv.FormatInt(l.ID, 10),
			l.SessionID,
			string(l.Type),
			task,
			project,
			l.StartTime.Local().Format(time.RFC3339),
			l.EndTime.Local().Format(time.RFC3339),
			strconv.Itoa(l.ExpectedMinutes),
			strconv.Itoa(l.ActualMinutes),
			formatMinutes(l.ActualMinutes),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatMinutes(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
