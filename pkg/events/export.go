package events

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ExportJSON writes the given events to w as a JSON array with all
// fields.
func ExportJSON(w io.Writer, events []Event) error {
	return json.NewEncoder(w).Encode(events)
}

// ExportCSV writes events to w as "timestamp,type,action,actor_id,scope".
func ExportCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "type", "action", "actor_id", "scope"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range events {
		row := []string{
			e.Timestamp.Format(time.RFC3339Nano),
			string(e.Type),
			e.Action,
			e.Actor.ID,
			e.Scope,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
