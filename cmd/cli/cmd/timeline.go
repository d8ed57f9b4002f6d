package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/eqsat/eqsat/pkg/model"
)

// printTimelineJSON writes timeline to stdout as indented JSON.
func printTimelineJSON(timeline *model.Timeline) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(timeline); err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	return nil
}
