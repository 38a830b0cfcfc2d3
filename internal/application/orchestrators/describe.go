package orchestrators

import (
	"log/slog"
	"slices"
	"strings"
)

// changedFields lists the patched field names for an activity's details.
func changedFields(fields map[string]any) string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	slices.Sort(names)
	return "Changed " + strings.Join(names, ", ")
}

// warnActivity logs a failed activity append. The mutation it describes has already happened.
func warnActivity(action any, err error) {
	slog.Warn("activity_append_failed", "action", action, "error", err)
}
