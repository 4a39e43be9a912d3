package adapters

import (
	"strings"
	"time"
)

func parseTimeFlexible(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// uploadTime normalizes a lock file upload-time, written either as a TOML
// datetime or a string, to RFC 3339 in UTC. Unreadable values are dropped.
func uploadTime(value any) string {
	var parsed time.Time
	switch v := value.(type) {
	case time.Time:
		parsed = v.UTC()
	case string:
		parsed = parseTimeFlexible(v)
	}
	if parsed.IsZero() {
		return ""
	}
	return parsed.Format(time.RFC3339Nano)
}
