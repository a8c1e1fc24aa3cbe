package itemsync

import (
	"fmt"
	"time"

	"github.com/notesync/transition-core/internal/domain"
)

// acceptedDateLayouts are tried in order when a hash supplies the
// date-string form of a timestamp instead of the microsecond form.
var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
}

// resolveTimestamps implements §4.6's timestamp rule: prefer the
// microsecond forms when both are present, otherwise parse the
// date-string forms. The asymmetric fallback (updated_at_timestamp
// present but not created_at_timestamp still accepts the string form)
// is preserved per the open question in §9.
func resolveTimestamps(hash domain.ItemHash) (domain.Timestamps, error) {
	var ts domain.Timestamps

	if hash.HasMicrosecondTimestamps() {
		ts.CreatedAt = *hash.CreatedAtTimestamp
		ts.UpdatedAt = *hash.UpdatedAtTimestamp
	} else {
		created, err := resolveOneTimestamp(hash.CreatedAtTimestamp, hash.CreatedAt)
		if err != nil {
			return ts, fmt.Errorf("resolve created_at: %w", err)
		}
		updated, err := resolveOneTimestamp(hash.UpdatedAtTimestamp, hash.UpdatedAt)
		if err != nil {
			return ts, fmt.Errorf("resolve updated_at: %w", err)
		}
		ts.CreatedAt = created
		ts.UpdatedAt = updated
	}

	if !ts.Valid() {
		return ts, fmt.Errorf("constructed timestamps are inconsistent: updatedAt %d precedes createdAt %d", ts.UpdatedAt, ts.CreatedAt)
	}
	return ts, nil
}

func resolveOneTimestamp(microseconds *int64, dateString *string) (int64, error) {
	if microseconds != nil {
		return *microseconds, nil
	}
	if dateString == nil {
		return 0, fmt.Errorf("neither microsecond nor date-string form present")
	}
	return parseDateToMicros(*dateString)
}

func parseDateToMicros(s string) (int64, error) {
	var lastErr error
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMicro(), nil
		} else {
			lastErr = err
		}
	}
	return 0, fmt.Errorf("unparseable date %q: %w", s, lastErr)
}

func formatDate(microseconds int64) string {
	return time.UnixMicro(microseconds).UTC().Format(time.RFC3339Nano)
}
