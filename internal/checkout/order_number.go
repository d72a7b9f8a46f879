package checkout

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber returns ORD-YYYYMMDDHHMMSS-XXXXXXXX with the timestamp in
// UTC and an upper-case random hex suffix.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "ORD-" + now.UTC().Format("20060102150405") + "-" + suffix
}
