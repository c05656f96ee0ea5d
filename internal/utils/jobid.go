package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewJobID returns an identifier of the form job_YYYYMMDDHHMMSS_<8 hex chars>.
func NewJobID(now time.Time) string {
	unique := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("job_%s_%s", now.UTC().Format("20060102150405"), unique)
}
