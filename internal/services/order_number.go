package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderNumberGenerator interface {
	Next() string
}

// TimestampOrderNumbers produces ORD-<utc millis timestamp>-<random hex>.
// Collisions are not retried, so the random suffix carries 40 bits.
type TimestampOrderNumbers struct {
	Now func() time.Time
}

func (g TimestampOrderNumbers) Next() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	random := uuid.New()
	suffix := strings.ToUpper(strings.ReplaceAll(random.String(), "-", ""))[:10]
	return "ORD-" + now().UTC().Format("20060102-150405.000") + "-" + suffix
}
