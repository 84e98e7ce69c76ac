package invoices

import (
	"strconv"
	"strings"
	"time"
)

const numberPrefix = "INV-"

// NextNumber derives a human-readable invoice number from the creation
// instant. Nanosecond resolution keeps numbers unique in practice; the
// column's unique index backstops a collision.
func NextNumber(now time.Time) string {
	return numberPrefix + strings.ToUpper(strconv.FormatInt(now.UnixNano(), 36))
}
