package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber returns ORD-<yyyymmdd>-<12 hex chars of a random uuid>.
// Uniqueness is enforced by the orders_order_number_key constraint; a
// collision makes the transaction retry with a fresh number.
func NewOrderNumber(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(id[:12]))
}
