// README: Courier aggregate and KYC status definitions.
package courier

import (
	"time"

	"fleet/internal/types"
)

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

type Courier struct {
	ID          types.ID
	VehicleType string
	KYC         KYCStatus
	Online      bool
	// Location is nil until the first ping; matching never substitutes a
	// default coordinate for a courier that has not reported one.
	Location  *types.Point
	CreatedAt time.Time
	UpdatedAt time.Time
}
