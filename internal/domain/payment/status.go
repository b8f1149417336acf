package payment

import "fmt"

// Status is the lifecycle state of a payment attempt
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// ParseStatus converts a stored status string into a Status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown payment status %q", s)
	}
}

// IsTerminal reports whether no further transition is accepted from s
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// IsNegative reports whether s ends the attempt without a payment
func (s Status) IsNegative() bool {
	return s == StatusFailed || s == StatusCancelled || s == StatusExpired
}

// CanTransition reports whether s may move to next. Only edges out of pending
// exist; pending to pending is a snapshot refresh.
func (s Status) CanTransition(next Status) bool {
	if s != StatusPending {
		return false
	}
	_, err := ParseStatus(string(next))
	return err == nil
}

// Gateway transaction_status values
const (
	GatewaySettlement = "settlement"
	GatewayCapture    = "capture"
	GatewayPending    = "pending"
	GatewayDeny       = "deny"
	GatewayCancel     = "cancel"
	GatewayExpire     = "expire"

	FraudAccept    = "accept"
	FraudChallenge = "challenge"
	FraudDeny      = "deny"
)

// FromGatewayStatus maps a gateway transaction_status (and fraud_status for card
// captures) onto an internal status. ok is false for statuses that carry no
// transition and are only kept as an audit snapshot.
func FromGatewayStatus(transactionStatus, fraudStatus string) (status Status, ok bool) {
	switch transactionStatus {
	case GatewaySettlement:
		return StatusCompleted, true
	case GatewayCapture:
		switch fraudStatus {
		case FraudDeny:
			return StatusFailed, true
		case FraudChallenge:
			return StatusPending, true
		default:
			return StatusCompleted, true
		}
	case GatewayPending:
		return StatusPending, true
	case GatewayDeny:
		return StatusFailed, true
	case GatewayCancel:
		return StatusCancelled, true
	case GatewayExpire:
		return StatusExpired, true
	default:
		return "", false
	}
}
