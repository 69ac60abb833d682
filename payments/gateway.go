package payments

import (
	"context"
	"errors"
)

var ErrUnknownStatus = errors.New("unrecognized gateway transaction status")

type TransactionRequest struct {
	OrderID       string
	Amount        int64
	CustomerName  string
	CustomerEmail string
	ItemID        string
	ItemName      string
}

type Transaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	Reference   string `json:"reference"`
}

// Notification is a gateway status report, either pushed to the webhook
// or pulled with GetStatus. Raw keeps the exact bytes for audit.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	TransactionTime   string `json:"transaction_time"`

	Raw []byte `json:"-"`
}

type Gateway interface {
	Name() string
	CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error)
	GetStatus(ctx context.Context, reference string) (*Notification, error)
	VerifySignature(n *Notification) bool
}

type Outcome int

const (
	// OutcomeNone leaves the payment where it is.
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

const (
	StatusCapture           = "capture"
	StatusSettlement        = "settlement"
	StatusPending           = "pending"
	StatusAuthorize         = "authorize"
	StatusDeny              = "deny"
	StatusCancel            = "cancel"
	StatusExpire            = "expire"
	StatusFailure           = "failure"
	StatusRefund            = "refund"
	StatusPartialRefund     = "partial_refund"
	StatusChargeback        = "chargeback"
	StatusPartialChargeback = "partial_chargeback"

	FraudAccept    = "accept"
	FraudChallenge = "challenge"
	FraudDeny      = "deny"
)

var knownStatuses = map[string]bool{
	StatusCapture: true, StatusSettlement: true, StatusPending: true,
	StatusAuthorize: true, StatusDeny: true, StatusCancel: true,
	StatusExpire: true, StatusFailure: true, StatusRefund: true,
	StatusPartialRefund: true, StatusChargeback: true, StatusPartialChargeback: true,
}

// Classify maps a gateway report to an outcome. Statuses outside the
// gateway's documented set are an error, never a success.
func Classify(n *Notification) (Outcome, error) {
	if !knownStatuses[n.TransactionStatus] {
		return OutcomeNone, ErrUnknownStatus
	}

	switch n.TransactionStatus {
	case StatusSettlement, StatusCapture:
		switch n.FraudStatus {
		case FraudAccept:
			return OutcomeSuccess, nil
		case "":
			// non-card channels omit fraud_status on settlement
			if n.TransactionStatus == StatusSettlement {
				return OutcomeSuccess, nil
			}
			return OutcomeNone, nil
		case FraudDeny:
			return OutcomeFailed, nil
		default:
			return OutcomeNone, nil
		}
	case StatusDeny, StatusCancel, StatusExpire, StatusFailure:
		return OutcomeFailed, nil
	default:
		return OutcomeNone, nil
	}
}
