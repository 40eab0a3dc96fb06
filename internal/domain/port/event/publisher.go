package event

import (
	"context"
	"time"
)

// PaymentStatus is the outcome carried by a payment event
type PaymentStatus string

// Payment event statuses
const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// PaymentEvent describes the outcome of one payment submission
type PaymentEvent struct {
	SubmissionID string        `json:"submissionId"`
	UserID       string        `json:"userId"`
	ReceiverID   string        `json:"receiverId,omitempty"`
	Type         string        `json:"type"`
	Amount       int64         `json:"amount"`
	Status       PaymentStatus `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	OccurredAt   time.Time     `json:"occurredAt"`
}

// Topic returns the routing key of the event, e.g. payment.completed
func (e PaymentEvent) Topic() string {
	return "payment." + string(e.Status)
}

// Publisher delivers payment events to a broker
type Publisher interface {
	PublishPaymentEvent(ctx context.Context, evt PaymentEvent) error
	Close() error
}
