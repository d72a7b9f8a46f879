package email

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownKind = errors.New("unknown notification kind")

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
)

// Notification asks for one buyer-facing mail about an order.
type Notification struct {
	BuyerID     string `json:"buyer_id"`
	OrderNumber string `json:"order_number"`
	Kind        Kind   `json:"kind"`
	Total       string `json:"total,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func Render(n Notification) (Message, error) {
	if n.BuyerID == "" || n.OrderNumber == "" {
		return Message{}, errors.New("buyer_id and order_number are required")
	}

	msg := Message{To: n.BuyerID + "@example.com"}

	switch n.Kind {
	case KindConfirmation:
		msg.Subject = "Order confirmed: " + n.OrderNumber
		var b strings.Builder
		fmt.Fprintf(&b, "Thanks for your order %s.", n.OrderNumber)
		if n.Total != "" {
			fmt.Fprintf(&b, " You were charged $%s.", n.Total)
		}
		msg.Body = b.String()
	case KindCancellation:
		msg.Subject = "Order cancelled: " + n.OrderNumber
		msg.Body = fmt.Sprintf("Your order %s has been cancelled.", n.OrderNumber)
		if n.Reason != "" {
			msg.Body += " Reason: " + n.Reason + "."
		}
		msg.Body += " Any payment will be refunded to the original method."
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}

	return msg, nil
}
