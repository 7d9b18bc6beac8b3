package dialogue

import (
	"fmt"
	"strings"
	"time"
)

const (
	orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	OrderIDLength   = 8
	MinEtaDays      = 2
	MaxEtaDays      = 6

	// SpellPause separates the spelled characters of an order id.
	SpellPause = 250 * time.Millisecond
)

// Rand is satisfied by *math/rand/v2.Rand.
type Rand interface {
	IntN(n int) int
}

// NewOrder draws an id and a delivery estimate. Ids are not checked for
// uniqueness; nothing is persisted.
func NewOrder(rng Rand) Order {
	var b strings.Builder
	for range OrderIDLength {
		b.WriteByte(orderIDAlphabet[rng.IntN(len(orderIDAlphabet))])
	}
	return Order{
		ID:      b.String(),
		EtaDays: MinEtaDays + rng.IntN(MaxEtaDays-MinEtaDays+1),
	}
}

// Confirmation spells the order id one utterance per character: the
// main sentence, len(id) characters, then the estimate.
func Confirmation(address, payment string, o Order, pause time.Duration) []Utterance {
	out := make([]Utterance, 0, len(o.ID)+2)
	out = append(out, Utterance{Text: fmt.Sprintf(
		"Thank you! Your order will be shipped to %s. Payment method: %s. Your order ID is:", address, payment)})
	for i, ch := range o.ID {
		u := Utterance{Text: string(ch)}
		if i > 0 {
			u.Pause = pause
		}
		out = append(out, u)
	}
	out = append(out, Utterance{Text: etaText(o.EtaDays), Pause: pause})
	return out
}

func ConfirmationText(address, payment string, o Order) string {
	return fmt.Sprintf("Thank you! Your order will be shipped to %s. Payment method: %s. Your order ID is %s. %s",
		address, payment, o.ID, etaText(o.EtaDays))
}

func etaText(days int) string {
	return fmt.Sprintf("Estimated delivery: %d days.", days)
}
