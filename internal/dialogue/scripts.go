package dialogue

import (
	"time"

	"echomarket/internal/shop"
)

const (
	FieldUsername = "username"
	FieldPassword = "password"
	FieldAddress  = "address"
	FieldPayment  = "payment"
)

func SignIn() *Script {
	return &Script{
		Name: "signin",
		Prompts: []Prompt{
			{Text: "Please say your username.", Field: FieldUsername, Stage: AwaitUsername},
			{Text: "Please say your password.", Field: FieldPassword, Stage: AwaitPassword},
		},
		CancelAck:       "Sign in cancelled.",
		CompletingStage: SignInCompleting,
		DoneStage:       SignInCompleting,
		Confirm: func(map[string]string) ([]Utterance, *Order) {
			return []Utterance{{Text: "Signing you in now."}}, nil
		},
	}
}

// Checkout reads the cart back, asks for address and payment, then confirms
// the order. An empty cart only gets the summary.
func Checkout(items []shop.Item, rng Rand, pause time.Duration) *Script {
	sc := &Script{
		Name:            "checkout",
		Intro:           []Utterance{{Text: shop.Summary(items)}},
		IntroStage:      Summarizing,
		CancelAck:       "Checkout cancelled.",
		CompletingStage: Confirming,
		DoneStage:       Done,
	}
	if len(items) == 0 {
		return sc
	}

	sc.Prompts = []Prompt{
		{Text: "Please say your shipping address after the beep.", Field: FieldAddress, Stage: AwaitAddress, Cue: true},
		{Text: "How would you like to pay? Say cash or credit card.", Field: FieldPayment, Stage: AwaitPayment},
	}
	sc.Confirm = func(fields map[string]string) ([]Utterance, *Order) {
		order := NewOrder(rng)
		address, payment := fields[FieldAddress], fields[FieldPayment]
		order.Confirmation = ConfirmationText(address, payment, order)
		return Confirmation(address, payment, order, pause), &order
	}
	return sc
}
