package nlu

import "fmt"

type Intent string

const (
	GoToCart     Intent = "go_to_cart"
	ShowProducts Intent = "show_products"
	Checkout     Intent = "checkout"
	AddToCart    Intent = "add_to_cart"
	Greeting     Intent = "greeting"
	Help         Intent = "help"
)

var Intents = []Intent{GoToCart, ShowProducts, Checkout, AddToCart, Greeting, Help}

func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// Rule maps phrase templates to one intent. A template holding "*" captures
// the text in that position as the slot.
type Rule struct {
	Intent   Intent
	Phrases  []string
	Feedback string
	// FeedbackFor, when set, builds the feedback from the captured slot.
	FeedbackFor func(slot string) string
}

func (r Rule) feedback(slot string) string {
	if r.FeedbackFor != nil {
		return r.FeedbackFor(slot)
	}
	return r.Feedback
}

const (
	NotUnderstood = "Sorry, I didn't understand that."
	HelpText      = "You can say things like: 'show products', 'go to cart', 'add headphones to cart', or 'checkout'."
)

// Rules is the command table in priority order.
var Rules = []Rule{
	{
		Intent: GoToCart,
		Phrases: []string{
			"go to cart",
			"show cart",
			"open cart",
			"take me to my cart",
			"cart page",
			"view cart",
			"show me my cart",
			"display cart",
			"cart",
			"shopping cart",
		},
		Feedback: "Navigating to your cart.",
	},
	{
		Intent: ShowProducts,
		Phrases: []string{
			"show products",
			"show me products",
			"browse products",
			"display products",
			"see products",
			"product list",
			"all products",
			"show all products",
			"products page",
			"see what's for sale",
			"what do you have",
			"what can I buy",
			"show me what's available",
		},
		Feedback: "Showing all products.",
	},
	{
		Intent: Checkout,
		Phrases: []string{
			"checkout",
			"proceed to checkout",
			"buy now",
			"finish my order",
			"place order",
			"complete purchase",
			"pay now",
			"go to checkout",
			"check out",
		},
		Feedback: "Taking you to checkout.",
	},
	{
		Intent: AddToCart,
		// Most specific first: "add *" would otherwise shadow "add the *".
		Phrases: []string{
			"please add * to my cart",
			"can you add * to my cart",
			"add the * to my cart",
			"put the * in my cart",
			"add * to my cart",
			"put * in my cart",
			"add * to cart",
			"put * in cart",
			"i want to buy *",
			"add the *",
			"add *",
			"i want *",
			"buy *",
		},
		FeedbackFor: func(product string) string {
			return fmt.Sprintf("Trying to add %s to your cart.", product)
		},
	},
	{
		Intent: Greeting,
		Phrases: []string{
			"hello",
			"hi",
			"hey",
			"good morning",
			"good afternoon",
			"good evening",
			"what's up",
			"how are you",
		},
		Feedback: "Hello! How can I help you today?",
	},
	{
		Intent: Help,
		Phrases: []string{
			"help",
			"what can i say",
			"what commands are there",
			"show help",
			"voice commands",
			"how do i use this",
			"what can you do",
		},
		Feedback: HelpText,
	},
}
