package nlu

import "echomarket/pkg/catalog"

type Screen string

const (
	ScreenSignIn   Screen = "signin"
	ScreenProducts Screen = "products"
	ScreenCart     Screen = "cart"
	ScreenCheckout Screen = "checkout"
)

func ParseScreen(s string) (Screen, bool) {
	switch sc := Screen(s); sc {
	case ScreenSignIn, ScreenProducts, ScreenCart, ScreenCheckout:
		return sc, true
	}
	return "", false
}

type ActionKind int

const (
	ActNavigate ActionKind = iota
	ActAddToCart
)

type Action struct {
	Kind    ActionKind
	Screen  Screen
	Product catalog.Product
}

// Dispatch turns an interpreted command into storefront actions. Greeting,
// help and unresolved products produce none.
func Dispatch(r Reply) []Action {
	if !r.Matched {
		return nil
	}

	switch r.Intent {
	case GoToCart:
		return []Action{{Kind: ActNavigate, Screen: ScreenCart}}
	case ShowProducts:
		return []Action{{Kind: ActNavigate, Screen: ScreenProducts}}
	case Checkout:
		return []Action{{Kind: ActNavigate, Screen: ScreenCheckout}}
	case AddToCart:
		if r.Product == nil {
			return nil
		}
		return []Action{{Kind: ActAddToCart, Product: *r.Product}}
	default:
		return nil
	}
}
