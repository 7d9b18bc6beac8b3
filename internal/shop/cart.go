package shop

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"echomarket/pkg/catalog"
)

var ErrOutOfStock = errors.New("out of stock")

type Item struct {
	catalog.Product
	Quantity int
}

// Cart is shared between the live command widget, the checkout flow and the
// control socket, so it guards itself.
type Cart struct {
	mu    sync.Mutex
	items []Item
}

func NewCart() *Cart { return &Cart{} }

func (c *Cart) Add(p catalog.Product) (Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID != p.ID {
			continue
		}
		if c.items[i].Quantity >= p.Stock {
			return c.items[i], fmt.Errorf("%s: %w", p.Name, ErrOutOfStock)
		}
		c.items[i].Quantity++
		return c.items[i], nil
	}

	if p.Stock <= 0 {
		return Item{}, fmt.Errorf("%s: %w", p.Name, ErrOutOfStock)
	}
	item := Item{Product: p, Quantity: 1}
	c.items = append(c.items, item)
	return item, nil
}

func (c *Cart) Remove(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

func (c *Cart) Total() float64 {
	return Total(c.Items())
}

func Total(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// Summary is the sentence read out when checkout opens.
func Summary(items []Item) string {
	if len(items) == 0 {
		return "Your cart is empty."
	}

	var b strings.Builder
	b.WriteString("You have the following items in your cart: ")
	for _, it := range items {
		fmt.Fprintf(&b, "%d %s at $%s each. ", it.Quantity, it.Name, price(it.Price))
	}
	fmt.Fprintf(&b, "The total price is $%.2f.", Total(items))
	return b.String()
}

// price renders like a spoken amount: 349.99 stays, 99.5 becomes 99.5, 10 becomes 10.
func price(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
