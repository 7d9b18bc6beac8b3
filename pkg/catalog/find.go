package catalog

import "strings"

// Find returns the first product, in slice order, whose name contains the
// spoken phrase or whose first name-word appears inside the phrase. Both sides
// are lower-cased. There is no scoring: "samsung" resolves to whichever
// Samsung comes first.
func Find(products []Product, spoken string) (Product, bool) {
	phrase := strings.ToLower(strings.TrimSpace(spoken))
	if phrase == "" {
		return Product{}, false
	}

	for _, p := range products {
		name := strings.ToLower(p.Name)
		if strings.Contains(name, phrase) {
			return p, true
		}
		if first := strings.Split(name, " ")[0]; first != "" && strings.Contains(phrase, first) {
			return p, true
		}
	}

	return Product{}, false
}

func FindProduct(spoken string) (Product, bool) {
	return Find(Products, spoken)
}
