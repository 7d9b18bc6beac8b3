package nlu

import (
	"context"
	"fmt"
	log "log/slog"

	"echomarket/pkg/catalog"
)

type Reply struct {
	Intent  Intent
	Slot    string
	Product *catalog.Product
	Text    string
	Matched bool
}

type Interpreter struct {
	matcher  *Matcher
	products []catalog.Product
	fallback Classifier
}

func NewInterpreter(m *Matcher, products []catalog.Product, fallback Classifier) *Interpreter {
	if m == nil {
		m = defaultMatcher
	}
	return &Interpreter{matcher: m, products: products, fallback: fallback}
}

func (in *Interpreter) Interpret(ctx context.Context, utterance string) Reply {
	res, ok := in.matcher.Match(utterance)
	if !ok && in.fallback != nil {
		var err error
		res, ok, err = in.fallback.Classify(ctx, utterance)
		if err != nil {
			log.Warn("Fallback classifier failed", "err", err)
			ok = false
		}
	}
	if !ok {
		return Reply{Text: NotUnderstood}
	}

	reply := Reply{
		Intent:  res.Intent,
		Slot:    res.Slot,
		Text:    res.Feedback,
		Matched: true,
	}

	if res.Intent == AddToCart {
		p, found := catalog.Find(in.products, res.Slot)
		if !found {
			reply.Text = fmt.Sprintf("Sorry, I couldn't find a product matching %q.", res.Slot)
			return reply
		}
		reply.Product = &p
		reply.Text = fmt.Sprintf("Added %s to your cart.", p.Name)
	}

	return reply
}
