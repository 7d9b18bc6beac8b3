package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echomarket/internal/nlu"
	"echomarket/internal/shop"
	"echomarket/internal/speech"
	"echomarket/pkg/catalog"
)

func newLive(t *testing.T, rec speech.Recognizer, sp *fakeSpeaker, store *fakeStore, n *notices) (*Live, *speech.Arbiter) {
	t.Helper()
	arb := &speech.Arbiter{}
	cfg := LiveConfig{RestartDelay: 5 * time.Millisecond}
	if n != nil {
		cfg.Notify = n.add
	}
	l := NewLive(nlu.NewInterpreter(nil, catalog.Products, nil), sp, rec, arb, store, cfg)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(l.Stop)
	return l, arb
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func TestLiveAddToCart(t *testing.T) {
	sp := &fakeSpeaker{delay: 5 * time.Millisecond}
	rec := &scriptedRecognizer{speaker: sp, turns: [][]speech.Result{{
		{Text: "add j"},
		{Text: "add jbl to cart", Final: true},
	}}}
	store := &fakeStore{speaker: sp}

	l, _ := newLive(t, rec, sp, store, nil)

	require.Eventually(t, func() bool { return contains(sp.Spoken(), "Added JBL Flip 6 to your cart.") }, 2*time.Second, time.Millisecond)
	require.Len(t, store.Adds(), 1)
	assert.Equal(t, 3, store.Adds()[0].ID)
	assert.Equal(t, "add jbl to cart", l.LastTranscript())
	assert.Equal(t, "Added JBL Flip 6 to your cart.", l.LastReply())

	// Re-armed once the feedback finished.
	require.Eventually(t, func() bool { return rec.Starts() >= 2 }, 2*time.Second, time.Millisecond)
	assert.Zero(t, rec.Overlaps())
}

func TestLiveOutOfStock(t *testing.T) {
	sp := &fakeSpeaker{delay: time.Millisecond}
	rec := &scriptedRecognizer{speaker: sp, turns: [][]speech.Result{final("add ps5 to cart")}}
	store := &fakeStore{speaker: sp, addErr: shop.ErrOutOfStock}

	newLive(t, rec, sp, store, nil)

	require.Eventually(t, func() bool { return contains(sp.Spoken(), "Sorry, PS5 Console is out of stock.") }, 2*time.Second, time.Millisecond)
}

func TestLiveNavigatesAfterSpeaking(t *testing.T) {
	sp := &fakeSpeaker{delay: 20 * time.Millisecond}
	rec := &scriptedRecognizer{speaker: sp, turns: [][]speech.Result{final("take me to my cart")}}
	store := &fakeStore{speaker: sp}

	newLive(t, rec, sp, store, nil)

	require.Eventually(t, func() bool { return len(store.Navs()) == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, nlu.ScreenCart, store.Navs()[0])
	assert.False(t, store.navWhileSpeaking)
	assert.Equal(t, []string{"Navigating to your cart."}, sp.Spoken())
}

func TestLiveErrorsKeepLooping(t *testing.T) {
	sp := &fakeSpeaker{delay: time.Millisecond}
	rec := &scriptedRecognizer{speaker: sp, turns: [][]speech.Result{
		{{Err: &speech.RecognitionError{Code: speech.CodeNoSpeech}}},
		final("hello"),
	}}
	var n notices

	newLive(t, rec, sp, &fakeStore{speaker: sp}, &n)

	require.Eventually(t, func() bool { return contains(sp.Spoken(), "Hello! How can I help you today?") }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []string{"Error: no-speech"}, n.all())

	// each arm is a single recognition, so silence is reported every time
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.GreaterOrEqual(t, len(rec.opts), 2)
	for _, opt := range rec.opts {
		assert.False(t, opt.Continuous)
	}
}

func TestLiveUnknownUtterance(t *testing.T) {
	sp := &fakeSpeaker{delay: time.Millisecond}
	rec := &scriptedRecognizer{speaker: sp, turns: [][]speech.Result{final("the weather is nice")}}

	newLive(t, rec, sp, &fakeStore{speaker: sp}, nil)

	require.Eventually(t, func() bool { return contains(sp.Spoken(), nlu.NotUnderstood) }, 2*time.Second, time.Millisecond)
}

func TestLiveSingleFlight(t *testing.T) {
	sp := &fakeSpeaker{delay: 5 * time.Millisecond}
	rec := &scriptedRecognizer{speaker: sp, turns: [][]speech.Result{{
		{Text: "hello", Final: true},
		{Text: "go to cart", Final: true},
	}}}
	store := &fakeStore{speaker: sp}

	newLive(t, rec, sp, store, nil)

	require.Eventually(t, func() bool { return len(sp.Spoken()) > 0 }, 2*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"Hello! How can I help you today?"}, sp.Spoken())
	assert.Empty(t, store.Navs())
}

func TestLiveUnavailable(t *testing.T) {
	sp := &fakeSpeaker{}
	var n notices

	l, _ := newLive(t, speech.Unavailable{}, sp, &fakeStore{speaker: sp}, &n)

	require.Eventually(t, func() bool { return len(n.all()) == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"Speech Recognition Not Available"}, n.all())
	assert.Equal(t, 1, l.Arms())
	assert.True(t, l.Running())
}

func TestLiveStop(t *testing.T) {
	sp := &fakeSpeaker{}
	rec := &scriptedRecognizer{speaker: sp}

	l, arb := newLive(t, rec, sp, &fakeStore{speaker: sp}, nil)
	require.Eventually(t, func() bool { return rec.Starts() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "live", arb.Owner())

	l.Stop()
	assert.False(t, l.Running())
	assert.Empty(t, arb.Owner())
	assert.Eventually(t, func() bool { return rec.Active() == 0 }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.Starts(), "stopped widget must not re-arm")

	assert.Error(t, l.Start(context.Background()))
}

func TestLiveExcludesController(t *testing.T) {
	sp := &fakeSpeaker{}
	_, arb := newLive(t, &scriptedRecognizer{speaker: sp}, sp, &fakeStore{speaker: sp}, nil)

	_, err := arb.Acquire("checkout")
	assert.True(t, errors.Is(err, speech.ErrDevicesBusy))
}
