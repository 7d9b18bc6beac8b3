package voice

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echomarket/internal/dialogue"
	"echomarket/internal/shop"
	"echomarket/internal/speech"
	"echomarket/pkg/catalog"
)

func waitFinish(t *testing.T, ch <-chan dialogue.Finish) dialogue.Finish {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("dialogue did not finish")
		return dialogue.Finish{}
	}
}

func TestControllerCheckout(t *testing.T) {
	sp := &fakeSpeaker{delay: time.Millisecond}
	rec := &scriptedRecognizer{
		speaker: sp,
		turns:   [][]speech.Result{final("123 Main Street"), final("credit card")},
	}
	arb := &speech.Arbiter{}
	var cues atomic.Int32

	sony, _ := catalog.ByID(1)
	sc := dialogue.Checkout([]shop.Item{{Product: sony, Quantity: 1}}, rand.New(rand.NewPCG(3, 4)), time.Millisecond)

	finished := make(chan dialogue.Finish, 1)
	c := NewController(sc, sp, rec, arb, Config{Cue: func() { cues.Add(1) }}, func(f dialogue.Finish) {
		finished <- f
	})
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, "checkout", arb.Owner())

	f := waitFinish(t, finished)
	<-c.Done()

	assert.Equal(t, "123 Main Street", f.Fields[dialogue.FieldAddress])
	assert.Equal(t, "credit card", f.Fields[dialogue.FieldPayment])
	require.NotNil(t, f.Order)
	assert.Regexp(t, `^[A-Z0-9]{8}$`, f.Order.ID)
	assert.GreaterOrEqual(t, f.Order.EtaDays, 2)
	assert.LessOrEqual(t, f.Order.EtaDays, 6)

	spoken := sp.Spoken()
	require.Len(t, spoken, 3+dialogue.OrderIDLength+2)
	assert.Contains(t, spoken[3], "123 Main Street")
	assert.Contains(t, spoken[3], "credit card")
	for i, ch := range f.Order.ID {
		assert.Equal(t, string(ch), spoken[4+i])
	}
	assert.Contains(t, spoken[len(spoken)-1], "Estimated delivery")

	assert.Equal(t, 2, rec.Starts())
	assert.Zero(t, rec.Overlaps(), "recognition started while speaking")
	assert.Equal(t, 1, rec.maxActive)
	for _, opt := range rec.opts {
		assert.False(t, opt.Continuous)
		assert.False(t, opt.Interim)
	}
	assert.Equal(t, int32(1), cues.Load())
	assert.Empty(t, arb.Owner())
	assert.Equal(t, dialogue.Done, c.State().Stage)
}

func TestControllerCancel(t *testing.T) {
	sp := &fakeSpeaker{delay: time.Millisecond}
	rec := &scriptedRecognizer{
		speaker: sp,
		turns: [][]speech.Result{
			final("alice"), final("please cancel"), final("bob"), final("hunter2"),
		},
	}

	finished := make(chan dialogue.Finish, 1)
	c := NewController(dialogue.SignIn(), sp, rec, &speech.Arbiter{}, Config{}, func(f dialogue.Finish) {
		finished <- f
	})
	require.NoError(t, c.Start(context.Background()))

	f := waitFinish(t, finished)
	assert.Equal(t, map[string]string{"username": "bob", "password": "hunter2"}, f.Fields)
	assert.Equal(t, []string{
		"Please say your username.",
		"Please say your password.",
		"Sign in cancelled.",
		"Please say your username.",
		"Please say your password.",
		"Signing you in now.",
	}, sp.Spoken())
	assert.Zero(t, rec.Overlaps())
}

func TestControllerStopReleasesDevices(t *testing.T) {
	sp := &fakeSpeaker{delay: time.Millisecond}
	rec := &scriptedRecognizer{speaker: sp}
	arb := &speech.Arbiter{}

	called := false
	c := NewController(dialogue.SignIn(), sp, rec, arb, Config{}, func(dialogue.Finish) { called = true })
	require.NoError(t, c.Start(context.Background()))

	require.Eventually(t, func() bool { return rec.Starts() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, dialogue.Listening, c.State().Phase)

	c.Stop()
	c.Stop()

	assert.Empty(t, arb.Owner())
	assert.GreaterOrEqual(t, sp.Cancels(), 1)
	assert.Eventually(t, func() bool { return rec.Active() == 0 }, time.Second, time.Millisecond)
	assert.False(t, called)
}

func TestControllerDevicesBusy(t *testing.T) {
	arb := &speech.Arbiter{}
	lease, err := arb.Acquire("live")
	require.NoError(t, err)
	defer lease.Release()

	c := NewController(dialogue.SignIn(), &fakeSpeaker{}, &scriptedRecognizer{}, arb, Config{}, nil)
	assert.ErrorIs(t, c.Start(context.Background()), speech.ErrDevicesBusy)
	c.Stop()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Done blocked on a controller that never ran")
	}
}

func TestControllerListenTimeoutReprompts(t *testing.T) {
	sp := &fakeSpeaker{delay: time.Millisecond}
	rec := &scriptedRecognizer{speaker: sp}

	c := NewController(dialogue.SignIn(), sp, rec, &speech.Arbiter{}, Config{ListenTimeout: 20 * time.Millisecond}, nil)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	require.Eventually(t, func() bool { return rec.Starts() >= 3 }, 2*time.Second, time.Millisecond)
	for _, s := range sp.Spoken() {
		assert.Equal(t, "Please say your username.", s)
	}
	assert.Zero(t, rec.Overlaps())
}

func TestControllerRecognizerUnavailable(t *testing.T) {
	sp := &fakeSpeaker{delay: time.Millisecond}
	var n notices

	c := NewController(dialogue.SignIn(), sp, speech.Unavailable{}, &speech.Arbiter{}, Config{Notify: n.add}, nil)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	require.Eventually(t, func() bool { return len(n.all()) == 1 }, 2*time.Second, time.Millisecond)
	assert.Contains(t, n.all()[0], "not available")
	assert.Equal(t, dialogue.Listening, c.State().Phase)
}
