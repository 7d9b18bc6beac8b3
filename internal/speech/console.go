package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Console "speaks" by printing. Playback time is simulated from the word
// count so turn-taking behaves like a real voice.
type Console struct {
	Out     io.Writer
	PerWord time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewConsole() *Console {
	return &Console{Out: os.Stdout, PerWord: 300 * time.Millisecond}
}

var voicePrefix = color.New(color.FgCyan, color.Bold).SprintFunc()

func (c *Console) Speak(ctx context.Context, text, _ string) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	fmt.Fprintf(c.Out, "%s %s\n", voicePrefix("vox>"), text)

	d := time.Duration(len(strings.Fields(text))) * c.PerWord
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Console) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
