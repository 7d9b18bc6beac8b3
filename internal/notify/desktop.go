package notify

import (
	"context"
	log "log/slog"

	"github.com/gen2brain/beeep"
)

const title = "EchoMarket"

// Notifier shows transient desktop notifications from a single worker so
// callers in event loops never wait on the notification daemon. Messages
// arriving while the backlog is full are only logged.
type Notifier struct {
	queue chan string
	send  func(title, msg string) error
}

func NewNotifier(ctx context.Context, backlog int) *Notifier {
	n := &Notifier{
		queue: make(chan string, backlog),
		send:  desktopNotify,
	}
	go n.run(ctx)
	return n
}

func desktopNotify(title, msg string) error {
	return beeep.Notify(title, msg, "")
}

func (n *Notifier) Toast(msg string) {
	log.Info("Notify", "msg", msg)

	select {
	case n.queue <- msg:
	default:
		log.Debug("Dropped notification, backlog full", "msg", msg)
	}
}

func (n *Notifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			if err := n.send(title, msg); err != nil {
				log.Debug("Failed to show notification", "err", err)
			}
		}
	}
}
