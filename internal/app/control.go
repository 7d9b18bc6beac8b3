package app

import (
	"fmt"
	log "log/slog"
	"strings"

	"echomarket/internal/ipc"
	"echomarket/internal/nlu"
	"echomarket/pkg/protocol"
)

// Control answers one command from echomarket-ctl.
func (a *App) Control(msg ipc.ControlMessage) ipc.ControlReply {
	log.Debug("Control command", "cmd", msg.Cmd, "text", msg.Text)

	switch strings.ToLower(msg.Cmd) {
	case "say":
		if a.deps.Typed == nil {
			return ipc.ControlReply{Text: "typed input is disabled, start the daemon with --input text"}
		}
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return ipc.ControlReply{Text: "nothing to say"}
		}
		a.deps.Typed.Say(text)
		return ipc.ControlReply{OK: true, Text: fmt.Sprintf("heard %q", text)}

	case "screen":
		s, ok := nlu.ParseScreen(strings.ToLower(strings.TrimSpace(msg.Text)))
		if !ok {
			return ipc.ControlReply{Text: fmt.Sprintf("unknown screen %q", msg.Text)}
		}
		a.Navigate(s)
		return ipc.ControlReply{OK: true, Text: "switching to " + string(s)}

	case "logout":
		if err := a.Logout(); err != nil {
			return ipc.ControlReply{Text: err.Error()}
		}
		return ipc.ControlReply{OK: true, Text: "signed out"}

	case "status":
		return ipc.ControlReply{OK: true, Text: a.Status()}

	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.ControlReply{Text: "unknown command " + msg.Cmd}
	}
}

func (a *App) Status() string {
	user := a.User()
	if user == "" {
		user = "-"
	}
	screen := string(a.Screen())
	if screen == "" {
		screen = "-"
	}

	items := a.deps.Cart.Items()
	n := 0
	for _, it := range items {
		n += it.Quantity
	}

	line := fmt.Sprintf("screen=%s user=%s cart=%d total=$%.2f", screen, user, n, a.deps.Cart.Total())
	if o, ok := a.LastOrder(); ok {
		line += fmt.Sprintf(" last_order=%s eta=%dd", o.ID, o.EtaDays)
	}
	return line
}

// HandleBus routes a frame received from the storefront.
func (a *App) HandleBus(msg *protocol.Message) {
	ev, err := protocol.ParseEvent(msg)
	if err != nil {
		log.Warn("Ignoring bus message", "msg", msg.String(), "err", err)
		return
	}

	switch ev.Kind {
	case protocol.EvLogout:
		if err := a.Logout(); err != nil {
			log.Error("Failed to sign out", "err", err)
		}
	case protocol.EvMount, protocol.EvUnmount:
		s, ok := nlu.ParseScreen(ev.Screen)
		if !ok {
			log.Warn("Unknown screen", "screen", ev.Screen)
			return
		}
		if ev.Kind == protocol.EvMount {
			a.Mount(s)
		} else {
			a.Unmount(s)
		}
	}
}
