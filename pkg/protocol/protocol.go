package protocol

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"time"
)

type PtclConfig struct {
	Shard   string
	Url     string
	Reconn  time.Duration
	EmitOut func(*Message)
}

// Protocol exchanges colon framed messages with the storefront over a
// websocket. Frames not addressed to our shard are dropped.
type Protocol struct {
	ws      *WebSocket
	shard   string
	emitOut func(*Message)
}

func NewProtocol(cfg PtclConfig) (*Protocol, error) {
	ws, err := NewWebSocket(cfg.Url, cfg.Reconn)
	if err != nil {
		log.Error("Failed to init ws connection")
		return nil, err
	}

	return &Protocol{
		shard:   cfg.Shard,
		ws:      ws,
		emitOut: cfg.EmitOut,
	}, nil
}

func (ptcl *Protocol) EmitOut(f func(*Message)) {
	ptcl.emitOut = f
}

// Transmit stamps msg with our shard and sends it.
func (ptcl *Protocol) Transmit(msg Message) error {
	msg.From = ptcl.shard
	line := msg.String()

	err := ptcl.ws.Write([]byte(line))
	if err != nil {
		log.Error("Failed to transmit", "msg", line, "err", err)
	}
	return err
}

// Run reads frames until ctx is done, reconnecting whenever the connection
// drops.
func (ptcl *Protocol) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, ptcl.ws.Close)
	defer stop()

	for ctx.Err() == nil {
		in := ptcl.ws.Read()
		if ctx.Err() != nil {
			return
		}

		switch in.kind {
		case CONN_CLOSE, READ_FAILURE:
			if in.kind == READ_FAILURE {
				log.Error("Failed to read", "err", in.err)
			}
			log.Warn("Trying to reconnect on", "url", ptcl.ws.url)
			if err := ptcl.ws.TryReconn(ctx); err != nil {
				return
			}
			log.Info("Succefully reconnected")

		case READ_OK:
			if !ptcl.checkRecipient(in.msg) {
				continue
			}

			msg, err := Parse(string(in.msg))
			if err != nil {
				log.Warn("Failed to parse", "msg", string(in.msg), "err", err)
				continue
			}

			if ptcl.emitOut != nil {
				ptcl.emitOut(msg)
			}
		}
	}
}

func (ptcl *Protocol) Close() {
	ptcl.ws.Close()
}

func (ptcl *Protocol) checkRecipient(msg []byte) bool {
	to, _, _ := strings.Cut(string(msg), ":")
	return to == ptcl.shard || to == ShardAll
}

func Parse(line string) (*Message, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return nil, errors.New("empty message")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return nil, fmt.Errorf("invalid whitespace present")
	}
	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return nil, fmt.Errorf("too few fields: got %d, want >= 4", len(parts))
	}

	to := parts[0]
	verb := parts[1]
	noun := parts[2]
	from := parts[len(parts)-1]
	args := append([]string(nil), parts[3:len(parts)-1]...)

	if !isToken(to) {
		return nil, fmt.Errorf("invalid TO token: %q", to)
	}
	if !isToken(from) {
		return nil, fmt.Errorf("invalid FROM token: %q", from)
	}
	if !isToken(noun) || !isToken(verb) {
		return nil, fmt.Errorf("invalid NOUN/VERB: %q %q", noun, verb)
	}
	for i, a := range args {
		if !isToken(a) {
			return nil, fmt.Errorf("invalid ARG[%d]: %q", i, a)
		}
	}

	return &Message{
		To:   to,
		Verb: strings.ToUpper(verb),
		Noun: strings.ToUpper(noun),
		Args: args,
		From: from,
	}, nil
}

var tokenRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func isToken(s string) bool {
	return tokenRe.MatchString(s)
}

type Message struct {
	To   string
	Verb string
	Noun string
	Args []string
	From string
}

func (m *Message) String() string {
	parts := make([]string, 0, 4+len(m.Args))
	parts = append(parts, m.To, m.Verb, m.Noun)
	parts = append(parts, m.Args...)
	parts = append(parts, m.From)
	return strings.Join(parts, ":")
}

func (m *Message) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}
