package protocol

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	ShardVox = "VOX"
	ShardUI  = "UI"
	ShardAll = "ALL"
)

const (
	VerbGoto    = "GOTO"
	VerbAdd     = "ADD"
	VerbLogin   = "LOGIN"
	VerbOrder   = "ORDER"
	VerbSay     = "SAY"
	VerbMount   = "MOUNT"
	VerbUnmount = "UNMOUNT"
	VerbLogout  = "LOGOUT"
)

// Free text travels as unpadded base64url so it fits a single token.
func EncodeText(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func DecodeText(tok string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(b), nil
}

func GoTo(screen string) Message {
	return Message{To: ShardUI, Verb: VerbGoto, Noun: strings.ToUpper(screen)}
}

func AddProduct(id int) Message {
	return Message{To: ShardUI, Verb: VerbAdd, Noun: "PRODUCT", Args: []string{strconv.Itoa(id)}}
}

func Login(user string) Message {
	return Message{To: ShardUI, Verb: VerbLogin, Noun: "USER", Args: []string{EncodeText(user)}}
}

func OrderPlaced(id string, etaDays int) Message {
	return Message{To: ShardUI, Verb: VerbOrder, Noun: "PLACED", Args: []string{id, strconv.Itoa(etaDays)}}
}

func Say(text string) Message {
	return Message{To: ShardUI, Verb: VerbSay, Noun: "TEXT", Args: []string{EncodeText(text)}}
}

type EventKind int

const (
	EvMount EventKind = iota + 1
	EvUnmount
	EvLogout
)

// Event is an incoming storefront notification.
type Event struct {
	Kind   EventKind
	Screen string // lower case, empty for logout
}

func ParseEvent(m *Message) (Event, error) {
	switch m.Verb {
	case VerbMount:
		return Event{Kind: EvMount, Screen: strings.ToLower(m.Noun)}, nil
	case VerbUnmount:
		return Event{Kind: EvUnmount, Screen: strings.ToLower(m.Noun)}, nil
	case VerbLogout:
		return Event{Kind: EvLogout}, nil
	default:
		return Event{}, fmt.Errorf("unknown verb %q", m.Verb)
	}
}
