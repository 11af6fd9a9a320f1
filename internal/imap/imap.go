package imap

import (
	"time"
)

// RawMessage is a fetched message with its full RFC 822 bytes
type RawMessage struct {
	UID          uint32
	InternalDate time.Time
	Body         []byte
}

type Client interface {
	Connect(server string) error
	Login(user, password string) error
	SelectMailbox(name string) error
	ListUnseenUIDs(since time.Duration) ([]uint32, error)
	FetchRaw(uid uint32) (*RawMessage, error)
	MarkSeen(uid uint32) error
	Close() error
}
