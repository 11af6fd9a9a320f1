package imap

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

type StandardClient struct {
	client  *client.Client
	timeout time.Duration
}

// NewStandardClient creates a new StandardClient with a default timeout of 30 seconds for IMAP operations
func NewStandardClient() *StandardClient {
	return &StandardClient{
		timeout: 30 * time.Second,
	}
}

// Connect establishes a secure connection to the IMAP server using TLS. It returns an error if the connection fails.
func (c *StandardClient) Connect(server string) error {
	cl, err := client.DialTLS(server, nil)
	if err != nil {
		return fmt.Errorf("IMAP connection error: %w", err)
	}
	c.client = cl
	return nil
}

// Login authenticates the user with the IMAP server using the provided username and password.
func (c *StandardClient) Login(user, password string) error {
	if c.client == nil {
		return fmt.Errorf("not connected")
	}
	return c.client.Login(user, password)
}

// SelectMailbox selects the specified mailbox (e.g., "INBOX") for subsequent operations.
func (c *StandardClient) SelectMailbox(name string) error {
	if c.client == nil {
		return fmt.Errorf("not connected")
	}
	_, err := c.client.Select(name, false)
	return err
}

// ListUnseenUIDs retrieves the UIDs of unseen emails received within the given duration.
func (c *StandardClient) ListUnseenUIDs(since time.Duration) ([]uint32, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-since)

	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("error searching for recent emails: %w", err)
	}

	return uids, nil
}

// FetchRaw retrieves the full message for uid without marking it seen, along with its internal date.
func (c *StandardClient) FetchRaw(uid uint32) (*RawMessage, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchInternalDate, imap.FetchUid}

	prevTimeout := c.client.Timeout
	c.client.Timeout = c.timeout
	defer func() { c.client.Timeout = prevTimeout }()

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("error fetching message UID %d: %w", uid, err)
	}

	if msg == nil {
		return nil, fmt.Errorf("no message retrieved for UID %d", uid)
	}

	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("message UID %d has no body", uid)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading message UID %d: %w", uid, err)
	}

	return &RawMessage{UID: uid, InternalDate: msg.InternalDate, Body: body}, nil
}

// MarkSeen marks the email with the specified UID as seen (read) on the IMAP server.
func (c *StandardClient) MarkSeen(uid uint32) error {
	if c.client == nil {
		return fmt.Errorf("not connected")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	return c.client.UidStore(seqSet, item, flags, nil)
}

// Close logs out from the IMAP server and closes the connection. If there is no active connection, it simply returns nil.
func (c *StandardClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Logout()
}
