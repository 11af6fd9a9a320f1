package emailprocessor

import (
	"context"
	"fmt"
	"path"
	"time"

	imapclient "attachment-ingestor/internal/imap"
	"attachment-ingestor/internal/storage"

	"github.com/google/uuid"
)

// Reports are usually delivered right away, so a 15-minute window covers delays without
// picking up stale mail.
const EmailValidityWindow = 15 * time.Minute

// RawContentType is the content type raw emails are stored with
const RawContentType = "message/rfc822"

// Mailbox feeds unseen mailbox messages through a Processor: each message is stored under
// the incoming prefix, handled from there and marked seen once handled successfully.
type Mailbox struct {
	imapClient imapclient.Client
	processor  *Processor
	store      storage.ObjectStore
	bucket     string
	prefix     string
	window     time.Duration
}

// NewMailbox creates a new Mailbox over an already connected IMAP client
func NewMailbox(imapClient imapclient.Client, processor *Processor, store storage.ObjectStore, bucket, prefix string, window time.Duration) *Mailbox {
	if window <= 0 {
		window = EmailValidityWindow
	}
	return &Mailbox{
		imapClient: imapClient,
		processor:  processor,
		store:      store,
		bucket:     bucket,
		prefix:     prefix,
		window:     window,
	}
}

// Window returns how far back unseen messages are considered
func (m *Mailbox) Window() time.Duration {
	return m.window
}

// ProcessEmail runs the workflow for one mailbox message:
// fetch → validate age → store raw → handle → mark as seen
func (m *Mailbox) ProcessEmail(ctx context.Context, uid uint32) error {
	msg, err := m.imapClient.FetchRaw(uid)
	if err != nil {
		return err
	}

	locallog := m.processor.log.WithField("uid", uid)

	if !m.isEmailValidAt(msg, time.Now()) {
		locallog.Infof("Message UID %d is older than %v (date: %v), skipping", uid, m.window, msg.InternalDate)
		return nil
	}

	key := path.Join(m.prefix, uuid.New().String()+".eml")
	if err := m.store.Put(ctx, m.bucket, key, msg.Body, RawContentType); err != nil {
		return fmt.Errorf("store message UID %d: %w", uid, err)
	}

	resp := m.processor.Handle(ctx, m.bucket, key)

	// Mark as seen only if successfully handled
	if resp.OK() {
		if err := m.imapClient.MarkSeen(uid); err != nil {
			locallog.Errorf("Error marking message UID %d as seen: %v", uid, err)
		}
	}

	return nil
}

// isEmailValidAt allows testing with a fixed "now" time for deterministic unit tests
func (m *Mailbox) isEmailValidAt(msg *imapclient.RawMessage, now time.Time) bool {
	if msg.InternalDate.IsZero() {
		return true
	}

	cutoff := now.Add(-m.window)
	return !msg.InternalDate.Before(cutoff) // inclusive
}
