// Package mailtest builds raw multipart messages for tests.
package mailtest

import (
	"bytes"
	"io"
	"time"

	"attachment-ingestor/internal/models"

	"github.com/emersion/go-message/mail"
)

// Build renders a multipart/mixed message from the given sender with a plain-text body and
// one part per attachment. An attachment without a filename keeps a bare "attachment"
// disposition.
func Build(from, body string, attachments ...models.Attachment) []byte {
	var h mail.Header
	h.SetDate(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: "inbox@ingest.local"}})
	h.SetSubject("Daily report")

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		panic(err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		panic(err)
	}
	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain; charset=utf-8")
	w, err := tw.CreatePart(th)
	if err != nil {
		panic(err)
	}
	_, _ = io.WriteString(w, body)
	_ = w.Close()
	_ = tw.Close()

	for _, a := range attachments {
		var ah mail.AttachmentHeader
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ah.Set("Content-Type", contentType)
		if a.Filename != "" {
			ah.SetFilename(a.Filename)
		} else {
			ah.Set("Content-Disposition", "attachment")
		}
		ah.Set("Content-Transfer-Encoding", "base64")

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			panic(err)
		}
		_, _ = aw.Write(a.Content)
		_ = aw.Close()
	}

	_ = mw.Close()
	return buf.Bytes()
}

// Plain renders a single-part text message
func Plain(from, body string) []byte {
	return []byte("From: " + from + "\r\n" +
		"To: inbox@ingest.local\r\n" +
		"Subject: Hello\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n")
}
