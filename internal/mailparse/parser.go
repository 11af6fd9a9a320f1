package mailparse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"

	"attachment-ingestor/internal/models"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// ErrMalformedEnvelope is matched by every error Decode returns
var ErrMalformedEnvelope = errors.New("malformed message envelope")

var errNoHeaderFields = errors.New("no header fields")

// angleAddr finds the bracketed address of a From value the strict grammar rejects
var angleAddr = regexp.MustCompile(`<\s*([^<>\s]+@[^<>\s]+)\s*>`)

// DecodeError reports raw bytes that are not a structurally valid message
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrMalformedEnvelope }

// Decode parses raw RFC 5322 bytes into a Message: sender, subject and every attachment part
// with its transfer-decoded payload. Parts of a broken multipart body that can't be read are
// reported in Defects rather than failing the whole message, and so are unknown charsets: the
// affected text is kept undecoded.
func Decode(raw []byte) (*models.Message, error) {
	var defects []error
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		if mr == nil || !message.IsUnknownCharset(err) {
			return nil, &DecodeError{Err: err}
		}
		defects = append(defects, fmt.Errorf("message body: %w", err))
	}
	defer func() {
		_ = mr.Close()
	}()

	header := mr.Header
	if fields := header.Fields(); !fields.Next() {
		return nil, &DecodeError{Err: errNoHeaderFields}
	}

	msg := &models.Message{
		From:    Sender(header),
		Defects: defects,
	}

	// Decode Subject, keeping the raw value when it isn't valid RFC 2047
	msg.Subject = header.Get("Subject")
	if decoded, err := DecodeHeader(msg.Subject); err == nil {
		msg.Subject = decoded
	}

	mediaType, _, _ := header.ContentType()
	msg.Multipart = strings.HasPrefix(mediaType, "multipart/")
	if !msg.Multipart {
		return msg, nil
	}

	// the first plain and html text parts that aren't marked as attachments are the body
	body := make(map[string]bool, 2)
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			if p == nil || !message.IsUnknownCharset(err) {
				msg.Defects = append(msg.Defects, fmt.Errorf("read part after attachment %d: %w", len(msg.Attachments), err))
				break
			}
			msg.Defects = append(msg.Defects, fmt.Errorf("part after attachment %d: %w", len(msg.Attachments), err))
		}

		var filename, contentType string
		switch h := p.Header.(type) {
		case *mail.AttachmentHeader:
			filename, err = h.Filename()
			if err != nil {
				filename = ""
			}
			contentType, _, _ = h.ContentType()
		case *mail.InlineHeader:
			contentType, _, _ = h.ContentType()
			if (contentType == "text/plain" || contentType == "text/html") && !body[contentType] {
				body[contentType] = true
				continue
			}
			if filename = inlineFilename(h); filename == "" {
				continue
			}
		default:
			continue
		}

		content, err := io.ReadAll(p.Body)
		if err != nil {
			msg.Defects = append(msg.Defects, fmt.Errorf("read attachment %q: %w", filename, err))
			continue
		}

		msg.Attachments = append(msg.Attachments, models.Attachment{
			Filename:    filename,
			ContentType: contentType,
			Content:     content,
		})
	}

	return msg, nil
}

// Sender returns the bare, lower-cased address of the first From mailbox, or "" when the
// header is missing or can't be parsed
func Sender(header mail.Header) string {
	addrs, err := header.AddressList("From")
	if err == nil && len(addrs) > 0 {
		return strings.ToLower(strings.TrimSpace(addrs[0].Address))
	}
	return looseAddress(header.Get("From"))
}

// looseAddress recovers the address from a From value with a display name the strict
// grammar rejects, such as unencoded 8-bit text or unquoted specials
func looseAddress(value string) string {
	if m := angleAddr.FindStringSubmatch(value); m != nil {
		return strings.ToLower(m[1])
	}
	value = strings.TrimSpace(value)
	if strings.Count(value, "@") == 1 && !strings.ContainsAny(value, " \t<>,;:\"()[]") {
		return strings.ToLower(value)
	}
	return ""
}

// inlineFilename returns the name an inline part carries in its disposition or content type
func inlineFilename(h *mail.InlineHeader) string {
	if _, params, err := h.ContentDisposition(); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	if _, params, err := h.ContentType(); err == nil {
		return params["name"]
	}
	return ""
}

// DecodeHeader decodes MIME-encoded headers (e.g., "=?UTF-8?B?...?=") to plain text
func DecodeHeader(encoded string) (string, error) {
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(encoded)
	if err != nil {
		return "", err
	}
	return decoded, nil
}
