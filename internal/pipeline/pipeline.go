// Package pipeline walks the attachments of a decoded message and parses each one with the
// brand's profile, yielding results lazily and containing failures per attachment.
package pipeline

import (
	"errors"
	"iter"

	"attachment-ingestor/internal/brand"
	"attachment-ingestor/internal/models"
	"attachment-ingestor/internal/table"

	"github.com/sirupsen/logrus"
)

// Parser parses one attachment for a brand
type Parser interface {
	Parse(brandName string, data []byte) (*table.Normalized, error)
}

// SkipReason labels why an attachment produced no output
type SkipReason string

const (
	SkipMissingFilename SkipReason = "missing_filename"
	SkipEmptyContent    SkipReason = "empty_content"
	SkipUnknownBrand    SkipReason = "unknown_brand"
	SkipUnparsable      SkipReason = "unparsable"
	SkipParseError      SkipReason = "parse_error"
)

// Results is a single-use, lazily evaluated sequence of parsed attachments
type Results struct {
	msg    *models.Message
	brand  string
	parser Parser
	log    logrus.FieldLogger

	consumed bool
	parsed   int
	skipped  map[SkipReason]int
}

// Run prepares the attachment sequence of msg for brandName. Nothing is parsed until the
// sequence returned by All is ranged over.
func Run(msg *models.Message, brandName string, parser Parser, log logrus.FieldLogger) *Results {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Results{
		msg:     msg,
		brand:   brandName,
		parser:  parser,
		log:     log.WithField("brand", brandName),
		skipped: make(map[SkipReason]int),
	}
}

// All yields (filename, table) for every attachment that parses, in message order. Each
// attachment is parsed only when the consumer asks for the next pair; stopping early leaves
// the rest untouched. The sequence can be ranged over once.
func (r *Results) All() iter.Seq2[string, *table.Normalized] {
	return func(yield func(string, *table.Normalized) bool) {
		if r.consumed {
			r.log.Warn("Attachment results already consumed, nothing to yield")
			return
		}
		r.consumed = true

		if r.msg == nil || !r.msg.Multipart {
			r.log.Info("Email is not multipart. No attachments.")
			return
		}

		for i, a := range r.msg.Attachments {
			n, ok := r.parse(i, a)
			if !ok {
				continue
			}
			r.parsed++
			if !yield(a.Filename, n) {
				return
			}
		}
	}
}

func (r *Results) parse(index int, a models.Attachment) (*table.Normalized, bool) {
	locallog := r.log.WithField("attachment", index)

	if a.Filename == "" {
		locallog.Warn("Attachment missing filename. Skipping.")
		r.skipped[SkipMissingFilename]++
		return nil, false
	}
	locallog = locallog.WithField("filename", a.Filename)

	if len(a.Content) == 0 {
		locallog.Warnf("No content found in attachment: %s. Skipping.", a.Filename)
		r.skipped[SkipEmptyContent]++
		return nil, false
	}

	n, err := r.parser.Parse(r.brand, a.Content)
	switch {
	case err == nil:
		return n, true
	case errors.Is(err, brand.ErrUnknownBrand):
		locallog.Warnf("Unrecognized brand: %s. Skipping.", r.brand)
		r.skipped[SkipUnknownBrand]++
	case errors.Is(err, brand.ErrUnparsableAttachment):
		locallog.WithError(err).Error("Attachment could not be decoded as a table")
		r.skipped[SkipUnparsable]++
	default:
		locallog.WithError(err).Errorf("Failed to parse attachment %s", a.Filename)
		r.skipped[SkipParseError]++
	}
	return nil, false
}

// Parsed returns how many attachments have been yielded so far
func (r *Results) Parsed() int {
	return r.parsed
}

// Skipped returns a copy of the skip counts by reason
func (r *Results) Skipped() map[SkipReason]int {
	out := make(map[SkipReason]int, len(r.skipped))
	for k, v := range r.skipped {
		out[k] = v
	}
	return out
}
