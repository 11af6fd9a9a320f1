package emailprocessor

import (
	"context"
	"strconv"
	"time"

	"attachment-ingestor/internal/ledger"
	"attachment-ingestor/internal/logging"
	"attachment-ingestor/internal/mailparse"
	"attachment-ingestor/internal/metrics"
	"attachment-ingestor/internal/models"
	"attachment-ingestor/internal/pipeline"
	"attachment-ingestor/internal/sink"
	"attachment-ingestor/internal/storage"
	"attachment-ingestor/internal/whitelist"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Response bodies reported to the trigger
const (
	MsgProcessed    = "Email processed successfully."
	MsgNotWhitelist = "Sender not in whitelist."
	MsgReadFailed   = "Error reading email from storage."
	MsgDecodeFailed = "Error parsing email."
	MsgInvalidEvent = "Invalid event."
)

type Processor struct {
	store     storage.ObjectStore
	whitelist whitelist.Resolver
	parser    pipeline.Parser
	sink      *sink.Writer
	ledger    ledger.Recorder
	metrics   *metrics.Metrics
	log       *logrus.Logger
	now       func() time.Time
}

// Option customizes a Processor
type Option func(*Processor)

// WithLedger records every invocation in l
func WithLedger(l ledger.Recorder) Option {
	return func(p *Processor) { p.ledger = l }
}

// WithMetrics counts invocations and attachments in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger replaces the shared logger
func WithLogger(l *logrus.Logger) Option {
	return func(p *Processor) { p.log = l }
}

// WithClock replaces the wall clock used for the output suffix and ledger times
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a new Processor reading raw emails from store and writing parsed
// attachments through writer
func NewProcessor(store storage.ObjectStore, resolver whitelist.Resolver, parser pipeline.Parser, writer *sink.Writer, opts ...Option) *Processor {
	p := &Processor{
		store:     store,
		whitelist: resolver,
		parser:    parser,
		sink:      writer,
		ledger:    ledger.Nop{},
		metrics:   metrics.New(),
		log:       logging.Log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// invocation carries the state of one Handle call. Suffix is captured once and shared by
// every output the invocation writes.
type invocation struct {
	traceID string
	suffix  int64
	started time.Time
	bucket  string
	key     string
	sender  string
	brand   string
	outputs int
	skipped int
	failed  int
	log     *logrus.Entry
}

// HandleEvent processes the object named by the first record of ev
func (p *Processor) HandleEvent(ctx context.Context, ev models.Event) models.Response {
	bucket, key, ok := ev.Location()
	if !ok {
		p.log.Error("Event carries no bucket/key record")
		resp := models.Failure(MsgInvalidEvent)
		p.metrics.Invocations.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		return resp
	}
	return p.Handle(ctx, bucket, key)
}

// Handle orchestrates the complete workflow for one stored email:
// fetch → decode → whitelist → parse attachments → write outputs.
// Only a fetch or decode failure is reported as an error; everything after is logged.
func (p *Processor) Handle(ctx context.Context, bucket, key string) models.Response {
	started := p.now()
	inv := &invocation{
		traceID: uuid.New().String(),
		suffix:  started.Unix(),
		started: started,
		bucket:  bucket,
		key:     key,
	}
	inv.log = p.log.WithFields(logrus.Fields{
		"trace_id": inv.traceID,
		"bucket":   bucket,
		"key":      key,
	})

	resp := p.handle(ctx, inv)
	p.finish(ctx, inv, resp)
	return resp
}

func (p *Processor) handle(ctx context.Context, inv *invocation) models.Response {
	locallog := inv.log
	locallog.Infof("Triggered by object: %s/%s", inv.bucket, inv.key)

	raw, err := p.store.Get(ctx, inv.bucket, inv.key)
	if err != nil {
		locallog.WithError(err).Error("Failed to read email from storage")
		return models.Failure(MsgReadFailed)
	}
	locallog.Debug("Raw email downloaded from storage.")

	msg, err := mailparse.Decode(raw)
	if err != nil {
		locallog.WithError(err).Error("Failed to parse email")
		return models.Failure(MsgDecodeFailed)
	}
	for _, defect := range msg.Defects {
		locallog.WithError(defect).Warn("Dropped damaged message part")
	}

	inv.sender = msg.From
	locallog = locallog.WithField("sender", msg.From)

	brandName, ok := p.whitelist.Resolve(msg.From)
	if !ok {
		locallog.Warnf("Sender '%s' not found in whitelist. Skipping.", msg.From)
		return models.Success(MsgNotWhitelist)
	}
	inv.brand = brandName
	locallog.Infof("Processing attachments for brand: %s", brandName)

	results := pipeline.Run(msg, brandName, p.parser, locallog)
	for filename, tbl := range results.All() {
		key, err := p.sink.Write(ctx, inv.bucket, filename, tbl, inv.suffix)
		if err != nil {
			locallog.WithError(err).Errorf("Failed to save parsed file for %s", filename)
			inv.failed++
			p.metrics.OutputsWritten.WithLabelValues("error").Inc()
			continue
		}
		locallog.Infof("Saved parsed JSON to: %s/%s", inv.bucket, key)
		inv.outputs++
		p.metrics.OutputsWritten.WithLabelValues("ok").Inc()
	}

	p.metrics.AttachmentsParsed.WithLabelValues(brandName).Add(float64(results.Parsed()))
	for reason, n := range results.Skipped() {
		inv.skipped += n
		p.metrics.AttachmentsSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}

	return models.Success(MsgProcessed)
}

func (p *Processor) finish(ctx context.Context, inv *invocation, resp models.Response) {
	p.metrics.Invocations.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	entry := ledger.Entry{
		TraceID:    inv.traceID,
		Bucket:     inv.bucket,
		Key:        inv.key,
		Sender:     inv.sender,
		Brand:      inv.brand,
		StatusCode: resp.StatusCode,
		Message:    resp.Body,
		Outputs:    inv.outputs,
		Skipped:    inv.skipped,
		Failed:     inv.failed,
		StartedAt:  inv.started,
		Duration:   p.now().Sub(inv.started),
	}
	if err := p.ledger.Record(ctx, entry); err != nil {
		inv.log.WithError(err).Error("Failed to record invocation")
	}

	inv.log.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"outputs": inv.outputs,
		"skipped": inv.skipped,
		"failed":  inv.failed,
	}).Info(resp.Body)
}
