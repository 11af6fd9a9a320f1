package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"attachment-ingestor/internal/brand"
	"attachment-ingestor/internal/config"
	"attachment-ingestor/internal/emailprocessor"
	imapclient "attachment-ingestor/internal/imap"
	"attachment-ingestor/internal/ledger"
	"attachment-ingestor/internal/logging"
	"attachment-ingestor/internal/metrics"
	"attachment-ingestor/internal/models"
	"attachment-ingestor/internal/server"
	"attachment-ingestor/internal/sink"
	"attachment-ingestor/internal/storage"
	"attachment-ingestor/internal/table"
	"attachment-ingestor/internal/whitelist"

	"github.com/joho/godotenv"
	_ "gocloud.dev/blob/s3blob"
	"golang.org/x/sync/errgroup"
)

var imapFailureCount atomic.Int32

const failureSleepDuration = 30 * time.Minute

const usage = `usage: ingest [-config config.yaml] <command> [flags]

commands:
  invoke -key <key> [-bucket <bucket>] | -event <file.json>
                 process one stored email and print the response
  serve          run the HTTP trigger (and the mailbox poller when email.imap is set)
  poll           run the mailbox poller only
`

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Log.Warnf("Ignoring .env: %v", err)
	}

	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath, isFlagSet("config"))
	if err != nil {
		logging.Log.Errorf("Error reading configuration: %v", err)
		return 1
	}
	if err := logging.Configure(cfg.Log); err != nil {
		logging.Log.Errorf("Error configuring logger: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg)
	if err != nil {
		logging.Log.Errorf("Error initializing: %v", err)
		return 1
	}
	defer app.close()

	command, args := flag.Arg(0), flag.Args()[1:]
	switch command {
	case "invoke":
		return runInvoke(ctx, app, args)
	case "serve":
		err = runServe(ctx, app)
	case "poll":
		err = pollMailbox(ctx, app)
	default:
		flag.Usage()
		return 2
	}
	if err != nil {
		logging.Log.Errorf("%s: %v", command, err)
		return 1
	}
	return 0
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// app wires the configured collaborators around the parsing core
type app struct {
	cfg       *models.Config
	store     *storage.BlobStore
	metrics   *metrics.Metrics
	processor *emailprocessor.Processor
	closers   []func() error
}

func newApp(cfg *models.Config) (*app, error) {
	opener := storage.DirOpener(cfg.Storage.Root)
	if cfg.Storage.URL != "" {
		opener = storage.URLOpener(cfg.Storage.URL)
	}
	a := &app{
		cfg:     cfg,
		store:   storage.NewBlobStore(opener),
		metrics: metrics.New(),
	}
	a.closers = append(a.closers, a.store.Close)

	registry := brand.Default(table.NewLoader(logging.Log), table.NewNormalizer())
	for sender, name := range cfg.Senders {
		if _, ok := registry.Lookup(name); !ok {
			logging.Log.Warnf("Sender %s maps to brand %q, which has no parsing profile (known: %v)", sender, name, registry.Names())
		}
	}

	var recorder ledger.Recorder = ledger.Nop{}
	if cfg.Ledger.Path != "" {
		l, err := ledger.OpenSQLite(cfg.Ledger.Path)
		if err != nil {
			return nil, err
		}
		recorder = l
		a.closers = append(a.closers, l.Close)
	}

	a.processor = emailprocessor.NewProcessor(
		a.store,
		whitelist.NewStatic(cfg.Senders),
		registry,
		sink.NewWriter(a.store, cfg.Storage.ProcessedPrefix),
		emailprocessor.WithLedger(recorder),
		emailprocessor.WithMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logging.Log.Errorf("Error closing: %v", err)
		}
	}
}

// runInvoke handles one stored email and prints the response; the exit code is 0 on success
func runInvoke(ctx context.Context, a *app, args []string) int {
	fs := flag.NewFlagSet("invoke", flag.ExitOnError)
	bucket := fs.String("bucket", a.cfg.Storage.Bucket, "bucket holding the raw email")
	key := fs.String("key", "", "key of the raw email")
	eventPath := fs.String("event", "", "JSON object-created event file (overrides -bucket/-key)")
	_ = fs.Parse(args)

	var resp models.Response
	switch {
	case *eventPath != "":
		data, err := os.ReadFile(*eventPath)
		if err != nil {
			logging.Log.Errorf("Error reading event: %v", err)
			return 1
		}
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logging.Log.Errorf("Error parsing event: %v", err)
			return 1
		}
		resp = a.processor.HandleEvent(ctx, ev)
	case *key != "":
		resp = a.processor.Handle(ctx, *bucket, *key)
	default:
		fs.Usage()
		return 2
	}

	out, _ := json.Marshal(resp)
	fmt.Println(string(out))
	if !resp.OK() {
		return 1
	}
	return 0
}

func runServe(ctx context.Context, a *app) error {
	router := server.NewRouter(a.processor, a.metrics.Handler(), logging.Log)
	srv := server.New(a.cfg.Server.Addr, router, a.cfg.Server.ShutdownTimeout, logging.Log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if a.cfg.Email.Imap != "" {
		g.Go(func() error {
			return pollMailbox(ctx, a)
		})
	}
	return g.Wait()
}

// pollMailbox checks the mailbox every refresh interval until ctx is done
func pollMailbox(ctx context.Context, a *app) error {
	if a.cfg.Email.Imap == "" {
		return errors.New("email.imap is not configured")
	}

	logging.Log.Infof("Starting mailbox polling, refresh every %s", a.cfg.Email.RefreshTime)

	for {
		wait := a.cfg.Email.RefreshTime
		if backoff := fetchAndProcessEmails(ctx, a); backoff > 0 {
			wait = backoff
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// fetchAndProcessEmails connects to the IMAP server, retrieves unseen emails, and processes them.
// It returns how long to back off when the connection keeps failing.
func fetchAndProcessEmails(ctx context.Context, a *app) time.Duration {
	cfg := a.cfg
	client := imapclient.NewStandardClient()

	// Connect
	if err := client.Connect(cfg.Email.Imap); err != nil {
		return handleIMAPFailure(err)
	}
	defer func(client *imapclient.StandardClient) {
		_ = client.Close()
	}(client)

	// Reset failure count on successful connection
	imapFailureCount.Store(0)

	// Login
	if err := client.Login(cfg.Email.Login, cfg.Email.Password); err != nil {
		logging.Log.Errorf("Login error: %v", err)
		return 0
	}

	// Select mailbox
	if err := client.SelectMailbox(cfg.Email.MailBox); err != nil {
		logging.Log.Errorf("Folder selection error: %v", err)
		return 0
	}

	mailbox := emailprocessor.NewMailbox(client, a.processor, a.store, cfg.Storage.Bucket, cfg.Storage.IncomingPrefix, cfg.Email.ValidityWindow)

	uids, err := client.ListUnseenUIDs(mailbox.Window())
	if err != nil {
		logging.Log.Errorf("Error searching for recent emails: %v", err)
		return 0
	}

	for _, uid := range uids {
		if ctx.Err() != nil {
			return 0
		}
		if err := mailbox.ProcessEmail(ctx, uid); err != nil {
			logging.Log.Errorf("Error processing email UID %d: %v", uid, err)
		}
	}
	return 0
}

// handleIMAPFailure increments the failure count and returns an exponential backoff once
// failures pile up
func handleIMAPFailure(err error) time.Duration {
	failures := imapFailureCount.Add(1)
	logging.Log.Errorf("IMAP connection error: %v", err)

	if failures < 5 {
		return 0
	}

	base := 5 * time.Minute
	maxSteps := int32(10)

	n := failures - 5
	if n > maxSteps {
		n = maxSteps
	}

	backoff := base * time.Duration(1<<n)
	if backoff > failureSleepDuration {
		backoff = failureSleepDuration
	}

	logging.Log.Warnf("IMAP failed %d times, waiting %s before next attempt", failures, backoff)
	return backoff
}
