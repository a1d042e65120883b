package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/robfig/cron/v3"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/wattpipe/internal/api"
	"github.com/lox/wattpipe/internal/blob"
	"github.com/lox/wattpipe/internal/gen"
	"github.com/lox/wattpipe/internal/ingest"
	"github.com/lox/wattpipe/internal/notify"
	"github.com/lox/wattpipe/internal/pipeline"
	"github.com/lox/wattpipe/internal/source"
	"github.com/lox/wattpipe/internal/store"
)

type CLI struct {
	DB string `help:"Path to SQLite database." default:"data/wattpipe.db" env:"WATTPIPE_DB"`

	MinioEndpoint  string `help:"Object store endpoint for raw batch files." env:"MINIO_ENDPOINT"`
	MinioAccessKey string `help:"Object store access key." env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `help:"Object store secret key." env:"MINIO_SECRET_KEY"`
	MinioBucket    string `help:"Object store bucket." default:"energy-data" env:"MINIO_BUCKET"`
	MinioSSL       bool   `help:"Use TLS for the object store." env:"MINIO_SSL"`

	FTPAddr string `help:"Optional FTP drop-folder address (host:port)." env:"WATTPIPE_FTP_ADDR"`
	FTPUser string `help:"FTP username." env:"WATTPIPE_FTP_USER"`
	FTPPass string `help:"FTP password." env:"WATTPIPE_FTP_PASS"`
	FTPDir  string `help:"FTP directory holding batch files." default:"/raw-data" env:"WATTPIPE_FTP_DIR"`

	Prefix   string        `help:"Object key prefix for batch files." default:"raw-data/" env:"WATTPIPE_PREFIX"`
	AlertURL string        `help:"Webhook URL for anomaly alerts; logs alerts when unset." env:"WATTPIPE_ALERT_URL"`
	Interval time.Duration `help:"Batch source poll interval." default:"1m" env:"WATTPIPE_POLL_INTERVAL"`

	Serve    ServeCmd    `cmd:"" default:"withargs" help:"Run the HTTP server and batch watcher."`
	Ingest   IngestCmd   `cmd:"" help:"Poll batch sources once and exit."`
	Generate GenerateCmd `cmd:"" help:"Upload synthetic batch files to the object store."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("wattpipe"),
		kong.Description("Energy telemetry batch pipeline: validates readings, derives net energy, flags anomalies."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli))
}

type ServeCmd struct {
	Port    string `help:"HTTP server port." default:"8080" env:"PORT"`
	NoWatch bool   `help:"Disable batch source polling (server only, for local dev)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	st, db, err := openStore(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_, objSource, err := cli.objectSource(ctx)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessor(st, cli.notifier())
	sources := cli.sources(objSource)
	watcher := ingest.NewWatcher(st, processor, sources, cli.Prefix, cli.Interval)
	server := api.NewServer(st, processor, watcher, objSource, c.Port)

	if !c.NoWatch && len(sources) > 0 {
		go watcher.Run(ctx)
	} else {
		log.Println("batch polling disabled")
	}

	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type IngestCmd struct{}

func (c *IngestCmd) Run(cli *CLI) error {
	st, db, err := openStore(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_, objSource, err := cli.objectSource(ctx)
	if err != nil {
		return err
	}

	sources := cli.sources(objSource)
	if len(sources) == 0 {
		return fmt.Errorf("no batch sources configured")
	}

	processor := pipeline.NewProcessor(st, cli.notifier())
	watcher := ingest.NewWatcher(st, processor, sources, cli.Prefix, cli.Interval)

	log.Println("running single poll")
	watcher.Poll(ctx)
	log.Println("done")
	return nil
}

type GenerateCmd struct {
	Schedule    string  `help:"Cron schedule (e.g. '@every 5m'); empty generates once and exits." env:"WATTPIPE_GEN_SCHEDULE"`
	Sites       int     `help:"Number of synthetic sites per batch." default:"5"`
	AnomalyRate float64 `help:"Probability of an injected negative reading." default:"0"`
}

func (c *GenerateCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	blobs, _, err := cli.objectSource(ctx)
	if err != nil {
		return err
	}
	if blobs == nil {
		return fmt.Errorf("generate requires an object store (--minio-endpoint)")
	}

	g := gen.New(blobs, c.Sites, c.AnomalyRate)

	upload := func() {
		key, err := g.UploadBatch(ctx)
		if err != nil {
			log.Printf("generate: %v", err)
			return
		}
		log.Printf("generate: uploaded %s", key)
	}

	upload()
	if c.Schedule == "" {
		return nil
	}

	cr := cron.New()
	if _, err := cr.AddFunc(c.Schedule, upload); err != nil {
		return fmt.Errorf("parse schedule: %w", err)
	}
	cr.Start()
	<-ctx.Done()
	<-cr.Stop().Done()
	return nil
}

func openStore(cli *CLI) (*store.Store, *sql.DB, error) {
	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, db, nil
}

// objectSource builds the blob store and its Source adapter when an
// endpoint is configured. Both are nil otherwise.
func (cli *CLI) objectSource(ctx context.Context) (*blob.Store, source.Source, error) {
	if cli.MinioEndpoint == "" {
		return nil, nil, nil
	}

	blobs, err := blob.New(blob.Config{
		Endpoint:  cli.MinioEndpoint,
		AccessKey: cli.MinioAccessKey,
		SecretKey: cli.MinioSecretKey,
		Bucket:    cli.MinioBucket,
		UseSSL:    cli.MinioSSL,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return nil, nil, err
	}
	return blobs, source.NewObjectStore(blobs), nil
}

func (cli *CLI) sources(objSource source.Source) []source.Source {
	var sources []source.Source
	if objSource != nil {
		sources = append(sources, objSource)
	}
	if cli.FTPAddr != "" {
		sources = append(sources, source.NewFTP(cli.FTPAddr, cli.FTPUser, cli.FTPPass, cli.FTPDir))
	}
	return sources
}

func (cli *CLI) notifier() pipeline.Notifier {
	if cli.AlertURL == "" {
		log.Println("no alert webhook configured, logging alerts")
		return notify.Log{}
	}
	return notify.NewWebhook(cli.AlertURL)
}
