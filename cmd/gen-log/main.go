// Command gen-log writes a synthetic transaction log and can push it to a running digest server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/okian/tradedigest/internal/samplelog"
	"github.com/okian/tradedigest/pkg/logger"
)

const (
	stdoutPath     = "-"
	startLayout    = "2006-01-02"
	defaultTimeout = 30 * time.Second
)

var (
	errUsage  = errors.New("usage")
	errUpload = errors.New("upload failed")
)

type options struct {
	cfg     samplelog.Config
	outPath string
	url     string
	timeout time.Duration
	verbose bool
}

type uploadResult struct {
	ReportID    string `json:"report_id"`
	DownloadURL string `json:"download_url"`
	Message     string `json:"message"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			os.Stderr.WriteString("gen-log: " + err.Error() + "\n")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if err := logger.InitWithFormat("text", stderr); err != nil {
		return err
	}
	if opts.verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}
	log := logger.Named("gen-log")

	g, err := samplelog.New(opts.cfg, samplelog.WithLogger(log))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := g.Generate(ctx, &buf); err != nil {
		return err
	}

	name := "sample.log"
	switch opts.outPath {
	case stdoutPath:
		if opts.url == "" {
			if _, err := stdout.Write(buf.Bytes()); err != nil {
				return err
			}
		}
	default:
		if err := os.WriteFile(opts.outPath, buf.Bytes(), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", opts.outPath, err)
		}
		name = filepath.Base(opts.outPath)
		log.Info(ctx, "log saved", logger.String("out", opts.outPath))
	}

	if opts.url == "" {
		return nil
	}
	res, err := upload(ctx, &http.Client{Timeout: opts.timeout}, opts.url, name, buf.Bytes())
	if err != nil {
		return err
	}
	log.Info(ctx, "log uploaded", logger.String("report_id", res.ReportID))
	_, err = fmt.Fprintln(stdout, strings.TrimSuffix(opts.url, "/")+res.DownloadURL)
	return err
}

// upload posts the log to baseURL/upload as the logfile form field.
func upload(ctx context.Context, client *http.Client, baseURL, name string, data []byte) (uploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("logfile", name)
	if err != nil {
		return uploadResult{}, err
	}
	if _, err := part.Write(data); err != nil {
		return uploadResult{}, err
	}
	if err := mw.Close(); err != nil {
		return uploadResult{}, err
	}

	url := strings.TrimSuffix(baseURL, "/") + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return uploadResult{}, fmt.Errorf("%w: %w", errUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return uploadResult{}, fmt.Errorf("%w: %w", errUpload, err)
	}
	defer resp.Body.Close()

	var res uploadResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return uploadResult{}, fmt.Errorf("%w: status %d: %w", errUpload, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return uploadResult{}, fmt.Errorf("%w: status %d: %s", errUpload, resp.StatusCode, res.Message)
	}
	return res, nil
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	opts := options{cfg: samplelog.DefaultConfig()}
	var start string
	var seed int64

	fs := flag.NewFlagSet("gen-log", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.outPath, "out", stdoutPath, "File to write; - for stdout")
	fs.IntVar(&opts.cfg.Lines, "lines", samplelog.DefaultLines, "Lines to generate")
	fs.IntVar(&opts.cfg.Days, "days", samplelog.DefaultDays, "Days the log spans")
	fs.IntVar(&opts.cfg.Players, "players", samplelog.DefaultPlayers, "Distinct players")
	fs.IntVar(&opts.cfg.Noise, "noise", opts.cfg.Noise, "Per-mille share of non-trade lines")
	fs.IntVar(&opts.cfg.Malformed, "malformed", opts.cfg.Malformed, "Per-mille share of trade lines missing an amount")
	fs.StringVar(&start, "start", opts.cfg.Start.Format(startLayout), "First day, YYYY-MM-DD")
	fs.Int64Var(&seed, "seed", samplelog.DefaultSeed, "Random seed")
	fs.StringVar(&opts.url, "url", "", "Digest server to upload to, e.g. http://localhost:9080")
	fs.DurationVar(&opts.timeout, "timeout", defaultTimeout, "Upload timeout")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return options{}, errUsage
	}

	day, err := time.Parse(startLayout, start)
	if err != nil {
		return options{}, fmt.Errorf("%w: -start: %w", samplelog.ErrInvalidConfig, err)
	}
	opts.cfg.Start = day
	opts.cfg.Seed = uint64(seed)
	if err := opts.cfg.Validate(); err != nil {
		return options{}, err
	}
	return opts, nil
}
