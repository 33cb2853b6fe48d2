package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/soltixdb/streamwatch/internal/ingest"
)

type options struct {
	count     int
	interval  time.Duration
	seed      int64
	capacity  int
	window    int
	threshold float64
	sample    bool
	all       bool
	target    string
	stream    string
	apiKey    string
}

var opts options

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	genCfg := ingest.DefaultGeneratorConfig()
	genCfg.Seed = opts.seed
	var src ingest.Source = ingest.NewGenerator(genCfg)
	if opts.count > 0 {
		src = limit(src, opts.count)
	}

	var submit ingest.SubmitFunc
	var summary func()
	if opts.target != "" {
		poster, err := newPoster(opts.target, opts.stream, opts.apiKey)
		if err != nil {
			return err
		}
		submit = poster.post
		summary = func() {
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d values to %s (%d anomalies reported)\n",
				poster.sent, poster.endpoint, poster.anomalies)
		}
	} else {
		d, err := detector.New(detector.Config{
			Capacity:     opts.capacity,
			WindowSize:   opts.window,
			Threshold:    opts.threshold,
			SampleStdDev: opts.sample,
		})
		if err != nil {
			return err
		}
		p := &printer{out: cmd.OutOrStdout(), detector: d, all: opts.all}
		submit = p.observe
		summary = func() {
			fmt.Fprintf(cmd.OutOrStdout(), "observed %d values, %d anomalies\n", p.observed, p.anomalies)
		}
	}

	var err error
	if opts.interval > 0 {
		err = ingest.Run(ctx, src, opts.interval, submit)
	} else {
		err = runUnpaced(ctx, src, submit)
	}
	if err != nil {
		return err
	}
	summary()
	return nil
}

// runUnpaced feeds src to submit as fast as possible.
func runUnpaced(ctx context.Context, src ingest.Source, submit ingest.SubmitFunc) error {
	for ctx.Err() == nil {
		v, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("source failed: %w", err)
		}
		if err := submit(ctx, v); err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}
	}
	return nil
}

// limitedSource stops after n values.
type limitedSource struct {
	src       ingest.Source
	remaining int
}

func limit(src ingest.Source, n int) ingest.Source {
	return &limitedSource{src: src, remaining: n}
}

func (l *limitedSource) Next(ctx context.Context) (float64, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	l.remaining--
	return l.src.Next(ctx)
}

type printer struct {
	out       io.Writer
	detector  *detector.StreamDetector
	all       bool
	observed  int
	anomalies int
}

func (p *printer) observe(_ context.Context, value float64) error {
	v, err := p.detector.Observe(value)
	if err != nil {
		return err
	}
	p.observed++
	if v.IsAnomaly {
		p.anomalies++
	}
	if v.IsAnomaly || p.all {
		fmt.Fprintln(p.out, formatVerdict(v))
	}
	return nil
}

func formatVerdict(v detector.Verdict) string {
	if !v.IsAnomaly {
		return fmt.Sprintf("#%d value=%.2f mean=%.2f stddev=%.2f", v.Seq, v.Value, v.Mean, v.StdDev)
	}
	return fmt.Sprintf("#%d value=%.2f mean=%.2f stddev=%.2f ANOMALY %s score=%.2f",
		v.Seq, v.Value, v.Mean, v.StdDev, v.Kind, v.Score)
}

// poster sends values to the observe endpoint of a running service.
type poster struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	sent      int
	anomalies int
}

func newPoster(target, stream, apiKey string) (*poster, error) {
	base, err := url.Parse(strings.TrimRight(target, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", target, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid target %q: scheme and host required", target)
	}
	return &poster{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: base.String() + "/v1/streams/" + url.PathEscape(stream) + "/observe",
		apiKey:   apiKey,
	}, nil
}

func (p *poster) post(ctx context.Context, value float64) error {
	body, err := json.Marshal(map[string]float64{"value": value})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("observe returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Verdict detector.Verdict `json:"verdict"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	p.sent++
	if out.Verdict.IsAnomaly {
		p.anomalies++
	}
	return nil
}
