// Pipeline wiring: this file turns a decoded config.Pipeline into concrete
// source, decoder, sink, and loader instances and executes the load. The CLI
// layer stays thin and depends only on the sink factory, never on backend
// packages directly.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"stageload/internal/config"
	"stageload/internal/datasource"
	"stageload/internal/datasource/file"
	"stageload/internal/datasource/httpds"
	"stageload/internal/loader"
	"stageload/internal/parser"
	csvdec "stageload/internal/parser/csv"
	jsondec "stageload/internal/parser/json"
	"stageload/internal/sink"
	"stageload/internal/transform"
)

// runPipeline executes one load for the pipeline and returns its report.
func runPipeline(ctx context.Context, p config.Pipeline) (*loader.Report, error) {
	if err := checkPipeline(p); err != nil {
		return nil, err
	}

	snk, err := openSink(ctx, p)
	if err != nil {
		return nil, err
	}
	defer snk.Close()

	if p.Load.Replace {
		if err := snk.Truncate(ctx); err != nil {
			return nil, fmt.Errorf("replace: %w", err)
		}
	}

	src := buildSource(p.Source)
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ld, err := loader.New(p.Contract, snk, loader.Options{
		BatchSize: p.Load.BatchSize,
		MaxErrors: p.Load.MaxErrors,
		Job:       p.Job,
		Coerce: transform.Options{
			Layouts:     p.Load.TimestampLayouts,
			DateLayouts: p.Load.DateLayouts,
		},
	})
	if err != nil {
		return nil, err
	}
	return ld.Run(ctx, buildDecoder(p.Decoder, rc))
}

// checkPipeline runs the static linter and fails on error-severity issues.
func checkPipeline(p config.Pipeline) error {
	var firstErr error
	for _, iss := range config.ValidatePipeline(p) {
		fmt.Fprintln(errOut, iss.Error())
		if iss.Severity == config.SeverityError && firstErr == nil {
			firstErr = iss
		}
	}
	if firstErr != nil {
		return fmt.Errorf("invalid pipeline: %w", firstErr)
	}
	return nil
}

// openSink opens the destination and bootstraps its table when asked.
func openSink(ctx context.Context, p config.Pipeline) (sink.Sink, error) {
	cfg := p.Sink
	cfg.Columns = p.Contract.Columns()
	snk, err := sink.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoCreate {
		if err := sink.EnsureTable(ctx, snk, p.Contract, cfg); err != nil {
			snk.Close()
			return nil, err
		}
	}
	return snk, nil
}

func buildSource(s config.Source) datasource.Source {
	switch s.Kind {
	case "http":
		headers := http.Header{}
		for k, v := range s.HTTP.Headers {
			headers.Set(k, v)
		}
		return httpds.NewRemote(s.HTTP.URL, httpds.Config{
			Headers:            headers,
			InsecureSkipVerify: s.HTTP.InsecureSkipVerify,
		})
	default: // "file", enforced by the linter
		return file.NewLocal(s.File.Path)
	}
}

func buildDecoder(d config.Decoder, r io.Reader) parser.Decoder {
	switch d.Kind {
	case "json":
		return jsondec.NewDecoder(r, jsondec.Options{
			MaxDocBytes: d.Options.Int("max_doc_bytes", 0),
		})
	default: // "csv", enforced by the linter
		return csvdec.NewDecoder(r, csvdec.Options{
			Comma:       d.Options.Rune("comma", ','),
			RecordDelim: d.Options.Rune("record_delim", 0),
			LazyQuotes:  d.Options.Bool("lazy_quotes", false),
			HasHeader:   d.Options.Bool("has_header", true),
			SkipRows:    d.Options.Int("skip_rows", 0),
			TrimSpace:   d.Options.Bool("trim_space", true),
			HeaderMap:   d.Options.StringMap("header_map"),
		})
	}
}
