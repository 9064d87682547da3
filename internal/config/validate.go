// This file adds a lightweight linter for Pipeline values. It performs
// static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"sort"
	"strings"

	"stageload/internal/schema"
	"stageload/internal/transform"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates an issue that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates an issue worth surfacing that need not
	// block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline. Path is a
// dotted path into the config (e.g. "sink.kind", "contract.fields[2]").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error where needed.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateDecoder(p.Decoder)...)
	issues = append(issues, validateContract(p.Contract)...)
	issues = append(issues, validateSink(p)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{SeverityError, "source.file.path", "path must not be empty for kind \"file\""})
		}
	case "http":
		if strings.TrimSpace(s.HTTP.URL) == "" {
			issues = append(issues, Issue{SeverityError, "source.http.url", "url must not be empty for kind \"http\""})
		}
	case "":
		issues = append(issues, Issue{SeverityError, "source.kind", "kind must be \"file\" or \"http\""})
	default:
		issues = append(issues, Issue{SeverityError, "source.kind", fmt.Sprintf("unknown source kind %q", s.Kind)})
	}
	return issues
}

func validateDecoder(d Decoder) []Issue {
	var issues []Issue
	switch d.Kind {
	case "csv":
		if c := d.Options.String("comma", ","); len([]rune(c)) != 1 {
			issues = append(issues, Issue{SeverityError, "decoder.options.comma", "comma must be a single character"})
		}
	case "json":
		if n := d.Options.Int("max_doc_bytes", 0); n < 0 {
			issues = append(issues, Issue{SeverityError, "decoder.options.max_doc_bytes", "max_doc_bytes must be >= 0"})
		}
	case "":
		issues = append(issues, Issue{SeverityError, "decoder.kind", "kind must be \"csv\" or \"json\""})
	default:
		issues = append(issues, Issue{SeverityError, "decoder.kind", fmt.Sprintf("unknown decoder kind %q", d.Kind)})
	}
	return issues
}

func validateContract(c schema.Contract) []Issue {
	var issues []Issue
	if err := c.Validate(); err != nil {
		issues = append(issues, Issue{SeverityError, "contract", err.Error()})
		return issues
	}
	for i, f := range c.Fields {
		if f.Transform == "" {
			continue
		}
		if _, ok := transform.LookupUnit(f.Transform); !ok {
			names := transform.UnitNames()
			sort.Strings(names)
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("contract.fields[%d].transform", i),
				Message:  fmt.Sprintf("unknown transform %q (available: %s)", f.Transform, strings.Join(names, ", ")),
			})
		}
	}
	return issues
}

func validateSink(p Pipeline) []Issue {
	var issues []Issue
	switch p.Sink.Kind {
	case "":
		issues = append(issues, Issue{SeverityError, "sink.kind", "kind must not be empty"})
	case "memory":
		// DSN/table not required.
	default:
		if strings.TrimSpace(p.Sink.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "sink.dsn", fmt.Sprintf("dsn must not be empty for kind %q", p.Sink.Kind)})
		}
		if strings.TrimSpace(p.Sink.Table) == "" {
			issues = append(issues, Issue{SeverityError, "sink.table", fmt.Sprintf("table must not be empty for kind %q", p.Sink.Kind)})
		}
	}
	if len(p.Sink.Columns) > 0 && len(p.Sink.Columns) != len(p.Contract.Fields) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sink.columns",
			Message:  "sink.columns is ignored; the contract's field order defines the destination columns",
		})
	}
	return issues
}
