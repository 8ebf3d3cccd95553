// Copyright 2025 Certen Protocol
//
// provenance-verify validates a single provenance document and reports
// structural, content-hash, signature, transparency-anchor and
// sealed-subgraph findings (§6).
//
// Usage:
//
//	provenance-verify [-strict] [-quiet] [-metrics-addr :9090] <document.json|document.yaml>
//
// Exit codes: 0 valid, 1 invalid (errors present), 2 engine error
// (unreadable file, malformed configuration, resolver construction
// failure).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/certen/provenance-verifier/pkg/aggregator"
	"github.com/certen/provenance-verifier/pkg/config"
	"github.com/certen/provenance-verifier/pkg/engine"
	"github.com/certen/provenance-verifier/pkg/profile"
	"github.com/certen/provenance-verifier/pkg/verrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		strict      = flag.Bool("strict", false, "elevate selected warnings to errors")
		quiet       = flag.Bool("quiet", false, "suppress the warning stream in the report")
		jsonOut     = flag.Bool("json", false, "emit the report as JSON instead of text")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address until the process exits")
		timeout     = flag.Duration("timeout", 60*time.Second, "overall validation timeout")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: provenance-verify [flags] <document.json|document.yaml>")
		return 2
	}
	docPath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Printf("loading configuration: %v", err)
		return 2
	}
	cfg.StrictMode = cfg.StrictMode || *strict
	cfg.QuietMode = cfg.QuietMode || *quiet
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid configuration: %v", err)
		return 2
	}

	reg := prometheus.NewRegistry()
	metrics := aggregator.NewMetrics(reg)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			log.Printf("serving metrics on %s", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	eng, err := engine.New(cfg, profile.NewRegistry(), metrics)
	if err != nil {
		log.Printf("constructing engine: %v", err)
		return 2
	}

	raw, err := os.ReadFile(docPath)
	if err != nil {
		log.Printf("reading %s: %v", docPath, err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := eng.Validate(ctx, raw, filepath.Dir(docPath))
	if err != nil {
		log.Printf("validating %s: %v", docPath, err)
		return 2
	}

	if *jsonOut {
		printJSON(result)
	} else {
		printText(result, cfg.QuietMode)
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func printText(result aggregator.Result, quiet bool) {
	if result.Valid {
		fmt.Println("VALID")
	} else {
		fmt.Println("INVALID")
	}
	for _, ev := range result.Errors {
		fmt.Printf("  ERROR   [%s] %s: %s\n", ev.Component, ev.Path, ev.Message)
	}
	if !quiet {
		for _, ev := range result.Warnings {
			fmt.Printf("  WARNING [%s] %s: %s\n", ev.Component, ev.Path, ev.Message)
		}
	}
}

type jsonEvent struct {
	Component string      `json:"component"`
	Kind      verrors.Kind `json:"kind"`
	Path      string      `json:"path"`
	Message   string      `json:"message"`
	FollowOn  bool        `json:"follow_on,omitempty"`
}

type jsonReport struct {
	Valid    bool        `json:"valid"`
	Errors   []jsonEvent `json:"errors"`
	Warnings []jsonEvent `json:"warnings"`
}

func printJSON(result aggregator.Result) {
	report := jsonReport{Valid: result.Valid}
	for _, ev := range result.Errors {
		report.Errors = append(report.Errors, jsonEvent{ev.Component, ev.Kind, ev.Path, ev.Message, ev.FollowOn})
	}
	for _, ev := range result.Warnings {
		report.Warnings = append(report.Warnings, jsonEvent{ev.Component, ev.Kind, ev.Path, ev.Message, ev.FollowOn})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
