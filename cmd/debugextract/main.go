// Command debugextract runs the extraction pool over URLs given on the
// command line and prints what each page reduced to.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gosummarize/internal/fetch"
	"github.com/hyperifyio/gosummarize/internal/pool"
	"github.com/hyperifyio/gosummarize/internal/render"
	"github.com/hyperifyio/gosummarize/internal/summarize"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	renderer := flag.String("renderer", "http", "browser or http")
	workers := flag.Int("workers", pool.DefaultSize, "concurrent extractions")
	attempts := flag.Int("max.attempts", 1, "attempts per URL")
	chars := flag.Int("chars", 300, "characters of content to print per page")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: debugextract [flags] URL...")
		os.Exit(1)
	}

	var r render.Renderer = &render.HTTP{}
	if *renderer == "browser" {
		r = &render.Browser{}
	}
	policy := fetch.DefaultPolicy()
	policy.MaxAttempts = *attempts
	f := fetch.NewRetryingFetcher(fetch.NewPageFetcher(r, fetch.DefaultOptions()), policy)

	batch := pool.New(f, pool.Options{Size: *workers, Progress: &pool.LogProgress{}}).Extract(context.Background(), flag.Args())
	for i, p := range batch.Pages {
		fmt.Printf("%d. %s - %s\n%s\n\n", i+1, p.Title, p.URL, summarize.Truncate(p.Content, *chars))
	}
	for _, o := range batch.Failures {
		fmt.Printf("FAILED %s: %v\n", o.URL, o.Err)
	}
}
