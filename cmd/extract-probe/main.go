// Probe program that runs fact extraction over known articles through the
// http engine. Useful for spotting locator drift after the encyclopedia
// changes its markup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/scientia/internal/driver/htmldoc"
	"github.com/ppiankov/scientia/internal/extract"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/roster"
	"github.com/ppiankov/scientia/internal/source"
	"github.com/ppiankov/scientia/internal/util"
)

func main() {
	baseURL := flag.String("base-url", "https://en.wikipedia.org", "encyclopedia base URL")
	timeout := flag.Duration("timeout", 60*time.Second, "overall timeout")
	flag.Parse()

	names := flag.Args()
	if len(names) == 0 {
		names = roster.Names()
	}

	fmt.Println("=== Fact Extraction Probe ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	layout := source.Wikipedia(strings.TrimRight(*baseURL, "/"))
	engine := htmldoc.New(htmldoc.Options{
		UserAgent:  model.DefaultConfig().HTTP.UserAgent,
		Timeout:    20 * time.Second,
		MaxRetries: 2,
		Limiter:    util.NewLimiter(1, 1),
	})
	extractor := extract.NewExtractor(layout, nil)

	failures := 0
	for _, name := range names {
		url := layout.ArticleURL(name)
		fmt.Printf("Probing: %s\n", url)
		fmt.Println(strings.Repeat("-", 60))

		if err := probe(ctx, engine, extractor, name, url); err != nil {
			fmt.Printf("  ⚠️  %v\n\n", err)
			failures++
			continue
		}
		fmt.Println()
	}

	fmt.Printf("=== Probe Complete: %d/%d extracted ===\n", len(names)-failures, len(names))
	if failures > 0 {
		os.Exit(1)
	}
}

func probe(ctx context.Context, engine *htmldoc.Engine, extractor *extract.Extractor, name, url string) error {
	sess, err := engine.Open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	doc := &model.ConfirmedDocument{URL: url, Strategy: "probe"}
	rec, err := extractor.Extract(ctx, sess, doc, name)
	if err != nil {
		return err
	}

	fmt.Printf("  ✓ Born:  %s\n", rec.BirthDate.Format(model.DateLayout))
	if rec.DeathDate != nil {
		fmt.Printf("  ✓ Died:  %s\n", rec.DeathDate.Format(model.DateLayout))
	} else {
		fmt.Println("  ✓ Died:  (living)")
	}
	fmt.Printf("  ✓ Age:   %d\n", rec.Age)
	fmt.Printf("  ✓ Intro: %d paragraphs\n", len(rec.Intro))
	return nil
}
