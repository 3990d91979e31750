package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/scientia/internal/model"
)

// BatchProcessor looks up many names concurrently
type BatchProcessor struct {
	looker      Looker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(looker Looker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		looker:      looker,
		concurrency: concurrency,
	}
}

// LookupNames returns one result per name, in input order
func (b *BatchProcessor) LookupNames(ctx context.Context, names []string) []Result {
	if len(names) == 0 {
		return []Result{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start(b.looker)

	// Submit from a separate goroutine so a full queue never blocks result draining
	go func() {
		for i, name := range names {
			if !pool.Submit(i, name) {
				break
			}
		}
	}()

	return b.collect(ctx, pool, names)
}

func (b *BatchProcessor) collect(ctx context.Context, pool *Pool, names []string) []Result {
	results := make([]Result, len(names))
	filled := make([]bool, len(names))

	for range names {
		select {
		case r := <-pool.results:
			results[r.Index] = r
			filled[r.Index] = true
		case <-ctx.Done():
			pool.Shutdown()
			for i, ok := range filled {
				if !ok {
					results[i] = Result{Index: i, Name: names[i], Err: ctx.Err()}
				}
			}
			return results
		}
	}
	pool.Shutdown()
	return results
}

// ReadNames reads one name per line, skipping blank lines, # comments and duplicates
func ReadNames(r io.Reader) ([]string, error) {
	var names []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan names: %w", err)
	}
	return names, nil
}

// ReadNamesFromFile reads names from path; "-" means stdin
func ReadNamesFromFile(path string) ([]string, error) {
	if path == "-" {
		return ReadNames(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadNames(file)
}

// Summary counts batch outcomes
type Summary struct {
	Found     int
	NotFound  int
	Malformed int
	Failed    int
}

// Summarize classifies results by error kind
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Err == nil:
			s.Found++
		case errors.Is(r.Err, model.ErrNotFound):
			s.NotFound++
		case errors.Is(r.Err, model.ErrMalformedDocument):
			s.Malformed++
		default:
			s.Failed++
		}
	}
	return s
}
