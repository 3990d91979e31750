package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/scientia/internal/logging"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/narrator"
	"github.com/ppiankov/scientia/internal/pipeline"
	"github.com/ppiankov/scientia/internal/prompt"
	"github.com/ppiankov/scientia/internal/roster"
	"github.com/ppiankov/scientia/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchRoster  bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Look up many scientists without prompting",
	Long: `Batch looks up every name in a file (one per line, "-" for stdin) concurrently.

Nothing is asked: an article whose title does not contain the name is
skipped, and a search that lists several results counts as not found.

Example:
  scientia batch names.txt --engine http
  scientia batch --roster --output json
  cat names.txt | scientia batch - --concurrency 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent lookups")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&batchRoster, "roster", false, "look up every known scientist")
	addEngineFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	names, err := batchNames(args)
	if err != nil {
		return err
	}

	applyFlags(cmd, viper.GetViper())
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log, runID := logging.WithSession(log)

	d, err := newDeps(cfg, log)
	if err != nil {
		return err
	}
	p := newPipeline(cfg, d, prompt.Unattended{}, narrator.Silent{}, log)

	ctx, cancel := context.WithTimeout(commandContext(cmd), batchTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Looking up %d names with %d workers (%s engine)\n", len(names), concurrency, cfg.Browser.Engine)
	}
	log.Debug("batch starting", zap.Int("names", len(names)), zap.String("run", runID))

	results := worker.NewBatchProcessor(p, concurrency).LookupNames(ctx, names)

	out := cmd.OutOrStdout()
	if cfg.Output.Format == "json" {
		err = renderBatchJSON(out, results)
	} else {
		renderBatchText(out, results)
	}
	if err != nil {
		return err
	}

	s := worker.Summarize(results)
	fmt.Fprintf(os.Stderr, "✓ %d found, %d not found, %d malformed, %d failed\n", s.Found, s.NotFound, s.Malformed, s.Failed)
	if s.Failed > 0 {
		return fmt.Errorf("%d lookups failed", s.Failed)
	}
	return nil
}

func batchNames(args []string) ([]string, error) {
	switch {
	case batchRoster && len(args) > 0:
		return nil, fmt.Errorf("use either a file or --roster, not both")
	case batchRoster:
		return roster.Names(), nil
	case len(args) == 0:
		return nil, fmt.Errorf("a names file or --roster is required")
	}

	names, err := worker.ReadNamesFromFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no names in %s", args[0])
	}
	return names, nil
}

func renderBatchText(out io.Writer, results []worker.Result) {
	for _, r := range results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(out, "%-24s  %s\n", r.Name, r.Err)
			continue
		}
		rec := r.Record
		death := "-"
		if rec.DeathDate != nil {
			death = rec.DeathDate.Format(pipeline.DisplayLayout)
		}
		_, _ = fmt.Fprintf(out, "%-24s  born %s  died %s  age %d\n",
			r.Name, rec.BirthDate.Format(pipeline.DisplayLayout), death, rec.Age)
	}
}

type batchEntry struct {
	Name   string                    `json:"name"`
	Record *model.BiographicalRecord `json:"record,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

func renderBatchJSON(out io.Writer, results []worker.Result) error {
	entries := make([]batchEntry, len(results))
	for i, r := range results {
		entries[i] = batchEntry{Name: r.Name, Record: r.Record}
		if r.Err != nil {
			entries[i].Error = r.Err.Error()
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}
