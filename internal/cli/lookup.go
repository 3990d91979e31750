package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/scientia/internal/logging"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/narrator"
	"github.com/ppiankov/scientia/internal/pipeline"
	"github.com/ppiankov/scientia/internal/prompt"
	"github.com/ppiankov/scientia/internal/roster"
)

const namePrompt = `Enter a scientist "Name Surname" or leave empty to choose from the known ones`

var lookupNumber int

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup [name]",
	Short: "Look up a scientist's birth date, death date, age and article intro",
	Long: `Lookup finds the scientist's encyclopedia article and prints the birth
date, the date of death, the age and the lead paragraphs.

The article is tried directly first. When that fails the encyclopedia search
is used, and you are asked to pick among the results.

Example:
  scientia lookup "Marie Curie"
  scientia lookup --number 2
  scientia lookup "Albert Einstien" --engine http
  scientia lookup "Charles Darwin" --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().IntVarP(&lookupNumber, "number", "n", 0, "pick a known scientist by number (see 'scientia list')")
	addEngineFlags(lookupCmd)
	lookupCmd.Flags().Bool("no-pager", false, "print the article without a pager")
}

// addEngineFlags registers the flags shared by lookup and batch
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("engine", string(model.EngineBrowser), "document engine: browser or http")
	cmd.Flags().String("base-url", "", "encyclopedia base URL (default from config)")
	cmd.Flags().String("output", "text", "output format: text or json")
	cmd.Flags().Bool("no-cache", false, "disable the page cache (http engine)")
	cmd.Flags().Bool("show-browser", false, "run the browser with a visible window")
	cmd.Flags().Bool("search-engine", false, "try the web search engine before the encyclopedia search")
}

// applyFlags copies explicitly set flags into v, above env and config file
func applyFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()
	set := func(flag, key string, value func() any) {
		if flags.Lookup(flag) != nil && flags.Changed(flag) {
			v.Set(key, value())
		}
	}
	str := func(flag string) func() any {
		return func() any { s, _ := flags.GetString(flag); return s }
	}
	boolean := func(flag string, invert bool) func() any {
		return func() any { b, _ := flags.GetBool(flag); return b != invert }
	}

	set("engine", "browser.engine", str("engine"))
	set("base-url", "source.base_url", str("base-url"))
	set("output", "output.format", str("output"))
	set("no-cache", "cache.enabled", boolean("no-cache", true))
	set("show-browser", "browser.headless", boolean("show-browser", true))
	set("search-engine", "lookup.search_engine_fallback", boolean("search-engine", false))
	set("no-pager", "output.pager", boolean("no-pager", true))
}

func runLookup(cmd *cobra.Command, args []string) error {
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
	log.Debug("lookup starting", zap.String("engine", string(cfg.Browser.Engine)), zap.String("run", runID))

	d, err := newDeps(cfg, log)
	if err != nil {
		return err
	}

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	ui := prompt.NewConsole(in, out, cfg.Output.Pager)

	var n narrator.Narrator = narrator.NewConsole(out)
	if cfg.Output.Format == "json" {
		n = narrator.Silent{}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	var requested string
	nameSource := func() (string, error) {
		name, err := resolveName(args, lookupNumber, ui, out)
		requested = name
		return name, err
	}

	p := newPipeline(cfg, d, ui, n, log)
	rec, err := p.Run(ctx, nameSource)
	if err != nil {
		return reportLookupError(out, requested, err)
	}

	r := pipeline.NewRenderer(out, ui)
	if cfg.Output.Format == "json" {
		return r.RenderJSON(rec)
	}
	return r.Present(rec)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// resolveName takes the name from args, then from --number, then asks.
// An empty answer falls back to the roster menu.
func resolveName(args []string, number int, ui prompt.Interactor, out io.Writer) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if number != 0 {
		name, err := roster.Name(number)
		if err != nil {
			return "", fmt.Errorf("--number: %w", err)
		}
		_, _ = fmt.Fprintf(out, "You selected scientist: %s\n", name)
		return name, nil
	}

	name, err := ui.Ask(namePrompt, "")
	if err != nil {
		return "", err
	}
	if name = strings.TrimSpace(name); name != "" {
		return name, nil
	}

	_, _ = fmt.Fprint(out, "\n"+roster.Menu())
	choice, err := ui.ChooseInt("Enter the number of the scientist [1]", func(raw string) (int, error) {
		if strings.TrimSpace(raw) == "" {
			return 1, nil
		}
		return roster.ValidateNumber(raw)
	})
	if err != nil {
		return "", err
	}

	name, err = roster.Name(choice)
	if err != nil {
		return "", err
	}
	_, _ = fmt.Fprintf(out, "You selected scientist: %s\n", name)
	return name, nil
}

// reportLookupError turns a not-found lookup into an apology and passes
// every other failure up with context
func reportLookupError(out io.Writer, name string, err error) error {
	var notFound *model.NotFoundError
	switch {
	case errors.As(err, &notFound):
		if notFound.Name != "" {
			name = notFound.Name
		}
		_, _ = fmt.Fprintf(out, "\nSorry, I can not find the scientist %s.\n"+
			"Try to correct name and/or fulfil both the Name and the Surname next time\n", strconv.Quote(name))
		return nil
	case errors.Is(err, model.ErrMalformedDocument):
		return fmt.Errorf("unexpected document shape: %w", err)
	case errors.Is(err, prompt.ErrNoInput):
		return fmt.Errorf("lookup cancelled: %w", err)
	}
	return fmt.Errorf("lookup failed: %w", err)
}
