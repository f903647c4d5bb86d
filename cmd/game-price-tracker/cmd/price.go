package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/game-price-tracker/pkg/pricestats"
	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// errPriceUnavailable hides marketplace failure details from the CLI user.
var errPriceUnavailable = errors.New("price unavailable")

type priceOptions struct {
	platform string
	region   string
	output   string
}

func priceCmd() *cobra.Command {
	var opts priceOptions

	c := &cobra.Command{
		Use:   "price <title>",
		Short: "Estimate the resale price of a game",
		Long: "Searches eBay for the game and prints the EUR-normalized used price\n" +
			"range and average plus the average new price.",
		Example: `  game-price-tracker price "Zelda Ocarina of Time" --platform "Nintendo 64"
  game-price-tracker price "Final Fantasy IX" --platform "PlayStation" --region PAL --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrice(cmd, strings.Join(args, " "), opts)
		},
	}

	c.Flags().StringVar(&opts.platform, "platform", "", "platform name (abbreviated automatically)")
	c.Flags().StringVar(&opts.region, "region", "", "region hint (EUR or PAL)")
	c.Flags().StringVarP(&opts.output, "output", "o", outputTable, "output format (table, json)")

	return c
}

func runPrice(cmd *cobra.Command, title string, opts priceOptions) error {
	if opts.output != outputTable && opts.output != outputJSON {
		return fmt.Errorf("invalid output format %q", opts.output)
	}

	params := domain.SearchParams{
		Title:        title,
		PlatformName: opts.platform,
		RegionHint:   domain.RegionHint(strings.ToUpper(opts.region)),
	}
	if err := params.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}

	samples, err := p.fetcher.FetchSamples(cmd.Context(), params)
	if err != nil {
		log.Error("price lookup failed", "title", params.Title, "error", err)
		return errPriceUnavailable
	}

	summary := pricestats.Summarize(samples.Used, samples.New)
	if opts.output == outputJSON {
		return printPriceJSON(cmd.OutOrStdout(), summary, samples)
	}
	return printPriceTable(cmd.OutOrStdout(), params, summary, samples)
}

type pricePayload struct {
	Summary   *domain.PriceSummary `json:"summary"`
	UsedCount int                  `json:"used_samples"`
	NewCount  int                  `json:"new_samples"`
}

func printPriceJSON(w io.Writer, summary *domain.PriceSummary, samples *domain.Samples) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pricePayload{
		Summary:   summary,
		UsedCount: len(samples.Used),
		NewCount:  len(samples.New),
	})
}

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printPriceTable(
	w io.Writer,
	params domain.SearchParams,
	summary *domain.PriceSummary,
	samples *domain.Samples,
) error {
	tw := newTabWriter(w)
	tw.writef("Title:\t%s\n", params.Title)
	if params.PlatformName != "" {
		tw.writef("Platform:\t%s\n", params.PlatformName)
	}
	tw.writef("Samples:\t%d used, %d new\n", len(samples.Used), len(samples.New))

	if summary == nil {
		tw.writef("Price:\tno used listings found\n")
		return tw.finish()
	}

	tw.writef("Min:\t%s\n", formatEUR(summary.MinPrice))
	tw.writef("Max:\t%s\n", formatEUR(summary.MaxPrice))
	tw.writef("Average:\t%s\n", formatEUR(summary.AveragePrice))
	if summary.NewPrice > 0 {
		tw.writef("New:\t%s\n", formatEUR(summary.NewPrice))
	} else {
		tw.writef("New:\t-\n")
	}
	tw.writef("Listed in:\t%s\n", summary.Currency)
	return tw.finish()
}

func formatEUR(v float64) string {
	return fmt.Sprintf("%.2f EUR", v)
}
