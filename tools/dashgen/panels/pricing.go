package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// FetchLatency returns a timeseries panel showing price fetch duration
// percentiles. A fetch runs both search cascades.
func FetchLatency() *timeseries.PanelBuilder {
	const histogram = "gpt_price_fetch_duration_seconds"
	return timeseries.NewPanelBuilder().
		Title("Price Fetch Latency").
		Description("Duration of a full sample fetch (used and new cascades)").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(quantileExpr(0.50, histogram), "p50", "A")).
		WithTarget(PromQuery(quantileExpr(0.95, histogram), "p95", "B")).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenYellowRed(10, 30)).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// CascadeSteps returns a timeseries panel showing which cascade steps run.
// Late steps firing often means early queries return too few samples.
func CascadeSteps() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Cascade Steps").
		Description("Search cascade steps executed per second, by strategy and step").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			fmt.Sprintf(`sum by (strategy, step) (rate(%s[5m]))`, jobSelector("gpt_cascade_steps_total")),
			"{{strategy}}/{{step}}", "A",
		)).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// LookupResults returns a timeseries panel showing price lookups by result.
func LookupResults() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Lookup Results").
		Description("Price lookups per second by result (summary, no_summary, unavailable)").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			fmt.Sprintf(`sum by (result) (rate(%s[5m]))`, jobSelector("gpt_price_summaries_total")),
			"{{result}}", "A",
		)).
		Unit("ops").
		FillOpacity(30).
		LineWidth(1).
		Stacking(common.NewStackingConfigBuilder().Mode(common.StackingModeNormal)).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// FetchErrorRate returns a timeseries panel showing the share of price
// fetches that failed.
func FetchErrorRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Fetch Error Rate %").
		Description("Failed price fetches as percentage of lookups").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`gpt:price_fetch_errors:rate5m / gpt:price_lookups:rate5m * 100`,
			"error %", "A",
		)).
		Unit("percent").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(5, 20)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}
