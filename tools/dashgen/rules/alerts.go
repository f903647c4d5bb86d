package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// game-price-tracker operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: apiVersion,
		Kind:       kind,
		Metadata: PrometheusRuleMetadata{
			Name:   "gpt-alerts",
			Labels: ruleLabels(),
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "gpt-alerts",
					Rules: []Rule{
						{
							Alert:  "GptDown",
							Expr:   `absent(up{job="game-price-tracker"})`,
							For:    "2m",
							Labels: severity("critical"),
							Annotations: map[string]string{
								"summary":     "Game Price Tracker is down",
								"description": "The game-price-tracker job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert:  "GptReadinessDown",
							Expr:   `gpt_readyz_up == 0`,
							For:    "2m",
							Labels: severity("critical"),
							Annotations: map[string]string{
								"summary":     "Game Price Tracker cannot obtain an eBay token",
								"description": "The readiness probe has been failing for more than 2 minutes. Check the eBay credentials.",
							},
						},
						{
							Alert:  "GptHighErrorRate",
							Expr:   `gpt:http_errors:rate5m / gpt:http_requests:rate5m > 0.05`,
							For:    "5m",
							Labels: severity("warning"),
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on Game Price Tracker",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert:  "GptPriceFetchErrors",
							Expr:   `gpt:price_fetch_errors:rate5m / gpt:price_lookups:rate5m > 0.2`,
							For:    "10m",
							Labels: severity("warning"),
							Annotations: map[string]string{
								"summary":     "Price lookups are failing",
								"description": "More than 20% of price fetches have failed over the last 10 minutes.",
							},
						},
						{
							Alert:  "GptSlowPriceFetch",
							Expr:   `histogram_quantile(0.95, sum(rate(gpt_price_fetch_duration_seconds_bucket[10m])) by (le)) > 30`,
							For:    "10m",
							Labels: severity("warning"),
							Annotations: map[string]string{
								"summary":     "Price fetches are slow",
								"description": "The p95 price fetch duration has been above 30s for 10 minutes.",
							},
						},
						{
							Alert:  "GptEbayQuotaHigh",
							Expr:   `gpt_ebay_daily_usage > 4000`,
							For:    "5m",
							Labels: severity("warning"),
							Annotations: map[string]string{
								"summary":     "eBay API usage is above 80% of the quota",
								"description": "eBay search calls in the current window have exceeded 4000 (default limit is 5000).",
							},
						},
						{
							Alert:  "GptEbayLimitReached",
							Expr:   `increase(gpt_ebay_daily_limit_hits_total[5m]) > 0`,
							For:    "0m",
							Labels: severity("critical"),
							Annotations: map[string]string{
								"summary":     "eBay API quota has been reached",
								"description": "The eBay Browse API quota is exhausted. Price lookups fail until the window resets.",
							},
						},
					},
				},
			},
		},
	}
}

func severity(level string) map[string]string {
	return map[string]string{"severity": level}
}
