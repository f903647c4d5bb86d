package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: apiVersion,
		Kind:       kind,
		Metadata: PrometheusRuleMetadata{
			Name:   "gpt-recording-rules",
			Labels: ruleLabels(),
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "gpt-recording",
					Rules: []Rule{
						{
							Record: "gpt:http_requests:rate5m",
							Expr:   `sum(rate(gpt_http_requests_total[5m]))`,
						},
						{
							Record: "gpt:http_errors:rate5m",
							Expr:   `sum(rate(gpt_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "gpt:ebay_api_calls:rate5m",
							Expr:   `rate(gpt_ebay_api_calls_total[5m])`,
						},
						{
							Record: "gpt:price_lookups:rate5m",
							Expr:   `sum(rate(gpt_price_summaries_total[5m]))`,
						},
						{
							Record: "gpt:price_fetch_errors:rate5m",
							Expr:   `rate(gpt_price_fetch_errors_total[5m])`,
						},
					},
				},
			},
		},
	}
}
