package performance

// Metric names as displayed in reports and dashboards
const (
	NameTotalReturn      = "Total Return (%)"
	NameAnnualizedReturn = "Annualized Return (%)"
	NameVolatility       = "Volatility (%)"
	NameSharpeRatio      = "Sharpe Ratio"
	NameSortinoRatio     = "Sortino Ratio"
	NameMaxDrawdown      = "Max Drawdown (%)"
	NameCalmarRatio      = "Calmar Ratio"
	NameWinRate          = "Win Rate (%)"
	NameBestDay          = "Best Day (%)"
	NameWorstDay         = "Worst Day (%)"
)

// Metric is one named statistic
type Metric struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Metrics returns the statistics in display order
func (s Summary) Metrics() []Metric {
	return []Metric{
		{NameTotalReturn, s.TotalReturn},
		{NameAnnualizedReturn, s.AnnualizedReturn},
		{NameVolatility, s.Volatility},
		{NameSharpeRatio, s.SharpeRatio},
		{NameSortinoRatio, s.SortinoRatio},
		{NameMaxDrawdown, s.MaxDrawdown},
		{NameCalmarRatio, s.CalmarRatio},
		{NameWinRate, s.WinRate},
		{NameBestDay, s.BestDay},
		{NameWorstDay, s.WorstDay},
	}
}

// Get looks up a statistic by display name
func (s Summary) Get(name string) (float64, bool) {
	for _, m := range s.Metrics() {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}
