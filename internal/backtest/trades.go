package backtest

// ExtractTrades pairs each 0→1 position change with the next 1→0 change.
// Prices are the closes of the bars where the changes occur. A position
// still open on the last bar is not reported.
func ExtractTrades(result *Result) []Trade {
	trades := []Trade{}
	if result.Len() < 2 {
		return trades
	}

	var open *Row
	rows := result.Rows
	for i := 1; i < len(rows); i++ {
		switch rows[i].Position - rows[i-1].Position {
		case 1:
			open = &rows[i]
		case -1:
			if open == nil {
				continue
			}
			exit := rows[i]
			trades = append(trades, Trade{
				EntryTime:  open.Time,
				ExitTime:   exit.Time,
				EntryPrice: open.Close,
				ExitPrice:  exit.Close,
				Return:     (exit.Close - open.Close) / open.Close,
				Duration:   exit.Time.Sub(open.Time),
			})
			open = nil
		}
	}

	return trades
}
