package engine

import (
	"fmt"
	"time"

	"github.com/vegasq/tabq/table"
)

// timeIntelligenceStep adds calendar attributes derived from a date column:
// {column}_Year, {column}_Month, {column}_Quarter and {column}_DayOfWeek.
func timeIntelligenceStep(tbl *table.Table, p params) (*table.Table, error) {
	column, err := p.str("column")
	if err != nil {
		return nil, err
	}
	values, err := tbl.Column(column)
	if err != nil {
		return nil, configError("%v", err)
	}

	n := len(values)
	years := make([]interface{}, n)
	months := make([]interface{}, n)
	quarters := make([]interface{}, n)
	weekdays := make([]interface{}, n)

	failed := 0
	for i, v := range values {
		ts, ok := table.ToTime(v).(time.Time)
		if !ok {
			if v != nil {
				failed++
			}
			continue
		}
		years[i] = int64(ts.Year())
		months[i] = ts.Month().String()
		quarters[i] = fmt.Sprintf("Q%d", (int(ts.Month())-1)/3+1)
		weekdays[i] = ts.Weekday().String()
	}

	out := tbl
	for _, derived := range []struct {
		suffix string
		values []interface{}
	}{
		{"_Year", years},
		{"_Month", months},
		{"_Quarter", quarters},
		{"_DayOfWeek", weekdays},
	} {
		if out, err = out.SetColumn(column+derived.suffix, derived.values); err != nil {
			return nil, err
		}
	}

	if failed > 0 {
		return out, fmt.Errorf("%w: %d value(s) in %q are not dates", ErrData, failed, column)
	}
	return out, nil
}
