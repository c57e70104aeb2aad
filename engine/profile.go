package engine

import (
	"github.com/vegasq/tabq/table"
)

// MaxProfileSamples is the number of distinct sample values kept per column.
const MaxProfileSamples = 5

// NumericStats summarizes a numeric column. Std is nil for fewer than two
// values.
type NumericStats struct {
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	Std    *float64 `json:"std"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Q25    float64  `json:"q25"`
	Q75    float64  `json:"q75"`
}

// ColumnProfile describes one column of a table.
type ColumnProfile struct {
	Name           string        `json:"name"`
	Type           table.Kind    `json:"type"`
	Missing        int           `json:"missing"`
	MissingPercent float64       `json:"missing_percent"`
	Unique         int           `json:"unique"`
	Samples        []interface{} `json:"samples"`
	Stats          *NumericStats `json:"stats,omitempty"`
}

// Profile returns a profile per column, in column order.
func Profile(tbl *table.Table) []ColumnProfile {
	profiles := make([]ColumnProfile, 0, len(tbl.Columns()))
	for _, name := range tbl.Columns() {
		values, _ := tbl.Column(name)
		profiles = append(profiles, profileColumn(name, values))
	}
	return profiles
}

func profileColumn(name string, values []interface{}) ColumnProfile {
	p := ColumnProfile{
		Name:    name,
		Type:    table.ColumnKind(values),
		Samples: []interface{}{},
	}

	seen := make(map[string]bool)
	var nums []float64
	for _, v := range values {
		if v == nil {
			p.Missing++
			continue
		}
		key := uniqueKey(v)
		if !seen[key] {
			seen[key] = true
			if len(p.Samples) < MaxProfileSamples {
				p.Samples = append(p.Samples, v)
			}
		}
		if f, ok := table.ToFloat(v); ok {
			nums = append(nums, f)
		}
	}
	p.Unique = len(seen)
	if len(values) > 0 {
		p.MissingPercent = float64(p.Missing) * 100 / float64(len(values))
	}

	if (p.Type == table.KindInteger || p.Type == table.KindFloat) && len(nums) > 0 {
		p.Stats = numericStats(nums)
	}
	return p
}

// uniqueKey keys a value by its display form and kind.
func uniqueKey(v interface{}) string {
	return table.FormatValue(v) + "\x00" + string(table.KindOf(v))
}

func numericStats(nums []float64) *NumericStats {
	stats := &NumericStats{
		Median: table.Quantile(nums, 0.5),
		Q25:    table.Quantile(nums, 0.25),
		Q75:    table.Quantile(nums, 0.75),
		Min:    nums[0],
		Max:    nums[0],
	}
	var sum float64
	for _, n := range nums {
		sum += n
		if n < stats.Min {
			stats.Min = n
		}
		if n > stats.Max {
			stats.Max = n
		}
	}
	stats.Mean = sum / float64(len(nums))
	if std, ok := table.SampleStd(nums).(float64); ok {
		stats.Std = &std
	}
	return stats
}
