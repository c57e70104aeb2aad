package engine

import (
	"strings"

	"github.com/vegasq/tabq/table"
)

// ApplyMeasures evaluates measures in order, each able to read the columns
// added by earlier ones. A failing measure is skipped with a diagnostic.
func ApplyMeasures(tbl *table.Table, measures []MeasureDefinition) (*table.Table, []Diagnostic) {
	diags := &diagnostics{stage: StageMeasure}

	for i, m := range measures {
		if strings.TrimSpace(m.Name) == "" {
			diags.add(i, configError("measure has no name"))
			continue
		}
		if strings.TrimSpace(m.Formula) == "" {
			diags.add(i, configError("measure %q has no formula", m.Name))
			continue
		}

		out, err := addFormulaColumn(tbl, m.Name, m.Formula)
		if err != nil {
			diags.add(i, err)
			continue
		}
		tbl = out
	}

	return tbl, diags.list
}
