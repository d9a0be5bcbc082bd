package converter

import (
	"github.com/nfg/account-nl/internal/chart"
	"github.com/nfg/account-nl/internal/literal"
)

// sequenceStep is the gap between consecutive account-type sequences.
const sequenceStep = 10

// buildAccountTypes converts account.account.type records.
//
// OUTPUT:
//   - the synthetic root "nl" with sequence 10
//   - one record per source type, in document order, with sequences 20, 30,
//     ..., always parented to "nl"
//   - balance_sheet = True only when close_method is "balance"
//
// Nested source type hierarchies are flattened: every type hangs off the root.
func (c *Converter) buildAccountTypes(src []chart.Record) ([]chart.Record, error) {
	out := make([]chart.Record, 0, len(src)+1)

	seq := sequenceStep
	out = append(out, chart.NewRecord(chart.TargetAccountType, chart.AccountTypeRootID,
		chart.TextField("name", c.opts.TypeRootName),
		chart.EvalField("sequence", literal.FormatInt(seq)),
	))

	for _, rec := range src {
		seq += sequenceStep

		name, err := rec.Require("name")
		if err != nil {
			return nil, err
		}
		closeMethod, err := rec.Require("close_method")
		if err != nil {
			return nil, err
		}

		fields := []chart.Field{
			chart.TextField("name", name.Value),
			chart.EvalField("sequence", literal.FormatInt(seq)),
			chart.RefField("parent", chart.AccountTypeRootID),
		}
		if closeMethod.Value == "balance" {
			fields = append(fields, chart.EvalField("balance_sheet", literal.FormatBool(true)))
		}

		out = append(out, chart.NewRecord(chart.TargetAccountType, rec.ID, fields...))
	}

	return out, nil
}
