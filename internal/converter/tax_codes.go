package converter

import (
	"github.com/nfg/account-nl/internal/chart"
)

// buildTaxCodes converts account.tax.code.template records into a tree
// rooted at the synthetic "tax_code_nl".
//
// PASS 1: find the original root, the record whose parent_id is a false
// literal. At most one is allowed.
//
// PASS 2: emit in document order.
//   - no parent_id: unreachable, skipped
//   - the original root: emitted as "tax_code_nl" (name, account)
//   - anything else: name, account, parent (re-homed to "tax_code_nl" when it
//     pointed at the original root), code when present
//
// Resolving the root first means children may appear before their root in
// the source document.
func (c *Converter) buildTaxCodes(src []chart.Record) ([]chart.Record, int, error) {
	origRoot, err := findTaxCodeRoot(src)
	if err != nil {
		return nil, 0, err
	}
	if origRoot == "" && len(src) > 0 {
		c.log.Warn().Msg("no tax code root found (parent_id eval=False); no tax_code_nl emitted")
	}

	out := make([]chart.Record, 0, len(src))
	skipped := 0

	for _, rec := range src {
		name, err := rec.Require("name")
		if err != nil {
			return nil, 0, err
		}

		parent, ok := rec.Field("parent_id")
		if !ok {
			skipped++
			c.log.Warn().Str("id", rec.ID).Msg("tax code has no parent_id, skipping as unreachable")
			continue
		}

		if rec.ID == origRoot {
			out = append(out, chart.NewRecord(chart.TargetTaxCode, chart.TaxCodeRootID,
				chart.TextField("name", name.Value),
				chart.RefField("account", chart.AccountRootID),
			))
			continue
		}

		if parent.Kind != chart.Ref {
			// Only the root may carry a literal parent; findTaxCodeRoot has
			// already rejected every other literal.
			return nil, 0, fieldKindError(rec, parent, chart.Ref)
		}

		parentID := parent.Value
		if origRoot != "" && parentID == origRoot {
			parentID = chart.TaxCodeRootID
		}

		fields := []chart.Field{
			chart.TextField("name", name.Value),
			chart.RefField("account", chart.AccountRootID),
			chart.RefField("parent", parentID),
		}
		if code, ok := rec.Field("code"); ok {
			fields = append(fields, chart.TextField("code", code.Value))
		}

		out = append(out, chart.NewRecord(chart.TargetTaxCode, rec.ID, fields...))
	}

	return out, skipped, nil
}

// findTaxCodeRoot returns the id of the record whose parent_id is a false
// literal, or "" when there is none. A second root, or a parent literal
// that is true, is a schema violation.
func findTaxCodeRoot(src []chart.Record) (string, error) {
	root := ""
	for _, rec := range src {
		parent, ok := rec.Field("parent_id")
		if !ok || parent.Kind == chart.Ref {
			continue
		}

		v, err := parseLiteral(rec, parent)
		if err != nil {
			return "", err
		}
		if v.Truthy() {
			return "", fieldKindError(rec, parent, chart.Ref)
		}
		if root != "" {
			return "", &chart.SchemaError{
				Model:  rec.Model,
				ID:     rec.ID,
				Field:  parent.Name,
				Reason: "second tax code root; " + root + " is already the root",
			}
		}
		root = rec.ID
	}
	return root, nil
}
