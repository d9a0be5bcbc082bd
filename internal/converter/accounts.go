package converter

import (
	"fmt"

	"github.com/nfg/account-nl/internal/chart"
	"github.com/nfg/account-nl/internal/literal"
)

// buildAccounts converts account.account.template records.
//
// The source's own root (id "a_root") is dropped and replaced by a
// synthetic root of kind "view" typed by the account-type root. For the
// remaining accounts:
//
//   source field   target field   how
//   name           name           copied (required)
//   code           code           copied (required)
//   type           kind           copied (required)
//   user_type      type           reference copied when present
//   reconcile      deferral       literal negated when present
//   parent_id      parent         reference copied when present
//
// Absent optional fields are omitted, never defaulted.
func (c *Converter) buildAccounts(src []chart.Record) ([]chart.Record, error) {
	out := make([]chart.Record, 0, len(src)+1)

	out = append(out, chart.NewRecord(chart.TargetAccount, chart.AccountRootID,
		chart.TextField("name", c.opts.AccountRootName),
		chart.TextField("kind", "view"),
		chart.RefField("type", chart.AccountTypeRootID),
	))

	for _, rec := range src {
		if rec.ID == chart.AccountRootID {
			c.log.Debug().Str("id", rec.ID).Msg("replacing source account root with synthetic root")
			continue
		}

		fields := make([]chart.Field, 0, 6)
		for _, m := range []struct{ from, to string }{
			{"name", "name"},
			{"code", "code"},
			{"type", "kind"},
		} {
			f, err := rec.Require(m.from)
			if err != nil {
				return nil, err
			}
			fields = append(fields, chart.TextField(m.to, f.Value))
		}

		if f, ok := rec.Field("user_type"); ok {
			if f.Kind != chart.Ref {
				return nil, fieldKindError(rec, f, chart.Ref)
			}
			fields = append(fields, chart.RefField("type", f.Value))
		}

		if f, ok := rec.Field("reconcile"); ok {
			v, err := parseLiteral(rec, f)
			if err != nil {
				return nil, err
			}
			// reconcile in the source is "defer reconciliation" inverted.
			fields = append(fields, chart.EvalField("deferral", literal.FormatBool(!v.Truthy())))
		}

		if f, ok := rec.Field("parent_id"); ok {
			switch {
			case f.Kind == chart.Ref:
				fields = append(fields, chart.RefField("parent", f.Value))
			case f.Kind == chart.Eval:
				// parent_id eval="False" marks a top-level account; no parent.
				v, err := parseLiteral(rec, f)
				if err != nil {
					return nil, err
				}
				if v.Truthy() {
					return nil, fieldKindError(rec, f, chart.Ref)
				}
			default:
				return nil, fieldKindError(rec, f, chart.Ref)
			}
		}

		out = append(out, chart.NewRecord(chart.TargetAccount, rec.ID, fields...))
	}

	return out, nil
}

// parseLiteral reads a field as a boolean or integer literal. Inline text is
// accepted as well as an eval attribute.
func parseLiteral(rec chart.Record, f chart.Field) (literal.Value, error) {
	if f.Kind == chart.Ref {
		return literal.Value{}, fieldKindError(rec, f, chart.Eval)
	}
	v, err := literal.Parse(f.Value)
	if err != nil {
		return literal.Value{}, &chart.SchemaError{
			Model:  rec.Model,
			ID:     rec.ID,
			Field:  f.Name,
			Reason: err.Error(),
		}
	}
	return v, nil
}

func fieldKindError(rec chart.Record, f chart.Field, want chart.FieldKind) error {
	return &chart.SchemaError{
		Model:  rec.Model,
		ID:     rec.ID,
		Field:  f.Name,
		Reason: fmt.Sprintf("expected a %s value, got %s", want, f.Kind),
	}
}
