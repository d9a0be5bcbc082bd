package converter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfg/account-nl/internal/chart"
	"github.com/nfg/account-nl/internal/config"
	"github.com/nfg/account-nl/internal/logger"
	"github.com/nfg/account-nl/internal/source"
	"github.com/nfg/account-nl/internal/validation"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestConverter(t *testing.T, mutate ...func(*config.Config)) *Converter {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	return New(cfg, logger.Nop())
}

func lenient(cfg *config.Config) { cfg.StrictReferences = false }

func parse(t *testing.T, records string) *source.Document {
	t.Helper()
	doc, err := source.ParseString("<openerp><data>"+records+"</data></openerp>", source.Options{})
	require.NoError(t, err)
	return doc
}

func find(t *testing.T, records []chart.Record, id string) chart.Record {
	t.Helper()
	for _, r := range records {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("record %q not found", id)
	return chart.Record{}
}

func countID(records []chart.Record, id string) int {
	n := 0
	for _, r := range records {
		if r.ID == id {
			n++
		}
	}
	return n
}

func fieldValue(t *testing.T, r chart.Record, name string) chart.Field {
	t.Helper()
	f, ok := r.Field(name)
	require.True(t, ok, "record %s has no field %s", r.ID, name)
	return f
}

const scenario = `
<record model="account.account.type" id="A1">
  <field name="name">Assets</field>
  <field name="close_method">balance</field>
</record>
<record model="account.account.template" id="a_root">
  <field name="name">Source root</field>
  <field name="code">0</field>
  <field name="type">view</field>
  <field name="parent_id" eval="False"/>
</record>
<record model="account.account.template" id="A101">
  <field name="name">Cash</field>
  <field name="code">1010</field>
  <field name="type">view</field>
</record>`

// =============================================================================
// END TO END
// =============================================================================

func TestConvertScenario(t *testing.T) {
	c := newTestConverter(t)
	res, err := c.Convert(parse(t, scenario))
	require.NoError(t, err)

	require.Len(t, res.AccountTypes, 2)
	nl := res.AccountTypes[0]
	assert.Equal(t, chart.AccountTypeRootID, nl.ID)
	assert.Equal(t, "10", fieldValue(t, nl, "sequence").Value)
	assert.Equal(t, config.DefaultTypeRootName, fieldValue(t, nl, "name").Value)

	a1 := res.AccountTypes[1]
	assert.Equal(t, "A1", a1.ID)
	assert.Equal(t, "20", fieldValue(t, a1, "sequence").Value)
	assert.Equal(t, chart.EvalField("balance_sheet", "True"), fieldValue(t, a1, "balance_sheet"))
	assert.Equal(t, chart.RefField("parent", "nl"), fieldValue(t, a1, "parent"))

	require.Len(t, res.Accounts, 2)
	root := res.Accounts[0]
	assert.Equal(t, chart.AccountRootID, root.ID)
	assert.Equal(t, []chart.Field{
		chart.TextField("name", config.DefaultAccountRootName),
		chart.TextField("kind", "view"),
		chart.RefField("type", "nl"),
	}, root.Fields)

	cash := res.Accounts[1]
	assert.Equal(t, "A101", cash.ID)
	assert.Equal(t, []chart.Field{
		chart.TextField("name", "Cash"),
		chart.TextField("code", "1010"),
		chart.TextField("kind", "view"),
	}, cash.Fields)
	_, hasParent := cash.Field("parent")
	assert.False(t, hasParent)

	assert.Empty(t, res.TaxCodes)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 3, res.Stats.SourceRecords)
	assert.Equal(t, 4, res.Stats.OutputRecords)
}

func TestRenderScenario(t *testing.T) {
	c := newTestConverter(t, func(cfg *config.Config) { cfg.XML.Declaration = false })
	res, err := c.Convert(parse(t, scenario))
	require.NoError(t, err)

	out, err := c.Render(res)
	require.NoError(t, err)

	want := `<tryton>
  <data>
    <record model="account.account.type.template" id="nl">
      <field name="name">Dutch Account Type Chart</field>
      <field name="sequence" eval="10"/>
    </record>
    <record model="account.account.type.template" id="A1">
      <field name="name">Assets</field>
      <field name="sequence" eval="20"/>
      <field name="parent" ref="nl"/>
      <field name="balance_sheet" eval="True"/>
    </record>
    <record model="account.account.template" id="a_root">
      <field name="name">NEDERLANDS STANDAARD GROOTBOEKSCHEMA</field>
      <field name="kind">view</field>
      <field name="type" ref="nl"/>
    </record>
    <record model="account.account.template" id="A101">
      <field name="name">Cash</field>
      <field name="code">1010</field>
      <field name="kind">view</field>
    </record>
  </data>
</tryton>
`
	assert.Equal(t, want, string(out))
}

func TestRenderDeterministic(t *testing.T) {
	c := newTestConverter(t)

	render := func() []byte {
		res, err := c.Convert(parse(t, scenario+taxTree))
		require.NoError(t, err)
		out, err := c.Render(res)
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, render(), render())
}

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

func TestAccountTypeSequencesAndBalanceSheet(t *testing.T) {
	c := newTestConverter(t)
	res, err := c.Convert(parse(t, `
<record model="account.account.type" id="t_asset">
  <field name="name">Asset</field><field name="close_method">balance</field>
</record>
<record model="account.account.type" id="t_income">
  <field name="name">Income</field><field name="close_method">none</field>
</record>
<record model="account.account.type" id="t_recv">
  <field name="name">Receivable</field><field name="close_method">unreconciled</field>
</record>
<record model="account.account.type" id="t_liab">
  <field name="name">Liability</field><field name="close_method">balance</field>
</record>`))
	require.NoError(t, err)

	require.Len(t, res.AccountTypes, 5)
	for i, r := range res.AccountTypes {
		assert.Equal(t, chart.EvalField("sequence", []string{"10", "20", "30", "40", "50"}[i]),
			fieldValue(t, r, "sequence"), r.ID)
	}

	withBalance := map[string]bool{}
	for _, r := range res.AccountTypes {
		if _, ok := r.Field("balance_sheet"); ok {
			withBalance[r.ID] = true
		}
	}
	assert.Equal(t, map[string]bool{"t_asset": true, "t_liab": true}, withBalance)
}

func TestAccountTypeRequiresCloseMethod(t *testing.T) {
	c := newTestConverter(t)
	_, err := c.Convert(parse(t, `
<record model="account.account.type" id="t1"><field name="name">Only a name</field></record>`))

	var se *chart.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "t1", se.ID)
	assert.Equal(t, "close_method", se.Field)
	assert.Contains(t, err.Error(), "failed to convert account types")
}

func TestAccountTypeRootNameFromConfig(t *testing.T) {
	c := newTestConverter(t, func(cfg *config.Config) { cfg.Chart.TypeRootName = "Types" })
	res, err := c.Convert(parse(t, ""))
	require.NoError(t, err)

	require.Len(t, res.AccountTypes, 1)
	assert.Equal(t, "Types", fieldValue(t, res.AccountTypes[0], "name").Value)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountTypes = `
<record model="account.account.type" id="t_cash">
  <field name="name">Cash</field><field name="close_method">balance</field>
</record>`

func TestAccountsSingleRoot(t *testing.T) {
	for name, records := range map[string]string{
		"with source root":    scenario,
		"without source root": accountTypes,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := newTestConverter(t).Convert(parse(t, records))
			require.NoError(t, err)
			assert.Equal(t, 1, countID(res.Accounts, chart.AccountRootID))
			assert.Equal(t, chart.AccountRootID, res.Accounts[0].ID)
		})
	}
}

func TestAccountsFieldMapping(t *testing.T) {
	res, err := newTestConverter(t).Convert(parse(t, accountTypes+`
<record model="account.account.template" id="acc_10">
  <field name="name">Liquide middelen</field>
  <field name="code">10</field>
  <field name="type">view</field>
  <field name="user_type" ref="t_cash"/>
  <field name="parent_id" ref="a_root"/>
</record>
<record model="account.account.template" id="acc_1000">
  <field name="name">Kas</field>
  <field name="code">1000</field>
  <field name="type">other</field>
  <field name="user_type" ref="t_cash"/>
  <field name="reconcile" eval="True"/>
  <field name="parent_id" ref="acc_10"/>
</record>`))
	require.NoError(t, err)

	assert.Equal(t, []chart.Field{
		chart.TextField("name", "Kas"),
		chart.TextField("code", "1000"),
		chart.TextField("kind", "other"),
		chart.RefField("type", "t_cash"),
		chart.EvalField("deferral", "False"),
		chart.RefField("parent", "acc_10"),
	}, find(t, res.Accounts, "acc_1000").Fields)

	assert.Equal(t, chart.RefField("parent", "a_root"), fieldValue(t, find(t, res.Accounts, "acc_10"), "parent"))
}

func TestAccountsDeferralNegation(t *testing.T) {
	cases := map[string]string{
		"True":  "False",
		"False": "True",
		"true":  "False",
		"0":     "True",
		"1":     "False",
	}
	for reconcile, deferral := range cases {
		t.Run(reconcile, func(t *testing.T) {
			res, err := newTestConverter(t).Convert(parse(t, `
<record model="account.account.template" id="acc">
  <field name="name">X</field><field name="code">1</field><field name="type">other</field>
  <field name="reconcile" eval="`+reconcile+`"/>
</record>`))
			require.NoError(t, err)
			assert.Equal(t, chart.EvalField("deferral", deferral), fieldValue(t, find(t, res.Accounts, "acc"), "deferral"))
		})
	}
}

func TestAccountsRejectExpressions(t *testing.T) {
	_, err := newTestConverter(t).Convert(parse(t, `
<record model="account.account.template" id="acc">
  <field name="name">X</field><field name="code">1</field><field name="type">other</field>
  <field name="reconcile" eval="__import__('os').system('true')"/>
</record>`))

	var se *chart.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "reconcile", se.Field)
}

func TestAccountsRequiredFields(t *testing.T) {
	for _, missing := range []string{"name", "code", "type"} {
		t.Run(missing, func(t *testing.T) {
			fields := map[string]string{"name": "X", "code": "1", "type": "other"}
			delete(fields, missing)

			var b strings.Builder
			b.WriteString(`<record model="account.account.template" id="acc">`)
			for _, k := range []string{"name", "code", "type"} {
				if v, ok := fields[k]; ok {
					b.WriteString(`<field name="` + k + `">` + v + `</field>`)
				}
			}
			b.WriteString(`</record>`)

			_, err := newTestConverter(t).Convert(parse(t, b.String()))
			var se *chart.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, missing, se.Field)
		})
	}
}

func TestAccountsParentLiteral(t *testing.T) {
	base := `<record model="account.account.template" id="acc">
  <field name="name">X</field><field name="code">1</field><field name="type">other</field>`

	res, err := newTestConverter(t).Convert(parse(t, base+`<field name="parent_id" eval="False"/></record>`))
	require.NoError(t, err)
	_, ok := find(t, res.Accounts, "acc").Field("parent")
	assert.False(t, ok)

	_, err = newTestConverter(t).Convert(parse(t, base+`<field name="parent_id" eval="True"/></record>`))
	var se *chart.SchemaError
	assert.ErrorAs(t, err, &se)

	_, err = newTestConverter(t).Convert(parse(t, base+`<field name="parent_id">acc_10</field></record>`))
	assert.ErrorAs(t, err, &se)
}

// =============================================================================
// TAX CODES
// =============================================================================

// taxTree lists a child before its root, plus a grandchild and an orphan.
const taxTree = `
<record model="account.tax.code.template" id="tc_btw_1a">
  <field name="name">Leveringen/diensten belast met hoog tarief</field>
  <field name="code">1a</field>
  <field name="parent_id" ref="tc_btw"/>
</record>
<record model="account.tax.code.template" id="tc_btw">
  <field name="name">Aangifte omzetbelasting</field>
  <field name="parent_id" eval="False"/>
</record>
<record model="account.tax.code.template" id="tc_btw_1a_omzet">
  <field name="name">Omzet</field>
  <field name="parent_id" ref="tc_btw_1a"/>
</record>
<record model="account.tax.code.template" id="tc_orphan">
  <field name="name">Unreachable</field>
</record>`

func TestTaxCodesRehome(t *testing.T) {
	res, err := newTestConverter(t).Convert(parse(t, taxTree))
	require.NoError(t, err)

	require.Len(t, res.TaxCodes, 3)
	assert.Equal(t, []string{"tc_btw_1a", chart.TaxCodeRootID, "tc_btw_1a_omzet"},
		[]string{res.TaxCodes[0].ID, res.TaxCodes[1].ID, res.TaxCodes[2].ID})
	assert.Equal(t, 1, countID(res.TaxCodes, chart.TaxCodeRootID))
	assert.Equal(t, 0, countID(res.TaxCodes, "tc_btw"))

	assert.Equal(t, []chart.Field{
		chart.TextField("name", "Leveringen/diensten belast met hoog tarief"),
		chart.RefField("account", chart.AccountRootID),
		chart.RefField("parent", chart.TaxCodeRootID),
		chart.TextField("code", "1a"),
	}, res.TaxCodes[0].Fields)

	assert.Equal(t, []chart.Field{
		chart.TextField("name", "Aangifte omzetbelasting"),
		chart.RefField("account", chart.AccountRootID),
	}, res.TaxCodes[1].Fields)

	assert.Equal(t, chart.RefField("parent", "tc_btw_1a"), fieldValue(t, res.TaxCodes[2], "parent"))

	assert.Equal(t, 1, res.Stats.SkippedTaxCodes)
}

func TestTaxCodesSecondRoot(t *testing.T) {
	_, err := newTestConverter(t).Convert(parse(t, `
<record model="account.tax.code.template" id="r1"><field name="name">R1</field><field name="parent_id" eval="False"/></record>
<record model="account.tax.code.template" id="r2"><field name="name">R2</field><field name="parent_id" eval="0"/></record>`))

	var se *chart.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "r2", se.ID)
	assert.Contains(t, err.Error(), "failed to convert tax codes")
}

func TestTaxCodesWithoutRoot(t *testing.T) {
	res, err := newTestConverter(t).Convert(parse(t, `
<record model="account.tax.code.template" id="c1"><field name="name">C1</field></record>`))
	require.NoError(t, err)

	assert.Empty(t, res.TaxCodes)
	assert.Equal(t, 1, res.Stats.SkippedTaxCodes)
}

// =============================================================================
// REFERENCE INTEGRITY
// =============================================================================

const danglingType = `
<record model="account.account.template" id="acc">
  <field name="name">X</field><field name="code">1</field><field name="type">other</field>
  <field name="user_type" ref="account.data_account_type_missing"/>
</record>`

func TestStrictReferencesFail(t *testing.T) {
	_, err := newTestConverter(t).Convert(parse(t, danglingType))

	var re *chart.ReferenceError
	require.ErrorAs(t, err, &re)
	require.Len(t, re.Problems, 1)
	assert.Contains(t, re.Problems[0], "account.data_account_type_missing")
}

func TestLenientReferencesWarn(t *testing.T) {
	res, err := newTestConverter(t, lenient).Convert(parse(t, danglingType))
	require.NoError(t, err)

	require.Len(t, res.Findings, 1)
	assert.Equal(t, "warning", res.Findings[0].Severity)
	assert.Equal(t, validation.RuleDanglingRef, res.Findings[0].Rule)
	assert.Equal(t, "type", res.Findings[0].Field)
}

// =============================================================================
// UNSUPPORTED MODELS
// =============================================================================

func TestUnsupportedModelsCounted(t *testing.T) {
	res, err := newTestConverter(t).Convert(parse(t, `
<record model="account.tax.template" id="btw_21"><field name="name">BTW 21%</field></record>
<record model="account.tax.template" id="btw_9"><field name="name">BTW 9%</field></record>
<record model="account.fiscal.position.template" id="fp_eu"><field name="name">EU</field></record>`))
	require.NoError(t, err)

	assert.Equal(t, []Omission{
		{SourceModel: chart.SourceTaxTemplate, TargetModel: chart.TargetTaxTemplate, Count: 2},
		{SourceModel: chart.SourceTaxRule, TargetModel: chart.TargetTaxRule, Count: 1},
		{SourceModel: chart.SourceTaxRuleLine, TargetModel: chart.TargetTaxRuleLine, Count: 0},
	}, res.Omitted)
	assert.Equal(t, 3, res.Stats.OmittedRecords)
	assert.Equal(t, "account.tax.template: unsupported model, intentionally omitted", res.Omitted[0].String())

	for _, r := range res.Records() {
		assert.NotEqual(t, chart.TargetTaxTemplate, r.Model)
		assert.NotEqual(t, chart.TargetTaxRule, r.Model)
	}
}

// =============================================================================
// FILES
// =============================================================================

func TestConvertFileWritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "account_chart_netherlands.xml")
	out := filepath.Join(dir, "account_nl.xml.new")
	require.NoError(t, os.WriteFile(in, []byte(`<?xml version="1.0" encoding="utf-8"?>
<openerp><data>`+scenario+taxTree+`</data></openerp>`), 0o644))

	c := newTestConverter(t)
	res, err := c.ConvertFile(in, out)
	require.NoError(t, err)
	assert.Equal(t, in, res.InputFile)
	assert.Equal(t, out, res.OutputFile)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(got), `<?xml version="1.0" encoding="UTF-8"?>`+"\n<tryton>"))
	assert.Contains(t, string(got), `<record model="account.tax.code.template" id="tax_code_nl">`)
	assert.True(t, strings.HasSuffix(string(got), "</tryton>\n"))
}

func TestConvertFileWritesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.xml")
	out := filepath.Join(dir, "out.xml")
	require.NoError(t, os.WriteFile(in, []byte("<openerp><data>"+danglingType+"</data></openerp>"), 0o644))

	_, err := newTestConverter(t).ConvertFile(in, out)
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRunUsesConfiguredPaths(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.xml")
	require.NoError(t, os.WriteFile(in, []byte("<openerp><data>"+scenario+"</data></openerp>"), 0o644))

	c := newTestConverter(t, func(cfg *config.Config) {
		cfg.Input = in
		cfg.Output = filepath.Join(dir, "out", "account_nl.xml.new")
	})
	res, err := c.Run()
	require.NoError(t, err)
	assert.FileExists(t, res.OutputFile)
}

func TestRunMissingInput(t *testing.T) {
	c := newTestConverter(t, func(cfg *config.Config) {
		cfg.Input = filepath.Join(t.TempDir(), "missing.xml")
	})
	_, err := c.Run()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
