package backup

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"emprest/internal/core"
	"emprest/internal/core/coretest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newCodec() *Codec {
	return NewCodec(coretest.NewClock(fixedNow), coretest.NewIDs("gen"))
}

func sampleLoans(t *testing.T) []core.Loan {
	t.Helper()
	ids := coretest.NewIDs("s")
	clock := coretest.NewClock(time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC))
	a, err := core.NewLoan(core.NewLoanInput{
		Name:                   "Car",
		PrincipalAmountCents:   800000,
		TotalToPayCents:        1000000,
		InterestRateMonthlyPct: 1.99,
		InstallmentsCount:      3,
		FirstDueDate:           "2024-02-05",
	}, ids, clock)
	require.NoError(t, err)
	a.Installments[0] = core.MarkPaid(a.Installments[0], "2024-02-04").Apply(a.Installments[0])

	b, err := core.NewLoan(core.NewLoanInput{
		Name:                 "Phone",
		PrincipalAmountCents: 1000,
		TotalToPayCents:      1000,
		InstallmentsCount:    1,
		FirstDueDate:         "2024-03-01",
	}, ids, clock)
	require.NoError(t, err)
	return []core.Loan{a, b}
}

func TestSerialize(t *testing.T) {
	c := newCodec()
	out, err := c.Serialize(sampleLoans(t))
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(out, &env))
	assert.Equal(t, AppTag, env.App)
	assert.Equal(t, 1, env.BackupVersion)
	assert.Equal(t, fixedNow, env.ExportedAt)
	assert.Equal(t, 1, env.Storage.Version)
	assert.Len(t, env.Storage.Loans, 2)
	assert.Contains(t, string(out), "\n  \"app\": \"emprest-simples\"")
}

func TestSerialize_Empty(t *testing.T) {
	out, err := newCodec().Serialize(nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"loans": []`)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "emprest-simples-backup-2024-05-10.json", Filename(fixedNow))
}

func TestRoundTrip(t *testing.T) {
	c := newCodec()
	want := sampleLoans(t)
	out, err := c.Serialize(want)
	require.NoError(t, err)

	got, err := c.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParse_Shapes(t *testing.T) {
	cases := map[string]string{
		"envelope":      `{"app":"x","storage":{"version":1,"loans":[{"id":"a"}]}}`,
		"storage shape": `{"version":1,"loans":[{"id":"a"}]}`,
		"bare array":    `[{"id":"a"}]`,
		"storage wins":  `{"storage":{"loans":[{"id":"a"}]},"loans":[{"id":"b"}]}`,
		"falls through": `{"storage":{"loans":"nope"},"loans":[{"id":"a"}]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := newCodec().Parse([]byte(in))
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "a", got[0].ID)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"not json", "not json", ErrMalformedInput},
		{"truncated object", "{not json", ErrMalformedInput},
		{"empty text", "", ErrMalformedInput},
		{"object without loans", `{"foo":1}`, ErrUnrecognizedFormat},
		{"number", `42`, ErrUnrecognizedFormat},
		{"loans not array", `{"loans":{"a":1}}`, ErrUnrecognizedFormat},
		{"empty array", `[]`, ErrEmptyBackup},
		{"only non-objects", `[1,"x",null,true]`, ErrEmptyBackup},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newCodec().Parse([]byte(tc.in))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParse_RepairsMinimalLoan(t *testing.T) {
	got, err := newCodec().Parse([]byte(`[{"id":"x","principalAmountCents":"1000"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)

	l := got[0]
	assert.Equal(t, "x", l.ID)
	assert.Equal(t, ImportedLoanName, l.Name)
	assert.Equal(t, int64(1000), l.PrincipalAmountCents)
	assert.Equal(t, int64(1000), l.TotalToPayCents)
	assert.Equal(t, 1, l.InstallmentsCount)
	assert.Equal(t, core.Date("2024-05-10"), l.FirstDueDate)
	assert.Equal(t, fixedNow, l.CreatedAt)
	assert.Equal(t, fixedNow, l.UpdatedAt)
	require.Len(t, l.Installments, 1)
	assert.Equal(t, core.Installment{
		ID:                  "gen-1",
		Number:              1,
		DueDate:             "2024-05-10",
		ExpectedAmountCents: 1000,
	}, l.Installments[0])
}

func TestParse_InstallmentDefaults(t *testing.T) {
	in := `[{
		"id": "L",
		"name": "Fridge",
		"totalToPayCents": 0,
		"firstDueDate": "2024-01-15",
		"installmentsCount": 9,
		"installments": [
			{"expectedAmountCents": 250.5, "paid": true},
			"junk",
			{"id": "i2", "number": "7", "dueDate": "2024-02-15", "expectedAmountCents": 300, "paid": true, "paidAmountCents": 280, "paidDate": "2024-02-10"},
			{"id": "i3", "expectedAmountCents": 300, "paid": "yes", "paidAmountCents": 300, "paidDate": "2024-03-01"}
		]
	}]`
	got, err := newCodec().Parse([]byte(in))
	require.NoError(t, err)
	l := got[0]

	require.Len(t, l.Installments, 3)
	assert.Equal(t, 3, l.InstallmentsCount, "count follows the array")
	assert.Equal(t, int64(251+300+300), l.TotalToPayCents, "total derived from expected amounts")

	first := l.Installments[0]
	assert.Equal(t, "gen-1", first.ID)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, core.Date("2024-01-15"), first.DueDate)
	assert.Equal(t, int64(251), first.ExpectedAmountCents)
	require.NotNil(t, first.PaidAmountCents)
	assert.Equal(t, int64(251), *first.PaidAmountCents)
	require.NotNil(t, first.PaidDate)
	assert.Equal(t, core.Date("2024-05-10"), *first.PaidDate)

	second := l.Installments[1]
	assert.Equal(t, 7, second.Number, "position of the original element is kept")
	assert.Equal(t, int64(280), *second.PaidAmountCents)
	assert.Equal(t, core.Date("2024-02-10"), *second.PaidDate)

	third := l.Installments[2]
	assert.False(t, third.Paid, "non-boolean paid is false")
	assert.Nil(t, third.PaidAmountCents)
	assert.Nil(t, third.PaidDate)
}

func TestParse_Coercion(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int64
	}{
		{"number", `1234`, 1234},
		{"half rounds up", `2.5`, 3},
		{"negative half rounds toward +inf", `-2.5`, -2},
		{"numeric string", `" 42.4 "`, 42},
		{"blank string", `"  "`, 0},
		{"null", `null`, 0},
		{"true", `true`, 1},
		{"garbage string", `"abc"`, 77},
		{"object", `{}`, 77},
		{"array", `[5]`, 77},
		{"infinity string", `"Infinity"`, 77},
		{"max int64 rounds to 2^63", `9223372036854775807`, 77},
		{"above int64", `1e19`, 77},
		{"min int64", `-9223372036854775808`, math.MinInt64},
		{"below int64", `-1e19`, 77},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(`{"v":`+tc.raw+`}`), &m))
			assert.Equal(t, tc.want, intOr(m, "v", 77))
		})
	}

	t.Run("missing key", func(t *testing.T) {
		assert.Equal(t, int64(77), intOr(map[string]any{}, "v", 77))
	})
}

func TestParse_OptionalRatesAndTimes(t *testing.T) {
	in := `[{"id":"a","interestRateMonthlyPct":"2","cetAnnualPct":30.5,"createdAt":"2023-12-01T10:00:00-03:00","updatedAt":"yesterday"}]`
	got, err := newCodec().Parse([]byte(in))
	require.NoError(t, err)
	l := got[0]

	assert.Nil(t, l.InterestRateMonthlyPct, "strings are not rates")
	require.NotNil(t, l.CETAnnualPct)
	assert.Equal(t, 30.5, *l.CETAnnualPct)
	assert.Equal(t, time.Date(2023, 12, 1, 13, 0, 0, 0, time.UTC), l.CreatedAt)
	assert.Equal(t, fixedNow, l.UpdatedAt)
}

func TestParse_DateOnlyTimes(t *testing.T) {
	got, err := newCodec().Parse([]byte(`[{"id":"a","createdAt":" 2024-01-01 ","updatedAt":"2024-02-30"}]`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[0].CreatedAt)
	assert.Equal(t, fixedNow, got[0].UpdatedAt, "impossible dates fall back to now")
}

func TestParse_HugeAmountFallsBack(t *testing.T) {
	in := `[{"name":"X","principalAmountCents":9223372036854775807,"installments":[{"expectedAmountCents":100}]}]`
	got, err := newCodec().Parse([]byte(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(0), got[0].PrincipalAmountCents, "out of range amounts fall back")
	assert.Equal(t, int64(100), got[0].TotalToPayCents)
}

func TestParse_GeneratesScheduleFromCount(t *testing.T) {
	in := `[{"name":"X","totalToPayCents":900,"installmentsCount":3,"firstDueDate":"2024-01-01"}]`
	got, err := newCodec().Parse([]byte(in))
	require.NoError(t, err)
	require.Len(t, got, 1)

	l := got[0]
	assert.Equal(t, "X", l.Name)
	assert.Equal(t, 3, l.InstallmentsCount)
	require.Len(t, l.Installments, 3)
	var sum int64
	for i, it := range l.Installments {
		assert.Equal(t, i+1, it.Number)
		assert.Equal(t, int64(300), it.ExpectedAmountCents)
		assert.False(t, it.Paid)
		sum += it.ExpectedAmountCents
	}
	assert.Equal(t, int64(900), sum)
	assert.Equal(t, core.Date("2024-01-01"), l.Installments[0].DueDate)
	assert.Equal(t, core.Date("2024-03-01"), l.Installments[2].DueDate)
}

func TestParse_MistypedIdentity(t *testing.T) {
	got, err := newCodec().Parse([]byte(`[{"id":5,"name":false}]`))
	require.NoError(t, err)
	assert.Equal(t, "gen-1", got[0].ID)
	assert.Equal(t, ImportedLoanName, got[0].Name)
}

func TestParse_CapsGeneratedSchedule(t *testing.T) {
	got, err := newCodec().Parse([]byte(`[{"id":"a","totalToPayCents":100,"installmentsCount":1e12}]`))
	require.NoError(t, err)
	assert.Len(t, got[0].Installments, maxGeneratedInstallments)
	assert.Equal(t, maxGeneratedInstallments, got[0].InstallmentsCount)
}

func TestParse_Idempotent(t *testing.T) {
	inputs := []string{
		`[{"principalAmountCents":"1000","installmentsCount":4}]`,
		`[{"id":"a","totalToPayCents":-5,"installments":[{"expectedAmountCents":10,"paid":true},{"expectedAmountCents":"x"}]}]`,
		`{"loans":[{"id":"b","name":"n","installmentsCount":0,"installments":[]}]}`,
	}
	for _, in := range inputs {
		c := newCodec()
		once, err := c.Parse([]byte(in))
		require.NoError(t, err)

		out, err := c.Serialize(once)
		require.NoError(t, err)
		twice, err := c.Parse(out)
		require.NoError(t, err)
		assert.Equal(t, once, twice, in)
	}
}

func TestParse_Consistency(t *testing.T) {
	in := `[
		{"installmentsCount": -3},
		{"installmentsCount": 2, "installments": [{"expectedAmountCents": 1}]},
		{"totalToPayCents": 0, "principalAmountCents": -10, "installmentsCount": 2}
	]`
	got, err := newCodec().Parse([]byte(in))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, l := range got {
		assert.Equal(t, len(l.Installments), l.InstallmentsCount)
		assert.GreaterOrEqual(t, l.InstallmentsCount, 1)
	}
	assert.Equal(t, int64(0), got[2].TotalToPayCents)
}

func TestMerge(t *testing.T) {
	loan := func(id, name string) core.Loan { return core.Loan{ID: id, Name: name} }

	t.Run("imported first then remaining existing", func(t *testing.T) {
		existing := []core.Loan{loan("A", "old a"), loan("B", "old b")}
		imported := []core.Loan{loan("B", "new b"), loan("C", "c")}
		got := Merge(existing, imported)
		assert.Equal(t, []core.Loan{loan("B", "new b"), loan("C", "c"), loan("A", "old a")}, got)
	})

	t.Run("duplicates carry last value", func(t *testing.T) {
		imported := []core.Loan{loan("X", "1"), loan("Y", "y"), loan("X", "2")}
		got := Merge(nil, imported)
		assert.Equal(t, []core.Loan{loan("X", "2"), loan("Y", "y"), loan("X", "2")}, got)
	})

	t.Run("empty existing", func(t *testing.T) {
		imported := []core.Loan{loan("A", "a")}
		assert.Equal(t, imported, Merge(nil, imported))
	})

	t.Run("idempotent", func(t *testing.T) {
		existing := []core.Loan{loan("A", "a"), loan("B", "b")}
		imported := []core.Loan{loan("B", "b2")}
		once := Merge(existing, imported)
		assert.Equal(t, once, Merge(once, imported))
	})
}
