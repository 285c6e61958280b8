package formula

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestEval(t *testing.T) {
	t.Parallel()

	bindings := map[string]decimal.Decimal{
		"salaire_base": d(800000),
		"LOGEMENT":     d(160000),
		"nb_enfants":   d(3),
	}

	cases := []struct {
		name    string
		formula string
		want    string
	}{
		{"literal", "42", "42"},
		{"decimal literal", "0.5", "0.5"},
		{"identifier", "salaire_base", "800000"},
		{"addition", "salaire_base + LOGEMENT", "960000"},
		{"percentage of base", "salaire_base * 5 / 100", "40000"},
		{"precedence", "2 + 3 * 4", "14"},
		{"parentheses", "(2 + 3) * 4", "20"},
		{"unary minus", "-LOGEMENT + 200000", "40000"},
		{"per child allowance", "nb_enfants * 15000", "45000"},
		{"nested parens", "((salaire_base + LOGEMENT) * 10) / 100", "96000"},
		{"whitespace tolerated", "  salaire_base\t* 5 / 100 ", "40000"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got, err := Eval(c.formula, bindings)
			require.NoError(t, err)
			assert.Equal(t, c.want, got.String())
		})
	}
}

func TestEval_RejectsAnythingButArithmetic(t *testing.T) {
	t.Parallel()

	bindings := map[string]decimal.Decimal{
		"salaire_base": d(800000),
	}

	cases := []struct {
		name    string
		formula string
	}{
		{"empty", ""},
		{"unknown identifier", "salaire_brut * 2"},
		{"function call", "max(salaire_base, 100)"},
		{"statement", "salaire_base; 1"},
		{"string literal", `"rm -rf" + 1`},
		{"attribute access", "employee.salary"},
		{"exponent operator", "2 ^ 10"},
		{"modulo operator", "10 % 3"},
		{"trailing operator", "salaire_base +"},
		{"unbalanced parens", "(salaire_base * 2"},
		{"double dot number", "1.2.3"},
		{"division by zero", "salaire_base / 0"},
		{"division by zero expression", "1 / (2 - 2)"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got, err := Eval(c.formula, bindings)
			assert.Error(t, err)
			assert.True(t, got.IsZero())
		})
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("accepts well-formed formulas over any identifier", func(t *testing.T) {
		t.Parallel()
		for _, src := range []string{
			"SB * 5 / 100",
			"(FUTURE_CODE + salaire_base) * -1",
			"nb_enfants * 7500 + est_marie * 10000",
			"salaire_base / ANY_DIVISOR", // operand values are unknown at check time
		} {
			assert.NoError(t, Check(src), src)
		}
	})

	t.Run("rejects malformed text", func(t *testing.T) {
		t.Parallel()
		for _, src := range []string{
			"",
			`exec("rm -rf /") ++ UNKNOWN_CODE`,
			"max(SB, 100)",
			"SB +",
			"(SB * 2",
			"SB; 1",
			"employee.salary",
		} {
			assert.Error(t, Check(src), src)
		}
	})
}

func TestReferences(t *testing.T) {
	t.Parallel()

	refs := References("(salaire_base + LOGEMENT) * taux / 100 + LOGEMENT")
	assert.Equal(t, []string{"salaire_base", "LOGEMENT", "taux"}, refs)

	assert.Empty(t, References("1 + 2 * 3"))
}
