package zreport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransaction(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		amount  string
		typ     EntryType
		account string
		project int
		vat     int
		signed  string
		netto   string
		legacy  bool
	}{
		{"legacy with vat", "K-3014-25", "100", Credit, "3014", 0, 25, "-100", "80", true},
		{"legacy 15 percent", "K-3020-15", "115", Credit, "3020", 0, 15, "-115", "100", true},
		{"legacy no vat marker", "D-1900-__", "50", Debit, "1900", 0, 0, "50", "50", true},
		{"legacy bare", "D-1909", "3", Debit, "1909", 0, 0, "3", "3", true},
		{"current full", "25-D-3000-40013", "200", Debit, "3000", 40013, 25, "200", "160", false},
		{"current no vat", "K-3000-40013", "10", Credit, "3000", 40013, 0, "-10", "10", false},
		{"current vat only", "15-K-3020", "23", Credit, "3020", 0, 15, "-23", "20", false},
		{"legacy wins on ambiguous suffix", "K-3014-15", "1", Credit, "3014", 0, 15, "-1", "0.87", true},
		{"current with project 25 style", "K-3014-40804", "1", Credit, "3014", 40804, 0, "-1", "1", false},
		{"decimal amount", "D-1900", "12.50", Debit, "1900", 0, 0, "12.5", "12.5", true},
		{"exponent amount", "D-1900", "1e3", Debit, "1900", 0, 0, "1000", "1000", true},
		{"comma amount is zero", "D-1900", "12,50", Debit, "1900", 0, 0, "0", "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := ParseTransaction(tt.code, "text", tt.amount)
			require.NoError(t, err)

			assert.Equal(t, tt.typ, tr.Type)
			assert.Equal(t, tt.account, tr.Account)
			assert.Equal(t, tt.project, tr.Project)
			assert.Equal(t, tt.vat, tr.VAT)
			assert.Equal(t, tt.signed, tr.Amount.String())
			assert.Equal(t, tt.netto, tr.NettoPositive.String())
			assert.Equal(t, tt.legacy, tr.IsLegacy())
			assert.Equal(t, "text", tr.Text)
		})
	}
}

func TestParseTransactionModifier(t *testing.T) {
	k, err := ParseTransaction("K-3000", "", "1")
	require.NoError(t, err)
	d, err := ParseTransaction("D-3000", "", "1")
	require.NoError(t, err)

	assert.Equal(t, -1, k.Modifier)
	assert.Equal(t, 1, d.Modifier)
	assert.Equal(t, "-1", k.Netto().String())
}

func TestParseTransactionInvalidCode(t *testing.T) {
	for _, code := range []string{"", "X-3000", "K-300", "K-30000", "25-K-30a0", "k-3000", "K-3000-"} {
		t.Run(code, func(t *testing.T) {
			_, err := ParseTransaction(code, "text", "1")

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "err = %v", err)
			assert.Equal(t, code, pe.Code)
		})
	}
}

// Non-numeric amounts silently become zero lines. Only the balance check on
// the report reveals them.
func TestParseTransactionGarbageAmountIsZero(t *testing.T) {
	for _, amount := range []string{"", "abc", "12,50", "1 000"} {
		t.Run(amount, func(t *testing.T) {
			tr, err := ParseTransaction("K-3000", "text", amount)
			require.NoError(t, err)
			assert.True(t, tr.Amount.IsZero())
			assert.True(t, tr.NettoPositive.IsZero())
		})
	}
}

func TestCodeString(t *testing.T) {
	for _, code := range []string{"K-3014-25", "D-1900", "25-D-3000-40013", "K-3000-40013"} {
		c, err := ParseCode(code)
		require.NoError(t, err)
		assert.Equal(t, code, c.String())
	}
}
