package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadCIK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"320193", "0000320193"},
		{"0000320193", "0000320193"},
		{" 789019 ", "0000789019"},
		{"1045810", "0001045810"},
		{"0", "0000000000"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PadCIK(tt.in))
		})
	}
}

func TestFilingDescriptorNormalize(t *testing.T) {
	t.Parallel()

	d := FilingDescriptor{
		Ticker:      " aapl ",
		CompanyName: "Apple Inc. ",
		CIK:         "320193",
		DocumentURL: " https://www.sec.gov/Archives/aapl-20221231.htm ",
	}
	d.Normalize()

	assert.Equal(t, "AAPL", d.Ticker)
	assert.Equal(t, "Apple Inc.", d.CompanyName)
	assert.Equal(t, "0000320193", d.CIK)
	assert.Equal(t, "https://www.sec.gov/Archives/aapl-20221231.htm", d.DocumentURL)
}

func TestFilingDescriptorValidate(t *testing.T) {
	t.Parallel()

	valid := FilingDescriptor{
		Ticker:      "AAPL",
		FilingType:  Filing10Q,
		DocumentURL: "https://www.sec.gov/doc.htm",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*FilingDescriptor)
	}{
		{"missing ticker", func(d *FilingDescriptor) { d.Ticker = "" }},
		{"bad filing type", func(d *FilingDescriptor) { d.FilingType = "8-K" }},
		{"missing url", func(d *FilingDescriptor) { d.DocumentURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := valid
			tt.mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}

func TestFilingTypeValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Filing10K.Valid())
	assert.True(t, Filing10Q.Valid())
	assert.False(t, FilingType("S-1").Valid())
	assert.False(t, FilingType("").Valid())
}
