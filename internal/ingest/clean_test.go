package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trims white space", in: "  ブナ　", want: "ブナ"},
		{name: "full-width digits", in: "１２.５", want: "12.5"},
		{name: "half-width kana", in: "ﾔﾏﾓﾐｼﾞ", want: "ヤマモミジ"},
		{name: "float noise", in: "12.300000190734863", want: "12.3"},
		{name: "whole float keeps point", in: "100.0", want: "100.0"},
		{name: "integer unchanged", in: "0042", want: "0042"},
		{name: "code unchanged", in: "na", want: "na"},
		{name: "status code unchanged", in: "d05", want: "d05"},
		{name: "datetime", in: "2019-05-01 00:00:00", want: "20190501"},
		{name: "plain date unchanged", in: "20190501", want: "20190501"},
		{name: "line breaks removed", in: "stem\nbroken\tat base", want: "stembrokenat base"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanRecord(t *testing.T) {
	rec, err := Read("plot.csv", strings.NewReader("#,PLOT ID,,TM-DB1\ntag_no,gbh05\n１,30.0000001\n"), Options{})
	require.NoError(t, err)

	cleaned, err := CleanRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, "1", cleaned.Cell(0, "tag_no"))
	assert.Equal(t, "30.0", cleaned.Cell(0, "gbh05"))
	assert.Equal(t, "TM-DB1", cleaned.PlotID())
	assert.Equal(t, "１", rec.Cell(0, "tag_no"), "source record is not modified")
}
