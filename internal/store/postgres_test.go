package store

import (
	"testing"

	"github.com/moneynplay/engine/internal/model"
)

func TestParsePositionDecimals(t *testing.T) {
	var p model.InvestmentPosition
	if err := parsePositionDecimals(&p, "2.5", "1000"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Shares.String() != "2.5" || p.AverageBuyPrice.String() != "1000" {
		t.Errorf("parsed %s @ %s", p.Shares, p.AverageBuyPrice)
	}
}

func TestParsePositionDecimalsRejectsGarbage(t *testing.T) {
	cases := []struct{ shares, avg string }{
		{"not-a-number", "1000"},
		{"2.5", ""},
		{"", "1000"},
	}
	for _, tc := range cases {
		var p model.InvestmentPosition
		if err := parsePositionDecimals(&p, tc.shares, tc.avg); err == nil {
			t.Errorf("parse(%q, %q) = nil, want error", tc.shares, tc.avg)
		}
	}
}
