package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/jarvis/internal/model"
)

func TestRiskLevelRequiresApproval(t *testing.T) {
	tests := map[string]struct {
		level model.RiskLevel
		exp   bool
	}{
		"Low risk should not require approval.":   {level: model.RiskLevelLow, exp: false},
		"Medium risk should require approval.":    {level: model.RiskLevelMedium, exp: true},
		"High risk should require approval.":      {level: model.RiskLevelHigh, exp: true},
		"R0 should not require approval.":         {level: model.RiskLevelR0, exp: false},
		"R1 should not require approval.":         {level: model.RiskLevelR1, exp: false},
		"R2 should require approval.":             {level: model.RiskLevelR2, exp: true},
		"R3 should require approval.":             {level: model.RiskLevelR3, exp: true},
		"Unknown levels should not require it.":   {level: "critical-ish", exp: false},
		"Surrounding spaces should be tolerated.": {level: " R3 ", exp: true},
		"An empty level should not require it.":   {level: "", exp: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, test.level.RequiresApproval())
		})
	}
}
