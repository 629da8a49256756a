package core

import (
	"aquacore/pkg/domain"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Safe operating bounds for pond water. Readings outside these ranges warn but
// never block; operators decide whether to intervene.
var (
	minPH              = decimal.RequireFromString("6.5")
	maxPH              = decimal.RequireFromString("8.5")
	minTemperatureC    = decimal.RequireFromString("18")
	maxTemperatureC    = decimal.RequireFromString("32")
	minDissolvedOxygen = decimal.RequireFromString("4")
)

// NewWaterQualityRule warns on water quality readings outside safe bounds.
func NewWaterQualityRule() domain.Rule {
	return waterQualityRule{}
}

type waterQualityRule struct{}

func (waterQualityRule) Name() string { return "water_quality" }

func (waterQualityRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityWaterQuality || change.Action != domain.ActionCreate {
			continue
		}
		reading, ok := change.After.(domain.WaterQualityReading)
		if !ok {
			continue
		}
		warn := func(msg string) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "water_quality",
				Severity: domain.SeverityWarn,
				Message:  msg,
				Entity:   domain.EntityWaterQuality,
				EntityID: reading.ID,
			})
		}
		if reading.PH.LessThan(minPH) || reading.PH.GreaterThan(maxPH) {
			warn(fmt.Sprintf("pond %s pH %s outside [%s, %s]", reading.PondID, reading.PH, minPH, maxPH))
		}
		if reading.TemperatureC.LessThan(minTemperatureC) || reading.TemperatureC.GreaterThan(maxTemperatureC) {
			warn(fmt.Sprintf("pond %s temperature %sC outside [%s, %s]", reading.PondID, reading.TemperatureC, minTemperatureC, maxTemperatureC))
		}
		if reading.DissolvedOxygen.LessThan(minDissolvedOxygen) {
			warn(fmt.Sprintf("pond %s dissolved oxygen %s mg/L below %s", reading.PondID, reading.DissolvedOxygen, minDissolvedOxygen))
		}
	}
	return res, nil
}
