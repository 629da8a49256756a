package core

import "aquacore/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewBatchQuantityRule())
	engine.Register(NewLifecycleTransitionRule())
	engine.Register(NewCostMonotonicRule())
	engine.Register(NewUnderageHarvestRule())
	engine.Register(NewWaterQualityRule())
	return engine
}
