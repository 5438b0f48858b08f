package core

import "clamflow/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set
// guarding the lot lifecycle and traceability invariants.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewLotTransitionRule())
	engine.Register(NewLotWeightConsistencyRule())
	engine.Register(NewBatchWeightConsistencyRule())
	return engine
}
