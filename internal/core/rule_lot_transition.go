package core

import (
	"context"
	"fmt"

	"clamflow/pkg/domain"
)

// NewLotTransitionRule blocks illegal status values and illegal status
// transitions on lots and processing batches. Lots run
// pending -> processing -> completed with no skips or regressions;
// completed is terminal. Batches run pending -> completed.
func NewLotTransitionRule() domain.Rule {
	return lotTransitionRule{}
}

type lotTransitionRule struct{}

func (lotTransitionRule) Name() string { return "lot_status_transition" }

type statusMachine struct {
	entity      domain.EntityType
	label       string
	valid       map[string]struct{}
	transitions map[string]map[string]struct{}
	extractor   func(payload any) (id string, state string, ok bool)
}

func toSet(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

var statusMachines = []statusMachine{
	{
		entity: domain.EntityLot,
		label:  "lot",
		valid: toSet(
			string(domain.LotStatusPending),
			string(domain.LotStatusProcessing),
			string(domain.LotStatusCompleted),
		),
		transitions: map[string]map[string]struct{}{
			string(domain.LotStatusPending):    toSet(string(domain.LotStatusProcessing)),
			string(domain.LotStatusProcessing): toSet(string(domain.LotStatusCompleted)),
			string(domain.LotStatusCompleted):  {},
		},
		extractor: func(payload any) (string, string, bool) {
			lot, ok := payload.(domain.Lot)
			if !ok {
				return "", "", false
			}
			return lot.LotNumber, string(lot.Status), true
		},
	},
	{
		entity: domain.EntityProcessingBatch,
		label:  "processing batch",
		valid: toSet(
			string(domain.BatchStatusPending),
			string(domain.BatchStatusCompleted),
		),
		transitions: map[string]map[string]struct{}{
			string(domain.BatchStatusPending):   toSet(string(domain.BatchStatusCompleted)),
			string(domain.BatchStatusCompleted): {},
		},
		extractor: func(payload any) (string, string, bool) {
			batch, ok := payload.(domain.ProcessingBatch)
			if !ok {
				return "", "", false
			}
			return fmt.Sprintf("%d", batch.ID), string(batch.Status), true
		},
	},
}

func (r lotTransitionRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, machine := range statusMachines {
		for _, change := range changes {
			if change.Entity != machine.entity {
				continue
			}
			switch change.Action {
			case domain.ActionCreate:
				id, state, ok := machine.extractor(change.After)
				if !ok {
					continue
				}
				if _, valid := machine.valid[state]; !valid {
					result.Violations = append(result.Violations, domain.Violation{
						Rule:     r.Name(),
						Severity: domain.SeverityBlock,
						Message:  fmt.Sprintf("%s created with unknown status %q", machine.label, state),
						Entity:   machine.entity,
						EntityID: id,
					})
				}
			case domain.ActionUpdate:
				id, after, ok := machine.extractor(change.After)
				if !ok {
					continue
				}
				_, before, okBefore := machine.extractor(change.Before)
				if _, valid := machine.valid[after]; !valid {
					result.Violations = append(result.Violations, domain.Violation{
						Rule:     r.Name(),
						Severity: domain.SeverityBlock,
						Message:  fmt.Sprintf("%s moved to unknown status %q", machine.label, after),
						Entity:   machine.entity,
						EntityID: id,
					})
					continue
				}
				if !okBefore || before == after {
					continue
				}
				if _, allowed := machine.transitions[before][after]; !allowed {
					result.Violations = append(result.Violations, domain.Violation{
						Rule:     r.Name(),
						Severity: domain.SeverityBlock,
						Message:  fmt.Sprintf("%s cannot transition from %q to %q", machine.label, before, after),
						Entity:   machine.entity,
						EntityID: id,
					})
				}
			}
		}
	}
	return result, nil
}
