package orchestrator

// RunSettings is the resolved set of per-run tunables that affect pruning
// behavior: conservative mode, the minimum prune confidence floor, and
// whether the optional LLM batch reviewer participates.
type RunSettings struct {
	ConservativeMode   bool
	MinPruneConfidence float64
	LLMReviewEnabled   bool
}

// HouseholdSettings is a per-household override layer, persisted
// independently of the global config defaults.
type HouseholdSettings struct {
	ConservativeMode   *bool
	MinPruneConfidence *float64
	LLMReviewEnabled   *bool
}

// RunOverride is an explicit, single-run override supplied at run.start
// time, taking precedence over both household and global settings.
type RunOverride struct {
	ConservativeMode   *bool
	MinPruneConfidence *float64
	LLMReviewEnabled   *bool
}

// ResolveSettings implements the per-run -> household -> global cascade:
// a per-run override wins when set, else the household setting, else the
// global config default. Mirrors the teacher's per-mention -> user-settings
// -> global-config resolution for HITL flags.
func ResolveSettings(global RunSettings, household HouseholdSettings, run RunOverride) RunSettings {
	resolved := global

	if household.ConservativeMode != nil {
		resolved.ConservativeMode = *household.ConservativeMode
	}
	if household.MinPruneConfidence != nil {
		resolved.MinPruneConfidence = *household.MinPruneConfidence
	}
	if household.LLMReviewEnabled != nil {
		resolved.LLMReviewEnabled = *household.LLMReviewEnabled
	}

	if run.ConservativeMode != nil {
		resolved.ConservativeMode = *run.ConservativeMode
	}
	if run.MinPruneConfidence != nil {
		resolved.MinPruneConfidence = *run.MinPruneConfidence
	}
	if run.LLMReviewEnabled != nil {
		resolved.LLMReviewEnabled = *run.LLMReviewEnabled
	}

	return resolved
}
