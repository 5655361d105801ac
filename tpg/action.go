package tpg

import "slices"

// atomicCodePool is the symbol set an atomic switch draws from during
// action mutation.
var atomicCodePool = []int64{1, 2, 3, 4, 5, 6}

// Action is a tagged variant: atomic (emits Code) or delegating
// (descends into the team at TeamIndex). TeamIndex is meaningful only
// when HasTeam is set.
type Action struct {
	ID        int
	Code      int64
	TeamIndex int
	HasTeam   bool
}

// NewAction builds an atomic action for the given code.
func NewAction(code int64, params *ActionParams) *Action {
	return &Action{ID: params.NextID(), Code: code}
}

// IsAtomic reports whether the action emits its code directly.
func (a *Action) IsAtomic() bool {
	return !a.HasTeam
}

// ActionTeam returns the delegation target, if any.
func (a *Action) ActionTeam() (int, bool) {
	return a.TeamIndex, a.HasTeam
}

// Clone returns a new action record carrying the same code and target
// under a fresh id.
func (a *Action) Clone(params *ActionParams) *Action {
	return &Action{ID: params.NextID(), Code: a.Code, TeamIndex: a.TeamIndex, HasTeam: a.HasTeam}
}

// Equal compares actions by code only.
func (a *Action) Equal(other *Action) bool {
	return a.Code == other.Code
}

// Resolve retrieves the action under a state: the code if atomic,
// otherwise the referenced team's act under the same visited list.
func (a *Action) Resolve(b *Brain, state []int64, visited *[]int) int64 {
	if a.HasTeam {
		return b.Teams[a.TeamIndex].Act(b, state, visited)
	}
	return a.Code
}

// Mutate varies the action in place. With probability pActAtom it becomes
// atomic on a fresh code drawn from the pool minus the current one,
// detaching any previous delegation back-edges. Otherwise it retargets to
// a team picked uniformly from teams, excluding the current target and the
// learner's parent team; an empty selection pool leaves the action
// unchanged. actionIdx names this action's arena slot so the incoming-edge
// lists of old and new targets can be kept consistent for every learner
// holding the action.
func (a *Action) Mutate(b *Brain, actionIdx, parentTeam int, teams []int, pActAtom float64, rng *Rand) {
	if rng.Flip(pActAtom) {
		options := make([]int64, 0, len(atomicCodePool)-1)
		for _, code := range atomicCodePool {
			if code != a.Code {
				options = append(options, code)
			}
		}

		if !a.IsAtomic() {
			b.Log.Debug("action switching to atomic",
				"action", a.ID, "from_team", b.Teams[a.TeamIndex].ID)
			a.detach(b, actionIdx)
		}

		a.Code = options[rng.Intn(len(options))]
		a.HasTeam = false
		a.TeamIndex = 0
		return
	}

	pool := make([]int, 0, len(teams))
	for _, t := range teams {
		if a.HasTeam && t == a.TeamIndex {
			continue
		}
		if t == parentTeam {
			continue
		}
		pool = append(pool, t)
	}
	if len(pool) == 0 {
		return
	}

	if !a.IsAtomic() {
		a.detach(b, actionIdx)
	}

	target := pool[rng.Intn(len(pool))]
	a.TeamIndex = target
	a.HasTeam = true

	holders := b.learnersHoldingAction(actionIdx)
	for _, lrnr := range holders {
		b.Teams[target].InLearners = append(b.Teams[target].InLearners, lrnr)
	}
	b.Log.Debug("action retargeted", "action", a.ID, "team", b.Teams[target].ID)
}

// detach drops the back-edges this action's holders have on the current
// target team.
func (a *Action) detach(b *Brain, actionIdx int) {
	old := b.Teams[a.TeamIndex]
	for _, lrnr := range b.learnersHoldingAction(actionIdx) {
		if i := slices.Index(old.InLearners, lrnr); i >= 0 {
			old.InLearners = slices.Delete(old.InLearners, i, i+1)
		}
	}
}
