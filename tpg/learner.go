package tpg

// Learner pairs a program with an action. Its registers persist across
// bids within an episode and double as the program's working memory.
type Learner struct {
	ID        int
	Program   Program
	Registers []int64

	// Action is the arena index of this learner's action.
	Action int

	// InTeams lists the arena indices of teams holding this learner.
	InTeams []int
}

// NewLearner builds a learner over the given program and action index with
// numRegisters zeroed registers.
func NewLearner(params *LearnerParams, program Program, action, numRegisters int) *Learner {
	return &Learner{
		ID:        params.NextID(),
		Program:   program,
		Registers: make([]int64, numRegisters),
		Action:    action,
	}
}

// Bid executes the program on the state against this learner's registers
// and returns register zero.
func (l *Learner) Bid(state []int64) int64 {
	l.Program.Execute(state, l.Registers)
	return l.Registers[0]
}

// ZeroRegisters resets every register to zero.
func (l *Learner) ZeroRegisters() {
	for i := range l.Registers {
		l.Registers[i] = 0
	}
}

// NumTeamsReferencing returns how many teams hold this learner.
func (l *Learner) NumTeamsReferencing() int {
	return len(l.InTeams)
}

// IsActionAtomic reports whether this learner's action is atomic.
func (l *Learner) IsActionAtomic(b *Brain) bool {
	return b.Actions[l.Action].IsAtomic()
}

// ActionTeam returns the team this learner's action delegates to, if any.
func (l *Learner) ActionTeam(b *Brain) (int, bool) {
	return b.Actions[l.Action].ActionTeam()
}

// GetAction resolves this learner's action under the state.
func (l *Learner) GetAction(b *Brain, state []int64, visited *[]int) int64 {
	return b.Actions[l.Action].Resolve(b, state, visited)
}

// Equal compares learners by program equality. Used by variation
// heuristics only, never as identity.
func (l *Learner) Equal(other *Learner) bool {
	return l.Program.Equal(&other.Program)
}

// Mutate loops until at least one sub-mutation applied: the program with
// probability PProgMut, the action with probability PActMut. Callers must
// hold at least one of the two probabilities above zero; Validate enforces
// this.
func (l *Learner) Mutate(b *Brain, params *LearnerParams, parentTeam int, teams []int, pActAtom float64, rng *Rand) {
	changed := false
	for !changed {
		if rng.Flip(params.PProgMut) {
			changed = true
			l.Program.Mutate(&params.Program, rng, b.Log)
		}
		if rng.Flip(params.PActMut) {
			changed = true
			b.Actions[l.Action].Mutate(b, l.Action, parentTeam, teams, pActAtom, rng)
		}
	}
}
