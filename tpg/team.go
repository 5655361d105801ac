package tpg

import (
	"fmt"
	"slices"
)

// Team owns an ordered set of learner indices. At inference time the
// highest-bidding learner wins and its action is taken; between episodes
// the variation operators rework the membership.
type Team struct {
	ID int

	// Learners holds arena indices of members, ordered, without
	// duplicates.
	Learners []int

	// Outcomes maps a task identifier to the latest recorded score.
	Outcomes map[string]int64

	// Fitness is assigned by scoring before selection.
	Fitness int64

	// InLearners lists arena indices of learners whose action delegates to
	// this team (incoming edges).
	InLearners []int
}

// NewTeam builds an empty team.
func NewTeam(params *TeamParams) *Team {
	return &Team{
		ID:       params.NextID(),
		Outcomes: make(map[string]int64),
	}
}

// Equal compares teams by member list.
func (t *Team) Equal(other *Team) bool {
	return slices.Equal(t.Learners, other.Learners)
}

// AddLearner appends a learner to the membership and records the back-edge
// on the learner.
func (t *Team) AddLearner(b *Brain, learnerIdx int) {
	t.Learners = append(t.Learners, learnerIdx)
	if selfIdx, ok := b.TeamIndexFromID(t.ID); ok {
		b.Learners[learnerIdx].InTeams = append(b.Learners[learnerIdx].InTeams, selfIdx)
	}
}

// RemoveLearner removes the learner index from the membership (first
// occurrence, by value) and drops the learner's back-edge on this team.
func (t *Team) RemoveLearner(b *Brain, learnerIdx int) {
	if i := slices.Index(t.Learners, learnerIdx); i >= 0 {
		t.Learners = slices.Delete(t.Learners, i, i+1)
	}
	if selfIdx, ok := b.TeamIndexFromID(t.ID); ok {
		lrnr := b.Learners[learnerIdx]
		if i := slices.Index(lrnr.InTeams, selfIdx); i >= 0 {
			lrnr.InTeams = slices.Delete(lrnr.InTeams, i, i+1)
		}
	}
}

// RemoveLearners clears the membership, dropping every back-edge.
func (t *Team) RemoveLearners(b *Brain) {
	for _, lrnr := range slices.Clone(t.Learners) {
		t.RemoveLearner(b, lrnr)
	}
}

// SetOutcomes records the score for a task, replacing any prior value.
func (t *Team) SetOutcomes(task string, score int64) {
	t.Outcomes[task] = score
}

// HasOutcome reports whether a score was recorded for the task.
func (t *Team) HasOutcome(task string) bool {
	_, ok := t.Outcomes[task]
	return ok
}

// GetScoreOfTask returns the recorded score for the task, zero if none.
func (t *Team) GetScoreOfTask(task string) int64 {
	return t.Outcomes[task]
}

// NumLearnersReferencing returns the number of incoming learner edges.
func (t *Team) NumLearnersReferencing() int {
	return len(t.InLearners)
}

// NumAtomicActions counts members whose action is atomic.
func (t *Team) NumAtomicActions(b *Brain) int {
	n := 0
	for _, lrnr := range t.Learners {
		if b.Learners[lrnr].IsActionAtomic(b) {
			n++
		}
	}
	return n
}

// ZeroRegisters zeroes the registers of every member.
func (t *Team) ZeroRegisters(b *Brain) {
	for _, lrnr := range t.Learners {
		b.Learners[lrnr].ZeroRegisters()
	}
}

// Act runs one inference step. The team panics if it is already on the
// visited list, pushes itself, evaluates bids over the valid members (a
// member is valid if its action is atomic or targets a team not yet
// visited) and resolves the top bidder's action under the same visited
// list. Ties resolve to the earlier member.
func (t *Team) Act(b *Brain, state []int64, visited *[]int) int64 {
	if slices.Contains(*visited, t.ID) {
		panic(fmt.Sprintf("team %d already visited", t.ID))
	}
	*visited = append(*visited, t.ID)

	var valid []int
	for _, lrnr := range t.Learners {
		if target, ok := b.Learners[lrnr].ActionTeam(b); ok {
			if slices.Contains(*visited, b.Teams[target].ID) {
				continue
			}
		}
		valid = append(valid, lrnr)
	}
	if len(valid) == 0 {
		panic(fmt.Sprintf("team %d has no valid learner to bid", t.ID))
	}

	top := valid[0]
	maxBid := b.Learners[top].Bid(state)
	b.Log.Debug("bid", "team", t.ID, "learner", b.Learners[top].ID, "value", maxBid)
	for _, lrnr := range valid[1:] {
		bid := b.Learners[lrnr].Bid(state)
		b.Log.Debug("bid", "team", t.ID, "learner", b.Learners[lrnr].ID, "value", bid)
		if bid > maxBid {
			maxBid = bid
			top = lrnr
		}
	}

	return b.Learners[top].GetAction(b, state, visited)
}

// MutationDelete removes members while a Bernoulli(p) trial succeeds and
// more than two members remain. A zero p returns immediately; p >= 1
// panics. The pick is uniform, re-drawn from the non-atomic members when
// removing the pick would leave the team without an atomic action.
// Returns the removed learner indices.
func (t *Team) MutationDelete(b *Brain, p float64, rng *Rand) []int {
	var deleted []int
	if p == 0 {
		return deleted
	}
	if p >= 1 {
		panic("p_lrn_del is greater than or equal to 1.0")
	}
	if t.NumAtomicActions(b) < 1 {
		panic(fmt.Sprintf("team %d has no atomic action learner", t.ID))
	}

	for rng.Flip(p) && len(t.Learners) > 2 {
		pick := t.Learners[rng.Intn(len(t.Learners))]

		if b.Learners[pick].IsActionAtomic(b) && t.NumAtomicActions(b) == 1 {
			var nonAtomic []int
			for _, lrnr := range t.Learners {
				if !b.Learners[lrnr].IsActionAtomic(b) {
					nonAtomic = append(nonAtomic, lrnr)
				}
			}
			pick = nonAtomic[rng.Intn(len(nonAtomic))]
		}

		deleted = append(deleted, pick)
		b.Log.Debug("learner deleted", "team", t.ID, "learner", b.Learners[pick].ID)
		t.RemoveLearner(b, pick)
	}
	return deleted
}

// MutationAdd appends members drawn uniformly from pool while a
// Bernoulli(p) trial succeeds and the team has room (a zero maxTeamSize
// means unbounded). Picked learners leave the pool so no duplicate can
// enter. A zero p, an empty pool or a full team return immediately;
// p >= 1 panics. Returns the added learner indices.
func (t *Team) MutationAdd(b *Brain, p float64, maxTeamSize int, pool []int, rng *Rand) []int {
	var added []int
	if p == 0 || len(pool) == 0 || (maxTeamSize > 0 && len(t.Learners) >= maxTeamSize) {
		return added
	}
	if p >= 1 {
		panic("p_lrn_add is greater than or equal to 1.0")
	}

	pool = slices.Clone(pool)
	for rng.Flip(p) && (maxTeamSize == 0 || len(t.Learners) < maxTeamSize) {
		if len(pool) == 0 {
			break
		}
		i := rng.Intn(len(pool))
		pick := pool[i]
		pool = slices.Delete(pool, i, i+1)

		added = append(added, pick)
		b.Log.Debug("learner added", "team", t.ID, "learner", b.Learners[pick].ID)
		t.AddLearner(b, pick)
	}
	return added
}

// MutationMutate gives each current member an independent chance p to be
// replaced by a mutated child. The child clones the parent's program,
// action and register length; when the parent holds the team's only
// atomic action the child's action mutation is forced to stay atomic so
// the team never loses its last atomic member. Children are installed in
// the brain and take the parent's place on the team. Returns the
// parent-id to child-id map and the child arena indices.
func (t *Team) MutationMutate(b *Brain, p float64, params *TeamParams, teams []int, rng *Rand) (map[int]int, []int) {
	mutated := make(map[int]int)
	var children []int

	for _, lrnrIdx := range slices.Clone(t.Learners) {
		if !rng.Flip(p) {
			continue
		}
		parent := b.Learners[lrnrIdx]

		pActAtom := params.PActAtom
		if t.NumAtomicActions(b) == 1 && parent.IsActionAtomic(b) {
			pActAtom = 1.1
		}

		// The child gets its own action record: mutating the parent's
		// slot in place would rewrite the action of every learner
		// sharing it.
		childAction := b.Actions[parent.Action].Clone(&params.Learner.Action)
		childActionIdx := b.AddAction(childAction)

		child := NewLearner(&params.Learner, parent.Program.Clone(), childActionIdx, len(parent.Registers))
		childIdx := b.AddLearner(child)
		if target, ok := childAction.ActionTeam(); ok {
			b.Teams[target].InLearners = append(b.Teams[target].InLearners, childIdx)
		}

		parentTeam, ok := b.TeamIndexFromID(t.ID)
		if !ok {
			panic(fmt.Sprintf("team %d not in arena", t.ID))
		}
		child.Mutate(b, &params.Learner, parentTeam, teams, pActAtom, rng)

		mutated[parent.ID] = child.ID
		children = append(children, childIdx)

		t.RemoveLearner(b, lrnrIdx)
		t.AddLearner(b, childIdx)
		b.Log.Debug("learner mutated", "team", t.ID, "parent", parent.ID, "child", child.ID)
	}
	return mutated, children
}

// Mutate composes the three operators: delete, then add from a pool of
// allLearners not already on the team, filtered to learners pointing back
// at this team and excluding just-deleted ones, then mutate-learners.
// Newly created learners that did not end up on the team and reference a
// team with no remaining hold on them get their back-edge cleaned up.
// Returns the number of variation passes run (rampant repetition is
// reserved; a single pass runs).
func (t *Team) Mutate(b *Brain, params *TeamParams, allLearners, teams []int, maxTeamSize int, rng *Rand) int {
	if params.RampantGen != 0 && params.RampantMin > params.RampantMax {
		panic("rampant_min is greater than rampant_max")
	}
	const rampantRep = 1

	var newLearners []int
	for i := 0; i < rampantRep; i++ {
		deleted := t.MutationDelete(b, params.PLrnDel, rng)

		var pool []int
		for _, lrnr := range allLearners {
			if slices.Contains(t.Learners, lrnr) {
				continue
			}
			if !slices.Contains(t.InLearners, lrnr) {
				continue
			}
			if slices.Contains(deleted, lrnr) {
				continue
			}
			pool = append(pool, lrnr)
		}
		t.MutationAdd(b, params.PLrnAdd, maxTeamSize, pool, rng)

		_, children := t.MutationMutate(b, params.PLrnMut, params, teams, rng)
		newLearners = append(newLearners, children...)
	}

	for _, lrnr := range newLearners {
		if slices.Contains(t.Learners, lrnr) {
			continue
		}
		l := b.Learners[lrnr]
		if l.NumTeamsReferencing() != 0 || l.IsActionAtomic(b) {
			continue
		}
		if target, ok := l.ActionTeam(b); ok {
			ref := b.Teams[target]
			if i := slices.Index(ref.InLearners, lrnr); i >= 0 {
				ref.InLearners = slices.Delete(ref.InLearners, i, i+1)
			}
		}
	}

	return rampantRep
}
