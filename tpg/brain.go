package tpg

import (
	"io"
	"sort"

	"github.com/charmbracelet/log"
)

// Brain is the process-wide arena owning every team, learner and action.
// Cross-references between entities are arena indices, never pointers
// between records; indices stay stable for the arena's lifetime (slots of
// retired entities are retained, not recycled).
type Brain struct {
	Teams    []*Team
	Learners []*Learner
	Actions  []*Action

	teamIDToIndex    map[int]int
	learnerIDToIndex map[int]int
	actionIDToIndex  map[int]int

	// Log receives operator tracing at debug level. Defaults to discard.
	Log *log.Logger
}

// NewBrain returns an empty arena.
func NewBrain() *Brain {
	return &Brain{
		teamIDToIndex:    make(map[int]int),
		learnerIDToIndex: make(map[int]int),
		actionIDToIndex:  make(map[int]int),
		Log:              log.New(io.Discard),
	}
}

// AddTeam appends a team and returns its arena index.
func (b *Brain) AddTeam(t *Team) int {
	idx := len(b.Teams)
	b.Teams = append(b.Teams, t)
	b.teamIDToIndex[t.ID] = idx
	return idx
}

// AddLearner appends a learner and returns its arena index.
func (b *Brain) AddLearner(l *Learner) int {
	idx := len(b.Learners)
	b.Learners = append(b.Learners, l)
	b.learnerIDToIndex[l.ID] = idx
	return idx
}

// AddAction appends an action and returns its arena index.
func (b *Brain) AddAction(a *Action) int {
	idx := len(b.Actions)
	b.Actions = append(b.Actions, a)
	b.actionIDToIndex[a.ID] = idx
	return idx
}

// TeamIndexFromID resolves a team id to its arena index.
func (b *Brain) TeamIndexFromID(id int) (int, bool) {
	if idx, ok := b.teamIDToIndex[id]; ok {
		return idx, true
	}
	for i, t := range b.Teams {
		if t.ID == id {
			return i, true
		}
	}
	return 0, false
}

// LearnerIndexFromID resolves a learner id to its arena index.
func (b *Brain) LearnerIndexFromID(id int) (int, bool) {
	if idx, ok := b.learnerIDToIndex[id]; ok {
		return idx, true
	}
	for i, l := range b.Learners {
		if l.ID == id {
			return i, true
		}
	}
	return 0, false
}

// ActionIndexFromID resolves an action id to its arena index.
func (b *Brain) ActionIndexFromID(id int) (int, bool) {
	if idx, ok := b.actionIDToIndex[id]; ok {
		return idx, true
	}
	for i, a := range b.Actions {
		if a.ID == id {
			return i, true
		}
	}
	return 0, false
}

// SortTeamsIdxWithFitness returns pool re-ordered by decreasing fitness.
// The sort is stable on the fitness key, so equal-fitness teams keep their
// pool order.
func (b *Brain) SortTeamsIdxWithFitness(pool []int) []int {
	sorted := make([]int, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		return b.Teams[sorted[i]].Fitness > b.Teams[sorted[j]].Fitness
	})
	return sorted
}

// learnersHoldingAction scans the arena for learners whose action is the
// given slot. Shared action slots mean a mutation can affect more than one
// holder; back-edge maintenance must cover them all.
func (b *Brain) learnersHoldingAction(actionIdx int) []int {
	var holders []int
	for i, l := range b.Learners {
		if l.Action == actionIdx {
			holders = append(holders, i)
		}
	}
	return holders
}
