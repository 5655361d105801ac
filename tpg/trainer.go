package tpg

import (
	"errors"
	"io"
	"slices"

	"github.com/charmbracelet/log"
)

// Trainer owns the population metadata and orchestrates one generation of
// evolution: score, select, generate, next epoch. Teams, learners and
// actions live in the Brain; the trainer tracks arena indices only.
type Trainer struct {
	// DoElites preserves the best root team per task across selection.
	DoElites bool

	// Teams, RootTeams, Learners and Elites are arena index lists.
	Teams     []int
	RootTeams []int
	Learners  []int
	Elites    []int

	// Generation counts completed evolution epochs.
	Generation int

	nRegisters  int
	teamPopSize int
	actionCodes []int64
	params      *TrainerParams
	rng         *Rand
	log         *log.Logger
}

// NewTrainer validates params and builds a trainer with nRegisters
// registers per learner. A zero seed falls back to the wall clock. A nil
// logger discards.
func NewTrainer(params *TrainerParams, nRegisters int, seed int64, logger *log.Logger) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if nRegisters < 1 {
		return nil, errors.New("register count must be >= 1")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Trainer{
		DoElites:    true,
		Generation:  params.Generation,
		nRegisters:  nRegisters,
		teamPopSize: params.MaxTeamInPopulation,
		params:      params,
		rng:         NewRand(seed),
		log:         logger,
	}, nil
}

// Rand exposes the trainer's random source so callers constructing graph
// pieces by hand can share it.
func (t *Trainer) Rand() *Rand {
	return t.rng
}

// NumTeams returns the population size tracked by the trainer.
func (t *Trainer) NumTeams() int {
	return len(t.Teams)
}

// SetUpActions records the atomic action codes available to the
// population. An empty set is a composition error and panics.
func (t *Trainer) SetUpActions(codes []int64) {
	if len(codes) == 0 {
		panic("action codes are empty")
	}
	t.actionCodes = append(t.actionCodes, codes...)
}

// InitializePopulations seeds the Brain with teamPopSize teams. Each team
// starts from two learners holding distinct action codes and gains up to
// MaxLearnerInTeam-2 further random learners. Every team registers as
// both a population member and a root team.
func (t *Trainer) InitializePopulations(b *Brain) {
	if len(t.actionCodes) < 2 {
		panic("at least two action codes are required")
	}

	learnerParams := &t.params.Team.Learner

	for i := 0; i < t.teamPopSize; i++ {
		a1 := t.actionCodes[t.rng.Intn(len(t.actionCodes))]
		a2 := t.actionCodes[t.rng.Intn(len(t.actionCodes))]
		for a2 == a1 {
			a2 = t.actionCodes[t.rng.Intn(len(t.actionCodes))]
		}

		action1Idx := b.AddAction(NewAction(a1, &learnerParams.Action))
		action2Idx := b.AddAction(NewAction(a2, &learnerParams.Action))

		program1 := NewProgram(nil, &learnerParams.Program, t.rng)
		program2 := NewProgram(nil, &learnerParams.Program, t.rng)

		learner1Idx := b.AddLearner(NewLearner(learnerParams, program1, action1Idx, t.nRegisters))
		learner2Idx := b.AddLearner(NewLearner(learnerParams, program2, action2Idx, t.nRegisters))

		team := NewTeam(&t.params.Team)
		teamIdx := b.AddTeam(team)
		team.AddLearner(b, learner1Idx)
		team.AddLearner(b, learner2Idx)

		more := t.rng.Intn(t.params.MaxLearnerInTeam - 1)
		for j := 0; j < more; j++ {
			code := t.actionCodes[t.rng.Intn(len(t.actionCodes))]
			actionIdx := b.AddAction(NewAction(code, &learnerParams.Action))
			program := NewProgram(nil, &learnerParams.Program, t.rng)
			learnerIdx := b.AddLearner(NewLearner(learnerParams, program, actionIdx, t.nRegisters))
			team.AddLearner(b, learnerIdx)
		}

		t.Teams = append(t.Teams, teamIdx)
		t.RootTeams = append(t.RootTeams, teamIdx)
		t.log.Debug("team initialized", "team", team.ID, "learners", len(team.Learners))
	}
}

// GetAgents hands out agents over the root teams. Teams with an outcome
// recorded for any skip task are dropped. With no sort task every
// remaining team is wrapped; with exactly one, the single best-scoring
// team holding an outcome for it is returned (strictly-greater
// comparison, zero baseline, earlier index wins ties). More than one sort
// task is not supported and panics.
func (t *Trainer) GetAgents(b *Brain, sortTasks, skipTasks []string) []*Agent {
	var remaining []int
	for _, teamIdx := range t.RootTeams {
		team := b.Teams[teamIdx]
		skip := false
		for _, task := range skipTasks {
			if team.HasOutcome(task) {
				skip = true
				break
			}
		}
		if !skip {
			remaining = append(remaining, teamIdx)
		}
	}

	switch len(sortTasks) {
	case 0:
		agents := make([]*Agent, 0, len(remaining))
		for _, teamIdx := range remaining {
			agents = append(agents, NewAgent(teamIdx))
		}
		return agents
	case 1:
		var scored []int
		for _, teamIdx := range remaining {
			if b.Teams[teamIdx].HasOutcome(sortTasks[0]) {
				scored = append(scored, teamIdx)
			}
		}
		if len(scored) == 0 {
			return nil
		}
		best := scored[0]
		bestScore := int64(0)
		for _, teamIdx := range scored {
			if score := b.Teams[teamIdx].GetScoreOfTask(sortTasks[0]); score > bestScore {
				bestScore = score
				best = teamIdx
			}
		}
		return []*Agent{NewAgent(best)}
	default:
		panic("sorting on more than one task is not supported")
	}
}

// GetEliteAgent returns an agent on the best-scoring team holding an
// outcome for the task (strictly-greater comparison, zero baseline).
func (t *Trainer) GetEliteAgent(b *Brain, task string) *Agent {
	var scored []int
	for _, teamIdx := range t.Teams {
		if b.Teams[teamIdx].HasOutcome(task) {
			scored = append(scored, teamIdx)
		}
	}
	if len(scored) == 0 {
		return nil
	}
	best := scored[0]
	bestScore := int64(0)
	for _, teamIdx := range scored {
		if score := b.Teams[teamIdx].GetScoreOfTask(task); score > bestScore {
			bestScore = score
			best = teamIdx
		}
	}
	return NewAgent(best)
}

// Evolve runs one full generation: score, select, generate, next epoch.
func (t *Trainer) Evolve(b *Brain, tasks []string, extraTeams []int) {
	t.log.Debug("scoring individuals", "generation", t.Generation)
	t.scoreIndividuals(b, tasks, t.DoElites)
	t.log.Debug("selecting survivors")
	t.selectSurvivors(b, extraTeams)
	t.log.Debug("generating offspring")
	t.generate(b, extraTeams)
	t.log.Debug("advancing epoch")
	t.nextEpoch(b)
}

// scoreIndividuals rebuilds elites (best root team per task) when
// requested and assigns root-team fitness from the single task's score.
// Multi-task scoring is not implemented and panics.
func (t *Trainer) scoreIndividuals(b *Brain, tasks []string, doElites bool) {
	if doElites {
		t.Elites = t.Elites[:0]
		for _, task := range tasks {
			best := t.RootTeams[0]
			bestScore := int64(0)
			for _, teamIdx := range t.RootTeams {
				if score := b.Teams[teamIdx].GetScoreOfTask(task); score > bestScore {
					bestScore = score
					best = teamIdx
				}
			}
			t.Elites = append(t.Elites, best)
		}
	}

	if len(tasks) != 1 {
		panic("multi-task scoring is not implemented")
	}
	for _, teamIdx := range t.RootTeams {
		team := b.Teams[teamIdx]
		team.Fitness = team.GetScoreOfTask(tasks[0])
	}
}

// selectSurvivors keeps the top half of the root teams by fitness. The
// remainder, minus elites, lose their membership (unless protected as
// extra teams) and leave the trainer's index lists; the arena slot stays.
// Learners left with zero team references are pruned from the population,
// cleaning up delegation back-edges on the way.
func (t *Trainer) selectSurvivors(b *Brain, extraTeams []int) {
	ranked := b.SortTeamsIdxWithFitness(t.RootTeams)
	numKeep := (len(ranked) + 1) / 2

	for _, teamIdx := range ranked[numKeep:] {
		if slices.Contains(t.Elites, teamIdx) {
			continue
		}
		if !slices.Contains(extraTeams, teamIdx) {
			b.Teams[teamIdx].RemoveLearners(b)
		}
		if i := slices.Index(t.Teams, teamIdx); i >= 0 {
			t.Teams = slices.Delete(t.Teams, i, i+1)
		}
		if i := slices.Index(t.RootTeams, teamIdx); i >= 0 {
			t.RootTeams = slices.Delete(t.RootTeams, i, i+1)
		}
		t.log.Debug("team deleted", "team", b.Teams[teamIdx].ID)
	}

	var kept []int
	for _, lrnrIdx := range t.Learners {
		lrnr := b.Learners[lrnrIdx]
		if lrnr.NumTeamsReferencing() > 0 {
			kept = append(kept, lrnrIdx)
			continue
		}
		if !lrnr.IsActionAtomic(b) {
			if target, ok := lrnr.ActionTeam(b); ok {
				ref := b.Teams[target]
				if i := slices.Index(ref.InLearners, lrnrIdx); i >= 0 {
					ref.InLearners = slices.Delete(ref.InLearners, i, i+1)
				}
			}
		}
	}
	t.Learners = kept
}

// generate refills the population with children of uniformly picked root
// teams. A child starts with its parent's membership and then runs the
// composite team mutation against snapshots of the current learner and
// team index lists. Extra teams merge into the population first; those
// that end up with no incoming references and were not already tracked
// are dropped again.
func (t *Trainer) generate(b *Brain, extraTeams []int) {
	var protected []int
	extrasAdded := 0
	for _, teamIdx := range extraTeams {
		if !slices.Contains(t.Teams, teamIdx) {
			t.Teams = append(t.Teams, teamIdx)
			extrasAdded++
		} else {
			protected = append(protected, teamIdx)
		}
	}

	oLearners := slices.Clone(t.Learners)
	oTeams := slices.Clone(t.Teams)

	t.params.Generation = t.Generation

	for len(t.Teams) < t.teamPopSize+extrasAdded {
		parentIdx := t.RootTeams[t.rng.Intn(len(t.RootTeams))]
		parent := b.Teams[parentIdx]

		child := NewTeam(&t.params.Team)
		childIdx := b.AddTeam(child)
		for _, lrnr := range slices.Clone(parent.Learners) {
			child.AddLearner(b, lrnr)
		}

		child.Mutate(b, &t.params.Team, oLearners, oTeams, t.params.MaxLearnerInTeam, t.rng)

		t.Teams = append(t.Teams, childIdx)
		t.log.Debug("child generated", "parent", parent.ID, "child", child.ID)
	}

	for _, teamIdx := range extraTeams {
		if b.Teams[teamIdx].NumLearnersReferencing() == 0 && !slices.Contains(protected, teamIdx) {
			if i := slices.Index(t.Teams, teamIdx); i >= 0 {
				t.Teams = slices.Delete(t.Teams, i, i+1)
			}
		}
	}
}

// nextEpoch rebuilds the root-team list (teams with no incoming learner
// references, plus elites), adopts any team-member learners the trainer
// was not yet tracking and advances the generation counter.
func (t *Trainer) nextEpoch(b *Brain) {
	t.RootTeams = t.RootTeams[:0]
	for _, teamIdx := range t.Teams {
		team := b.Teams[teamIdx]
		for _, lrnr := range team.Learners {
			if !slices.Contains(t.Learners, lrnr) {
				t.Learners = append(t.Learners, lrnr)
			}
		}
		if team.NumLearnersReferencing() == 0 || slices.Contains(t.Elites, teamIdx) {
			t.RootTeams = append(t.RootTeams, teamIdx)
		}
	}
	t.Generation++
}
