package tpg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/tangled/tpg"
)

func trainerFixture(t *testing.T, seed int64) (*tpg.Trainer, *tpg.Brain) {
	t.Helper()

	params := tpg.DefaultParams()
	trainer, err := tpg.NewTrainer(&params.Trainer, 5, seed, nil)
	require.NoError(t, err)
	trainer.SetUpActions([]int64{1, 2, 3, 4, 5})

	brain := tpg.NewBrain()
	trainer.InitializePopulations(brain)
	return trainer, brain
}

func TestNewTrainerValidatesParams(t *testing.T) {
	params := tpg.DefaultParams()
	params.Trainer.MaxLearnerInTeam = 2

	_, err := tpg.NewTrainer(&params.Trainer, 5, 1, nil)
	require.Error(t, err)
}

func TestSetUpActionsEmptyPanics(t *testing.T) {
	params := tpg.DefaultParams()
	trainer, err := tpg.NewTrainer(&params.Trainer, 5, 1, nil)
	require.NoError(t, err)

	require.Panics(t, func() {
		trainer.SetUpActions(nil)
	})
}

func TestInitializePopulations(t *testing.T) {
	trainer, brain := trainerFixture(t, 17)

	require.Len(t, brain.Teams, 5)
	require.Equal(t, 5, trainer.NumTeams())
	require.Len(t, trainer.RootTeams, 5)

	for _, team := range brain.Teams {
		require.GreaterOrEqual(t, len(team.Learners), 2)
		require.LessOrEqual(t, len(team.Learners), 5)

		code1 := brain.Actions[brain.Learners[team.Learners[0]].Action].Code
		code2 := brain.Actions[brain.Learners[team.Learners[1]].Action].Code
		require.NotEqual(t, code1, code2)

		require.GreaterOrEqual(t, team.NumAtomicActions(brain), 1)
	}
}

func TestGetAgentsWrapsEveryRootTeam(t *testing.T) {
	trainer, brain := trainerFixture(t, 17)

	agents := trainer.GetAgents(brain, nil, nil)
	require.Len(t, agents, len(trainer.RootTeams))
}

func TestGetAgentsSkipsTeamsWithOutcome(t *testing.T) {
	trainer, brain := trainerFixture(t, 17)

	agents := trainer.GetAgents(brain, nil, nil)
	agents[0].Reward(brain, 50, "done")

	remaining := trainer.GetAgents(brain, nil, []string{"done"})
	require.Len(t, remaining, len(trainer.RootTeams)-1)
	for _, agent := range remaining {
		require.NotEqual(t, agents[0].TeamIndex(), agent.TeamIndex())
	}
}

func TestGetAgentsSortSingleTask(t *testing.T) {
	trainer, brain := trainerFixture(t, 17)

	agents := trainer.GetAgents(brain, nil, nil)
	agents[0].Reward(brain, 10, "t1")
	agents[1].Reward(brain, 30, "t1")
	agents[2].Reward(brain, 20, "t1")

	best := trainer.GetAgents(brain, []string{"t1"}, nil)
	require.Len(t, best, 1)
	require.Equal(t, agents[1].TeamIndex(), best[0].TeamIndex())
}

func TestGetAgentsMultiSortPanics(t *testing.T) {
	trainer, brain := trainerFixture(t, 17)

	require.Panics(t, func() {
		trainer.GetAgents(brain, []string{"t1", "t2"}, nil)
	})
}

func TestGetEliteAgent(t *testing.T) {
	trainer, brain := trainerFixture(t, 17)

	agents := trainer.GetAgents(brain, nil, nil)
	for i, agent := range agents {
		agent.Reward(brain, int64((i+1)*10), "t1")
	}

	elite := trainer.GetEliteAgent(brain, "t1")
	require.NotNil(t, elite)
	require.Equal(t, agents[len(agents)-1].TeamIndex(), elite.TeamIndex())
}

func TestEvolvePreservesElite(t *testing.T) {
	trainer, brain := trainerFixture(t, 23)

	agents := trainer.GetAgents(brain, nil, nil)
	for i, agent := range agents {
		agent.Reward(brain, int64((i+1)*10), "t1")
	}
	bestIdx := agents[len(agents)-1].TeamIndex()

	trainer.Evolve(brain, []string{"t1"}, nil)

	require.Contains(t, trainer.Elites, bestIdx)
	require.Contains(t, trainer.RootTeams, bestIdx)
	require.GreaterOrEqual(t, len(trainer.RootTeams), len(trainer.Elites))
	require.Equal(t, 1, trainer.Generation)
}

func TestEvolveRootTeamInvariants(t *testing.T) {
	trainer, brain := trainerFixture(t, 29)

	agents := trainer.GetAgents(brain, nil, nil)
	for i, agent := range agents {
		agent.Reward(brain, int64(i*5), "t1")
	}

	trainer.Evolve(brain, []string{"t1"}, nil)

	// Every team with no incoming references, and every elite, is a root.
	for _, teamIdx := range trainer.Teams {
		team := brain.Teams[teamIdx]
		if team.NumLearnersReferencing() == 0 {
			require.Contains(t, trainer.RootTeams, teamIdx)
		}
	}
	for _, elite := range trainer.Elites {
		require.Contains(t, trainer.RootTeams, elite)
	}

	// The population was refilled and every tracked team keeps its
	// atomic-action invariant.
	require.Equal(t, 5, trainer.NumTeams())
	for _, teamIdx := range trainer.Teams {
		team := brain.Teams[teamIdx]
		require.NotEmpty(t, team.Learners)
		require.GreaterOrEqual(t, team.NumAtomicActions(brain), 1)
		for _, lrnr := range team.Learners {
			if target, ok := brain.Learners[lrnr].ActionTeam(brain); ok {
				require.NotEqual(t, teamIdx, target, "self-loop on team %d", teamIdx)
			}
		}
	}

	require.NotEmpty(t, trainer.Learners)
}

func TestEvolveAcrossGenerations(t *testing.T) {
	trainer, brain := trainerFixture(t, 31)

	state := []int64{1, 1, 1, 1}
	for gen := 0; gen < 3; gen++ {
		agents := trainer.GetAgents(brain, nil, nil)
		require.NotEmpty(t, agents)
		for _, agent := range agents {
			code := agent.Act(brain, state)
			score := int64(-100)
			if code == 2 {
				score = 100
			}
			agent.Reward(brain, score, "t1")
		}
		trainer.Evolve(brain, []string{"t1"}, nil)
	}

	require.Equal(t, 3, trainer.Generation)
	require.GreaterOrEqual(t, trainer.NumTeams(), 5)
}
