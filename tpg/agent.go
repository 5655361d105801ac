package tpg

// Agent is a thin handle naming a root team.
type Agent struct {
	team int
}

// NewAgent wraps the team at the given arena index.
func NewAgent(team int) *Agent {
	return &Agent{team: team}
}

// TeamIndex returns the wrapped team's arena index.
func (a *Agent) TeamIndex() int {
	return a.team
}

// Act runs one inference descent from the root team and returns the
// emitted action code.
func (a *Agent) Act(b *Brain, state []int64) int64 {
	visited := make([]int, 0, 8)
	return b.Teams[a.team].Act(b, state, &visited)
}

// Reward records the score for the task on the root team.
func (a *Agent) Reward(b *Brain, score int64, task string) {
	b.Teams[a.team].SetOutcomes(task, score)
}

// TaskDone reports whether the root team has an outcome for the task.
func (a *Agent) TaskDone(b *Brain, task string) bool {
	return b.Teams[a.team].HasOutcome(task)
}

// ZeroRegisters resets the registers of the root team's learners.
func (a *Agent) ZeroRegisters(b *Brain) {
	b.Teams[a.team].ZeroRegisters(b)
}
