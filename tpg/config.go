package tpg

import (
	"errors"
	"fmt"
)

// ProgramParams controls construction and structural mutation of programs.
type ProgramParams struct {
	// IDCounter issues program ids; advanced on every construction.
	IDCounter int

	// MaxProgramLength is the instruction count of freshly generated programs.
	MaxProgramLength int

	// NbOperations bounds the op field of generated instructions.
	NbOperations int64

	// InputSize bounds the src field; the state vector handed to Agent.Act
	// must be at least this long.
	InputSize int64

	// NbDestinations bounds the dst field.
	NbDestinations int64

	// Per-operator probabilities for one mutation cycle.
	PInstDel  float64
	PInstMut  float64
	PInstSwap float64
	PInstAdd  float64
}

// NextID returns a fresh program id.
func (p *ProgramParams) NextID() int {
	id := p.IDCounter
	p.IDCounter++
	return id
}

// Validate ensures the program parameters are safe to use. A parameter set
// whose four operator probabilities are all zero is rejected: program
// mutation loops until the instruction list changes, so such a
// configuration would never terminate.
func (p ProgramParams) Validate() error {
	if p.MaxProgramLength < 1 {
		return errors.New("max program length must be >= 1")
	}
	if p.NbOperations < 1 {
		return errors.New("number of operations must be >= 1")
	}
	if p.InputSize < 1 {
		return errors.New("input size must be >= 1")
	}
	if p.NbDestinations < 1 {
		return errors.New("number of destinations must be >= 1")
	}
	for _, pr := range []struct {
		name  string
		value float64
	}{
		{"p_inst_del", p.PInstDel},
		{"p_inst_mut", p.PInstMut},
		{"p_inst_swap", p.PInstSwap},
		{"p_inst_add", p.PInstAdd},
	} {
		if pr.value < 0 || pr.value > 1 {
			return fmt.Errorf("%s must be within [0,1]", pr.name)
		}
	}
	if p.PInstDel == 0 && p.PInstMut == 0 && p.PInstSwap == 0 && p.PInstAdd == 0 {
		return errors.New("at least one instruction mutation probability must be > 0")
	}
	return nil
}

// ActionParams holds the id counter for actions.
type ActionParams struct {
	IDCounter int
}

// NextID returns a fresh action id.
func (p *ActionParams) NextID() int {
	id := p.IDCounter
	p.IDCounter++
	return id
}

// LearnerParams controls learner construction and mutation.
type LearnerParams struct {
	IDCounter int

	// PProgMut is the probability of mutating the learner's program.
	PProgMut float64

	// PActMut is the probability of mutating the learner's action.
	PActMut float64

	Program ProgramParams
	Action  ActionParams
}

// NextID returns a fresh learner id.
func (p *LearnerParams) NextID() int {
	id := p.IDCounter
	p.IDCounter++
	return id
}

// Validate ensures the learner parameters are safe to use. Learner mutation
// loops until at least one sub-mutation applies, so both probabilities zero
// is rejected for the same reason as in ProgramParams.
func (p LearnerParams) Validate() error {
	if p.PProgMut < 0 || p.PProgMut > 1 {
		return errors.New("p_prog_mut must be within [0,1]")
	}
	if p.PActMut < 0 || p.PActMut > 1 {
		return errors.New("p_act_mut must be within [0,1]")
	}
	if p.PProgMut == 0 && p.PActMut == 0 {
		return errors.New("p_prog_mut and p_act_mut cannot both be zero")
	}
	return p.Program.Validate()
}

// TeamParams controls team construction and the learner-set variation
// operators.
type TeamParams struct {
	IDCounter int

	// PLrnAdd, PLrnDel and PLrnMut drive the three variation operators.
	PLrnAdd float64
	PLrnDel float64
	PLrnMut float64

	// PActAtom is the probability that a mutating action becomes atomic.
	PActAtom float64

	// Rampant repetition controls. Reserved: parsed and validated, a single
	// variation pass runs per child regardless.
	RampantGen int
	RampantMin int
	RampantMax int

	Learner LearnerParams
}

// NextID returns a fresh team id.
func (p *TeamParams) NextID() int {
	id := p.IDCounter
	p.IDCounter++
	return id
}

// Validate ensures the team parameters are safe to use.
func (p TeamParams) Validate() error {
	for _, pr := range []struct {
		name  string
		value float64
	}{
		{"p_lrn_add", p.PLrnAdd},
		{"p_lrn_del", p.PLrnDel},
		{"p_lrn_mut", p.PLrnMut},
	} {
		if pr.value < 0 || pr.value >= 1 {
			return fmt.Errorf("%s must be within [0,1)", pr.name)
		}
	}
	if p.PActAtom < 0 || p.PActAtom > 1 {
		return errors.New("p_act_atom must be within [0,1]")
	}
	if p.RampantGen != 0 && p.RampantMin > p.RampantMax {
		return errors.New("rampant_min cannot exceed rampant_max")
	}
	return p.Learner.Validate()
}

// TrainerParams aggregates the population-level parameters.
type TrainerParams struct {
	IDCounter int

	// MaxLearnerInTeam caps team membership during initialization and the
	// add operator.
	MaxLearnerInTeam int

	// MaxTeamInPopulation is the number of tracked teams (root and
	// non-root) that each generation refills the population to.
	MaxTeamInPopulation int

	// Generation is the starting generation counter.
	Generation int

	Team TeamParams
}

// Validate ensures the trainer parameters are safe to use.
func (p TrainerParams) Validate() error {
	if p.MaxLearnerInTeam < 3 {
		return errors.New("max learners per team must be >= 3")
	}
	if p.MaxTeamInPopulation < 1 {
		return errors.New("team population size must be >= 1")
	}
	return p.Team.Validate()
}

// Params is the root of the configuration tree consumed by the engine.
type Params struct {
	Trainer TrainerParams
}

// Validate ensures the whole parameter tree is safe to use.
func (p Params) Validate() error {
	return p.Trainer.Validate()
}

// DefaultParams returns a conservative parameter set suitable for smoke
// tests and the demo CLI.
func DefaultParams() Params {
	return Params{
		Trainer: TrainerParams{
			MaxLearnerInTeam:    5,
			MaxTeamInPopulation: 5,
			Team: TeamParams{
				PLrnAdd:  0.3,
				PLrnDel:  0.3,
				PLrnMut:  0.3,
				PActAtom: 0.5,
				Learner: LearnerParams{
					PProgMut: 0.5,
					PActMut:  0.5,
					Program: ProgramParams{
						MaxProgramLength: 5,
						NbOperations:     5,
						InputSize:        4,
						NbDestinations:   5,
						PInstDel:         0.25,
						PInstMut:         0.25,
						PInstSwap:        0.25,
						PInstAdd:         0.25,
					},
				},
			},
		},
	}
}
