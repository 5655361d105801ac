// Package params loads the engine parameter tree from an HCL file. The
// recognized option names follow the trainer/team/learner/program/action
// nesting of the engine configuration.
package params

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/tangled/tpg"
)

type fileConfig struct {
	Trainer *trainerBlock `hcl:"trainer,block"`
}

type trainerBlock struct {
	IDCounterTrainer    int        `hcl:"id_counter_trainer,optional"`
	MaxLearnerInTeam    int        `hcl:"max_learner_in_team,optional"`
	MaxTeamInPopulation int        `hcl:"max_team_in_population,optional"`
	Generation          int        `hcl:"generation,optional"`
	Team                *teamBlock `hcl:"team,block"`
}

type teamBlock struct {
	IDCounterTeam int           `hcl:"id_counter_team,optional"`
	PLrnAdd       float64       `hcl:"p_lrn_add,optional"`
	PLrnDel       float64       `hcl:"p_lrn_del,optional"`
	PLrnMut       float64       `hcl:"p_lrn_mut,optional"`
	PActAtom      float64       `hcl:"p_act_atom,optional"`
	RampantGen    int           `hcl:"rampant_gen,optional"`
	RampantMin    int           `hcl:"rampant_min,optional"`
	RampantMax    int           `hcl:"rampant_max,optional"`
	Learner       *learnerBlock `hcl:"learner,block"`
}

type learnerBlock struct {
	IDCounterLearner int           `hcl:"id_counter_learner,optional"`
	PProgMut         float64       `hcl:"p_prog_mut,optional"`
	PActMut          float64       `hcl:"p_act_mut,optional"`
	Program          *programBlock `hcl:"program,block"`
	Action           *actionBlock  `hcl:"action,block"`
}

type programBlock struct {
	IDCounterProgram int     `hcl:"id_counter_program,optional"`
	MaxProgramLength int     `hcl:"max_program_length,optional"`
	NbOperations     int64   `hcl:"nb_operations,optional"`
	InputSize        int64   `hcl:"input_size,optional"`
	NbDestinations   int64   `hcl:"nb_destinations,optional"`
	PInstDel         float64 `hcl:"p_inst_del,optional"`
	PInstMut         float64 `hcl:"p_inst_mut,optional"`
	PInstSwap        float64 `hcl:"p_inst_swap,optional"`
	PInstAdd         float64 `hcl:"p_inst_add,optional"`
}

type actionBlock struct {
	IDCounterAction int `hcl:"id_counter_action,optional"`
}

// Load reads the parameter file at path and returns a validated tree. A
// missing file returns the defaults. Probabilities inside a present block
// are taken as written; structural sizes fall back to the defaults when
// left at zero.
func Load(path string) (tpg.Params, error) {
	p := tpg.DefaultParams()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return p, fmt.Errorf("failed to parse params file: %s", diags.Error())
	}

	var cfg fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return p, fmt.Errorf("failed to decode params file: %s", diags.Error())
	}

	apply(&p, &cfg)

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid params in %s: %w", path, err)
	}
	return p, nil
}

func apply(p *tpg.Params, cfg *fileConfig) {
	tb := cfg.Trainer
	if tb == nil {
		return
	}
	p.Trainer.IDCounter = tb.IDCounterTrainer
	if tb.MaxLearnerInTeam != 0 {
		p.Trainer.MaxLearnerInTeam = tb.MaxLearnerInTeam
	}
	if tb.MaxTeamInPopulation != 0 {
		p.Trainer.MaxTeamInPopulation = tb.MaxTeamInPopulation
	}
	p.Trainer.Generation = tb.Generation

	if tb.Team == nil {
		return
	}
	team := tb.Team
	p.Trainer.Team.IDCounter = team.IDCounterTeam
	p.Trainer.Team.PLrnAdd = team.PLrnAdd
	p.Trainer.Team.PLrnDel = team.PLrnDel
	p.Trainer.Team.PLrnMut = team.PLrnMut
	p.Trainer.Team.PActAtom = team.PActAtom
	p.Trainer.Team.RampantGen = team.RampantGen
	p.Trainer.Team.RampantMin = team.RampantMin
	p.Trainer.Team.RampantMax = team.RampantMax

	if team.Learner == nil {
		return
	}
	learner := team.Learner
	p.Trainer.Team.Learner.IDCounter = learner.IDCounterLearner
	p.Trainer.Team.Learner.PProgMut = learner.PProgMut
	p.Trainer.Team.Learner.PActMut = learner.PActMut

	if learner.Action != nil {
		p.Trainer.Team.Learner.Action.IDCounter = learner.Action.IDCounterAction
	}

	if learner.Program == nil {
		return
	}
	prog := learner.Program
	p.Trainer.Team.Learner.Program.IDCounter = prog.IDCounterProgram
	if prog.MaxProgramLength != 0 {
		p.Trainer.Team.Learner.Program.MaxProgramLength = prog.MaxProgramLength
	}
	if prog.NbOperations != 0 {
		p.Trainer.Team.Learner.Program.NbOperations = prog.NbOperations
	}
	if prog.InputSize != 0 {
		p.Trainer.Team.Learner.Program.InputSize = prog.InputSize
	}
	if prog.NbDestinations != 0 {
		p.Trainer.Team.Learner.Program.NbDestinations = prog.NbDestinations
	}
	p.Trainer.Team.Learner.Program.PInstDel = prog.PInstDel
	p.Trainer.Team.Learner.Program.PInstMut = prog.PInstMut
	p.Trainer.Team.Learner.Program.PInstSwap = prog.PInstSwap
	p.Trainer.Team.Learner.Program.PInstAdd = prog.PInstAdd
}
