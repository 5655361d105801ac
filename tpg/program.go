package tpg

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"
)

// Instruction is one four-field register-machine instruction. Mode selects
// the source bank (1 reads the input vector, anything else the registers),
// Op the operation, Src the source index and Dst the destination register.
// Src and Dst are reduced modulo the bank length at execution time.
type Instruction struct {
	Mode int64
	Op   int64
	Src  int64
	Dst  int64
}

// Program is an ordered list of instructions executed over an input vector
// and a register vector.
type Program struct {
	ID           int
	Instructions []Instruction
}

// NewProgram builds a program. With a non-nil heritage the instruction list
// is copied from it; otherwise MaxProgramLength random instructions are
// generated with fields drawn uniformly from their valid ranges.
func NewProgram(heritage []Instruction, params *ProgramParams, rng *Rand) Program {
	p := Program{ID: params.NextID()}
	if heritage != nil {
		p.Instructions = slices.Clone(heritage)
		return p
	}
	for i := 0; i < params.MaxProgramLength; i++ {
		p.Instructions = append(p.Instructions, randomInstruction(params, rng))
	}
	return p
}

func randomInstruction(params *ProgramParams, rng *Rand) Instruction {
	return Instruction{
		Mode: rng.Int63n(2),
		Op:   rng.Int63n(params.NbOperations),
		Src:  rng.Int63n(params.InputSize),
		Dst:  rng.Int63n(params.NbDestinations),
	}
}

// Clone returns a copy of the program sharing nothing with the original.
// The id is carried over; clones name the same genetic material.
func (p Program) Clone() Program {
	return Program{ID: p.ID, Instructions: slices.Clone(p.Instructions)}
}

// Reset clears the instruction list.
func (p *Program) Reset() {
	p.Instructions = p.Instructions[:0]
}

// Append pushes one instruction onto the program.
func (p *Program) Append(inst Instruction) {
	p.Instructions = append(p.Instructions, inst)
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Equal reports whether two programs hold the same instruction list.
func (p *Program) Equal(other *Program) bool {
	return slices.Equal(p.Instructions, other.Instructions)
}

// Execute runs the program over input, updating regs in place. Source and
// destination indices are reduced modulo the corresponding vector length;
// arithmetic wraps in two's complement. An op outside [0,4] is a no-op.
func (p *Program) Execute(input []int64, regs []int64) {
	inputLen := int64(len(input))
	regsLen := int64(len(regs))

	for _, inst := range p.Instructions {
		var s int64
		if inst.Mode == 1 {
			s = input[inst.Src%inputLen]
		} else {
			s = regs[inst.Src%regsLen]
		}

		x := regs[inst.Dst%regsLen]
		d := inst.Dst % regsLen

		switch inst.Op {
		case 0:
			regs[d] = x + s
		case 1:
			regs[d] = x - s
		case 2:
			regs[d] = x * 2
		case 3:
			regs[d] = x / 2
		case 4:
			if x < s {
				regs[d] = -x
			}
		}
	}
}

// Mutate applies one variation cycle and repeats it until the instruction
// list differs from the original. Within a cycle each operator fires
// independently with its configured probability: delete (only above length
// one), point-mutate one field, swap two distinct instructions, append a
// fresh one. Callers must hold at least one operator probability above
// zero; Validate enforces this.
func (p *Program) Mutate(params *ProgramParams, rng *Rand, logger *log.Logger) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	original := slices.Clone(p.Instructions)

	for slices.Equal(p.Instructions, original) {
		if len(p.Instructions) > 1 && rng.Flip(params.PInstDel) {
			logger.Debug("instruction delete", "program", p.ID)
			i := rng.Intn(len(p.Instructions))
			p.Instructions = slices.Delete(p.Instructions, i, i+1)
		}

		if rng.Flip(params.PInstMut) {
			logger.Debug("instruction mutate", "program", p.ID)
			i := rng.Intn(len(p.Instructions))
			switch rng.Intn(4) {
			case 0:
				p.Instructions[i].Mode = rng.Int63n(2)
			case 1:
				p.Instructions[i].Op = rng.Int63n(params.NbOperations)
			case 2:
				p.Instructions[i].Dst = rng.Int63n(params.NbDestinations)
			case 3:
				p.Instructions[i].Src = rng.Int63n(params.InputSize)
			}
		}

		if len(p.Instructions) > 1 && rng.Flip(params.PInstSwap) {
			logger.Debug("instruction swap", "program", p.ID)
			i := rng.Intn(len(p.Instructions))
			j := rng.Intn(len(p.Instructions))
			for j == i {
				j = rng.Intn(len(p.Instructions))
			}
			p.Instructions[i], p.Instructions[j] = p.Instructions[j], p.Instructions[i]
		}

		if rng.Flip(params.PInstAdd) {
			logger.Debug("instruction add", "program", p.ID)
			p.Instructions = append(p.Instructions, randomInstruction(params, rng))
		}
	}
}
