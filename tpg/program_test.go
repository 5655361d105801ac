package tpg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/tangled/tpg"
)

func progParams() *tpg.ProgramParams {
	return &tpg.ProgramParams{
		IDCounter:        47,
		MaxProgramLength: 5,
		NbOperations:     5,
		InputSize:        3,
		NbDestinations:   3,
	}
}

func TestProgramConstruction(t *testing.T) {
	params := progParams()
	rng := tpg.NewRand(1)

	p1 := tpg.NewProgram(nil, params, rng)
	require.Equal(t, 47, p1.ID)
	require.Equal(t, 5, p1.Len())
	for _, inst := range p1.Instructions {
		require.GreaterOrEqual(t, inst.Mode, int64(0))
		require.Less(t, inst.Mode, int64(2))
		require.Less(t, inst.Op, params.NbOperations)
		require.Less(t, inst.Src, params.InputSize)
		require.Less(t, inst.Dst, params.NbDestinations)
	}

	p2 := tpg.NewProgram(nil, params, rng)
	require.Equal(t, 48, p2.ID)

	p1.Reset()
	require.Equal(t, 0, p1.Len())
	p1.Append(tpg.Instruction{Mode: 1})
	require.Equal(t, 1, p1.Len())
}

func TestProgramExecuteAddFromInput(t *testing.T) {
	p := tpg.Program{Instructions: []tpg.Instruction{{Mode: 1, Op: 0, Src: 0, Dst: 0}}}

	input := []int64{1, 2, 3, 4, 5}
	regs := []int64{6, 7, 8, 9, 10}
	p.Execute(input, regs)

	require.Equal(t, []int64{7, 7, 8, 9, 10}, regs)
}

func TestProgramExecuteOps(t *testing.T) {
	tests := []struct {
		name string
		inst tpg.Instruction
		want []int64
	}{
		{"subtract", tpg.Instruction{Mode: 1, Op: 1, Src: 1, Dst: 0}, []int64{4, 7, 8}},
		{"double", tpg.Instruction{Mode: 1, Op: 2, Src: 0, Dst: 1}, []int64{6, 14, 8}},
		{"halve", tpg.Instruction{Mode: 1, Op: 3, Src: 0, Dst: 2}, []int64{6, 7, 4}},
		{"negate when less", tpg.Instruction{Mode: 1, Op: 4, Src: 2, Dst: 0}, []int64{-6, 7, 8}},
		{"negate skipped", tpg.Instruction{Mode: 1, Op: 4, Src: 0, Dst: 2}, []int64{6, 7, 8}},
		{"register source", tpg.Instruction{Mode: 0, Op: 0, Src: 1, Dst: 0}, []int64{13, 7, 8}},
		{"unknown op", tpg.Instruction{Mode: 1, Op: 9, Src: 0, Dst: 0}, []int64{6, 7, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tpg.Program{Instructions: []tpg.Instruction{tt.inst}}
			regs := []int64{6, 7, 8}
			p.Execute([]int64{1, 2, 30}, regs)
			require.Equal(t, tt.want, regs)
		})
	}
}

func TestProgramExecuteHalveTruncatesTowardZero(t *testing.T) {
	p := tpg.Program{Instructions: []tpg.Instruction{{Mode: 0, Op: 3, Src: 0, Dst: 0}}}
	regs := []int64{-7}
	p.Execute([]int64{0}, regs)
	require.Equal(t, []int64{-3}, regs)
}

func TestProgramExecuteIndexModulo(t *testing.T) {
	// src 7 over a 5-wide input reads input[2]; dst 4 over 3 registers
	// lands on register 1.
	p := tpg.Program{Instructions: []tpg.Instruction{{Mode: 1, Op: 0, Src: 7, Dst: 4}}}
	regs := []int64{0, 10, 0}
	p.Execute([]int64{1, 2, 3, 4, 5}, regs)
	require.Equal(t, []int64{0, 13, 0}, regs)
}

func TestProgramMutateDelete(t *testing.T) {
	params := progParams()
	params.PInstDel = 0.25

	heritage := []tpg.Instruction{
		{Mode: 1, Op: 0, Src: 0, Dst: 0},
		{Mode: 0, Op: 0, Src: 0, Dst: 0},
	}
	p := tpg.NewProgram(heritage, params, nil)
	p.Mutate(params, tpg.NewRand(3), nil)

	require.Equal(t, 1, p.Len())
}

func TestProgramMutateAdd(t *testing.T) {
	params := progParams()
	params.PInstAdd = 0.25

	heritage := []tpg.Instruction{
		{Mode: 1, Op: 0, Src: 0, Dst: 0},
		{Mode: 0, Op: 0, Src: 0, Dst: 0},
	}
	p := tpg.NewProgram(heritage, params, nil)
	p.Mutate(params, tpg.NewRand(3), nil)

	require.Equal(t, 3, p.Len())
}

func TestProgramMutateSwap(t *testing.T) {
	params := progParams()
	params.PInstSwap = 0.25

	i1 := tpg.Instruction{Mode: 1, Op: 0, Src: 0, Dst: 0}
	i2 := tpg.Instruction{Mode: 0, Op: 1, Src: 1, Dst: 1}
	p := tpg.NewProgram([]tpg.Instruction{i1, i2}, params, nil)
	p.Mutate(params, tpg.NewRand(3), nil)

	require.Equal(t, 2, p.Len())
	require.Equal(t, i2, p.Instructions[0])
	require.Equal(t, i1, p.Instructions[1])
}

func TestProgramMutatePointKeepsLength(t *testing.T) {
	params := progParams()
	params.PInstMut = 0.25

	heritage := []tpg.Instruction{
		{Mode: 1, Op: 0, Src: 0, Dst: 0},
		{Mode: 0, Op: 0, Src: 0, Dst: 0},
	}
	p := tpg.NewProgram(heritage, params, nil)
	original := p.Clone()
	p.Mutate(params, tpg.NewRand(3), nil)

	require.Equal(t, 2, p.Len())
	require.False(t, p.Equal(&original))
}

func TestProgramMutateDeterministic(t *testing.T) {
	params1 := progParams()
	params1.PInstMut = 0.5
	params2 := progParams()
	params2.PInstMut = 0.5

	p1 := tpg.NewProgram(nil, params1, tpg.NewRand(11))
	p2 := tpg.NewProgram(nil, params2, tpg.NewRand(11))
	require.True(t, p1.Equal(&p2))

	p1.Mutate(params1, tpg.NewRand(12), nil)
	p2.Mutate(params2, tpg.NewRand(12), nil)
	require.True(t, p1.Equal(&p2))
}

// A parameter set with every operator probability at zero would make
// Mutate loop forever, so validation must reject it; the fixpoint
// behavior itself is untestable by design.
func TestProgramParamsRejectAllZeroOperators(t *testing.T) {
	params := progParams()
	require.Error(t, params.Validate())

	params.PInstAdd = 0.25
	require.NoError(t, params.Validate())

	params.PInstDel = 1.5
	require.Error(t, params.Validate())
}
