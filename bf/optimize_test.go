package bf

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nalgeon/be"
)

func optimizeSource(t *testing.T, source string) []Instruction {
	t.Helper()
	return mustParse(t, source, true).Instructions
}

func assertInstructions(t *testing.T, got []Instruction, expected ...Instruction) {
	t.Helper()
	if diff := cmp.Diff(expected, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
}

func TestOptimizeCoalescesAdds(t *testing.T) {
	tests := []struct {
		source   string
		expected []Instruction
	}{
		{"+", []Instruction{Add(1)}},
		{"+++", []Instruction{Add(3)}},
		{"---", []Instruction{Add(-3)}},
		{"++-", []Instruction{Add(1)}},
		{"+-", nil},
		{"+-+-", nil},
		{strings.Repeat("+", 300), []Instruction{Add(300)}},
	}

	for _, test := range tests {
		t.Run(test.source, func(t *testing.T) {
			assertInstructions(t, optimizeSource(t, test.source), test.expected...)
		})
	}
}

func TestOptimizeCoalescesMoves(t *testing.T) {
	assertInstructions(t, optimizeSource(t, ">>>"), Move(3))
	assertInstructions(t, optimizeSource(t, "<<"), Move(-2))
	assertInstructions(t, optimizeSource(t, "><"), nil...)
	assertInstructions(t, optimizeSource(t, "+>>.<<"), Add(1), Move(2), Output(), Move(-2))
}

func TestOptimizeDoesNotMergeAcrossOtherKinds(t *testing.T) {
	assertInstructions(t, optimizeSource(t, "+.+"), Add(1), Output(), Add(1))
	assertInstructions(t, optimizeSource(t, ">,>"), Move(1), Input(), Move(1))
	assertInstructions(t, optimizeSource(t, "+>+"), Add(1), Move(1), Add(1))
}

func TestOptimizeMergesRunsExposedByCancellation(t *testing.T) {
	assertInstructions(t, optimizeSource(t, "+><+"), Add(2))
	assertInstructions(t, optimizeSource(t, ">+-<"), nil...)
	assertInstructions(t, optimizeSource(t, "+>+-<-"), nil...)
	assertInstructions(t, optimizeSource(t, ".>+-<."), Output(), Output())
}

func TestOptimizeCoalescingCompleteness(t *testing.T) {
	// Arbitrary runs built directly, not via the parser, so deltas other than
	// ±1 are exercised.
	runs := [][]int64{
		{5},
		{5, -5},
		{7, 3, -2},
		{-1, -1, -1, -1},
		{1000000, -999999},
	}

	for _, run := range runs {
		var adds, moves []Instruction
		var sum int64
		for _, d := range run {
			adds = append(adds, Add(d))
			moves = append(moves, Move(d))
			sum += d
		}

		input := append([]Instruction{Output()}, adds...)
		input = append(input, Input())

		expected := []Instruction{Output()}
		if sum != 0 {
			expected = append(expected, Add(sum))
		}
		expected = append(expected, Input())
		assertInstructions(t, Optimize(input), expected...)

		var expectedMoves []Instruction
		if sum != 0 {
			expectedMoves = append(expectedMoves, Move(sum))
		}
		assertInstructions(t, Optimize(moves), expectedMoves...)
	}
}

func TestOptimizeSimpleClear(t *testing.T) {
	assertInstructions(t, optimizeSource(t, "[-]"), Set(0))
	assertInstructions(t, optimizeSource(t, "[+]"), Set(0))
	assertInstructions(t, optimizeSource(t, "+++[-]>"), Add(3), Set(0), Move(1))
	assertInstructions(t, optimizeSource(t, "[[[-]]]"), Loop(Loop(Set(0))))
	assertInstructions(t, optimizeSource(t, ">[<[+]>-]"), Move(1), Loop(Move(-1), Set(0), Move(1), Add(-1)))
}

func TestOptimizeSimpleClearAfterCoalescing(t *testing.T) {
	assertInstructions(t, optimizeSource(t, "[+-+]"), Set(0))
	assertInstructions(t, optimizeSource(t, "[--+]"), Set(0))
}

func TestOptimizeKeepsOtherLoops(t *testing.T) {
	assertInstructions(t, optimizeSource(t, "[--]"), Loop(Add(-2)))
	assertInstructions(t, optimizeSource(t, "[>]"), Loop(Move(1)))
	assertInstructions(t, optimizeSource(t, "[]"), Loop())
	assertInstructions(t, optimizeSource(t, "[+-]"), Loop())
	assertInstructions(t, optimizeSource(t, "[.]"), Loop(Output()))
	assertInstructions(t, Optimize([]Instruction{Loop(Add(2))}), Loop(Add(2)))
}

func TestOptimizeEndToEndExample(t *testing.T) {
	assertInstructions(t, optimizeSource(t, "++[>+<-]"),
		Add(2),
		Loop(Move(1), Add(1), Move(-1), Add(-1)),
	)
}

func TestOptimizeRecursesIntoLoops(t *testing.T) {
	assertInstructions(t, optimizeSource(t, "[++>>[--<<]]"),
		Loop(Add(2), Move(2), Loop(Add(-2), Move(-2))),
	)
}

func TestOptimizeSetIsNotCoalesced(t *testing.T) {
	assertInstructions(t, optimizeSource(t, "[-][-]"), Set(0), Set(0))
	assertInstructions(t, optimizeSource(t, "[-]++"), Set(0), Add(2))
}

func TestProgramStatsShrink(t *testing.T) {
	raw := mustParse(t, "+++[>++<-]", false)
	be.Equal(t, raw.Stats(), ProgramStats{Nodes: 9, Loops: 1, MaxDepth: 1})

	optimized := raw.Optimize()
	be.Equal(t, optimized.Stats(), ProgramStats{Nodes: 6, Loops: 1, MaxDepth: 1})
}

// randomSource builds a balanced program from the eight symbols plus some
// comment characters.
func randomSource(rng *rand.Rand, length int) string {
	const alphabet = "+-><.,[]x "
	var sb strings.Builder
	open := 0
	for i := 0; i < length; i++ {
		c := alphabet[rng.Intn(len(alphabet))]
		if c == ']' {
			if open == 0 {
				continue
			}
			open--
		}
		if c == '[' {
			open++
		}
		sb.WriteByte(c)
	}
	sb.WriteString(strings.Repeat("]", open))
	return sb.String()
}

func assertOptimizedInvariants(t *testing.T, instrs []Instruction) {
	t.Helper()
	for i, instr := range instrs {
		switch instr.Kind {
		case InstrAdd, InstrMove:
			if instr.Value == 0 {
				t.Errorf("zero %s survived at %d", instr.Kind, i)
			}
			if i > 0 && instrs[i-1].Kind == instr.Kind {
				t.Errorf("adjacent %s at %d", instr.Kind, i)
			}
		case InstrLoop:
			if isSimpleClear(instr.Body) {
				t.Errorf("simple clear loop survived at %d", i)
			}
			assertOptimizedInvariants(t, instr.Body)
		}
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		source := randomSource(rng, rng.Intn(80))

		once := mustParse(t, source, true)
		twice := mustParse(t, source, true).Optimize()

		if diff := cmp.Diff(once, twice, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("optimizing %q twice changed the tree (-once +twice):\n%s", source, diff)
		}
		assertOptimizedInvariants(t, once.Instructions)
	}
}
