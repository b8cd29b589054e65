package bf

// InstrKind tags which variant an Instruction holds.
type InstrKind string

const (
	InstrAdd    InstrKind = "InstrAdd"
	InstrMove   InstrKind = "InstrMove"
	InstrInput  InstrKind = "InstrInput"
	InstrOutput InstrKind = "InstrOutput"
	InstrLoop   InstrKind = "InstrLoop"
	InstrSet    InstrKind = "InstrSet"
)

// Instruction is a node in the instruction tree.
//
// Only the fields relevant to Kind are meaningful:
//
//	InstrAdd:    Value is the delta added to the current cell
//	InstrMove:   Value is the cursor offset
//	InstrSet:    Value is assigned to the current cell
//	InstrLoop:   Body repeats while the current cell is nonzero
//	InstrInput, InstrOutput: no payload
//
// Values are stored as written; wrapping to the cell width or tape length
// happens in the backend.
type Instruction struct {
	Kind  InstrKind
	Value int64
	Body  []Instruction
}

func Add(delta int64) Instruction {
	return Instruction{Kind: InstrAdd, Value: delta}
}

func Move(offset int64) Instruction {
	return Instruction{Kind: InstrMove, Value: offset}
}

func Input() Instruction {
	return Instruction{Kind: InstrInput}
}

func Output() Instruction {
	return Instruction{Kind: InstrOutput}
}

// Loop wraps body. A nil body is normalized to an empty one so that "[]"
// and Loop() compare equal.
func Loop(body ...Instruction) Instruction {
	if body == nil {
		body = []Instruction{}
	}
	return Instruction{Kind: InstrLoop, Body: body}
}

func Set(value int64) Instruction {
	return Instruction{Kind: InstrSet, Value: value}
}

// Program is the root of the instruction tree.
type Program struct {
	Instructions []Instruction
}

// Optimize returns the optimized program. p should not be used afterwards.
func (p Program) Optimize() Program {
	return Program{Instructions: Optimize(p.Instructions)}
}

// ProgramStats summarizes the shape of a program.
type ProgramStats struct {
	Nodes    int // every instruction, including loops and their bodies
	Loops    int
	MaxDepth int // loop nesting depth; 0 for a loop-free program
}

func (p Program) Stats() ProgramStats {
	var stats ProgramStats
	collectStats(p.Instructions, 0, &stats)
	return stats
}

func collectStats(instrs []Instruction, depth int, stats *ProgramStats) {
	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}
	for _, instr := range instrs {
		stats.Nodes++
		if instr.Kind == InstrLoop {
			stats.Loops++
			collectStats(instr.Body, depth+1, stats)
		}
	}
}
