package bf

// Optimize rewrites instrs into an equivalent sequence with fewer nodes.
//
// Runs of adjacent Adds (and of adjacent Moves) are summed into a single
// instruction, or dropped if they cancel out. A loop whose body is exactly
// Add(1) or Add(-1) becomes Set(0). Every other loop keeps its shape and has
// its body optimized recursively.
//
// The result never holds two adjacent Adds or two adjacent Moves, and never a
// zero Add or Move, so optimizing it again changes nothing. Optimize consumes
// instrs; callers must not use it afterwards.
func Optimize(instrs []Instruction) []Instruction {
	result := make([]Instruction, 0, len(instrs))

	i := 0
	for i < len(instrs) {
		instr := instrs[i]

		switch instr.Kind {
		case InstrAdd, InstrMove:
			total := instr.Value
			j := i + 1
			for j < len(instrs) && instrs[j].Kind == instr.Kind {
				total += instrs[j].Value
				j++
			}
			result = appendRun(result, instr.Kind, total)
			i = j

		case InstrLoop:
			result = append(result, optimizeLoop(instr))
			i++

		default:
			result = append(result, instr)
			i++
		}
	}

	return result
}

// appendRun appends a coalesced Add or Move run. Dropping a zero run can make
// the run before it adjacent to this one ("+><+"), so the new run is folded
// into the last emitted instruction when their kinds match.
func appendRun(result []Instruction, kind InstrKind, total int64) []Instruction {
	if n := len(result); n > 0 && result[n-1].Kind == kind {
		total += result[n-1].Value
		result = result[:n-1]
	}
	if total == 0 {
		return result
	}
	return append(result, Instruction{Kind: kind, Value: total})
}

func optimizeLoop(loop Instruction) Instruction {
	if isSimpleClear(loop.Body) {
		return Set(0)
	}

	body := Optimize(loop.Body)
	// "[+-+]" only reveals itself as a clear once its body is coalesced.
	if isSimpleClear(body) {
		return Set(0)
	}
	return Loop(body...)
}

// isSimpleClear reports whether body is the body of "[-]" or "[+]". Either
// loop steps the current cell until it reaches zero.
func isSimpleClear(body []Instruction) bool {
	if len(body) != 1 {
		return false
	}
	return body[0].Kind == InstrAdd && (body[0].Value == 1 || body[0].Value == -1)
}
