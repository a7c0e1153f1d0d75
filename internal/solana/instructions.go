package solana

import "strconv"

// Instructions is an ordered list of instructions, each owning its inner instructions.
type Instructions []Instruction

// Len is the total number of instructions including every nested inner instruction.
func (ins Instructions) Len() int {
	n := 0
	for _, i := range ins {
		n += i.Len()
	}
	return n
}

// Concat returns a new list with the instructions of both lists.
func (ins Instructions) Concat(other Instructions) Instructions {
	out := make(Instructions, 0, len(ins)+len(other))
	out = append(out, ins...)
	return append(out, other...)
}

// SetIDs assigns hierarchical ids top-down: "0", "1", ... for the list itself and
// "<parent>.<j>" for the j-th inner instruction of an instruction with id parent.
func (ins Instructions) SetIDs(parent string) Instructions {
	for j := range ins {
		id := strconv.Itoa(j)
		if parent != "" {
			id = parent + "." + id
		}
		ins[j].ID = id
		ins[j].Inner.SetIDs(id)
	}
	return ins
}

// IDs returns the ids of the top-level instructions.
func (ins Instructions) IDs() []string {
	ids := make([]string, len(ins))
	for j, i := range ins {
		ids[j] = i.ID
	}
	return ids
}

// Programs returns the program accounts across the whole tree.
func (ins Instructions) Programs() AccountSet {
	s := AccountSet{}
	for _, i := range ins {
		for k, a := range i.Programs() {
			s[k] = a
		}
	}
	return s
}

// Flatten returns every outer and inner instruction as a top-level entry in depth-first pre-order.
// Ids are kept.
func (ins Instructions) Flatten() Instructions {
	out := make(Instructions, 0, ins.Len())
	for _, i := range ins {
		out = append(out, i.Flatten()...)
	}
	return out
}

// Filter keeps instructions of programName and, if not empty, instructionType. An instruction that
// does not match itself but has a matching descendant is kept as a wrapper of its pruned inner
// instructions. With flatten the tree is flattened first, so only matching instructions remain.
func (ins Instructions) Filter(programName, instructionType string, flatten bool) Instructions {
	src := ins
	if flatten {
		src = ins.Flatten()
	}

	var out Instructions
	for _, i := range src {
		if f, ok := i.filter(programName, instructionType); ok {
			out = append(out, f)
		}
	}
	return out
}
