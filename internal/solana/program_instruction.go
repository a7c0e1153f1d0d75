package solana

// ProgramInstruction is a known (program name, instruction type) signature. An empty
// InstructionType matches any instruction of the program.
type ProgramInstruction struct {
	ProgramName     string
	InstructionType string
}

var (
	SystemProgram       = ProgramInstruction{ProgramName: "system"}
	SystemTransfer      = ProgramInstruction{ProgramName: "system", InstructionType: "transfer"}
	SystemAllocate      = ProgramInstruction{ProgramName: "system", InstructionType: "allocate"}
	SystemAssign        = ProgramInstruction{ProgramName: "system", InstructionType: "assign"}
	SystemCreateAccount = ProgramInstruction{ProgramName: "system", InstructionType: "createAccount"}

	SplToken                = ProgramInstruction{ProgramName: "spl-token"}
	SplTokenTransfer        = ProgramInstruction{ProgramName: "spl-token", InstructionType: "transfer"}
	SplTokenTransferChecked = ProgramInstruction{ProgramName: "spl-token", InstructionType: "transferChecked"}

	VoteProgram = ProgramInstruction{ProgramName: "vote"}
)

var catalog = []ProgramInstruction{
	SystemProgram,
	SystemTransfer,
	SystemAllocate,
	SystemAssign,
	SystemCreateAccount,
	SplToken,
	SplTokenTransfer,
	SplTokenTransferChecked,
	VoteProgram,
}

// Catalog returns every known signature.
func Catalog() []ProgramInstruction {
	out := make([]ProgramInstruction, len(catalog))
	copy(out, catalog)
	return out
}

// LookupProgramInstruction finds a catalog entry.
func LookupProgramInstruction(programName, instructionType string) (ProgramInstruction, bool) {
	for _, p := range catalog {
		if p.ProgramName == programName && p.InstructionType == instructionType {
			return p, true
		}
	}
	return ProgramInstruction{}, false
}

func (p ProgramInstruction) Filter(instructions Instructions, flatten bool) Instructions {
	return instructions.Filter(p.ProgramName, p.InstructionType, flatten)
}

func (p ProgramInstruction) Matches(instruction Instruction) bool {
	return instruction.IsOf(p.ProgramName, p.InstructionType)
}

func (p ProgramInstruction) String() string {
	if p.InstructionType == "" {
		return p.ProgramName
	}
	return p.ProgramName + "/" + p.InstructionType
}
