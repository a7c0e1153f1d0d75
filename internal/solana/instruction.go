package solana

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/mr-tron/base58"
)

// InstructionKind tells which payload of an Instruction is set.
type InstructionKind uint8

const (
	// KindOpaque is an instruction the node could not parse: program, accounts and raw data only.
	KindOpaque InstructionKind = iota
	// KindParsed is an instruction with a program name, type and info parameters.
	KindParsed
)

func (k InstructionKind) String() string {
	switch k {
	case KindOpaque:
		return "opaque"
	case KindParsed:
		return "parsed"
	}
	return "unknown"
}

// OpaqueData is the payload of a KindOpaque instruction.
type OpaqueData struct {
	Accounts []Account
	// Data is base58 encoded.
	Data string
}

// Bytes decodes Data.
func (d *OpaqueData) Bytes() ([]byte, error) {
	if d.Data == "" {
		return nil, nil
	}
	b, err := base58.Decode(d.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: instruction data: %v", ErrMalformedPayload, err)
	}
	return b, nil
}

// ParsedData is the payload of a KindParsed instruction. Info parameters whose string value is a
// key of the transaction's registry land in InfoAccounts, all others in InfoValues. A plain value
// that happens to equal an account key is therefore reported as an account.
type ParsedData struct {
	ProgramName string
	// Type is empty for programs like spl-memo whose parsed payload is a scalar.
	Type         string
	InfoAccounts map[string]Account
	InfoValues   map[string]any
	// Value holds a scalar parsed payload.
	Value any
}

func (d *ParsedData) Account(name string) (Account, bool) {
	a, ok := d.InfoAccounts[name]
	return a, ok
}

func (d *ParsedData) Info(name string) (any, bool) {
	v, ok := d.InfoValues[name]
	return v, ok
}

// Amount reads an integer info value, given as a JSON number or a decimal string, at scale.
func (d *ParsedData) Amount(name string, scale uint8) (NumberWithScale, error) {
	v, ok := d.InfoValues[name]
	if !ok {
		return NumberWithScale{}, fmt.Errorf("%w: missing %q", ErrMalformedPayload, name)
	}
	switch n := v.(type) {
	case json.Number:
		return ParseNumberWithScale(n.String(), scale)
	case string:
		return ParseNumberWithScale(n, scale)
	}
	return NumberWithScale{}, fmt.Errorf("%w: %q is %T, not an amount", ErrMalformedPayload, name, v)
}

// Instruction is one program invocation with its nested inner instructions. Exactly one of
// Opaque and Parsed is set, according to Kind.
type Instruction struct {
	Kind    InstructionKind
	Program Account
	Inner   Instructions
	// ID is the hierarchical position, "2" for the third outer instruction and "2.0" for its
	// first inner instruction. Assigned by Instructions.SetIDs.
	ID string

	Opaque *OpaqueData
	Parsed *ParsedData
}

// NewOpaqueInstruction builds an opaque instruction.
func NewOpaqueInstruction(program Account, accounts []Account, data string, inner Instructions) Instruction {
	return Instruction{
		Kind:    KindOpaque,
		Program: program,
		Inner:   inner,
		Opaque:  &OpaqueData{Accounts: accounts, Data: data},
	}
}

// NewParsedInstruction builds a parsed instruction.
func NewParsedInstruction(program Account, data ParsedData, inner Instructions) Instruction {
	return Instruction{
		Kind:    KindParsed,
		Program: program,
		Inner:   inner,
		Parsed:  &data,
	}
}

// parseInstruction builds an instruction from its JSON form, resolving every account through the
// registry.
func parseInstruction(accounts *Accounts, raw json.RawMessage, inner Instructions) (Instruction, error) {
	var ri rawInstruction
	if err := json.Unmarshal(raw, &ri); err != nil {
		return Instruction{}, fmt.Errorf("%w: instruction: %v", ErrMalformedPayload, err)
	}

	program, err := resolveProgram(accounts, ri)
	if err != nil {
		return Instruction{}, err
	}

	if ri.Parsed != nil {
		data, err := parseParsedData(accounts, ri)
		if err != nil {
			return Instruction{}, err
		}
		return NewParsedInstruction(program, data, inner), nil
	}

	resolved := make([]Account, 0, len(ri.Accounts))
	for _, ref := range ri.Accounts {
		a, err := resolveAccountRef(accounts, ref)
		if err != nil {
			return Instruction{}, err
		}
		resolved = append(resolved, a)
	}
	return NewOpaqueInstruction(program, resolved, ri.Data, inner), nil
}

func resolveProgram(accounts *Accounts, ri rawInstruction) (Account, error) {
	switch {
	case ri.ProgramID != nil:
		return accounts.ByKey(*ri.ProgramID)
	case ri.ProgramIDIndex != nil:
		return accounts.ByIndex(*ri.ProgramIDIndex)
	}
	return Account{}, fmt.Errorf("%w: instruction has neither programId nor programIdIndex", ErrMalformedPayload)
}

// resolveAccountRef resolves an instruction account given as an index (json encoding) or a key
// (jsonParsed encoding).
func resolveAccountRef(accounts *Accounts, ref json.RawMessage) (Account, error) {
	ref = bytes.TrimSpace(ref)
	if len(ref) > 0 && ref[0] == '"' {
		var key string
		if err := json.Unmarshal(ref, &key); err != nil {
			return Account{}, fmt.Errorf("%w: instruction account: %v", ErrMalformedPayload, err)
		}
		return accounts.ByKey(key)
	}
	i, err := strconv.Atoi(string(ref))
	if err != nil {
		return Account{}, fmt.Errorf("%w: instruction account %s", ErrMalformedPayload, ref)
	}
	return accounts.ByIndex(i)
}

func parseParsedData(accounts *Accounts, ri rawInstruction) (ParsedData, error) {
	dec := json.NewDecoder(bytes.NewReader(ri.Parsed))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return ParsedData{}, fmt.Errorf("%w: parsed instruction: %v", ErrMalformedPayload, err)
	}

	data := ParsedData{
		ProgramName:  ri.Program,
		InfoAccounts: map[string]Account{},
		InfoValues:   map[string]any{},
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		data.Value = parsed
		return data, nil
	}

	if t, ok := obj["type"]; ok {
		s, ok := t.(string)
		if !ok {
			return ParsedData{}, fmt.Errorf("%w: parsed instruction type is %T", ErrMalformedPayload, t)
		}
		data.Type = s
	}

	info, _ := obj["info"].(map[string]any)
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := info[k].(string); ok {
			if a, ok := accounts.Get(s); ok {
				data.InfoAccounts[k] = a
				continue
			}
		}
		data.InfoValues[k] = info[k]
	}
	return data, nil
}

// Accounts used by this instruction, excluding inner instructions.
func (i Instruction) Accounts() AccountSet {
	switch i.Kind {
	case KindOpaque:
		return NewAccountSet(i.Opaque.Accounts...)
	case KindParsed:
		s := make(AccountSet, len(i.Parsed.InfoAccounts))
		for _, a := range i.Parsed.InfoAccounts {
			s.Add(a)
		}
		return s
	}
	return AccountSet{}
}

// Len counts this instruction and all of its descendants.
func (i Instruction) Len() int {
	return 1 + i.Inner.Len()
}

// Programs returns the program of this instruction and of every descendant.
func (i Instruction) Programs() AccountSet {
	s := i.Inner.Programs()
	s.Add(i.Program)
	return s
}

// IsOf reports whether the instruction belongs to programName and, when instructionType is not
// empty, has that type. Opaque instructions never match.
func (i Instruction) IsOf(programName, instructionType string) bool {
	switch i.Kind {
	case KindParsed:
		if i.Parsed.ProgramName != programName {
			return false
		}
		return instructionType == "" || i.Parsed.Type == instructionType
	default:
		return false
	}
}

// withInner returns a copy sharing the payload but with different inner instructions.
func (i Instruction) withInner(inner Instructions) Instruction {
	c := i
	c.Inner = inner
	return c
}

// Flatten returns this instruction, without inner instructions, followed by every descendant in
// depth-first pre-order.
func (i Instruction) Flatten() Instructions {
	out := Instructions{i.withInner(nil)}
	return out.Concat(i.Inner.Flatten())
}

// filter returns a copy pruned to matching descendants, or false when neither the instruction nor
// any descendant matches.
func (i Instruction) filter(programName, instructionType string) (Instruction, bool) {
	inner := i.Inner.Filter(programName, instructionType, false)
	if len(inner) > 0 || i.IsOf(programName, instructionType) {
		return i.withInner(inner), true
	}
	return Instruction{}, false
}
