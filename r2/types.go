// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2

// Info is the answer to "ij".
type Info struct {
	Core CoreInfo `json:"core"`
	Bin  BinInfo  `json:"bin"`
}

type CoreInfo struct {
	Type      string `json:"type"`
	File      string `json:"file"`
	FD        int    `json:"fd"`
	Size      uint64 `json:"size"`
	HumanSize string `json:"humansz"`
	IORW      bool   `json:"iorw"`
	Mode      string `json:"mode"`
	Block     uint64 `json:"block"`
	Format    string `json:"format"`
}

type BinInfo struct {
	Arch     string `json:"arch"`
	BaseAddr uint64 `json:"baddr"`
	BinSize  uint64 `json:"binsz"`
	BinType  string `json:"bintype"`
	Bits     int    `json:"bits"`
	Canary   bool   `json:"canary"`
	Class    string `json:"class"`
	Compiler string `json:"compiler"`
	Endian   string `json:"endian"`
	Intrp    string `json:"intrp"`
	Lang     string `json:"lang"`
	Machine  string `json:"machine"`
	NX       bool   `json:"nx"`
	OS       string `json:"os"`
	PIC      bool   `json:"pic"`
	Static   bool   `json:"static"`
	Stripped bool   `json:"stripped"`
	VA       bool   `json:"va"`
}

// Function is one entry of "aflj".
type Function struct {
	Offset     uint64 `json:"offset"`
	Name       string `json:"name"`
	Size       uint64 `json:"size"`
	RealSize   uint64 `json:"realsz"`
	NoReturn   bool   `json:"noreturn"`
	StackFrame int    `json:"stackframe"`
	CallType   string `json:"calltype"`
	Cost       int    `json:"cost"`
	CC         int    `json:"cc"`
	Bits       int    `json:"bits"`
	Type       string `json:"type"`
	NumBlocks  int    `json:"nbbs"`
	Edges      int    `json:"edges"`
	Signature  string `json:"signature"`
	MinBound   uint64 `json:"minbound"`
	MaxBound   uint64 `json:"maxbound"`
	NumArgs    int    `json:"nargs"`
	NumLocals  int    `json:"nlocals"`
}

// Section is one entry of "iSj".
type Section struct {
	Name  string `json:"name"`
	Size  uint64 `json:"size"`
	VSize uint64 `json:"vsize"`
	Perm  string `json:"perm"`
	PAddr uint64 `json:"paddr"`
	VAddr uint64 `json:"vaddr"`
}

// String is one entry of "izj".
type String struct {
	VAddr   uint64 `json:"vaddr"`
	PAddr   uint64 `json:"paddr"`
	Ordinal int    `json:"ordinal"`
	Size    uint64 `json:"size"`
	Length  uint64 `json:"length"`
	Section string `json:"section"`
	Type    string `json:"type"`
	String  string `json:"string"`
}

// Flag is one entry of "fj".
type Flag struct {
	Name     string `json:"name"`
	RealName string `json:"realname,omitempty"`
	Size     uint64 `json:"size"`
	Offset   uint64 `json:"offset"`
}

// RegisterProfile is the answer to "drpj".
type RegisterProfile struct {
	Aliases   []RegisterAlias `json:"alias_info"`
	Registers []Register      `json:"reg_info"`
}

type RegisterAlias struct {
	Role    int    `json:"role"`
	RoleStr string `json:"role_str"`
	Reg     string `json:"reg"`
}

type Register struct {
	Type    int    `json:"type"`
	TypeStr string `json:"type_str"`
	Name    string `json:"name"`
	Size    int    `json:"size"`
	Offset  int    `json:"offset"`
}

// Instruction is one entry of "pdj".
type Instruction struct {
	Offset  uint64   `json:"offset"`
	ESIL    string   `json:"esil"`
	RefPtr  bool     `json:"refptr"`
	FcnAddr uint64   `json:"fcn_addr"`
	FcnLast uint64   `json:"fcn_last"`
	Size    int      `json:"size"`
	Opcode  string   `json:"opcode"`
	Disasm  string   `json:"disasm"`
	Bytes   string   `json:"bytes"`
	Family  string   `json:"family"`
	Type    string   `json:"type"`
	Reloc   bool     `json:"reloc"`
	Jump    uint64   `json:"jump,omitempty"`
	Fail    uint64   `json:"fail,omitempty"`
	Flags   []string `json:"flags,omitempty"`
	Comment string   `json:"comment,omitempty"`
}
