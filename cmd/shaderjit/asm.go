package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/limonvm/shaderjit/internal/shader"
)

// assemble turns mnemonic source text into a shader program. One instruction
// per line, comments start with '#'.
//
//	add  o0.xy, -c1.wwww, v0
//	dp4  r2, c0[a0], v0
//	mad  r0, v0, c1, r2
//	mova a0a1, v0
//	cmp  v0, v1, eq, lt
//	ifu  b0 4 2
//	loop i0 6
//	jmpc !x 9
//	end
func assemble(src string) (*shader.Program, error) {
	b := shader.NewBuilder()
	for n, raw := range strings.Split(src, "\n") {
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := assembleLine(b, line); err != nil {
			return nil, fmt.Errorf("line %d: %q: %w", n+1, line, err)
		}
	}
	return b.Program()
}

func assembleLine(b *shader.Builder, line string) error {
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	op, args := strings.ToLower(fields[0]), fields[1:]

	switch op {
	case "nop":
		b.NOP()
		return nil
	case "end":
		b.END()
		return nil
	case "emit":
		b.EMIT()
		return nil
	case "setemit":
		return asmSetEmit(b, args)
	case "mov", "flr", "rcp", "rsq", "ex2", "lg2":
		return asmUnary(b, op, args)
	case "mova":
		return asmMova(b, args)
	case "add", "dp3", "dp4", "dph", "dphi", "mul", "sge", "sgei", "slt", "slti", "max", "min":
		return asmCommon(b, op, args)
	case "mad", "madi":
		return asmMad(b, op, args)
	case "cmp":
		return asmCmp(b, args)
	case "call":
		dest, num, err := asmDestNum(args)
		if err != nil {
			return err
		}
		b.CALL(dest, num)
		return err
	case "callc":
		if len(args) != 3 {
			return fmt.Errorf("want <cond> <dest> <num>")
		}
		flow, rx, ry, err := parseCond(args[0])
		if err != nil {
			return err
		}
		dest, num, err := asmDestNum(args[1:])
		if err != nil {
			return err
		}
		b.CALLC(dest, num, flow, rx, ry)
		return nil
	case "callu", "ifu":
		if len(args) != 3 {
			return fmt.Errorf("want <bool> <dest> <num>")
		}
		id, err := parseUniformID(args[0], 'b', 15)
		if err != nil {
			return err
		}
		dest, num, err := asmDestNum(args[1:])
		if err != nil {
			return err
		}
		if op == "callu" {
			b.CALLU(dest, num, id)
		} else {
			b.IFU(dest, num, id)
		}
		return nil
	case "ifc":
		if len(args) != 3 {
			return fmt.Errorf("want <cond> <dest> <num>")
		}
		flow, rx, ry, err := parseCond(args[0])
		if err != nil {
			return err
		}
		dest, num, err := asmDestNum(args[1:])
		if err != nil {
			return err
		}
		b.IFC(dest, num, flow, rx, ry)
		return nil
	case "loop":
		if len(args) != 2 {
			return fmt.Errorf("want <int> <dest>")
		}
		id, err := parseUniformID(args[0], 'i', 3)
		if err != nil {
			return err
		}
		dest, err := parseInt(args[1])
		if err != nil {
			return err
		}
		b.LOOP(dest, id)
		return nil
	case "breakc":
		if len(args) != 1 {
			return fmt.Errorf("want <cond>")
		}
		flow, rx, ry, err := parseCond(args[0])
		if err != nil {
			return err
		}
		b.BREAKC(flow, rx, ry)
		return nil
	case "jmpc":
		if len(args) != 2 {
			return fmt.Errorf("want <cond> <dest>")
		}
		flow, rx, ry, err := parseCond(args[0])
		if err != nil {
			return err
		}
		dest, err := parseInt(args[1])
		if err != nil {
			return err
		}
		b.JMPC(dest, flow, rx, ry)
		return nil
	case "jmpu":
		if len(args) != 2 {
			return fmt.Errorf("want <bool> <dest>")
		}
		tok, invert := strings.CutPrefix(args[0], "!")
		id, err := parseUniformID(tok, 'b', 15)
		if err != nil {
			return err
		}
		dest, err := parseInt(args[1])
		if err != nil {
			return err
		}
		b.JMPU(dest, id, invert)
		return nil
	default:
		return fmt.Errorf("unknown mnemonic %q", op)
	}
}

func asmUnary(b *shader.Builder, op string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("want <dest> <src>")
	}
	dest, o, err := parseDest(args[0])
	if err != nil {
		return err
	}
	s1, err := parseSrc(args[1], 1, &o)
	if err != nil {
		return err
	}
	switch op {
	case "mov":
		b.MOV(dest, s1, o)
	case "flr":
		b.FLR(dest, s1, o)
	case "rcp":
		b.RCP(dest, s1, o)
	case "rsq":
		b.RSQ(dest, s1, o)
	case "ex2":
		b.EX2(dest, s1, o)
	case "lg2":
		b.LG2(dest, s1, o)
	}
	return nil
}

func asmCommon(b *shader.Builder, op string, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("want <dest> <src1> <src2>")
	}
	dest, o, err := parseDest(args[0])
	if err != nil {
		return err
	}
	s1, err := parseSrc(args[1], 1, &o)
	if err != nil {
		return err
	}
	s2, err := parseSrc(args[2], 2, &o)
	if err != nil {
		return err
	}
	switch op {
	case "add":
		b.ADD(dest, s1, s2, o)
	case "dp3":
		b.DP3(dest, s1, s2, o)
	case "dp4":
		b.DP4(dest, s1, s2, o)
	case "dph":
		b.DPH(dest, s1, s2, o)
	case "dphi":
		b.DPHI(dest, s1, s2, o)
	case "mul":
		b.MUL(dest, s1, s2, o)
	case "sge":
		b.SGE(dest, s1, s2, o)
	case "sgei":
		b.SGEI(dest, s1, s2, o)
	case "slt":
		b.SLT(dest, s1, s2, o)
	case "slti":
		b.SLTI(dest, s1, s2, o)
	case "max":
		b.MAX(dest, s1, s2, o)
	case "min":
		b.MIN(dest, s1, s2, o)
	}
	return nil
}

func asmMad(b *shader.Builder, op string, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("want <dest> <src1> <src2> <src3>")
	}
	dest, o, err := parseDest(args[0])
	if err != nil {
		return err
	}
	s1, err := parseSrc(args[1], 1, &o)
	if err != nil {
		return err
	}
	s2, err := parseSrc(args[2], 2, &o)
	if err != nil {
		return err
	}
	s3, err := parseSrc(args[3], 3, &o)
	if err != nil {
		return err
	}
	if op == "madi" {
		b.MADI(dest, s1, s2, s3, o)
	} else {
		b.MAD(dest, s1, s2, s3, o)
	}
	return nil
}

func asmMova(b *shader.Builder, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("want a0|a1|a0a1 <src>")
	}
	var o shader.Operands
	switch args[0] {
	case "a0":
		o.DestMask = 0x8
	case "a1":
		o.DestMask = 0x4
	case "a0a1":
		o.DestMask = 0xC
	default:
		return fmt.Errorf("bad address register set %q", args[0])
	}
	s1, err := parseSrc(args[1], 1, &o)
	if err != nil {
		return err
	}
	b.MOVA(s1, o)
	return nil
}

func asmCmp(b *shader.Builder, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("want <src1> <src2> <opx> <opy>")
	}
	var o shader.Operands
	s1, err := parseSrc(args[0], 1, &o)
	if err != nil {
		return err
	}
	s2, err := parseSrc(args[1], 2, &o)
	if err != nil {
		return err
	}
	opX, err := parseCmpOp(args[2])
	if err != nil {
		return err
	}
	opY, err := parseCmpOp(args[3])
	if err != nil {
		return err
	}
	b.CMP(s1, s2, opX, opY, o)
	return nil
}

func asmSetEmit(b *shader.Builder, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("want <vertex> [prim] [winding]")
	}
	id, err := parseInt(args[0])
	if err != nil {
		return err
	}
	var prim, winding bool
	for _, f := range args[1:] {
		switch f {
		case "prim":
			prim = true
		case "winding":
			winding = true
		default:
			return fmt.Errorf("bad flag %q", f)
		}
	}
	b.SETEMIT(uint8(id), prim, winding)
	return nil
}

func asmDestNum(args []string) (dest, num int, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("want <dest> <num>")
	}
	if dest, err = parseInt(args[0]); err != nil {
		return 0, 0, err
	}
	num, err = parseInt(args[1])
	return dest, num, err
}

func parseInt(tok string) (int, error) {
	v, err := strconv.ParseInt(tok, 0, 32)
	return int(v), err
}

// parseDest accepts o0..o15 and r0..r15 with an optional .mask suffix.
func parseDest(tok string) (shader.DestRegister, shader.Operands, error) {
	var o shader.Operands
	name, mask, hasMask := strings.Cut(tok, ".")
	if hasMask {
		m, err := parseMask(mask)
		if err != nil {
			return 0, o, err
		}
		o.DestMask = m
	}
	if len(name) < 2 {
		return 0, o, fmt.Errorf("bad destination %q", tok)
	}
	idx, err := strconv.Atoi(name[1:])
	if err != nil || idx < 0 || idx > 15 {
		return 0, o, fmt.Errorf("bad destination %q", tok)
	}
	switch name[0] {
	case 'o':
		return shader.DestOutput(idx), o, nil
	case 'r':
		return shader.DestTemporary(idx), o, nil
	}
	return 0, o, fmt.Errorf("bad destination %q", tok)
}

// parseSrc accepts [-]{v,r,c}N with optional [a0|a1|aL] relative addressing
// and a .sel component suffix, filling the matching slot of o.
func parseSrc(tok string, srcNum int, o *shader.Operands) (shader.SourceRegister, error) {
	name := tok
	neg := strings.HasPrefix(name, "-")
	if neg {
		name = name[1:]
	}
	var sel uint8 = shader.SelectorIdentity
	explicit := false
	if base, s, ok := strings.Cut(name, "."); ok {
		raw, err := parseSelector(s)
		if err != nil {
			return 0, err
		}
		sel, explicit, name = raw, true, base
	}
	if base, rest, ok := strings.Cut(name, "["); ok {
		addr, closed := strings.CutSuffix(rest, "]")
		if !closed {
			return 0, fmt.Errorf("bad source %q", tok)
		}
		switch strings.ToLower(addr) {
		case "a0":
			o.AddrReg = 1
		case "a1":
			o.AddrReg = 2
		case "al":
			o.AddrReg = 3
		default:
			return 0, fmt.Errorf("bad address register %q", addr)
		}
		name = base
	}
	if len(name) < 2 {
		return 0, fmt.Errorf("bad source %q", tok)
	}
	idx, err := strconv.Atoi(name[1:])
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("bad source %q", tok)
	}
	var src shader.SourceRegister
	switch name[0] {
	case 'v':
		if idx > 15 {
			return 0, fmt.Errorf("bad source %q", tok)
		}
		src = shader.SrcInput(idx)
	case 'r':
		if idx > 15 {
			return 0, fmt.Errorf("bad source %q", tok)
		}
		src = shader.SrcTemporary(idx)
	case 'c':
		if idx > 95 {
			return 0, fmt.Errorf("bad source %q", tok)
		}
		src = shader.SrcUniform(idx)
	default:
		return 0, fmt.Errorf("bad source %q", tok)
	}
	switch srcNum {
	case 1:
		o.Sel1, o.Neg1 = sel, neg
	case 2:
		o.Sel2, o.Neg2 = sel, neg
	case 3:
		o.Sel3, o.Neg3 = sel, neg
	}
	if explicit {
		o.ExplicitSel = true
	}
	return src, nil
}

var componentIndex = map[byte]int{'x': 0, 'y': 1, 'z': 2, 'w': 3}

// parseSelector turns "yzwx" style swizzles into a raw selector byte. Short
// forms repeat the last component, matching the usual shader convention.
func parseSelector(s string) (uint8, error) {
	if len(s) == 0 || len(s) > 4 {
		return 0, fmt.Errorf("bad selector %q", s)
	}
	var comps [4]int
	for i := 0; i < 4; i++ {
		c := s[min(i, len(s)-1)]
		idx, ok := componentIndex[c]
		if !ok {
			return 0, fmt.Errorf("bad selector %q", s)
		}
		comps[i] = idx
	}
	return shader.MakeSelector(comps[0], comps[1], comps[2], comps[3]), nil
}

func parseMask(s string) (uint8, error) {
	var mask uint8
	for i := 0; i < len(s); i++ {
		idx, ok := componentIndex[s[i]]
		if !ok {
			return 0, fmt.Errorf("bad write mask %q", s)
		}
		mask |= 1 << (3 - idx)
	}
	return mask, nil
}

// parseCond parses flow conditions: "x", "!y", "x|y", "!x&y".
func parseCond(tok string) (shader.FlowOp, bool, bool, error) {
	sep, op := "", shader.FlowJustX
	switch {
	case strings.Contains(tok, "|"):
		sep, op = "|", shader.FlowOr
	case strings.Contains(tok, "&"):
		sep, op = "&", shader.FlowAnd
	}
	var refX, refY bool
	var sawX, sawY bool
	parts := []string{tok}
	if sep != "" {
		parts = strings.SplitN(tok, sep, 2)
	}
	for _, p := range parts {
		p, neg := strings.CutPrefix(p, "!")
		switch p {
		case "x":
			refX, sawX = !neg, true
		case "y":
			refY, sawY = !neg, true
		default:
			return 0, false, false, fmt.Errorf("bad condition %q", tok)
		}
	}
	if sep == "" {
		if sawY {
			op = shader.FlowJustY
		}
	} else if !sawX || !sawY {
		return 0, false, false, fmt.Errorf("bad condition %q", tok)
	}
	return op, refX, refY, nil
}

func parseCmpOp(tok string) (shader.CompareOp, error) {
	switch strings.ToLower(tok) {
	case "eq":
		return shader.CmpEqual, nil
	case "ne":
		return shader.CmpNotEqual, nil
	case "lt":
		return shader.CmpLessThan, nil
	case "le":
		return shader.CmpLessEqual, nil
	case "gt":
		return shader.CmpGreaterThan, nil
	case "ge":
		return shader.CmpGreaterEqual, nil
	}
	return 0, fmt.Errorf("bad compare op %q", tok)
}

// parseUniformID parses b0..b15 and i0..i3 style uniform names.
func parseUniformID(tok string, kind byte, max int) (int, error) {
	if len(tok) < 2 || tok[0] != kind {
		return 0, fmt.Errorf("bad uniform %q", tok)
	}
	id, err := strconv.Atoi(tok[1:])
	if err != nil || id < 0 || id > max {
		return 0, fmt.Errorf("bad uniform %q", tok)
	}
	return id, nil
}
