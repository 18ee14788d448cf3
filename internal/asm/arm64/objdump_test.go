package arm64

import (
	"testing"

	"github.com/limonvm/shaderjit/internal/asm/testutil"
)

// TestKitchenSinkDisassembly feeds one of everything through the encoder and
// checks the result against llvm-objdump.
func TestKitchenSinkDisassembly(t *testing.T) {
	a, expect := buildKitchenSink()

	prog, err := a.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	lines := testutil.Disassemble(t, prog.Bytes())
	testutil.VerifyExpectations(t, lines, expect)
}

type sinkBuilder struct {
	a            *Assembler
	expectations []testutil.Expectation
}

func (b *sinkBuilder) add(name, mnemonic string, emit func(), contains ...string) {
	emit()
	b.expectations = append(b.expectations, testutil.Expectation{
		Name:     name,
		Mnemonic: mnemonic,
		Contains: contains,
	})
}

func buildKitchenSink() (*Assembler, []testutil.Expectation) {
	a := NewAssembler()
	b := &sinkBuilder{a: a}

	b.add("movz", "mov", func() { a.MOVZx(X0, 0x7788, 0) }, "x0", "#0x7788")
	b.add("movk_16", "movk", func() { a.MOVKx(X0, 0x5566, 16) }, "#0x5566", "lsl #16")
	b.add("movz_w", "mov", func() { a.MOVZw(X1, 0x1234, 0) }, "w1", "#0x1234")
	b.add("movk_w", "movk", func() { a.MOVKw(X1, 0x4321, 16) }, "#0x4321", "lsl #16")
	b.add("mov_x", "mov", func() { a.MOVx(X2, X1) }, "x2", "x1")
	b.add("mov_w", "mov", func() { a.MOVw(X3, X4) }, "w3", "w4")
	b.add("mvn_x", "mvn", func() { a.MVNx(X5, X6) }, "x5", "x6")

	b.add("add_x_imm", "add", func() { a.ADDXri(X3, X4, 0x123) }, "x3", "x4", "#0x123")
	b.add("add_w_imm", "add", func() { a.ADDWri(X5, X6, 128) }, "w5", "w6", "#0x80")
	b.add("sub_x_imm", "sub", func() { a.SUBXri(X7, X8, 16) }, "x7", "x8", "#0x10")
	b.add("sub_w_imm", "sub", func() { a.SUBWri(X9, X9, 1) }, "w9", "#0x1")
	b.add("add_w_reg", "add", func() { a.ADDWrr(X10, X11, X12) }, "w10", "w11", "w12")
	b.add("cmp_w_imm", "cmp", func() { a.CMPWri(X13, 95) }, "w13", "#0x5f")
	b.add("cmp_x_imm", "cmp", func() { a.CMPXri(X14, 5) }, "x14", "#0x5")
	b.add("csel_w", "csel", func() { a.CSELw(X0, X1, XZR, LO) }, "w0", "w1", "wzr", "lo")
	b.add("cset_x", "cset", func() { a.CSETx(X2, GT) }, "x2", "gt")

	b.add("and_w_imm", "and", func() { a.ANDWri(X0, X1, 0x7F) }, "w0", "w1", "#0x7f")
	b.add("and_x_imm", "and", func() { a.ANDXri(X2, X3, 0xFF) }, "x2", "x3", "#0xff")
	b.add("orr_w_imm", "orr", func() { a.ORRWri(X4, X5, 0x3F800000) }, "w4", "w5", "#0x3f800000")
	b.add("and_x_reg", "and", func() { a.ANDXrr(X6, X7, X8) }, "x6", "x7", "x8")
	b.add("orr_x_reg", "orr", func() { a.ORRXrr(X9, X10, X11) }, "x9", "x10", "x11")
	b.add("eor_x_reg", "eor", func() { a.EORXrr(X12, X13, X14) }, "x12", "x13", "x14")
	b.add("lsr_w", "lsr", func() { a.LSRWri(X0, X1, 5) }, "w0", "w1", "#5")
	b.add("lsr_x", "lsr", func() { a.LSRXri(X2, X3, 17) }, "x2", "x3", "#17")
	b.add("lsl_w", "lsl", func() { a.LSLWri(X4, X5, 4) }, "w4", "w5", "#4")
	b.add("uxtb", "uxtb", func() { a.UXTBw(X6, X7) }, "w6", "w7")
	b.add("sxtw", "sxtw", func() { a.SXTWx(X8, X9) }, "x8", "w9")

	b.add("ldr_x", "ldr", func() { a.LDRXui(X0, X1, 16) }, "x0", "[x1, #0x10]")
	b.add("str_x", "str", func() { a.STRXui(X2, X3, 8) }, "x2", "[x3, #0x8]")
	b.add("ldr_w", "ldr", func() { a.LDRWui(X4, X5, 4) }, "w4", "[x5, #0x4]")
	b.add("str_w", "str", func() { a.STRWui(X6, X7, 8) }, "w6", "[x7, #0x8]")
	b.add("ldrb", "ldrb", func() { a.LDRBui(X8, X9, 3) }, "w8", "[x9, #0x3]")
	b.add("strb", "strb", func() { a.STRBui(X10, X11, 2) }, "w10", "[x11, #0x2]")
	b.add("ldr_q", "ldr", func() { a.LDRQui(V0, X9, 32) }, "q0", "[x9, #0x20]")
	b.add("str_q", "str", func() { a.STRQui(V1, X15, 16) }, "q1", "[x15, #0x10]")
	b.add("ldr_q_reg", "ldr", func() { a.LDRQr(V2, X9, X4) }, "q2", "[x9, x4, lsl #4]")
	b.add("str_x_post", "str", func() { a.STRXpost(X4, SP, -16) }, "x4", "[sp]")
	b.add("stp_x", "stp", func() { a.STPXi(X19, X20, SP, 16) }, "x19", "x20", "[sp, #0x10]")
	b.add("ldp_x", "ldp", func() { a.LDPXi(X21, X22, SP, 32) }, "x21", "x22", "[sp, #0x20]")
	b.add("stp_q", "stp", func() { a.STPQi(V8, V9, SP, 112) }, "q8", "q9", "[sp, #0x70]")
	b.add("ldp_q", "ldp", func() { a.LDPQi(V10, V11, SP, 144) }, "q10", "q11", "[sp, #0x90]")

	b.add("fmul_v", "fmul", func() { a.FMUL4S(V1, V2, V3) }, "v1.4s", "v2.4s", "v3.4s")
	b.add("fmulx_v", "fmulx", func() { a.FMULX4S(V0, V1, V2) }, "v0.4s")
	b.add("fadd_v", "fadd", func() { a.FADD4S(V3, V4, V5) }, "v3.4s", "v4.4s", "v5.4s")
	b.add("fsub_v", "fsub", func() { a.FSUB4S(V6, V7, V8) }, "v6.4s")
	b.add("fdiv_v", "fdiv", func() { a.FDIV4S(V9, V10, V11) }, "v9.4s")
	b.add("fmin_v", "fmin", func() { a.FMIN4S(V12, V13, V14) }, "v12.4s")
	b.add("fmax_v", "fmax", func() { a.FMAX4S(V15, V0, V1) }, "v15.4s")
	b.add("fcmeq_v", "fcmeq", func() { a.FCMEQ4S(V2, V3, V4) }, "v2.4s")
	b.add("fcmge_v", "fcmge", func() { a.FCMGE4S(V5, V6, V7) }, "v5.4s")
	b.add("fcmgt_v", "fcmgt", func() { a.FCMGT4S(V8, V9, V10) }, "v8.4s")
	b.add("cmeq_v", "cmeq", func() { a.CMEQ4S(V11, V12, V13) }, "v11.4s")
	b.add("and_v", "and", func() { a.AND16B(V14, V15, V0) }, "v14.16b")
	b.add("orr_v", "orr", func() { a.ORR16B(V1, V2, V3) }, "v1.16b", "v2.16b", "v3.16b")
	b.add("bsl_v", "bsl", func() { a.BSL16B(V4, V5, V6) }, "v4.16b")
	b.add("bif_v", "bif", func() { a.BIF16B(V7, V8, V9) }, "v7.16b")
	b.add("zip1_16b", "zip1", func() { a.ZIP1v16B(V10, V11, V12) }, "v10.16b")
	b.add("zip1_8h", "zip1", func() { a.ZIP1v8H(V13, V14, V15) }, "v13.8h")
	b.add("faddp_v", "faddp", func() { a.FADDP4S(V0, V1, V2) }, "v0.4s", "v1.4s", "v2.4s")
	b.add("tbl", "tbl", func() { a.TBL16B(V3, V4, V5) }, "v3.16b", "v4.16b", "v5.16b")
	b.add("fneg_v", "fneg", func() { a.FNEG4S(V6, V7) }, "v6.4s", "v7.4s")
	b.add("frintm_v", "frintm", func() { a.FRINTM4S(V8, V9) }, "v8.4s", "v9.4s")
	b.add("fcvtzs_v", "fcvtzs", func() { a.FCVTZS4S(V10, V11) }, "v10.4s", "v11.4s")
	b.add("faddp_s", "faddp", func() { a.FADDPs(V12, V13) }, "s12", "v13.2s")
	b.add("dup_v", "dup", func() { a.DUP4S(V14, V15, 1) }, "v14.4s", "v15.s[1]")
	b.add("dup_s", "mov", func() { a.DUPs(V0, V1, 2) }, "s0", "v1.s[2]")
	b.add("ins_gen", "mov", func() { a.INSgen(V2, 3, X4) }, "v2.s[3]", "w4")
	b.add("ins_elem", "mov", func() { a.INSelem(V5, 0, V6, 1) }, "v5.s[0]", "v6.s[1]")
	b.add("umov_w", "mov", func() { a.UMOVw(X7, V8, 2) }, "w7", "v8.s[2]")
	b.add("umov_x", "mov", func() { a.UMOVx(X9, V10, 1) }, "x9", "v10.d[1]")

	b.add("fmul_s", "fmul", func() { a.FMULs(V0, V1, V2) }, "s0", "s1", "s2")
	b.add("fdiv_s", "fdiv", func() { a.FDIVs(V3, V4, V5) }, "s3")
	b.add("fadd_s", "fadd", func() { a.FADDs(V6, V7, V8) }, "s6")
	b.add("fsub_s", "fsub", func() { a.FSUBs(V9, V10, V11) }, "s9")
	b.add("fmax_s", "fmax", func() { a.FMAXs(V12, V13, V14) }, "s12")
	b.add("fmin_s", "fmin", func() { a.FMINs(V15, V0, V1) }, "s15")
	b.add("fsqrt_s", "fsqrt", func() { a.FSQRTs(V2, V3) }, "s2", "s3")
	b.add("fcmp_s", "fcmp", func() { a.FCMPs(V4, V5) }, "s4", "s5")
	b.add("fcmeq_s", "fcmeq", func() { a.FCMEQs(V6, V7, V8) }, "s6", "s7", "s8")
	b.add("fcvtns_s", "fcvtns", func() { a.FCVTNSs(V9, V10) }, "s9", "s10")
	b.add("ucvtf_s", "ucvtf", func() { a.UCVTFs(V11, V12) }, "s11", "s12")
	b.add("scvtf_s", "scvtf", func() { a.SCVTFs(V13, V14) }, "s13", "s14")
	b.add("scvtf_sw", "scvtf", func() { a.SCVTFsw(V15, X0) }, "s15", "w0")
	b.add("fmov_v_one", "fmov", func() { a.FMOVi4S(V14, 0x70) }, "v14.4s", "1.0")
	b.add("fmla_elem", "fmla", func() { a.FMLAelem(V0, V1, V2, 3) }, "s0", "s1", "v2.s[3]")

	end := a.NewLabel()
	b.add("b_cond", "b.lo", func() { a.Bcond(LO, end) })
	b.add("bl", "bl", func() { a.BL(end) })
	b.add("b", "b", func() { a.B(end) })
	b.add("br", "br", func() { a.BR(X16) }, "x16")
	b.add("blr", "blr", func() { a.BLR(X16) }, "x16")
	b.add("nop", "nop", func() { a.NOP() })
	b.add("ret", "ret", func() { a.RET() })
	a.L(end)
	a.RET()

	return a, b.expectations
}
