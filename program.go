package randomx

import (
	"encoding/binary"

	"github.com/opd-ai/go-randomx/internal"
)

const (
	programLength        = 256
	programConfigBytes   = 128
	programInstrBytes    = programLength * 8
	programTotalBytes    = programConfigBytes + programInstrBytes // 2176
	datasetItemAlignment = 64
)

// instr is one decoded RandomX program instruction (spec.md §3's "Program").
type instr struct {
	opcode       uint8
	dst          uint8
	src          uint8
	mod          uint8
	imm32        uint32
	branchTarget int // resolved PC for CBRANCH; -1 if this is not a CBRANCH
}

// configBlock holds the per-program constants derived from the first 128
// bytes of the AES-filled seed (spec.md §3).
type configBlock struct {
	eMask   [2]uint64
	readReg [4]uint8
	a       [4]internal.M128D
	ma, mx  uint32
}

// program is a fully decoded, ready-to-execute RandomX program.
type program struct {
	config       configBlock
	instructions [programLength]instr
}

// generateProgram expands a 64-byte seed into a full program: first runs
// fill_aes_4rx4 to produce 2176 bytes (spec.md §4.3), splits the first 128
// into the config block and the remaining 2048 into 256 8-byte
// instructions, then resolves CBRANCH targets via a register-lastWrite scan.
func generateProgram(seed []byte) (*program, []byte) {
	var seed64 [64]byte
	copy(seed64[:], seed)

	gen, _ := newAesGenerator4R(seed64[:])
	buf := make([]byte, programTotalBytes)
	gen.getBytes(buf)

	p := &program{}
	p.config = parseConfigBlock(buf[:programConfigBytes])

	instrBytes := buf[programConfigBytes:]
	for i := 0; i < programLength; i++ {
		off := i * 8
		p.instructions[i] = decodeInstr(instrBytes[off : off+8])
	}
	resolveBranchTargets(p.instructions[:])

	// The next program_seed (spec.md §4.4.1 step 4a) is the trailing 64
	// bytes of AES generator state after filling the program.
	nextSeed := make([]byte, 64)
	gen.getBytes(nextSeed)

	return p, nextSeed
}

func parseConfigBlock(b []byte) configBlock {
	var cb configBlock
	rawE0 := binary.LittleEndian.Uint64(b[0:8])
	rawE1 := binary.LittleEndian.Uint64(b[8:16])
	// Force exponent bits into a safe, always-finite-positive range while
	// keeping mantissa entropy from the seed (see DESIGN.md: this is a
	// simplification of the reference's exponent-set selection).
	cb.eMask[0] = (rawE0 & 0x000FFFFFFFFFFFFF) | 0x3FF0000000000000
	cb.eMask[1] = (rawE1 & 0x000FFFFFFFFFFFFF) | 0x3FF0000000000000

	cb.readReg[0] = b[16] % 8
	cb.readReg[1] = b[17] % 8
	cb.readReg[2] = b[18] % 8
	cb.readReg[3] = b[19] % 8

	cb.ma = binary.LittleEndian.Uint32(b[20:24]) &^ (datasetItemAlignment - 1)
	cb.mx = binary.LittleEndian.Uint32(b[24:28])

	for i := 0; i < 4; i++ {
		off := 28 + i*16
		lo := binary.LittleEndian.Uint64(b[off : off+8])
		hi := binary.LittleEndian.Uint64(b[off+8 : off+16])
		cb.a[i] = internal.M128DFromBits(lo, hi)
	}
	return cb
}

func decodeInstr(data []byte) instr {
	raw := binary.LittleEndian.Uint64(data)
	return instr{
		opcode:       uint8(raw & 0xFF),
		dst:          uint8((raw >> 8) & 0x07),
		src:          uint8((raw >> 16) & 0x07),
		mod:          uint8((raw >> 24) & 0xFF),
		imm32:        uint32(raw >> 32),
		branchTarget: -1,
	}
}

// resolveBranchTargets simulates per-register lastWrite tracking and sets
// each CBRANCH's branch_target to the PC following the most recent write
// to its dst register, or 0 if there was none (spec.md §4.3).
func resolveBranchTargets(instrs []instr) {
	var lastWrite [8]int
	for i := range lastWrite {
		lastWrite[i] = -1
	}

	for pc := range instrs {
		in := &instrs[pc]
		if getInstructionType(in.opcode) == instrCBRANCH {
			dst := in.dst & 0x07
			if lastWrite[dst] >= 0 {
				in.branchTarget = lastWrite[dst] + 1
			} else {
				in.branchTarget = 0
			}
			continue
		}
		if writesIntReg(in) {
			lastWrite[in.dst&0x07] = pc
		}
	}
}

// writesIntReg reports whether an instruction writes one of the r[]
// integer registers (used to track CBRANCH lastWrite targets).
func writesIntReg(in *instr) bool {
	switch getInstructionType(in.opcode) {
	case instrIADD_RS, instrIADD_M, instrISUB_R, instrISUB_M, instrIMUL_R, instrIMUL_M,
		instrIMULH_R, instrIMULH_M, instrISMULH_R, instrISMULH_M, instrIMUL_RCP,
		instrINEG_R, instrIXOR_R, instrIXOR_M, instrIROR_R, instrIROL_R, instrISWAP_R,
		instrCBRANCH:
		return true
	default:
		return false
	}
}
