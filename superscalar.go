package randomx

// Superscalar generation constants (from RandomX configuration.h)
const (
	superscalarLatency = 170  // RANDOMX_SUPERSCALAR_LATENCY
	superscalarMaxSize = 3*superscalarLatency + 2 // Maximum program size
	cacheAccesses      = 8    // RANDOMX_CACHE_ACCESSES - number of superscalar programs to execute per dataset item
)

// executeSuperscalar executes a superscalar program on the register file.
// This implements the executeSuperscalar function from the C++ reference.
// The reciprocals slice contains pre-computed reciprocal values for IMUL_RCP instructions.
func executeSuperscalar(r *[8]uint64, prog *superscalarProgram, reciprocals []uint64) {
	for i := range prog.instructions {
		instr := &prog.instructions[i]
		
		dst := instr.dst & 7
		src := instr.src & 7

		switch instr.opcode {
		case ssISUB_R:
			r[dst] -= r[src]

		case ssIXOR_R:
			r[dst] ^= r[src]

		case ssIADD_RS:
			shift := instr.getModShift()
			r[dst] += r[src] << shift

		case ssIMUL_R:
			r[dst] *= r[src]

		case ssIROR_C:
			r[dst] = rotr(r[dst], uint(instr.imm32))

		case ssIADD_C7, ssIADD_C8, ssIADD_C9:
			r[dst] += signExtend2sCompl(instr.imm32)

		case ssIXOR_C7, ssIXOR_C8, ssIXOR_C9:
			r[dst] ^= signExtend2sCompl(instr.imm32)

		case ssIMULH_R:
			r[dst] = mulh(r[dst], r[src])

		case ssISMULH_R:
			r[dst] = uint64(smulh(int64(r[dst]), int64(r[src])))
			
		case ssIMUL_RCP:
			// The imm32 field contains the index into the reciprocals array
			// (pre-computed during cache initialization)
			if reciprocals != nil && instr.imm32 < uint32(len(reciprocals)) {
				r[dst] *= reciprocals[instr.imm32]
			} else {
				// Fallback: compute reciprocal on the fly
				r[dst] *= reciprocal(instr.imm32)
			}
		}
	}
}

// Note: generateSuperscalarProgram is implemented in superscalar_gen.go
// with full CPU port scheduling simulation and dependency tracking.
