// Package align maps a spoken word sequence onto a reference word sequence
// and classifies the outcome of every reference word. The opcode engine in
// this file is a sequence matcher in the Ratcliff-Obershelp style: it finds
// matching blocks recursively and labels the gaps between them, producing the
// same equal/replace/delete/insert structure the rest of the engine is
// calibrated against.
package align

// OpTag labels one region of an alignment.
type OpTag string

const (
	// OpEqual marks a run of identical words on both sides.
	OpEqual OpTag = "equal"

	// OpReplace marks a run where the reader said different words.
	OpReplace OpTag = "replace"

	// OpDelete marks reference words with no spoken counterpart.
	OpDelete OpTag = "delete"

	// OpInsert marks spoken words with no reference counterpart.
	OpInsert OpTag = "insert"
)

// Op is one opcode of an alignment: a[I1:I2] vs b[J1:J2].
type Op struct {
	Tag            OpTag
	I1, I2, J1, J2 int
}

// block is a maximal run of matching words: a[A:A+Size] == b[B:B+Size].
type block struct {
	A, B, Size int
}

// Opcodes aligns the word sequences a and b and returns the ordered opcode
// list describing how to turn a into b. Adjacent ranges are contiguous: every
// index of a and b is covered by exactly one opcode.
func Opcodes(a, b []string) []Op {
	blocks := matchingBlocks(a, 0, len(a), b, 0, len(b))
	// Sentinel terminator so the loop below flushes the final gap.
	blocks = append(blocks, block{A: len(a), B: len(b)})

	var ops []Op
	i, j := 0, 0
	for _, bl := range blocks {
		var tag OpTag
		switch {
		case i < bl.A && j < bl.B:
			tag = OpReplace
		case i < bl.A:
			tag = OpDelete
		case j < bl.B:
			tag = OpInsert
		}
		if tag != "" {
			ops = append(ops, Op{Tag: tag, I1: i, I2: bl.A, J1: j, J2: bl.B})
		}
		if bl.Size > 0 {
			ops = append(ops, Op{Tag: OpEqual, I1: bl.A, I2: bl.A + bl.Size, J1: bl.B, J2: bl.B + bl.Size})
		}
		i, j = bl.A+bl.Size, bl.B+bl.Size
	}
	return ops
}

// matchingBlocks recursively collects the matching blocks of a[alo:ahi] vs
// b[blo:bhi] in ascending order.
func matchingBlocks(a []string, alo, ahi int, b []string, blo, bhi int) []block {
	bestA, bestB, bestSize := longestBlock(a, alo, ahi, b, blo, bhi)
	if bestSize == 0 {
		return nil
	}
	var blocks []block
	blocks = append(blocks, matchingBlocks(a, alo, bestA, b, blo, bestB)...)
	blocks = append(blocks, block{A: bestA, B: bestB, Size: bestSize})
	blocks = append(blocks, matchingBlocks(a, bestA+bestSize, ahi, b, bestB+bestSize, bhi)...)
	return blocks
}

// longestBlock finds the longest run of equal words in a[alo:ahi] vs
// b[blo:bhi]. Ties are broken by the earliest position in a, then in b.
func longestBlock(a []string, alo, ahi int, b []string, blo, bhi int) (bestA, bestB, bestSize int) {
	bestA, bestB = alo, blo
	j2len := make(map[int]int, bhi-blo)
	for i := alo; i < ahi; i++ {
		next := make(map[int]int, bhi-blo)
		for j := blo; j < bhi; j++ {
			if a[i] != b[j] {
				continue
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestA = i - k + 1
				bestB = j - k + 1
				bestSize = k
			}
		}
		j2len = next
	}
	return bestA, bestB, bestSize
}
