package backend

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// journalChunk is the number of raw journal bytes absorbed per field
// element. 31 bytes always fit below the BN254 scalar modulus.
const journalChunk = fr.Bytes - 1

// journalDigest computes the MiMC-over-BN254 digest of a receipt journal.
// The journal is split into 31-byte chunks, each lifted to a field element,
// with the byte length absorbed first so journals that differ only in
// trailing zero padding digest differently.
func journalDigest(journal []byte) []byte {
	h := mimc.NewMiMC()

	var length fr.Element
	length.SetUint64(uint64(len(journal)))
	lb := length.Bytes()
	h.Write(lb[:])

	for start := 0; start < len(journal); start += journalChunk {
		end := start + journalChunk
		if end > len(journal) {
			end = len(journal)
		}
		var elem fr.Element
		elem.SetBytes(journal[start:end])
		eb := elem.Bytes()
		h.Write(eb[:])
	}
	return h.Sum(nil)
}
