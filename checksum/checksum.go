// Package checksum computes BLAKE2b-256 digests of statement streams, used to
// check that written parts reproduce the statements they were built from.
package checksum

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/ladzaretti/sqlsplit/splitter"
	"github.com/ladzaretti/sqlsplit/sqltext"

	"golang.org/x/crypto/blake2b"
)

// Size is the byte length of a [Digest].
const Size = blake2b.Size256

type Digest [Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters of the digest.
func (d Digest) Short() string {
	return d.String()[:12]
}

// StatementHash accumulates statements in order.
//
// Each statement is hashed in its written form, with a newline appended when
// its last line has none, and prefixed by its length so that statement
// boundaries contribute to the digest.
type StatementHash struct {
	h     hash.Hash
	count int
}

// New returns an empty [StatementHash].
func New() *StatementHash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only possible for keys longer than 64 bytes.
		panic("checksum: " + err.Error())
	}

	return &StatementHash{h: h}
}

// Add appends stmts to the hashed stream.
func (s *StatementHash) Add(stmts ...splitter.Statement) {
	var prefix [8]byte

	for _, stmt := range stmts {
		text := stmt.Raw()
		if !stmt.Terminated() {
			text += sqltext.Newline
		}

		binary.BigEndian.PutUint64(prefix[:], uint64(len(text)))
		_, _ = s.h.Write(prefix[:])
		_, _ = s.h.Write([]byte(text))
		s.count++
	}
}

// Count returns the number of statements added so far.
func (s *StatementHash) Count() int {
	return s.count
}

// Sum returns the digest of the statements added so far.
func (s *StatementHash) Sum() Digest {
	var d Digest
	copy(d[:], s.h.Sum(nil))

	return d
}

// Statements returns the digest of stmts.
func Statements(stmts []splitter.Statement) Digest {
	h := New()
	h.Add(stmts...)

	return h.Sum()
}
