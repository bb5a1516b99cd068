// Package idhash derives stable identifiers for symbols and workspaces.
//
// Content hashing for files and symbol ids uses Blake3 (fast, well
// distributed); chunk ids elsewhere in the codebase keep their existing
// SHA-256 scheme so resumable indexing checkpoints stay valid.
package idhash

import (
	"encoding/hex"
	"path/filepath"
	"strconv"

	"lukechampine.com/blake3"
)

// SymbolIDLength is the number of hex characters kept from the full
// Blake3 digest, per the bit-exact contract: 24 hex chars (12 bytes).
const SymbolIDLength = 24

// SymbolID computes the stable id for a symbol:
// blake3(file_path + "\0" + name + "\0" + kind + "\0" + start_byte).hex[:24]
func SymbolID(filePath, name, kind string, startByte int) string {
	h := blake3.New(32, nil)
	h.Write([]byte(filePath))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(startByte)))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:SymbolIDLength]
}

// ContentHash returns the lowercase hex Blake3 digest of raw bytes,
// unsalted, as used for file content hashes (spec §6 bit-exact contract).
func ContentHash(content []byte) string {
	h := blake3.New(32, nil)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// WorkspaceID derives a stable id for a workspace from its absolute root path.
func WorkspaceID(absRoot string) string {
	clean := filepath.Clean(absRoot)
	h := blake3.New(32, nil)
	h.Write([]byte(clean))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
