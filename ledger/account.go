package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cnftree/cnftree/types"
)

// On-chain layout of the concurrent merkle tree account. The header records
// the tree parameters; the body holds the change-log ring buffer whose
// active entry starts with the current root.
//
//	header (56 bytes):
//	  account type      u8
//	  header version    u8
//	  max buffer size   u32 le
//	  max depth         u32 le
//	  authority         32 bytes
//	  creation slot     u64 le
//	  padding           6 bytes
//	body:
//	  sequence number   u64 le
//	  active index      u64 le
//	  buffer size       u64 le
//	  change logs       maxBufferSize entries
//	  rightmost path    1 entry-sized record
const (
	treeHeaderSize   = 56
	treeBodyPrefix   = 24 // sequence + active index + buffer size
	activeIndexStart = treeHeaderSize + 8

	headerBufferSizeStart = 2
	headerDepthStart      = 6

	// maxOnchainTreeDepth is the deepest tree the on-chain account format
	// supports; deeper values in a header mean the data is not a tree
	// account.
	maxOnchainTreeDepth = 30
)

// ErrAccountData reports tree account data too short or inconsistent with
// its own header.
var ErrAccountData = errors.New("ledger: malformed tree account data")

// changeLogSize is the serialized size of one change-log entry: the root,
// one node per level, and the padded leaf index.
func changeLogSize(depth int) int {
	return 32 + 32*depth + 8
}

// pathSize is the serialized size of the rightmost-proof record.
func pathSize(depth int) int {
	return 32*depth + 32 + 8
}

// TreeAccountSize returns the account size needed for a concurrent merkle
// tree of the given parameters, header included.
func TreeAccountSize(depth, bufferSize int) uint64 {
	body := treeBodyPrefix + bufferSize*changeLogSize(depth) + pathSize(depth)
	return uint64(treeHeaderSize + body)
}

// ParseTreeRoot extracts the current root from raw tree account data: the
// root of the change-log entry at the active index.
func ParseTreeRoot(data []byte) (types.Hash, error) {
	if len(data) < treeHeaderSize+treeBodyPrefix {
		return types.Hash{}, fmt.Errorf("%w: %d bytes", ErrAccountData, len(data))
	}
	bufferSize := binary.LittleEndian.Uint32(data[headerBufferSizeStart:])
	depth := binary.LittleEndian.Uint32(data[headerDepthStart:])
	if depth == 0 || depth > maxOnchainTreeDepth || bufferSize == 0 {
		return types.Hash{}, fmt.Errorf("%w: depth %d, buffer %d", ErrAccountData, depth, bufferSize)
	}
	active := binary.LittleEndian.Uint64(data[activeIndexStart:])
	if active >= uint64(bufferSize) {
		return types.Hash{}, fmt.Errorf("%w: active index %d, buffer %d", ErrAccountData, active, bufferSize)
	}
	offset := treeHeaderSize + treeBodyPrefix + int(active)*changeLogSize(int(depth))
	if len(data) < offset+32 {
		return types.Hash{}, fmt.Errorf("%w: truncated change log", ErrAccountData)
	}
	return types.HashFromBytes(data[offset : offset+32])
}

// EncodeTreeAccount renders tree account data in the layout above. The rpc
// client never writes accounts; this exists for tests and local fixtures
// that need ParseTreeRoot-compatible bytes.
func EncodeTreeAccount(depth, bufferSize int, authority types.Pubkey, root types.Hash) []byte {
	data := make([]byte, TreeAccountSize(depth, bufferSize))
	data[0] = 1 // account type: concurrent merkle tree
	data[1] = 1 // header version
	binary.LittleEndian.PutUint32(data[headerBufferSizeStart:], uint32(bufferSize))
	binary.LittleEndian.PutUint32(data[headerDepthStart:], uint32(depth))
	copy(data[10:42], authority.Bytes())
	// sequence, active index and buffer fill stay zero; the root lands in
	// change-log entry zero.
	copy(data[treeHeaderSize+treeBodyPrefix:], root.Bytes())
	return data
}
