package ledger

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cnftree/cnftree/keys"
	"github.com/cnftree/cnftree/types"
)

var (
	// ErrTooManyAccounts reports a message referencing more accounts than
	// the one-byte index space allows.
	ErrTooManyAccounts = errors.New("ledger: too many accounts in message")

	// ErrMissingSigner reports a required signer with no matching keypair.
	ErrMissingSigner = errors.New("ledger: missing signer for message")
)

// MessageHeader counts the signing and read-only accounts of a message.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references the message account table by index.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// Message is the signable payload of a legacy transaction: a deduplicated,
// privilege-ordered account table, the recent blockhash, and the compiled
// instructions.
type Message struct {
	Header          MessageHeader
	AccountKeys     []types.Pubkey
	RecentBlockhash types.Hash
	Instructions    []CompiledInstruction
}

type compiledAccount struct {
	key      types.Pubkey
	signer   bool
	writable bool
}

// CompileMessage builds a legacy message for the given instructions. The
// fee payer is always the first account. Remaining accounts are ordered
// writable signers, read-only signers, writable non-signers, read-only
// non-signers, preserving first-reference order within each class.
func CompileMessage(payer types.Pubkey, recentBlockhash types.Hash, instrs []Instruction) (Message, error) {
	accounts := []compiledAccount{{key: payer, signer: true, writable: true}}
	upsert := func(meta AccountMeta) {
		for i := range accounts {
			if accounts[i].key == meta.Pubkey {
				accounts[i].signer = accounts[i].signer || meta.IsSigner
				accounts[i].writable = accounts[i].writable || meta.IsWritable
				return
			}
		}
		accounts = append(accounts, compiledAccount{
			key:      meta.Pubkey,
			signer:   meta.IsSigner,
			writable: meta.IsWritable,
		})
	}
	for _, ix := range instrs {
		for _, meta := range ix.Accounts {
			upsert(meta)
		}
		upsert(Meta(ix.ProgramID))
	}
	if len(accounts) > 256 {
		return Message{}, fmt.Errorf("%w: %d", ErrTooManyAccounts, len(accounts))
	}

	// Stable privilege ordering; the payer stays pinned at index 0.
	ordered := make([]compiledAccount, 0, len(accounts))
	ordered = append(ordered, accounts[0])
	for _, class := range []func(compiledAccount) bool{
		func(a compiledAccount) bool { return a.signer && a.writable },
		func(a compiledAccount) bool { return a.signer && !a.writable },
		func(a compiledAccount) bool { return !a.signer && a.writable },
		func(a compiledAccount) bool { return !a.signer && !a.writable },
	} {
		for _, a := range accounts[1:] {
			if class(a) {
				ordered = append(ordered, a)
			}
		}
	}

	var header MessageHeader
	keyIndex := make(map[types.Pubkey]uint8, len(ordered))
	accountKeys := make([]types.Pubkey, len(ordered))
	for i, a := range ordered {
		accountKeys[i] = a.key
		keyIndex[a.key] = uint8(i)
		if a.signer {
			header.NumRequiredSignatures++
			if !a.writable {
				header.NumReadonlySignedAccounts++
			}
		} else if !a.writable {
			header.NumReadonlyUnsignedAccounts++
		}
	}

	compiled := make([]CompiledInstruction, len(instrs))
	for i, ix := range instrs {
		indexes := make([]uint8, len(ix.Accounts))
		for j, meta := range ix.Accounts {
			indexes[j] = keyIndex[meta.Pubkey]
		}
		compiled[i] = CompiledInstruction{
			ProgramIDIndex: keyIndex[ix.ProgramID],
			AccountIndexes: indexes,
			Data:           ix.Data,
		}
	}

	return Message{
		Header:          header,
		AccountKeys:     accountKeys,
		RecentBlockhash: recentBlockhash,
		Instructions:    compiled,
	}, nil
}

// Serialize encodes the message in the legacy wire layout: the three header
// bytes, then compact-u16 prefixed account keys, the blockhash, and the
// compact-u16 prefixed instruction list.
func (m Message) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteByte(m.Header.NumRequiredSignatures)
	buf.WriteByte(m.Header.NumReadonlySignedAccounts)
	buf.WriteByte(m.Header.NumReadonlyUnsignedAccounts)
	writeCompactU16(&buf, len(m.AccountKeys))
	for _, key := range m.AccountKeys {
		buf.Write(key.Bytes())
	}
	buf.Write(m.RecentBlockhash.Bytes())
	writeCompactU16(&buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf.WriteByte(ix.ProgramIDIndex)
		writeCompactU16(&buf, len(ix.AccountIndexes))
		buf.Write(ix.AccountIndexes)
		writeCompactU16(&buf, len(ix.Data))
		buf.Write(ix.Data)
	}
	return buf.Bytes()
}

// SignerKeys returns the accounts that must sign, in signature order.
func (m Message) SignerKeys() []types.Pubkey {
	return m.AccountKeys[:m.Header.NumRequiredSignatures]
}

// SignTransaction serializes the message, collects one signature per
// required signer, and returns the full wire transaction. The signers may
// be passed in any order; they are matched to the account table.
func SignTransaction(m Message, signers []*keys.Keypair) ([]byte, error) {
	payload := m.Serialize()
	byKey := make(map[types.Pubkey]*keys.Keypair, len(signers))
	for _, kp := range signers {
		byKey[kp.Pubkey()] = kp
	}

	var buf bytes.Buffer
	required := m.SignerKeys()
	writeCompactU16(&buf, len(required))
	for _, key := range required {
		kp, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSigner, key)
		}
		sig := kp.Sign(payload)
		buf.Write(sig.Bytes())
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

// writeCompactU16 appends n in the shortvec encoding: little-endian 7-bit
// groups with a continuation bit.
func writeCompactU16(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
