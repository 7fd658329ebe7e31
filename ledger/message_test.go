package ledger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cnftree/cnftree/keys"
	"github.com/cnftree/cnftree/types"
)

func testKeypair(t *testing.T) *keys.Keypair {
	t.Helper()
	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}

func TestCompileMessagePayerFirst(t *testing.T) {
	payer := testKey(1)
	other := testKey(2)
	ix := Instruction{
		ProgramID: SystemProgram,
		Accounts:  []AccountMeta{WritableSignerMeta(other)},
	}
	msg, err := CompileMessage(payer, types.Hash{}, []Instruction{ix})
	if err != nil {
		t.Fatalf("CompileMessage: %v", err)
	}
	if msg.AccountKeys[0] != payer {
		t.Error("payer must be the first account")
	}
	if msg.Header.NumRequiredSignatures != 2 {
		t.Errorf("required signatures %d, want 2", msg.Header.NumRequiredSignatures)
	}
}

func TestCompileMessagePrivilegeOrdering(t *testing.T) {
	payer := testKey(1)
	roSigner := testKey(2)
	wNonSigner := testKey(3)
	roNonSigner := testKey(4)
	ix := Instruction{
		ProgramID: SystemProgram,
		Accounts: []AccountMeta{
			Meta(roNonSigner),
			WritableMeta(wNonSigner),
			SignerMeta(roSigner),
		},
	}
	msg, err := CompileMessage(payer, types.Hash{}, []Instruction{ix})
	if err != nil {
		t.Fatalf("CompileMessage: %v", err)
	}
	want := []types.Pubkey{payer, roSigner, wNonSigner, roNonSigner, SystemProgram}
	if len(msg.AccountKeys) != len(want) {
		t.Fatalf("account count %d, want %d", len(msg.AccountKeys), len(want))
	}
	for i, key := range want {
		if msg.AccountKeys[i] != key {
			t.Errorf("account %d = %s, want %s", i, msg.AccountKeys[i], key)
		}
	}
	if msg.Header.NumRequiredSignatures != 2 {
		t.Errorf("required signatures %d, want 2", msg.Header.NumRequiredSignatures)
	}
	if msg.Header.NumReadonlySignedAccounts != 1 {
		t.Errorf("readonly signed %d, want 1", msg.Header.NumReadonlySignedAccounts)
	}
	if msg.Header.NumReadonlyUnsignedAccounts != 2 {
		t.Errorf("readonly unsigned %d, want 2", msg.Header.NumReadonlyUnsignedAccounts)
	}
}

func TestCompileMessageMergesDuplicateAccounts(t *testing.T) {
	payer := testKey(1)
	dup := testKey(2)
	instrs := []Instruction{
		{ProgramID: SystemProgram, Accounts: []AccountMeta{Meta(dup)}},
		{ProgramID: SystemProgram, Accounts: []AccountMeta{WritableSignerMeta(dup)}},
	}
	msg, err := CompileMessage(payer, types.Hash{}, instrs)
	if err != nil {
		t.Fatalf("CompileMessage: %v", err)
	}
	seen := 0
	for _, key := range msg.AccountKeys {
		if key == dup {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("duplicate account appears %d times", seen)
	}
	// merged flags: the account must be counted as a writable signer
	if msg.Header.NumRequiredSignatures != 2 || msg.Header.NumReadonlySignedAccounts != 0 {
		t.Errorf("header %+v, want 2 writable signers", msg.Header)
	}
}

func TestCompileMessageIndexesReferToAccountTable(t *testing.T) {
	payer := testKey(1)
	a := testKey(2)
	ix := Instruction{
		ProgramID: SystemProgram,
		Accounts:  []AccountMeta{WritableMeta(a), Meta(payer)},
		Data:      []byte{1, 2, 3},
	}
	msg, err := CompileMessage(payer, types.Hash{}, []Instruction{ix})
	if err != nil {
		t.Fatalf("CompileMessage: %v", err)
	}
	ci := msg.Instructions[0]
	if msg.AccountKeys[ci.ProgramIDIndex] != SystemProgram {
		t.Error("program id index does not resolve to the program")
	}
	if msg.AccountKeys[ci.AccountIndexes[0]] != a {
		t.Error("first account index does not resolve")
	}
	if msg.AccountKeys[ci.AccountIndexes[1]] != payer {
		t.Error("second account index does not resolve")
	}
	if !bytes.Equal(ci.Data, []byte{1, 2, 3}) {
		t.Error("instruction data not carried through")
	}
}

func TestSerializeLayout(t *testing.T) {
	payer := testKey(1)
	var blockhash types.Hash
	blockhash[0] = 0xbb
	ix := Instruction{
		ProgramID: SystemProgram,
		Accounts:  []AccountMeta{WritableMeta(testKey(2))},
		Data:      []byte{9},
	}
	msg, err := CompileMessage(payer, blockhash, []Instruction{ix})
	if err != nil {
		t.Fatalf("CompileMessage: %v", err)
	}
	raw := msg.Serialize()

	if raw[0] != msg.Header.NumRequiredSignatures {
		t.Error("byte 0 should be the signature count")
	}
	if raw[3] != byte(len(msg.AccountKeys)) {
		t.Errorf("account count byte %d, want %d", raw[3], len(msg.AccountKeys))
	}
	keyEnd := 4 + 32*len(msg.AccountKeys)
	if !bytes.Equal(raw[keyEnd:keyEnd+32], blockhash.Bytes()) {
		t.Error("blockhash not where expected")
	}
}

func TestWriteCompactU16(t *testing.T) {
	cases := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xff, 0x01}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		writeCompactU16(&buf, tc.n)
		if !bytes.Equal(buf.Bytes(), tc.want) {
			t.Errorf("compactU16(%d) = %x, want %x", tc.n, buf.Bytes(), tc.want)
		}
	}
}

func TestSignTransaction(t *testing.T) {
	payerKP := testKeypair(t)
	otherKP := testKeypair(t)
	ix := Instruction{
		ProgramID: SystemProgram,
		Accounts:  []AccountMeta{WritableSignerMeta(otherKP.Pubkey())},
	}
	msg, err := CompileMessage(payerKP.Pubkey(), types.Hash{}, []Instruction{ix})
	if err != nil {
		t.Fatalf("CompileMessage: %v", err)
	}
	// signer order in the call should not matter
	wire, err := SignTransaction(msg, []*keys.Keypair{otherKP, payerKP})
	if err != nil {
		t.Fatalf("SignTransaction: %v", err)
	}
	if wire[0] != 2 {
		t.Fatalf("signature count %d, want 2", wire[0])
	}
	payload := msg.Serialize()
	sig0, err := types.SignatureFromBytes(wire[1 : 1+64])
	if err != nil {
		t.Fatalf("first signature: %v", err)
	}
	if !keys.Verify(payerKP.Pubkey(), payload, sig0) {
		t.Error("first signature must be the payer's over the message")
	}
	sig1, _ := types.SignatureFromBytes(wire[65 : 65+64])
	if !keys.Verify(otherKP.Pubkey(), payload, sig1) {
		t.Error("second signature must be the co-signer's")
	}
	if !bytes.Equal(wire[129:], payload) {
		t.Error("message payload must follow the signatures")
	}
}

func TestSignTransactionMissingSigner(t *testing.T) {
	payerKP := testKeypair(t)
	ix := Instruction{
		ProgramID: SystemProgram,
		Accounts:  []AccountMeta{WritableSignerMeta(testKey(9))},
	}
	msg, err := CompileMessage(payerKP.Pubkey(), types.Hash{}, []Instruction{ix})
	if err != nil {
		t.Fatalf("CompileMessage: %v", err)
	}
	if _, err := SignTransaction(msg, []*keys.Keypair{payerKP}); !errors.Is(err, ErrMissingSigner) {
		t.Errorf("expected ErrMissingSigner, got %v", err)
	}
}
