package ledger

import (
	"errors"
	"testing"

	"github.com/cnftree/cnftree/types"
)

func testKey(b byte) types.Pubkey {
	var p types.Pubkey
	p[0] = b
	return p
}

func TestWellKnownProgramIDs(t *testing.T) {
	// Pinned to the deployed program addresses; a typo here silently
	// misdirects every assembled instruction and derived address.
	cases := []struct {
		name string
		got  types.Pubkey
		want string
	}{
		{"system", SystemProgram, "11111111111111111111111111111111"},
		{"bubblegum", BubblegumProgram, "BGUMAp9Gq7iTEuizy4pqaxsTyUCBK68MDfK752saRPUY"},
		{"account compression", AccountCompressionProgram, "cmtDvXumGCrqC1Age74AVPhSRVXJMd8PJS91L8KbNCK"},
		{"noop", NoopProgram, "noopb9bkMVfRPU8AsbpTUg8AQkHtKwMYZiFUjNRtMmV"},
	}
	for _, tc := range cases {
		if got := tc.got.Base58(); got != tc.want {
			t.Errorf("%s program id = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestFindProgramAddressDeterministic(t *testing.T) {
	seeds := [][]byte{[]byte("asset"), testKey(1).Bytes()}
	a, bumpA, err := FindProgramAddress(seeds, BubblegumProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	b, bumpB, err := FindProgramAddress(seeds, BubblegumProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if a != b || bumpA != bumpB {
		t.Error("derivation not deterministic")
	}
}

func TestFindProgramAddressMatchesCreateWithBump(t *testing.T) {
	seeds := [][]byte{[]byte("asset"), testKey(2).Bytes()}
	addr, bump, err := FindProgramAddress(seeds, BubblegumProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	recreated, err := CreateProgramAddress(append(seeds, []byte{bump}), BubblegumProgram)
	if err != nil {
		t.Fatalf("CreateProgramAddress with found bump: %v", err)
	}
	if recreated != addr {
		t.Error("recreated address does not match found address")
	}
}

func TestFindProgramAddressDistinctBySeedAndProgram(t *testing.T) {
	a, _, _ := FindProgramAddress([][]byte{[]byte("asset")}, BubblegumProgram)
	b, _, _ := FindProgramAddress([][]byte{[]byte("asset")}, AccountCompressionProgram)
	if a == b {
		t.Error("distinct programs derived the same address")
	}
	c, _, _ := FindProgramAddress([][]byte{[]byte("tessa")}, BubblegumProgram)
	if a == c {
		t.Error("distinct seeds derived the same address")
	}
}

func TestCreateProgramAddressSeedLimits(t *testing.T) {
	long := make([]byte, maxSeedLength+1)
	if _, err := CreateProgramAddress([][]byte{long}, BubblegumProgram); !errors.Is(err, ErrSeed) {
		t.Errorf("expected ErrSeed for oversized seed, got %v", err)
	}
	many := make([][]byte, maxSeeds+1)
	for i := range many {
		many[i] = []byte{byte(i)}
	}
	if _, err := CreateProgramAddress(many, BubblegumProgram); !errors.Is(err, ErrSeed) {
		t.Errorf("expected ErrSeed for too many seeds, got %v", err)
	}
}

func TestFindTreeConfigAndAssetID(t *testing.T) {
	tree := testKey(3)
	cfg, _, err := FindTreeConfig(tree)
	if err != nil {
		t.Fatalf("FindTreeConfig: %v", err)
	}
	if cfg.IsZero() {
		t.Error("tree config address should not be zero")
	}
	a0, _, err := FindAssetID(tree, 0)
	if err != nil {
		t.Fatalf("FindAssetID: %v", err)
	}
	a1, _, err := FindAssetID(tree, 1)
	if err != nil {
		t.Fatalf("FindAssetID: %v", err)
	}
	if a0 == a1 {
		t.Error("consecutive nonces derived the same asset id")
	}
}
