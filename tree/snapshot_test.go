package tree

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cnftree/cnftree/keys"
	"github.com/cnftree/cnftree/merkle"
	"github.com/cnftree/cnftree/schema"
)

func TestSnapshotRoundTrip(t *testing.T) {
	sub := &mockSubmitter{}
	owner := testOwner(t)
	m := createdManager(t, sub, owner, 3)
	m, _, err := m.Mint(context.Background(), sub, owner.Base58(), owner.Pubkey().Base58())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	snap := m.Snapshot()
	restored, err := FromSnapshot(snap, nil)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if restored.Minted() != m.Minted() {
		t.Errorf("minted %d, want %d", restored.Minted(), m.Minted())
	}
	if restored.MaxDepth() != m.MaxDepth() || restored.MaxBufferSize() != m.MaxBufferSize() {
		t.Error("tree parameters lost in round trip")
	}
	wantRoot, _ := m.Root()
	gotRoot, err := restored.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if gotRoot != wantRoot {
		t.Errorf("root %s, want %s", gotRoot, wantRoot)
	}
	wantTree, _ := m.TreeAccount()
	gotTree, ok := restored.TreeAccount()
	if !ok || gotTree != wantTree {
		t.Error("tree account handle lost in round trip")
	}
}

func TestSnapshotSurvivesJSON(t *testing.T) {
	sub := &mockSubmitter{}
	owner := testOwner(t)
	m := createdManager(t, sub, owner, 2)

	raw, err := json.Marshal(m.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if _, err := FromSnapshot(snap, nil); err != nil {
		t.Fatalf("FromSnapshot after JSON: %v", err)
	}
}

func TestSnapshotOfUninitializedEngine(t *testing.T) {
	m, err := InitWithSize(3, 8, nil)
	if err != nil {
		t.Fatalf("InitWithSize: %v", err)
	}
	restored, err := FromSnapshot(m.Snapshot(), nil)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if restored.Created() {
		t.Error("uninitialized snapshot must restore as uninitialized")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	sub := &mockSubmitter{}
	owner := testOwner(t)
	m := createdManager(t, sub, owner, 3)
	snap := m.Snapshot()

	// mutating the snapshot copy must not reach the engine
	snap.Leaves[0][0] = 0xff
	if leaf, _ := m.Leaf(0); !leaf.IsZero() {
		t.Error("snapshot shares leaf storage with the engine")
	}
}

func TestFromSnapshotValidatesLeafCount(t *testing.T) {
	m, err := InitWithSize(3, 8, nil)
	if err != nil {
		t.Fatalf("InitWithSize: %v", err)
	}
	snap := m.Snapshot()
	snap.Leaves = snap.Leaves[:len(snap.Leaves)-1]
	if _, err := FromSnapshot(snap, nil); !errors.Is(err, merkle.ErrLeafCount) {
		t.Errorf("expected ErrLeafCount, got %v", err)
	}
}

func TestFromSnapshotValidatesLeafLength(t *testing.T) {
	m, err := InitWithSize(3, 8, nil)
	if err != nil {
		t.Fatalf("InitWithSize: %v", err)
	}
	snap := m.Snapshot()
	snap.Leaves[2] = snap.Leaves[2][:31]
	if _, err := FromSnapshot(snap, nil); !errors.Is(err, schema.ErrFieldEncoding) {
		t.Errorf("expected ErrFieldEncoding, got %v", err)
	}
}

func TestFromSnapshotValidatesMintCounter(t *testing.T) {
	m, err := InitWithSize(3, 8, nil)
	if err != nil {
		t.Fatalf("InitWithSize: %v", err)
	}
	snap := m.Snapshot()
	snap.Minted = m.Capacity() + 1
	if _, err := FromSnapshot(snap, nil); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}
}

func TestFromSnapshotValidatesAccountHandle(t *testing.T) {
	m, err := InitWithSize(3, 8, nil)
	if err != nil {
		t.Fatalf("InitWithSize: %v", err)
	}
	snap := m.Snapshot()
	snap.TreeAccount = []byte{1, 2, 3}
	if _, err := FromSnapshot(snap, nil); !errors.Is(err, keys.ErrKeyDecode) {
		t.Errorf("expected ErrKeyDecode, got %v", err)
	}
}
