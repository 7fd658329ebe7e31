package schema

import (
	"fmt"

	"github.com/cnftree/cnftree/crypto"
	"github.com/cnftree/cnftree/types"
)

// TokenStandard mirrors the on-chain token standard enum.
type TokenStandard uint8

// TokenStandardNonFungible is the only standard compressed tokens use here.
const TokenStandardNonFungible TokenStandard = 0

// TokenProgramVersion mirrors the on-chain token program version enum.
type TokenProgramVersion uint8

// TokenProgramOriginal selects the original token program.
const TokenProgramOriginal TokenProgramVersion = 0

// UseMethod mirrors the on-chain use-method enum.
type UseMethod uint8

// Creator credits one creator of a token with a royalty share.
type Creator struct {
	Address  types.Pubkey
	Verified bool
	Share    uint8
}

// Collection links a token to a verified collection key.
type Collection struct {
	Verified bool
	Key      types.Pubkey
}

// Uses tracks the limited-use counter of a token.
type Uses struct {
	UseMethod UseMethod
	Remaining uint64
	Total     uint64
}

// MetadataArgs is the mint-time metadata record. Field order matches the
// on-chain layout; Marshal serializes it in that order.
type MetadataArgs struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	PrimarySaleHappened  bool
	IsMutable            bool
	EditionNonce         *uint8
	TokenStandard        *TokenStandard
	Collection           *Collection
	Uses                 *Uses
	TokenProgramVersion  TokenProgramVersion
	Creators             []Creator
}

// Metaplex field length limits, enforced before serialization.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

// DefaultMetadata returns the metadata minted when the caller supplies
// none: a nonce-numbered non-fungible with no creators.
func DefaultMetadata(nonce uint64) MetadataArgs {
	standard := TokenStandardNonFungible
	return MetadataArgs{
		Name:                 fmt.Sprintf("cnftree #%d", nonce),
		Symbol:               "CNFT",
		URI:                  "https://cnftree.dev/metadata.json",
		SellerFeeBasisPoints: 0,
		PrimarySaleHappened:  true,
		IsMutable:            true,
		TokenStandard:        &standard,
		TokenProgramVersion:  TokenProgramOriginal,
		Creators:             []Creator{},
	}
}

// Validate checks the metaplex length limits and creator share total.
func (m MetadataArgs) Validate() error {
	if len(m.Name) > MaxNameLength {
		return fmt.Errorf("%w: name of %d bytes, limit %d", ErrFieldEncoding, len(m.Name), MaxNameLength)
	}
	if len(m.Symbol) > MaxSymbolLength {
		return fmt.Errorf("%w: symbol of %d bytes, limit %d", ErrFieldEncoding, len(m.Symbol), MaxSymbolLength)
	}
	if len(m.URI) > MaxURILength {
		return fmt.Errorf("%w: uri of %d bytes, limit %d", ErrFieldEncoding, len(m.URI), MaxURILength)
	}
	if len(m.Creators) > 0 {
		total := 0
		for _, c := range m.Creators {
			total += int(c.Share)
		}
		if total != 100 {
			return fmt.Errorf("%w: creator shares sum to %d, want 100", ErrFieldEncoding, total)
		}
	}
	return nil
}

// Marshal serializes the record in the on-chain borsh layout.
func (m MetadataArgs) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var e encoder
	e.writeString(m.Name)
	e.writeString(m.Symbol)
	e.writeString(m.URI)
	e.writeU16(m.SellerFeeBasisPoints)
	e.writeBool(m.PrimarySaleHappened)
	e.writeBool(m.IsMutable)
	if m.EditionNonce != nil {
		e.writeOptionTag(true)
		e.writeU8(*m.EditionNonce)
	} else {
		e.writeOptionTag(false)
	}
	if m.TokenStandard != nil {
		e.writeOptionTag(true)
		e.writeU8(uint8(*m.TokenStandard))
	} else {
		e.writeOptionTag(false)
	}
	if m.Collection != nil {
		e.writeOptionTag(true)
		e.writeBool(m.Collection.Verified)
		e.writeBytes(m.Collection.Key.Bytes())
	} else {
		e.writeOptionTag(false)
	}
	if m.Uses != nil {
		e.writeOptionTag(true)
		e.writeU8(uint8(m.Uses.UseMethod))
		e.writeU64(m.Uses.Remaining)
		e.writeU64(m.Uses.Total)
	} else {
		e.writeOptionTag(false)
	}
	e.writeU8(uint8(m.TokenProgramVersion))
	e.writeU32(uint32(len(m.Creators)))
	for _, c := range m.Creators {
		e.writeBytes(c.Address.Bytes())
		e.writeBool(c.Verified)
		e.writeU8(c.Share)
	}
	return e.bytes(), nil
}

// HashMetadata computes the data hash stored in the leaf: the Keccak-256
// of the serialized record, re-hashed with the little-endian seller fee so
// royalty changes are detectable without the full record.
func HashMetadata(m MetadataArgs) (types.Hash, error) {
	serialized, err := m.Marshal()
	if err != nil {
		return types.Hash{}, err
	}
	inner := crypto.Keccak256(serialized)
	var feeLE [2]byte
	feeLE[0] = byte(m.SellerFeeBasisPoints)
	feeLE[1] = byte(m.SellerFeeBasisPoints >> 8)
	return crypto.Keccak256Hash(inner, feeLE[:]), nil
}

// HashCreators computes the creator hash stored in the leaf: Keccak-256
// over each creator's address, verified flag and share, concatenated in
// declaration order.
func HashCreators(creators []Creator) types.Hash {
	parts := make([][]byte, 0, len(creators)*3)
	for _, c := range creators {
		parts = append(parts, c.Address.Bytes(), []byte{boolByte(c.Verified)}, []byte{c.Share})
	}
	return crypto.Keccak256Hash(parts...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
