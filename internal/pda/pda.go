// Package pda derives the program-scoped addresses of a pool and its
// accounts.
package pda

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"liquidityAMM/internal/model"
)

const (
	SeedPool       = "amm_pda"
	SeedBaseVault  = "base_token_vault"
	SeedQuoteVault = "pc_token_vault"
	SeedLPMint     = "lp_mint"
	SeedLPAccount  = "lp_token_ata"
)

// VaultScheme selects what a vault address is scoped to.
type VaultScheme uint8

const (
	// VaultSchemePool scopes vaults to the pool address, so pools sharing an
	// asset never share a vault.
	VaultSchemePool VaultScheme = iota
	// VaultSchemeMint scopes vaults to the asset mint only. Deployments that
	// predate pool-scoped vaults use it.
	VaultSchemeMint
)

func (s VaultScheme) String() string {
	switch s {
	case VaultSchemePool:
		return "pool"
	case VaultSchemeMint:
		return "mint"
	default:
		return fmt.Sprintf("vault_scheme(%d)", uint8(s))
	}
}

// ParseVaultScheme accepts "pool" and "mint" ("legacy" is an alias of mint).
func ParseVaultScheme(input string) (VaultScheme, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "pool":
		return VaultSchemePool, nil
	case "mint", "legacy":
		return VaultSchemeMint, nil
	default:
		return 0, fmt.Errorf("unknown vault scheme: %q", input)
	}
}

func find(programID solana.PublicKey, seeds ...[]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive %s: %w", seeds[0], err)
	}
	return addr, bump, nil
}

func indexSeed(index uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, index)
	return buf
}

// PoolAddress derives the pool account for a pool index.
func PoolAddress(programID solana.PublicKey, index uint64) (solana.PublicKey, uint8, error) {
	return find(programID, []byte(SeedPool), indexSeed(index))
}

// LegacyPoolAddress derives the fixed pool address of single-pool deployments.
func LegacyPoolAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return find(programID, []byte(SeedPool))
}

// VaultSeed is the domain tag of the vault on the given side.
func VaultSeed(side model.Side) string {
	if side == model.SideQuote {
		return SeedQuoteVault
	}
	return SeedBaseVault
}

// VaultAddress derives the vault holding one side of a pool.
func VaultAddress(programID solana.PublicKey, scheme VaultScheme, side model.Side, pool, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	switch scheme {
	case VaultSchemeMint:
		return find(programID, []byte(VaultSeed(side)), mint.Bytes())
	case VaultSchemePool:
		return find(programID, []byte(VaultSeed(side)), pool.Bytes())
	default:
		return solana.PublicKey{}, 0, fmt.Errorf("derive vault: unknown scheme %d", scheme)
	}
}

// LPMintAddress derives the liquidity mint of a pool.
func LPMintAddress(programID, baseMint, quoteMint, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return find(programID, []byte(SeedLPMint), baseMint.Bytes(), quoteMint.Bytes(), pool.Bytes())
}

// LPTokenAccount derives a user's liquidity claim account for a pool.
func LPTokenAccount(programID, user, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return find(programID, []byte(SeedLPAccount), user.Bytes(), pool.Bytes())
}

// PoolKeys holds every derived address of one pool.
type PoolKeys struct {
	Pool           solana.PublicKey
	PoolBump       uint8
	BaseVault      solana.PublicKey
	BaseVaultBump  uint8
	QuoteVault     solana.PublicKey
	QuoteVaultBump uint8
	LPMint         solana.PublicKey
	LPMintBump     uint8
}

// DerivePoolKeys derives the pool, both vaults and the LP mint.
func DerivePoolKeys(programID solana.PublicKey, scheme VaultScheme, index uint64, baseMint, quoteMint solana.PublicKey) (PoolKeys, error) {
	var keys PoolKeys
	var err error
	if keys.Pool, keys.PoolBump, err = PoolAddress(programID, index); err != nil {
		return PoolKeys{}, err
	}
	return deriveFromPool(keys, programID, scheme, baseMint, quoteMint)
}

// DeriveLegacyPoolKeys is DerivePoolKeys for the fixed legacy pool address.
func DeriveLegacyPoolKeys(programID solana.PublicKey, scheme VaultScheme, baseMint, quoteMint solana.PublicKey) (PoolKeys, error) {
	var keys PoolKeys
	var err error
	if keys.Pool, keys.PoolBump, err = LegacyPoolAddress(programID); err != nil {
		return PoolKeys{}, err
	}
	return deriveFromPool(keys, programID, scheme, baseMint, quoteMint)
}

func deriveFromPool(keys PoolKeys, programID solana.PublicKey, scheme VaultScheme, baseMint, quoteMint solana.PublicKey) (PoolKeys, error) {
	var err error
	if keys.BaseVault, keys.BaseVaultBump, err = VaultAddress(programID, scheme, model.SideBase, keys.Pool, baseMint); err != nil {
		return PoolKeys{}, err
	}
	if keys.QuoteVault, keys.QuoteVaultBump, err = VaultAddress(programID, scheme, model.SideQuote, keys.Pool, quoteMint); err != nil {
		return PoolKeys{}, err
	}
	if keys.LPMint, keys.LPMintBump, err = LPMintAddress(programID, baseMint, quoteMint, keys.Pool); err != nil {
		return PoolKeys{}, err
	}
	return keys, nil
}

// Vault returns the vault address for a side.
func (k PoolKeys) Vault(side model.Side) solana.PublicKey {
	if side == model.SideQuote {
		return k.QuoteVault
	}
	return k.BaseVault
}

// All lists every derived address.
func (k PoolKeys) All() []solana.PublicKey {
	return []solana.PublicKey{k.Pool, k.BaseVault, k.QuoteVault, k.LPMint}
}
