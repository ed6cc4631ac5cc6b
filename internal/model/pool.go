package model

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const poolAccountName = "AmmPool"

// PoolDiscriminator prefixes every encoded Pool account.
var PoolDiscriminator = AccountDiscriminator(poolAccountName)

// ErrInvalidAccountData is returned when account bytes do not hold a Pool.
var ErrInvalidAccountData = errors.New("invalid pool account data")

// Pool is the persistent record of one trading pair. Field order is the
// borsh layout of the account.
type Pool struct {
	Index          uint64           `json:"index"`
	BaseMint       solana.PublicKey `json:"base_mint"`
	QuoteMint      solana.PublicKey `json:"quote_mint"`
	BaseVault      solana.PublicKey `json:"base_vault"`
	QuoteVault     solana.PublicKey `json:"quote_vault"`
	LPMint         solana.PublicKey `json:"lp_mint"`
	Creator        solana.PublicKey `json:"creator"`
	LPDecimals     uint8            `json:"lp_decimals"`
	FeeBps         uint16           `json:"fee_bps"`
	VaultScheme    uint8            `json:"vault_scheme"`
	BaseReserve    uint64           `json:"base_reserve"`
	QuoteReserve   uint64           `json:"quote_reserve"`
	OpenTime       int64            `json:"open_time"`
	Bump           uint8            `json:"bump"`
	BaseVaultBump  uint8            `json:"base_vault_bump"`
	QuoteVaultBump uint8            `json:"quote_vault_bump"`
	LPMintBump     uint8            `json:"lp_mint_bump"`
}

// Vault returns the vault address holding the given side.
func (p Pool) Vault(side Side) solana.PublicKey {
	if side == SideQuote {
		return p.QuoteVault
	}
	return p.BaseVault
}

// Mint returns the asset mint of the given side.
func (p Pool) Mint(side Side) solana.PublicKey {
	if side == SideQuote {
		return p.QuoteMint
	}
	return p.BaseMint
}

// MarshalAccount encodes the pool as discriminator || borsh(pool).
func (p Pool) MarshalAccount() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(PoolDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(p); err != nil {
		return nil, fmt.Errorf("encode pool: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalAccount decodes bytes produced by MarshalAccount.
func (p *Pool) UnmarshalAccount(data []byte) error {
	if len(data) < len(PoolDiscriminator) || !bytes.Equal(data[:len(PoolDiscriminator)], PoolDiscriminator[:]) {
		return ErrInvalidAccountData
	}
	if err := bin.NewBorshDecoder(data[len(PoolDiscriminator):]).Decode(p); err != nil {
		return fmt.Errorf("decode pool: %w", err)
	}
	return nil
}
