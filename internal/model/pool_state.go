package model

// PoolState is a point-in-time view of a pool used by sinks and the CLI.
type PoolState struct {
	Program      string `json:"program"`
	Address      string `json:"address"`
	Index        uint64 `json:"index"`
	BaseMint     string `json:"base_mint"`
	QuoteMint    string `json:"quote_mint"`
	BaseVault    string `json:"base_vault"`
	QuoteVault   string `json:"quote_vault"`
	LPMint       string `json:"lp_mint"`
	LPDecimals   uint8  `json:"lp_decimals"`
	LPSupply     uint64 `json:"lp_supply"`
	BaseReserve  uint64 `json:"base_reserve"`
	QuoteReserve uint64 `json:"quote_reserve"`
	FeeBps       uint16 `json:"fee_bps"`
	OpenTime     int64  `json:"open_time"`
	LastSeq      uint64 `json:"last_seq"`
}
