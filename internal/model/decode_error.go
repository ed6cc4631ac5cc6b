package model

// DecodeError records a log entry that could not be decoded into an event.
type DecodeError struct {
	Seq     uint64 `json:"seq"`
	TxID    string `json:"tx_id"`
	Program string `json:"program"`
	Prefix  string `json:"discriminator"`
	Error   string `json:"error"`
}
