package models

import "github.com/shopspring/decimal"

// NftTransfer is an NftItemTransfer action from an indexed event
type NftTransfer struct {
	EventId   string
	Nft       string
	Sender    string // raw form, empty when minted
	Recipient string // raw form, empty when burned to nowhere
}

// ChainTransaction is the subset of an indexed transaction used for donations
type ChainTransaction struct {
	Hash        string
	Success     bool
	Account     string
	Source      string
	Destination string
	Value       int64 // nanotons carried by the inbound message
}

// JettonBalance is a holder's balance of one jetton
type JettonBalance struct {
	Raw      decimal.Decimal
	Decimals int32
}

// Amount returns the balance scaled by the jetton decimals
func (b JettonBalance) Amount() decimal.Decimal {
	return b.Raw.Shift(-b.Decimals)
}
