package accountevent

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a smallest-unit integer with the given decimals,
// trailing zeros trimmed.
func FormatAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, int32(-decimals)).String()
}

func formatString(amount string, decimals int) string {
	v, ok := parseValue(amount)
	if !ok {
		return "0"
	}
	return FormatAmount(v, decimals)
}

func jettonUnit(j JettonPreview) string {
	if j.Symbol != "" {
		return j.Symbol
	}
	if j.Name != "" {
		return j.Name
	}
	return "jettons"
}

func accounts(list ...*AccountAddress) []AccountAddress {
	out := make([]AccountAddress, 0, len(list))
	for _, a := range list {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out
}

func tonTransferPreview(a *TonTransferAction) SimplePreview {
	v := formatString(a.Amount, defaultDecimals)
	return SimplePreview{
		Name:        "Ton Transfer",
		Description: fmt.Sprintf("Transferring %s TON", v),
		Value:       v + " TON",
		Accounts:    accounts(&a.Sender, &a.Recipient),
	}
}

func jettonTransferPreview(a *JettonTransferAction) SimplePreview {
	v := formatString(a.Amount, a.Jetton.Decimals)
	unit := jettonUnit(a.Jetton)
	return SimplePreview{
		Name:        "Jetton Transfer",
		Description: fmt.Sprintf("Transferring %s %s", v, unit),
		Value:       v + " " + unit,
		ValueImage:  a.Jetton.Image,
		Accounts:    accounts(a.Sender, a.Recipient),
	}
}

func nftTransferPreview(a *NftItemTransferAction) SimplePreview {
	return SimplePreview{
		Name:        "NFT Transfer",
		Description: "Transferring NFT",
		Value:       "1 NFT",
		Accounts:    accounts(a.Sender, a.Recipient),
	}
}

func contractExecPreview(a *SmartContractExecAction) SimplePreview {
	v := formatString(a.TonAttached, defaultDecimals)
	return SimplePreview{
		Name:        "Smart Contract Execution",
		Description: fmt.Sprintf("Execution of smart contract, operation %s", a.Operation),
		Value:       v + " TON",
		Accounts:    accounts(&a.Executor, &a.Contract),
	}
}

func deployPreview(acc AccountAddress) SimplePreview {
	return SimplePreview{
		Name:        "Contract Deploy",
		Description: "Deploying a contract",
		Accounts:    []AccountAddress{acc},
	}
}

func swapPreview(a *JettonSwapAction) SimplePreview {
	in, out := swapSide(a.AmountIn, a.TonIn, a.JettonMasterIn), swapSide(a.AmountOut, a.TonOut, a.JettonMasterOut)
	return SimplePreview{
		Name:        "Swap Tokens",
		Description: fmt.Sprintf("Swapping %s for %s", in, out),
		Value:       in + " > " + out,
		Accounts:    accounts(&a.UserWallet, &a.Router),
	}
}

func swapSide(amount, ton string, j *JettonPreview) string {
	if j != nil && amount != "" {
		return formatString(amount, j.Decimals) + " " + jettonUnit(*j)
	}
	return formatString(ton, defaultDecimals) + " TON"
}

func unknownPreview() SimplePreview {
	return SimplePreview{Name: "Unknown", Description: "Something happened but we don't understand what", Accounts: []AccountAddress{}}
}
