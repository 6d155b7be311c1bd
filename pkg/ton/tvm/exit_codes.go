package tvm

import "fmt"

// ExitCode is the compute phase exit code of a transaction, or the result code
// of its action phase.
// See https://docs.ton.org/v3/documentation/tvm/tvm-exit-codes
type ExitCode int32

const (
	ExitCodeSuccess                ExitCode = 0
	ExitCodeSuccessAlt             ExitCode = 1
	ExitCodeStackUnderflow         ExitCode = 2
	ExitCodeStackOverflow          ExitCode = 3
	ExitCodeIntegerOverflow        ExitCode = 4
	ExitCodeRangeCheck             ExitCode = 5
	ExitCodeInvalidOpcode          ExitCode = 6
	ExitCodeTypeCheck              ExitCode = 7
	ExitCodeCellOverflow           ExitCode = 8
	ExitCodeCellUnderflow          ExitCode = 9
	ExitCodeDictionaryError        ExitCode = 10
	ExitCodeUnknownError           ExitCode = 11
	ExitCodeFatalError             ExitCode = 12
	ExitCodeOutOfGas               ExitCode = 13
	ExitCodeOutOfGasNegative       ExitCode = -14
	ExitCodeActionListInvalid      ExitCode = 32
	ExitCodeActionListTooLong      ExitCode = 33
	ExitCodeActionInvalid          ExitCode = 34
	ExitCodeInvalidSourceAddr      ExitCode = 35
	ExitCodeInvalidDestinationAddr ExitCode = 36
	ExitCodeNotEnoughTon           ExitCode = 37
	ExitCodeNotEnoughExtra         ExitCode = 38
	ExitCodeMessageTooLarge        ExitCode = 40
	ExitCodeStateSizeExceeded      ExitCode = 50

	// wallet contracts
	ExitCodeWalletBadSeqno     ExitCode = 33
	ExitCodeWalletBadSubwallet ExitCode = 34
	ExitCodeWalletBadSignature ExitCode = 35
	ExitCodeWalletExpired      ExitCode = 36

	// TEP-62 / TEP-74 reference implementations
	ExitCodeNftNotOwner           ExitCode = 401
	ExitCodeNftNotEnoughTon       ExitCode = 402
	ExitCodeJettonUnauthorized    ExitCode = 705
	ExitCodeJettonNotEnoughFunds  ExitCode = 706
	ExitCodeJettonWrongWorkchain  ExitCode = 333
	ExitCodeJettonNotEnoughForFee ExitCode = 709
	ExitCodeUnknownOp             ExitCode = 0xffff
)

var computeNames = map[ExitCode]string{
	ExitCodeSuccess:               "Success",
	ExitCodeSuccessAlt:            "Success",
	ExitCodeStackUnderflow:        "Stack underflow",
	ExitCodeStackOverflow:         "Stack overflow",
	ExitCodeIntegerOverflow:       "Integer overflow",
	ExitCodeRangeCheck:            "Integer out of expected range",
	ExitCodeInvalidOpcode:         "Invalid opcode",
	ExitCodeTypeCheck:             "Type check error",
	ExitCodeCellOverflow:          "Cell overflow",
	ExitCodeCellUnderflow:         "Cell underflow",
	ExitCodeDictionaryError:       "Dictionary error",
	ExitCodeUnknownError:          "Unknown error",
	ExitCodeFatalError:            "Fatal error",
	ExitCodeOutOfGas:              "Out of gas",
	ExitCodeOutOfGasNegative:      "Out of gas",
	ExitCodeWalletBadSeqno:        "Invalid seqno",
	ExitCodeWalletBadSubwallet:    "Invalid subwallet id",
	ExitCodeWalletBadSignature:    "Invalid signature",
	ExitCodeWalletExpired:         "Message expired",
	ExitCodeNftNotOwner:           "Sender is not the NFT owner",
	ExitCodeNftNotEnoughTon:       "Not enough TON to transfer NFT",
	ExitCodeJettonWrongWorkchain:  "Wrong workchain",
	ExitCodeJettonUnauthorized:    "Unauthorized jetton transfer",
	ExitCodeJettonNotEnoughFunds:  "Not enough jettons",
	ExitCodeJettonNotEnoughForFee: "Not enough TON to pay jetton fees",
	ExitCodeUnknownOp:             "Unknown operation",
}

// Action phase result codes overlap with wallet compute codes, so they resolve separately.
var actionNames = map[ExitCode]string{
	ExitCodeSuccess:                "Success",
	ExitCodeActionListInvalid:      "Action list is invalid",
	ExitCodeActionListTooLong:      "Action list is too long",
	ExitCodeActionInvalid:          "Action is invalid or not supported",
	ExitCodeInvalidSourceAddr:      "Invalid source address in outbound message",
	ExitCodeInvalidDestinationAddr: "Invalid destination address in outbound message",
	ExitCodeNotEnoughTon:           "Not enough Toncoin",
	ExitCodeNotEnoughExtra:         "Not enough extra currencies",
	ExitCodeMessageTooLarge:        "Cannot process a message",
	ExitCodeStateSizeExceeded:      "Account state size exceeded limits",
}

// Describe names a compute phase exit code.
func (c ExitCode) Describe() string {
	if name, ok := computeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Non-standard exit code: %d", c)
}

// DescribeAction names an action phase result code.
func (c ExitCode) DescribeAction() string {
	if name, ok := actionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Non-standard action result code: %d", c)
}

func (c ExitCode) IsSuccess() bool {
	return c == ExitCodeSuccess || c == ExitCodeSuccessAlt
}
