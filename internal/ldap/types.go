package ldap

import "github.com/MultifactorLab/MultiDirectory/internal/ber"

// Protocol-op application tags, per RFC 4511 §4.2 onward.
const (
	TypeBindRequestOp           ber.Type = 0b01100000
	TypeBindResponseOp          ber.Type = 0b01100001
	TypeUnbindRequestOp         ber.Type = 0b01000010
	TypeSearchRequestOp         ber.Type = 0b01100011
	TypeSearchResultEntryOp     ber.Type = 0b01100100
	TypeSearchResultDoneOp      ber.Type = 0b01100101
	TypeModifyRequestOp         ber.Type = 0b01100110
	TypeModifyResponseOp        ber.Type = 0b01100111
	TypeAddRequestOp            ber.Type = 0b01101000
	TypeAddResponseOp           ber.Type = 0b01101001
	TypeDeleteRequestOp         ber.Type = 0b01001010
	TypeDeleteResponseOp        ber.Type = 0b01101011
	TypeModifyDNRequestOp       ber.Type = 0b01101100
	TypeModifyDNResponseOp      ber.Type = 0b01101101
	TypeCompareRequestOp        ber.Type = 0b01101110
	TypeCompareResponseOp       ber.Type = 0b01101111
	TypeAbandonRequestOp        ber.Type = 0b01010000
	TypeSearchResultReferenceOp ber.Type = 0b01110011
	TypeExtendedRequestOp       ber.Type = 0b01110111
	TypeExtendedResponseOp      ber.Type = 0b01111000
	TypeIntermediateResponseOp  ber.Type = 0b01111001
)
