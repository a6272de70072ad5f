package ldap

import (
	"bytes"

	"github.com/MultifactorLab/MultiDirectory/internal/ber"
)

// ResultCode is an LDAPResult resultCode value (RFC 4511 §4.1.9).
type ResultCode uint32

// Defined result codes this server can return.
const (
	ResultSuccess                  ResultCode = 0
	ResultOperationsError          ResultCode = 1
	ResultProtocolError            ResultCode = 2
	ResultTimeLimitExceeded        ResultCode = 3
	ResultSizeLimitExceeded        ResultCode = 4
	ResultCompareFalse             ResultCode = 5
	ResultCompareTrue              ResultCode = 6
	ResultAuthMethodNotSupported   ResultCode = 7
	ResultStrongerAuthRequired     ResultCode = 8
	ResultReferral                 ResultCode = 10
	ResultAdminLimitExceeded       ResultCode = 11
	ResultUnavailableCritExtension ResultCode = 12
	ResultConfidentialityRequired  ResultCode = 13
	ResultSaslBindInProgress       ResultCode = 14
	ResultNoSuchAttribute          ResultCode = 16
	ResultUndefinedAttributeType   ResultCode = 17
	ResultInappropriateMatching    ResultCode = 18
	ResultConstraintViolation      ResultCode = 19
	ResultAttributeOrValueExists   ResultCode = 20
	ResultInvalidAttributeSyntax   ResultCode = 21
	ResultNoSuchObject             ResultCode = 32
	ResultAliasProblem             ResultCode = 33
	ResultInvalidDNSyntax          ResultCode = 34
	ResultAliasDereferencingProb   ResultCode = 36
	ResultInappropriateAuth        ResultCode = 48
	ResultInvalidCredentials       ResultCode = 49
	ResultInsufficientAccessRights ResultCode = 50
	ResultBusy                     ResultCode = 51
	ResultUnavailable              ResultCode = 52
	ResultUnwillingToPerform       ResultCode = 53
	ResultLoopDetect               ResultCode = 54
	ResultNamingViolation          ResultCode = 64
	ResultObjectClassViolation     ResultCode = 65
	ResultNotAllowedOnNonLeaf      ResultCode = 66
	ResultNotAllowedOnRDN          ResultCode = 67
	ResultEntryAlreadyExists       ResultCode = 68
	ResultObjectClassModsProhib   ResultCode = 69
	ResultAffectsMultipleDSAs      ResultCode = 71
	ResultOther                    ResultCode = 80
)

// Result ::= SEQUENCE {
//
//	resultCode         ENUMERATED { ... },
//	matchedDN          LDAPDN,
//	diagnosticMessage  LDAPString,
//	referral           [3] Referral OPTIONAL }
type Result struct {
	ResultCode        ResultCode
	MatchedDN         string
	DiagnosticMessage string
	Referral          []string
}

// IntermediateResponse ::= [APPLICATION 25] SEQUENCE {
//
//	responseName     [0] LDAPOID OPTIONAL,
//	responseValue    [1] OCTET STRING OPTIONAL }
type IntermediateResponse struct {
	Name  string
	Value string
}

// GetResult decodes an LDAPResult SEQUENCE body.
func GetResult(data []byte) (*Result, error) {
	seq, err := ber.GetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 3 && len(seq) != 4 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("LDAPResult sequence length", len(seq))
	}
	if seq[0].Type != ber.TypeEnumerated {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPResult result code type", seq[0].Type)
	}
	resultCode, err := ber.GetInteger(seq[0].Data)
	if err != nil {
		return nil, err
	}
	if seq[1].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPResult matched DN type", seq[1].Type)
	}
	matchedDN := ber.GetOctetString(seq[1].Data)
	if seq[2].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPResult diagnostic message type", seq[2].Type)
	}
	diagnosticMsg := ber.GetOctetString(seq[2].Data)
	var referral []string
	if len(seq) == 4 {
		if seq[3].Type.Class() != ber.ClassContextSpecific || seq[3].Type.TagNumber() != 3 {
			return nil, ber.ErrWrongElementType.WithInfo("LDAPResult referral type", seq[3].Type)
		}
		rseq, err := ber.GetSequence(seq[3].Data)
		if err != nil {
			return nil, err
		}
		for _, rr := range rseq {
			referral = append(referral, ber.GetOctetString(rr.Data))
		}
	}
	return &Result{
		ResultCode:        ResultCode(resultCode),
		MatchedDN:         matchedDN,
		DiagnosticMessage: diagnosticMsg,
		Referral:          referral,
	}, nil
}

// Encode returns the BER-encoded SEQUENCE body (without element header).
func (r *Result) Encode() []byte {
	w := bytes.NewBuffer(nil)
	w.Write(ber.EncodeEnumerated(int64(r.ResultCode)))
	w.Write(ber.EncodeOctetString(r.MatchedDN))
	w.Write(ber.EncodeOctetString(r.DiagnosticMessage))
	if len(r.Referral) > 0 {
		referrals := bytes.NewBuffer(nil)
		for _, ref := range r.Referral {
			referrals.Write(ber.EncodeOctetString(ref))
		}
		w.Write(ber.EncodeElement(ber.ContextSpecificType(3, true), referrals.Bytes()))
	}
	return w.Bytes()
}

// Encode returns the BER-encoded SEQUENCE body (without element header).
func (r *IntermediateResponse) Encode() []byte {
	w := bytes.NewBuffer(nil)
	if r.Name != "" {
		w.Write(ber.EncodeElement(ber.ContextSpecificType(0, false), ber.EncodeOctetString(r.Name)))
	}
	if r.Value != "" {
		w.Write(ber.EncodeElement(ber.ContextSpecificType(1, false), ber.EncodeOctetString(r.Value)))
	}
	return w.Bytes()
}

// AsResult builds a Result carrying this code and diagnostic message.
func (r ResultCode) AsResult(diagnosticMessage string) *Result {
	return &Result{ResultCode: r, DiagnosticMessage: diagnosticMessage}
}

// AsResultWithDN builds a Result carrying this code, diagnostic message,
// and matchedDN — the naming-context anchor RFC 4511 expects on most
// responses, success or failure.
func (r ResultCode) AsResultWithDN(diagnosticMessage, matchedDN string) *Result {
	return &Result{ResultCode: r, DiagnosticMessage: diagnosticMessage, MatchedDN: matchedDN}
}

// ProtocolError is returned when a request could not be decoded.
var ProtocolError = &Result{
	ResultCode:        ResultProtocolError,
	DiagnosticMessage: "the server could not understand the request",
}

// UnsupportedOperation is returned for requests this server does not implement.
var UnsupportedOperation = &Result{
	ResultCode:        ResultUnwillingToPerform,
	DiagnosticMessage: "the operation requested is not supported by the server",
}

// PermissionDenied is returned when the bound identity lacks rights for the operation.
var PermissionDenied = &Result{
	ResultCode:        ResultInsufficientAccessRights,
	DiagnosticMessage: "client has insufficient access rights to the requested resource",
}
