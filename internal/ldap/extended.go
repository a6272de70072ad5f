package ldap

import (
	"bytes"

	"github.com/MultifactorLab/MultiDirectory/internal/ber"
)

// ExtendedRequest ::= [APPLICATION 23] SEQUENCE {
//
//	requestName 	[0] LDAPOID,
//	requestValue    [1] OCTET STRING OPTIONAL }
type ExtendedRequest struct {
	Name  OID
	Value string
}

// ExtendedResponse ::= [APPLICATION 24] SEQUENCE {
//
//	COMPONENTS OF LDAPResult,
//	responseName     [10] LDAPOID OPTIONAL,
//	responseValue    [11] OCTET STRING OPTIONAL }
type ExtendedResult struct {
	Result
	ResponseName  OID
	ResponseValue string
}

// GetExtendedRequest decodes an ExtendedRequest SEQUENCE body.
func GetExtendedRequest(data []byte) (*ExtendedRequest, error) {
	seq, err := ber.GetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 1 && len(seq) != 2 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("LDAPExtendedRequest sequence length", len(seq))
	}
	if seq[0].Type.Class() != ber.ClassContextSpecific && seq[0].Type.TagNumber() != 0 {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPExtendedRequest name type", seq[0].Type)
	}
	oid := OID(ber.GetOctetString(seq[0].Data))
	if err = oid.Validate(); err != nil {
		return nil, err
	}
	value := ""
	if len(seq) == 2 {
		if seq[1].Type.Class() != ber.ClassContextSpecific && seq[1].Type.TagNumber() != 1 {
			return nil, ber.ErrWrongElementType.WithInfo("LDAPExtendedRequest value type", seq[1].Type)
		}
		value = ber.GetOctetString(seq[1].Data)
	}
	return &ExtendedRequest{
		Name:  oid,
		Value: value,
	}, nil
}

// Encode returns the BER-encoded SEQUENCE body (without element header).
func (r *ExtendedResult) Encode() []byte {
	data := bytes.NewBuffer(r.Result.Encode())
	if r.ResponseName != "" {
		data.Write(ber.EncodeElement(ber.ContextSpecificType(10, false), ber.EncodeOctetString(string(r.ResponseName))))
	}
	if r.ResponseValue != "" {
		data.Write(ber.EncodeElement(ber.ContextSpecificType(11, false), ber.EncodeOctetString(r.ResponseValue)))
	}
	return data.Bytes()
}
