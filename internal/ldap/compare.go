package ldap

import "github.com/MultifactorLab/MultiDirectory/internal/ber"

// CompareRequest ::= [APPLICATION 14] SEQUENCE {
//
//	entry   LDAPDN,
//	ava     AttributeValueAssertion }
//
// AttributeValueAssertion ::= SEQUENCE {
//
//	attributeDesc   AttributeDescription,
//	assertionValue  AssertionValue }
//
// AttributeDescription ::= LDAPString
// AssertionValue ::= OCTET STRING
type CompareRequest struct {
	Object    string
	Attribute string
	Value     string
}

// GetCompareRequest decodes a CompareRequest SEQUENCE body.
func GetCompareRequest(data []byte) (*CompareRequest, error) {
	seq, err := ber.GetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 2 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("CompareRequest sequence length", len(seq))
	}
	if seq[0].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("CompareRequest object type", seq[0].Type)
	}
	object := ber.GetOctetString(seq[0].Data)
	if seq[1].Type != ber.TypeSequence {
		return nil, ber.ErrWrongElementType.WithInfo("CompareRequest ava type", seq[1].Type)
	}
	avaSeq, err := ber.GetSequence(seq[1].Data)
	if err != nil {
		return nil, err
	}
	if len(avaSeq) != 2 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("CompareRequest ava sequence length", len(avaSeq))
	}
	if avaSeq[0].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("CompareRequest attribute description type", avaSeq[0].Type)
	}
	description := ber.GetOctetString(avaSeq[0].Data)
	if avaSeq[1].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("CompareRequest assertion value type", avaSeq[1].Type)
	}
	value := ber.GetOctetString(avaSeq[1].Data)
	return &CompareRequest{object, description, value}, nil
}
