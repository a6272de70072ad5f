package ldap

import "github.com/MultifactorLab/MultiDirectory/internal/ber"

// AddRequest ::= [APPLICATION 8] SEQUENCE {
//
//	entry           LDAPDN,
//	attributes      AttributeList }
//
// AttributeList ::= SEQUENCE OF attribute Attribute
type AddRequest struct {
	Entry      string
	Attributes []Attribute
}

// GetAddRequest decodes an AddRequest SEQUENCE body.
func GetAddRequest(data []byte) (*AddRequest, error) {
	seq, err := ber.GetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 2 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("LDAPAddRequest sequence length", len(seq))
	}
	if seq[0].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPAddRequest entry type", seq[0].Type)
	}
	entry := ber.GetOctetString(seq[0].Data)
	if seq[1].Type != ber.TypeSequence {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPAddRequest attributes type", seq[1].Type)
	}
	aseq, err := ber.GetSequence(seq[1].Data)
	if err != nil {
		return nil, err
	}
	var attributes []Attribute
	for _, ra := range aseq {
		if ra.Type != ber.TypeSequence {
			return nil, ber.ErrWrongElementType.WithInfo("LDAPAttribute type", ra.Type)
		}
		attr, err := GetAttribute(ra.Data)
		if err != nil {
			return nil, err
		}
		attributes = append(attributes, attr)
	}
	return &AddRequest{
		Entry:      entry,
		Attributes: attributes,
	}, nil
}
