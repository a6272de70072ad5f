package ldap

import (
	"bytes"

	"github.com/MultifactorLab/MultiDirectory/internal/ber"
)

// Attribute is a PartialAttribute with the "at least one value" constraint
// from RFC 4511's AddRequest/SearchResultEntry grammar. PartialAttribute
// itself (zero-or-more values, as used in Modify) reuses this same struct;
// Go has no dependent-typing way to express the size constraint, and the
// teacher's own code didn't bother either.
type Attribute struct {
	Description string
	Values      []string
}

// AttributeValueAssertion ::= SEQUENCE {
//
//	attributeDesc   AttributeDescription,
//	assertionValue  AssertionValue }
type AttributeValueAssertion struct {
	Description string
	Value       string
}

// GetAttribute decodes an Attribute/PartialAttribute SEQUENCE.
func GetAttribute(data []byte) (attr Attribute, err error) {
	seq, err := ber.GetSequence(data)
	if err != nil {
		return
	}
	if len(seq) < 2 {
		err = ber.ErrWrongSequenceLength.WithInfo("LDAPAttribute sequence length", len(seq))
		return
	}
	if seq[0].Type != ber.TypeOctetString {
		err = ber.ErrWrongElementType.WithInfo("LDAPAttribute description type", seq[0].Type)
		return
	}
	attr.Description = ber.GetOctetString(seq[0].Data)
	if seq[1].Type != ber.TypeSet {
		err = ber.ErrWrongElementType.WithInfo("LDAPAttribute vals type", seq[1].Type)
		return
	}
	vset, err := ber.GetSet(seq[1].Data)
	if err != nil {
		return
	}
	for _, rv := range vset {
		if rv.Type != ber.TypeOctetString {
			err = ber.ErrWrongElementType.WithInfo("AttributeValue type", rv.Type)
			return
		}
		attr.Values = append(attr.Values, ber.GetOctetString(rv.Data))
	}
	return
}

// GetAttributeValueAssertion decodes an AttributeValueAssertion SEQUENCE.
func GetAttributeValueAssertion(data []byte) (*AttributeValueAssertion, error) {
	seq, err := ber.GetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 2 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("AttributeValueAssertion sequence length", len(seq))
	}
	if seq[0].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("AttributeValueAssertion attributeDesc type", seq[0].Type)
	}
	if seq[1].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("AttributeValueAssertion assertionValue type", seq[1].Type)
	}
	return &AttributeValueAssertion{
		Description: ber.GetOctetString(seq[0].Data),
		Value:       ber.GetOctetString(seq[1].Data),
	}, nil
}

// Encode returns the BER-encoded SEQUENCE body (without element header).
func (a *Attribute) Encode() []byte {
	b := bytes.NewBuffer(nil)
	b.Write(ber.EncodeOctetString(a.Description))
	vb := bytes.NewBuffer(nil)
	for _, v := range a.Values {
		vb.Write(ber.EncodeOctetString(v))
	}
	b.Write(ber.EncodeSet(vb.Bytes()))
	return b.Bytes()
}
