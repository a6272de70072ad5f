package ldap

import "github.com/MultifactorLab/MultiDirectory/internal/ber"

// ModifyRequest ::= [APPLICATION 6] SEQUENCE {
//
//	object   LDAPDN,
//	changes  SEQUENCE OF change SEQUENCE {
//		operation ENUMERATED {
//			add     (0),
//			delete  (1),
//			replace (2) },
//		modification Attribute }
type ModifyRequest struct {
	Object  string
	Changes []ModifyChange
}

type ModifyChange struct {
	Operation    ModifyOperation
	Modification Attribute
}

type ModifyOperation uint8

// Defined operations.
const (
	ModifyAdd     ModifyOperation = 0
	ModifyDelete  ModifyOperation = 1
	ModifyReplace ModifyOperation = 2
	// extensible, more possible
)

// GetModifyRequest decodes a ModifyRequest SEQUENCE body.
func GetModifyRequest(data []byte) (*ModifyRequest, error) {
	seq, err := ber.GetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 2 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("ModifyRequest sequence length", len(seq))
	}
	if seq[0].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("ModifyRequest object type", seq[0].Type)
	}
	object := ber.GetOctetString(seq[0].Data)
	if seq[1].Type != ber.TypeSequence {
		return nil, ber.ErrWrongElementType.WithInfo("ModifyRequest changes type", seq[1].Type)
	}
	chSeq, err := ber.GetSequence(seq[1].Data)
	if err != nil {
		return nil, err
	}
	var changes []ModifyChange
	for _, c := range chSeq {
		if c.Type != ber.TypeSequence {
			return nil, ber.ErrWrongElementType.WithInfo("ModifyRequest change type", c.Type)
		}
		cSeq, err := ber.GetSequence(c.Data)
		if err != nil {
			return nil, err
		}
		if len(cSeq) != 2 {
			return nil, ber.ErrWrongSequenceLength.WithInfo("ModifyRequest change sequence length", len(cSeq))
		}
		if cSeq[0].Type != ber.TypeEnumerated {
			return nil, ber.ErrWrongElementType.WithInfo("ModifyRequest change operation type", cSeq[0].Type)
		}
		op, err := ber.GetEnumerated(cSeq[0].Data)
		if err != nil {
			return nil, err
		}
		if cSeq[1].Type != ber.TypeSequence {
			return nil, ber.ErrWrongElementType.WithInfo("ModifyRequest change modification type", cSeq[1].Type)
		}
		attr, err := GetAttribute(cSeq[1].Data)
		if err != nil {
			return nil, err
		}
		changes = append(changes, ModifyChange{Operation: ModifyOperation(op), Modification: attr})
	}
	return &ModifyRequest{Object: object, Changes: changes}, nil
}
