package ldap

import "github.com/MultifactorLab/MultiDirectory/internal/ber"

// ModifyDNRequest ::= [APPLICATION 12] SEQUENCE {
//
//	entry        LDAPDN,
//	newrdn       RelativeLDAPDN,
//	deleteoldrdn BOOLEAN,
//	newSuperior  [0] LDAPDN OPTIONAL }
type ModifyDNRequest struct {
	Object       string
	NewRDN       string
	DeleteOldRDN bool
	NewSuperior  string
}

// GetModifyDNRequest decodes a ModifyDNRequest SEQUENCE body.
func GetModifyDNRequest(data []byte) (*ModifyDNRequest, error) {
	seq, err := ber.GetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 3 && len(seq) != 4 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("ModifyDNRequest sequence length", len(seq))
	}
	if seq[0].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("ModifyDNRequest entry type", seq[0].Type)
	}
	entry := ber.GetOctetString(seq[0].Data)
	if seq[1].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("ModifyDNRequest new RDN type", seq[1].Type)
	}
	newRDN := ber.GetOctetString(seq[1].Data)
	if seq[2].Type != ber.TypeBoolean {
		return nil, ber.ErrWrongElementType.WithInfo("ModifyDNRequest delete old RDN type", seq[2].Type)
	}
	deleteOldRDN, err := ber.GetBoolean(seq[2].Data)
	if err != nil {
		return nil, err
	}
	newSuperior := ""
	if len(seq) == 4 {
		if seq[3].Type != ber.ContextSpecificType(0, false) {
			return nil, ber.ErrWrongElementType.WithInfo("ModifyDNRequest new superior type", seq[3].Type)
		}
		newSuperior = ber.GetOctetString(seq[3].Data)
	}
	return &ModifyDNRequest{entry, newRDN, deleteOldRDN, newSuperior}, nil
}
