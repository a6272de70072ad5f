package ldap

import (
	"bytes"

	"github.com/MultifactorLab/MultiDirectory/internal/ber"
)

// AuthenticationType is a BindRequest authentication choice tag.
type AuthenticationType uint8

// Defined authentication type codes.
const (
	AuthenticationTypeSimple AuthenticationType = 0
	// 1-2 reserved
	AuthenticationTypeSASL AuthenticationType = 3
	// extensible, more possible
)

// SaslCredentials ::= SEQUENCE {
//
//	mechanism	LDAPString,
//	credentials	OCTET STRING OPTIONAL }
type SASLCredentials struct {
	Mechanism   string
	Credentials string
}

// BindRequest ::= [APPLICATION 0] SEQUENCE {
//
//	version         INTEGER (1 ..  127),
//	name            LDAPDN,
//	authentication	AuthenticationChoice }
//
// AuthenticationChoice ::= CHOICE {
//
//	simple	[0] OCTET STRING,
//			-- 1 and 2 reserved
//	sasl    [3] SaslCredentials,
//	...  }
type BindRequest struct {
	Version  uint8
	Name     string
	AuthType AuthenticationType
	// For Simple, a string.
	// For SASL, a pointer to a SASLCredentials struct.
	Credentials any
}

// BindResult ::= [APPLICATION 1] SEQUENCE {
//
//	COMPONENTS OF LDAPResult,
//	serverSaslCreds    [7] OCTET STRING OPTIONAL }
type BindResult struct {
	Result
	ServerSASLCredentials string
}

// GetBindRequest decodes a BindRequest SEQUENCE body.
func GetBindRequest(data []byte) (*BindRequest, error) {
	seq, err := ber.GetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 3 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("LDAPBindRequest sequence length", len(seq))
	}
	if seq[0].Type != ber.TypeInteger {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPBindRequest version type", seq[0].Type)
	}
	version, err := ber.GetInteger(seq[0].Data)
	if err != nil {
		return nil, err
	}
	if version < 1 || version > 127 {
		return nil, ber.ErrInvalidLDAPMessage
	}
	if seq[1].Type != ber.TypeOctetString {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPBindRequest name type", seq[1].Type)
	}
	name := ber.GetOctetString(seq[1].Data)
	if seq[2].Type.Class() != ber.ClassContextSpecific {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPBindRequest auth type", seq[2].Type)
	}
	authtype := AuthenticationType(seq[2].Type.TagNumber())
	var credentials any
	switch authtype {
	case AuthenticationTypeSimple:
		credentials = ber.GetOctetString(seq[2].Data)
	case AuthenticationTypeSASL:
		sseq, err := ber.GetSequence(seq[2].Data)
		if err != nil {
			return nil, err
		}
		if len(sseq) != 1 && len(sseq) != 2 {
			return nil, ber.ErrWrongSequenceLength.WithInfo("SASLCredentials sequence length", len(sseq))
		}
		if sseq[0].Type != ber.TypeOctetString {
			return nil, ber.ErrWrongElementType.WithInfo("SASLCredentials mechanism type", sseq[0].Type)
		}
		saslCredentials := ""
		if len(sseq) == 2 {
			if sseq[1].Type != ber.TypeOctetString {
				return nil, ber.ErrWrongElementType.WithInfo("SASLCredentials credentials type", sseq[1].Type)
			}
			saslCredentials = ber.GetOctetString(sseq[1].Data)
		}
		credentials = &SASLCredentials{
			Mechanism:   ber.GetOctetString(sseq[0].Data),
			Credentials: saslCredentials,
		}
	default:
		credentials = nil
	}
	return &BindRequest{
		Version:     uint8(version),
		Name:        name,
		AuthType:    authtype,
		Credentials: credentials,
	}, nil
}

// Encode returns the BER-encoded SEQUENCE body (without element header).
func (r *BindResult) Encode() []byte {
	if r.ServerSASLCredentials == "" {
		return r.Result.Encode()
	}
	b := bytes.NewBuffer(r.Result.Encode())
	b.Write(ber.EncodeElement(ber.ContextSpecificType(7, false), ber.EncodeOctetString(r.ServerSASLCredentials)))
	return b.Bytes()
}
