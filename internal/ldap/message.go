package ldap

import (
	"bytes"
	"errors"
	"io"

	"github.com/MultifactorLab/MultiDirectory/internal/ber"
)

// MessageID ::= INTEGER (0 .. maxInt)
type MessageID uint32

// Control ::= SEQUENCE {
//
//	controlType      LDAPOID,
//	criticality      BOOLEAN DEFAULT FALSE,
//	controlValue     OCTET STRING OPTIONAL }
type Control struct {
	OID          OID
	Criticality  bool
	ControlValue string
}

// Message is an LDAPMessage with its protocolOp left undecoded, since
// decoding requires knowing which operation tag to expect.
type Message struct {
	MessageID  MessageID
	ProtocolOp ber.RawElement
	Controls   []Control
}

// ReadMessage reads one LDAPMessage from r, leaving ProtocolOp undecoded.
func ReadMessage(r io.Reader) (*Message, error) {
	raw, err := ber.ReadElement(r)
	if err != nil {
		return nil, err
	}
	if raw.Type != ber.TypeSequence {
		// A TLS ClientHello starts with content type 0x16, version 0x03xx -
		// a common mistake is pointing an LDAPS client at the plain port.
		if raw.Type == 0x16 && len(raw.Data) == 0x03 {
			return nil, errors.New("ldap: TLS connection attempted on non-TLS listener")
		}
		return nil, ber.ErrWrongElementType.WithInfo("LDAPMessage type", raw.Type)
	}
	seq, err := ber.GetSequence(raw.Data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 2 && len(seq) != 3 {
		return nil, ber.ErrWrongSequenceLength.WithInfo("LDAPMessage sequence length", len(seq))
	}
	if seq[0].Type != ber.TypeInteger {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPMessage messageID type", seq[0].Type)
	}
	messageID, err := ber.GetInteger(seq[0].Data)
	if err != nil {
		return nil, err
	}
	if messageID < 0 || messageID > 2147483647 {
		return nil, ber.ErrInvalidMessageID.WithInfo("LDAPMessage messageID", messageID)
	}

	controls, err := decodeControls(seq)
	if err != nil {
		return nil, err
	}

	return &Message{
		MessageID:  MessageID(messageID),
		ProtocolOp: seq[1],
		Controls:   controls,
	}, nil
}

func decodeControls(seq []ber.RawElement) ([]Control, error) {
	controls := []Control{}
	if len(seq) != 3 {
		return controls, nil
	}
	if seq[2].Type != ber.ContextSpecificType(0, true) {
		return nil, ber.ErrWrongElementType.WithInfo("LDAPControl type", seq[2].Type)
	}
	cseq, err := ber.GetSequence(seq[2].Data)
	if err != nil {
		return nil, err
	}
	for _, c := range cseq {
		if c.Type != ber.TypeSequence {
			return nil, ber.ErrWrongElementType.WithInfo("LDAPControl type", c.Type)
		}
		cparts, err := ber.GetSequence(c.Data)
		if err != nil {
			return nil, err
		}
		if len(cparts) < 1 || len(cparts) > 3 {
			return nil, ber.ErrWrongSequenceLength.WithInfo("LDAPControl sequence length", len(cparts))
		}
		if cparts[0].Type != ber.TypeOctetString {
			return nil, ber.ErrWrongElementType.WithInfo("LDAPControl OID type", cparts[0].Type)
		}
		oid := OID(ber.GetOctetString(cparts[0].Data))
		if err := oid.Validate(); err != nil {
			return nil, err
		}
		criticality := false
		cvi := 2
		if len(cparts) > 1 && cparts[1].Type != ber.TypeOctetString {
			if cparts[1].Type != ber.TypeBoolean {
				return nil, ber.ErrWrongElementType.WithInfo("LDAPControl criticality type", cparts[1].Type)
			}
			criticality, err = ber.GetBoolean(cparts[1].Data)
			if err != nil {
				return nil, err
			}
		} else {
			cvi = 1
		}
		controlvalue := ""
		if len(cparts) == cvi+1 {
			if cparts[cvi].Type != ber.TypeOctetString {
				return nil, ber.ErrWrongElementType.WithInfo("LDAPControl control value type", cparts[cvi].Type)
			}
			controlvalue = ber.GetOctetString(cparts[cvi].Data)
		}
		controls = append(controls, Control{OID: oid, Criticality: criticality, ControlValue: controlvalue})
	}
	return controls, nil
}

// EncodeWithHeader returns the full BER encoding of msg, header included.
func (msg *Message) EncodeWithHeader() []byte {
	data := bytes.NewBuffer(nil)
	data.Write(ber.EncodeInteger(int64(msg.MessageID)))
	data.Write(ber.EncodeElement(msg.ProtocolOp.Type, msg.ProtocolOp.Data))
	if len(msg.Controls) > 0 {
		csdata := bytes.NewBuffer(nil)
		for _, ctrl := range msg.Controls {
			cdata := bytes.NewBuffer(nil)
			cdata.Write(ber.EncodeOctetString(string(ctrl.OID)))
			if ctrl.Criticality {
				cdata.Write(ber.EncodeBoolean(ctrl.Criticality))
			}
			if ctrl.ControlValue != "" {
				cdata.Write(ber.EncodeOctetString(ctrl.ControlValue))
			}
			csdata.Write(ber.EncodeSequence(cdata.Bytes()))
		}
		data.Write(ber.EncodeElement(ber.ContextSpecificType(0, true), csdata.Bytes()))
	}
	return ber.EncodeSequence(data.Bytes())
}
