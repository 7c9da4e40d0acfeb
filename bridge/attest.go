package bridge

import (
	"github.com/TEENet-io/tokenbridge/signers"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Attestation is a validator's signature over a message for one endpoint.
type Attestation struct {
	Message   *Message
	Endpoint  ethcommon.Address
	Validator ethcommon.Address
	Signature []byte
}

// Attest signs msg for submission to the endpoint at `endpoint`.
func Attest(signer signers.Signer, msg *Message, endpoint ethcommon.Address) (*Attestation, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	hash := msg.SigningHash(endpoint)
	sig, err := signer.Sign(hash.Bytes())
	if err != nil {
		return nil, err
	}
	return &Attestation{
		Message:   msg.Clone(),
		Endpoint:  endpoint,
		Validator: signer.Address(),
		Signature: sig,
	}, nil
}
