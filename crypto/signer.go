package crypto

// LocalSigner signs with a private key held in process. It satisfies the
// protocol's Signer capability for actors that manage their own keys, such
// as tests and the CLI; production deployments may substitute a remote
// signer without the core ever seeing key material.
type LocalSigner struct {
	key PrivateKey
}

// NewLocalSigner creates a signer bound to the given private key.
func NewLocalSigner(key PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// Sign produces an Ed25519 signature over data.
func (s *LocalSigner) Sign(data []byte) (Signature, error) {
	return Sign(s.key, data)
}

// Identity returns the public key the signer is bound to.
func (s *LocalSigner) Identity() (PublicKey, error) {
	return s.key.PublicKey()
}
