package anchor

import "crypto/sha256"

// GetDiscriminator returns the 8 byte Anchor discriminator for namespace:name.
// Instructions use the "global" namespace, accounts use "account".
func GetDiscriminator(namespace string, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:8]
}

// AccountDiscriminator returns the discriminator Anchor writes at the start of an
// account of the given type.
func AccountDiscriminator(typeName string) []byte {
	return GetDiscriminator("account", typeName)
}
