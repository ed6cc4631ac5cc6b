package model

import "crypto/sha256"

// Discriminator prefixes borsh-encoded accounts and events.
type Discriminator [8]byte

func sighash(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:8])
	return d
}

// AccountDiscriminator follows the Anchor "account:<Name>" convention.
func AccountDiscriminator(name string) Discriminator {
	return sighash("account", name)
}

// EventDiscriminator follows the Anchor "event:<Name>" convention.
func EventDiscriminator(name string) Discriminator {
	return sighash("event", name)
}
