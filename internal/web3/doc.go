// Package web3 describes the EVM chains the wallet can talk to: chain
// descriptors, the canonical catalog of supported networks, chain name
// normalisation, unit conversion and the narrow client capability the rest of
// the module builds on. Network I/O lives in the ethereum and provider
// subpackages.
package web3
