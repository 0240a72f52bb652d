// Package agent exposes the wallet actions to an agent runtime as the
// "lightlink" plugin: named actions with similes, parameter decoding,
// settings validation and the wallet summary provider.
package agent
