// Package ipfs defines the network capabilities pinbot consumes and an
// implementation backed by a Kubo node's HTTP RPC API.
//
// The engine depends only on the Client interface; it never reaches into
// the node beyond these five operations.
package ipfs

import (
	"context"
	"time"
)

// PeerTypeProvider is the routing query event type carried by a response
// from a peer that advertises the object.
const PeerTypeProvider = 4

// Link is a named child of a container object.
type Link struct {
	Name          string
	TargetAddress string
	Size          int64
}

// Object is the metadata of a resolved object.
type Object struct {
	IsLeaf         bool
	CumulativeSize int64
	Links          []Link
}

// PeerResponse is a single routing event returned by a provider lookup.
type PeerResponse struct {
	PeerType  int
	PeerID    string
	Responses []PeerInfo
}

// PeerInfo identifies a peer inside a routing event.
type PeerInfo struct {
	PeerID string
}

// Client is the network capability interface.
//
// ResolveObject and FindProviders fail with *NetworkError, AddPin with
// *PinError and ValidateAddress with *InvalidAddressError.
type Client interface {
	ResolveObject(ctx context.Context, address string) (Object, error)
	FindProviders(ctx context.Context, address string, timeout time.Duration) ([]PeerResponse, error)
	AddPin(ctx context.Context, address string) error
	LocalNodeIdentity(ctx context.Context) (string, error)
	ValidateAddress(candidate string) (string, error)
}
