package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/roach88/pinbot/internal/ipfs"
)

// FakeClient is an in-memory ipfs.Client.
//
// Addresses are plain strings; ValidateAddress accepts anything starting
// with "Qm" or "baf" that contains no slash or whitespace, so tests can use
// readable names like "QmRootA". Every call is recorded.
//
// Thread-safety: safe for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	objects     map[string]ipfs.Object
	providers   map[string][]ipfs.PeerResponse
	failResolve map[string]bool
	failFind    map[string]bool
	failPin     map[string]bool
	invalid     map[string]bool

	identity    string
	identityErr error

	pinDelay func(address string) time.Duration

	resolveCalls []string
	findCalls    []string
	pins         []string
	inFlight     int
	maxInFlight  int
}

// NewFakeClient creates an empty fake node whose identity is "QmLocalPeer".
func NewFakeClient() *FakeClient {
	return &FakeClient{
		objects:     make(map[string]ipfs.Object),
		providers:   make(map[string][]ipfs.PeerResponse),
		failResolve: make(map[string]bool),
		failFind:    make(map[string]bool),
		failPin:     make(map[string]bool),
		invalid:     make(map[string]bool),
		identity:    "QmLocalPeer",
	}
}

// AddLeaf registers a file object.
func (f *FakeClient) AddLeaf(address string, size int64) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[address] = ipfs.Object{IsLeaf: true, CumulativeSize: size}
	return f
}

// AddDir registers a container object with the given links. Its cumulative
// size is the sum of the link sizes.
func (f *FakeClient) AddDir(address string, links ...ipfs.Link) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, l := range links {
		total += l.Size
	}
	f.objects[address] = ipfs.Object{CumulativeSize: total, Links: links}
	return f
}

// SetProviders sets the routing events returned for address.
func (f *FakeClient) SetProviders(address string, peers ...ipfs.PeerResponse) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[address] = peers
	return f
}

// FailResolve makes ResolveObject fail for address.
func (f *FakeClient) FailResolve(address string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failResolve[address] = true
	return f
}

// FailProviders makes FindProviders fail for address.
func (f *FakeClient) FailProviders(address string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFind[address] = true
	return f
}

// FailPin makes AddPin fail for address.
func (f *FakeClient) FailPin(address string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPin[address] = true
	return f
}

// Invalidate makes ValidateAddress reject candidate even if well-formed.
func (f *FakeClient) Invalidate(candidate string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalid[candidate] = true
	return f
}

// SetIdentity sets the local peer id, or the error LocalNodeIdentity returns.
func (f *FakeClient) SetIdentity(id string, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = id
	f.identityErr = err
	return f
}

// SetPinDelay makes AddPin wait fn(address) before answering.
func (f *FakeClient) SetPinDelay(fn func(address string) time.Duration) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinDelay = fn
	return f
}

// ResolveObject implements ipfs.Client.
func (f *FakeClient) ResolveObject(ctx context.Context, address string) (ipfs.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls = append(f.resolveCalls, address)

	if err := ctx.Err(); err != nil {
		return ipfs.Object{}, &ipfs.NetworkError{Op: "resolve", Address: address, Err: err}
	}
	if f.failResolve[address] {
		return ipfs.Object{}, &ipfs.NetworkError{Op: "resolve", Address: address, Err: errors.New("context deadline exceeded")}
	}
	obj, ok := f.objects[address]
	if !ok {
		return ipfs.Object{}, &ipfs.NetworkError{Op: "resolve", Address: address, Err: errors.New("merkledag: not found")}
	}
	return obj, nil
}

// FindProviders implements ipfs.Client.
func (f *FakeClient) FindProviders(ctx context.Context, address string, timeout time.Duration) ([]ipfs.PeerResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls = append(f.findCalls, address)

	if err := ctx.Err(); err != nil {
		return nil, &ipfs.NetworkError{Op: "findprovs", Address: address, Err: err}
	}
	if f.failFind[address] {
		return nil, &ipfs.NetworkError{Op: "findprovs", Address: address, Err: errors.New("routing: not found")}
	}
	return f.providers[address], nil
}

// AddPin implements ipfs.Client.
func (f *FakeClient) AddPin(ctx context.Context, address string) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	var delay time.Duration
	if f.pinDelay != nil {
		delay = f.pinDelay(address)
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &ipfs.PinError{Address: address, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPin[address] {
		return &ipfs.PinError{Address: address, Err: errors.New("pin rejected")}
	}
	f.pins = append(f.pins, address)
	return nil
}

// LocalNodeIdentity implements ipfs.Client.
func (f *FakeClient) LocalNodeIdentity(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.identityErr != nil {
		return "", f.identityErr
	}
	return f.identity, nil
}

// ValidateAddress implements ipfs.Client.
func (f *FakeClient) ValidateAddress(candidate string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := strings.TrimPrefix(strings.TrimSpace(candidate), "/ipfs/")
	switch {
	case s == "":
		return "", &ipfs.InvalidAddressError{Candidate: candidate, Err: errors.New("empty")}
	case strings.ContainsAny(s, "/ \t\n"):
		return "", &ipfs.InvalidAddressError{Candidate: candidate, Err: errors.New("not a bare address")}
	case !strings.HasPrefix(s, "Qm") && !strings.HasPrefix(s, "baf"):
		return "", &ipfs.InvalidAddressError{Candidate: candidate, Err: errors.New("unknown prefix")}
	case f.invalid[s] || f.invalid[candidate]:
		return "", &ipfs.InvalidAddressError{Candidate: candidate, Err: errors.New("rejected")}
	}
	return s, nil
}

// Pins returns the addresses pinned so far, in completion order.
func (f *FakeClient) Pins() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pins...)
}

// ResolveCalls returns every address passed to ResolveObject.
func (f *FakeClient) ResolveCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.resolveCalls...)
}

// FindCalls returns every address passed to FindProviders.
func (f *FakeClient) FindCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.findCalls...)
}

// MaxConcurrentPins returns the highest number of AddPin calls seen in flight.
func (f *FakeClient) MaxConcurrentPins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

var _ ipfs.Client = (*FakeClient)(nil)

// Provider builds a provider routing event answered by the given peers.
func Provider(peerIDs ...string) ipfs.PeerResponse {
	resp := ipfs.PeerResponse{PeerType: ipfs.PeerTypeProvider}
	if len(peerIDs) > 0 {
		resp.PeerID = peerIDs[0]
	}
	for _, id := range peerIDs {
		resp.Responses = append(resp.Responses, ipfs.PeerInfo{PeerID: id})
	}
	return resp
}
