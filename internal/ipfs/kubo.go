package ipfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

// DefaultAPI is the RPC endpoint of a local Kubo node.
const DefaultAPI = "http://localhost:5001"

// providerGrace is added on top of the routing timeout handed to the node
// so the node can report its own timeout before we cut the connection.
const providerGrace = 5 * time.Second

// Kubo implements Client against a Kubo node's HTTP RPC API.
type Kubo struct {
	sh *shell.Shell

	// Each bounds its call when the caller's ctx has no deadline.
	resolveTimeout  time.Duration
	pinTimeout      time.Duration
	identityTimeout time.Duration
}

// KuboOption configures a Kubo client.
type KuboOption func(*Kubo)

// WithResolveTimeout sets the default deadline for object resolution.
func WithResolveTimeout(d time.Duration) KuboOption {
	return func(k *Kubo) { k.resolveTimeout = d }
}

// WithPinTimeout sets the default deadline for a single pin.
func WithPinTimeout(d time.Duration) KuboOption {
	return func(k *Kubo) { k.pinTimeout = d }
}

// WithIdentityTimeout sets the default deadline for the identity query.
func WithIdentityTimeout(d time.Duration) KuboOption {
	return func(k *Kubo) { k.identityTimeout = d }
}

// NewKubo creates a client for the node at api (e.g. http://localhost:5001).
func NewKubo(api string, opts ...KuboOption) *Kubo {
	if api == "" {
		api = DefaultAPI
	}
	k := &Kubo{
		sh:             shell.NewShellWithClient(api, &http.Client{}),
		resolveTimeout:  60 * time.Second,
		pinTimeout:      30 * time.Minute,
		identityTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

type filesStat struct {
	Hash           string
	Size           int64
	CumulativeSize int64
	Type           string
}

type lsLink struct {
	Name string
	Hash string
	Size int64
}

type lsOutput struct {
	Objects []struct {
		Hash  string
		Links []lsLink
	}
}

// ResolveObject reports whether address is a file or a directory and, for
// directories, lists its links.
func (k *Kubo) ResolveObject(ctx context.Context, address string) (Object, error) {
	ctx, cancel := k.withDefaultTimeout(ctx, k.resolveTimeout)
	defer cancel()

	var st filesStat
	if err := k.sh.Request("files/stat", "/ipfs/"+address).Exec(ctx, &st); err != nil {
		return Object{}, &NetworkError{Op: "files/stat", Address: address, Err: err}
	}

	obj := Object{CumulativeSize: st.CumulativeSize}
	if st.Type != "directory" {
		obj.IsLeaf = true
		return obj, nil
	}

	var ls lsOutput
	err := k.sh.Request("ls", address).
		Option("resolve-type", false).
		Option("size", true).
		Exec(ctx, &ls)
	if err != nil {
		return Object{}, &NetworkError{Op: "ls", Address: address, Err: err}
	}

	for _, o := range ls.Objects {
		for _, l := range o.Links {
			obj.Links = append(obj.Links, Link{Name: l.Name, TargetAddress: l.Hash, Size: l.Size})
		}
	}
	return obj, nil
}

type routingEvent struct {
	ID        string
	Type      int
	Responses []struct {
		ID string
	}
}

// FindProviders streams routing events for address until the node closes
// the stream or timeout elapses. Events received before the deadline are
// returned even when the stream ends with a timeout error.
func (k *Kubo) FindProviders(ctx context.Context, address string, timeout time.Duration) ([]PeerResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+providerGrace)
	defer cancel()

	resp, err := k.sh.Request("routing/findprovs", address).
		Option("timeout", timeout.String()).
		Send(ctx)
	if err != nil {
		return nil, &NetworkError{Op: "routing/findprovs", Address: address, Err: err}
	}
	defer resp.Close()
	if resp.Error != nil {
		return nil, &NetworkError{Op: "routing/findprovs", Address: address, Err: resp.Error}
	}

	var events []PeerResponse
	dec := json.NewDecoder(resp.Output)
	for {
		var ev routingEvent
		err := dec.Decode(&ev)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(events) > 0 && lookupTimedOut(ctx, err) {
				break
			}
			return nil, &NetworkError{Op: "routing/findprovs", Address: address, Err: fmt.Errorf("decode event: %w", err)}
		}

		pr := PeerResponse{PeerType: ev.Type, PeerID: ev.ID}
		for _, r := range ev.Responses {
			pr.Responses = append(pr.Responses, PeerInfo{PeerID: r.ID})
		}
		events = append(events, pr)
	}
	return events, nil
}

// lookupTimedOut reports whether a stream error is the routing deadline,
// either ours or the one the node enforces for the timeout option.
func lookupTimedOut(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *shell.Error
	return errors.As(err, &se) && strings.Contains(se.Message, "deadline exceeded")
}

// AddPin pins address recursively.
func (k *Kubo) AddPin(ctx context.Context, address string) error {
	ctx, cancel := k.withDefaultTimeout(ctx, k.pinTimeout)
	defer cancel()

	var out struct{ Pins []string }
	err := k.sh.Request("pin/add", address).
		Option("recursive", true).
		Exec(ctx, &out)
	if err != nil {
		return &PinError{Address: address, Err: err}
	}
	return nil
}

// LocalNodeIdentity returns the peer id of the node.
func (k *Kubo) LocalNodeIdentity(ctx context.Context) (string, error) {
	ctx, cancel := k.withDefaultTimeout(ctx, k.identityTimeout)
	defer cancel()

	var out struct{ ID string }
	if err := k.sh.Request("id").Exec(ctx, &out); err != nil {
		return "", &NetworkError{Op: "id", Err: err}
	}
	if out.ID == "" {
		return "", &NetworkError{Op: "id", Err: errors.New("node returned an empty peer id")}
	}
	return out.ID, nil
}

// ValidateAddress implements Client.
func (k *Kubo) ValidateAddress(candidate string) (string, error) {
	return ValidateAddress(candidate)
}

func (k *Kubo) withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

var _ Client = (*Kubo)(nil)
