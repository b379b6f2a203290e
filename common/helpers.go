package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"
)

// NewDBPool opens a pgx connection pool at the given connection string.
func NewDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("common: create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("common: ping db pool: %w", err)
	}
	return pool, nil
}

// LoadJSONConfig reads path and decodes it into a freshly allocated T.
func LoadJSONConfig[T any](path string) (*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("common: open config %s: %w", path, err)
	}
	defer f.Close()

	var cfg T
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("common: decode config %s: %w", path, err)
	}
	return &cfg, nil
}

// Dialer is whatever can dial a plain TCP address, either net.Dialer
// itself or a proxy.Dialer wrapping a SOCKS5 tunnel.
type Dialer interface {
	Dial(network, address string) (net.Conn, error)
}

// NewDialer returns a direct net.Dialer, or a SOCKS5-tunneling dialer when
// socks5Addr is non-empty.
func NewDialer(socks5Addr string) (Dialer, error) {
	if socks5Addr == "" {
		return &net.Dialer{}, nil
	}
	d, err := proxy.SOCKS5("tcp", socks5Addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("common: build socks5 dialer: %w", err)
	}
	return d, nil
}

// NodeTarget is one destination for FanOutToNodes: an address and an
// optional per-node password.
type NodeTarget struct {
	Address  string
	Password *string
}

// FanOutToNodes sends pkg (which must carry ActionSendEmail) to every node
// in nodes concurrently, substituting each node's own password, and
// returns how many nodes responded with ActionSendEmailSuccess.
//
// pkg is sent as a template: FanOutToNodes clones it per node so
// concurrent SetPassword calls never race against each other.
func FanOutToNodes(ctx context.Context, dialer Dialer, pkg *Package, nodes []NodeTarget) (int, error) {
	if pkg.Action != ActionSendEmail {
		return 0, fmt.Errorf("common: FanOutToNodes requires ActionSendEmail, got %v", pkg.Action)
	}

	results := make([]bool, len(nodes))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, node := range nodes {
		i, node := i, node
		group.Go(func() error {
			results[i] = sendToOneNode(groupCtx, dialer, *pkg, node)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for _, ok := range results {
		if ok {
			count++
		}
	}
	return count, nil
}

func sendToOneNode(ctx context.Context, dialer Dialer, pkg Package, node NodeTarget) bool {
	conn, err := dialer.Dial("tcp", node.Address)
	if err != nil {
		return false
	}
	defer conn.Close()

	pkg.SetPassword(node.Password)
	if err := pkg.Send(conn); err != nil {
		return false
	}

	response, err := Receive(ctx, conn, nil, ActionSet(ActionSendEmailSuccess, ActionSendEmailFail))
	if err != nil {
		return false
	}
	return response.Action == ActionSendEmailSuccess
}
