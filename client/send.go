package client

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/rylenko/emaild/common"
)

// buildSignedEmail builds an envelope addressed to recipientPub carrying
// data, proves work on it, and signs it with privateKey.
func buildSignedEmail(privateKey *rsa.PrivateKey, recipientPub *rsa.PublicKey, data common.Data) (*common.Email, error) {
	email, err := common.NewEmail(recipientPub, data)
	if err != nil {
		return nil, fmt.Errorf("client: build email: %w", err)
	}
	email.GenerateProofOfWork()
	if err := email.Sign(privateKey); err != nil {
		return nil, fmt.Errorf("client: build email: %w", err)
	}
	return email, nil
}

// checkNotTooBig aborts with common.ErrTooBig when pkg's serialized form
// exceeds common.PackageMaxSize, rather than letting each per-node send
// fail separately partway through fan-out.
func checkNotTooBig(pkg *common.Package) error {
	tooBig, err := pkg.IsTooBig()
	if err != nil {
		return fmt.Errorf("client: check package size: %w", err)
	}
	if tooBig {
		return common.ErrTooBig
	}
	return nil
}

// Send builds an envelope addressed to recipientPub carrying data, proves
// work on it, signs it with user's private key, and fans it out to every
// node configured for user. It returns how many nodes accepted it.
//
// GenerateProofOfWork is CPU-bound and can take a while at the configured
// difficulty; callers on a latency-sensitive path should run Send in its
// own goroutine.
func (e *Engine) Send(ctx context.Context, user *User, recipientPub *rsa.PublicKey, data common.Data) (int, error) {
	privateKey, err := e.store.GetUserPrivateKey(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("client: send: %w", err)
	}

	email, err := buildSignedEmail(privateKey, recipientPub, data)
	if err != nil {
		return 0, fmt.Errorf("client: send: %w", err)
	}

	nodes, err := e.store.GetNodes(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("client: send: %w", err)
	}
	if len(nodes) == 0 {
		return 0, nil
	}

	emailBytes, err := email.GobEncode()
	if err != nil {
		return 0, fmt.Errorf("client: send: encode email: %w", err)
	}
	pkg := common.NewPackage(nil, common.ActionSendEmail, emailBytes)
	if err := checkNotTooBig(pkg); err != nil {
		return 0, fmt.Errorf("client: send: %w", err)
	}

	targets := make([]common.NodeTarget, 0, len(nodes))
	for _, n := range nodes {
		address, password := n.into()
		targets = append(targets, common.NodeTarget{Address: address, Password: password})
	}

	count, err := common.FanOutToNodes(ctx, e.dialer, pkg, targets)
	if err != nil {
		return 0, fmt.Errorf("client: send: fan out: %w", err)
	}
	return count, nil
}
