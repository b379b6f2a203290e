package client

import (
	"context"
	"crypto/rsa"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rylenko/emaild/common"
)

// NewEmailsFromNodeLimit caps how many new emails a single retrieval cycle
// will pull from any one node, so one misbehaving or very busy node can't
// starve the others during a cycle.
const NewEmailsFromNodeLimit = 4

// Engine drives the client's retrieval and send cycles against the nodes
// configured for a logged-in user.
type Engine struct {
	store  *Store
	dialer common.Dialer
	logger *zap.Logger
}

// NewEngine builds an Engine around an already-migrated Store.
func NewEngine(store *Store, dialer common.Dialer, logger *zap.Logger) *Engine {
	return &Engine{store: store, dialer: dialer, logger: logger}
}

// Retrieve fans out to every node configured for user, pulling and storing
// new emails from each concurrently, and returns the total number of new
// emails added across all nodes.
func (e *Engine) Retrieve(ctx context.Context, user *User) (int, error) {
	privateKey, err := e.store.GetUserPrivateKey(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("client: retrieve: %w", err)
	}
	nodes, err := e.store.GetNodes(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("client: retrieve: %w", err)
	}

	counts := make([]int, len(nodes))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		i, node := i, node
		group.Go(func() error {
			n, err := e.retrieveFromNode(groupCtx, user, privateKey, node)
			if err != nil {
				e.logger.Debug("retrieve from node failed", zap.String("address", node.Address), zap.Error(err))
				return nil
			}
			counts[i] = n
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	return total, nil
}

// retrieveFromNode loads node's email count for user, then fetches emails
// by index until it has added NewEmailsFromNodeLimit new ones or run out.
func (e *Engine) retrieveFromNode(ctx context.Context, user *User, privateKey *rsa.PrivateKey, node Node) (int, error) {
	publicKeyPEM, err := common.PublicKeyToPEM(&privateKey.PublicKey)
	if err != nil {
		return 0, fmt.Errorf("client: public key to pem: %w", err)
	}
	recipientHash := common.Hash(publicKeyPEM)

	count, err := e.requestEmailsCount(ctx, node, recipientHash)
	if err != nil || count == 0 {
		return 0, err
	}

	f2f, err := e.store.CheckUserF2F(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("client: check f2f: %w", err)
	}

	added := 0
	for index := int64(0); index < count; index++ {
		email, err := e.requestEmail(ctx, node, index, recipientHash)
		if err != nil {
			continue
		}

		if err := email.Decrypt(privateKey); err != nil {
			continue
		}
		ok, err := email.CheckDecryptedIntegrity()
		if err != nil || !ok {
			continue
		}

		exists, err := e.store.CheckEmailExists(ctx, user, email)
		if err != nil || exists {
			continue
		}

		if f2f {
			senderPEM, err := email.SenderPublicKeyPEM()
			if err != nil {
				continue
			}
			senderPub, err := common.PublicKeyFromPEM(senderPEM)
			if err != nil {
				continue
			}
			senderB64, err := publicKeyPEMBase64(senderPub)
			if err != nil {
				continue
			}
			friendExists, err := e.store.CheckFriendExistsByPublicKey(ctx, user, senderB64)
			if err != nil || !friendExists {
				continue
			}
		}

		if err := e.store.AddEmail(ctx, user, email); err != nil {
			continue
		}

		added++
		if added == NewEmailsFromNodeLimit {
			break
		}
	}
	return added, nil
}

// CheckConnection reports whether node answers CheckConnection, and
// whether its configured password was accepted.
func (e *Engine) CheckConnection(ctx context.Context, node Node) error {
	conn, err := e.dialer.Dial("tcp", node.Address)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", node.Address, err)
	}
	defer conn.Close()

	pkg := common.NewPackage(node.Password, common.ActionCheckConnection, nil)
	if err := pkg.Send(conn); err != nil {
		return fmt.Errorf("client: send check connection: %w", err)
	}

	response, err := common.Receive(ctx, conn, nil, common.ActionSet(
		common.ActionInvalidPassword, common.ActionCheckConnectionSuccess,
	))
	if err != nil {
		return fmt.Errorf("client: receive check connection: %w", err)
	}
	if response.Action == common.ActionInvalidPassword {
		return common.ErrInvalidPassword
	}
	return nil
}

func (e *Engine) requestEmailsCount(ctx context.Context, node Node, recipientHash [32]byte) (int64, error) {
	conn, err := e.dialer.Dial("tcp", node.Address)
	if err != nil {
		return 0, nil
	}
	defer conn.Close()

	pkg := common.NewPackage(node.Password, common.ActionGetEmailsCount, recipientHash[:])
	if err := pkg.Send(conn); err != nil {
		return 0, nil
	}

	response, err := common.Receive(ctx, conn, nil, common.ActionSet(
		common.ActionGetEmailsCountSuccess, common.ActionGetEmailsCountFail,
	))
	if err != nil || response.Action == common.ActionGetEmailsCountFail {
		return 0, nil
	}

	var count int64
	if err := gobDecodeInto(response.Data, &count); err != nil {
		return 0, nil
	}
	return count, nil
}

func (e *Engine) requestEmail(ctx context.Context, node Node, index int64, recipientHash [32]byte) (*common.Email, error) {
	conn, err := e.dialer.Dial("tcp", node.Address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	reqBytes, err := gobEncodeFrom(getEmailRequest{Index: index, RecipientHash: recipientHash})
	if err != nil {
		return nil, err
	}
	pkg := common.NewPackage(node.Password, common.ActionGetEmail, reqBytes)
	if err := pkg.Send(conn); err != nil {
		return nil, err
	}

	response, err := common.Receive(ctx, conn, nil, common.ActionSet(
		common.ActionGetEmailSuccess, common.ActionGetEmailFail,
	))
	if err != nil {
		return nil, err
	}
	if response.Action == common.ActionGetEmailFail {
		return nil, fmt.Errorf("client: node reported get email failure")
	}

	var email common.Email
	if err := email.GobDecode(response.Data); err != nil {
		return nil, err
	}
	return &email, nil
}

// getEmailRequest mirrors node's getEmailRequest wire shape: an index into
// the recipient's email list plus the recipient's public key hash.
type getEmailRequest struct {
	Index         int64
	RecipientHash [32]byte
}
