package node

import (
	"bytes"
	"context"
	"encoding/gob"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rylenko/emaild/common"
)

// getEmailRequest is the payload of an ActionGetEmail package: an index
// into the recipient's email list plus the recipient's public key hash.
type getEmailRequest struct {
	Index         int64
	RecipientHash [32]byte
}

// Relay owns a Store and a Config and answers one request per connection;
// Serve handles each accepted socket in its own goroutine.
type Relay struct {
	config *Config
	store  *Store
	dedup  *seenSet
	dialer common.Dialer
	logger *zap.Logger
}

// NewRelay builds a Relay ready to handle connections.
func NewRelay(config *Config, store *Store, dialer common.Dialer, logger *zap.Logger) *Relay {
	return &Relay{
		config: config,
		store:  store,
		dedup:  newSeenSet(common.EmailsMaxAge),
		dialer: dialer,
		logger: logger,
	}
}

// Serve accepts connections on listener until ctx is canceled or listener
// returns a fatal error, handling each one in its own goroutine.
func (r *Relay) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		go r.handle(ctx, conn)
	}
}

var acceptedActions = common.ActionSet(
	common.ActionCheckConnection,
	common.ActionGetEmail,
	common.ActionGetEmailsCount,
	common.ActionSendEmail,
)

func (r *Relay) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	requestID := uuid.NewString()
	logger := r.logger.With(zap.String("request_id", requestID), zap.Stringer("remote", conn.RemoteAddr()))

	pkg, err := common.Receive(ctx, conn, r.config.Password, acceptedActions)
	if err != nil {
		logger.Debug("failed to receive package", zap.Error(err))
		return
	}

	var handleErr error
	switch pkg.Action {
	case common.ActionCheckConnection:
		handleErr = r.handleCheckConnection(conn)
	case common.ActionGetEmail:
		handleErr = r.handleGetEmail(ctx, conn, pkg)
	case common.ActionGetEmailsCount:
		handleErr = r.handleGetEmailsCount(ctx, conn, pkg)
	case common.ActionSendEmail:
		handleErr = r.handleSendEmail(ctx, conn, pkg)
	}
	if handleErr != nil {
		logger.Debug("failed to handle package", zap.Error(handleErr), zap.Stringer("action", pkg.Action))
	}
}

func (r *Relay) handleCheckConnection(conn net.Conn) error {
	return common.NewPackage(nil, common.ActionCheckConnectionSuccess, nil).Send(conn)
}

func (r *Relay) handleGetEmail(ctx context.Context, conn net.Conn, pkg *common.Package) error {
	var req getEmailRequest
	if err := gob.NewDecoder(bytes.NewReader(pkg.Data)).Decode(&req); err != nil {
		return common.NewPackage(nil, common.ActionGetEmailFail, nil).Send(conn)
	}

	emailBytes, err := r.store.GetEmailBytes(ctx, req.Index, req.RecipientHash)
	if err != nil {
		return common.NewPackage(nil, common.ActionGetEmailFail, nil).Send(conn)
	}
	return common.NewPackage(nil, common.ActionGetEmailSuccess, emailBytes).Send(conn)
}

func (r *Relay) handleGetEmailsCount(ctx context.Context, conn net.Conn, pkg *common.Package) error {
	var hash [32]byte
	if len(pkg.Data) != len(hash) {
		return common.NewPackage(nil, common.ActionGetEmailsCountFail, nil).Send(conn)
	}
	copy(hash[:], pkg.Data)

	count, err := r.store.GetEmailsCount(ctx, hash)
	if err != nil {
		return common.NewPackage(nil, common.ActionGetEmailsCountFail, nil).Send(conn)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(count); err != nil {
		return common.NewPackage(nil, common.ActionGetEmailsCountFail, nil).Send(conn)
	}
	return common.NewPackage(nil, common.ActionGetEmailsCountSuccess, buf.Bytes()).Send(conn)
}

func (r *Relay) handleSendEmail(ctx context.Context, conn net.Conn, pkg *common.Package) error {
	var email common.Email
	if err := email.GobDecode(pkg.Data); err != nil || !email.CheckEncryptedIntegrity() {
		return common.NewPackage(nil, common.ActionSendEmailFail, nil).Send(conn)
	}

	err := r.store.AddEmail(ctx, &email)
	response := common.ActionSendEmailSuccess
	if err != nil {
		response = common.ActionSendEmailFail
	}
	if sendErr := common.NewPackage(nil, response, nil).Send(conn); sendErr != nil {
		return sendErr
	}
	if response != common.ActionSendEmailSuccess {
		return err
	}

	r.gossip(ctx, &email, pkg)
	return nil
}

// gossip re-sends a successfully stored email to every configured peer,
// skipping it if this envelope's proof-of-work hash was already gossiped
// recently — the deliberate dedup redesign documented alongside Relay.
func (r *Relay) gossip(ctx context.Context, email *common.Email, pkg *common.Package) {
	if len(r.config.OtherNodes) == 0 {
		return
	}
	powHex := email.ComputeHash()
	if !r.dedup.markIfAbsent(powHex) {
		r.logger.Debug("skipping gossip, already seen", zap.String("proof_of_work_hex", powHex))
		return
	}

	targets := make([]common.NodeTarget, 0, len(r.config.OtherNodes))
	for _, n := range r.config.OtherNodes {
		targets = append(targets, common.NodeTarget{Address: n.Address, Password: n.Password})
	}

	gossipPkg := common.NewPackage(nil, common.ActionSendEmail, pkg.Data)
	count, err := common.FanOutToNodes(ctx, r.dialer, gossipPkg, targets)
	if err != nil {
		r.logger.Debug("gossip fan-out failed", zap.Error(err))
		return
	}
	r.logger.Debug("gossiped email", zap.Int("forwarded_to", count))
}
