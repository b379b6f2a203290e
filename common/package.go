package common

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"time"
)

// Action is a Package's wire-level verb. It is a closed set of exactly
// twelve values.
type Action uint8

const (
	ActionCheckConnection Action = iota
	ActionCheckConnectionSuccess
	ActionGetEmail
	ActionGetEmailSuccess
	ActionGetEmailFail
	ActionGetEmailsCount
	ActionGetEmailsCountSuccess
	ActionGetEmailsCountFail
	ActionInvalidPassword
	ActionSendEmail
	ActionSendEmailSuccess
	ActionSendEmailFail
)

func (a Action) String() string {
	switch a {
	case ActionCheckConnection:
		return "CheckConnection"
	case ActionCheckConnectionSuccess:
		return "CheckConnectionSuccess"
	case ActionGetEmail:
		return "GetEmail"
	case ActionGetEmailSuccess:
		return "GetEmailSuccess"
	case ActionGetEmailFail:
		return "GetEmailFail"
	case ActionGetEmailsCount:
		return "GetEmailsCount"
	case ActionGetEmailsCountSuccess:
		return "GetEmailsCountSuccess"
	case ActionGetEmailsCountFail:
		return "GetEmailsCountFail"
	case ActionInvalidPassword:
		return "InvalidPassword"
	case ActionSendEmail:
		return "SendEmail"
	case ActionSendEmailSuccess:
		return "SendEmailSuccess"
	case ActionSendEmailFail:
		return "SendEmailFail"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

// Package is the wire envelope exchanged between a client and a node, or
// between two nodes: an action tag, an opaque payload, and an optional
// salted password hash.
type Package struct {
	Action       Action
	Data         []byte
	PasswordHash *[32]byte
}

// NewPackage builds a Package, hashing password (if any) with PasswordSalt.
func NewPackage(password *string, action Action, data []byte) *Package {
	p := &Package{Action: action, Data: data}
	p.SetPassword(password)
	return p
}

// SetPassword re-derives the package's password hash, or clears it when
// password is nil.
func (p *Package) SetPassword(password *string) {
	if password == nil {
		p.PasswordHash = nil
		return
	}
	h := HashWithSalt([]byte(*password), []byte(PasswordSalt))
	p.PasswordHash = &h
}

// CheckPassword reports whether password hashes to p's stored hash (or
// both are absent).
func (p *Package) CheckPassword(password *string) bool {
	if password == nil {
		return p.PasswordHash == nil
	}
	h := HashWithSalt([]byte(*password), []byte(PasswordSalt))
	return p.PasswordHash != nil && *p.PasswordHash == h
}

// IsTooBig reports whether p's serialized form exceeds PackageMaxSize.
func (p *Package) IsTooBig() (bool, error) {
	buf, err := p.marshal()
	if err != nil {
		return false, err
	}
	return len(buf) > PackageMaxSize, nil
}

func (p *Package) marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, fmt.Errorf("common: marshal package: %w", err)
	}
	return buf.Bytes(), nil
}

// Send writes an 8-byte big-endian length prefix followed by p's
// serialized bytes to stream.
func (p *Package) Send(stream io.Writer) error {
	buf, err := p.marshal()
	if err != nil {
		return err
	}
	if len(buf) > PackageMaxSize {
		return ErrTooBig
	}

	var sizeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], uint64(len(buf)))
	if _, err := stream.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("common: send package size: %w", err)
	}
	if _, err := stream.Write(buf); err != nil {
		return fmt.Errorf("common: send package data: %w", err)
	}
	return nil
}

// deadlineConn is the minimal interface Receive needs to enforce its
// timeout: a reader plus a writer (to answer InvalidPassword) plus a
// deadline setter. *net.TCPConn and *net.TCPConn-wrapped streams all
// satisfy it.
type deadlineConn interface {
	io.Reader
	io.Writer
	SetDeadline(time.Time) error
}

// Receive reads a length-prefixed Package from stream under a single
// PackageReceiveTimeout deadline, validates its password against
// password (nil means "no password configured"), and — if
// acceptedActions is non-nil — validates that the package's action is a
// member of it.
//
// On password mismatch, Receive sends a single ActionInvalidPassword
// package (unconditionally, with no password) before returning
// ErrInvalidPassword. On any other failure it returns with no response
// sent.
func Receive(
	ctx context.Context,
	stream deadlineConn,
	password *string,
	acceptedActions map[Action]struct{},
) (*Package, error) {
	deadline := time.Now().Add(PackageReceiveTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := stream.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("common: set deadline: %w", err)
	}

	var sizeBuf [8]byte
	if _, err := io.ReadFull(stream, sizeBuf[:]); err != nil {
		return nil, fmt.Errorf("common: receive package size: %w", err)
	}
	size := binary.BigEndian.Uint64(sizeBuf[:])
	if size > PackageMaxSize {
		return nil, ErrTooBig
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(stream, data); err != nil {
		return nil, fmt.Errorf("common: receive package data: %w", err)
	}

	var p Package
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, fmt.Errorf("common: unmarshal package: %w", err)
	}

	if !p.CheckPassword(password) {
		NewPackage(nil, ActionInvalidPassword, nil).Send(stream) //nolint:errcheck
		return nil, ErrInvalidPassword
	}
	if acceptedActions != nil {
		if _, ok := acceptedActions[p.Action]; !ok {
			return nil, ErrInvalidAction
		}
	}
	return &p, nil
}

// ActionSet is a convenience constructor for the accepted-actions map
// Receive takes.
func ActionSet(actions ...Action) map[Action]struct{} {
	m := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		m[a] = struct{}{}
	}
	return m
}
