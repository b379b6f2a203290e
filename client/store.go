package client

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rylenko/emaild/common"
)

// Debug gates precondition assertions that panic instead of relying on
// the database's own constraints — the Go analogue of a Rust debug
// build. It defaults false; set it in test or development builds only.
var Debug bool

// Store is the client's local encrypted database: users, their friends,
// their configured nodes, and their received emails. Every indexed field
// is salted-hashed, and every sensitive field is AES-encrypted under a
// per-user key derived from the user's own password and username.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an already-connected pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates every table this store needs, if absent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username_hash BYTEA NOT NULL UNIQUE,
			password_hash BYTEA NOT NULL,
			encrypted_private_key_pem BYTEA NOT NULL,
			salt BYTEA NOT NULL,
			f2f_enabled BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS friends (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			username_hash BYTEA NOT NULL,
			public_key_pem_base64_hash BYTEA NOT NULL,
			encrypted_username BYTEA NOT NULL,
			encrypted_public_key_pem_base64 BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS nodes (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			address_hash BYTEA NOT NULL,
			encrypted_address BYTEA NOT NULL,
			encrypted_password BYTEA,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS emails (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			encrypted_sender_public_key_pem BYTEA NOT NULL,
			encrypted_data_bytes BYTEA NOT NULL,
			proof_of_work_hex VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("client: migrate: %w", err)
	}
	return nil
}

func (u User) makeAESCipher() *common.AESCipher {
	key := common.HashWithSalt([]byte(u.Password), []byte(u.Username))
	return common.NewAESCipher(key[:])
}

// GetUser looks a user up by username and checks password against its
// stored, salted hash.
func (s *Store) GetUser(ctx context.Context, username, password string) (*User, error) {
	usernameHash := common.Hash([]byte(username))

	var row userRow
	err := s.pool.QueryRow(ctx,
		`SELECT id, username_hash, password_hash, encrypted_private_key_pem, salt, f2f_enabled, created_at
		 FROM users WHERE username_hash = $1`,
		usernameHash[:],
	).Scan(&row.ID, &row.UsernameHash, &row.PasswordHash, &row.EncryptedPrivateKeyPEM, &row.Salt, &row.F2FEnabled, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client: get user: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("client: get user: %w", err)
	}

	passwordHash := common.HashWithSalt([]byte(password), row.Salt)
	if !bytesEqual(passwordHash[:], row.PasswordHash) {
		return nil, fmt.Errorf("client: get user: %w", ErrUnauthorized)
	}
	return &User{ID: row.ID, Username: username, Password: password}, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GetUserPrivateKey decrypts and parses the user's stored RSA private key.
func (s *Store) GetUserPrivateKey(ctx context.Context, user *User) (*rsa.PrivateKey, error) {
	var encryptedPEM []byte
	if err := s.pool.QueryRow(ctx,
		`SELECT encrypted_private_key_pem FROM users WHERE id = $1`, user.ID,
	).Scan(&encryptedPEM); err != nil {
		return nil, fmt.Errorf("client: get user private key: %w", err)
	}

	pem, err := user.makeAESCipher().Decrypt(encryptedPEM)
	if err != nil {
		return nil, fmt.Errorf("client: decrypt private key: %w", err)
	}
	priv, err := common.PrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("client: parse private key: %w", err)
	}
	return priv, nil
}

// GetUserSalt returns the user's stored salt.
func (s *Store) GetUserSalt(ctx context.Context, user *User) ([]byte, error) {
	var salt []byte
	if err := s.pool.QueryRow(ctx,
		`SELECT salt FROM users WHERE id = $1`, user.ID,
	).Scan(&salt); err != nil {
		return nil, fmt.Errorf("client: get user salt: %w", err)
	}
	return salt, nil
}

// CheckUserF2F reports whether user has friends-only mode enabled.
func (s *Store) CheckUserF2F(ctx context.Context, user *User) (bool, error) {
	var enabled bool
	if err := s.pool.QueryRow(ctx,
		`SELECT f2f_enabled FROM users WHERE id = $1`, user.ID,
	).Scan(&enabled); err != nil {
		return false, fmt.Errorf("client: check user f2f: %w", err)
	}
	return enabled, nil
}

// CheckUserExists reports whether username is already registered.
func (s *Store) CheckUserExists(ctx context.Context, username string) (bool, error) {
	usernameHash := common.Hash([]byte(username))
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT exists(SELECT 1 FROM users WHERE username_hash = $1)`, usernameHash[:],
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("client: check user exists: %w", err)
	}
	return exists, nil
}

// CreateUser registers a new account, encrypting privateKey's PEM under a
// freshly-derived AES key and salting its password hash with a fresh
// random salt.
func (s *Store) CreateUser(ctx context.Context, username, password string, privateKey *rsa.PrivateKey) error {
	exists, err := s.CheckUserExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("client: create user: username already exists")
	}

	salt, err := common.Random(common.DefaultRandomBytesLength)
	if err != nil {
		return fmt.Errorf("client: generate salt: %w", err)
	}
	usernameHash := common.Hash([]byte(username))
	passwordHash := common.HashWithSalt([]byte(password), salt)

	cipher := (&User{Username: username, Password: password}).makeAESCipher()
	encryptedPrivateKey, err := cipher.Encrypt(common.PrivateKeyToPEM(privateKey))
	if err != nil {
		return fmt.Errorf("client: encrypt private key: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (username_hash, password_hash, encrypted_private_key_pem, salt, f2f_enabled)
		 VALUES ($1, $2, $3, $4, false)`,
		usernameHash[:], passwordHash[:], encryptedPrivateKey, salt,
	)
	if err != nil {
		return fmt.Errorf("client: create user: %w", err)
	}
	return nil
}

// SwitchUserF2F toggles and returns the user's friends-only flag.
func (s *Store) SwitchUserF2F(ctx context.Context, user *User) (bool, error) {
	current, err := s.CheckUserF2F(ctx, user)
	if err != nil {
		return false, err
	}
	next := !current
	if _, err := s.pool.Exec(ctx, `UPDATE users SET f2f_enabled = $1 WHERE id = $2`, next, user.ID); err != nil {
		return false, fmt.Errorf("client: switch user f2f: %w", err)
	}
	return next, nil
}

// DeleteUser removes the account and (via ON DELETE CASCADE) everything
// it owns.
func (s *Store) DeleteUser(ctx context.Context, user *User) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID); err != nil {
		return fmt.Errorf("client: delete user: %w", err)
	}
	return nil
}

func (s *Store) decryptEmail(cipher *common.AESCipher, row emailRow) (*ReceivedEmail, error) {
	senderPublicKeyBase64, err := cipher.Decrypt(row.EncryptedSenderPublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("client: decrypt sender public key: %w", err)
	}
	dataBytes, err := cipher.Decrypt(row.EncryptedDataBytes)
	if err != nil {
		return nil, fmt.Errorf("client: decrypt data bytes: %w", err)
	}
	var data common.Data
	if err := gobDecodeInto(dataBytes, &data); err != nil {
		return nil, fmt.Errorf("client: deserialize data: %w", err)
	}
	return &ReceivedEmail{ID: row.ID, SenderPublicKeyPEM: string(senderPublicKeyBase64), Data: data}, nil
}

// GetEmails returns page currentPage (1-based) of user's stored,
// decrypted emails, newest first.
func (s *Store) GetEmails(ctx context.Context, user *User, currentPage uint64) (*Pagination[ReceivedEmail], error) {
	if currentPage == 0 {
		return nil, fmt.Errorf("client: get emails: current page must be >= 1")
	}

	cipher := user.makeAESCipher()

	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM emails WHERE user_id = $1`, user.ID).Scan(&count); err != nil {
		return nil, fmt.Errorf("client: count emails: %w", err)
	}

	offset := (currentPage - 1) * EmailsPerPage
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, encrypted_sender_public_key_pem, encrypted_data_bytes, proof_of_work_hex, created_at
		 FROM emails WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`,
		user.ID, offset, EmailsPerPage,
	)
	if err != nil {
		return nil, fmt.Errorf("client: get emails: %w", err)
	}
	defer rows.Close()

	items := make([]ReceivedEmail, 0, EmailsPerPage)
	for rows.Next() {
		var row emailRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.EncryptedSenderPublicKeyPEM, &row.EncryptedDataBytes, &row.ProofOfWorkHex, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("client: scan email row: %w", err)
		}
		email, err := s.decryptEmail(cipher, row)
		if err != nil {
			return nil, err
		}
		items = append(items, *email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("client: iterate email rows: %w", err)
	}

	pages := (uint64(count) + EmailsPerPage - 1) / EmailsPerPage
	return NewPagination(currentPage, pages, items)
}

// GetEmail fetches and decrypts a single stored email by id.
func (s *Store) GetEmail(ctx context.Context, user *User, id int32) (*ReceivedEmail, error) {
	cipher := user.makeAESCipher()

	var row emailRow
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, encrypted_sender_public_key_pem, encrypted_data_bytes, proof_of_work_hex, created_at
		 FROM emails WHERE user_id = $1 AND id = $2`,
		user.ID, id,
	).Scan(&row.ID, &row.UserID, &row.EncryptedSenderPublicKeyPEM, &row.EncryptedDataBytes, &row.ProofOfWorkHex, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client: get email: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("client: get email: %w", err)
	}
	return s.decryptEmail(cipher, row)
}

// CheckEmailExists reports whether an email with email's proof-of-work
// hash is already stored for user — the client-side dedup point.
func (s *Store) CheckEmailExists(ctx context.Context, user *User, email *common.Email) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT exists(SELECT 1 FROM emails WHERE user_id = $1 AND proof_of_work_hex = $2)`,
		user.ID, email.ComputeHash(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("client: check email exists: %w", err)
	}
	return exists, nil
}

// AddEmail stores a decrypted, verified email for user. email must have
// already been through Decrypt with CheckDecryptedIntegrity true.
func (s *Store) AddEmail(ctx context.Context, user *User, email *common.Email) error {
	senderPEM, err := email.SenderPublicKeyPEM()
	if err != nil {
		return fmt.Errorf("client: add email: %w", err)
	}
	data, err := email.Data()
	if err != nil {
		return fmt.Errorf("client: add email: %w", err)
	}

	cipher := user.makeAESCipher()

	dataBytes, err := gobEncodeFrom(*data)
	if err != nil {
		return fmt.Errorf("client: serialize email data: %w", err)
	}
	encryptedSenderPEM, err := cipher.Encrypt(senderPEM)
	if err != nil {
		return fmt.Errorf("client: encrypt sender public key: %w", err)
	}
	encryptedDataBytes, err := cipher.Encrypt(dataBytes)
	if err != nil {
		return fmt.Errorf("client: encrypt data bytes: %w", err)
	}

	if Debug {
		if exists, err := s.CheckEmailExists(ctx, user, email); err == nil && exists {
			panic("client: add email: dedup precondition violated, proof of work hash already stored")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO emails (user_id, encrypted_sender_public_key_pem, encrypted_data_bytes, proof_of_work_hex)
		 VALUES ($1, $2, $3, $4)`,
		user.ID, encryptedSenderPEM, encryptedDataBytes, email.ComputeHash(),
	)
	if err != nil {
		return fmt.Errorf("client: add email: %w", err)
	}
	return nil
}

// CheckFriendExistsByUsername reports whether user already has a friend
// with this username.
func (s *Store) CheckFriendExistsByUsername(ctx context.Context, user *User, username string) (bool, error) {
	salt, err := s.GetUserSalt(ctx, user)
	if err != nil {
		return false, err
	}
	h := common.HashWithSalt([]byte(username), salt)

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT exists(SELECT 1 FROM friends WHERE user_id = $1 AND username_hash = $2)`,
		user.ID, h[:],
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("client: check friend exists by username: %w", err)
	}
	return exists, nil
}

// CheckFriendExistsByPublicKey reports whether user already has a friend
// with this base64 public key PEM.
func (s *Store) CheckFriendExistsByPublicKey(ctx context.Context, user *User, publicKeyPEMBase64 string) (bool, error) {
	salt, err := s.GetUserSalt(ctx, user)
	if err != nil {
		return false, err
	}
	h := common.HashWithSalt([]byte(publicKeyPEMBase64), salt)

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT exists(SELECT 1 FROM friends WHERE user_id = $1 AND public_key_pem_base64_hash = $2)`,
		user.ID, h[:],
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("client: check friend exists by public key: %w", err)
	}
	return exists, nil
}

func (s *Store) decryptFriend(cipher *common.AESCipher, row friendRow) (*Friend, error) {
	username, err := cipher.Decrypt(row.EncryptedUsername)
	if err != nil {
		return nil, fmt.Errorf("client: decrypt friend username: %w", err)
	}
	publicKey, err := cipher.Decrypt(row.EncryptedPublicKeyPEMBase64)
	if err != nil {
		return nil, fmt.Errorf("client: decrypt friend public key: %w", err)
	}
	return &Friend{ID: row.ID, Username: string(username), PublicKey: string(publicKey)}, nil
}

// GetFriends returns every friend of user, sorted by username.
func (s *Store) GetFriends(ctx context.Context, user *User) ([]Friend, error) {
	cipher := user.makeAESCipher()

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, username_hash, public_key_pem_base64_hash, encrypted_username, encrypted_public_key_pem_base64, created_at
		 FROM friends WHERE user_id = $1`,
		user.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("client: get friends: %w", err)
	}
	defer rows.Close()

	friends := make([]Friend, 0)
	for rows.Next() {
		var row friendRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.UsernameHash, &row.PublicKeyPEMBase64Hash, &row.EncryptedUsername, &row.EncryptedPublicKeyPEMBase64, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("client: scan friend row: %w", err)
		}
		friend, err := s.decryptFriend(cipher, row)
		if err != nil {
			return nil, err
		}
		friends = append(friends, *friend)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("client: iterate friend rows: %w", err)
	}

	sort.Slice(friends, func(i, j int) bool { return friends[i].Username < friends[j].Username })
	return friends, nil
}

// GetFriend looks a friend up by their base64 public key PEM.
func (s *Store) GetFriend(ctx context.Context, user *User, publicKeyPEMBase64 string) (*Friend, error) {
	salt, err := s.GetUserSalt(ctx, user)
	if err != nil {
		return nil, err
	}
	h := common.HashWithSalt([]byte(publicKeyPEMBase64), salt)
	cipher := user.makeAESCipher()

	var row friendRow
	err = s.pool.QueryRow(ctx,
		`SELECT id, user_id, username_hash, public_key_pem_base64_hash, encrypted_username, encrypted_public_key_pem_base64, created_at
		 FROM friends WHERE user_id = $1 AND public_key_pem_base64_hash = $2`,
		user.ID, h[:],
	).Scan(&row.ID, &row.UserID, &row.UsernameHash, &row.PublicKeyPEMBase64Hash, &row.EncryptedUsername, &row.EncryptedPublicKeyPEMBase64, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client: get friend: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("client: get friend: %w", err)
	}
	return s.decryptFriend(cipher, row)
}

// AddFriend inserts a new friend, rejecting duplicate usernames or public
// keys.
func (s *Store) AddFriend(ctx context.Context, user *User, username, publicKeyPEMBase64 string) error {
	if exists, err := s.CheckFriendExistsByUsername(ctx, user, username); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("client: add friend: %w", ErrDuplicateFriend)
	}
	if exists, err := s.CheckFriendExistsByPublicKey(ctx, user, publicKeyPEMBase64); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("client: add friend: %w", ErrDuplicateFriend)
	}

	salt, err := s.GetUserSalt(ctx, user)
	if err != nil {
		return err
	}
	usernameHash := common.HashWithSalt([]byte(username), salt)
	publicKeyHash := common.HashWithSalt([]byte(publicKeyPEMBase64), salt)

	cipher := user.makeAESCipher()
	encryptedUsername, err := cipher.Encrypt([]byte(username))
	if err != nil {
		return fmt.Errorf("client: encrypt friend username: %w", err)
	}
	encryptedPublicKey, err := cipher.Encrypt([]byte(publicKeyPEMBase64))
	if err != nil {
		return fmt.Errorf("client: encrypt friend public key: %w", err)
	}

	if Debug {
		if exists, err := s.CheckFriendExistsByPublicKey(ctx, user, publicKeyPEMBase64); err == nil && exists {
			panic("client: add friend: dedup precondition violated, public key already exists")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO friends (user_id, username_hash, public_key_pem_base64_hash, encrypted_username, encrypted_public_key_pem_base64)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, usernameHash[:], publicKeyHash[:], encryptedUsername, encryptedPublicKey,
	)
	if err != nil {
		return fmt.Errorf("client: add friend: %w", err)
	}
	return nil
}

// DeleteFriend removes friend id, scoped to user.
func (s *Store) DeleteFriend(ctx context.Context, user *User, id int32) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM friends WHERE id = $1 AND user_id = $2`, id, user.ID)
	if err != nil {
		return fmt.Errorf("client: delete friend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client: delete friend: %w", ErrNotFound)
	}
	return nil
}

// CheckNodeExists reports whether user already has a node configured at
// address.
func (s *Store) CheckNodeExists(ctx context.Context, user *User, address string) (bool, error) {
	salt, err := s.GetUserSalt(ctx, user)
	if err != nil {
		return false, err
	}
	h := common.HashWithSalt([]byte(address), salt)

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT exists(SELECT 1 FROM nodes WHERE user_id = $1 AND address_hash = $2)`,
		user.ID, h[:],
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("client: check node exists: %w", err)
	}
	return exists, nil
}

// GetNodes returns every node configured by user, newest first.
func (s *Store) GetNodes(ctx context.Context, user *User) ([]Node, error) {
	cipher := user.makeAESCipher()

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, address_hash, encrypted_address, encrypted_password, created_at
		 FROM nodes WHERE user_id = $1 ORDER BY created_at DESC`,
		user.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("client: get nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]Node, 0)
	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.AddressHash, &row.EncryptedAddress, &row.EncryptedPassword, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("client: scan node row: %w", err)
		}

		addressBytes, err := cipher.Decrypt(row.EncryptedAddress)
		if err != nil {
			return nil, fmt.Errorf("client: decrypt node address: %w", err)
		}
		var password *string
		if row.EncryptedPassword != nil {
			p, err := cipher.Decrypt(row.EncryptedPassword)
			if err != nil {
				return nil, fmt.Errorf("client: decrypt node password: %w", err)
			}
			ps := string(p)
			password = &ps
		}
		nodes = append(nodes, Node{ID: row.ID, Address: string(addressBytes), Password: password})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("client: iterate node rows: %w", err)
	}
	return nodes, nil
}

// AddNode configures a new relay peer for user.
func (s *Store) AddNode(ctx context.Context, user *User, address string, password *string) error {
	if exists, err := s.CheckNodeExists(ctx, user, address); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("client: add node: %w", ErrDuplicateNode)
	}

	salt, err := s.GetUserSalt(ctx, user)
	if err != nil {
		return err
	}
	addressHash := common.HashWithSalt([]byte(address), salt)
	cipher := user.makeAESCipher()

	encryptedAddress, err := cipher.Encrypt([]byte(address))
	if err != nil {
		return fmt.Errorf("client: encrypt node address: %w", err)
	}
	var encryptedPassword []byte
	if password != nil {
		encryptedPassword, err = cipher.Encrypt([]byte(*password))
		if err != nil {
			return fmt.Errorf("client: encrypt node password: %w", err)
		}
	}

	if Debug {
		if exists, err := s.CheckNodeExists(ctx, user, address); err == nil && exists {
			panic("client: add node: dedup precondition violated, address already configured")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO nodes (user_id, address_hash, encrypted_address, encrypted_password)
		 VALUES ($1, $2, $3, $4)`,
		user.ID, addressHash[:], encryptedAddress, encryptedPassword,
	)
	if err != nil {
		return fmt.Errorf("client: add node: %w", err)
	}
	return nil
}

// DeleteNode removes node id, scoped to user.
func (s *Store) DeleteNode(ctx context.Context, user *User, id int32) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM nodes WHERE id = $1 AND user_id = $2`, id, user.ID)
	if err != nil {
		return fmt.Errorf("client: delete node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client: delete node: %w", ErrNotFound)
	}
	return nil
}

// DeleteOldEmails removes every stored email older than age, across all
// users.
func (s *Store) DeleteOldEmails(ctx context.Context, age int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM emails WHERE created_at < now() - ($1 || ' seconds')::interval`, age)
	if err != nil {
		return 0, fmt.Errorf("client: delete old emails: %w", err)
	}
	return tag.RowsAffected(), nil
}

func publicKeyPEMBase64(pub *rsa.PublicKey) (string, error) {
	pem, err := common.PublicKeyToPEM(pub)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(pem), nil
}
