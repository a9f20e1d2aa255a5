// Package bolt keeps local accounts and login tokens in a single BoltDB file.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

var (
	accountsBucket = []byte("accounts")
	tokensBucket   = []byte("tokens")
)

type Store struct {
	db *bolt.DB
}

var _ domain.AccountStore = (*Store)(nil)

type accountRecord struct {
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Open opens or creates the database at path and makes sure both buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bolt: create dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{accountsBucket, tokensBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateAccount(_ context.Context, account *domain.Account) error {
	enc, err := json.Marshal(accountRecord{
		Username:     account.Username,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("bolt CreateAccount: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		key := []byte(account.Username)
		if b.Get(key) != nil {
			return domain.ErrAccountExists
		}
		return b.Put(key, enc)
	})
}

func (s *Store) GetAccount(_ context.Context, username string) (*domain.Account, error) {
	var rec accountRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(accountsBucket).Get([]byte(username))
		if v == nil {
			return domain.ErrAccountNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("bolt GetAccount: %w", err)
	}

	return &domain.Account{
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (s *Store) SaveToken(_ context.Context, token, username string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).Put([]byte(token), []byte(username))
	})
}

func (s *Store) LookupToken(_ context.Context, token string) (string, error) {
	var username string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(tokensBucket).Get([]byte(token))
		if v == nil {
			return domain.ErrAccountNotFound
		}
		// v is only valid inside the transaction
		username = string(v)
		return nil
	})
	return username, err
}

func (s *Store) DeleteToken(_ context.Context, token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).Delete([]byte(token))
	})
}
