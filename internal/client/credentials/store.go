package credentials

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/blogclient/internal/dbx"
	"github.com/dmitrijs2005/blogclient/internal/logging"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// Store persists the credential in the local database and keeps a copy in
// memory so that every outgoing request can read the token cheaply.
type Store struct {
	db  *sql.DB
	log logging.Logger

	mu  sync.RWMutex
	cur *Credential
}

func NewStore(db *sql.DB, log logging.Logger) *Store {
	return &Store{db: db, log: logging.OrNop(log).With("component", "credentials")}
}

// Load reads the persisted credential into memory. A half-written record
// (token without user or the reverse) is wiped and reported as absent.
func (s *Store) Load(ctx context.Context) (Credential, bool, error) {
	var (
		cred    Credential
		found   bool
		partial bool
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		token, hasToken, err := repo.Get(ctx, keyToken)
		if err != nil {
			return err
		}
		rawUser, hasUser, err := repo.Get(ctx, keyUser)
		if err != nil {
			return err
		}

		switch {
		case hasToken && hasUser:
			var u models.User
			if err := json.Unmarshal(rawUser, &u); err != nil {
				partial = true
				return repo.Delete(ctx, keyToken, keyUser)
			}
			cred = Credential{Token: string(token), User: u}
			if cred.Validate() != nil {
				partial = true
				return repo.Delete(ctx, keyToken, keyUser)
			}
			found = true
		case hasToken || hasUser:
			partial = true
			return repo.Delete(ctx, keyToken, keyUser)
		}
		return nil
	})
	if err != nil {
		return Credential{}, false, fmt.Errorf("load credential: %w", err)
	}
	if partial {
		s.log.Warn(ctx, "discarded incomplete persisted credential")
	}

	s.mu.Lock()
	if found {
		c := cred
		s.cur = &c
	} else {
		s.cur = nil
	}
	s.mu.Unlock()

	return cred, found, nil
}

// Save writes token and user in one transaction, then updates the in-memory
// copy. On error nothing changes.
func (s *Store) Save(ctx context.Context, cred Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	rawUser, err := json.Marshal(cred.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyToken, []byte(cred.Token)); err != nil {
			return err
		}
		return repo.Set(ctx, keyUser, rawUser)
	})
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	s.mu.Lock()
	s.cur = &cred
	s.mu.Unlock()
	return nil
}

// Clear drops the in-memory copy unconditionally and removes the persisted
// record. The returned error only concerns the persisted part.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, keyToken, keyUser)
	})
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Current returns the credential held in memory.
func (s *Store) Current() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return Credential{}, false
	}
	return *s.cur, true
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.Token
}
