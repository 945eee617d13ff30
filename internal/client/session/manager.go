// Package session owns the identity lifecycle: who is logged in, and the
// credential that proves it.
package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/client/api"
	"github.com/dmitrijs2005/blogclient/internal/client/credentials"
	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/common"
	"github.com/dmitrijs2005/blogclient/internal/logging"
)

type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateAuthFailed     State = "auth-failed"
)

// ExpiredMessage is attached to the anonymous state entered after a 401.
const ExpiredMessage = "Session expired, please log in again"

// CredentialStore is the persisted credential as the manager needs it.
type CredentialStore interface {
	Load(ctx context.Context) (credentials.Credential, bool, error)
	Save(ctx context.Context, cred credentials.Credential) error
	Clear(ctx context.Context) error
	Current() (credentials.Credential, bool)
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	State   State
	User    *models.User
	Message string
	Profile models.OpState
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type userResponse struct {
	User models.User `json:"user"`
}

// Manager drives the session state machine. Every credential write goes
// through it, except the clear a 401 triggers inside the gateway; register
// HandleUnauthorized with the gateway to follow that one.
type Manager struct {
	gw    api.Gateway
	creds CredentialStore
	log   logging.Logger
	now   func() time.Time

	mu      sync.Mutex
	state   State
	message string
	profile models.OpState
	attempt uint64
}

func NewManager(gw api.Gateway, creds CredentialStore, log logging.Logger) *Manager {
	return &Manager{
		gw:      gw,
		creds:   creds,
		log:     logging.OrNop(log).With("component", "session"),
		now:     time.Now,
		state:   StateAnonymous,
		profile: models.Idle(),
	}
}

// Bootstrap restores a persisted credential. When one exists the manager is
// authenticated on return, and the returned channel yields the result of
// validating it against the server. The channel is buffered and closed after
// one value.
func (m *Manager) Bootstrap(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	cred, found, err := m.creds.Load(ctx)
	if err != nil {
		m.log.Error(ctx, "failed to load credential", "error", err)
		m.setState(StateAnonymous, "")
		done <- err
		close(done)
		return done
	}
	if !found {
		m.setState(StateAnonymous, "")
		close(done)
		return done
	}
	if cred.Expired(m.now()) {
		m.log.Info(ctx, "persisted token has expired", "user", cred.User.ID)
		m.mu.Lock()
		err := m.creds.Clear(ctx)
		m.state, m.message = StateAnonymous, ""
		m.mu.Unlock()
		done <- err
		close(done)
		return done
	}

	m.setState(StateAuthenticated, "")
	m.log.Debug(ctx, "restored session", "user", cred.User.ID)

	go func() {
		defer close(done)
		done <- m.Validate(ctx)
	}()
	return done
}

// Validate asks the server who the token belongs to and refreshes the user
// summary. A 401 is left to the gateway; any other failure keeps the cached
// summary.
func (m *Manager) Validate(ctx context.Context) error {
	cred, ok := m.creds.Current()
	if !ok {
		return common.ErrNotAuthenticated
	}

	var resp userResponse
	if err := m.gw.Send(ctx, http.MethodGet, "/auth/me", nil, nil, &resp); err != nil {
		if !api.IsUnauthorized(err) {
			m.log.Warn(ctx, "session validation failed, keeping cached user", "error", err)
		}
		return fmt.Errorf("validate session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A logout or another login may have happened while the call was out.
	latest, ok := m.creds.Current()
	if !ok || latest.Token != cred.Token {
		return common.ErrSuperseded
	}
	if err := m.creds.Save(ctx, credentials.Credential{Token: cred.Token, User: resp.User}); err != nil {
		m.log.Error(ctx, "failed to refresh user summary", "error", err)
		return err
	}
	m.state, m.message = StateAuthenticated, ""
	return nil
}

// Login authenticates with email and password.
func (m *Manager) Login(ctx context.Context, form models.LoginForm) (models.User, error) {
	if err := form.Validate(); err != nil {
		m.fail(common.Message(err))
		return models.User{}, err
	}
	return m.authenticate(ctx, "/auth/login", form)
}

// Register creates an account and logs into it.
func (m *Manager) Register(ctx context.Context, form models.RegisterForm) (models.User, error) {
	if err := form.Validate(); err != nil {
		m.fail(common.Message(err))
		return models.User{}, err
	}
	return m.authenticate(ctx, "/auth/register", form.Payload())
}

func (m *Manager) authenticate(ctx context.Context, path string, body any) (models.User, error) {
	m.mu.Lock()
	m.attempt++
	attempt := m.attempt
	m.state, m.message = StateAuthenticating, ""
	m.mu.Unlock()

	var resp authResponse
	err := m.gw.Send(ctx, http.MethodPost, path, body, nil, &resp)

	m.mu.Lock()
	defer m.mu.Unlock()

	if attempt != m.attempt {
		return models.User{}, common.ErrSuperseded
	}
	if err != nil {
		m.failLocked(common.Message(err))
		m.log.Info(ctx, "authentication failed", "path", path, "error", err)
		return models.User{}, err
	}

	cred := credentials.Credential{Token: resp.Token, User: resp.User}
	if err := m.creds.Save(ctx, cred); err != nil {
		m.failLocked("could not store the session")
		m.log.Error(ctx, "failed to persist credential", "error", err)
		return models.User{}, err
	}

	m.state, m.message = StateAuthenticated, ""
	m.profile = models.Idle()
	m.log.Info(ctx, "authenticated", "user", resp.User.ID, "role", resp.User.Role)
	return resp.User, nil
}

// UpdateProfile changes username, bio or avatar. The user's id and role are
// never taken from the response.
func (m *Manager) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (models.User, error) {
	cred, ok := m.creds.Current()
	if !ok {
		return models.User{}, common.ErrNotAuthenticated
	}
	if err := upd.Validate(); err != nil {
		m.setProfile(models.Failed(common.Message(err)))
		return models.User{}, err
	}

	m.setProfile(models.Pending())

	var resp userResponse
	if err := m.gw.Send(ctx, http.MethodPut, "/auth/update", upd, nil, &resp); err != nil {
		m.setProfile(models.Failed(common.Message(err)))
		return models.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	latest, ok := m.creds.Current()
	if !ok || latest.Token != cred.Token {
		m.profile = models.Idle()
		return models.User{}, common.ErrSuperseded
	}

	u := resp.User
	u.ID, u.Role = latest.User.ID, latest.User.Role
	if err := m.creds.Save(ctx, credentials.Credential{Token: latest.Token, User: u}); err != nil {
		m.profile = models.Failed("could not store the profile")
		return models.User{}, err
	}
	m.profile = models.Succeeded()
	return u, nil
}

// Logout forgets the session locally. The in-memory state is anonymous on
// return even when removing the persisted record fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempt++
	m.state, m.message = StateAnonymous, ""
	m.profile = models.Idle()
	if err := m.creds.Clear(ctx); err != nil {
		m.log.Error(ctx, "failed to clear credential", "error", err)
		return err
	}
	return nil
}

// HandleUnauthorized moves the session to anonymous after the gateway has
// cleared the credential.
func (m *Manager) HandleUnauthorized() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state, m.message = StateAnonymous, ExpiredMessage
	m.profile = models.Idle()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// stateLocked reports anonymous when the credential disappeared underneath an
// authenticated session.
func (m *Manager) stateLocked() State {
	if m.state == StateAuthenticated {
		if _, ok := m.creds.Current(); !ok {
			return StateAnonymous
		}
	}
	return m.state
}

func (m *Manager) Message() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.message
}

func (m *Manager) CurrentUser() (models.User, bool) {
	cred, ok := m.creds.Current()
	return cred.User, ok
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{State: m.stateLocked(), Message: m.message, Profile: m.profile}
	if cred, ok := m.creds.Current(); ok {
		u := cred.User
		s.User = &u
	}
	return s
}

// ResetStatus clears the failure message and the profile status.
func (m *Manager) ResetStatus() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAuthFailed {
		m.state = StateAnonymous
	}
	m.message = ""
	m.profile = models.Idle()
}

func (m *Manager) setState(s State, msg string) {
	m.mu.Lock()
	m.state, m.message = s, msg
	m.mu.Unlock()
}

func (m *Manager) fail(msg string) {
	m.mu.Lock()
	m.failLocked(msg)
	m.mu.Unlock()
}

// failLocked records a failed attempt. A session that still holds a
// credential stays authenticated and only carries the message.
func (m *Manager) failLocked(msg string) {
	if _, ok := m.creds.Current(); ok {
		m.state, m.message = StateAuthenticated, msg
		return
	}
	m.state, m.message = StateAuthFailed, msg
}

func (m *Manager) setProfile(s models.OpState) {
	m.mu.Lock()
	m.profile = s
	m.mu.Unlock()
}
