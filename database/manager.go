package database

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/erikbos/moontv-server/database/model"
	"github.com/erikbos/moontv-server/database/noop"
)

// Connector constructs the storage backend. It runs at most once successfully.
type Connector func(ctx context.Context) (Storage, error)

type (
	Options struct {
		// Kind is the configured storage kind
		Kind   model.StorageKind
		Logger *zap.Logger
	}

	// Manager is the single entry point to storage. It resolves the backend
	// on first use and validates all keys before passing calls through.
	Manager struct {
		kind     model.StorageKind
		logger   *zap.Logger
		fallback Storage

		// mu guards binding and storage
		mu      sync.Mutex
		binding binding
		connect Connector
		// storage is the memoized backend, nil until resolved
		storage Storage
	}
)

type binding int

const (
	// unbound means a server side kind is configured but no connector is
	// available yet, calls are served by noop without memoizing.
	unbound binding = iota
	// disabled means the kind does not store anything server side.
	disabled
	// bound means a connector is available.
	bound
)

// New returns a Manager for the configured kind. Server side kinds start
// unbound until Bind is called.
func New(o *Options) *Manager {
	m := &Manager{
		kind:     o.Kind,
		logger:   o.Logger,
		fallback: noop.New(o.Kind),
		binding:  unbound,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if !o.Kind.ServerSide() {
		m.binding = disabled
	}
	return m
}

// Kind returns the configured storage kind.
func (m *Manager) Kind() model.StorageKind { return m.kind }

// Bind supplies the connector for the backend. It is ignored once a backend
// has been resolved or if storage is disabled.
func (m *Manager) Bind(connect Connector) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if connect == nil || m.binding == disabled || m.storage != nil {
		m.logger.Warn("storage bind ignored", zap.String("kind", string(m.kind)))
		return
	}
	m.connect = connect
	m.binding = bound
}

// Resolve returns the backend to use. Concurrent callers block until the
// first one finishes connecting and then share its result.
func (m *Manager) Resolve(ctx context.Context) Storage {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.storage != nil {
		return m.storage
	}
	switch m.binding {
	case disabled:
		m.storage = m.fallback
		return m.storage
	case unbound:
		return m.fallback
	}

	storage, err := m.connect(ctx)
	if err != nil {
		m.logger.Error("storage backend unavailable, serving empty results",
			zap.String("kind", string(m.kind)), zap.Error(err))
		return m.fallback
	}
	m.logger.Info("storage backend connected", zap.String("kind", string(m.kind)))
	m.storage = storage
	return storage
}

// Close closes the resolved backend, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		return nil
	}
	err := m.storage.Close()
	m.storage = nil
	return err
}

// Ping resolves the backend. It returns ErrBackendUnavailable if a server
// side kind is configured but calls are served by the noop fallback.
func (m *Manager) Ping(ctx context.Context) error {
	if !m.kind.ServerSide() {
		return nil
	}
	if m.Resolve(ctx) == m.fallback {
		return fmt.Errorf("%w: %s", model.ErrBackendUnavailable, m.kind)
	}
	return nil
}

func validUser(userName string) error {
	if !model.ValidUsername(userName) {
		return fmt.Errorf("%w: invalid username %q", model.ErrMalformed, userName)
	}
	return nil
}

func validSource(userName, source, id string) error {
	if err := validUser(userName); err != nil {
		return err
	}
	if !model.ValidSourceKeyPart(source) || !model.ValidSourceKeyPart(id) {
		return fmt.Errorf("%w: invalid source %q or id %q", model.ErrMalformed, source, id)
	}
	return nil
}

// GetPlayRecord returns the play record of a title, nil if there is none.
func (m *Manager) GetPlayRecord(ctx context.Context, userName, source, id string) (*model.PlayRecord, error) {
	if err := validSource(userName, source, id); err != nil {
		return nil, err
	}
	return m.Resolve(ctx).GetPlayRecord(ctx, userName, model.SourceKey(source, id))
}

func (m *Manager) SavePlayRecord(ctx context.Context, userName, source, id string, record *model.PlayRecord) error {
	if err := validSource(userName, source, id); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: nil play record", model.ErrMalformed)
	}
	return m.Resolve(ctx).SetPlayRecord(ctx, userName, model.SourceKey(source, id), record)
}

// GetAllPlayRecords returns all play records of a user keyed by source key.
func (m *Manager) GetAllPlayRecords(ctx context.Context, userName string) (map[string]*model.PlayRecord, error) {
	if err := validUser(userName); err != nil {
		return nil, err
	}
	return m.Resolve(ctx).GetAllPlayRecords(ctx, userName)
}

func (m *Manager) DeletePlayRecord(ctx context.Context, userName, source, id string) error {
	if err := validSource(userName, source, id); err != nil {
		return err
	}
	return m.Resolve(ctx).DeletePlayRecord(ctx, userName, model.SourceKey(source, id))
}

func (m *Manager) GetFavorite(ctx context.Context, userName, source, id string) (*model.Favorite, error) {
	if err := validSource(userName, source, id); err != nil {
		return nil, err
	}
	return m.Resolve(ctx).GetFavorite(ctx, userName, model.SourceKey(source, id))
}

func (m *Manager) SaveFavorite(ctx context.Context, userName, source, id string, favorite *model.Favorite) error {
	if err := validSource(userName, source, id); err != nil {
		return err
	}
	if favorite == nil {
		return fmt.Errorf("%w: nil favorite", model.ErrMalformed)
	}
	return m.Resolve(ctx).SetFavorite(ctx, userName, model.SourceKey(source, id), favorite)
}

func (m *Manager) GetAllFavorites(ctx context.Context, userName string) (map[string]*model.Favorite, error) {
	if err := validUser(userName); err != nil {
		return nil, err
	}
	return m.Resolve(ctx).GetAllFavorites(ctx, userName)
}

func (m *Manager) DeleteFavorite(ctx context.Context, userName, source, id string) error {
	if err := validSource(userName, source, id); err != nil {
		return err
	}
	return m.Resolve(ctx).DeleteFavorite(ctx, userName, model.SourceKey(source, id))
}

// IsFavorited returns true if the user marked the title as favorite.
func (m *Manager) IsFavorited(ctx context.Context, userName, source, id string) (bool, error) {
	favorite, err := m.GetFavorite(ctx, userName, source, id)
	return favorite != nil, err
}

func (m *Manager) RegisterUser(ctx context.Context, userName, password string) error {
	if err := validUser(userName); err != nil {
		return err
	}
	return m.Resolve(ctx).RegisterUser(ctx, userName, password)
}

func (m *Manager) VerifyUser(ctx context.Context, userName, password string) (bool, error) {
	if err := validUser(userName); err != nil {
		return false, err
	}
	return m.Resolve(ctx).VerifyUser(ctx, userName, password)
}

func (m *Manager) CheckUserExist(ctx context.Context, userName string) (bool, error) {
	if err := validUser(userName); err != nil {
		return false, err
	}
	return m.Resolve(ctx).CheckUserExist(ctx, userName)
}

func (m *Manager) ChangePassword(ctx context.Context, userName, newPassword string) error {
	if err := validUser(userName); err != nil {
		return err
	}
	return m.Resolve(ctx).ChangePassword(ctx, userName, newPassword)
}

// DeleteUser removes a user and all of the user's data.
func (m *Manager) DeleteUser(ctx context.Context, userName string) error {
	if err := validUser(userName); err != nil {
		return err
	}
	return m.Resolve(ctx).DeleteUser(ctx, userName)
}

func (m *Manager) GetAllUsers(ctx context.Context) ([]string, error) {
	return m.Resolve(ctx).GetAllUsers(ctx)
}

func (m *Manager) ExportableCredential(ctx context.Context, userName string) (string, bool, error) {
	if err := validUser(userName); err != nil {
		return "", false, err
	}
	return m.Resolve(ctx).ExportableCredential(ctx, userName)
}

// RestoreCredential stores a password hash taken from a backup.
func (m *Manager) RestoreCredential(ctx context.Context, userName, passwordHash string) error {
	if err := validUser(userName); err != nil {
		return err
	}
	if passwordHash == "" {
		return fmt.Errorf("%w: empty password hash", model.ErrMalformed)
	}
	return m.Resolve(ctx).RestoreCredential(ctx, userName, passwordHash)
}

func (m *Manager) GetSearchHistory(ctx context.Context, userName string) ([]string, error) {
	if err := validUser(userName); err != nil {
		return nil, err
	}
	return m.Resolve(ctx).GetSearchHistory(ctx, userName)
}

// AddSearchHistory records a search term, surrounding whitespace is removed.
func (m *Manager) AddSearchHistory(ctx context.Context, userName, keyword string) error {
	if err := validUser(userName); err != nil {
		return err
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return fmt.Errorf("%w: empty search keyword", model.ErrMalformed)
	}
	return m.Resolve(ctx).AddSearchHistory(ctx, userName, keyword)
}

// DeleteSearchHistory removes a search term, or all terms if keyword is empty.
func (m *Manager) DeleteSearchHistory(ctx context.Context, userName, keyword string) error {
	if err := validUser(userName); err != nil {
		return err
	}
	return m.Resolve(ctx).DeleteSearchHistory(ctx, userName, strings.TrimSpace(keyword))
}

func (m *Manager) GetAdminConfig(ctx context.Context) (*model.AdminConfig, error) {
	return m.Resolve(ctx).GetAdminConfig(ctx)
}

func (m *Manager) SaveAdminConfig(ctx context.Context, config *model.AdminConfig) error {
	if config == nil {
		return fmt.Errorf("%w: nil admin config", model.ErrMalformed)
	}
	return m.Resolve(ctx).SetAdminConfig(ctx, config)
}

func (m *Manager) GetSkipConfig(ctx context.Context, userName, source, id string) (*model.SkipConfig, error) {
	if err := validSource(userName, source, id); err != nil {
		return nil, err
	}
	return m.Resolve(ctx).GetSkipConfig(ctx, userName, source, id)
}

func (m *Manager) SetSkipConfig(ctx context.Context, userName, source, id string, config *model.SkipConfig) error {
	if err := validSource(userName, source, id); err != nil {
		return err
	}
	if config == nil {
		return fmt.Errorf("%w: nil skip config", model.ErrMalformed)
	}
	return m.Resolve(ctx).SetSkipConfig(ctx, userName, source, id, config)
}

func (m *Manager) DeleteSkipConfig(ctx context.Context, userName, source, id string) error {
	if err := validSource(userName, source, id); err != nil {
		return err
	}
	return m.Resolve(ctx).DeleteSkipConfig(ctx, userName, source, id)
}

func (m *Manager) GetAllSkipConfigs(ctx context.Context, userName string) (map[string]*model.SkipConfig, error) {
	if err := validUser(userName); err != nil {
		return nil, err
	}
	return m.Resolve(ctx).GetAllSkipConfigs(ctx, userName)
}

// ClearAllData removes all stored data. Backends that cannot do this return
// an *model.UnsupportedError.
func (m *Manager) ClearAllData(ctx context.Context) error {
	storage := m.Resolve(ctx)
	if err := storage.ClearAllData(ctx); err != nil {
		return err
	}
	m.logger.Warn("all stored data cleared", zap.String("kind", string(storage.Kind())))
	return nil
}
