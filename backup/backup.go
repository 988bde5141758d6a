// Package backup exports and imports the complete dataset as an encrypted archive.
package backup

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/erikbos/moontv-server/database/model"
)

var (
	ErrConfigUnavailable = errors.New("admin config unavailable")
	ErrBadRequest        = errors.New("bad request")
)

// ClearConfirmation must be passed to ClearAllData verbatim.
const ClearConfirmation = "CLEAR ALL DATA"

// Store is the storage used by backup, implemented by *database.Manager.
type Store interface {
	Kind() model.StorageKind

	GetAdminConfig(ctx context.Context) (*model.AdminConfig, error)
	SaveAdminConfig(ctx context.Context, config *model.AdminConfig) error

	GetAllUsers(ctx context.Context) ([]string, error)
	RegisterUser(ctx context.Context, userName, password string) error
	ExportableCredential(ctx context.Context, userName string) (string, bool, error)
	RestoreCredential(ctx context.Context, userName, passwordHash string) error

	GetAllPlayRecords(ctx context.Context, userName string) (map[string]*model.PlayRecord, error)
	SavePlayRecord(ctx context.Context, userName, source, id string, record *model.PlayRecord) error
	GetAllFavorites(ctx context.Context, userName string) (map[string]*model.Favorite, error)
	SaveFavorite(ctx context.Context, userName, source, id string, favorite *model.Favorite) error
	GetSearchHistory(ctx context.Context, userName string) ([]string, error)
	AddSearchHistory(ctx context.Context, userName, keyword string) error
	GetAllSkipConfigs(ctx context.Context, userName string) (map[string]*model.SkipConfig, error)
	SetSkipConfig(ctx context.Context, userName, source, id string, config *model.SkipConfig) error

	ClearAllData(ctx context.Context) error
}

type (
	Options struct {
		Db Store
		// OwnerUsername and OwnerPassword are the site owner credentials from
		// the environment. The owner is the only user allowed to migrate data.
		OwnerUsername string
		OwnerPassword string
		// ServerVersion is written into exported archives
		ServerVersion string
		Logger        *zap.Logger
		// Now returns the current time, defaults to time.Now
		Now func() time.Time
	}

	Service struct {
		db            Store
		ownerUsername string
		ownerPassword string
		serverVersion string
		logger        *zap.Logger
		now           func() time.Time
	}

	// Principal is an authenticated caller.
	Principal struct {
		Username string
	}
)

func New(o *Options) *Service {
	s := &Service{
		db:            o.Db,
		ownerUsername: o.OwnerUsername,
		ownerPassword: o.OwnerPassword,
		serverVersion: o.ServerVersion,
		logger:        o.Logger,
		now:           o.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IsOwner returns true if the credentials match the configured owner.
func (s *Service) IsOwner(username, password string) bool {
	if s.ownerUsername == "" || s.ownerPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(username), []byte(s.ownerUsername)) == 1 &&
		subtle.ConstantTimeCompare([]byte(password), []byte(s.ownerPassword)) == 1
}

// Authorize allows only the owner.
func (s *Service) Authorize(caller *Principal) error {
	if caller == nil || caller.Username == "" {
		return model.ErrUnauthenticated
	}
	if s.ownerUsername == "" || caller.Username != s.ownerUsername {
		return fmt.Errorf("%w: only the site owner may migrate data", model.ErrForbidden)
	}
	return nil
}

// ClearAllData wipes all stored data. confirm must equal ClearConfirmation.
func (s *Service) ClearAllData(ctx context.Context, caller *Principal, confirm string) error {
	if err := s.Authorize(caller); err != nil {
		return err
	}
	if confirm != ClearConfirmation {
		return fmt.Errorf("%w: confirmation %q required", ErrBadRequest, ClearConfirmation)
	}
	if err := s.db.ClearAllData(ctx); err != nil {
		return err
	}
	s.logger.Warn("all data cleared", zap.String("by", caller.Username))
	return nil
}

// sortedUsers returns the stored users plus the owner, sorted and without duplicates.
func (s *Service) sortedUsers(ctx context.Context) ([]string, error) {
	users, err := s.db.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	users = append(slices.Clone(users), s.ownerUsername)
	slices.Sort(users)
	return slices.Compact(users), nil
}
