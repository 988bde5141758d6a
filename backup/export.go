package backup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erikbos/moontv-server/database/model"
)

// Artifact is an exported backup.
type Artifact struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Export collects all data, and returns it as an archive encrypted with password.
func (s *Service) Export(ctx context.Context, caller *Principal, password string) (*Artifact, error) {
	if err := s.Authorize(caller); err != nil {
		return nil, err
	}
	if s.db.Kind() == model.KindLocalStorage {
		return nil, fmt.Errorf("%w: export is not available with localstorage", ErrBadRequest)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password required to encrypt the backup", ErrBadRequest)
	}

	now := s.now()
	archive, err := s.collect(ctx, now)
	if err != nil {
		return nil, err
	}

	sealed, err := Seal(archive, password)
	if err != nil {
		return nil, err
	}

	s.logger.Info("data exported",
		zap.Int("users", len(archive.Data.UserData)),
		zap.Int("bytes", len(sealed)))

	return &Artifact{
		Data:        []byte(sealed),
		Filename:    Filename(now),
		ContentType: "application/octet-stream",
	}, nil
}

// Filename returns the name of a backup made at t.
func Filename(t time.Time) string {
	return "moontv-backup-" + t.Format("20060102-150405") + ".dat"
}

func (s *Service) collect(ctx context.Context, now time.Time) (*Archive, error) {
	config, err := s.db.GetAdminConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}
	if config == nil {
		return nil, ErrConfigUnavailable
	}

	users, err := s.sortedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	archive := &Archive{
		Timestamp:     now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		ServerVersion: s.serverVersion,
		Data: ArchiveData{
			AdminConfig: config,
			UserData:    make(map[string]*UserArchive, len(users)),
		},
	}
	for _, userName := range users {
		u, err := s.collectUser(ctx, userName)
		if err != nil {
			return nil, fmt.Errorf("export user %s: %w", userName, err)
		}
		archive.Data.UserData[userName] = u
	}

	// the owner has no stored credential, the environment password goes in
	if owner := archive.Data.UserData[s.ownerUsername]; owner != nil {
		password := s.ownerPassword
		owner.Password = &password
	}
	return archive, nil
}

func (s *Service) collectUser(ctx context.Context, userName string) (*UserArchive, error) {
	var (
		u   UserArchive
		err error
	)
	if u.PlayRecords, err = s.db.GetAllPlayRecords(ctx, userName); err != nil {
		return nil, fmt.Errorf("play records: %w", err)
	}
	if u.Favorites, err = s.db.GetAllFavorites(ctx, userName); err != nil {
		return nil, fmt.Errorf("favorites: %w", err)
	}
	if u.SearchHistory, err = s.db.GetSearchHistory(ctx, userName); err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	if u.SkipConfigs, err = s.db.GetAllSkipConfigs(ctx, userName); err != nil {
		return nil, fmt.Errorf("skip configs: %w", err)
	}

	hash, ok, err := s.db.ExportableCredential(ctx, userName)
	switch {
	case err != nil:
		s.logger.Warn("cannot export credential", zap.String("user", userName), zap.Error(err))
	case ok:
		u.Password = &hash
	}
	return &u, nil
}
