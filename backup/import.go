package backup

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/erikbos/moontv-server/crypt"
	"github.com/erikbos/moontv-server/database/model"
)

// ImportReport summarizes an import.
type ImportReport struct {
	Users int `json:"users"`
	// Written is the number of entities stored
	Written  int             `json:"written"`
	Failures []ImportFailure `json:"failures,omitempty"`
}

// ImportFailure is an entity that could not be restored.
type ImportFailure struct {
	Username string `json:"username,omitempty"`
	// Kind is the entity type, e.g. "playRecord"
	Kind  string `json:"kind"`
	Key   string `json:"key,omitempty"`
	Error string `json:"error"`
}

func (r *ImportReport) fail(userName, kind, key string, err error) {
	r.Failures = append(r.Failures, ImportFailure{
		Username: userName,
		Kind:     kind,
		Key:      key,
		Error:    err.Error(),
	})
}

// Import restores an archive made by Export. Existing data is overwritten
// entity by entity, nothing is deleted first. Failures to store individual
// entities are recorded in the report.
func (s *Service) Import(ctx context.Context, caller *Principal, data []byte, password string) (*ImportReport, error) {
	if err := s.Authorize(caller); err != nil {
		return nil, err
	}
	if s.db.Kind() == model.KindLocalStorage {
		return nil, fmt.Errorf("%w: import is not available with localstorage", ErrBadRequest)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password required to decrypt the backup", ErrBadRequest)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty backup file", ErrBadRequest)
	}

	archive, err := Open(string(data), password)
	if err != nil {
		return nil, err
	}
	if err := s.validate(archive); err != nil {
		return nil, err
	}

	report := &ImportReport{Users: len(archive.Data.UserData)}
	if err := s.db.SaveAdminConfig(ctx, archive.Data.AdminConfig); err != nil {
		report.fail("", "adminConfig", "", err)
	} else {
		report.Written++
	}

	users := make([]string, 0, len(archive.Data.UserData))
	for userName := range archive.Data.UserData {
		users = append(users, userName)
	}
	slices.Sort(users)
	for _, userName := range users {
		if u := archive.Data.UserData[userName]; u != nil {
			s.restoreUser(ctx, report, userName, u)
		}
	}

	s.logger.Info("data imported",
		zap.String("archiveVersion", archive.ServerVersion),
		zap.String("archiveTime", archive.Timestamp),
		zap.Int("users", report.Users),
		zap.Int("written", report.Written),
		zap.Int("failures", len(report.Failures)))
	return report, nil
}

// validate rejects archives without admin config or from a newer major version.
func (s *Service) validate(archive *Archive) error {
	if archive.Data.AdminConfig == nil {
		return fmt.Errorf("%w: archive has no admin config", model.ErrMalformed)
	}
	archiveVersion, err := semver.NewVersion(archive.ServerVersion)
	if err != nil {
		return fmt.Errorf("%w: archive server version %q: %v", model.ErrMalformed, archive.ServerVersion, err)
	}
	ours, err := semver.NewVersion(s.serverVersion)
	if err != nil {
		// development builds accept any archive
		return nil
	}
	if archiveVersion.Major() > ours.Major() {
		return fmt.Errorf("%w: archive version %s is newer than server version %s",
			model.ErrMalformed, archiveVersion, ours)
	}
	return nil
}

func (s *Service) restoreUser(ctx context.Context, report *ImportReport, userName string, u *UserArchive) {
	ok := func(kind, key string, err error) {
		if err != nil {
			report.fail(userName, kind, key, err)
			return
		}
		report.Written++
	}

	// the owner authenticates against the environment, not storage
	if userName != s.ownerUsername {
		switch {
		case u.Password == nil || *u.Password == "":
			report.fail(userName, "credential", "", fmt.Errorf("%w: no credential in archive", model.ErrNotFound))
		case crypt.IsPasswordHash(*u.Password):
			ok("credential", "", s.db.RestoreCredential(ctx, userName, *u.Password))
		default:
			// plaintext passwords from backends that store them unhashed
			ok("credential", "", s.db.RegisterUser(ctx, userName, *u.Password))
		}
	}

	for key, record := range u.PlayRecords {
		ok("playRecord", key, withSourceKey(key, func(source, id string) error {
			return s.db.SavePlayRecord(ctx, userName, source, id, record)
		}))
	}
	for key, favorite := range u.Favorites {
		ok("favorite", key, withSourceKey(key, func(source, id string) error {
			return s.db.SaveFavorite(ctx, userName, source, id, favorite)
		}))
	}
	for key, config := range u.SkipConfigs {
		ok("skipConfig", key, withSkipConfigKey(key, func(source, id string) error {
			return s.db.SetSkipConfig(ctx, userName, source, id, config)
		}))
	}
	// stored most recent first, replay oldest first to keep the order
	for _, keyword := range slices.Backward(u.SearchHistory) {
		ok("searchHistory", keyword, s.db.AddSearchHistory(ctx, userName, keyword))
	}
}

// withSkipConfigKey also accepts "source:id", the skip config key of
// earlier deployments.
func withSkipConfigKey(key string, fn func(source, id string) error) error {
	if _, _, ok := model.ParseSourceKey(key); !ok {
		if source, id, found := strings.Cut(key, ":"); found {
			return fn(source, id)
		}
	}
	return withSourceKey(key, fn)
}

func withSourceKey(key string, fn func(source, id string) error) error {
	source, id, ok := model.ParseSourceKey(key)
	if !ok {
		return fmt.Errorf("%w: invalid key %q", model.ErrMalformed, key)
	}
	return fn(source, id)
}
