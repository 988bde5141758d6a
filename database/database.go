package database

import (
	"context"

	"github.com/erikbos/moontv-server/database/model"
)

type (
	// Storage is implemented by every storage backend.
	Storage interface {
		PlayRecordRepo
		FavoriteRepo
		UserRepo
		SearchHistoryRepo
		SkipConfigRepo
		AdminConfigRepo

		// Kind returns the storage kind of the backend.
		Kind() model.StorageKind
		// ClearAllData removes all data the backend manages.
		ClearAllData(ctx context.Context) error
		// Close releases the resources held by the backend.
		Close() error
	}

	// PlayRecordRepo stores playback progress, keyed by username and source key.
	PlayRecordRepo interface {
		// GetPlayRecord returns a play record, or nil if it does not exist.
		GetPlayRecord(ctx context.Context, userName, key string) (*model.PlayRecord, error)
		// SetPlayRecord creates or replaces a play record.
		SetPlayRecord(ctx context.Context, userName, key string, record *model.PlayRecord) error
		// GetAllPlayRecords returns all play records of a user keyed by source key.
		GetAllPlayRecords(ctx context.Context, userName string) (map[string]*model.PlayRecord, error)
		// DeletePlayRecord removes a play record.
		DeletePlayRecord(ctx context.Context, userName, key string) error
	}

	// FavoriteRepo stores favorites, keyed by username and source key.
	FavoriteRepo interface {
		// GetFavorite returns a favorite, or nil if it does not exist.
		GetFavorite(ctx context.Context, userName, key string) (*model.Favorite, error)
		// SetFavorite creates or replaces a favorite.
		SetFavorite(ctx context.Context, userName, key string, favorite *model.Favorite) error
		// GetAllFavorites returns all favorites of a user keyed by source key.
		GetAllFavorites(ctx context.Context, userName string) (map[string]*model.Favorite, error)
		// DeleteFavorite removes a favorite.
		DeleteFavorite(ctx context.Context, userName, key string) error
	}

	UserRepo interface {
		// RegisterUser stores a user with a hashed password.
		RegisterUser(ctx context.Context, userName, password string) error
		// VerifyUser checks if the user exists and the password is correct.
		VerifyUser(ctx context.Context, userName, password string) (bool, error)
		// CheckUserExist returns true if the user has a stored credential.
		CheckUserExist(ctx context.Context, userName string) (bool, error)
		// ChangePassword replaces the password of an existing user.
		ChangePassword(ctx context.Context, userName, newPassword string) error
		// DeleteUser removes the user and all data of the user.
		DeleteUser(ctx context.Context, userName string) error
		// GetAllUsers returns the names of all users with a stored credential.
		GetAllUsers(ctx context.Context) ([]string, error)
		// ExportableCredential returns the stored password hash of a user.
		// ok is false if the backend has no credential for the user.
		ExportableCredential(ctx context.Context, userName string) (hash string, ok bool, err error)
		// RestoreCredential stores an already hashed password as-is.
		RestoreCredential(ctx context.Context, userName, passwordHash string) error
	}

	SearchHistoryRepo interface {
		// GetSearchHistory returns search terms, most recent first.
		GetSearchHistory(ctx context.Context, userName string) ([]string, error)
		// AddSearchHistory moves keyword to the front of the history.
		AddSearchHistory(ctx context.Context, userName, keyword string) error
		// DeleteSearchHistory removes keyword, or the whole history if keyword is empty.
		DeleteSearchHistory(ctx context.Context, userName, keyword string) error
	}

	SkipConfigRepo interface {
		// GetSkipConfig returns a skip config, or nil if it does not exist.
		GetSkipConfig(ctx context.Context, userName, source, id string) (*model.SkipConfig, error)
		SetSkipConfig(ctx context.Context, userName, source, id string, config *model.SkipConfig) error
		DeleteSkipConfig(ctx context.Context, userName, source, id string) error
		// GetAllSkipConfigs returns all skip configs of a user keyed by source key.
		GetAllSkipConfigs(ctx context.Context, userName string) (map[string]*model.SkipConfig, error)
	}

	AdminConfigRepo interface {
		// GetAdminConfig returns the site configuration, or nil if none was stored.
		GetAdminConfig(ctx context.Context) (*model.AdminConfig, error)
		SetAdminConfig(ctx context.Context, config *model.AdminConfig) error
	}
)
