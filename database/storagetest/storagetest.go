// Package storagetest checks that a storage backend behaves like all others.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"testing"

	"github.com/erikbos/moontv-server/crypt"
	"github.com/erikbos/moontv-server/database"
	"github.com/erikbos/moontv-server/database/model"
)

// NewStorage returns an empty backend for one test.
type NewStorage func(t *testing.T) database.Storage

// Run runs all conformance tests against backends created by newStorage.
func Run(t *testing.T, newStorage NewStorage) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s database.Storage)
	}{
		{"PlayRecords", testPlayRecords},
		{"Favorites", testFavorites},
		{"Users", testUsers},
		{"Credentials", testCredentials},
		{"SearchHistory", testSearchHistory},
		{"SkipConfigs", testSkipConfigs},
		{"AdminConfig", testAdminConfig},
		{"DeleteUserCascade", testDeleteUserCascade},
		{"ClearAllData", testClearAllData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStorage(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

// PlayRecord returns a play record with recognizable values.
func PlayRecord(title string, episode int) *model.PlayRecord {
	return &model.PlayRecord{
		Title:         title,
		SourceName:    "Source " + title,
		Cover:         "https://img.example.com/" + title + ".jpg",
		Year:          "2024",
		Index:         episode,
		TotalEpisodes: 24,
		PlayTime:      600 + episode,
		TotalTime:     2700,
		SaveTime:      1700000000000 + int64(episode),
		SearchTitle:   title,
	}
}

func Favorite(title string) *model.Favorite {
	return &model.Favorite{
		SourceName:    "Source " + title,
		TotalEpisodes: 12,
		Title:         title,
		Year:          "2023",
		Cover:         "https://img.example.com/" + title + ".jpg",
		SaveTime:      1700000001000,
		SearchTitle:   title,
	}
}

func AdminConfig() *model.AdminConfig {
	return &model.AdminConfig{
		ConfigFile: `{"cache_time":7200}`,
		SiteConfig: model.SiteConfig{
			SiteName:                "MoonTV",
			Announcement:            "welcome",
			SearchDownstreamMaxPage: 5,
			SiteInterfaceCacheTime:  7200,
			DoubanProxyType:         "direct",
			FluidSearch:             true,
		},
		UserConfig: model.UserConfig{
			AllowRegister: true,
			Users: []model.UserEntry{
				{Username: "owner", Role: model.RoleOwner},
				{Username: "alice", Role: model.RoleUser},
				{Username: "bob", Role: model.RoleAdmin, Banned: true},
			},
		},
		SourceConfig: []model.VideoSource{
			{Key: "heimuer", Name: "Heimuer", API: "https://api.example.com/provide/vod", From: "config"},
		},
		CustomCategories: []model.CustomCategory{
			{Name: "Hot", Type: "movie", Query: "hot", From: "custom"},
		},
		LiveConfig: []model.LiveSource{
			{Key: "tv", Name: "TV", URL: "https://live.example.com/tv.m3u", From: "config", ChannelNumber: 42},
		},
	}
}

func testPlayRecords(t *testing.T, s database.Storage) {
	ctx := context.Background()
	key := model.SourceKey("heimuer", "1001")

	got, err := s.GetPlayRecord(ctx, "alice", key)
	if err != nil || got != nil {
		t.Fatalf("GetPlayRecord on empty store = %v, %v, want nil, nil", got, err)
	}

	want := PlayRecord("Show", 3)
	if err := s.SetPlayRecord(ctx, "alice", key, want); err != nil {
		t.Fatalf("SetPlayRecord error = %v", err)
	}
	if got, err = s.GetPlayRecord(ctx, "alice", key); err != nil || !reflect.DeepEqual(got, want) {
		t.Fatalf("GetPlayRecord = %+v, %v, want %+v", got, err, want)
	}

	// upsert replaces
	want = PlayRecord("Show", 4)
	if err := s.SetPlayRecord(ctx, "alice", key, want); err != nil {
		t.Fatalf("SetPlayRecord error = %v", err)
	}
	other := model.SourceKey("ffzy", "abc")
	if err := s.SetPlayRecord(ctx, "alice", other, PlayRecord("Other", 1)); err != nil {
		t.Fatalf("SetPlayRecord error = %v", err)
	}
	// a user whose name is a prefix of another must not leak in
	if err := s.SetPlayRecord(ctx, "alicex", key, PlayRecord("Leak", 1)); err != nil {
		t.Fatalf("SetPlayRecord error = %v", err)
	}

	all, err := s.GetAllPlayRecords(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAllPlayRecords error = %v", err)
	}
	if len(all) != 2 || !reflect.DeepEqual(all[key], want) || all[other] == nil {
		t.Fatalf("GetAllPlayRecords = %+v", all)
	}
	for k := range all {
		if _, _, ok := model.ParseSourceKey(k); !ok {
			t.Fatalf("GetAllPlayRecords key %q is not a source key", k)
		}
	}

	if err := s.DeletePlayRecord(ctx, "alice", key); err != nil {
		t.Fatalf("DeletePlayRecord error = %v", err)
	}
	if got, _ := s.GetPlayRecord(ctx, "alice", key); got != nil {
		t.Fatalf("GetPlayRecord after delete = %+v", got)
	}
	if all, _ := s.GetAllPlayRecords(ctx, "bob"); len(all) != 0 {
		t.Fatalf("GetAllPlayRecords for unknown user = %+v", all)
	}
}

func testFavorites(t *testing.T, s database.Storage) {
	ctx := context.Background()
	key := model.SourceKey("heimuer", "2002")

	if got, err := s.GetFavorite(ctx, "alice", key); err != nil || got != nil {
		t.Fatalf("GetFavorite on empty store = %v, %v", got, err)
	}
	want := Favorite("Movie")
	if err := s.SetFavorite(ctx, "alice", key, want); err != nil {
		t.Fatalf("SetFavorite error = %v", err)
	}
	if got, err := s.GetFavorite(ctx, "alice", key); err != nil || !reflect.DeepEqual(got, want) {
		t.Fatalf("GetFavorite = %+v, %v", got, err)
	}
	all, err := s.GetAllFavorites(ctx, "alice")
	if err != nil || len(all) != 1 || !reflect.DeepEqual(all[key], want) {
		t.Fatalf("GetAllFavorites = %+v, %v", all, err)
	}
	if err := s.DeleteFavorite(ctx, "alice", key); err != nil {
		t.Fatalf("DeleteFavorite error = %v", err)
	}
	if all, _ := s.GetAllFavorites(ctx, "alice"); len(all) != 0 {
		t.Fatalf("GetAllFavorites after delete = %+v", all)
	}
}

func testUsers(t *testing.T, s database.Storage) {
	ctx := context.Background()

	if ok, err := s.CheckUserExist(ctx, "alice"); err != nil || ok {
		t.Fatalf("CheckUserExist on empty store = %v, %v", ok, err)
	}
	if ok, err := s.VerifyUser(ctx, "alice", "pw"); err != nil || ok {
		t.Fatalf("VerifyUser for unknown user = %v, %v", ok, err)
	}

	for _, name := range []string{"alice", "bob"} {
		if err := s.RegisterUser(ctx, name, name+"-pw"); err != nil {
			t.Fatalf("RegisterUser(%s) error = %v", name, err)
		}
	}
	if ok, err := s.CheckUserExist(ctx, "alice"); err != nil || !ok {
		t.Fatalf("CheckUserExist = %v, %v", ok, err)
	}
	if ok, err := s.VerifyUser(ctx, "alice", "alice-pw"); err != nil || !ok {
		t.Fatalf("VerifyUser with right password = %v, %v", ok, err)
	}
	if ok, _ := s.VerifyUser(ctx, "alice", "bob-pw"); ok {
		t.Fatalf("VerifyUser with wrong password = true")
	}

	users, err := s.GetAllUsers(ctx)
	if err != nil {
		t.Fatalf("GetAllUsers error = %v", err)
	}
	slices.Sort(users)
	if !slices.Equal(users, []string{"alice", "bob"}) {
		t.Fatalf("GetAllUsers = %v", users)
	}

	if err := s.ChangePassword(ctx, "alice", "new-pw"); err != nil {
		t.Fatalf("ChangePassword error = %v", err)
	}
	if ok, _ := s.VerifyUser(ctx, "alice", "alice-pw"); ok {
		t.Fatalf("old password still valid after ChangePassword")
	}
	if ok, _ := s.VerifyUser(ctx, "alice", "new-pw"); !ok {
		t.Fatalf("new password not valid after ChangePassword")
	}
	if err := s.ChangePassword(ctx, "nobody", "pw"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("ChangePassword for unknown user error = %v, want ErrNotFound", err)
	}
}

func testCredentials(t *testing.T, s database.Storage) {
	ctx := context.Background()

	if _, ok, err := s.ExportableCredential(ctx, "alice"); err != nil || ok {
		t.Fatalf("ExportableCredential for unknown user ok = %v, err = %v", ok, err)
	}
	if err := s.RegisterUser(ctx, "alice", "secret"); err != nil {
		t.Fatalf("RegisterUser error = %v", err)
	}
	hash, ok, err := s.ExportableCredential(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("ExportableCredential = %v, %v", ok, err)
	}
	if !crypt.IsPasswordHash(hash) || hash == "secret" {
		t.Fatalf("ExportableCredential = %q, want salt:hash", hash)
	}

	if err := s.RestoreCredential(ctx, "carol", hash); err != nil {
		t.Fatalf("RestoreCredential error = %v", err)
	}
	if ok, _ := s.VerifyUser(ctx, "carol", "secret"); !ok {
		t.Fatalf("restored credential does not verify")
	}
	if got, _, _ := s.ExportableCredential(ctx, "carol"); got != hash {
		t.Fatalf("restored credential = %q, want %q", got, hash)
	}
}

func testSearchHistory(t *testing.T, s database.Storage) {
	ctx := context.Background()

	history, err := s.GetSearchHistory(ctx, "alice")
	if err != nil || len(history) != 0 {
		t.Fatalf("GetSearchHistory on empty store = %v, %v", history, err)
	}

	for i := range 25 {
		if err := s.AddSearchHistory(ctx, "alice", fmt.Sprintf("q%d", i)); err != nil {
			t.Fatalf("AddSearchHistory error = %v", err)
		}
	}
	history, err = s.GetSearchHistory(ctx, "alice")
	if err != nil {
		t.Fatalf("GetSearchHistory error = %v", err)
	}
	want := make([]string, 0, model.MaxSearchHistory)
	for i := 24; i >= 5; i-- {
		want = append(want, fmt.Sprintf("q%d", i))
	}
	if !slices.Equal(history, want) {
		t.Fatalf("GetSearchHistory = %v, want %v", history, want)
	}

	if err := s.AddSearchHistory(ctx, "alice", "q10"); err != nil {
		t.Fatalf("AddSearchHistory error = %v", err)
	}
	history, _ = s.GetSearchHistory(ctx, "alice")
	if len(history) != model.MaxSearchHistory || history[0] != "q10" || history[1] != "q24" {
		t.Fatalf("GetSearchHistory after re-insert = %v", history)
	}
	if n := countOf(history, "q10"); n != 1 {
		t.Fatalf("q10 present %d times", n)
	}

	if err := s.DeleteSearchHistory(ctx, "alice", "q24"); err != nil {
		t.Fatalf("DeleteSearchHistory error = %v", err)
	}
	history, _ = s.GetSearchHistory(ctx, "alice")
	if slices.Contains(history, "q24") || len(history) != model.MaxSearchHistory-1 {
		t.Fatalf("GetSearchHistory after delete = %v", history)
	}

	if err := s.DeleteSearchHistory(ctx, "alice", ""); err != nil {
		t.Fatalf("DeleteSearchHistory all error = %v", err)
	}
	if history, _ = s.GetSearchHistory(ctx, "alice"); len(history) != 0 {
		t.Fatalf("GetSearchHistory after clear = %v", history)
	}
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

func testSkipConfigs(t *testing.T, s database.Storage) {
	ctx := context.Background()

	if got, err := s.GetSkipConfig(ctx, "alice", "heimuer", "1001"); err != nil || got != nil {
		t.Fatalf("GetSkipConfig on empty store = %v, %v", got, err)
	}
	want := &model.SkipConfig{Enable: true, IntroTime: 90, OutroTime: 120}
	if err := s.SetSkipConfig(ctx, "alice", "heimuer", "1001", want); err != nil {
		t.Fatalf("SetSkipConfig error = %v", err)
	}
	if err := s.SetSkipConfig(ctx, "alice", "ffzy", "7", &model.SkipConfig{}); err != nil {
		t.Fatalf("SetSkipConfig error = %v", err)
	}
	if got, err := s.GetSkipConfig(ctx, "alice", "heimuer", "1001"); err != nil || !reflect.DeepEqual(got, want) {
		t.Fatalf("GetSkipConfig = %+v, %v", got, err)
	}
	all, err := s.GetAllSkipConfigs(ctx, "alice")
	if err != nil || len(all) != 2 || !reflect.DeepEqual(all[model.SourceKey("heimuer", "1001")], want) {
		t.Fatalf("GetAllSkipConfigs = %+v, %v", all, err)
	}
	if err := s.DeleteSkipConfig(ctx, "alice", "heimuer", "1001"); err != nil {
		t.Fatalf("DeleteSkipConfig error = %v", err)
	}
	if all, _ := s.GetAllSkipConfigs(ctx, "alice"); len(all) != 1 {
		t.Fatalf("GetAllSkipConfigs after delete = %+v", all)
	}
}

func testAdminConfig(t *testing.T, s database.Storage) {
	ctx := context.Background()

	if got, err := s.GetAdminConfig(ctx); err != nil || got != nil {
		t.Fatalf("GetAdminConfig on empty store = %v, %v", got, err)
	}
	want := AdminConfig()
	if err := s.SetAdminConfig(ctx, want); err != nil {
		t.Fatalf("SetAdminConfig error = %v", err)
	}
	got, err := s.GetAdminConfig(ctx)
	if err != nil || !reflect.DeepEqual(got, want) {
		t.Fatalf("GetAdminConfig = %+v, %v, want %+v", got, err, want)
	}
	want.SiteConfig.SiteName = "Renamed"
	if err := s.SetAdminConfig(ctx, want); err != nil {
		t.Fatalf("SetAdminConfig error = %v", err)
	}
	if got, _ = s.GetAdminConfig(ctx); got.SiteConfig.SiteName != "Renamed" {
		t.Fatalf("GetAdminConfig after update = %+v", got.SiteConfig)
	}
}

// fill stores one entity of every kind for userName.
func fill(t *testing.T, s database.Storage, userName string) {
	t.Helper()
	ctx := context.Background()
	key := model.SourceKey("heimuer", "1")
	if err := s.RegisterUser(ctx, userName, "pw"); err != nil {
		t.Fatalf("RegisterUser error = %v", err)
	}
	if err := s.SetPlayRecord(ctx, userName, key, PlayRecord("T", 1)); err != nil {
		t.Fatalf("SetPlayRecord error = %v", err)
	}
	if err := s.SetFavorite(ctx, userName, key, Favorite("T")); err != nil {
		t.Fatalf("SetFavorite error = %v", err)
	}
	if err := s.AddSearchHistory(ctx, userName, "term"); err != nil {
		t.Fatalf("AddSearchHistory error = %v", err)
	}
	if err := s.SetSkipConfig(ctx, userName, "heimuer", "1", &model.SkipConfig{Enable: true}); err != nil {
		t.Fatalf("SetSkipConfig error = %v", err)
	}
}

func assertEmpty(t *testing.T, s database.Storage, userName string) {
	t.Helper()
	ctx := context.Background()
	if ok, _ := s.CheckUserExist(ctx, userName); ok {
		t.Fatalf("user %s still exists", userName)
	}
	if all, _ := s.GetAllPlayRecords(ctx, userName); len(all) != 0 {
		t.Fatalf("play records of %s remain: %v", userName, all)
	}
	if all, _ := s.GetAllFavorites(ctx, userName); len(all) != 0 {
		t.Fatalf("favorites of %s remain: %v", userName, all)
	}
	if h, _ := s.GetSearchHistory(ctx, userName); len(h) != 0 {
		t.Fatalf("search history of %s remains: %v", userName, h)
	}
	if all, _ := s.GetAllSkipConfigs(ctx, userName); len(all) != 0 {
		t.Fatalf("skip configs of %s remain: %v", userName, all)
	}
}

func testDeleteUserCascade(t *testing.T, s database.Storage) {
	ctx := context.Background()
	fill(t, s, "alice")
	fill(t, s, "bob")

	if err := s.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUser error = %v", err)
	}
	assertEmpty(t, s, "alice")

	if ok, _ := s.CheckUserExist(ctx, "bob"); !ok {
		t.Fatalf("DeleteUser removed another user")
	}
	if all, _ := s.GetAllPlayRecords(ctx, "bob"); len(all) != 1 {
		t.Fatalf("DeleteUser removed play records of another user")
	}
}

func testClearAllData(t *testing.T, s database.Storage) {
	ctx := context.Background()
	fill(t, s, "alice")
	if err := s.SetAdminConfig(ctx, AdminConfig()); err != nil {
		t.Fatalf("SetAdminConfig error = %v", err)
	}

	if err := s.ClearAllData(ctx); err != nil {
		t.Fatalf("ClearAllData error = %v", err)
	}
	assertEmpty(t, s, "alice")
	if users, _ := s.GetAllUsers(ctx); len(users) != 0 {
		t.Fatalf("GetAllUsers after clear = %v", users)
	}
	if cfg, _ := s.GetAdminConfig(ctx); cfg != nil {
		t.Fatalf("GetAdminConfig after clear = %+v", cfg)
	}
}
