package noop

import (
	"context"
	"errors"
	"testing"

	"github.com/erikbos/moontv-server/database/model"
)

func TestReadsEmptyWritesSucceed(t *testing.T) {
	ctx := context.Background()
	s := New(model.KindDisabled)

	if err := s.SetPlayRecord(ctx, "alice", "a+1", &model.PlayRecord{Title: "T"}); err != nil {
		t.Fatalf("SetPlayRecord error = %v", err)
	}
	if r, err := s.GetPlayRecord(ctx, "alice", "a+1"); r != nil || err != nil {
		t.Fatalf("GetPlayRecord = %v, %v, want nil, nil", r, err)
	}
	if all, err := s.GetAllPlayRecords(ctx, "alice"); all == nil || len(all) != 0 || err != nil {
		t.Fatalf("GetAllPlayRecords = %v, %v, want empty map", all, err)
	}
	if err := s.RegisterUser(ctx, "alice", "pw"); err != nil {
		t.Fatalf("RegisterUser error = %v", err)
	}
	if ok, _ := s.VerifyUser(ctx, "alice", "pw"); ok {
		t.Fatalf("VerifyUser = true on noop store")
	}
	if users, _ := s.GetAllUsers(ctx); users == nil || len(users) != 0 {
		t.Fatalf("GetAllUsers = %v, want empty slice", users)
	}
	if _, ok, err := s.ExportableCredential(ctx, "alice"); ok || err != nil {
		t.Fatalf("ExportableCredential ok = %v, err = %v", ok, err)
	}
	if h, _ := s.GetSearchHistory(ctx, "alice"); h == nil || len(h) != 0 {
		t.Fatalf("GetSearchHistory = %v, want empty slice", h)
	}
	if cfg, err := s.GetAdminConfig(ctx); cfg != nil || err != nil {
		t.Fatalf("GetAdminConfig = %v, %v", cfg, err)
	}
}

func TestClearAllDataUnsupported(t *testing.T) {
	err := New(model.KindLocalStorage).ClearAllData(context.Background())
	if !errors.Is(err, model.ErrUnsupported) {
		t.Fatalf("ClearAllData error = %v, want ErrUnsupported", err)
	}
	var ue *model.UnsupportedError
	if !errors.As(err, &ue) || ue.Op != "clearAllData" || ue.Kind != model.KindLocalStorage {
		t.Fatalf("ClearAllData error = %#v", err)
	}
}
