package cmd

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erikbos/moontv-server/config"
	"github.com/erikbos/moontv-server/database"
	"github.com/erikbos/moontv-server/database/model"
	"github.com/erikbos/moontv-server/database/sqlstore"
	"github.com/erikbos/moontv-server/database/storagetest"
)

func TestHttpLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := HttpLog(zap.New(core), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("hello"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	ok := entries[0].ContextMap()
	if ok["status"] != int64(200) || ok["length"] != int64(5) || entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("first entry = %v at %v", ok, entries[0].Level)
	}
	if entries[1].ContextMap()["status"] != int64(404) || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("second entry = %v at %v", entries[1].ContextMap(), entries[1].Level)
	}
}

// writeKeypair writes a self-signed certificate and its key.
func writeKeypair(t *testing.T, dir string, serial int64) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDer, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certPath, keyPath
}

func TestKeypairReloader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()

	certPath, keyPath := writeKeypair(t, dir, 1)
	kpr, err := newKeypairReloader(ctx, certPath, keyPath, zap.NewNop())
	if err != nil {
		t.Fatalf("newKeypairReloader error = %v", err)
	}
	get := kpr.GetCertificateFunc()
	first, _ := get(nil)

	writeKeypair(t, dir, 2)
	if err := kpr.maybeReload(); err != nil {
		t.Fatalf("maybeReload error = %v", err)
	}
	second, _ := get(nil)
	if bytes.Equal(first.Certificate[0], second.Certificate[0]) {
		t.Fatalf("certificate not reloaded")
	}

	if err := os.WriteFile(certPath, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := kpr.maybeReload(); err == nil {
		t.Fatalf("maybeReload of garbage succeeded")
	}
	if kept, _ := get(nil); kept != second {
		t.Fatalf("failed reload replaced the certificate")
	}

	if _, err := newKeypairReloader(ctx, filepath.Join(dir, "none.pem"), keyPath, zap.NewNop()); err == nil {
		t.Fatalf("newKeypairReloader with missing cert succeeded")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String(), err
}

func openSQLite(t *testing.T, dsn string) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.New(context.Background(), model.KindSQLite, &sqlstore.ConfigFile{DSN: dsn})
	if err != nil {
		t.Fatalf("sqlstore.New error = %v", err)
	}
	return s
}

func TestMigrateCommands(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	t.Chdir(dir)
	dsn := filepath.Join(dir, "moontv.db")
	t.Setenv("MOONTV_STORAGE_TYPE", "sqlite")
	t.Setenv("MOONTV_STORAGE_SQLITE_DSN", dsn)
	t.Setenv("MOONTV_OWNER_USERNAME", "owner")
	t.Setenv("MOONTV_OWNER_PASSWORD", "owner-secret")
	t.Setenv("MOONTV_LOGLEVEL", "error")

	s := openSQLite(t, dsn)
	if err := s.SetAdminConfig(ctx, storagetest.AdminConfig()); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterUser(ctx, "alice", "alice-pw"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPlayRecord(ctx, "alice", model.SourceKey("heimuer", "100"), storagetest.PlayRecord("Show", 3)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	backupDir := filepath.Join(dir, "backups")
	if err := os.Mkdir(backupDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if out, err := run(t, "export", "--password", "hunter2", "--out", backupDir); err != nil {
		t.Fatalf("export error = %v, output %s", err, out)
	}
	files, _ := filepath.Glob(filepath.Join(backupDir, "moontv-backup-*.dat"))
	if len(files) != 1 {
		t.Fatalf("backup files = %v", files)
	}

	clearYes = false
	if _, err := run(t, "clear"); err == nil {
		t.Fatalf("clear without --yes succeeded")
	}
	if out, err := run(t, "clear", "--yes"); err != nil {
		t.Fatalf("clear error = %v, output %s", err, out)
	}
	s = openSQLite(t, dsn)
	if ok, _ := s.CheckUserExist(ctx, "alice"); ok {
		t.Fatalf("alice exists after clear")
	}
	s.Close()

	if _, err := run(t, "import", "--password", "wrong", files[0]); err == nil {
		t.Fatalf("import with wrong password succeeded")
	}
	if out, err := run(t, "import", "--password", "hunter2", files[0]); err != nil {
		t.Fatalf("import error = %v, output %s", err, out)
	}

	s = openSQLite(t, dsn)
	defer s.Close()
	if ok, _ := s.VerifyUser(ctx, "alice", "alice-pw"); !ok {
		t.Fatalf("alice credential not restored")
	}
	record, err := s.GetPlayRecord(ctx, "alice", model.SourceKey("heimuer", "100"))
	if err != nil || record == nil || record.Index != 3 {
		t.Fatalf("play record = %+v, %v", record, err)
	}
}

func TestOpenStorageLocalStorageBindsNothing(t *testing.T) {
	prevCfg, prevLogger := cfg, logger
	t.Cleanup(func() { cfg, logger = prevCfg, prevLogger })

	core, logs := observer.New(zapcore.WarnLevel)
	logger = zap.New(core)
	cfg = &config.Config{Storage: database.Config{Type: "localstorage"}}

	db, err := openStorage()
	if err != nil {
		t.Fatalf("openStorage error = %v", err)
	}
	defer db.Close()
	if db.Kind() != model.KindLocalStorage {
		t.Fatalf("kind = %s", db.Kind())
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected warnings: %v", logs.All())
	}
}

func TestOfflineCommandsNeedOwner(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MOONTV_STORAGE_TYPE", "memory")
	t.Setenv("MOONTV_OWNER_USERNAME", "")
	t.Setenv("USERNAME", "")
	t.Setenv("MOONTV_LOGLEVEL", "error")

	if _, err := run(t, "export", "--password", "pw"); err == nil {
		t.Fatalf("export without owner succeeded")
	}
}
