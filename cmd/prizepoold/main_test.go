package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"prizepool/config"
	"prizepool/crypto"
	"prizepool/native/prizepool"
	"prizepool/observability/logging"
	"prizepool/rpc"
	"prizepool/storage"
)

func TestNewNodeServesStatus(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	admin := crypto.LabelAddress("admin")
	cfg.Admin = admin.String()

	db := storage.NewMemDB()
	defer db.Close()
	n, err := newNode(cfg, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	server := httptest.NewServer(n.server.Handler())
	defer server.Close()
	client := rpc.NewClient(server.URL, cfg.RPC.AuthToken)

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Zero(t, status.Height)
	require.Equal(t, admin.String(), status.Admin)

	authority, err := client.PoolAuthority(context.Background(), prizepool.GameIDFromLabel("x"))
	require.NoError(t, err)
	require.False(t, crypto.IsOnCurve(authority.Authority.Bytes()))
}

func TestNewNodeRejectsBadAdmin(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	cfg.Admin = "garbage"
	db := storage.NewMemDB()
	defer db.Close()
	_, err = newNode(cfg, db, slog.Default())
	require.Error(t, err)
}

func TestNewNodeMasksSecretsInStartupLog(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	cfg.RPC.AuthToken = "node-secret"

	var buf bytes.Buffer
	logger, closer := logging.Setup(serviceName, "test", logging.Options{Output: &buf})
	defer closer.Close()

	db := storage.NewMemDB()
	defer db.Close()
	_, err = newNode(cfg, db, logger)
	require.NoError(t, err)

	logged := buf.String()
	require.Contains(t, logged, "rpc configured")
	require.Contains(t, logged, logging.RedactedValue)
	require.NotContains(t, logged, "node-secret")
	require.NotContains(t, logged, cfg.MintKeystorePath)
	require.NotContains(t, logged, "no designated admin")
}
