// cmd/tools/registry-updater/main_test.go
package main

import (
	"path/filepath"
	"testing"
	"time"

	"drift-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AddUpdateValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	require.NoError(t, run("add", []string{
		"-path", path,
		"-id", "risk.deal.compute",
		"-displayName", "Compute Deal Risk",
		"-description", "Scores one deal",
		"-category", "risk",
		"-taskType", "compute-deal-risk",
	}, now))

	require.NoError(t, run("update", []string{"-path", path, "-id", "risk.deal.compute", "-field", "status", "-value", "verified"}, now))
	require.NoError(t, run("validate", []string{"-path", path}, now))

	reg, err := registry.Load(path)
	require.NoError(t, err)
	a, ok := reg.Find("compute-deal-risk")
	require.True(t, ok)
	assert.Equal(t, registry.StatusVerified, a.ImplementationStatus)

	assert.Error(t, run("add", []string{
		"-path", path,
		"-id", "risk.deal.compute",
		"-displayName", "Again",
		"-description", "dup",
		"-category", "risk",
		"-taskType", "other",
	}, now))
}

func TestRun_ValidateMissingFile(t *testing.T) {
	assert.Error(t, run("validate", []string{"-path", filepath.Join(t.TempDir(), "none.json")}, time.Now()))
}
