package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
	"github.com/ahmed-sakil/asian-school/pkg/database"
	"github.com/ahmed-sakil/asian-school/pkg/jwt"
)

const testSecret = "cli-test-secret-0123456789"

// writeConfig sqlite 配置，数据库文件位于临时目录
func writeConfig(t *testing.T) (path, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "school.db")
	content := fmt.Sprintf(`
auth:
  jwt_secret: %s
db:
  driver: sqlite
  path: %s
log:
  level: error
school:
  academic_year: YEAR-2025
`, testSecret, dbPath)
	path = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "seed", "token", "sweep-overdue"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestTokenIssue(t *testing.T) {
	path, _ := writeConfig(t)

	out, err := run(t, "--config", path, "token", "issue", "--user", "u-1", "--role", model.RoleTeacher, "--school-id", "T-100")
	require.NoError(t, err)

	mgr := jwt.NewManager(&config.AuthConfig{JWTSecret: testSecret})
	claims, err := mgr.ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, model.RoleTeacher, claims.Role)
	assert.Equal(t, "T-100", claims.SchoolID)
}

func TestTokenIssue_InvalidRole(t *testing.T) {
	path, _ := writeConfig(t)

	_, err := run(t, "--config", path, "token", "issue", "--user", "u-1", "--role", "principal")
	assert.Error(t, err)
}

func TestTokenRevoke_RequiresTarget(t *testing.T) {
	path, _ := writeConfig(t)

	_, err := run(t, "--config", path, "token", "revoke")
	assert.Error(t, err)
}

func TestSeed_SQLite(t *testing.T) {
	path, dbPath := writeConfig(t)

	out, err := run(t, "--config", path, "seed", "--admin-password", "change-me-now", "--levels", "9,10", "--sections", "A,B")
	require.NoError(t, err)
	assert.Contains(t, out, "sections created: 4")
	assert.Contains(t, out, "admin created: true")

	db, err := database.NewDB(&config.DatabaseConfig{Driver: database.DriverSQLite, Path: dbPath}, "error", zap.NewNop())
	require.NoError(t, err)
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	repo := repository.NewRepository(db)

	sections, err := repo.Section.ListByLevel(context.Background(), "YEAR-2025", 9)
	require.NoError(t, err)
	assert.Len(t, sections, 2)

	admin, err := repo.User.GetBySchoolID(context.Background(), "ADMIN-001")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	out, err = run(t, "--config", path, "seed", "--admin-password", "change-me-now", "--levels", "9,10", "--sections", "A,B")
	require.NoError(t, err)
	assert.Contains(t, out, "sections created: 0")
}

func TestMigrateAndSweep_SQLite(t *testing.T) {
	path, _ := writeConfig(t)

	out, err := run(t, "--config", path, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")

	_, err = run(t, "--config", path, "migrate", "--down", "1")
	assert.Error(t, err, "rollback is postgres only")

	out, err = run(t, "--config", path, "sweep-overdue")
	require.NoError(t, err)
	assert.Contains(t, out, "marked 0 fee(s) overdue")
}
