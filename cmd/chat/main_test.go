package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"client_go/internal/config"
	"client_go/internal/devserver"
	"client_go/internal/domain"
	"client_go/internal/security"
)

// runChat runs one CLI invocation against the state file dsn and returns stdout.
func runChat(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CHAT_STATE_DSN", dsn)

	var out bytes.Buffer
	a := new(app)
	cliApp := newCLI(a)
	cliApp.Writer = &out
	cliApp.ErrWriter = &out
	err := cliApp.RunContext(context.Background(), append([]string{"chat"}, args...))
	return out.String(), err
}

func TestCommandsShareTheWiredApp(t *testing.T) {
	tokens := security.NewTokenService("test-secret", time.Hour)
	srv := httptest.NewServer(devserver.NewRouter(&config.ServerConfig{}, devserver.NewState(), tokens, security.NewPasswordHasher(bcrypt.MinCost)))
	defer srv.Close()

	t.Setenv("CHAT_API_URL", srv.URL)
	t.Setenv("CHAT_STATE_DRIVER", "sqlite")
	t.Setenv("CHAT_ENCRYPTION_KEY", "test key")
	t.Setenv("CHAT_PASSWORD", "secret")
	dir := t.TempDir()
	aliceDB := filepath.Join(dir, "alice.db")
	bobDB := filepath.Join(dir, "bob.db")

	_, err := runChat(t, aliceDB, "register", "--name", "Alice", "--last-name", "Tester", "--email", "alice@example.com")
	require.NoError(t, err)
	_, err = runChat(t, bobDB, "register", "--name", "Bob", "--last-name", "Tester", "--email", "bob@example.com")
	require.NoError(t, err)

	out, err := runChat(t, aliceDB, "login", "--email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as alice@example.com")
	_, err = runChat(t, bobDB, "login", "--email", "bob@example.com")
	require.NoError(t, err)

	out, err = runChat(t, aliceDB, "whoami")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "alice@example.com\n"))

	_, err = runChat(t, aliceDB, "request", "bob@example.com")
	require.NoError(t, err)

	out, err = runChat(t, bobDB, "requests")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	assert.Equal(t, "alice@example.com", fields[1])

	_, err = runChat(t, bobDB, "accept", fields[0])
	require.NoError(t, err)

	out, err = runChat(t, aliceDB, "friends", "--filter", "BOB")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com\n", out)

	out, err = runChat(t, aliceDB, "group", "create", "--name", "Team", "--member", "bob@example.com")
	require.NoError(t, err)
	groupID, name, ok := strings.Cut(strings.TrimSpace(out), "\t")
	require.True(t, ok)
	assert.Equal(t, "Team", name)

	out, err = runChat(t, aliceDB, "group", "members", groupID)
	require.NoError(t, err)
	assert.Contains(t, out, "# Team")
	assert.Contains(t, out, "bob@example.com")

	_, err = runChat(t, aliceDB, "send", "bob@example.com", "hello", "there")
	require.NoError(t, err)
	out, err = runChat(t, bobDB, "messages", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "alice@example.com: hello there")

	_, err = runChat(t, aliceDB, "logout")
	require.NoError(t, err)
	_, err = runChat(t, aliceDB, "whoami")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, "not logged in, run: chat login", explain(err))
}
