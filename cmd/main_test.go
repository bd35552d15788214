package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sethyshola20/T-itw/pkg/config"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memoryConfig = `
vector:
  backend: memory
cache:
  backend: memory
registry:
  backend: memory
log:
  level: error
`

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"index", "search", "ask", "status", "delete", "serve"})
}

func TestBuildAppWithMemoryBackends(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, memoryConfig))
	require.NoError(t, err)

	a, err := buildApp(context.Background(), cfg, log.New(&bytes.Buffer{}), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.service)
	docs, err := a.service.Documents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStatusCommandListsDocuments(t *testing.T) {
	configPath = writeConfig(t, memoryConfig)
	t.Cleanup(func() { configPath = "" })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"status", "--config", configPath})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "STATUS")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	configPath = writeConfig(t, memoryConfig+"chunker:\n  size: 10\n  overlap: 10\n")
	t.Cleanup(func() { configPath = "" })

	_, _, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunker.overlap")
}
