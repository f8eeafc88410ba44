package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// Test mocks for dependency injection testing.

// mockLogger implements the Logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{})          {}
func (m *mockLogger) Warn(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

// mockAnalyzer implements domain.Analyzer for testing.
type mockAnalyzer struct {
	graphs       map[string]*domain.FileGraph
	err          error
	receivedPath []string
}

func (m *mockAnalyzer) Analyze(_ context.Context, path string) (*domain.FileGraph, error) {
	m.receivedPath = append(m.receivedPath, path)
	if m.err != nil {
		return nil, m.err
	}
	if g, ok := m.graphs[path]; ok {
		return g, nil
	}
	return &domain.FileGraph{Repo: "owner/repo", TotalCommitsAnalyzed: 3, Eras: []domain.Era{{CommitsInEra: 3}}}, nil
}

// mockCloner implements domain.Cloner for testing.
type mockCloner struct {
	cloned   []string
	paths    []string
	cloneErr error
}

func (m *mockCloner) Clone(_ context.Context, url, path string) error {
	m.cloned = append(m.cloned, url)
	m.paths = append(m.paths, path)
	return m.cloneErr
}

func (m *mockCloner) Remove(_ string) error { return nil }

// mockStore implements domain.GraphStore for testing.
type mockStore struct {
	saved       []*domain.FileGraph
	saveErr     error
	closeCalled bool
}

func (m *mockStore) SaveGraph(_ context.Context, graph *domain.FileGraph) error {
	m.saved = append(m.saved, graph)
	return m.saveErr
}

func (m *mockStore) Close() error {
	m.closeCalled = true
	return nil
}

// mockOutputWriter implements OutputWriter for testing.
type mockOutputWriter struct {
	path     string
	graph    *domain.FileGraph
	graphs   []*domain.FileGraph
	doc      any
	summary  int
	writeErr error
}

func (m *mockOutputWriter) WriteGraph(path string, graph *domain.FileGraph) error {
	m.path = path
	m.graph = graph
	return m.writeErr
}

func (m *mockOutputWriter) WriteGraphs(path string, graphs []*domain.FileGraph) error {
	m.path = path
	m.graphs = graphs
	return m.writeErr
}

func (m *mockOutputWriter) WriteJSON(path string, v any) error {
	m.path = path
	m.doc = v
	return m.writeErr
}

func (m *mockOutputWriter) WriteSummary(_ *domain.FileGraph, top int) error {
	m.summary = top
	return nil
}

// mockPaperSource implements domain.PaperSource for testing.
type mockPaperSource struct {
	papers   []domain.Paper
	language string
}

func (m *mockPaperSource) Papers(_ context.Context, language string) ([]domain.Paper, error) {
	m.language = language
	return m.papers, nil
}

// mockStatsSource implements domain.RepoStatsSource for testing.
type mockStatsSource struct{}

func (m *mockStatsSource) Stats(_ context.Context, _ string) (int, int, int, error) {
	return 1024, 50, 4, nil
}

// jsonReader returns an InputReader that decodes fixed content.
func jsonReader(content string) func(string, any) error {
	return func(_ string, v any) error {
		return json.Unmarshal([]byte(content), v)
	}
}

func baseDeps(writer *mockOutputWriter) *Dependencies {
	return &Dependencies{
		LoggerFactory: func() Logger { return &mockLogger{} },
		ConfigLoader: func() (*AppConfig, error) {
			return &AppConfig{Policy: domain.DefaultEraPolicy(), ClonePath: "/tmp/clone", Database: "analytics"}, nil
		},
		OutputWriterFactory: func(_ io.Writer) OutputWriter { return writer },
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}
}

func TestNewRootCmd(t *testing.T) {
	SetDefaultDependencies(&Dependencies{})
	cmd := NewRootCmd()

	require.NotNil(t, cmd)
	assert.Equal(t, "cochange", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.True(t, cmd.SilenceUsage)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"graph", "clone", "joss", "github", "validate"})
}

func TestSubcommandFlags(t *testing.T) {
	cmd := NewRootCmdWithDeps(&Dependencies{})

	tests := []struct {
		command  string
		flag     string
		short    string
		defValue string
	}{
		{command: "graph", flag: "output", short: "o", defValue: DefaultGraphOutput},
		{command: "graph", flag: "summary", short: "s", defValue: "0"},
		{command: "clone", flag: "input", short: "i", defValue: ""},
		{command: "clone", flag: "output", short: "o", defValue: DefaultBatchOutput},
		{command: "clone", flag: "path", short: "p", defValue: ""},
		{command: "joss", flag: "language", short: "l", defValue: DefaultJossLanguage},
		{command: "joss", flag: "output", short: "o", defValue: DefaultJossOutput},
		{command: "github", flag: "input", short: "i", defValue: ""},
		{command: "github", flag: "output", short: "o", defValue: DefaultStatsOutput},
		{command: "github", flag: "token", short: "t", defValue: ""},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)

			f := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.short, f.Shorthand)
			assert.Equal(t, tt.defValue, f.DefValue)
		})
	}
}

func TestGraphCmd_MaxArgs(t *testing.T) {
	cmd := newGraphCmd(&Dependencies{})

	require.NoError(t, cmd.Args(cmd, []string{}))
	require.NoError(t, cmd.Args(cmd, []string{"/path/to/repo"}))
	require.Error(t, cmd.Args(cmd, []string{"/path/one", "/path/two"}))
}

func TestNewRootCmd_HelpOutput(t *testing.T) {
	cmd := NewRootCmdWithDeps(&Dependencies{})

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "cochange")
	assert.Contains(t, output, "graph")
	assert.Contains(t, output, "--verbose")
}

func TestRootCmd_NilDependencies(t *testing.T) {
	for _, args := range [][]string{
		{"graph", "."},
		{"clone", "-i", "in.json"},
		{"joss"},
		{"github", "-i", "in.json"},
		{"validate", "out.json"},
	} {
		t.Run(args[0], func(t *testing.T) {
			cmd := NewRootCmdWithDeps(nil)
			cmd.SetArgs(args)
			cmd.SetErr(io.Discard)

			err := cmd.Execute()

			require.Error(t, err)
			assert.Contains(t, err.Error(), "dependencies not configured")
		})
	}
}

func TestGraphCmd_ConfigLoadError(t *testing.T) {
	deps := baseDeps(&mockOutputWriter{})
	deps.ConfigLoader = func() (*AppConfig, error) {
		return nil, errors.New("failed to load config")
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"graph", "."})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestGraphCmd_AnalyzeErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "not a repository", err: domain.ErrRepositoryNotFound, wantMsg: "not a git repository: /tmp/not-a-repo"},
		{name: "no commits", err: domain.ErrNoHead, wantMsg: "repository has no commits"},
		{name: "diff failure", err: fmt.Errorf("%w: abc", domain.ErrDiffFailed), wantMsg: "could not read commit history"},
		{name: "other error", err: errors.New("disk on fire"), wantMsg: "disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &mockOutputWriter{}
			deps := baseDeps(writer)
			deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer {
				return &mockAnalyzer{err: tt.err}
			}

			cmd := NewRootCmdWithDeps(deps)
			cmd.SetArgs([]string{"graph", "/tmp/not-a-repo"})

			err := cmd.Execute()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Nil(t, writer.graph, "nothing should be written on failure")
		})
	}
}

func TestGraphCmd_Success(t *testing.T) {
	writer := &mockOutputWriter{}
	analyzer := &mockAnalyzer{}
	deps := baseDeps(writer)
	deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return analyzer }

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"graph", "/custom/repo/path", "--output", "graph.json.lz4", "--summary", "5"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, []string{"/custom/repo/path"}, analyzer.receivedPath)
	assert.Equal(t, "graph.json.lz4", writer.path)
	require.NotNil(t, writer.graph)
	assert.Equal(t, "owner/repo", writer.graph.Repo)
	assert.Equal(t, 5, writer.summary)
}

func TestGraphCmd_DefaultPathAndVerbose(t *testing.T) {
	writer := &mockOutputWriter{}
	analyzer := &mockAnalyzer{}
	deps := baseDeps(writer)
	deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return analyzer }
	t.Setenv("LOG_LEVEL", "info")

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"-v", "graph"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, []string{"."}, analyzer.receivedPath)
	assert.Equal(t, DefaultGraphOutput, writer.path)
	assert.Zero(t, writer.summary)
}

func TestGraphCmd_OutputWriteError(t *testing.T) {
	writer := &mockOutputWriter{writeErr: errors.New("write failed")}
	deps := baseDeps(writer)
	deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return &mockAnalyzer{} }

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"graph", "."})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "output error")
}

func TestGraphCmd_GraphStore(t *testing.T) {
	store := &mockStore{}
	deps := baseDeps(&mockOutputWriter{})
	deps.ConfigLoader = func() (*AppConfig, error) {
		return &AppConfig{ClickHouseEnabled: true, Database: "analytics"}, nil
	}
	deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return &mockAnalyzer{} }
	deps.GraphStoreFactory = func(_ context.Context, _ *AppConfig, _ Logger) (domain.GraphStore, error) {
		return store, nil
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"graph", "."})

	err := cmd.Execute()

	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "owner/repo", store.saved[0].Repo)
	assert.True(t, store.closeCalled)
}

func TestGraphCmd_GraphStoreDisabled(t *testing.T) {
	deps := baseDeps(&mockOutputWriter{})
	deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return &mockAnalyzer{} }
	deps.GraphStoreFactory = func(_ context.Context, _ *AppConfig, _ Logger) (domain.GraphStore, error) {
		t.Fatal("store must not be opened when disabled")
		return nil, nil
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"graph", "."})

	require.NoError(t, cmd.Execute())
}

func TestGraphCmd_GraphStoreErrors(t *testing.T) {
	t.Run("open fails", func(t *testing.T) {
		deps := baseDeps(&mockOutputWriter{})
		deps.ConfigLoader = func() (*AppConfig, error) { return &AppConfig{ClickHouseEnabled: true}, nil }
		deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return &mockAnalyzer{} }
		deps.GraphStoreFactory = func(_ context.Context, _ *AppConfig, _ Logger) (domain.GraphStore, error) {
			return nil, errors.New("connection refused")
		}

		cmd := NewRootCmdWithDeps(deps)
		cmd.SetArgs([]string{"graph", "."})

		err := cmd.Execute()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "database error")
	})

	t.Run("save fails", func(t *testing.T) {
		store := &mockStore{saveErr: errors.New("insert failed")}
		deps := baseDeps(&mockOutputWriter{})
		deps.ConfigLoader = func() (*AppConfig, error) { return &AppConfig{ClickHouseEnabled: true}, nil }
		deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return &mockAnalyzer{} }
		deps.GraphStoreFactory = func(_ context.Context, _ *AppConfig, _ Logger) (domain.GraphStore, error) {
			return store, nil
		}

		cmd := NewRootCmdWithDeps(deps)
		cmd.SetArgs([]string{"graph", "."})

		err := cmd.Execute()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "database error")
		assert.True(t, store.closeCalled)
	})
}

func TestCloneCmd_Success(t *testing.T) {
	writer := &mockOutputWriter{}
	cloner := &mockCloner{}
	deps := baseDeps(writer)
	deps.InputReader = jsonReader(`[
		{"repo_url": "https://github.com/a/one"},
		{"software_repository": "https://gitlab.com/b/two"},
		{"software_repository": "https://github.com/c/three"}
	]`)
	deps.ClonerFactory = func(_ *AppConfig, _ Logger) domain.Cloner { return cloner }
	deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return &mockAnalyzer{} }

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"clone", "--input", "stats.json"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/a/one", "https://github.com/c/three"}, cloner.cloned)
	assert.Equal(t, []string{"/tmp/clone", "/tmp/clone"}, cloner.paths, "clone path comes from config")
	assert.Equal(t, DefaultBatchOutput, writer.path)
	assert.Len(t, writer.graphs, 2)
}

func TestCloneCmd_PathFlagOverridesConfig(t *testing.T) {
	cloner := &mockCloner{}
	deps := baseDeps(&mockOutputWriter{})
	deps.InputReader = jsonReader(`[{"repo_url": "https://github.com/a/one"}]`)
	deps.ClonerFactory = func(_ *AppConfig, _ Logger) domain.Cloner { return cloner }
	deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return &mockAnalyzer{} }

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"clone", "-i", "stats.json", "-p", "/var/tmp/work"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{"/var/tmp/work"}, cloner.paths)
}

func TestCloneCmd_FailedClonesAreSkipped(t *testing.T) {
	writer := &mockOutputWriter{}
	deps := baseDeps(writer)
	deps.InputReader = jsonReader(`[{"repo_url": "https://github.com/a/one"}]`)
	deps.ClonerFactory = func(_ *AppConfig, _ Logger) domain.Cloner {
		return &mockCloner{cloneErr: domain.ErrCloneFailed}
	}
	deps.AnalyzerFactory = func(_ *AppConfig, _ Logger) domain.Analyzer { return &mockAnalyzer{} }

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"clone", "-i", "stats.json"})

	require.NoError(t, cmd.Execute())
	assert.NotNil(t, writer.graphs)
	assert.Empty(t, writer.graphs)
}

func TestCloneCmd_InputErrors(t *testing.T) {
	t.Run("missing flag", func(t *testing.T) {
		cmd := NewRootCmdWithDeps(baseDeps(&mockOutputWriter{}))
		cmd.SetArgs([]string{"clone"})
		cmd.SetErr(io.Discard)

		err := cmd.Execute()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "input")
	})

	t.Run("unreadable input", func(t *testing.T) {
		deps := baseDeps(&mockOutputWriter{})
		deps.InputReader = func(_ string, _ any) error { return errors.New("no such file") }

		cmd := NewRootCmdWithDeps(deps)
		cmd.SetArgs([]string{"clone", "-i", "missing.json"})

		err := cmd.Execute()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "input error")
	})

	t.Run("reader not configured", func(t *testing.T) {
		cmd := NewRootCmdWithDeps(baseDeps(&mockOutputWriter{}))
		cmd.SetArgs([]string{"clone", "-i", "stats.json"})

		err := cmd.Execute()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "input reader not configured")
	})
}

func TestJossCmd_Success(t *testing.T) {
	writer := &mockOutputWriter{}
	source := &mockPaperSource{papers: []domain.Paper{{Title: "A", SoftwareRepository: "https://github.com/a/a"}}}
	deps := baseDeps(writer)
	deps.PaperSourceFactory = func(_ Logger) domain.PaperSource { return source }

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"joss", "--language", "julia", "-o", "-"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "julia", source.language)
	assert.Equal(t, "-", writer.path)
	assert.Equal(t, source.papers, writer.doc)
}

func TestJossCmd_Defaults(t *testing.T) {
	writer := &mockOutputWriter{}
	source := &mockPaperSource{}
	deps := baseDeps(writer)
	deps.PaperSourceFactory = func(_ Logger) domain.PaperSource { return source }

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"joss"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, DefaultJossLanguage, source.language)
	assert.Equal(t, DefaultJossOutput, writer.path)
}

func TestGitHubCmd_Success(t *testing.T) {
	writer := &mockOutputWriter{}
	var receivedToken string
	deps := baseDeps(writer)
	deps.ConfigLoader = func() (*AppConfig, error) { return &AppConfig{GitHubToken: "ghp_config"}, nil }
	deps.InputReader = jsonReader(`[
		{"title": "A", "software_repository": "https://github.com/a/a"},
		{"title": "B", "software_repository": "https://bitbucket.org/b/b"}
	]`)
	deps.StatsSourceFactory = func(token string, _ Logger) (domain.RepoStatsSource, error) {
		receivedToken = token
		return &mockStatsSource{}, nil
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"github", "-i", "joss_papers.json"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "ghp_config", receivedToken)
	assert.Equal(t, DefaultStatsOutput, writer.path)
	stats, ok := writer.doc.([]domain.RepoStats)
	require.True(t, ok)
	require.Len(t, stats, 1)
	assert.Equal(t, domain.RepoStats{
		Title: "A", RepoURL: "https://github.com/a/a", SizeKB: 1024, CommitCount: 50, ContributorCount: 4,
	}, stats[0])
}

func TestGitHubCmd_TokenFlagOverridesConfig(t *testing.T) {
	var receivedToken string
	deps := baseDeps(&mockOutputWriter{})
	deps.ConfigLoader = func() (*AppConfig, error) { return &AppConfig{GitHubToken: "ghp_config"}, nil }
	deps.InputReader = jsonReader(`[]`)
	deps.StatsSourceFactory = func(token string, _ Logger) (domain.RepoStatsSource, error) {
		receivedToken = token
		return &mockStatsSource{}, nil
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"github", "-i", "joss_papers.json", "--token", "ghp_flag"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "ghp_flag", receivedToken)
}

func TestGitHubCmd_ClientError(t *testing.T) {
	deps := baseDeps(&mockOutputWriter{})
	deps.InputReader = jsonReader(`[]`)
	deps.StatsSourceFactory = func(_ string, _ Logger) (domain.RepoStatsSource, error) {
		return nil, errors.New("invalid base URL")
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"github", "-i", "joss_papers.json"})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid base URL")
}

func TestValidateCmd(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		var stdout bytes.Buffer
		deps := &Dependencies{
			Validator: func(_ string) ([]string, error) { return nil, nil },
			Stdout:    &stdout,
		}

		cmd := NewRootCmdWithDeps(deps)
		cmd.SetArgs([]string{"validate", "graph.json"})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "graph.json: valid\n", stdout.String())
	})

	t.Run("schema violations", func(t *testing.T) {
		var stderr bytes.Buffer
		deps := &Dependencies{
			Validator: func(_ string) ([]string, error) {
				return []string{"eras.0.commits_in_era: Invalid type", "repo: repo is required"}, nil
			},
			Stderr: &stderr,
		}

		cmd := NewRootCmdWithDeps(deps)
		cmd.SetArgs([]string{"validate", "graph.json"})
		cmd.SetErr(io.Discard)

		err := cmd.Execute()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed: 2 error(s)")
		assert.Contains(t, stderr.String(), "graph.json: repo: repo is required")
	})

	t.Run("unreadable file", func(t *testing.T) {
		deps := &Dependencies{
			Validator: func(_ string) ([]string, error) { return nil, errors.New("invalid JSON") },
		}

		cmd := NewRootCmdWithDeps(deps)
		cmd.SetArgs([]string{"validate", "graph.json"})
		cmd.SetErr(io.Discard)

		err := cmd.Execute()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation error")
	})

	t.Run("requires exactly one file", func(t *testing.T) {
		cmd := newValidateCmd(&Dependencies{})

		require.Error(t, cmd.Args(cmd, []string{}))
		require.Error(t, cmd.Args(cmd, []string{"a.json", "b.json"}))
	})
}
