package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MockGitOps is a mock implementation of Operations for testing.
// Clone materializes Files under dest instead of talking to a remote.
type MockGitOps struct {
	// Files maps slash-separated paths to content, per tag.
	Files map[string]map[string]string

	Commit     string
	CloneError error

	mu     sync.Mutex
	Clones []CloneCall
}

// CloneCall records one Clone invocation.
type CloneCall struct {
	URL, Tag, Dest string
}

// NewMockGitOps creates a mock with sensible defaults.
func NewMockGitOps() *MockGitOps {
	return &MockGitOps{
		Files:  make(map[string]map[string]string),
		Commit: "0123456789abcdef0123456789abcdef01234567",
	}
}

// AddFile registers content at path for clones of tag.
func (m *MockGitOps) AddFile(tag, path, content string) {
	if m.Files[tag] == nil {
		m.Files[tag] = make(map[string]string)
	}
	m.Files[tag][path] = content
}

func (m *MockGitOps) Clone(ctx context.Context, url, tag, dest string) error {
	m.mu.Lock()
	m.Clones = append(m.Clones, CloneCall{URL: url, Tag: tag, Dest: dest})
	m.mu.Unlock()

	if m.CloneError != nil {
		return m.CloneError
	}
	files, ok := m.Files[tag]
	if !ok {
		return fmt.Errorf("git clone %s@%s: remote branch %s not found", url, tag, tag)
	}
	for rel, content := range files {
		path := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockGitOps) HeadCommit(ctx context.Context, repoPath string) (string, error) {
	return m.Commit, nil
}

// String returns a human-readable representation of the mock state.
func (m *MockGitOps) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("MockGitOps{tags=%d, clones=%d, commit=%s}", len(m.Files), len(m.Clones), m.Commit)
}
