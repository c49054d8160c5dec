package migrate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
	"github.com/go-git/go-git/v6/storage/memory"
)

// AuthType defines the type of authentication
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth holds the credentials used to clone a repository.
type RemoteAuth struct {
	Type AuthType `yaml:"type"`

	// Token is used by token auth.
	Token string `yaml:"token"`

	// KeyPath and Passphrase are used by SSH auth. KeyPath defaults to
	// ~/.ssh/id_rsa.
	KeyPath    string `yaml:"key_path"`
	Passphrase string `yaml:"passphrase"`

	// Username and Password are used by basic auth.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type GitConfig struct {
	// Branch to clone. Empty means the remote HEAD.
	Branch string     `yaml:"branch"`
	Auth   RemoteAuth `yaml:"auth"`
}

func (auth RemoteAuth) authMethod() (transport.AuthMethod, error) {
	switch auth.Type {
	case "", AuthTypeNone:
		return nil, nil

	case AuthTypeToken:
		// Token auth uses username "git" or any non-empty string
		return &http.BasicAuth{
			Username: "git",
			Password: auth.Token,
		}, nil

	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, _ := os.UserHomeDir()
			keyPath = home + "/.ssh/id_rsa"
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)

	case AuthTypeBasic:
		return &http.BasicAuth{
			Username: auth.Username,
			Password: auth.Password,
		}, nil

	default:
		return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
	}
}

// gitSource clones a repository into memory and reads the migrations below
// a directory of its worktree.
type gitSource struct {
	location string
	url      string
	dir      string
	config   GitConfig
}

// newGitSource parses git+<url>[#dir].
func newGitSource(location string, cfg GitConfig) (*gitSource, error) {
	url, dir, _ := strings.Cut(location[len("git+"):], "#")
	if url == "" {
		return nil, fmt.Errorf("invalid git source: %s", location)
	}
	return &gitSource{
		location: location,
		url:      url,
		dir:      path.Clean("/" + dir),
		config:   cfg,
	}, nil
}

func (s *gitSource) Location() string {
	return s.location
}

func (s *gitSource) Migrations(ctx context.Context) ([]Migration, error) {
	authMethod, err := s.config.Auth.authMethod()
	if err != nil {
		return nil, fmt.Errorf("failed to configure auth: %w", err)
	}

	options := &git.CloneOptions{
		URL:   s.url,
		Auth:  authMethod,
		Depth: 1,
	}
	if s.config.Branch != "" {
		options.ReferenceName = plumbing.NewBranchReferenceName(s.config.Branch)
		options.SingleBranch = true
	}

	wt := memfs.New()
	if _, err := git.Clone(memory.NewStorage(), wt, options); err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", s.url, err)
	}
	return readTree(billyTree{fs: wt}, s.dir)
}

type billyTree struct {
	fs billy.Filesystem
}

func (t billyTree) list(dir string) ([]dirEntry, error) {
	entries, err := t.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]dirEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	return out, nil
}

func (t billyTree) read(file string) ([]byte, error) {
	f, err := t.fs.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (t billyTree) join(elem ...string) string {
	return path.Join(elem...)
}
