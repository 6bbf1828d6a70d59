// Package gitstore implements the repository store over go-git. All writes
// and deletes of one sync land as a single commit; a failed commit rolls the
// worktree back so no partial state remains.
package gitstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitobject "github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"

	"db-sync/internal/object"
	"db-sync/internal/syncer"
)

// ErrNoChanges is returned when a commit request stages nothing.
var ErrNoChanges = errors.New("no changes to commit")

// Store is a syncer.Store backed by a local git repository.
type Store struct {
	repo   *git.Repository
	logger *zap.Logger
}

var _ syncer.Store = (*Store)(nil)

// Open opens the repository rooted at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{repo: repo, logger: logger}, nil
}

// NewInMemory creates a store over a fresh in-memory repository.
func NewInMemory(logger *zap.Logger) (*Store, error) {
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		return nil, fmt.Errorf("failed to init in-memory repository: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{repo: repo, logger: logger}, nil
}

// ListObjects returns the .sql files under prefix, paths relative to it.
func (s *Store) ListObjects(ctx context.Context, prefix string) ([]object.RepoObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	root := strings.TrimSuffix(prefix, "/")
	var objs []object.RepoObject
	err = walk(wt.Filesystem, root, func(path string) error {
		if !strings.HasSuffix(path, ".sql") {
			return nil
		}
		data, err := util.ReadFile(wt.Filesystem, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		objs = append(objs, object.RepoObject{
			Path:       strings.TrimPrefix(path, root+"/"),
			Definition: string(data),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objs, nil
}

// Commit stages every write and delete of req and records them as exactly one
// commit. If anything fails after staging began, the worktree is hard-reset to
// its pre-call state.
func (s *Store) Commit(ctx context.Context, req syncer.CommitRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	base, baseErr := s.repo.Head()
	if baseErr == nil && req.Branch != "" && base.Name().Short() != req.Branch {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(req.Branch)}); err != nil {
			return "", fmt.Errorf("failed to checkout branch %s: %w", req.Branch, err)
		}
		base, baseErr = s.repo.Head()
	}

	hash, err := s.stageAndCommit(wt, req)
	if err != nil {
		if baseErr == nil {
			s.rollback(wt, base.Hash())
		} else {
			// No commit to reset to yet (fresh repository): unstage and
			// remove whatever the failed request left behind.
			s.cleanStaged(wt)
		}
		return "", err
	}

	return hash.String(), nil
}

func (s *Store) stageAndCommit(wt *git.Worktree, req syncer.CommitRequest) (plumbing.Hash, error) {
	for path, content := range req.Writes {
		if err := util.WriteFile(wt.Filesystem, path, []byte(content), 0o644); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to write %s: %w", path, err)
		}
		if _, err := wt.Add(path); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to stage %s: %w", path, err)
		}
	}

	for _, path := range req.Deletes {
		if _, err := wt.Filesystem.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return plumbing.ZeroHash, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if _, err := wt.Remove(path); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to stage removal of %s: %w", path, err)
		}
	}

	status, err := wt.Status()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get worktree status: %w", err)
	}
	staged := 0
	for _, fileStatus := range status {
		if fileStatus.Staging != git.Untracked && fileStatus.Staging != git.Unmodified {
			staged++
		}
	}
	if staged == 0 {
		return plumbing.ZeroHash, ErrNoChanges
	}

	hash, err := wt.Commit(req.Message, &git.CommitOptions{
		Author: &gitobject.Signature{
			Name:  req.Author.Name,
			Email: req.Author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Info("committed",
		zap.String("commit", hash.String()),
		zap.Int("writes", len(req.Writes)),
		zap.Int("deletes", len(req.Deletes)))

	return hash, nil
}

// rollback restores the worktree and index to the given commit, discarding
// anything staged by a failed request.
func (s *Store) rollback(wt *git.Worktree, to plumbing.Hash) {
	if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: to}); err != nil {
		s.logger.Error("rollback reset failed", zap.Error(err))
		return
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		s.logger.Error("rollback clean failed", zap.Error(err))
	}
}

// cleanStaged drops everything the index holds in a repository that has no
// commit yet, restoring the empty pre-call state.
func (s *Store) cleanStaged(wt *git.Worktree) {
	status, err := wt.Status()
	if err != nil {
		s.logger.Error("rollback status failed", zap.Error(err))
		return
	}
	for path, st := range status {
		if st.Staging == git.Untracked {
			continue
		}
		if _, err := wt.Remove(path); err != nil {
			s.logger.Error("rollback unstage failed", zap.String("path", path), zap.Error(err))
		}
	}
}

func walk(fs billy.Filesystem, dir string, visit func(path string) error) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := dir + "/" + entry.Name()
		if entry.IsDir() {
			if err := walk(fs, path, visit); err != nil {
				return err
			}
			continue
		}
		if err := visit(path); err != nil {
			return err
		}
	}
	return nil
}
