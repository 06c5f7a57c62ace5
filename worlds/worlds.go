// Package worlds provisions arena worlds for dodgeball sessions.
package worlds

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Provisioner creates and destroys arena worlds.
type Provisioner interface {
	// CreateArena provisions a fresh arena world and returns its reference.
	CreateArena(ctx context.Context, name string) (string, error)
	// DestroyArena removes the arena world with the given reference. Removal
	// happens in the background so callers never wait on the filesystem.
	DestroyArena(arenaRef string)
}

// DirProvisioner is a Provisioner that copies a template directory for each
// arena. This matches hosts that load a world from a directory on disk.
type DirProvisioner struct {
	templateDir string
	worldsDir   string
	eg          errgroup.Group
	logger      *zap.Logger
}

// NewDirProvisioner creates a DirProvisioner with the given template and
// target directory.
func NewDirProvisioner(templateDir string, worldsDir string) *DirProvisioner {
	return &DirProvisioner{
		templateDir: templateDir,
		worldsDir:   worldsDir,
		logger:      logging.WorldLogger,
	}
}

// CreateArena copies the template directory to a new directory named after the
// given name and returns the name as arena reference.
func (p *DirProvisioner) CreateArena(ctx context.Context, name string) (string, error) {
	target := filepath.Join(p.worldsDir, name)
	if _, err := os.Stat(target); err == nil {
		return "", errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindWorldProvisioning,
			Message: fmt.Sprintf("arena world %s already exists", name),
			Details: errors.Details{"target": target},
		}
	}
	err := copyDir(ctx, p.templateDir, target)
	if err != nil {
		return "", errors.Wrap(err, "copy world template", errors.Details{
			"template": p.templateDir,
			"target":   target,
		})
	}
	p.logger.Info("provisioned arena world", zap.String("arena_ref", name))
	return name, nil
}

// DestroyArena removes the arena world directory in the background. Failures
// are logged.
func (p *DirProvisioner) DestroyArena(arenaRef string) {
	target := filepath.Join(p.worldsDir, arenaRef)
	p.eg.Go(func() error {
		err := os.RemoveAll(target)
		if err != nil {
			errors.Log(p.logger, errors.Error{
				Code:    errors.ErrInternal,
				Kind:    errors.KindWorldProvisioning,
				Err:     err,
				Message: "remove arena world",
				Details: errors.Details{"target": target},
			})
			return nil
		}
		p.logger.Info("destroyed arena world", zap.String("arena_ref", arenaRef))
		return nil
	})
}

// Wait blocks until all pending background removals have finished.
func (p *DirProvisioner) Wait() {
	_ = p.eg.Wait()
}

func copyDir(ctx context.Context, src string, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return newProvisioningError(err, "walk world template", path)
		}
		if ctx.Err() != nil {
			return errors.NewContextAbortedError("copy world template")
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return newProvisioningError(err, "relativize template path", path)
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			err = os.MkdirAll(target, 0755)
			if err != nil {
				return newProvisioningError(err, "create world directory", target)
			}
			return nil
		}
		err = copyFile(path, target)
		if err != nil {
			return newProvisioningError(err, "copy world file", target)
		}
		return nil
	})
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func newProvisioningError(err error, message string, path string) error {
	return errors.Error{
		Code:    errors.ErrInternal,
		Kind:    errors.KindWorldProvisioning,
		Err:     err,
		Message: message,
		Details: errors.Details{"path": path},
	}
}
