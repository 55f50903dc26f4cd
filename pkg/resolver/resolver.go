// Package resolver maps workspace file paths to module identities and
// computes the specifier strings import statements use to reach them.
package resolver

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Venkat5694/nuclide/pkg/parser"
)

// ModuleIdentity describes how a workspace module can be addressed.
type ModuleIdentity struct {
	// AbsolutePath is the module's file path on disk.
	AbsolutePath string

	// GlobalName is the bare specifier the module answers to, empty when
	// the module has none. Derived from the file name (or directory name
	// for index files) when the module lives under a configured source
	// root and global names are enabled.
	GlobalName string
}

// RelativeSpecifierFrom returns the relative specifier that imports this
// module from requesterPath: shortest path, forward slashes, "./" prefix
// for same-or-below, resolvable extension stripped, trailing /index
// collapsed.
func (m ModuleIdentity) RelativeSpecifierFrom(requesterPath string) string {
	rel, err := filepath.Rel(filepath.Dir(requesterPath), m.AbsolutePath)
	if err != nil {
		rel = m.AbsolutePath
	}
	rel = filepath.ToSlash(rel)
	rel = parser.StripResolvableExtension(rel)

	if !strings.HasPrefix(rel, "../") && !strings.HasPrefix(rel, "./") {
		rel = "./" + rel
	}

	// ./foo/index resolves as ./foo; ./index resolves as the directory.
	switch {
	case rel == "./index":
		rel = "."
	case rel == "../index":
		rel = ".."
	case strings.HasSuffix(rel, "/index"):
		rel = strings.TrimSuffix(rel, "/index")
	}

	return rel
}

// Resolver computes module identities for workspace files.
type Resolver struct {
	sourceRoots          []string
	useGlobalModuleNames bool
	logger               *slog.Logger
}

// NewResolver creates a Resolver. sourceRoots must be absolute paths;
// a nil logger uses slog.Default().
func NewResolver(sourceRoots []string, useGlobalModuleNames bool, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	roots := make([]string, 0, len(sourceRoots))
	for _, root := range sourceRoots {
		roots = append(roots, filepath.Clean(root))
	}

	return &Resolver{
		sourceRoots:          roots,
		useGlobalModuleNames: useGlobalModuleNames,
		logger:               logger,
	}
}

// IdentityFor returns the module identity of an absolute file path.
func (r *Resolver) IdentityFor(filePath string) ModuleIdentity {
	identity := ModuleIdentity{AbsolutePath: filePath}

	if !r.useGlobalModuleNames || !r.underSourceRoot(filePath) {
		return identity
	}

	base := parser.StripResolvableExtension(filepath.Base(filePath))
	if base == "index" {
		// index modules take their directory's name.
		base = filepath.Base(filepath.Dir(filePath))
	}
	if base != "" && base != "." && base != string(filepath.Separator) {
		identity.GlobalName = base
	}

	return identity
}

// underSourceRoot reports whether the path lives below a configured root.
func (r *Resolver) underSourceRoot(filePath string) bool {
	for _, root := range r.sourceRoots {
		rel, err := filepath.Rel(root, filePath)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
