package config

import (
	"context"
	"errors"
	"path"

	"github.com/charmbracelet/log"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// ResolveReferences replaces module config fields that are file paths with
// the parsed, interpolation-resolved parameter mapping of the referenced
// file. The input configuration is not mutated; a new Configuration is
// returned with fresh Module values.
//
// Path resolution tries the reference relative to basePath (the directory
// of the file currently being processed) first, then as given. Relative
// segments use slash form regardless of OS because fetch paths are
// root-relative by convention.
//
// Two module categories are skipped or degraded rather than failing the
// whole resolution:
//
//   - Composite modules keep their config path string (that path is the
//     drill-down target) and only record where it resolved to.
//   - A fetch or parse failure for a regular module records the error on
//     the module and keeps the raw path, so the graph still renders with
//     an inspectable unresolved marker.
func ResolveReferences(ctx context.Context, cfg *Configuration, basePath string, f store.Fetcher, logger *log.Logger) (*Configuration, error) {
	if logger == nil {
		logger = log.Default()
	}

	out := &Configuration{
		Root:       cfg.Root,
		InputSlots: cfg.InputSlots,
		Outputs:    cfg.Outputs,
		Modules:    make([]*Module, 0, len(cfg.Modules)),
		byName:     make(map[string]*Module, len(cfg.Modules)),
	}

	for _, m := range cfg.Modules {
		clone := *m
		out.Modules = append(out.Modules, &clone)
		out.byName[clone.Name] = &clone

		if m.ConfigPath == "" {
			continue
		}

		if m.Composite() {
			// Composite config paths stay as strings; probing where the
			// file lives is best-effort so expansion can report early.
			if resolved, _, err := fetchFirst(ctx, f, candidates(basePath, m.ConfigPath)); err == nil {
				clone.ResolvedPath = resolved
			} else {
				logger.Warn("composite config path did not resolve",
					"module", m.Name, "path", m.ConfigPath)
			}
			continue
		}

		resolved, raw, err := fetchFirst(ctx, f, candidates(basePath, m.ConfigPath))
		if err != nil {
			clone.RefError = apperrors.Wrap(apperrors.ErrCodeConfigRefFetch, err,
				"module %s: config reference %s", m.Name, m.ConfigPath)
			logger.Warn("config reference unresolved, keeping raw path",
				"module", m.Name, "path", m.ConfigPath, "err", err)
			continue
		}

		params, err := parseParams(raw)
		if err != nil {
			clone.RefError = apperrors.Wrap(apperrors.ErrCodeConfigRefFetch, err,
				"module %s: config reference %s", m.Name, resolved)
			logger.Warn("config reference unparseable, keeping raw path",
				"module", m.Name, "path", resolved, "err", err)
			continue
		}

		clone.ConfigPath = ""
		clone.ResolvedPath = resolved
		clone.Params = params
	}

	return out, nil
}

// candidates lists the paths to try for a reference, most specific first.
func candidates(basePath, ref string) []string {
	if path.IsAbs(ref) || basePath == "" || basePath == "." {
		return []string{ref}
	}
	joined := path.Join(basePath, ref)
	if joined == ref {
		return []string{ref}
	}
	return []string{joined, ref}
}

// fetchFirst fetches the first candidate that exists. Non-not-found errors
// abort immediately; ErrNotFound moves on to the next candidate.
func fetchFirst(ctx context.Context, f store.Fetcher, paths []string) (string, []byte, error) {
	var lastErr error
	for _, p := range paths {
		raw, err := f.Fetch(ctx, p)
		if err == nil {
			return p, raw, nil
		}
		lastErr = err
		if !errors.Is(err, store.ErrNotFound) {
			break
		}
	}
	return "", nil, lastErr
}

// parseParams parses a referenced file as a parameter mapping (not a full
// module graph) and resolves interpolations against the referenced file's
// own tree.
func parseParams(raw []byte) (Value, error) {
	tree, err := ParseBytes(raw)
	if err != nil {
		return Value{}, err
	}
	resolved, err := Resolve(tree, tree)
	if err != nil {
		return Value{}, err
	}
	if !resolved.IsMap() && !resolved.IsNull() {
		return Value{}, apperrors.New(apperrors.ErrCodeInvalidConfig,
			"referenced config must be a mapping, got %s", resolved.Kind())
	}
	return resolved, nil
}

// FindReferences returns the transitive closure of configuration files
// referenced from the file at root, not including root itself. Traversal
// is breadth-first and cycle-safe; files that fail to fetch or parse are
// reported in the returned missing list rather than aborting discovery.
//
// This backs the pre-upload check that tells a user which sibling files a
// configuration needs before the folder is packaged.
func FindReferences(ctx context.Context, f store.Fetcher, root string) (found, missing []string, err error) {
	seen := map[string]bool{root: true}
	queue := []string{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		raw, ferr := f.Fetch(ctx, current)
		if ferr != nil {
			if current == root {
				return nil, nil, ferr
			}
			missing = append(missing, current)
			continue
		}

		refs, perr := directReferences(raw, path.Dir(current))
		if perr != nil {
			if current == root {
				return nil, nil, perr
			}
			// Referenced parameter files are not module graphs; nothing
			// to recurse into.
			continue
		}

		for _, ref := range refs {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			found = append(found, ref)
			queue = append(queue, ref)
		}
	}
	return found, missing, nil
}

// directReferences extracts the config path references declared by one
// configuration document, resolved against its directory.
func directReferences(raw []byte, baseDir string) ([]string, error) {
	tree, err := ParseBytes(raw)
	if err != nil {
		return nil, err
	}
	cfg, err := FromValue(tree)
	if err != nil {
		return nil, err
	}

	var refs []string
	for _, m := range cfg.Modules {
		if m.ConfigPath == "" {
			continue
		}
		refs = append(refs, candidates(baseDir, m.ConfigPath)[0])
	}
	return refs, nil
}
