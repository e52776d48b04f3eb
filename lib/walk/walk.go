// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package walk enumerates filesystem entries under a root with a
// depth limit, a symlink policy, and a choice of depth-first or
// breadth-first ordering. Items are produced lazily through a
// callback, in the style of filepath.WalkDir.
//
// Symlinks are followed by default, without cycle protection: a
// symlink loop makes the walk run forever. This is the documented
// fast path — resolving every directory to its canonical path costs a
// syscall per directory. Set [Options.CycleGuard] to opt into a
// visited-canonical-path set that terminates loops at the price of
// that resolution.
package walk

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Item is one candidate filesystem entry: a non-directory entry
// (regular file, or symlink target when following) found within the
// depth limit.
type Item struct {
	// Path is the entry's path, rooted at the walk root.
	Path string

	// Depth counts directories between the root and the entry: a
	// file directly under the root has depth 0.
	Depth int

	// Entry is the directory entry as enumerated.
	Entry fs.DirEntry

	// Canonical is the symlink-resolved path when the cycle guard is
	// active, empty otherwise.
	Canonical string
}

// Func receives each item in walk order. A non-nil walkErr describes
// an entry that could not be accessed (the Item carries only the
// path); returning nil skips it and continues. Any error returned by
// Func aborts the walk and propagates out of Walk.
type Func func(item Item, walkErr error) error

// Options control traversal.
type Options struct {
	// MaxDepth bounds descent: directories whose contents would
	// exceed this depth are pruned entirely, not entered. 0 limits
	// the walk to root-level files.
	MaxDepth int

	// FollowSymlinks resolves symlinked directories and descends
	// into them. Without CycleGuard this can loop forever on
	// cyclic links.
	FollowSymlinks bool

	// CycleGuard tracks visited canonical directory paths and skips
	// directories already seen. Only meaningful with FollowSymlinks.
	CycleGuard bool

	// BreadthFirst emits all items at depth N before any item at
	// depth N+1. The default is depth-first: a directory's entire
	// subtree is emitted before its next sibling.
	BreadthFirst bool
}

// Walk enumerates non-directory entries under root and passes each to
// fn. Sibling order within a directory is filesystem enumeration
// order (os.ReadDir: lexical). Unreadable directories surface through
// fn with a non-nil walkErr rather than aborting the walk.
func Walk(root string, opts Options, fn Func) error {
	walker := &walker{opts: opts, fn: fn}
	if opts.CycleGuard {
		walker.visited = make(map[string]bool)
		if canonical, err := filepath.EvalSymlinks(root); err == nil {
			walker.visited[canonical] = true
		}
	}
	if opts.BreadthFirst {
		return walker.breadthFirst(root)
	}
	return walker.depthFirst(root, 0)
}

type walker struct {
	opts    Options
	fn      Func
	visited map[string]bool // canonical dir path → seen (nil unless CycleGuard)
}

// classify decides whether the entry is a directory for traversal
// purposes, resolving symlinks when the policy says to follow them.
func (w *walker) classify(path string, entry fs.DirEntry) (isDir bool, err error) {
	if entry.IsDir() {
		return true, nil
	}
	if entry.Type()&fs.ModeSymlink == 0 || !w.opts.FollowSymlinks {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("resolving symlink %s: %w", path, err)
	}
	return info.IsDir(), nil
}

// enter reports whether a directory should be descended into,
// consulting the cycle guard when active.
func (w *walker) enter(path string) bool {
	if w.visited == nil {
		return true
	}
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		// Unresolvable link: skip rather than risk a loop.
		return false
	}
	if w.visited[canonical] {
		return false
	}
	w.visited[canonical] = true
	return true
}

func (w *walker) emit(path string, depth int, entry fs.DirEntry) error {
	item := Item{Path: path, Depth: depth, Entry: entry}
	if w.visited != nil {
		if canonical, err := filepath.EvalSymlinks(path); err == nil {
			item.Canonical = canonical
		}
	}
	return w.fn(item, nil)
}

// depthFirst descends fully into each directory before moving to its
// next sibling. contentDepth is the depth of the directory's direct
// entries.
func (w *walker) depthFirst(dir string, contentDepth int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return w.fn(Item{Path: dir, Depth: contentDepth}, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		isDir, err := w.classify(path, entry)
		if err != nil {
			if err := w.fn(Item{Path: path, Depth: contentDepth}, err); err != nil {
				return err
			}
			continue
		}

		if isDir {
			if contentDepth+1 > w.opts.MaxDepth {
				continue // pruned, not entered
			}
			if !w.enter(path) {
				continue
			}
			if err := w.depthFirst(path, contentDepth+1); err != nil {
				return err
			}
			continue
		}

		if err := w.emit(path, contentDepth, entry); err != nil {
			return err
		}
	}
	return nil
}

// breadthFirst emits all items at one depth before descending. The
// frontier holds the directories whose contents form the next level.
func (w *walker) breadthFirst(root string) error {
	frontier := []string{root}

	for depth := 0; len(frontier) > 0; depth++ {
		var next []string

		for _, dir := range frontier {
			entries, err := os.ReadDir(dir)
			if err != nil {
				if err := w.fn(Item{Path: dir, Depth: depth}, err); err != nil {
					return err
				}
				continue
			}

			for _, entry := range entries {
				path := filepath.Join(dir, entry.Name())
				isDir, err := w.classify(path, entry)
				if err != nil {
					if err := w.fn(Item{Path: path, Depth: depth}, err); err != nil {
						return err
					}
					continue
				}

				if isDir {
					if depth+1 > w.opts.MaxDepth {
						continue
					}
					if !w.enter(path) {
						continue
					}
					next = append(next, path)
					continue
				}

				if err := w.emit(path, depth, entry); err != nil {
					return err
				}
			}
		}

		frontier = next
	}
	return nil
}
