// Package entity defines the filesystem entities that take part in duplicate ranking.
// An Entity is a tagged variant: either a file reported by traversal, or a synthetic
// directory built from the files below it when duplicate directories are merged.
package entity

import (
	"path/filepath"
	"time"
)

// Kind tags an Entity as a file or a synthetic directory.
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Attrs is a set of metadata attributes.
type Attrs uint8

const (
	AttrSize Attrs = 1 << iota
	AttrModTime
	AttrDepth
	AttrHardlinks
	AttrPathIndex
)

// Has reports whether all attributes in other are set in a.
func (a Attrs) Has(other Attrs) bool {
	return a&other == other
}

// Entity is a file or directory taking part in a duplicate cluster.
// Entities are immutable once built.
type Entity struct {
	Kind    Kind
	Path    string    // Full path
	Size    int64     // Size in bytes
	ModTime time.Time // Modification time
	Depth   int       // Directory depth below the scanned root
	Nlink   uint64    // Hardlink count

	// Dev and Inode identify the file on disk. Inode is zero when unknown.
	Dev   uint64
	Inode uint64

	// Preferred marks a file found below a preferred path.
	Preferred bool

	// PathIndex is the position of the root (as given on the command line)
	// under which the entity was found.
	PathIndex int

	// Unresolved lists attributes upstream traversal could not determine.
	Unresolved Attrs

	// Members holds the files below a KindDirectory entity, nil for files.
	Members []*Entity
}

// NewFile creates a file entity.
func NewFile(path string, size int64, modTime time.Time, depth int, nlink uint64) *Entity {
	return &Entity{
		Kind:    KindFile,
		Path:    path,
		Size:    size,
		ModTime: modTime,
		Depth:   depth,
		Nlink:   nlink,
	}
}

// NewDirectory creates a synthetic directory entity over its member files.
// Aggregated values are derived on demand by the attribute extractor.
func NewDirectory(path string, members []*Entity) *Entity {
	return &Entity{
		Kind:    KindDirectory,
		Path:    path,
		Members: members,
	}
}

// SameFile reports whether e and o are paths to the same file on disk.
func (e *Entity) SameFile(o *Entity) bool {
	return e.Inode != 0 && e.Inode == o.Inode && e.Dev == o.Dev
}

// Name returns the basename of the entity path.
func (e *Entity) Name() string {
	return filepath.Base(e.Path)
}

// IsDir reports whether e is a synthetic directory.
func (e *Entity) IsDir() bool {
	return e.Kind == KindDirectory
}

// Available reports whether upstream resolved the given attributes.
func (e *Entity) Available(attrs Attrs) bool {
	return e.Unresolved&attrs == 0
}

// Contains reports whether path lies strictly below dir.
func Contains(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !hasParentPrefix(rel)
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}
