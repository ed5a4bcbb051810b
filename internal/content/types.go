package content

import (
	"time"

	"gyat/internal/errors"
	"gyat/internal/hash"
)

// Kind tags a tree child as a file or a subdirectory.
type Kind string

const (
	KindBlob Kind = "blob"
	KindTree Kind = "tree"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBlob, KindTree:
		return Kind(s), nil
	}
	return "", errors.InvalidArgument("invalid object kind %q", s)
}

// Entry is one child record of a tree object.
type Entry struct {
	Kind Kind
	Hash hash.Hash
	Name string
}

// ChangeKind classifies a path in the staging index and in commit records.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "New"
	ChangeModified ChangeKind = "Mod"
	ChangeDeleted  ChangeKind = "Del"
)

func ParseChangeKind(s string) (ChangeKind, error) {
	switch ChangeKind(s) {
	case ChangeNew, ChangeModified, ChangeDeleted:
		return ChangeKind(s), nil
	}
	return "", errors.InvalidArgument("invalid change %q", s)
}

type Change struct {
	Kind ChangeKind
	Path string
}

// Commit is a decoded commit record. Hash is filled in by the store and is
// not part of the encoding.
type Commit struct {
	Hash    hash.Hash
	Parent  hash.Hash
	Tree    hash.Hash
	Message string
	Date    time.Time
	Changes []Change
}

func (c *Commit) HasParent() bool {
	return !c.Parent.IsZero()
}
