package repo

import (
	"sort"

	"github.com/xxxsen/mdocs/internal/model"
)

type DocumentState int

const (
	StateAny DocumentState = iota
	StateActive
	StateTrashed
)

type DocumentOrder int

const (
	OrderMtimeDesc DocumentOrder = iota
	OrderDeletedAtDesc
	OrderLastAccessedDesc
)

// DocumentFilter is the scan contract shared by every backend. Zero values
// mean "no constraint". IDs == nil means any id; a non-nil empty slice matches
// nothing.
type DocumentFilter struct {
	UserID        string
	IDs           []string
	State         DocumentState
	StarredOnly   bool
	AccessedOnly  bool
	DeletedBefore int64
	Order         DocumentOrder
	Limit         uint
	Offset        uint
}

func (f DocumentFilter) Match(doc *model.Document) bool {
	if f.UserID != "" && doc.UserID != f.UserID {
		return false
	}
	if f.IDs != nil && !containsID(f.IDs, doc.ID) {
		return false
	}
	switch f.State {
	case StateActive:
		if doc.IsTrashed() {
			return false
		}
	case StateTrashed:
		if !doc.IsTrashed() {
			return false
		}
	}
	if f.StarredOnly && !doc.Starred {
		return false
	}
	if f.AccessedOnly && doc.LastAccessedAt == 0 {
		return false
	}
	if f.DeletedBefore > 0 && (!doc.IsTrashed() || doc.DeletedAt >= f.DeletedBefore) {
		return false
	}
	return true
}

func (f DocumentFilter) orderClause() string {
	switch f.Order {
	case OrderDeletedAtDesc:
		return "deleted_at desc, id asc"
	case OrderLastAccessedDesc:
		return "last_accessed_at desc, mtime desc, id asc"
	default:
		return "mtime desc, id asc"
	}
}

func (f DocumentFilter) sortDocuments(docs []model.Document) {
	less := func(a, b *model.Document) bool {
		switch f.Order {
		case OrderDeletedAtDesc:
			if a.DeletedAt != b.DeletedAt {
				return a.DeletedAt > b.DeletedAt
			}
		case OrderLastAccessedDesc:
			if a.LastAccessedAt != b.LastAccessedAt {
				return a.LastAccessedAt > b.LastAccessedAt
			}
			if a.Mtime != b.Mtime {
				return a.Mtime > b.Mtime
			}
		default:
			if a.Mtime != b.Mtime {
				return a.Mtime > b.Mtime
			}
		}
		return a.ID < b.ID
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return less(&docs[i], &docs[j])
	})
}

func (f DocumentFilter) page(docs []model.Document) []model.Document {
	if f.Offset >= uint(len(docs)) {
		return []model.Document{}
	}
	docs = docs[f.Offset:]
	if f.Limit > 0 && f.Limit < uint(len(docs)) {
		docs = docs[:f.Limit]
	}
	return docs
}

func containsID(ids []string, id string) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}
