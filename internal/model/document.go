package model

// Document is the persisted record. Zero timestamps stand for null:
// DeletedAt == 0 means the document is active, LastAccessedAt == 0 means it
// was never opened. An empty ShareLinkID means no link was ever minted.
type Document struct {
	ID             string `json:"id" bson:"_id"`
	UserID         string `json:"user_id" bson:"user_id"`
	Title          string `json:"title" bson:"title"`
	Content        string `json:"content" bson:"content"`
	Starred        bool   `json:"starred" bson:"starred"`
	IsPublic       bool   `json:"is_public" bson:"is_public"`
	ShareLinkID    string `json:"share_link_id,omitempty" bson:"share_link_id,omitempty"`
	LastAccessedAt int64  `json:"last_accessed_at,omitempty" bson:"last_accessed_at"`
	DeletedAt      int64  `json:"deleted_at,omitempty" bson:"deleted_at"`
	Version        int64  `json:"version" bson:"version"`
	Ctime          int64  `json:"ctime" bson:"ctime"`
	Mtime          int64  `json:"mtime" bson:"mtime"`
}

func (d *Document) IsTrashed() bool {
	return d.DeletedAt != 0
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}
