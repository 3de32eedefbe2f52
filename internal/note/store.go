package note

import "context"

// Store is the contract shared by every note backend.
//
// List returns notes newest-first. Returned notes are copies; mutating them
// never affects the store. Delete of an unknown id is not an error: it
// reports removed=false.
type Store interface {
	Create(ctx context.Context, title, content string) (*Note, error)
	List(ctx context.Context) ([]*Note, error)
	Get(ctx context.Context, id int64) (*Note, error)
	Update(ctx context.Context, id int64, title, content string) (*Note, error)
	Delete(ctx context.Context, id int64) (removed bool, err error)
}

// Seed is the note every fresh store starts with under id 1.
type Seed struct {
	Title   string
	Content string
}

// DefaultSeed is the sample note shown on first start.
var DefaultSeed = Seed{
	Title:   "サンプルメモ",
	Content: "これはサンプルのメモです。",
}
