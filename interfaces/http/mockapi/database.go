package mockapi

import (
	"sort"
	"sync"

	"ideaclient/domain/resources"
	"ideaclient/pkg/common"
)

type account struct {
	resources.User
	PasswordHash []byte
	Role         string
}

type tagRecord struct {
	resources.Tag
	OwnerID int64
}

// database holds every record. One lock guards it all; the mock serves a
// handful of clients at most.
type database struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]*account
	byEmail map[string]int64
	ideas   map[int64]*resources.Idea
	tags    map[int64]*tagRecord
	scripts map[int64]*resources.Script
}

func newDatabase() *database {
	return &database{
		users:   make(map[int64]*account),
		byEmail: make(map[string]int64),
		ideas:   make(map[int64]*resources.Idea),
		tags:    make(map[int64]*tagRecord),
		scripts: make(map[int64]*resources.Script),
	}
}

// id hands out ids from one sequence shared by every table; callers hold mu
func (db *database) id() int64 {
	db.nextID++
	return db.nextID
}

// paginate sorts items by key and cuts out the requested page
func paginate[T any](items []T, key func(T) int64, params common.PaginationParams) resources.Page[T] {
	sort.Slice(items, func(i, j int) bool { return key(items[i]) < key(items[j]) })

	total := len(items)
	start := min(params.CalculateOffset(), total)
	end := min(start+params.Size, total)

	page := make([]T, end-start)
	copy(page, items[start:end])

	return resources.Page[T]{
		Items: page,
		Total: total,
		Page:  params.Page,
		Size:  params.Size,
		Pages: common.CalculateTotalPages(total, params.Size),
	}
}
