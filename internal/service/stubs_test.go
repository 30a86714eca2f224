package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"posadmin/internal/dto"
	"posadmin/internal/infra"
	"posadmin/internal/model"
	"posadmin/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory Cache ──────────────────────────────────────────────────────────

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return nil, infra.ErrCacheMiss
	}
	return b, nil
}

func (c *memCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = val
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// ── Shift Repository Stub ────────────────────────────────────────────────────

type stubShiftRepo struct {
	shifts    map[uuid.UUID]*model.Shift
	createErr error
	// staleClose makes Close report that another request closed it first.
	staleClose bool
}

func newStubShiftRepo() *stubShiftRepo {
	return &stubShiftRepo{shifts: make(map[uuid.UUID]*model.Shift)}
}

func (r *stubShiftRepo) Create(_ context.Context, s *model.Shift) error {
	if r.createErr != nil {
		return r.createErr
	}
	s.ID = uuid.New()
	r.shifts[s.ID] = s
	return nil
}

func (r *stubShiftRepo) Close(_ context.Context, s *model.Shift) (bool, error) {
	if r.staleClose {
		return false, nil
	}
	cur, ok := r.shifts[s.ID]
	if !ok || !cur.IsOpen() {
		return false, nil
	}
	r.shifts[s.ID] = s
	return true, nil
}

func (r *stubShiftRepo) FindOpenByUser(_ context.Context, userID uuid.UUID) (*model.Shift, error) {
	for _, s := range r.shifts {
		if s.UserID == userID && s.IsOpen() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *stubShiftRepo) FindLastClosedByUser(_ context.Context, userID uuid.UUID) (*model.Shift, error) {
	var last *model.Shift
	for _, s := range r.shifts {
		if s.UserID == userID && !s.IsOpen() && (last == nil || s.ClosedAt.After(*last.ClosedAt)) {
			last = s
		}
	}
	return last, nil
}

func (r *stubShiftRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Shift, error) {
	s, ok := r.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubShiftRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]model.Shift, int64, error) {
	var out []model.Shift
	for _, s := range r.shifts {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

// ── Category Repository Stub ─────────────────────────────────────────────────

type stubCategoryRepo struct {
	cats map[uuid.UUID]*model.ProductCategory
	// productLinks maps a category to the products tagged with it.
	productLinks map[uuid.UUID][]uuid.UUID
	allCalls     int
}

func newStubCategoryRepo() *stubCategoryRepo {
	return &stubCategoryRepo{
		cats:         make(map[uuid.UUID]*model.ProductCategory),
		productLinks: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *stubCategoryRepo) add(name string, parent *uuid.UUID, sortOrder int) uuid.UUID {
	id := uuid.New()
	r.cats[id] = &model.ProductCategory{ID: id, Name: name, ParentID: parent, IsActive: true, SortOrder: sortOrder}
	return id
}

func (r *stubCategoryRepo) Create(_ context.Context, c *model.ProductCategory) error {
	c.ID = uuid.New()
	cp := *c
	r.cats[c.ID] = &cp
	return nil
}

func (r *stubCategoryRepo) Update(_ context.Context, c *model.ProductCategory) error {
	cp := *c
	r.cats[c.ID] = &cp
	return nil
}

func (r *stubCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.cats[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.cats, id)
	return nil
}

func (r *stubCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductCategory, error) {
	c, ok := r.cats[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCategoryRepo) All(_ context.Context) ([]model.ProductCategory, error) {
	r.allCalls++
	out := make([]model.ProductCategory, 0, len(r.cats))
	for _, c := range r.cats {
		out = append(out, *c)
	}
	return out, nil
}

func (r *stubCategoryRepo) Search(_ context.Context, term string, limit, offset int) ([]model.ProductCategory, int64, error) {
	var out []model.ProductCategory
	for _, c := range r.cats {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *stubCategoryRepo) ListActiveRoots(_ context.Context) ([]model.ProductCategory, error) {
	var out []model.ProductCategory
	for _, c := range r.cats {
		if c.IsActive && c.ParentID == nil {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubCategoryRepo) ListActive(_ context.Context) ([]model.ProductCategory, error) {
	var out []model.ProductCategory
	for _, c := range r.cats {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *stubCategoryRepo) CountChildren(_ context.Context, id uuid.UUID) (int64, error) {
	var n int64
	for _, c := range r.cats {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (r *stubCategoryRepo) CountProducts(_ context.Context, ids []uuid.UUID) (int64, error) {
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		for _, p := range r.productLinks[id] {
			seen[p] = true
		}
	}
	return int64(len(seen)), nil
}

func (r *stubCategoryRepo) CountExisting(_ context.Context, ids []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := r.cats[id]; ok {
			n++
		}
	}
	return n, nil
}

// ── Branch Repository Stub ───────────────────────────────────────────────────

type stubBranchRepo struct {
	branches map[uuid.UUID]*model.Branch
}

func newStubBranchRepo() *stubBranchRepo {
	return &stubBranchRepo{branches: make(map[uuid.UUID]*model.Branch)}
}

func (r *stubBranchRepo) add(name, code string) uuid.UUID {
	id := uuid.New()
	r.branches[id] = &model.Branch{ID: id, Name: name, Code: code, IsActive: true}
	return id
}

func (r *stubBranchRepo) Create(_ context.Context, b *model.Branch) error {
	b.ID = uuid.New()
	cp := *b
	r.branches[b.ID] = &cp
	return nil
}

func (r *stubBranchRepo) Update(_ context.Context, b *model.Branch) error {
	cp := *b
	r.branches[b.ID] = &cp
	return nil
}

func (r *stubBranchRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.branches[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.branches, id)
	return nil
}

func (r *stubBranchRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	b, ok := r.branches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *stubBranchRepo) CodeTaken(_ context.Context, code string, exceptID *uuid.UUID) (bool, error) {
	for _, b := range r.branches {
		if strings.EqualFold(b.Code, code) && (exceptID == nil || b.ID != *exceptID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubBranchRepo) List(_ context.Context, _ dto.ListFilter) ([]model.Branch, int64, error) {
	out := make([]model.Branch, 0, len(r.branches))
	for _, b := range r.branches {
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (r *stubBranchRepo) ListActive(ctx context.Context) ([]model.Branch, error) {
	out, _, err := r.List(ctx, dto.ListFilter{})
	return out, err
}

var (
	_ repository.ShiftRepository    = (*stubShiftRepo)(nil)
	_ repository.CategoryRepository = (*stubCategoryRepo)(nil)
	_ repository.BranchRepository   = (*stubBranchRepo)(nil)
	_ Cache                         = (*memCache)(nil)
)
