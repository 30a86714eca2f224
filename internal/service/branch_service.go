package service

import (
	"context"
	"strings"

	"posadmin/internal/dto"
	"posadmin/internal/model"
	"posadmin/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BranchService defines business operations for store locations.
type BranchService interface {
	Index(ctx context.Context, filter dto.ListFilter) (*dto.BranchIndexProps, error)
	Create(ctx context.Context, req dto.BranchRequest) (*dto.BranchResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.BranchResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.BranchRequest) (*dto.BranchResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type branchService struct {
	repo repository.BranchRepository
}

func NewBranchService(repo repository.BranchRepository) BranchService {
	return &branchService{repo: repo}
}

func mapBranch(b *model.Branch) dto.BranchResponse {
	return dto.BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Code:      b.Code,
		Phone:     b.Phone,
		Email:     b.Email,
		Address:   b.Address,
		City:      b.City,
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt,
	}
}

func (s *branchService) Index(ctx context.Context, filter dto.ListFilter) (*dto.BranchIndexProps, error) {
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows := make([]dto.BranchResponse, 0, len(list))
	for i := range list {
		rows = append(rows, mapBranch(&list[i]))
	}
	page, limit, _ := filter.Normalize()
	return &dto.BranchIndexProps{
		Branches: dto.NewPaginated(rows, total, page, limit),
		Total:    total,
		Filters:  filter,
	}, nil
}

func (s *branchService) checkCode(ctx context.Context, code string, self *uuid.UUID) error {
	taken, err := s.repo.CodeTaken(ctx, code, self)
	if err != nil {
		return err
	}
	if taken {
		return fieldError("code", "The code has already been taken.")
	}
	return nil
}

func applyBranch(b *model.Branch, req dto.BranchRequest) {
	b.Name = strings.TrimSpace(req.Name)
	b.Code = strings.TrimSpace(req.Code)
	b.Phone = req.Phone
	b.Email = req.Email
	b.Address = req.Address
	b.City = req.City
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
}

func (s *branchService) Create(ctx context.Context, req dto.BranchRequest) (*dto.BranchResponse, error) {
	if err := s.checkCode(ctx, strings.TrimSpace(req.Code), nil); err != nil {
		return nil, err
	}
	b := &model.Branch{IsActive: true}
	applyBranch(b, req)
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	log.Info().Str("branch_id", b.ID.String()).Str("code", b.Code).Msg("branch created")
	resp := mapBranch(b)
	return &resp, nil
}

func (s *branchService) Get(ctx context.Context, id uuid.UUID) (*dto.BranchResponse, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	resp := mapBranch(b)
	return &resp, nil
}

func (s *branchService) Update(ctx context.Context, id uuid.UUID, req dto.BranchRequest) (*dto.BranchResponse, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.checkCode(ctx, strings.TrimSpace(req.Code), &b.ID); err != nil {
		return nil, err
	}
	applyBranch(b, req)
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	resp := mapBranch(b)
	return &resp, nil
}

func (s *branchService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	log.Info().Str("branch_id", id.String()).Msg("branch deleted")
	return nil
}
