package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"posadmin/internal/dto"
	"posadmin/internal/infra"
	"posadmin/internal/model"
	"posadmin/internal/policy"
	"posadmin/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RedirectPOS       = "/pos"
	RedirectOpenShift = "/shifts/open"
	RedirectDashboard = "/dashboard"
)

// ErrNoOpenShift is returned when closing without an open shift.
var ErrNoOpenShift = errors.New("no open shift")

type ShiftService interface {
	// OpenForm returns the redirect target instead of props when a shift is already open.
	OpenForm(ctx context.Context, userID uuid.UUID) (*dto.ShiftOpenProps, string, error)
	Open(ctx context.Context, userID uuid.UUID, req dto.OpenShiftRequest) (dto.Flash, error)
	// CloseForm returns the redirect target instead of props when no shift is open.
	CloseForm(ctx context.Context, userID uuid.UUID) (*dto.ShiftCloseProps, string, error)
	Close(ctx context.Context, userID uuid.UUID, req dto.CloseShiftRequest) (dto.Flash, error)
	History(ctx context.Context, userID uuid.UUID, filter dto.ListFilter) (*dto.ShiftIndexProps, error)
	HasOpenShift(ctx context.Context, userID uuid.UUID) (bool, error)
	// Report renders the PDF summary of one shift.
	Report(ctx context.Context, actor policy.Actor, id uuid.UUID) ([]byte, string, error)
}

type shiftService struct {
	repo      repository.ShiftRepository
	storeName string
	now       func() time.Time
}

func NewShiftService(repo repository.ShiftRepository, storeName string) ShiftService {
	return &shiftService{repo: repo, storeName: storeName, now: time.Now}
}

func mapShift(s *model.Shift) dto.ShiftResponse {
	return dto.ShiftResponse{
		ID:          s.ID,
		UserID:      s.UserID,
		OpenedAt:    s.OpenedAt,
		ClosedAt:    s.ClosedAt,
		OpeningCash: s.OpeningCash,
		ClosingCash: s.ClosingCash,
		Notes:       s.Notes,
		IsOpen:      s.IsOpen(),
	}
}

func (s *shiftService) OpenForm(ctx context.Context, userID uuid.UUID) (*dto.ShiftOpenProps, string, error) {
	open, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if open != nil {
		return nil, RedirectPOS, nil
	}
	last, err := s.repo.FindLastClosedByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	props := &dto.ShiftOpenProps{}
	if last != nil {
		r := mapShift(last)
		props.LastShift = &r
	}
	return props, "", nil
}

func (s *shiftService) Open(ctx context.Context, userID uuid.UUID, req dto.OpenShiftRequest) (dto.Flash, error) {
	open, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		return dto.Flash{}, err
	}
	if open != nil {
		return dto.Flash{Redirect: RedirectPOS}, nil
	}

	shift := &model.Shift{
		UserID:      userID,
		OpenedAt:    s.now(),
		OpeningCash: req.OpeningCash.Round(2),
	}
	if err := s.repo.Create(ctx, shift); err != nil {
		// lost a race against a concurrent open; the unique index kept one
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.Flash{Redirect: RedirectPOS}, nil
		}
		return dto.Flash{}, fmt.Errorf("open shift: %w", err)
	}

	log.Info().Str("user_id", userID.String()).Str("shift_id", shift.ID.String()).
		Str("opening_cash", shift.OpeningCash.StringFixed(2)).Msg("shift opened")
	return dto.Success("Shift opened successfully.", RedirectPOS), nil
}

func (s *shiftService) CloseForm(ctx context.Context, userID uuid.UUID) (*dto.ShiftCloseProps, string, error) {
	open, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if open == nil {
		return nil, RedirectOpenShift, nil
	}
	return &dto.ShiftCloseProps{Shift: mapShift(open), ExpectedCash: expectedCash(open)}, "", nil
}

// expectedCash is what the drawer should hold at close. Sales are not
// recorded here, so it equals the opening float.
func expectedCash(s *model.Shift) decimal.Decimal { return s.OpeningCash }

func (s *shiftService) Close(ctx context.Context, userID uuid.UUID, req dto.CloseShiftRequest) (dto.Flash, error) {
	open, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		return dto.Flash{}, err
	}
	if open == nil {
		return dto.Flash{}, ErrNoOpenShift
	}

	closedAt := s.now()
	closing := req.ClosingCash.Round(2)
	open.ClosedAt = &closedAt
	open.ClosingCash = &closing
	open.Notes = trimmed(req.Notes)

	ok, err := s.repo.Close(ctx, open)
	if err != nil {
		return dto.Flash{}, fmt.Errorf("close shift: %w", err)
	}
	if !ok {
		return dto.Flash{}, ErrNoOpenShift
	}

	log.Info().Str("user_id", userID.String()).Str("shift_id", open.ID.String()).
		Str("closing_cash", closing.StringFixed(2)).
		Str("difference", closing.Sub(expectedCash(open)).StringFixed(2)).Msg("shift closed")
	return dto.Success("Shift closed successfully.", RedirectDashboard), nil
}

func (s *shiftService) History(ctx context.Context, userID uuid.UUID, filter dto.ListFilter) (*dto.ShiftIndexProps, error) {
	page, limit, offset := filter.Normalize()
	list, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	rows := make([]dto.ShiftResponse, 0, len(list))
	for i := range list {
		rows = append(rows, mapShift(&list[i]))
	}
	return &dto.ShiftIndexProps{Shifts: dto.NewPaginated(rows, total, page, limit)}, nil
}

func (s *shiftService) HasOpenShift(ctx context.Context, userID uuid.UUID) (bool, error) {
	open, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return open != nil, nil
}

func (s *shiftService) Report(ctx context.Context, actor policy.Actor, id uuid.UUID) ([]byte, string, error) {
	shift, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", notFound(err)
	}
	if shift.UserID != actor.ID && actor.Role != model.RoleAdmin && actor.Role != model.RoleSuperAdmin {
		return nil, "", denied("You do not have permission to view this shift.")
	}

	summary := infra.ShiftSummary{
		StoreName:    s.storeName,
		OpenedAt:     shift.OpenedAt,
		ClosedAt:     shift.ClosedAt,
		OpeningCash:  shift.OpeningCash,
		ExpectedCash: expectedCash(shift),
		ClosingCash:  shift.ClosingCash,
	}
	if shift.User != nil {
		summary.CashierName = shift.User.Name
		summary.CashierEmail = shift.User.Email
	}
	if shift.Notes != nil {
		summary.Notes = *shift.Notes
	}

	pdf, err := infra.RenderShiftPDF(summary)
	if err != nil {
		return nil, "", fmt.Errorf("render shift report: %w", err)
	}
	return pdf, fmt.Sprintf("shift_%s.pdf", shift.OpenedAt.Format("20060102_1504")), nil
}
