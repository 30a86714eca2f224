package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"posadmin/internal/dto"
	"posadmin/internal/model"
	"posadmin/internal/policy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestShiftService(repo *stubShiftRepo, now time.Time) *shiftService {
	svc := NewShiftService(repo, "Test Store").(*shiftService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestOpenShift_CreatesOpenShift(t *testing.T) {
	repo := newStubShiftRepo()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := newTestShiftService(repo, now)
	user := uuid.New()

	flash, err := svc.Open(context.Background(), user, dto.OpenShiftRequest{OpeningCash: dec("150.505")})
	require.NoError(t, err)
	assert.Equal(t, "Shift opened successfully.", flash.Message)
	assert.Equal(t, RedirectPOS, flash.Redirect)

	open, _ := repo.FindOpenByUser(context.Background(), user)
	require.NotNil(t, open)
	assert.Equal(t, now, open.OpenedAt)
	assert.True(t, open.OpeningCash.Equal(decimal.RequireFromString("150.51")))
}

func TestOpenShift_ZeroCashAccepted(t *testing.T) {
	repo := newStubShiftRepo()
	svc := newTestShiftService(repo, time.Now())

	_, err := svc.Open(context.Background(), uuid.New(), dto.OpenShiftRequest{OpeningCash: dec("0")})
	require.NoError(t, err)
	assert.Len(t, repo.shifts, 1)
}

func TestOpenShift_AlreadyOpenRedirectsWithoutWrite(t *testing.T) {
	repo := newStubShiftRepo()
	svc := newTestShiftService(repo, time.Now())
	user := uuid.New()

	_, err := svc.Open(context.Background(), user, dto.OpenShiftRequest{OpeningCash: dec("10")})
	require.NoError(t, err)

	flash, err := svc.Open(context.Background(), user, dto.OpenShiftRequest{OpeningCash: dec("99")})
	require.NoError(t, err)
	assert.Empty(t, flash.Message)
	assert.Equal(t, RedirectPOS, flash.Redirect)
	assert.Len(t, repo.shifts, 1, "at most one open shift per user")
}

func TestOpenShift_LostRaceTreatedAsOpen(t *testing.T) {
	repo := newStubShiftRepo()
	repo.createErr = gorm.ErrDuplicatedKey
	svc := newTestShiftService(repo, time.Now())

	flash, err := svc.Open(context.Background(), uuid.New(), dto.OpenShiftRequest{OpeningCash: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, RedirectPOS, flash.Redirect)
}

func TestOpenForm(t *testing.T) {
	repo := newStubShiftRepo()
	svc := newTestShiftService(repo, time.Now())
	user := uuid.New()
	closed := time.Now().Add(-time.Hour)
	last := &model.Shift{ID: uuid.New(), UserID: user, OpenedAt: closed.Add(-8 * time.Hour), ClosedAt: &closed}
	repo.shifts[last.ID] = last

	props, to, err := svc.OpenForm(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, to)
	require.NotNil(t, props.LastShift)
	assert.Equal(t, last.ID, props.LastShift.ID)

	_, err = svc.Open(context.Background(), user, dto.OpenShiftRequest{OpeningCash: dec("1")})
	require.NoError(t, err)
	props, to, err = svc.OpenForm(context.Background(), user)
	require.NoError(t, err)
	assert.Nil(t, props)
	assert.Equal(t, RedirectPOS, to)
}

func TestCloseShift_StampsClosingData(t *testing.T) {
	repo := newStubShiftRepo()
	now := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	svc := newTestShiftService(repo, now)
	user := uuid.New()
	_, err := svc.Open(context.Background(), user, dto.OpenShiftRequest{OpeningCash: dec("100")})
	require.NoError(t, err)

	notes := "  short by one coin  "
	flash, err := svc.Close(context.Background(), user, dto.CloseShiftRequest{ClosingCash: dec("99.50"), Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "Shift closed successfully.", flash.Message)
	assert.Equal(t, RedirectDashboard, flash.Redirect)

	open, _ := repo.FindOpenByUser(context.Background(), user)
	assert.Nil(t, open)
	last, _ := repo.FindLastClosedByUser(context.Background(), user)
	require.NotNil(t, last)
	assert.Equal(t, now, *last.ClosedAt)
	assert.True(t, last.ClosingCash.Equal(decimal.RequireFromString("99.5")))
	require.NotNil(t, last.Notes)
	assert.Equal(t, "short by one coin", *last.Notes)
}

func TestCloseShift_NoOpenShift(t *testing.T) {
	svc := newTestShiftService(newStubShiftRepo(), time.Now())

	_, err := svc.Close(context.Background(), uuid.New(), dto.CloseShiftRequest{ClosingCash: dec("1")})
	assert.True(t, errors.Is(err, ErrNoOpenShift))
}

func TestCloseShift_ConcurrentCloseLoses(t *testing.T) {
	repo := newStubShiftRepo()
	svc := newTestShiftService(repo, time.Now())
	user := uuid.New()
	_, err := svc.Open(context.Background(), user, dto.OpenShiftRequest{OpeningCash: dec("1")})
	require.NoError(t, err)

	repo.staleClose = true
	_, err = svc.Close(context.Background(), user, dto.CloseShiftRequest{ClosingCash: dec("1")})
	assert.True(t, errors.Is(err, ErrNoOpenShift))
}

func TestCloseForm_RedirectsWithoutOpenShift(t *testing.T) {
	svc := newTestShiftService(newStubShiftRepo(), time.Now())

	props, to, err := svc.CloseForm(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, props)
	assert.Equal(t, RedirectOpenShift, to)
}

func TestCloseForm_ExpectedCashIsOpeningFloat(t *testing.T) {
	repo := newStubShiftRepo()
	svc := newTestShiftService(repo, time.Now())
	user := uuid.New()
	_, err := svc.Open(context.Background(), user, dto.OpenShiftRequest{OpeningCash: dec("250")})
	require.NoError(t, err)

	props, to, err := svc.CloseForm(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, to)
	assert.True(t, props.ExpectedCash.Equal(decimal.NewFromInt(250)))
	assert.True(t, props.Shift.IsOpen)
}

func TestShiftHistory_OnlyOwnShiftsNewestFirst(t *testing.T) {
	repo := newStubShiftRepo()
	svc := newTestShiftService(repo, time.Now())
	user, other := uuid.New(), uuid.New()
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		closed := base.Add(time.Duration(i)*24*time.Hour + 8*time.Hour)
		s := &model.Shift{ID: uuid.New(), UserID: user, OpenedAt: base.Add(time.Duration(i) * 24 * time.Hour), ClosedAt: &closed}
		repo.shifts[s.ID] = s
	}
	foreign := &model.Shift{ID: uuid.New(), UserID: other, OpenedAt: base}
	repo.shifts[foreign.ID] = foreign

	props, err := svc.History(context.Background(), user, dto.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), props.Shifts.Total)
	require.Len(t, props.Shifts.Data, 3)
	assert.True(t, props.Shifts.Data[0].OpenedAt.After(props.Shifts.Data[2].OpenedAt))
}

func TestShiftReport_Permissions(t *testing.T) {
	repo := newStubShiftRepo()
	svc := newTestShiftService(repo, time.Now())
	owner := uuid.New()
	s := &model.Shift{
		ID: uuid.New(), UserID: owner, OpenedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		OpeningCash: decimal.NewFromInt(100),
		User:        &model.User{Name: "Cashier", Email: "cashier@pos.com"},
	}
	repo.shifts[s.ID] = s

	pdf, name, err := svc.Report(context.Background(), policy.Actor{ID: owner, Role: model.RoleCashier}, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "shift_20260302_0800.pdf", name)
	assert.True(t, len(pdf) > 4 && string(pdf[:4]) == "%PDF")

	_, _, err = svc.Report(context.Background(), policy.Actor{ID: uuid.New(), Role: model.RoleAdmin}, s.ID)
	assert.NoError(t, err)

	_, _, err = svc.Report(context.Background(), policy.Actor{ID: uuid.New(), Role: model.RoleCashier}, s.ID)
	var rerr *RuleError
	require.True(t, errors.As(err, &rerr))
	assert.True(t, rerr.Forbidden)

	_, _, err = svc.Report(context.Background(), policy.Actor{ID: owner, Role: model.RoleCashier}, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}
