package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"posadmin/internal/dto"
	"posadmin/internal/model"
	"posadmin/internal/policy"
	"posadmin/internal/repository"
	"posadmin/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── In-memory User Repository Stub ───────────────────────────────────────────

type userState struct {
	users     map[uuid.UUID]model.User
	staff     map[uuid.UUID]model.StaffProfile
	customers map[uuid.UUID]model.CustomerProfile
	suppliers map[uuid.UUID]model.SupplierProfile
}

func (s userState) clone() userState {
	out := userState{
		users:     make(map[uuid.UUID]model.User, len(s.users)),
		staff:     make(map[uuid.UUID]model.StaffProfile, len(s.staff)),
		customers: make(map[uuid.UUID]model.CustomerProfile, len(s.customers)),
		suppliers: make(map[uuid.UUID]model.SupplierProfile, len(s.suppliers)),
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.staff {
		out.staff[k] = v
	}
	for k, v := range s.customers {
		out.customers[k] = v
	}
	for k, v := range s.suppliers {
		out.suppliers[k] = v
	}
	return out
}

type stubUserRepo struct {
	st userState
	// failProfile makes CreateProfile fail to exercise rollback.
	failProfile bool
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{st: userState{}.clone()}
}

func (r *stubUserRepo) Transaction(ctx context.Context, fn func(tx repository.UserRepository) error) error {
	snapshot := r.st.clone()
	if err := fn(r); err != nil {
		r.st = snapshot
		return err
	}
	return nil
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	cp.StaffProfile, cp.CustomerProfile, cp.SupplierProfile = nil, nil, nil
	r.st.users[u.ID] = cp
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	cp := *u
	cp.StaffProfile, cp.CustomerProfile, cp.SupplierProfile = nil, nil, nil
	r.st.users[u.ID] = cp
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.st.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.st.users, id)
	delete(r.st.staff, id)
	delete(r.st.customers, id)
	delete(r.st.suppliers, id)
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if p, ok := r.st.staff[id]; ok {
		u.StaffProfile = &p
	}
	if p, ok := r.st.customers[id]; ok {
		u.CustomerProfile = &p
	}
	if p, ok := r.st.suppliers[id]; ok {
		u.SupplierProfile = &p
	}
	return &u, nil
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for id, u := range r.st.users {
		if u.Email == email {
			return r.FindByID(ctx, id)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) EmailTaken(_ context.Context, email string, exceptID *uuid.UUID) (bool, error) {
	for id, u := range r.st.users {
		if strings.EqualFold(u.Email, email) && (exceptID == nil || id != *exceptID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) List(ctx context.Context, _ dto.UserFilter, scope []model.Role) ([]model.User, int64, error) {
	var out []model.User
	for id, u := range r.st.users {
		if len(scope) == 0 || policy.Allows(scope, u.Role) {
			full, _ := r.FindByID(ctx, id)
			out = append(out, *full)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubUserRepo) CountByRole(_ context.Context, scope []model.Role) (map[model.Role]int64, error) {
	out := map[model.Role]int64{}
	for _, u := range r.st.users {
		if len(scope) == 0 || policy.Allows(scope, u.Role) {
			out[u.Role]++
		}
	}
	return out, nil
}

func (r *stubUserRepo) CreateProfile(_ context.Context, p model.Profile) error {
	if r.failProfile {
		return errors.New("insert failed")
	}
	return r.store(p)
}

func (r *stubUserRepo) SaveProfile(_ context.Context, p model.Profile) error { return r.store(p) }

func (r *stubUserRepo) store(p model.Profile) error {
	switch v := p.(type) {
	case *model.StaffProfile:
		r.st.staff[v.UserID] = *v
	case *model.CustomerProfile:
		r.st.customers[v.UserID] = *v
	case *model.SupplierProfile:
		r.st.suppliers[v.UserID] = *v
	}
	return nil
}

func (r *stubUserRepo) DeleteProfiles(_ context.Context, userID uuid.UUID) error {
	delete(r.st.staff, userID)
	delete(r.st.customers, userID)
	delete(r.st.suppliers, userID)
	return nil
}

func (r *stubUserRepo) CountProfiles(_ context.Context, userID uuid.UUID) (map[model.ProfileKind]int64, error) {
	out := map[model.ProfileKind]int64{}
	if _, ok := r.st.staff[userID]; ok {
		out[model.ProfileStaff] = 1
	}
	if _, ok := r.st.customers[userID]; ok {
		out[model.ProfileCustomer] = 1
	}
	if _, ok := r.st.suppliers[userID]; ok {
		out[model.ProfileSupplier] = 1
	}
	return out, nil
}

func (r *stubUserRepo) CodeExists(_ context.Context, kind model.ProfileKind, code string) (bool, error) {
	switch kind {
	case model.ProfileStaff:
		for _, p := range r.st.staff {
			if p.StaffCode == code {
				return true, nil
			}
		}
	case model.ProfileCustomer:
		for _, p := range r.st.customers {
			if p.CustomerCode == code {
				return true, nil
			}
		}
	}
	return false, nil
}

type recordingQueue struct{ payloads []interface{} }

func (q *recordingQueue) EnqueueEmail(_ context.Context, payload interface{}) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

var fixedNow = time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)

func newTestUserService(repo *stubUserRepo, branches *stubBranchRepo, q EmailQueue) *userService {
	svc := NewUserService(repo, branches, q).(*userService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

var (
	superAdmin = policy.Actor{ID: uuid.New(), Role: model.RoleSuperAdmin}
	admin      = policy.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	cashier    = policy.Actor{ID: uuid.New(), Role: model.RoleCashier}
)

func staffReq(role model.Role, email string, branch uuid.UUID) dto.CreateUserRequest {
	return dto.CreateUserRequest{
		UserFields: dto.UserFields{
			Name: "Staff " + string(role), Email: email, Role: role,
			Position: "Front desk", BranchID: &branch,
		},
		Password: "password123",
	}
}

func customerReq(email string) dto.CreateUserRequest {
	return dto.CreateUserRequest{
		UserFields: dto.UserFields{Name: "Walk In", Email: email, Role: model.RoleCustomer, CreditLimit: dec("500.123")},
		Password:   "password123",
	}
}

func supplierFields(email string) dto.UserFields {
	return dto.UserFields{
		Name: "Acme", Email: email, Role: model.RoleSupplier,
		CompanyName: "Acme Ltd", PaymentTerms: "net_30",
	}
}

// ── Tests: Create ────────────────────────────────────────────────────────────

func TestCreateUser_StaffProfileAndWelcomeMail(t *testing.T) {
	repo, branches, q := newStubUserRepo(), newStubBranchRepo(), &recordingQueue{}
	branch := branches.add("Main", "BR001")
	svc := newTestUserService(repo, branches, q)

	resp, err := svc.Create(context.Background(), admin, staffReq(model.RoleCashier, "  Till@POS.com ", branch))
	require.NoError(t, err)
	assert.Equal(t, "till@pos.com", resp.Email)
	require.NotNil(t, resp.Profile)
	assert.Equal(t, model.ProfileStaff, resp.Profile.Kind)
	assert.Equal(t, "STF-1770206400", resp.Profile.StaffCode)
	assert.Equal(t, branch, *resp.Profile.BranchID)

	stored := repo.st.users[resp.ID]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")))

	require.Len(t, q.payloads, 1)
	mail, ok := q.payloads[0].(worker.EmailJobPayload)
	require.True(t, ok)
	assert.Equal(t, "till@pos.com", mail.ToEmail)
}

func TestCreateUser_CustomerCodeCollisionGetsSuffix(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(repo, newStubBranchRepo(), nil)

	first, err := svc.Create(context.Background(), cashier, customerReq("a@pos.com"))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), cashier, customerReq("b@pos.com"))
	require.NoError(t, err)

	assert.Equal(t, "CUST-1770206400", first.Profile.CustomerCode)
	assert.Equal(t, "CUST-1770206400-2", second.Profile.CustomerCode)
	assert.Equal(t, "500.12", first.Profile.CreditLimit.StringFixed(2))
}

func TestCreateUser_RoleNotAllowedForActor(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(repo, newStubBranchRepo(), nil)

	_, err := svc.Create(context.Background(), admin, staffReq(model.RoleSuperAdmin, "x@pos.com", uuid.New()))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "role")
	assert.Empty(t, repo.st.users)

	_, err = svc.Create(context.Background(), cashier, staffReq(model.RoleCashier, "y@pos.com", uuid.New()))
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "role")
}

func TestCreateUser_FieldChecks(t *testing.T) {
	repo, branches := newStubUserRepo(), newStubBranchRepo()
	svc := newTestUserService(repo, branches, nil)
	_, err := svc.Create(context.Background(), admin, customerReq("dup@pos.com"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), admin, customerReq("DUP@pos.com"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "The email has already been taken.", verr.Fields["email"])

	_, err = svc.Create(context.Background(), admin, staffReq(model.RoleCashier, "new@pos.com", uuid.New()))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "The selected branch is invalid.", verr.Fields["branch_id"])
}

func TestCreateUser_ProfileFailureRollsBackUser(t *testing.T) {
	repo := newStubUserRepo()
	repo.failProfile = true
	q := &recordingQueue{}
	svc := newTestUserService(repo, newStubBranchRepo(), q)

	_, err := svc.Create(context.Background(), admin, customerReq("gone@pos.com"))
	require.Error(t, err)
	assert.Empty(t, repo.st.users, "user row rolled back with its profile")
	assert.Empty(t, q.payloads)
}

// ── Tests: Update / profile swap ─────────────────────────────────────────────

func TestUpdateUser_RoleChangeSwapsProfile(t *testing.T) {
	repo, branches := newStubUserRepo(), newStubBranchRepo()
	branch := branches.add("Main", "BR001")
	svc := newTestUserService(repo, branches, nil)
	created, err := svc.Create(context.Background(), admin, staffReq(model.RoleCashier, "swap@pos.com", branch))
	require.NoError(t, err)

	resp, err := svc.Update(context.Background(), admin, created.ID, dto.UpdateUserRequest{
		UserFields: supplierFields("swap@pos.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleSupplier, resp.Role)
	assert.Equal(t, model.ProfileSupplier, resp.Profile.Kind)
	assert.Equal(t, "Acme Ltd", resp.Profile.CompanyName)

	counts, _ := repo.CountProfiles(context.Background(), created.ID)
	assert.Equal(t, map[model.ProfileKind]int64{model.ProfileSupplier: 1}, counts)
}

func TestUpdateUser_SwapFailureRollsBack(t *testing.T) {
	repo, branches := newStubUserRepo(), newStubBranchRepo()
	branch := branches.add("Main", "BR001")
	svc := newTestUserService(repo, branches, nil)
	created, err := svc.Create(context.Background(), admin, staffReq(model.RoleCashier, "keep@pos.com", branch))
	require.NoError(t, err)

	repo.failProfile = true
	_, err = svc.Update(context.Background(), admin, created.ID, dto.UpdateUserRequest{
		UserFields: supplierFields("keep@pos.com"),
	})
	require.Error(t, err)

	assert.Equal(t, model.RoleCashier, repo.st.users[created.ID].Role)
	counts, _ := repo.CountProfiles(context.Background(), created.ID)
	assert.Equal(t, map[model.ProfileKind]int64{model.ProfileStaff: 1}, counts)
}

func TestUpdateUser_SameRolePatchesProfileAndKeepsPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(repo, newStubBranchRepo(), nil)
	created, err := svc.Create(context.Background(), admin, customerReq("keep@pos.com"))
	require.NoError(t, err)
	before := repo.st.users[created.ID].Password

	points := 40
	f := customerReq("keep@pos.com").UserFields
	f.LoyaltyPoints = &points
	resp, err := svc.Update(context.Background(), admin, created.ID, dto.UpdateUserRequest{UserFields: f})
	require.NoError(t, err)

	assert.Equal(t, created.Profile.CustomerCode, resp.Profile.CustomerCode, "code survives a patch")
	assert.Equal(t, 40, *resp.Profile.LoyaltyPoints)
	assert.Equal(t, before, repo.st.users[created.ID].Password)
}

func TestUpdateUser_CashierCannotTouchStaff(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(repo, newStubBranchRepo(), nil)
	created, err := svc.Create(context.Background(), admin, supplierReq("s@pos.com"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), cashier, created.ID, dto.UpdateUserRequest{UserFields: supplierFields("s@pos.com")})
	var rerr *RuleError
	require.True(t, errors.As(err, &rerr))
	assert.True(t, rerr.Forbidden)
}

func supplierReq(email string) dto.CreateUserRequest {
	return dto.CreateUserRequest{UserFields: supplierFields(email), Password: "password123"}
}

func TestUpdateUser_SuperAdminCannotBeDemoted(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(repo, newStubBranchRepo(), nil)
	branch := uuid.New()
	req := staffReq(model.RoleSuperAdmin, "root@pos.com", branch)
	req.BranchID = nil
	created, err := svc.Create(context.Background(), superAdmin, req)
	require.NoError(t, err)

	f := req.UserFields
	f.Role = model.RoleAdmin
	_, err = svc.Update(context.Background(), superAdmin, created.ID, dto.UpdateUserRequest{UserFields: f})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "role")
}

// ── Tests: Index / Delete ────────────────────────────────────────────────────

func TestUserIndex_CashierSeesOnlyCustomers(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(repo, newStubBranchRepo(), nil)
	_, err := svc.Create(context.Background(), admin, customerReq("c1@pos.com"))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), admin, supplierReq("s1@pos.com"))
	require.NoError(t, err)

	props, err := svc.Index(context.Background(), cashier, dto.UserFilter{})
	require.NoError(t, err)
	require.Len(t, props.Users.Data, 1)
	assert.Equal(t, model.RoleCustomer, props.Users.Data[0].Role)
	require.Len(t, props.RoleCounts, 1)
	assert.Equal(t, int64(1), props.RoleCounts[0].Count)

	props, err = svc.Index(context.Background(), admin, dto.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, props.Users.Data, 2)
	assert.Len(t, props.RoleCounts, len(model.AllRoles))
}

func TestDeleteUser_Rules(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(repo, newStubBranchRepo(), nil)
	created, err := svc.Create(context.Background(), admin, customerReq("bye@pos.com"))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), cashier, created.ID)
	assert.EqualError(t, err, "You do not have permission to delete this user.")

	self := policy.Actor{ID: created.ID, Role: model.RoleAdmin}
	assert.Error(t, svc.Delete(context.Background(), self, created.ID))

	require.NoError(t, svc.Delete(context.Background(), admin, created.ID))
	assert.True(t, errors.Is(svc.Delete(context.Background(), admin, created.ID), ErrNotFound))
}

func TestWelcomePayloadIsJSONEncodable(t *testing.T) {
	q := &recordingQueue{}
	svc := newTestUserService(newStubUserRepo(), newStubBranchRepo(), q)
	_, err := svc.Create(context.Background(), admin, customerReq("json@pos.com"))
	require.NoError(t, err)

	b, err := json.Marshal(q.payloads[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"to_email":"json@pos.com"`)
}
