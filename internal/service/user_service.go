package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"posadmin/internal/dto"
	"posadmin/internal/model"
	"posadmin/internal/policy"
	"posadmin/internal/repository"
	"posadmin/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 12
	// maxCodeAttempts bounds the suffix search for a free profile code.
	maxCodeAttempts = 50
)

// EmailQueue hands mail to the background worker pool.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload interface{}) error
}

type UserService interface {
	Index(ctx context.Context, actor policy.Actor, filter dto.UserFilter) (*dto.UserIndexProps, error)
	CreateForm(ctx context.Context, actor policy.Actor) (*dto.UserFormProps, error)
	Create(ctx context.Context, actor policy.Actor, req dto.CreateUserRequest) (*dto.UserResponse, error)
	Show(ctx context.Context, actor policy.Actor, id uuid.UUID) (*dto.UserResponse, error)
	EditForm(ctx context.Context, actor policy.Actor, id uuid.UUID) (*dto.UserFormProps, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

type userService struct {
	repo     repository.UserRepository
	branches repository.BranchRepository
	mail     EmailQueue
	now      func() time.Time
}

// NewUserService wires the user service. mail may be nil, in which case no
// welcome email is queued.
func NewUserService(repo repository.UserRepository, branches repository.BranchRepository, mail EmailQueue) UserService {
	return &userService{repo: repo, branches: branches, mail: mail, now: time.Now}
}

func mapProfile(u *model.User) *dto.ProfileResponse {
	switch p := u.Profile().(type) {
	case *model.StaffProfile:
		out := &dto.ProfileResponse{
			Kind:      model.ProfileStaff,
			StaffCode: p.StaffCode,
			Position:  p.Position,
			BranchID:  p.BranchID,
			HiredAt:   p.HiredAt,
		}
		if p.Branch != nil {
			out.BranchName = p.Branch.Name
		}
		return out
	case *model.CustomerProfile:
		credit, points := p.CreditLimit, p.LoyaltyPoints
		return &dto.ProfileResponse{
			Kind:          model.ProfileCustomer,
			CustomerCode:  p.CustomerCode,
			CreditLimit:   &credit,
			LoyaltyPoints: &points,
		}
	case *model.SupplierProfile:
		active := p.IsActive
		return &dto.ProfileResponse{
			Kind:         model.ProfileSupplier,
			CompanyName:  p.CompanyName,
			PaymentTerms: p.PaymentTerms,
			TaxID:        p.TaxID,
			IsActive:     &active,
		}
	}
	return nil
}

func mapUser(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		RoleLabel: u.Role.Label(),
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		Profile:   mapProfile(u),
	}
}

func roleOptions(roles []model.Role) []dto.Option {
	out := make([]dto.Option, 0, len(roles))
	for _, r := range roles {
		out = append(out, dto.Option{Value: string(r), Label: r.Label()})
	}
	return out
}

func (s *userService) branchOptions(ctx context.Context) ([]dto.Option, error) {
	list, err := s.branches.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Option, 0, len(list))
	for _, b := range list {
		out = append(out, dto.Option{Value: b.ID.String(), Label: b.Name})
	}
	return out, nil
}

func (s *userService) Index(ctx context.Context, actor policy.Actor, filter dto.UserFilter) (*dto.UserIndexProps, error) {
	if !policy.CanViewAny(actor) {
		return nil, denied("You do not have permission to view users.")
	}
	scope := policy.ListableRoles(actor)

	users, total, err := s.repo.List(ctx, filter, scope)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByRole(ctx, scope)
	if err != nil {
		return nil, err
	}

	rows := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		rows = append(rows, mapUser(&users[i]))
	}

	visible := model.AllRoles
	if len(scope) > 0 {
		visible = scope
	}
	roleCounts := make([]dto.RoleCount, 0, len(visible))
	for _, r := range visible {
		roleCounts = append(roleCounts, dto.RoleCount{Role: r, Label: r.Label(), Count: counts[r]})
	}

	page, limit, _ := filter.Normalize()
	return &dto.UserIndexProps{
		Users:       dto.NewPaginated(rows, total, page, limit),
		RoleCounts:  roleCounts,
		RoleOptions: roleOptions(visible),
		Filters:     filter,
	}, nil
}

func (s *userService) CreateForm(ctx context.Context, actor policy.Actor) (*dto.UserFormProps, error) {
	if !policy.CanCreate(actor) {
		return nil, denied("You do not have permission to create users.")
	}
	branches, err := s.branchOptions(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.UserFormProps{RoleOptions: roleOptions(policy.CreateRoleOptions(actor)), Branches: branches}, nil
}

// checkFields runs the lookups that validator tags cannot express.
func (s *userService) checkFields(ctx context.Context, f dto.UserFields, allowed []model.Role, self *uuid.UUID) (string, error) {
	fields := map[string]string{}

	if !policy.Allows(allowed, f.Role) {
		fields["role"] = "The selected role is invalid."
	}

	email := strings.ToLower(strings.TrimSpace(f.Email))
	taken, err := s.repo.EmailTaken(ctx, email, self)
	if err != nil {
		return "", err
	}
	if taken {
		fields["email"] = "The email has already been taken."
	}

	if f.Role.IsStaff() && f.BranchID != nil {
		if _, err := s.branches.FindByID(ctx, *f.BranchID); err != nil {
			if !errors.Is(notFound(err), ErrNotFound) {
				return "", err
			}
			fields["branch_id"] = "The selected branch is invalid."
		}
	}

	if len(fields) > 0 {
		return "", &ValidationError{Fields: fields}
	}
	return email, nil
}

func (s *userService) Create(ctx context.Context, actor policy.Actor, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if !policy.CanCreate(actor) {
		return nil, denied("You do not have permission to create users.")
	}
	email, err := s.checkFields(ctx, req.UserFields, policy.CreateRoleOptions(actor), nil)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hash),
		Role:     req.Role,
		Status:   true,
	}
	if req.Status != nil {
		u.Status = *req.Status
	}

	err = s.repo.Transaction(ctx, func(tx repository.UserRepository) error {
		if err := tx.Create(ctx, u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		p, err := s.newProfile(ctx, tx, u, req.UserFields)
		if err != nil {
			return err
		}
		if err := tx.CreateProfile(ctx, p); err != nil {
			return fmt.Errorf("create %s profile: %w", p.Kind(), err)
		}
		attachProfile(u, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).
		Str("actor_id", actor.ID.String()).Msg("user created")
	s.sendWelcome(ctx, u)

	resp := mapUser(u)
	return &resp, nil
}

// sendWelcome is best-effort; a queue failure never fails the request.
func (s *userService) sendWelcome(ctx context.Context, u *model.User) {
	if s.mail == nil {
		return
	}
	payload := worker.EmailJobPayload{
		ToEmail: u.Email,
		Subject: "Welcome aboard",
		Body: fmt.Sprintf("Hello %s,\n\nAn account with the %s role has been created for you.\n",
			u.Name, u.Role.Label()),
	}
	if err := s.mail.EnqueueEmail(ctx, payload); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("welcome email not queued")
	}
}

func attachProfile(u *model.User, p model.Profile) {
	u.StaffProfile, u.CustomerProfile, u.SupplierProfile = nil, nil, nil
	switch v := p.(type) {
	case *model.StaffProfile:
		u.StaffProfile = v
	case *model.CustomerProfile:
		u.CustomerProfile = v
	case *model.SupplierProfile:
		u.SupplierProfile = v
	}
}

// newProfile builds the fresh profile row for the user's role.
func (s *userService) newProfile(ctx context.Context, tx repository.UserRepository, u *model.User, f dto.UserFields) (model.Profile, error) {
	switch u.Role.ProfileKind() {
	case model.ProfileCustomer:
		code, err := s.nextCode(ctx, tx, model.ProfileCustomer)
		if err != nil {
			return nil, err
		}
		p := &model.CustomerProfile{UserID: u.ID, CustomerCode: code, CreditLimit: decimal.Zero}
		applyCustomer(p, f)
		return p, nil
	case model.ProfileSupplier:
		p := &model.SupplierProfile{UserID: u.ID, IsActive: true}
		applySupplier(p, f)
		return p, nil
	default:
		code, err := s.nextCode(ctx, tx, model.ProfileStaff)
		if err != nil {
			return nil, err
		}
		hired := s.now()
		p := &model.StaffProfile{UserID: u.ID, StaffCode: code, HiredAt: &hired}
		applyStaff(p, f)
		return p, nil
	}
}

func applyStaff(p *model.StaffProfile, f dto.UserFields) {
	p.Position = strings.TrimSpace(f.Position)
	p.BranchID = f.BranchID
	p.Branch = nil
}

func applyCustomer(p *model.CustomerProfile, f dto.UserFields) {
	if f.CreditLimit != nil {
		p.CreditLimit = f.CreditLimit.Round(2)
	}
	if f.LoyaltyPoints != nil {
		p.LoyaltyPoints = *f.LoyaltyPoints
	}
}

func applySupplier(p *model.SupplierProfile, f dto.UserFields) {
	p.CompanyName = strings.TrimSpace(f.CompanyName)
	p.PaymentTerms = strings.TrimSpace(f.PaymentTerms)
	p.TaxID = f.TaxID
}

// nextCode returns STF-<unix> or CUST-<unix>, suffixed -2, -3, ... while taken.
func (s *userService) nextCode(ctx context.Context, tx repository.UserRepository, kind model.ProfileKind) (string, error) {
	prefix := "STF"
	if kind == model.ProfileCustomer {
		prefix = "CUST"
	}
	base := fmt.Sprintf("%s-%d", prefix, s.now().Unix())
	code := base
	for i := 2; i <= maxCodeAttempts+1; i++ {
		exists, err := tx.CodeExists(ctx, kind, code)
		if err != nil {
			return "", fmt.Errorf("check %s code: %w", kind, err)
		}
		if !exists {
			return code, nil
		}
		code = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free %s code after %d attempts", kind, maxCodeAttempts)
}

func (s *userService) load(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *userService) Show(ctx context.Context, actor policy.Actor, id uuid.UUID) (*dto.UserResponse, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, policy.TargetOf(u)) {
		return nil, denied("You do not have permission to view this user.")
	}
	resp := mapUser(u)
	return &resp, nil
}

func (s *userService) EditForm(ctx context.Context, actor policy.Actor, id uuid.UUID) (*dto.UserFormProps, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	t := policy.TargetOf(u)
	if !policy.CanUpdate(actor, t) {
		return nil, denied("You do not have permission to edit this user.")
	}
	branches, err := s.branchOptions(ctx)
	if err != nil {
		return nil, err
	}
	resp := mapUser(u)
	return &dto.UserFormProps{
		User:        &resp,
		RoleOptions: roleOptions(policy.EditRoleOptions(actor, t)),
		Branches:    branches,
	}, nil
}

func (s *userService) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	t := policy.TargetOf(u)
	if !policy.CanUpdate(actor, t) {
		return nil, denied("You do not have permission to update this user.")
	}
	email, err := s.checkFields(ctx, req.UserFields, policy.EditRoleOptions(actor, t), &u.ID)
	if err != nil {
		return nil, err
	}

	oldRole := u.Role
	u.Name = strings.TrimSpace(req.Name)
	u.Email = email
	u.Role = req.Role
	if req.Status != nil {
		u.Status = *req.Status
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.Password = string(hash)
	}

	err = s.repo.Transaction(ctx, func(tx repository.UserRepository) error {
		if err := tx.Update(ctx, u); err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		var (
			p   model.Profile
			err error
		)
		if oldRole == u.Role {
			p, err = s.patchProfile(ctx, tx, u, req.UserFields)
			if err != nil {
				return err
			}
		} else {
			if err := tx.DeleteProfiles(ctx, u.ID); err != nil {
				return fmt.Errorf("drop profiles: %w", err)
			}
			p, err = s.newProfile(ctx, tx, u, req.UserFields)
			if err != nil {
				return err
			}
			if err := tx.CreateProfile(ctx, p); err != nil {
				return fmt.Errorf("create %s profile: %w", p.Kind(), err)
			}
		}
		attachProfile(u, p)
		return assertSingleProfile(ctx, tx, u)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).
		Str("previous_role", string(oldRole)).Str("actor_id", actor.ID.String()).Msg("user updated")
	resp := mapUser(u)
	return &resp, nil
}

// patchProfile updates the role's existing profile, creating it when missing.
func (s *userService) patchProfile(ctx context.Context, tx repository.UserRepository, u *model.User, f dto.UserFields) (model.Profile, error) {
	var p model.Profile
	switch u.Role.ProfileKind() {
	case model.ProfileStaff:
		if u.StaffProfile != nil {
			applyStaff(u.StaffProfile, f)
			p = u.StaffProfile
		}
	case model.ProfileCustomer:
		if u.CustomerProfile != nil {
			applyCustomer(u.CustomerProfile, f)
			p = u.CustomerProfile
		}
	case model.ProfileSupplier:
		if u.SupplierProfile != nil {
			applySupplier(u.SupplierProfile, f)
			p = u.SupplierProfile
		}
	}
	if p != nil {
		if err := tx.SaveProfile(ctx, p); err != nil {
			return nil, fmt.Errorf("save %s profile: %w", p.Kind(), err)
		}
		return p, nil
	}

	p, err := s.newProfile(ctx, tx, u, f)
	if err != nil {
		return nil, err
	}
	if err := tx.CreateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("create %s profile: %w", p.Kind(), err)
	}
	return p, nil
}

// assertSingleProfile fails the transaction unless the user holds exactly
// one profile and it is the variant the role requires.
func assertSingleProfile(ctx context.Context, tx repository.UserRepository, u *model.User) error {
	counts, err := tx.CountProfiles(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("count profiles: %w", err)
	}
	want := u.Role.ProfileKind()
	for kind, n := range counts {
		if (kind == want && n != 1) || (kind != want && n != 0) {
			return fmt.Errorf("user %s: role %s expects one %s profile, found %d %s",
				u.ID, u.Role, want, n, kind)
		}
	}
	if _, ok := counts[want]; !ok {
		return fmt.Errorf("user %s: %s profile missing", u.ID, want)
	}
	return nil
}

func (s *userService) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(actor, policy.TargetOf(u)) {
		return denied("You do not have permission to delete this user.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	log.Info().Str("user_id", id.String()).Str("actor_id", actor.ID.String()).Msg("user deleted")
	return nil
}
