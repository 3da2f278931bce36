package mockapi

import (
	"net/http"
	"net/mail"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"admin-console/internal/model"
	"admin-console/pkg/apierror"
)

const minPasswordLength = 6

type userRecord struct {
	model.User
	passwordHash []byte
}

// store is the in-memory state of the development backend. Universities are
// soft-deleted and can be restored.
type store struct {
	mu           sync.RWMutex
	users        map[int64]*userRecord
	universities map[int64]*model.University
	nextUserID   int64
	nextUnivID   int64
	bcryptCost   int
	now          func() time.Time
}

func newStore(bcryptCost int, now func() time.Time) *store {
	return &store{
		users:        map[int64]*userRecord{},
		universities: map[int64]*model.University{},
		nextUserID:   1,
		nextUnivID:   1,
		bcryptCost:   bcryptCost,
		now:          now,
	}
}

func errParam(msg string) *apierror.Error {
	return apierror.New(apierror.CodeParam, msg, http.StatusBadRequest)
}

func errNotFound(msg string) *apierror.Error {
	return apierror.New(apierror.CodeNotFound, msg, http.StatusNotFound)
}

func errConflict(msg string) *apierror.Error {
	return apierror.New(apierror.CodeBusinessRule, msg, http.StatusConflict)
}

func (s *store) authenticate(email, password string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.userByEmailLocked(email)
	if rec == nil || bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)) != nil {
		return model.User{}, errParam("invalid email or password")
	}
	if rec.Status != model.StatusActive {
		return model.User{}, apierror.New(apierror.CodeForbidden, "account is disabled", http.StatusForbidden)
	}

	now := s.now().UTC()
	rec.LastLoginTime = &now
	return rec.User, nil
}

func (s *store) createUser(in model.UserCreate) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return model.User{}, errParam("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return model.User{}, errParam("password must be at least 6 characters")
	}
	if in.Role == 0 {
		in.Role = model.RoleUser
	}
	if err := validateRoleStatus(&in.Role, &in.Status); err != nil {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userByEmailLocked(email) != nil {
		return model.User{}, errConflict("email already registered")
	}

	now := s.now().UTC()
	rec := &userRecord{
		User: model.User{
			ID:        s.nextUserID,
			Email:     email,
			Role:      in.Role,
			Status:    in.Status,
			CreatedAt: now,
			UpdatedAt: now,
		},
		passwordHash: hash,
	}
	s.nextUserID++
	s.users[rec.ID] = rec
	return rec.User, nil
}

func (s *store) updateUser(id int64, patch model.UserUpdate) (model.User, error) {
	if patch.Empty() {
		return model.User{}, errParam("nothing to update")
	}
	if err := validateRoleStatus(patch.Role, patch.Status); err != nil {
		return model.User{}, err
	}

	var hash []byte
	if patch.Password != nil {
		if len(*patch.Password) < minPasswordLength {
			return model.User{}, errParam("password must be at least 6 characters")
		}
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(*patch.Password), s.bcryptCost); err != nil {
			return model.User{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return model.User{}, errNotFound("user not found")
	}

	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return model.User{}, errParam("a valid email is required")
		}
		if other := s.userByEmailLocked(email); other != nil && other.ID != id {
			return model.User{}, errConflict("email already registered")
		}
		rec.Email = email
	}
	if patch.Role != nil {
		rec.Role = *patch.Role
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if hash != nil {
		rec.passwordHash = hash
	}
	rec.UpdatedAt = s.now().UTC()
	return rec.User, nil
}

func (s *store) deleteUser(id, actorID int64) error {
	if id == actorID {
		return errConflict("you cannot delete your own account")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return errNotFound("user not found")
	}
	delete(s.users, id)
	return nil
}

func (s *store) user(id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return model.User{}, errNotFound("user not found")
	}
	return rec.User, nil
}

func (s *store) listUsers(page, size int) ([]model.User, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]model.User, 0, len(s.users))
	for _, rec := range s.users {
		all = append(all, rec.User)
	}
	slices.SortFunc(all, func(a, b model.User) int { return compareID(a.ID, b.ID) })
	return paginate(all, page, size), int64(len(all))
}

func (s *store) createUniversity(name string, actorID int64) (model.University, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.University{}, errParam("name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.universityNameTakenLocked(name, 0) {
		return model.University{}, errConflict("university name already exists")
	}

	now := s.now().UTC()
	u := &model.University{
		ID:        s.nextUnivID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: &actorID,
		UpdatedBy: &actorID,
	}
	s.nextUnivID++
	s.universities[u.ID] = u
	return *u, nil
}

func (s *store) updateUniversity(id int64, name string, actorID int64) (model.University, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.University{}, errParam("name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.universities[id]
	if !ok || u.Deleted() {
		return model.University{}, errNotFound("university not found")
	}
	if s.universityNameTakenLocked(name, id) {
		return model.University{}, errConflict("university name already exists")
	}

	u.Name = name
	u.UpdatedAt = s.now().UTC()
	u.UpdatedBy = &actorID
	return *u, nil
}

func (s *store) deleteUniversity(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.universities[id]
	if !ok || u.Deleted() {
		return errNotFound("university not found")
	}
	u.DeletedAt = model.NullTime{Time: s.now().UTC(), Valid: true}
	return nil
}

func (s *store) restoreUniversity(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.universities[id]
	if !ok {
		return errNotFound("university not found")
	}
	if !u.Deleted() {
		return errConflict("university is not deleted")
	}
	u.DeletedAt = model.NullTime{}
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *store) university(id int64) (model.University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.universities[id]
	if !ok || u.Deleted() {
		return model.University{}, errNotFound("university not found")
	}
	return *u, nil
}

func (s *store) listUniversities(page, size int, showDeleted bool) ([]model.University, int64) {
	all := s.universitiesSorted(showDeleted)
	return paginate(all, page, size), int64(len(all))
}

func (s *store) allUniversities() []model.University {
	return s.universitiesSorted(false)
}

func (s *store) universitiesSorted(withDeleted bool) []model.University {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.University, 0, len(s.universities))
	for _, u := range s.universities {
		if u.Deleted() && !withDeleted {
			continue
		}
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b model.University) int { return compareID(a.ID, b.ID) })
	return out
}

// universityNameTakenLocked checks live and soft-deleted rows alike, so a
// deleted university blocks its name until it is restored.
func (s *store) universityNameTakenLocked(name string, excludeID int64) bool {
	for _, u := range s.universities {
		if u.ID != excludeID && strings.EqualFold(u.Name, name) {
			return true
		}
	}
	return false
}

func (s *store) userByEmailLocked(email string) *userRecord {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, rec := range s.users {
		if rec.Email == email {
			return rec
		}
	}
	return nil
}

func validateRoleStatus(role, status *int) error {
	if role != nil && *role != model.RoleAdmin && *role != model.RoleUser {
		return errParam("role must be 1 (admin) or 2 (user)")
	}
	if status != nil && *status != model.StatusActive && *status != model.StatusDisabled {
		return errParam("status must be 0 (disabled) or 1 (active)")
	}
	return nil
}

func paginate[T any](all []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(all) {
		return []T{}
	}
	end := min(start+size, len(all))
	return all[start:end]
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
