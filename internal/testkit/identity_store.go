// Package testkit provides in-memory adapters and fakes for tests and local runs.
package testkit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rubik/internal/errors"
	"rubik/models"
	"rubik/ports"
)

type memState struct {
	accounts      map[int64]models.Account
	profiles      map[int64]models.Profile // keyed by account id
	nextAccountID int64
	nextProfileID int64
}

func (s *memState) clone() *memState {
	c := &memState{
		accounts:      make(map[int64]models.Account, len(s.accounts)),
		profiles:      make(map[int64]models.Profile, len(s.profiles)),
		nextAccountID: s.nextAccountID,
		nextProfileID: s.nextProfileID,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	return c
}

type memDB struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state *memState
	now   func() time.Time

	profileErr error
}

// MemoryIdentityStore is an in-memory ports.IdentityStore. Transactions are serialized
// and work on a snapshot that replaces the live state on commit.
type MemoryIdentityStore struct {
	db *memDB
	tx *memState
}

// NewMemoryIdentityStore creates an empty store
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{db: &memDB{
		state: &memState{
			accounts: map[int64]models.Account{},
			profiles: map[int64]models.Profile{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}}
}

var _ ports.IdentityStore = (*MemoryIdentityStore)(nil)

func (m *MemoryIdentityStore) Accounts() ports.AccountRepository {
	return &memAccounts{store: m}
}

func (m *MemoryIdentityStore) Profiles() ports.ProfileRepository {
	return &memProfiles{store: m}
}

func (m *MemoryIdentityStore) InTx(ctx context.Context, fn func(tx ports.IdentityStore) error) error {
	if m.tx != nil {
		return fn(m)
	}

	m.db.txMu.Lock()
	defer m.db.txMu.Unlock()

	m.db.mu.Lock()
	snapshot := m.db.state.clone()
	m.db.mu.Unlock()

	if err := fn(&MemoryIdentityStore{db: m.db, tx: snapshot}); err != nil {
		return err
	}

	m.db.mu.Lock()
	m.db.state = snapshot
	m.db.mu.Unlock()
	return nil
}

// with runs fn against the state this view is bound to
func (m *MemoryIdentityStore) with(fn func(s *memState) error) error {
	if m.tx != nil {
		return fn(m.tx)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return fn(m.db.state)
}

// FailProfileWrites makes every profile Create/Ensure/Update return err until reset with nil
func (m *MemoryIdentityStore) FailProfileWrites(err error) {
	m.db.mu.Lock()
	m.db.profileErr = err
	m.db.mu.Unlock()
}

func (m *MemoryIdentityStore) profileErr() error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.profileErr
}

// DropProfile deletes an account's profile behind the application's back
func (m *MemoryIdentityStore) DropProfile(accountID int64) {
	_ = m.with(func(s *memState) error {
		delete(s.profiles, accountID)
		return nil
	})
}

// ProfileCount reports how many profiles belong to the account (0 or 1)
func (m *MemoryIdentityStore) ProfileCount(accountID int64) int {
	n := 0
	_ = m.with(func(s *memState) error {
		if _, ok := s.profiles[accountID]; ok {
			n = 1
		}
		return nil
	})
	return n
}

// AccountCount reports how many accounts are stored
func (m *MemoryIdentityStore) AccountCount() int {
	n := 0
	_ = m.with(func(s *memState) error {
		n = len(s.accounts)
		return nil
	})
	return n
}

type memAccounts struct {
	store *MemoryIdentityStore
}

func (r *memAccounts) Create(_ context.Context, account *models.Account) error {
	return r.store.with(func(s *memState) error {
		if err := checkUnique(s, account); err != nil {
			return err
		}
		s.nextAccountID++
		account.ID = s.nextAccountID
		if account.DateJoined.IsZero() {
			account.DateJoined = r.store.db.now()
		}
		s.accounts[account.ID] = *account
		return nil
	})
}

func (r *memAccounts) Update(_ context.Context, account *models.Account) error {
	return r.store.with(func(s *memState) error {
		current, ok := s.accounts[account.ID]
		if !ok {
			return errors.NotFound("account")
		}
		if err := checkUnique(s, account); err != nil {
			return err
		}
		account.DateJoined = current.DateJoined
		s.accounts[account.ID] = *account
		return nil
	})
}

func checkUnique(s *memState, account *models.Account) error {
	for id, other := range s.accounts {
		if id == account.ID {
			continue
		}
		if other.Username == account.Username {
			return errors.Conflict("username", nil)
		}
		if strings.EqualFold(other.Email, account.Email) {
			return errors.Conflict("email", nil)
		}
	}
	return nil
}

func (r *memAccounts) Delete(_ context.Context, id int64) error {
	return r.store.with(func(s *memState) error {
		if _, ok := s.accounts[id]; !ok {
			return errors.NotFound("account")
		}
		delete(s.accounts, id)
		delete(s.profiles, id)
		return nil
	})
}

func (r *memAccounts) GetByID(_ context.Context, id int64) (*models.Account, error) {
	var out *models.Account
	err := r.store.with(func(s *memState) error {
		a, ok := s.accounts[id]
		if !ok {
			return errors.NotFound("account")
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *memAccounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	var out *models.Account
	err := r.store.with(func(s *memState) error {
		for _, a := range s.accounts {
			if a.Username == username {
				a := a
				out = &a
				return nil
			}
		}
		return errors.NotFound("account")
	})
	return out, err
}

func (r *memAccounts) UsernameTaken(_ context.Context, username string, excludeID int64) (bool, error) {
	taken := false
	err := r.store.with(func(s *memState) error {
		for id, a := range s.accounts {
			if id != excludeID && a.Username == username {
				taken = true
			}
		}
		return nil
	})
	return taken, err
}

func (r *memAccounts) EmailTaken(_ context.Context, email string, excludeID int64) (bool, error) {
	taken := false
	err := r.store.with(func(s *memState) error {
		for id, a := range s.accounts {
			if id != excludeID && strings.EqualFold(a.Email, email) {
				taken = true
			}
		}
		return nil
	})
	return taken, err
}

func (r *memAccounts) ListPending(_ context.Context, query models.PendingQuery) ([]*models.Account, int, error) {
	var matched []*models.Account
	err := r.store.with(func(s *memState) error {
		needle := strings.ToLower(strings.TrimSpace(query.Filter))
		for _, a := range s.accounts {
			if a.IsActive {
				continue
			}
			if needle != "" &&
				!strings.Contains(strings.ToLower(a.Username), needle) &&
				!strings.Contains(strings.ToLower(a.Email), needle) {
				continue
			}
			a := a
			matched = append(matched, &a)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortPending(matched, models.ParsePendingSort(string(query.Sort)), query.Descending)

	total := len(matched)
	if query.Limit > 0 {
		start := query.Offset
		if start > total {
			start = total
		}
		end := start + query.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	if matched == nil {
		matched = []*models.Account{}
	}
	return matched, total, nil
}

func sortPending(accounts []*models.Account, column models.PendingSort, desc bool) {
	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := accounts[i], accounts[j]
		var cmp int
		switch column {
		case models.SortUsername:
			cmp = strings.Compare(a.Username, b.Username)
		case models.SortEmail:
			cmp = strings.Compare(a.Email, b.Email)
		default:
			cmp = a.DateJoined.Compare(b.DateJoined)
		}
		if cmp == 0 {
			cmp = compareIDs(a.ID, b.ID)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareIDs(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (r *memAccounts) PendingJoinTimes(_ context.Context) ([]time.Time, error) {
	times := []time.Time{}
	err := r.store.with(func(s *memState) error {
		for _, a := range s.accounts {
			if !a.IsActive {
				times = append(times, a.DateJoined)
			}
		}
		return nil
	})
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times, err
}

type memProfiles struct {
	store *MemoryIdentityStore
}

func (r *memProfiles) Create(_ context.Context, accountID int64) (*models.Profile, error) {
	if err := r.store.profileErr(); err != nil {
		return nil, err
	}
	var out *models.Profile
	err := r.store.with(func(s *memState) error {
		if _, ok := s.accounts[accountID]; !ok {
			return errors.NotFound("account")
		}
		if _, ok := s.profiles[accountID]; ok {
			return errors.Conflict("account_id", nil)
		}
		p := newProfile(s, accountID, r.store.db.now())
		out = &p
		return nil
	})
	return out, err
}

func (r *memProfiles) Ensure(_ context.Context, accountID int64) (*models.Profile, error) {
	if err := r.store.profileErr(); err != nil {
		return nil, err
	}
	var out *models.Profile
	err := r.store.with(func(s *memState) error {
		if p, ok := s.profiles[accountID]; ok {
			out = &p
			return nil
		}
		if _, ok := s.accounts[accountID]; !ok {
			return errors.NotFound("account")
		}
		p := newProfile(s, accountID, r.store.db.now())
		out = &p
		return nil
	})
	return out, err
}

func newProfile(s *memState, accountID int64, now time.Time) models.Profile {
	s.nextProfileID++
	p := models.Profile{ID: s.nextProfileID, AccountID: accountID, UpdatedAt: now}
	s.profiles[accountID] = p
	return p
}

func (r *memProfiles) GetByAccountID(_ context.Context, accountID int64) (*models.Profile, error) {
	var out *models.Profile
	err := r.store.with(func(s *memState) error {
		p, ok := s.profiles[accountID]
		if !ok {
			return errors.NotFound("profile")
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *memProfiles) Update(_ context.Context, profile *models.Profile) error {
	if err := r.store.profileErr(); err != nil {
		return err
	}
	return r.store.with(func(s *memState) error {
		current, ok := s.profiles[profile.AccountID]
		if !ok {
			return errors.NotFound("profile")
		}
		profile.ID = current.ID
		profile.UpdatedAt = r.store.db.now()
		s.profiles[profile.AccountID] = *profile
		return nil
	})
}
