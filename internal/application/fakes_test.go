package application

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/domain/repository"
	"github.com/launchbase/launchbase/pkg/mailer"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*entity.User // by id
	createErr error

	updatedHash  map[string]string
	verifiedIDs  []string
	deleteCutoff time.Time
	deleteCount  int64
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*entity.User{}, updatedHash: map[string]string{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	// The store owns IDs, same as the database RETURNING clause.
	if u.ID == "" {
		u.ID = "u" + strconv.Itoa(len(r.users)+1)
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	r.updatedHash[id] = hash
	return nil
}

func (r *fakeUserRepo) MarkVerified(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !u.EmailVerified {
		now := time.Now().UTC()
		u.EmailVerified = true
		u.EmailVerifiedAt = &now
		r.verifiedIDs = append(r.verifiedIDs, id)
	}
	return nil
}

func (r *fakeUserRepo) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.StripeCustomerID = customerID
	return nil
}

func (r *fakeUserRepo) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCutoff = cutoff
	if r.deleteCount > 0 {
		return r.deleteCount, nil
	}
	var n int64
	for id, u := range r.users {
		if !u.EmailVerified && u.CreatedAt.Before(cutoff) {
			delete(r.users, id)
			n++
		}
	}
	return n, nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

type fakeTokenRepo struct {
	mu      sync.Mutex
	created []*entity.Token
	// errors returned by the next Create calls, consumed in order
	createErrs []error

	verifyUserID string
	verifyErr    error
	resetUserID  string
	resetErr     error
	resetHash    string

	deadDeleted int64
}

func (r *fakeTokenRepo) Create(ctx context.Context, t *entity.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	t.ID = int64(len(r.created) + 1)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.created = append(r.created, t)
	return nil
}

func (r *fakeTokenRepo) ConsumeForVerification(ctx context.Context, value string) (string, error) {
	if r.verifyErr != nil {
		return "", r.verifyErr
	}
	return r.verifyUserID, nil
}

func (r *fakeTokenRepo) ConsumeForPasswordReset(ctx context.Context, value, passwordHash string) (string, error) {
	if r.resetErr != nil {
		return "", r.resetErr
	}
	r.mu.Lock()
	r.resetHash = passwordHash
	r.mu.Unlock()
	return r.resetUserID, nil
}

func (r *fakeTokenRepo) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	return r.deadDeleted, nil
}

var _ repository.TokenRepository = (*fakeTokenRepo)(nil)

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []mailer.DeliveryJob
	err  error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, job mailer.DeliveryJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type sentMail struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (s *fakeSender) Send(ctx context.Context, to, subject, text, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{To: to, Subject: subject, Text: text, HTML: html})
	return nil
}
