package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/niosh12/ddeducation/config"
	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/realtime"
	"github.com/niosh12/ddeducation/internal/repository"
	"github.com/niosh12/ddeducation/internal/workflow"
	pkgerrors "github.com/niosh12/ddeducation/pkg/errors"
	"github.com/niosh12/ddeducation/pkg/jwt"
	"github.com/niosh12/ddeducation/pkg/payment"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock RoleRepository ──

type mockRoleRepo struct {
	mu    sync.Mutex
	roles map[string]*model.RoleAssignment
	err   error // 非空时 Get 返回该错误
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[string]*model.RoleAssignment)}
}

func (m *mockRoleRepo) Get(_ context.Context, userID string) (*model.RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.roles[userID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepo) Upsert(_ context.Context, role *model.RoleAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	role.UpdatedAt = time.Now()
	cp := *role
	m.roles[role.UserID] = &cp
	return nil
}

// ── Mock SubmissionRepository ──

type mockSubmissionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Submission
	seq  int // 保证 created_at 严格递增
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{subs: make(map[string]*model.Submission)}
}

func (m *mockSubmissionRepo) Create(_ context.Context, sub *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.UserID]; ok {
		return gorm.ErrDuplicatedKey
	}
	m.seq++
	sub.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	sub.UpdatedAt = sub.CreatedAt
	if sub.Version == 0 {
		sub.Version = 1
	}
	cp := *sub
	m.subs[sub.UserID] = &cp
	return nil
}

func (m *mockSubmissionRepo) GetByUserID(_ context.Context, userID string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[userID]; ok {
		cp := *s
		cp.Subjects = append(model.StringArray(nil), s.Subjects...)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	var result []model.Submission
	for _, s := range m.subs {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(s.FullName), q) &&
			!strings.Contains(strings.ToLower(s.EnrollmentNumber), q) &&
			!strings.Contains(strings.ToLower(s.Email), q) {
			continue
		}
		cp := *s
		cp.PaymentImage = ""
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockSubmissionRepo) UpdateFields(_ context.Context, userID string, fields map[string]interface{}, expectedVersion *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if expectedVersion != nil && *expectedVersion != s.Version {
		return pkgerrors.ErrOptimisticLock
	}
	for col, v := range fields {
		if err := setColumn(s, col, v); err != nil {
			return err
		}
	}
	s.Version++
	s.UpdatedAt = time.Now()
	return nil
}

func setColumn(s *model.Submission, col string, v interface{}) error {
	if col == model.ColStatus {
		s.Status = v.(workflow.Status)
		return nil
	}
	if col == model.ColSubjects {
		s.Subjects = append(model.StringArray(nil), v.(model.StringArray)...)
		return nil
	}
	str, ok := v.(string)
	if !ok {
		return fmt.Errorf("列 %s 类型错误", col)
	}
	switch col {
	case model.ColFullName:
		s.FullName = str
	case model.ColEnrollmentNumber:
		s.EnrollmentNumber = str
	case model.ColDOB:
		s.DOB = str
	case model.ColSession:
		s.Session = str
	case model.ColPaymentRef:
		s.PaymentRef = str
	case model.ColPaymentImage:
		s.PaymentImage = str
	case model.ColComments:
		s.Comments = str
	case model.ColAdminReply:
		s.AdminReply = str
	case model.ColAdminProofLink:
		s.AdminProofLink = str
	case model.ColPaymentOrderID:
		s.PaymentOrderID = str
	case model.ColPaymentSignature:
		s.PaymentSignature = str
	default:
		return fmt.Errorf("未知列 %s", col)
	}
	return nil
}

// ── Mock StatusLogRepository ──

type mockStatusLogRepo struct {
	mu   sync.Mutex
	logs []model.SubmissionStatusLog
}

func newMockStatusLogRepo() *mockStatusLogRepo {
	return &mockStatusLogRepo{}
}

func (m *mockStatusLogRepo) Create(_ context.Context, log *model.SubmissionStatusLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.LogID = fmt.Sprintf("log-%d", len(m.logs)+1)
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockStatusLogRepo) ListByUser(_ context.Context, userID string) ([]model.SubmissionStatusLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SubmissionStatusLog
	for _, l := range m.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

// ── Mock PriceRepository ──

type mockPriceRepo struct {
	mu  sync.Mutex
	cfg *model.PriceConfig
}

func newMockPriceRepo() *mockPriceRepo {
	return &mockPriceRepo{}
}

func (m *mockPriceRepo) Get(_ context.Context) (*model.PriceConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.cfg
	return &cp, nil
}

func (m *mockPriceRepo) Save(_ context.Context, cfg *model.PriceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.Singleton = true
	cfg.UpdatedAt = time.Now()
	cp := *cfg
	m.cfg = &cp
	return nil
}

// ── Mock 外部依赖 ──

type mockBlacklist struct {
	mu   sync.Mutex
	jtis map[string]bool
	err  error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{jtis: make(map[string]bool)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.jtis[jti] = true
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jtis[jti], nil
}

const testPaymentSecret = "test-key-secret"

type mockGateway struct {
	mu        sync.Mutex
	seq       int
	createErr error
	amounts   []int64
}

func (m *mockGateway) CreateOrder(_ context.Context, amount int64, receipt string, _ map[string]string) (*payment.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.seq++
	m.amounts = append(m.amounts, amount)
	return &payment.Order{
		ID:       fmt.Sprintf("order_%d", m.seq),
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (m *mockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.Sign(testPaymentSecret, orderID, paymentID) == signature
}

func (m *mockGateway) KeyID() string    { return "rzp_test_key" }
func (m *mockGateway) Currency() string { return "INR" }

type mockEvents struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (m *mockEvents) PublishMessage(_ context.Context, _, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, value)
	return nil
}

func (m *mockEvents) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

type mockUploader struct {
	url string
	err error
	got []byte
}

func (m *mockUploader) UploadImage(_ context.Context, publicID string, b []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.got = b
	return m.url + publicID, nil
}

var errMockDB = errors.New("mock db error")

// ── 测试环境 ──

const testAdminEmail = "owner@ddeducation.in"

type testEnv struct {
	repo      *repository.Repository
	users     *mockUserRepo
	roles     *mockRoleRepo
	subs      *mockSubmissionRepo
	logs      *mockStatusLogRepo
	prices    *mockPriceRepo
	hub       *realtime.Hub
	gateway   *mockGateway
	events    *mockEvents
	blacklist *mockBlacklist
	jwtMgr    *jwt.Manager
	cfg       *config.Config
	svc       *Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:     newMockUserRepo(),
		roles:     newMockRoleRepo(),
		subs:      newMockSubmissionRepo(),
		logs:      newMockStatusLogRepo(),
		prices:    newMockPriceRepo(),
		gateway:   &mockGateway{},
		events:    &mockEvents{},
		blacklist: newMockBlacklist(),
	}
	env.repo = &repository.Repository{
		User:       env.users,
		Role:       env.roles,
		Submission: env.subs,
		StatusLog:  env.logs,
		Price:      env.prices,
	}
	env.cfg = &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-tests",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
			BootstrapAdmins: []string{testAdminEmail},
		},
		Payment:    config.PaymentConfig{Currency: "INR"},
		Upload:     config.UploadConfig{MaxImageBytes: 2 << 20},
		Submission: config.SubmissionConfig{Sessions: []string{"April 2026", "October 2026"}, DefaultPrice: 1499},
	}
	env.jwtMgr = jwt.NewManager(&env.cfg.Auth)
	env.hub = realtime.NewHub(nil, zap.NewNop())
	env.svc = NewService(env.cfg, env.repo, env.hub, env.jwtMgr, Deps{
		Blacklist: env.blacklist,
		Gateway:   env.gateway,
		Events:    env.events,
	}, zap.NewNop())
	return env
}
