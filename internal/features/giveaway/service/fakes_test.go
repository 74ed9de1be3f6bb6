package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"giveaway-draw-backend/internal/common/cache"
	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"
	redisrepo "giveaway-draw-backend/internal/features/giveaway/repository/redis"
	platformredis "giveaway-draw-backend/internal/platform/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the Postgres tables.
type memStore struct {
	mu           sync.Mutex
	giveaways    map[string]*models.Giveaway
	participants map[string]map[int64]*models.Participant
	joinOrder    map[string][]int64
	pending      map[string]models.PendingReferral
	grants       map[string]models.BonusGrant
	winners      map[string][]models.Winner
}

func newMemStore() *memStore {
	return &memStore{
		giveaways:    make(map[string]*models.Giveaway),
		participants: make(map[string]map[int64]*models.Participant),
		joinOrder:    make(map[string][]int64),
		pending:      make(map[string]models.PendingReferral),
		grants:       make(map[string]models.BonusGrant),
		winners:      make(map[string][]models.Winner),
	}
}

func pairKey(giveawayID string, userID int64) string {
	return fmt.Sprintf("%s:%d", giveawayID, userID)
}

func (m *memStore) addGiveaway(g *models.Giveaway) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.giveaways[g.ID] = &cp
}

// addParticipant seeds a row directly, bypassing registration.
func (m *memStore) addParticipant(p models.Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.participants[p.GiveawayID] == nil {
		m.participants[p.GiveawayID] = make(map[int64]*models.Participant)
	}
	m.participants[p.GiveawayID][p.UserID] = &p
	m.joinOrder[p.GiveawayID] = append(m.joinOrder[p.GiveawayID], p.UserID)
}

func (m *memStore) participant(giveawayID string, userID int64) (models.Participant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[giveawayID][userID]
	if !ok {
		return models.Participant{}, false
	}
	return *p, true
}

func (m *memStore) participantCount(giveawayID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[giveawayID])
}

func (m *memStore) grantCount(giveawayID string, userID int64, category models.BonusCategory) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, g := range m.grants {
		if g.GiveawayID == giveawayID && g.UserID == userID && g.Category == category {
			n++
		}
	}
	return n
}

func (m *memStore) status(giveawayID string) models.GiveawayStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.giveaways[giveawayID].Status
}

type memTx struct {
	store *memStore
	ops   []func()
	done  bool
}

func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, op := range t.ops {
		op()
	}
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

type memGiveaways struct{ *memStore }

func (r memGiveaways) BeginTx(ctx context.Context) (repository.Transaction, error) {
	return &memTx{store: r.memStore}, nil
}

func (r memGiveaways) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	cp := *g
	return &cp, nil
}

func (r memGiveaways) GetByIDWithLock(ctx context.Context, tx repository.Transaction, id string) (*models.Giveaway, error) {
	return r.GetByID(ctx, id)
}

func (r memGiveaways) GetEndedActive(ctx context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, g := range r.giveaways {
		if g.Status == models.GiveawayStatusActive && g.HasEnded(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r memGiveaways) UpdateStatusTx(ctx context.Context, tx repository.Transaction, id string, status models.GiveawayStatus) error {
	t := tx.(*memTx)
	t.ops = append(t.ops, func() { r.giveaways[id].Status = status })
	return nil
}

type memParticipants struct {
	*memStore
	// failCreate, when set, is returned by the next Create call.
	failCreate error
	takenOnce  bool
}

func (r *memParticipants) Get(ctx context.Context, giveawayID string, userID int64) (*models.Participant, error) {
	p, ok := r.participant(giveawayID, userID)
	if !ok {
		return nil, repository.ErrParticipantNotFound
	}
	return &p, nil
}

func (r *memParticipants) TicketCodeExists(ctx context.Context, giveawayID, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants[giveawayID] {
		if p.TicketCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memParticipants) Create(ctx context.Context, p *models.Participant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		err := r.failCreate
		r.failCreate = nil
		return false, err
	}
	if r.takenOnce {
		r.takenOnce = false
		return false, repository.ErrTicketCodeTaken
	}

	rows := r.participants[p.GiveawayID]
	if rows == nil {
		rows = make(map[int64]*models.Participant)
		r.participants[p.GiveawayID] = rows
	}
	if _, exists := rows[p.UserID]; exists {
		return false, nil
	}
	for _, other := range rows {
		if other.TicketCode == p.TicketCode {
			return false, repository.ErrTicketCodeTaken
		}
	}

	cp := *p
	rows[p.UserID] = &cp
	r.joinOrder[p.GiveawayID] = append(r.joinOrder[p.GiveawayID], p.UserID)
	if p.ReferrerID != nil {
		if referrer, ok := rows[*p.ReferrerID]; ok {
			referrer.TicketsCount++
		}
	}
	return true, nil
}

func (r *memParticipants) GetPoolTx(ctx context.Context, tx repository.Transaction, giveawayID string) ([]models.PoolEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pool []models.PoolEntry
	for _, userID := range r.joinOrder[giveawayID] {
		pool = append(pool, models.PoolEntry{UserID: userID, Tickets: r.participants[giveawayID][userID].TicketsCount})
	}
	return pool, nil
}

type memReferrals struct{ *memStore }

func (r memReferrals) Upsert(ctx context.Context, ref *models.PendingReferral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[pairKey(ref.GiveawayID, ref.UserID)] = *ref
	return nil
}

func (r memReferrals) Take(ctx context.Context, giveawayID string, userID int64) (*models.PendingReferral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(giveawayID, userID)
	ref, ok := r.pending[key]
	if !ok {
		return nil, repository.ErrPendingReferralNotFound
	}
	delete(r.pending, key)
	return &ref, nil
}

func (r memReferrals) DeleteForInactiveGiveaways(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key, ref := range r.pending {
		if g, ok := r.giveaways[ref.GiveawayID]; ok && g.Status != models.GiveawayStatusActive {
			delete(r.pending, key)
			n++
		}
	}
	return n, nil
}

type memBonuses struct{ *memStore }

func grantKey(giveawayID string, userID int64, category models.BonusCategory) string {
	return fmt.Sprintf("%s:%d:%s", giveawayID, userID, category)
}

func (r memBonuses) Exists(ctx context.Context, giveawayID string, userID int64, category models.BonusCategory) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.grants[grantKey(giveawayID, userID, category)]
	return ok, nil
}

func (r memBonuses) Create(ctx context.Context, grant *models.BonusGrant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[grant.GiveawayID][grant.UserID]
	if !ok {
		return false, nil
	}
	key := grantKey(grant.GiveawayID, grant.UserID, grant.Category)
	if _, exists := r.grants[key]; exists {
		return false, nil
	}
	r.grants[key] = *grant
	p.TicketsCount++
	return true, nil
}

type memWinners struct{ *memStore }

func (r memWinners) CreateTx(ctx context.Context, tx repository.Transaction, winners []models.Winner) error {
	t := tx.(*memTx)
	t.ops = append(t.ops, func() {
		for _, w := range winners {
			r.winners[w.GiveawayID] = append(r.winners[w.GiveawayID], w)
		}
	})
	return nil
}

func (r memWinners) GetByGiveaway(ctx context.Context, giveawayID string) ([]models.Winner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Winner(nil), r.winners[giveawayID]...), nil
}

// fakeSubscriptions treats every user as subscribed unless listed in missing.
type fakeSubscriptions struct {
	mu      sync.Mutex
	missing map[int64]map[int64]bool
	err     error
}

func (f *fakeSubscriptions) unsubscribe(channelID, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing == nil {
		f.missing = make(map[int64]map[int64]bool)
	}
	if f.missing[channelID] == nil {
		f.missing[channelID] = make(map[int64]bool)
	}
	f.missing[channelID][userID] = true
}

func (f *fakeSubscriptions) subscribe(channelID, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.missing[channelID], userID)
}

func (f *fakeSubscriptions) IsSubscribed(ctx context.Context, channelID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return !f.missing[channelID][userID], nil
}

type sentMessage struct {
	UserID  int64
	Message string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeNotifier) Notify(ctx context.Context, userID int64, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{UserID: userID, Message: message})
	return nil
}

func (f *fakeNotifier) recipients() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.UserID)
	}
	return out
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Message)
	}
	return out
}

// testEnv wires the services against in-memory tables and miniredis.
type testEnv struct {
	store         *memStore
	participants  *memParticipants
	redis         *miniredis.Miniredis
	redisClient   platformredis.RedisClient
	locker        repository.Locker
	links         repository.ReferralLinkRepository
	captcha       repository.CaptchaRepository
	subscriptions *fakeSubscriptions
	notifier      *fakeNotifier
	settings      ParticipationSettings
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := platformredis.NewRedisClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })

	store := newMemStore()
	return &testEnv{
		store:         store,
		participants:  &memParticipants{memStore: store},
		redis:         mr,
		redisClient:   client,
		locker:        redisrepo.NewLockRepository(client),
		links:         redisrepo.NewReferralLinkRepository(cache.NewCacheService(client)),
		captcha:       redisrepo.NewCaptchaRepository(client),
		subscriptions: &fakeSubscriptions{},
		notifier:      &fakeNotifier{},
		settings: ParticipationSettings{
			LockWait:        2 * time.Second,
			LockTTL:         5 * time.Second,
			CaptchaTTL:      time.Minute,
			ReferralLinkTTL: time.Hour,
		},
	}
}

func (e *testEnv) referralLedger() *ReferralLedger {
	return NewReferralLedger(memReferrals{e.store}, e.participants, e.links, e.settings.ReferralLinkTTL, zerolog.Nop())
}

func (e *testEnv) joinService() *JoinService {
	return NewJoinService(
		memGiveaways{e.store},
		e.participants,
		e.captcha,
		e.locker,
		e.referralLedger(),
		NewTicketCodeGenerator(e.participants),
		e.subscriptions,
		e.notifier,
		e.settings,
		zerolog.Nop(),
	)
}

func (e *testEnv) bonusLedger() *BonusLedger {
	return NewBonusLedger(memGiveaways{e.store}, e.participants, memBonuses{e.store}, e.locker, e.settings, zerolog.Nop())
}

func (e *testEnv) completionService() *CompletionService {
	return NewCompletionService(
		memGiveaways{e.store},
		e.participants,
		memWinners{e.store},
		memReferrals{e.store},
		e.locker,
		NewWinnerSelector(),
		e.notifier,
		DrawSettings{Schedule: "@every 1h", CleanupSchedule: "@every 1h"},
		zerolog.Nop(),
	)
}

func (e *testEnv) issueLink(t *testing.T, userID int64) string {
	t.Helper()
	token, err := e.referralLedger().IssueLink(context.Background(), userID)
	require.NoError(t, err)
	return token
}

func activeGiveaway(id string, creatorID int64) *models.Giveaway {
	now := time.Now()
	return &models.Giveaway{
		ID:           id,
		CreatorID:    creatorID,
		Title:        "Test giveaway",
		WinnersCount: 1,
		EndsAt:       now.Add(time.Hour),
		Status:       models.GiveawayStatusActive,
		Weighted:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
