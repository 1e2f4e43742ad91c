package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type transactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) repositories.TransactionRepository {
	return &transactionRepository{db: db}
}

func (repo *transactionRepository) Create(_ context.Context, tx *models.Transaction) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	now := repo.db.Now()
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	tx.CreatedAt, tx.UpdatedAt = now, now
	if tx.Status == "" {
		tx.Status = models.TransactionCreated
	}
	stored := *tx
	repo.db.transactions[tx.ID] = &stored
	return nil
}

func (repo *transactionRepository) find(op string, match func(*models.Transaction) bool) (*models.Transaction, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, tx := range repo.db.transactions {
		if match(tx) {
			out := *tx
			return &out, nil
		}
	}
	return nil, notFound(op)
}

func (repo *transactionRepository) GetByID(_ context.Context, id ID) (*models.Transaction, error) {
	return repo.find("GetTransactionByID", func(tx *models.Transaction) bool { return tx.ID == id })
}

func (repo *transactionRepository) GetBySessionID(_ context.Context, sessionID string) (*models.Transaction, error) {
	return repo.find("GetTransactionBySession", func(tx *models.Transaction) bool {
		return sessionID != "" && tx.GatewaySessionID == sessionID
	})
}

func (repo *transactionRepository) GetByPaymentID(_ context.Context, paymentID string) (*models.Transaction, error) {
	return repo.find("GetTransactionByPayment", func(tx *models.Transaction) bool {
		return paymentID != "" && tx.GatewayPaymentID == paymentID
	})
}

func (repo *transactionRepository) SetSessionID(_ context.Context, id ID, sessionID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	tx, ok := repo.db.transactions[id]
	if !ok {
		return notFound("SetTransactionSession")
	}
	tx.GatewaySessionID, tx.UpdatedAt = sessionID, repo.db.Now()
	return nil
}

func (repo *transactionRepository) Transition(_ context.Context, id ID, status models.TransactionStatus, update repositories.TransactionUpdate) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	tx, ok := repo.db.transactions[id]
	if !ok || !models.CanTransition(tx.Status, status) {
		return false, nil
	}
	tx.Status = status
	if update.GatewayPaymentID != "" {
		tx.GatewayPaymentID = update.GatewayPaymentID
	}
	if update.FailureReason != "" {
		tx.FailureReason = update.FailureReason
	}
	tx.UpdatedAt = repo.db.Now()
	return true, nil
}

func (repo *transactionRepository) ListByUser(_ context.Context, userID ID, skip, limit int64) ([]models.Transaction, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	items := make([]models.Transaction, 0)
	for _, tx := range repo.db.transactions {
		if tx.User == userID {
			items = append(items, *tx)
		}
	}
	newest(items, func(tx models.Transaction) time.Time { return tx.CreatedAt })
	return page(items, skip, limit), int64(len(items)), nil
}

type planRepository struct {
	db *DB
}

func NewPlanRepository(db *DB) repositories.PlanRepository {
	return &planRepository{db: db}
}

func (repo *planRepository) Upsert(_ context.Context, plan *models.PaymentPlan) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	now := repo.db.Now()
	stored := *plan
	if existing, ok := repo.db.plans[plan.Code]; ok {
		stored.ID, stored.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		stored.ID, stored.CreatedAt = primitive.NewObjectID(), now
	}
	stored.UpdatedAt = now
	repo.db.plans[plan.Code] = &stored
	*plan = stored
	return nil
}

func (repo *planRepository) GetByCode(_ context.Context, code string) (*models.PaymentPlan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if p, ok := repo.db.plans[code]; ok {
		out := *p
		return &out, nil
	}
	return nil, notFound("GetPlanByCode")
}

func (repo *planRepository) ListActive(_ context.Context) ([]models.PaymentPlan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	out := make([]models.PaymentPlan, 0)
	for _, p := range repo.db.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out, nil
}

type subscriptionRepository struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) repositories.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (repo *subscriptionRepository) byGatewayID(gatewayID string) *models.CommunitySubscription {
	for _, s := range repo.db.subscriptions {
		if s.GatewaySubscriptionID == gatewayID {
			return s
		}
	}
	return nil
}

func (repo *subscriptionRepository) Upsert(_ context.Context, sub *models.CommunitySubscription) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	now := repo.db.Now()
	stored := repo.byGatewayID(sub.GatewaySubscriptionID)
	if stored == nil {
		stored = &models.CommunitySubscription{
			ID:                    primitive.NewObjectID(),
			GatewaySubscriptionID: sub.GatewaySubscriptionID,
			CreatedAt:             now,
		}
		repo.db.subscriptions[stored.ID] = stored
	}
	stored.Community, stored.User = sub.Community, sub.User
	stored.PlanCode, stored.Purpose, stored.Status = sub.PlanCode, sub.Purpose, sub.Status
	if sub.CurrentPeriodEnd != nil {
		stored.CurrentPeriodEnd = timePtr(*sub.CurrentPeriodEnd)
	}
	stored.UpdatedAt = now
	*sub = *stored
	return nil
}

func (repo *subscriptionRepository) GetByID(_ context.Context, id ID) (*models.CommunitySubscription, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if s, ok := repo.db.subscriptions[id]; ok {
		out := *s
		return &out, nil
	}
	return nil, notFound("GetSubscriptionByID")
}

func (repo *subscriptionRepository) GetByGatewayID(_ context.Context, gatewayID string) (*models.CommunitySubscription, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if s := repo.byGatewayID(gatewayID); s != nil {
		out := *s
		return &out, nil
	}
	return nil, notFound("GetSubscriptionByGatewayID")
}

func (repo *subscriptionRepository) FindLatest(_ context.Context, userID, communityID ID, purpose models.PaymentPurpose) (*models.CommunitySubscription, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	var latest *models.CommunitySubscription
	for _, s := range repo.db.subscriptions {
		if s.User != userID || s.Community != communityID || s.Purpose != purpose {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, notFound("FindLatestSubscription")
	}
	out := *latest
	return &out, nil
}

func (repo *subscriptionRepository) ListByUser(_ context.Context, userID ID) ([]models.CommunitySubscription, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	out := make([]models.CommunitySubscription, 0)
	for _, s := range repo.db.subscriptions {
		if s.User == userID {
			out = append(out, *s)
		}
	}
	newest(out, func(s models.CommunitySubscription) time.Time { return s.CreatedAt })
	return out, nil
}

func (repo *subscriptionRepository) SetStatus(_ context.Context, id ID, status models.CommunitySubscriptionStatus, cancelledAt *time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	s, ok := repo.db.subscriptions[id]
	if !ok {
		return notFound("SetSubscriptionStatus")
	}
	s.Status = status
	if cancelledAt != nil {
		s.CancelledAt = timePtr(*cancelledAt)
	}
	s.UpdatedAt = repo.db.Now()
	return nil
}

func (repo *subscriptionRepository) ExtendPeriod(_ context.Context, gatewayID string, periodEnd time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	s := repo.byGatewayID(gatewayID)
	if s == nil {
		return notFound("ExtendSubscriptionPeriod")
	}
	s.CurrentPeriodEnd, s.UpdatedAt = timePtr(periodEnd), repo.db.Now()
	return nil
}

func (repo *subscriptionRepository) ExpireLapsed(_ context.Context, now time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int64
	for _, s := range repo.db.subscriptions {
		lapsing := s.Status == models.CommunitySubscriptionActive || s.Status == models.CommunitySubscriptionCancelled
		if lapsing && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(now) {
			s.Status, s.UpdatedAt = models.CommunitySubscriptionExpired, now
			n++
		}
	}
	return n, nil
}
