package inmem

import (
	"context"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
)

type trialAuditRepository struct {
	db *DB
}

func NewTrialAuditRepository(db *DB) repositories.TrialAuditRepository {
	return &trialAuditRepository{db: db}
}

func (repo *trialAuditRepository) Record(_ context.Context, entry *models.TrialAudit) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	entry.ID = int64(len(repo.db.trialAudits) + 1)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = repo.db.Now()
	}
	repo.db.trialAudits = append(repo.db.trialAudits, *entry)
	return nil
}

func (repo *trialAuditRepository) CountByIP(_ context.Context, ip string, since time.Time) (int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	var n int64
	for _, a := range repo.db.trialAudits {
		if a.IPAddress == ip && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// TrialAudits returns a copy of every recorded entry
func (db *DB) TrialAudits() []models.TrialAudit {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return append([]models.TrialAudit{}, db.trialAudits...)
}

type webhookEventRepository struct {
	db *DB
}

func NewWebhookEventRepository(db *DB) repositories.WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (repo *webhookEventRepository) MarkProcessed(_ context.Context, eventID, eventType string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.webhookEvents[eventID]; ok {
		return false, nil
	}
	repo.db.webhookEvents[eventID] = models.WebhookEvent{EventID: eventID, EventType: eventType, ReceivedAt: repo.db.Now()}
	return true, nil
}

func (repo *webhookEventRepository) Forget(_ context.Context, eventID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.webhookEvents, eventID)
	return nil
}
