package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type messageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) repositories.MessageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) Create(_ context.Context, msg *models.Message) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	msg.CreatedAt = repo.db.Now()
	stored := *msg
	repo.db.messages[msg.ID] = &stored
	return nil
}

func newestMessages(items []models.Message) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.Hex() > items[j].ID.Hex()
	})
}

func (repo *messageRepository) ListConversation(_ context.Context, userID, partnerID ID, skip, limit int64) ([]models.Message, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	items := make([]models.Message, 0)
	for _, m := range repo.db.messages {
		if (m.Sender == userID && m.Recipient == partnerID) || (m.Sender == partnerID && m.Recipient == userID) {
			items = append(items, *m)
		}
	}
	newestMessages(items)
	return page(items, skip, limit), int64(len(items)), nil
}

func (repo *messageRepository) Conversations(_ context.Context, userID ID) ([]models.ConversationSummary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	all := make([]models.Message, 0)
	for _, m := range repo.db.messages {
		if m.Sender == userID || m.Recipient == userID {
			all = append(all, *m)
		}
	}
	newestMessages(all)

	byPartner := make(map[ID]int)
	out := make([]models.ConversationSummary, 0)
	for _, m := range all {
		partner := m.Sender
		if m.Sender == userID {
			partner = m.Recipient
		}
		idx, seen := byPartner[partner]
		if !seen {
			idx = len(out)
			byPartner[partner] = idx
			out = append(out, models.ConversationSummary{Partner: partner, LastMessage: m})
		}
		if m.Recipient == userID && !m.Read {
			out[idx].UnreadCount++
		}
	}
	return out, nil
}

func (repo *messageRepository) MarkRead(_ context.Context, recipientID, senderID ID, at time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int64
	for _, m := range repo.db.messages {
		if m.Recipient == recipientID && m.Sender == senderID && !m.Read {
			m.Read, m.ReadAt = true, timePtr(at)
			n++
		}
	}
	return n, nil
}

type notificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) repositories.NotificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) Create(_ context.Context, n *models.Notification) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.CreatedAt = repo.db.Now()
	stored := *n
	repo.db.notifications[n.ID] = &stored
	return nil
}

func (repo *notificationRepository) List(_ context.Context, recipientID ID, unreadOnly bool, skip, limit int64) ([]models.Notification, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	items := make([]models.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.Recipient == recipientID && (!unreadOnly || !n.Read) {
			items = append(items, *n)
		}
	}
	newest(items, func(n models.Notification) time.Time { return n.CreatedAt })
	return page(items, skip, limit), int64(len(items)), nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, recipientID, id ID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	n, ok := repo.db.notifications[id]
	if !ok || n.Recipient != recipientID {
		return notFound("MarkNotificationRead")
	}
	n.Read = true
	return nil
}

func (repo *notificationRepository) MarkAllRead(_ context.Context, recipientID ID) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var count int64
	for _, n := range repo.db.notifications {
		if n.Recipient == recipientID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, recipientID ID) (int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	var count int64
	for _, n := range repo.db.notifications {
		if n.Recipient == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}
