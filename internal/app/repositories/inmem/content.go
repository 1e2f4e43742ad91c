package inmem

import (
	"context"
	"sort"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type postRepository struct {
	db *DB
}

func NewPostRepository(db *DB) repositories.PostRepository {
	return &postRepository{db: db}
}

func clonePost(p *models.Post) *models.Post {
	out := *p
	out.Likes = cloneIDs(p.Likes)
	return &out
}

func (repo *postRepository) Create(_ context.Context, p *models.Post) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	now := repo.db.Now()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Likes == nil {
		p.Likes = []ID{}
	}
	repo.db.posts[p.ID] = clonePost(p)
	return nil
}

func (repo *postRepository) GetByID(_ context.Context, id ID) (*models.Post, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if p, ok := repo.db.posts[id]; ok {
		return clonePost(p), nil
	}
	return nil, notFound("GetPostByID")
}

func (repo *postRepository) ListByCommunity(_ context.Context, communityID ID, skip, limit int64) ([]models.Post, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	items := make([]models.Post, 0)
	for _, p := range repo.db.posts {
		if p.Community == communityID {
			items = append(items, *clonePost(p))
		}
	}
	// pinned first, then newest
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsPinned != items[j].IsPinned {
			return items[i].IsPinned
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return page(items, skip, limit), int64(len(items)), nil
}

func (repo *postRepository) mutate(op string, id ID, fn func(*models.Post)) (*models.Post, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	p, ok := repo.db.posts[id]
	if !ok {
		return nil, notFound(op)
	}
	fn(p)
	return clonePost(p), nil
}

func (repo *postRepository) Update(_ context.Context, id ID, title, content string) error {
	_, err := repo.mutate("UpdatePost", id, func(p *models.Post) {
		p.Title, p.Content, p.UpdatedAt = title, content, repo.db.Now()
	})
	return err
}

func (repo *postRepository) Delete(_ context.Context, id ID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.posts[id]; !ok {
		return notFound("DeletePost")
	}
	delete(repo.db.posts, id)
	return nil
}

func (repo *postRepository) DeleteByCommunity(_ context.Context, communityID ID) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int64
	for id, p := range repo.db.posts {
		if p.Community == communityID {
			delete(repo.db.posts, id)
			n++
		}
	}
	return n, nil
}

func (repo *postRepository) AddLike(_ context.Context, id, userID ID) (*models.Post, error) {
	return repo.mutate("LikePost", id, func(p *models.Post) { p.Likes, _ = models.AddID(p.Likes, userID) })
}

func (repo *postRepository) RemoveLike(_ context.Context, id, userID ID) (*models.Post, error) {
	return repo.mutate("UnlikePost", id, func(p *models.Post) { p.Likes, _ = models.RemoveID(p.Likes, userID) })
}

func (repo *postRepository) SetPinned(_ context.Context, id ID, pinned bool) error {
	_, err := repo.mutate("PinPost", id, func(p *models.Post) { p.IsPinned = pinned })
	return err
}

func (repo *postRepository) IncrementCommentCount(_ context.Context, id ID, delta int) error {
	_, err := repo.mutate("IncrementCommentCount", id, func(p *models.Post) {
		p.CommentCount += delta
		if p.CommentCount < 0 {
			p.CommentCount = 0
		}
	})
	return err
}

type commentRepository struct {
	db *DB
}

func NewCommentRepository(db *DB) repositories.CommentRepository {
	return &commentRepository{db: db}
}

func cloneComment(c *models.Comment) *models.Comment {
	out := *c
	out.Likes = cloneIDs(c.Likes)
	return &out
}

func (repo *commentRepository) Create(_ context.Context, c *models.Comment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	now := repo.db.Now()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Likes == nil {
		c.Likes = []ID{}
	}
	repo.db.comments[c.ID] = cloneComment(c)
	return nil
}

func (repo *commentRepository) GetByID(_ context.Context, id ID) (*models.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if c, ok := repo.db.comments[id]; ok {
		return cloneComment(c), nil
	}
	return nil, notFound("GetCommentByID")
}

func (repo *commentRepository) ListByPost(_ context.Context, postID ID) ([]models.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	items := make([]models.Comment, 0)
	for _, c := range repo.db.comments {
		if c.Post == postID {
			items = append(items, *cloneComment(c))
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.Hex() < items[j].ID.Hex()
	})
	return items, nil
}

func (repo *commentRepository) DeleteMany(_ context.Context, ids []ID) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := repo.db.comments[id]; ok {
			delete(repo.db.comments, id)
			n++
		}
	}
	return n, nil
}

func (repo *commentRepository) DeleteByPost(_ context.Context, postID ID) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int64
	for id, c := range repo.db.comments {
		if c.Post == postID {
			delete(repo.db.comments, id)
			n++
		}
	}
	return n, nil
}

func (repo *commentRepository) like(op string, id ID, fn func([]ID) []ID) (*models.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	c, ok := repo.db.comments[id]
	if !ok {
		return nil, notFound(op)
	}
	c.Likes = fn(c.Likes)
	c.UpdatedAt = repo.db.Now()
	return cloneComment(c), nil
}

func (repo *commentRepository) AddLike(_ context.Context, id, userID ID) (*models.Comment, error) {
	return repo.like("LikeComment", id, func(ids []ID) []ID {
		out, _ := models.AddID(ids, userID)
		return out
	})
}

func (repo *commentRepository) RemoveLike(_ context.Context, id, userID ID) (*models.Comment, error) {
	return repo.like("UnlikeComment", id, func(ids []ID) []ID {
		out, _ := models.RemoveID(ids, userID)
		return out
	})
}

