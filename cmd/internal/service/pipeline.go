package service

import (
	"context"
	"errors"
	"fmt"

	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/infrastructure/aws/storage"
	"circlenotes/cmd/internal/infrastructure/search"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/uid"

	"github.com/labstack/gommon/log"
)

// Stores a pipeline write can fail in.
const (
	StoreBlob   = "blob"
	StoreSearch = "search"
)

const bodyContentType = "text/markdown; charset=utf-8"

var (
	ErrItemNotFound = errors.New("item not found")
	ErrNoDraft      = errors.New("item has no draft")
	ErrBodyMissing  = errors.New("item body is missing")
	ErrItemIsLive   = errors.New("item is still live")

	errUnconfirmedUpsert = errors.New("index did not confirm the upsert")
)

// DependencyWriteError reports a blob or index write that failed midway
// through a pipeline operation. Compensation already ran when it is returned.
type DependencyWriteError struct {
	Store  string
	Op     string
	ItemID int64
	Err    error
}

func (e *DependencyWriteError) Error() string {
	return fmt.Sprintf("%s %s failed for item %d: %v", e.Store, e.Op, e.ItemID, e.Err)
}

func (e *DependencyWriteError) Unwrap() error {
	return e.Err
}

type PipelineRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Item, error)
	Create(ctx context.Context, item *entity.Item) error
	Save(ctx context.Context, item *entity.Item) error
	Delete(ctx context.Context, item *entity.Item) error
}

type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ItemPipeline writes items across the metadata store, the blob store and
// the search index. Every operation runs its metadata change in one
// transaction that only commits once the blob and index writes succeeded.
// Compensation is best effort: a failed compensating delete is logged and
// leaves an inert blob behind.
type ItemPipeline struct {
	items PipelineRepository
	tx    Transactor
	blobs storage.BlobStore
	index search.Index
}

func NewItemPipeline(items PipelineRepository, tx Transactor, blobs storage.BlobStore, index search.Index) *ItemPipeline {
	return &ItemPipeline{
		items: items,
		tx:    tx,
		blobs: blobs,
		index: index,
	}
}

// Create stores a new published item. The caller fills identity, owner,
// container, metadata and the initial status.
func (p *ItemPipeline) Create(ctx context.Context, item *entity.Item, body string) error {
	ref := uid.NewRef()
	now := utils.NowUTC()

	item.Body = entity.BodySlots{}.Replace(ref)
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Status == entity.ItemStatusNormal {
		item.PublishedAt = &now
	}

	return p.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := p.items.Create(ctx, item); err != nil {
			return fmt.Errorf("failed to insert item %d: %w", item.ID, err)
		}

		if err := p.putBody(ctx, item.ID, ref, body); err != nil {
			return err
		}

		if err := p.syncIndex(ctx, item, body); err != nil {
			p.discardBody(ctx, item.ID, ref)
			return err
		}
		return nil
	})
}

// Update replaces the published body under a fresh pointer and drops any
// pending draft. Metadata changes already applied to item are saved in the
// same transaction; on failure item is restored to its previous state.
func (p *ItemPipeline) Update(ctx context.Context, item *entity.Item, body string) error {
	before := *item
	ref := uid.NewRef()

	item.Body = item.Body.Replace(ref)
	item.UpdatedAt = utils.NowUTC()

	err := p.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := p.items.Save(ctx, item); err != nil {
			return fmt.Errorf("failed to save item %d: %w", item.ID, err)
		}

		if err := p.putBody(ctx, item.ID, ref, body); err != nil {
			return err
		}

		if err := p.syncIndex(ctx, item, body); err != nil {
			p.discardBody(ctx, item.ID, ref)
			return err
		}
		return nil
	})
	if err != nil {
		*item = before
	}
	return err
}

// CreateDraft stores a new item that only has a draft body. Drafts are never indexed.
func (p *ItemPipeline) CreateDraft(ctx context.Context, item *entity.Item, body string) error {
	slots, ref := entity.BodySlots{}.SaveDraft(uid.NewRef())
	now := utils.NowUTC()

	item.Body = slots
	item.Status = entity.ItemStatusDraft
	item.CreatedAt = now
	item.UpdatedAt = now
	item.PublishedAt = nil

	return p.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := p.items.Create(ctx, item); err != nil {
			return fmt.Errorf("failed to insert draft %d: %w", item.ID, err)
		}
		return p.putBody(ctx, item.ID, ref, body)
	})
}

// UpdateDraft overwrites the draft body, allocating a draft pointer only
// when the item has none yet.
func (p *ItemPipeline) UpdateDraft(ctx context.Context, item *entity.Item, body string) error {
	before := *item
	slots, ref := item.Body.SaveDraft(uid.NewRef())
	fresh := item.Body.Draft == nil

	item.Body = slots
	item.UpdatedAt = utils.NowUTC()

	err := p.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := p.items.Save(ctx, item); err != nil {
			return fmt.Errorf("failed to save draft %d: %w", item.ID, err)
		}

		if err := p.putBody(ctx, item.ID, ref, body); err != nil {
			if fresh {
				p.discardBody(ctx, item.ID, ref)
			}
			return err
		}
		return nil
	})
	if err != nil {
		*item = before
	}
	return err
}

// Publish promotes the draft pointer to the published slot. item.Status
// must already hold the status the item is published with.
func (p *ItemPipeline) Publish(ctx context.Context, item *entity.Item) error {
	slots, ok := item.Body.Publish()
	if !ok {
		return ErrNoDraft
	}

	body, err := p.readRef(ctx, item.ID, *slots.Published)
	if err != nil {
		return err
	}

	before := *item
	now := utils.NowUTC()
	item.Body = slots
	item.UpdatedAt = now
	if item.Status == entity.ItemStatusNormal && item.PublishedAt == nil {
		item.PublishedAt = &now
	}

	err = p.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := p.items.Save(ctx, item); err != nil {
			return fmt.Errorf("failed to publish item %d: %w", item.ID, err)
		}
		return p.syncIndex(ctx, item, body)
	})
	if err != nil {
		*item = before
	}
	return err
}

// SoftRemove marks the item deleted and drops its search document.
// Body blobs are kept.
func (p *ItemPipeline) SoftRemove(ctx context.Context, id int64) (*entity.Item, error) {
	var removed *entity.Item

	err := p.tx.Transaction(ctx, func(ctx context.Context) error {
		item, err := p.items.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load item %d: %w", id, err)
		}

		if item == nil {
			return ErrItemNotFound
		}

		item.Status = entity.ItemStatusDeleted
		item.UpdatedAt = utils.NowUTC()
		if err := p.items.Save(ctx, item); err != nil {
			return fmt.Errorf("failed to delete item %d: %w", id, err)
		}

		if err := p.index.Delete(ctx, search.IndexItems, uid.Format(id)); err != nil {
			return &DependencyWriteError{Store: StoreSearch, Op: "delete", ItemID: id, Err: err}
		}
		removed = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Remove deletes the row and the search document. Blobs stay until PurgeBlobs.
func (p *ItemPipeline) Remove(ctx context.Context, id int64) error {
	return p.tx.Transaction(ctx, func(ctx context.Context) error {
		item, err := p.items.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load item %d: %w", id, err)
		}

		if item == nil {
			return ErrItemNotFound
		}

		if err := p.items.Delete(ctx, item); err != nil {
			return fmt.Errorf("failed to remove item %d: %w", id, err)
		}

		if err := p.index.Delete(ctx, search.IndexItems, uid.Format(id)); err != nil {
			return &DependencyWriteError{Store: StoreSearch, Op: "delete", ItemID: id, Err: err}
		}
		return nil
	})
}

// ReadBody returns the body readers resolve to, or the draft when draft is set.
func (p *ItemPipeline) ReadBody(ctx context.Context, item *entity.Item, draft bool) (string, error) {
	var (
		ref string
		ok  bool
	)

	if draft {
		if item.Body.Draft != nil {
			ref, ok = *item.Body.Draft, true
		}
	} else {
		ref, ok = item.Body.Current()
	}

	if !ok {
		return "", ErrBodyMissing
	}
	return p.readRef(ctx, item.ID, ref)
}

// PurgeBlobs deletes every stored body version of an item that no longer
// has a live row.
func (p *ItemPipeline) PurgeBlobs(ctx context.Context, id int64) (int, error) {
	item, err := p.items.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to load item %d: %w", id, err)
	}

	if item != nil && item.Status != entity.ItemStatusDeleted {
		return 0, ErrItemIsLive
	}

	n, err := p.blobs.DeleteByPrefix(ctx, storage.ContainerItems, entity.BlobPrefix(id))
	if err != nil {
		return n, &DependencyWriteError{Store: StoreBlob, Op: "purge", ItemID: id, Err: err}
	}
	return n, nil
}

func (p *ItemPipeline) putBody(ctx context.Context, id int64, ref, body string) error {
	err := p.blobs.Put(ctx, storage.ContainerItems, entity.BlobName(id, ref), bodyContentType, []byte(body))
	if err != nil {
		return &DependencyWriteError{Store: StoreBlob, Op: "put", ItemID: id, Err: err}
	}
	return nil
}

func (p *ItemPipeline) readRef(ctx context.Context, id int64, ref string) (string, error) {
	data, err := p.blobs.Get(ctx, storage.ContainerItems, entity.BlobName(id, ref))
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrBodyMissing
	}

	if err != nil {
		return "", fmt.Errorf("failed to read body of item %d: %w", id, err)
	}
	return string(data), nil
}

func (p *ItemPipeline) discardBody(ctx context.Context, id int64, ref string) {
	if err := p.blobs.Delete(ctx, storage.ContainerItems, entity.BlobName(id, ref)); err != nil {
		log.Warnf("failed to discard body %s of item %d: %v", ref, id, err)
	}
}

// syncIndex upserts published items. Items waiting for approval stay out
// of the index.
func (p *ItemPipeline) syncIndex(ctx context.Context, item *entity.Item, body string) error {
	if item.Status != entity.ItemStatusNormal {
		return nil
	}

	res, err := p.index.Upsert(ctx, search.IndexItems, uid.Format(item.ID), itemDocument(item, body))
	if err == nil && !res.Confirmed() {
		err = errUnconfirmedUpsert
	}

	if err != nil {
		return &DependencyWriteError{Store: StoreSearch, Op: "upsert", ItemID: item.ID, Err: err}
	}
	return nil
}

func itemDocument(item *entity.Item, body string) search.Document {
	doc := search.Document{
		"owner_id":   item.OwnerID,
		"title":      item.Title,
		"tags":       item.Tags,
		"body":       body,
		"status":     string(item.Status),
		"created_at": item.CreatedAt,
	}

	if item.ContainerID != nil {
		doc["container_id"] = *item.ContainerID
	}
	if item.PublishedAt != nil {
		doc["published_at"] = *item.PublishedAt
	}
	return doc
}
