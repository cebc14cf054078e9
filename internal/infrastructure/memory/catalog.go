package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

type Catalog struct {
	mu       sync.RWMutex
	services map[uuid.UUID]entity.Service
}

func NewCatalog(services ...entity.Service) *Catalog {
	c := &Catalog{services: map[uuid.UUID]entity.Service{}}
	for _, s := range services {
		c.services[s.ID] = s
	}
	return c
}

func (c *Catalog) Put(s entity.Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[s.ID] = s
}

func (c *Catalog) GetService(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.services[id]
	if !ok {
		return nil, apperror.ErrServiceNotFound
	}
	return &s, nil
}

type serviceSeed struct {
	ID           uuid.UUID       `json:"id"`
	FreelancerID uuid.UUID       `json:"freelancer_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	DeliveryDays int             `json:"delivery_days"`
	Revisions    int             `json:"revisions"`
}

// DecodeServices читает JSON-массив услуг для наполнения каталога.
func DecodeServices(r io.Reader) ([]entity.Service, error) {
	var seeds []serviceSeed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seeds); err != nil {
		return nil, fmt.Errorf("memory catalog: разбор услуг: %w", err)
	}

	out := make([]entity.Service, 0, len(seeds))
	seen := make(map[uuid.UUID]struct{}, len(seeds))
	for i, s := range seeds {
		if s.ID == uuid.Nil || s.FreelancerID == uuid.Nil {
			return nil, fmt.Errorf("memory catalog: услуга #%d без id или freelancer_id", i)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("memory catalog: услуга %s повторяется", s.ID)
		}
		if !s.Price.IsPositive() || s.DeliveryDays <= 0 || s.Revisions < 0 {
			return nil, fmt.Errorf("memory catalog: услуга %s с некорректными условиями", s.ID)
		}
		seen[s.ID] = struct{}{}
		out = append(out, entity.Service{
			ID:           s.ID,
			FreelancerID: s.FreelancerID,
			Title:        s.Title,
			Description:  s.Description,
			Price:        s.Price,
			Currency:     s.Currency,
			DeliveryDays: s.DeliveryDays,
			Revisions:    s.Revisions,
		})
	}
	return out, nil
}

// LoadCatalog создаёт каталог из файла. Пустой путь даёт пустой каталог.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory catalog: %w", err)
	}
	defer f.Close()

	services, err := DecodeServices(f)
	if err != nil {
		return nil, err
	}
	return NewCatalog(services...), nil
}

type Attachments struct {
	mu    sync.RWMutex
	files map[uuid.UUID]entity.Attachment
}

func NewAttachments() *Attachments {
	return &Attachments{files: map[uuid.UUID]entity.Attachment{}}
}

func (a *Attachments) Put(att entity.Attachment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[att.ID] = att
}

func (a *Attachments) Resolve(ctx context.Context, fileRef uuid.UUID, ownerID uuid.UUID) (*entity.Attachment, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	att, ok := a.files[fileRef]
	if !ok || att.OwnerID != ownerID {
		return nil, apperror.ErrAttachmentNotFound
	}
	return &att, nil
}
