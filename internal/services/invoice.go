package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"caribook/internal/bookings"
	"caribook/internal/cache"
	"caribook/internal/core"
	"caribook/internal/invoice"
	"caribook/internal/log"
)

// InvoiceDateLayout is how invoice dates are printed.
const InvoiceDateLayout = "January 2, 2006"

// BuildInvoice derives the invoice packet of e. Dates are printed in loc.
func BuildInvoice(e core.Event, loc *time.Location) invoice.Data {
	if loc == nil {
		loc = time.UTC
	}
	number := e.ID
	if len(number) > 3 {
		number = number[len(number)-3:]
	}
	d := invoice.Data{
		InvoiceNumber:  number,
		ClientName:     orDefault(e.ClientName, "Client"),
		Location:       orDefault(e.Location, "Location not specified"),
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		Price:          e.Price,
		AdvancePayment: e.AdvancePayment,
		Artists:        append([]string(nil), e.Artists...),
		ContactNumber:  e.ContactNumber,
	}
	if e.HasDate() {
		d.Date = e.Date.In(loc).Format(InvoiceDateLayout)
	}
	return d
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// RenderFunc turns an invoice packet into a document.
type RenderFunc func(invoice.Data) ([]byte, error)

// Document is a rendered invoice.
type Document struct {
	FileName string
	Content  []byte
}

// InvoiceService renders invoices on demand. Documents are cached per event
// revision and concurrent requests for the same revision share one render.
type InvoiceService struct {
	repo   *bookings.Repository
	render RenderFunc
	cache  *cache.LRUCache[Document]
	group  singleflight.Group
	logger *log.Logger
}

func NewInvoiceService(repo *bookings.Repository, render RenderFunc, documents *cache.LRUCache[Document], logger *log.Logger) *InvoiceService {
	if render == nil {
		render = invoice.Render
	}
	if documents == nil {
		documents = cache.NewLRUCache[Document](64, 15*time.Minute)
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &InvoiceService{
		repo:   repo,
		render: render,
		cache:  documents,
		logger: logger.WithComponent(log.ComponentInvoice),
	}
}

// Packet returns the invoice packet of event id.
func (s *InvoiceService) Packet(ctx context.Context, id string) (invoice.Data, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return invoice.Data{}, err
	}
	return BuildInvoice(e, s.repo.Location()), nil
}

// Document returns the PDF of event id.
func (s *InvoiceService) Document(ctx context.Context, id string) (Document, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	key := fmt.Sprintf("%s@%d", e.ID, e.UpdatedAt.UnixNano())
	if doc, ok := s.cache.Get(key); ok {
		return doc, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		data := BuildInvoice(e, s.repo.Location())
		start := time.Now()
		content, err := s.render(data)
		if err != nil {
			return Document{}, err
		}
		doc := Document{FileName: data.FileName(), Content: content}
		s.cache.DeletePrefix(e.ID + "@")
		s.cache.Set(key, doc)
		s.logger.InfoContext(ctx, "Invoice rendered",
			log.FieldEventID, e.ID,
			log.FieldOperation, log.OpRender,
			log.FieldDuration, time.Since(start).Milliseconds())
		return doc, nil
	})
	if err != nil {
		return Document{}, fmt.Errorf("render invoice for %s: %w", id, err)
	}
	if shared {
		s.logger.DebugContext(ctx, "Invoice render shared", log.FieldEventID, e.ID)
	}
	return v.(Document), nil
}

// CacheStats reports the document cache counters.
func (s *InvoiceService) CacheStats() cache.Stats {
	return s.cache.Stats()
}
