// Package orders implements checkout and the order lifecycle.
package orders

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/models"
	"codstore.dev/storefront/pkg/pricing"
)

const DefaultPageLimit = 20

// Catalog is the live product state read and written at checkout.
type Catalog interface {
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	DecrementStock(ctx context.Context, slug string, qty int) (remaining int, tracked bool, err error)
	RestoreStock(ctx context.Context, slug string, qty int) error
}

type Store interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) error
}

// Settings must read the current stored value, not a cached one.
type Settings interface {
	Number(ctx context.Context, key string) (float64, bool, error)
}

// Transactor runs fn as one unit of work. Atomic reports whether a failed
// fn is rolled back by the store itself.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Atomic() bool
}

type Idempotency interface {
	Reserve(ctx context.Context, scope, key string) (reserved bool, result string, pending bool, err error)
	Complete(ctx context.Context, scope, key, result string) error
	Release(ctx context.Context, scope, key string) error
}

type CacheInvalidator interface {
	InvalidateProducts(ctx context.Context, slugs ...string)
}

type InventoryLogger interface {
	Insert(ctx context.Context, entry *models.InventoryLog) error
}

type Service struct {
	catalog     Catalog
	store       Store
	settings    Settings
	tx          Transactor
	idempotency Idempotency
	cache       CacheInvalidator
	inventory   InventoryLogger
	now         func() time.Time
}

type Options struct {
	Idempotency Idempotency
	Cache       CacheInvalidator
	Inventory   InventoryLogger
}

func NewService(catalog Catalog, store Store, settings Settings, tx Transactor, opts Options) *Service {
	return &Service{
		catalog:     catalog,
		store:       store,
		settings:    settings,
		tx:          tx,
		idempotency: opts.Idempotency,
		cache:       opts.Cache,
		inventory:   opts.Inventory,
		now:         time.Now,
	}
}

// Create places a cash-on-delivery order. Either the order is stored and all
// tracked stock is decremented, or nothing changes. replayed is true when
// idempotencyKey matched an earlier successful request.
func (s *Service) Create(ctx context.Context, caller models.Identity, req *models.CreateOrderRequest, idempotencyKey string) (order *models.Order, replayed bool, err error) {
	if caller.IsAnonymous() {
		return nil, false, apperr.Unauthorized("sign in to place an order")
	}
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" && s.idempotency != nil {
		scope := caller.UserID.Hex()
		reserved, result, pending, err := s.idempotency.Reserve(ctx, scope, idempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if pending {
			return nil, false, apperr.Conflict("request_in_progress", "an order with this idempotency key is still being processed")
		}
		if !reserved {
			previous, err := s.replay(ctx, caller, result)
			return previous, err == nil, err
		}

		defer func() {
			if err != nil {
				if rerr := s.idempotency.Release(context.WithoutCancel(ctx), scope, idempotencyKey); rerr != nil {
					log.Printf("Warning: failed to release idempotency key: %v", rerr)
				}
				return
			}
			if cerr := s.idempotency.Complete(context.WithoutCancel(ctx), scope, idempotencyKey, order.ID.Hex()); cerr != nil {
				log.Printf("Warning: failed to record idempotency key for order %s: %v", order.OrderNumber, cerr)
			}
		}()
	}

	order, err = s.create(ctx, caller, req, idempotencyKey)
	return order, false, err
}

func (s *Service) replay(ctx context.Context, caller models.Identity, result string) (*models.Order, error) {
	id, err := bson.ObjectIDFromHex(result)
	if err != nil {
		return nil, fmt.Errorf("stored idempotency result %q: %w", result, err)
	}
	order, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(caller.UserID) {
		return nil, apperr.NotFound("order", result)
	}
	return order, nil
}

func (s *Service) create(ctx context.Context, caller models.Identity, req *models.CreateOrderRequest, idempotencyKey string) (*models.Order, error) {
	cart := models.MergeItems(req.Items)
	if err := models.CheckQuantities(cart); err != nil {
		return nil, err
	}
	items, err := s.priceItems(ctx, cart)
	if err != nil {
		return nil, err
	}
	subtotal := models.SumLines(items)

	fee := req.DeliveryFee
	serverFee, configured, err := s.deliveryFee(ctx, subtotal)
	if err != nil {
		return nil, err
	}
	if configured {
		if math.Abs(serverFee-req.DeliveryFee) > 0.005 {
			e := apperr.Validation("delivery_fee", fmt.Sprintf("delivery fee should be %s", pricing.FormatAmount(serverFee)))
			e.Details = map[string]interface{}{"expected": serverFee, "received": req.DeliveryFee}
			return nil, e
		}
		fee = serverFee
	}

	minimum, ok, err := s.settings.Number(ctx, models.KeyMinimumOrderValue)
	if err != nil {
		return nil, fmt.Errorf("read minimum order value: %w", err)
	}
	if ok && minimum > 0 && subtotal < minimum {
		return nil, apperr.MinimumOrder(minimum, subtotal)
	}

	order := &models.Order{
		ID:              bson.NewObjectID(),
		OrderNumber:     models.GenerateOrderNumber(),
		UserID:          caller.UserID,
		UserEmail:       caller.Email,
		Items:           items,
		DeliveryFee:     fee,
		Status:          models.StatusPlaced,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Phone:           strings.TrimSpace(req.Phone),
		PaymentMethod:   models.PaymentCOD,
		IdempotencyKey:  idempotencyKey,
	}
	order.RecomputeTotals()
	order.SetTimestamps()

	var remaining map[string]int
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		remaining, err = s.commit(ctx, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, order, remaining)
	log.Printf("Order %s placed by %s: %d items, total %s", order.OrderNumber, caller.Email, order.GetItemCount(), pricing.FormatAmount(order.Total))
	return order, nil
}

// priceItems snapshots each live product into an order line.
func (s *Service) priceItems(ctx context.Context, cart []models.CartItem) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(cart))
	for _, line := range cart {
		product, err := s.catalog.FindBySlug(ctx, line.Slug)
		if err != nil {
			return nil, err
		}
		if !product.Published {
			return nil, apperr.NotFound("product", line.Slug)
		}
		if !product.CanFulfil(line.Quantity) {
			return nil, apperr.InsufficientStock(line.Slug, product.Inventory.Stock)
		}

		unit := product.EffectivePrice()
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Slug:      product.Slug,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: unit,
			BasePrice: product.Price,
			LineTotal: unit * float64(line.Quantity),
		})
	}
	return items, nil
}

// deliveryFee returns the fee the store charges for subtotal. configured is
// false when no delivery fee setting exists.
func (s *Service) deliveryFee(ctx context.Context, subtotal float64) (fee float64, configured bool, err error) {
	fee, configured, err = s.settings.Number(ctx, models.KeyDeliveryFee)
	if err != nil || !configured {
		return 0, false, err
	}
	threshold, ok, err := s.settings.Number(ctx, models.KeyFreeDeliveryThreshold)
	if err != nil {
		return 0, false, err
	}
	if ok && threshold > 0 && subtotal >= threshold {
		return 0, true, nil
	}
	return fee, true, nil
}

// commit decrements stock line by line and inserts the order. Without a
// rolling-back transaction, a failure puts the lines already decremented back
// before returning.
func (s *Service) commit(ctx context.Context, order *models.Order) (map[string]int, error) {
	compensate := !s.tx.Atomic()
	type taken struct {
		slug string
		qty  int
	}
	var done []taken
	remaining := map[string]int{}

	rollback := func() {
		if !compensate {
			return
		}
		for i := len(done) - 1; i >= 0; i-- {
			if err := s.catalog.RestoreStock(context.WithoutCancel(ctx), done[i].slug, done[i].qty); err != nil {
				log.Printf("Error: failed to restore %d units of %s for order %s: %v", done[i].qty, done[i].slug, order.OrderNumber, err)
			}
		}
	}

	for _, item := range order.Items {
		left, tracked, err := s.catalog.DecrementStock(ctx, item.Slug, item.Quantity)
		if err != nil {
			rollback()
			return nil, err
		}
		if tracked {
			done = append(done, taken{slug: item.Slug, qty: item.Quantity})
			remaining[item.Slug] = left
		}
	}

	if err := s.store.Insert(ctx, order); err != nil {
		rollback()
		return nil, err
	}
	return remaining, nil
}

func (s *Service) afterCommit(ctx context.Context, order *models.Order, remaining map[string]int) {
	slugs := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		slugs = append(slugs, item.Slug)
		left, tracked := remaining[item.Slug]
		if !tracked || s.inventory == nil {
			continue
		}
		entry := models.NewInventoryLog(item.Slug, models.ChangeSale, left, -item.Quantity, order.UserID.Hex())
		entry.OrderNumber = order.OrderNumber
		if err := s.inventory.Insert(ctx, entry); err != nil {
			log.Printf("Warning: failed to record inventory change for %s: %v", item.Slug, err)
		}
	}
	if s.cache != nil {
		s.cache.InvalidateProducts(ctx, slugs...)
	}
}

// Quote prices a cart against the live catalog without changing anything.
func (s *Service) Quote(ctx context.Context, cart []models.CartItem) (*models.Quote, error) {
	if err := models.CheckQuantities(cart); err != nil {
		return nil, err
	}
	quote := &models.Quote{Lines: []models.QuoteLine{}}
	for _, line := range models.MergeItems(cart) {
		product, err := s.catalog.FindBySlug(ctx, line.Slug)
		if apperr.IsKind(err, apperr.KindNotFound) || (err == nil && !product.Published) {
			quote.Lines = append(quote.Lines, models.QuoteLine{Slug: line.Slug, Quantity: line.Quantity, Warning: "not_available"})
			continue
		}
		if err != nil {
			return nil, err
		}

		unit := product.EffectivePrice()
		q := models.QuoteLine{
			Slug:      product.Slug,
			Name:      product.Name,
			Quantity:  line.Quantity,
			BasePrice: product.Price,
			UnitPrice: unit,
			LineTotal: unit * float64(line.Quantity),
		}
		if product.Inventory.Track {
			available := product.Inventory.Stock
			q.Available = &available
			if !product.CanFulfil(line.Quantity) {
				q.Warning = "insufficient_stock"
			}
		}
		quote.Subtotal += q.LineTotal
		quote.Lines = append(quote.Lines, q)
	}

	fee, _, err := s.deliveryFee(ctx, quote.Subtotal)
	if err != nil {
		return nil, err
	}
	minimum, _, err := s.settings.Number(ctx, models.KeyMinimumOrderValue)
	if err != nil {
		return nil, err
	}
	quote.DeliveryFee = fee
	quote.Total = quote.Subtotal + fee
	quote.MinimumOrder = minimum
	quote.MeetsMinimum = minimum <= 0 || quote.Subtotal >= minimum
	quote.DisplaySubtotal = pricing.FormatAmount(quote.Subtotal)
	quote.DisplayTotal = pricing.FormatAmount(quote.Total)
	return quote, nil
}

// Get returns the order to its owner or an admin. Everyone else gets
// NotFound so order ids cannot be enumerated.
func (s *Service) Get(ctx context.Context, caller models.Identity, id string) (*models.Order, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("order", id)
	}
	order, err := s.store.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !order.OwnedBy(caller.UserID) {
		return nil, apperr.NotFound("order", id)
	}
	return order, nil
}

// List returns all orders for admins, optionally filtered by status.
func (s *Service) List(ctx context.Context, caller models.Identity, status string, page, limit int) (*global.Page[models.Order], error) {
	if !caller.IsAdmin() {
		return nil, apperr.Forbidden("admin_required", "admin access required")
	}
	filter := models.OrderFilter{}
	if status != "" {
		st, ok := models.ParseOrderStatus(status)
		if !ok {
			return nil, apperr.Validation("status", fmt.Sprintf("unknown order status %q", status))
		}
		filter.Status = st
	}
	return s.list(ctx, filter, page, limit)
}

// ListMine returns the caller's own orders.
func (s *Service) ListMine(ctx context.Context, caller models.Identity, page, limit int) (*global.Page[models.Order], error) {
	if caller.IsAnonymous() {
		return nil, apperr.Unauthorized("authentication required")
	}
	return s.list(ctx, models.OrderFilter{UserID: caller.UserID}, page, limit)
}

func (s *Service) list(ctx context.Context, filter models.OrderFilter, page, limit int) (*global.Page[models.Order], error) {
	filter.Page, filter.Limit = global.NormalizePage(page, limit, DefaultPageLimit)
	orders, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &global.Page[models.Order]{Items: orders, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// UpdateStatus moves an order along its lifecycle. Cancelling does not
// return stock.
func (s *Service) UpdateStatus(ctx context.Context, caller models.Identity, id, status string) (*models.Order, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Forbidden("admin_required", "admin access required")
	}
	to, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, apperr.Validation("status", fmt.Sprintf("unknown order status %q", status))
	}

	order, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if err := order.UpdateStatus(to, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, order, from); err != nil {
		return nil, err
	}

	log.Printf("Order %s moved from %s to %s by %s", order.OrderNumber, from, to, caller.Email)
	return order, nil
}
