package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/orders/domain"
	"storefront/internal/orders/ports"
	apperrors "storefront/pkg/errors"
)

// OrderModel is the GORM model for orders (persistence layer)
type OrderModel struct {
	ID                  uint               `gorm:"primaryKey"`
	Reference           string             `gorm:"size:64;uniqueIndex;not null"`
	Status              domain.OrderStatus `gorm:"size:20;index;not null"`
	GatewaySessionID    string             `gorm:"size:128"`
	GatewayPaymentState string             `gorm:"size:32"`
	CallbackToken       string             `gorm:"size:128"`

	Email       string `gorm:"size:255"`
	PhoneNumber string `gorm:"size:32"`

	ShippingAddress AddressModel `gorm:"embedded;embeddedPrefix:shipping_"`
	BillingAddress  AddressModel `gorm:"embedded;embeddedPrefix:billing_"`

	ItemsTotal    int64  `gorm:"not null"`
	ShippingPrice int64  `gorm:"not null"`
	TotalAmount   int64  `gorm:"not null"`
	Currency      string `gorm:"size:8;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
	ShippedAt *time.Time

	Items []OrderLineItemModel `gorm:"foreignKey:OrderReference;references:Reference"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// AddressModel is an embedded address snapshot
type AddressModel struct {
	FullName   string `gorm:"size:255"`
	Street     string `gorm:"size:255"`
	PostalCode string `gorm:"size:16"`
	City       string `gorm:"size:128"`
	Country    string `gorm:"size:8"`
}

// OrderLineItemModel is the GORM model for order line items. Rows are
// written once at order creation and never updated.
type OrderLineItemModel struct {
	ID             uint   `gorm:"primaryKey"`
	OrderReference string `gorm:"size:64;index;not null"`
	ProductID      string `gorm:"size:64;not null"`
	Name           string `gorm:"size:255;not null"`
	Image          string `gorm:"size:512"`
	Size           string `gorm:"size:32"`
	UnitPrice      int64  `gorm:"not null"`
	Quantity       int    `gorm:"not null"`
	LineTotal      int64  `gorm:"not null"`
	Tax            int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLineItemModel) TableName() string {
	return "order_line_items"
}

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *gorm.DB
}

var _ ports.OrderRepository = (*PostgresOrderRepository)(nil)

// NewPostgresOrderRepository creates a new PostgreSQL order repository
func NewPostgresOrderRepository(db *gorm.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Migrate runs auto-migration for the order models
func (r *PostgresOrderRepository) Migrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderLineItemModel{})
}

// Create persists a new order with its line items. The unique index on
// reference makes creation idempotent: a duplicate is a conflict, never a
// second row.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := toModel(order)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(model).Error; err != nil {
			return err
		}
		for i := range model.Items {
			model.Items[i].OrderReference = order.Reference
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.NewConflict("order with reference '" + order.Reference + "' already exists")
		}
		return apperrors.NewInternal("failed to create order", err)
	}

	return nil
}

// GetByReference retrieves an order by its reference
func (r *PostgresOrderRepository) GetByReference(ctx context.Context, reference string) (*domain.Order, error) {
	var model OrderModel

	result := r.db.WithContext(ctx).Preload("Items").Where("reference = ?", reference).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewOrderNotFound(reference)
		}
		return nil, apperrors.NewInternal("failed to get order", result.Error)
	}

	return toDomain(&model), nil
}

// UpdateByReference applies fn to the order under a row lock, serializing
// all mutations of the same reference. Line items are immutable and are not
// rewritten.
func (r *PostgresOrderRepository) UpdateByReference(ctx context.Context, reference string, fn func(*domain.Order) error) (*domain.Order, error) {
	var updated *domain.Order

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model OrderModel
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference = ?", reference).
			First(&model)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return domain.NewOrderNotFound(reference)
			}
			return apperrors.NewInternal("failed to lock order", result.Error)
		}

		var items []OrderLineItemModel
		if err := tx.Where("order_reference = ?", reference).Order("id").Find(&items).Error; err != nil {
			return apperrors.NewInternal("failed to load line items", err)
		}
		model.Items = items

		order := toDomain(&model)
		if err := fn(order); err != nil {
			return err
		}

		next := toModel(order)
		next.ID = model.ID
		if err := tx.Omit("Items").Save(next).Error; err != nil {
			return apperrors.NewInternal("failed to update order", err)
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// ListByStatus retrieves all orders currently in status
func (r *PostgresOrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	var models []OrderModel

	result := r.db.WithContext(ctx).Preload("Items").Where("status = ?", status).Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewInternal("failed to list orders by status", result.Error)
	}

	return toDomainSlice(models), nil
}

// ListStaleUnpaid retrieves unpaid orders created before the cutoff
func (r *PostgresOrderRepository) ListStaleUnpaid(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	var models []OrderModel

	result := r.db.WithContext(ctx).
		Where("status IN ?", []domain.OrderStatus{domain.StatusPending, domain.StatusPaymentPending}).
		Where("created_at < ?", cutoff).
		Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewInternal("failed to list stale orders", result.Error)
	}

	return toDomainSlice(models), nil
}

func toDomainSlice(models []OrderModel) []*domain.Order {
	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = toDomain(&models[i])
	}
	return orders
}

// toModel converts a domain entity to a GORM model
func toModel(order *domain.Order) *OrderModel {
	items := make([]OrderLineItemModel, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderLineItemModel{
			OrderReference: order.Reference,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Image:          item.Image,
			Size:           item.Size,
			UnitPrice:      item.UnitPrice,
			Quantity:       item.Quantity,
			LineTotal:      item.LineTotal,
			Tax:            item.Tax,
		}
	}

	return &OrderModel{
		Reference:           order.Reference,
		Status:              order.Status,
		GatewaySessionID:    order.GatewaySessionID,
		GatewayPaymentState: order.GatewayPaymentState,
		CallbackToken:       order.CallbackToken,
		Email:               order.Email,
		PhoneNumber:         order.PhoneNumber,
		ShippingAddress:     toAddressModel(order.ShippingAddress),
		BillingAddress:      toAddressModel(order.BillingAddress),
		ItemsTotal:          order.ItemsTotal,
		ShippingPrice:       order.ShippingPrice,
		TotalAmount:         order.TotalAmount,
		Currency:            order.Currency,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
		PaidAt:              order.PaidAt,
		ShippedAt:           order.ShippedAt,
		Items:               items,
	}
}

// toDomain converts a GORM model to a domain entity
func toDomain(model *OrderModel) *domain.Order {
	items := make([]domain.OrderLineItem, len(model.Items))
	for i, item := range model.Items {
		items[i] = domain.OrderLineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Size:      item.Size,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
			Tax:       item.Tax,
		}
	}

	return &domain.Order{
		Reference:           model.Reference,
		Status:              model.Status,
		GatewaySessionID:    model.GatewaySessionID,
		GatewayPaymentState: model.GatewayPaymentState,
		CallbackToken:       model.CallbackToken,
		Email:               model.Email,
		PhoneNumber:         model.PhoneNumber,
		ShippingAddress:     toDomainAddress(model.ShippingAddress),
		BillingAddress:      toDomainAddress(model.BillingAddress),
		Items:               items,
		ItemsTotal:          model.ItemsTotal,
		ShippingPrice:       model.ShippingPrice,
		TotalAmount:         model.TotalAmount,
		Currency:            model.Currency,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
		PaidAt:              model.PaidAt,
		ShippedAt:           model.ShippedAt,
	}
}

func toAddressModel(a domain.Address) AddressModel {
	return AddressModel{
		FullName:   a.FullName,
		Street:     a.Street,
		PostalCode: a.PostalCode,
		City:       a.City,
		Country:    a.Country,
	}
}

func toDomainAddress(a AddressModel) domain.Address {
	return domain.Address{
		FullName:   a.FullName,
		Street:     a.Street,
		PostalCode: a.PostalCode,
		City:       a.City,
		Country:    a.Country,
	}
}
